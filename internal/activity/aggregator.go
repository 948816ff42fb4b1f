// Package activity folds raw per-chain transaction and NFT lists into a
// canonical UserActivity profile.
package activity

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"airdrop-scout/internal/domain"
)

// Aggregator builds activity profiles. It holds no per-call state and is
// safe for concurrent use.
type Aggregator struct {
	matcher *ProtocolMatcher
}

// NewAggregator creates an aggregator. A nil matcher uses DefaultProtocolRules.
func NewAggregator(matcher *ProtocolMatcher) *Aggregator {
	if matcher == nil {
		matcher = NewProtocolMatcher(DefaultProtocolRules)
	}
	return &Aggregator{matcher: matcher}
}

// Aggregate computes the activity profile of address from per-chain data.
// The address must already be validated by the caller.
// Output depends only on the inputs: chains and records are visited in
// sorted order and USD sums use decimal arithmetic.
// Empty inputs yield an empty profile, not an error.
func (a *Aggregator) Aggregate(
	address string,
	perChainTxs map[domain.ChainID][]domain.ChainTransaction,
	perChainNFTs map[domain.ChainID][]domain.ChainNFT,
) *domain.UserActivity {
	act := domain.NewUserActivity(address)

	totalValue := decimal.Zero
	totalGas := decimal.Zero
	seenTimestamp := false

	observe := func(ts int64) {
		if ts <= 0 {
			return
		}
		if !seenTimestamp || ts < act.FirstActivityUnix {
			act.FirstActivityUnix = ts
		}
		if !seenTimestamp || ts > act.LastActivityUnix {
			act.LastActivityUnix = ts
		}
		seenTimestamp = true
	}

	for _, chain := range sortedChains(perChainTxs) {
		txs := perChainTxs[chain]
		if len(txs) == 0 {
			continue
		}
		act.ChainsUsed[chain] = struct{}{}
		act.PerChainTransactionCount[chain] += len(txs)
		act.TotalTransactionCount += len(txs)

		for i := range txs {
			tx := &txs[i]
			observe(tx.TimestampUnix)
			totalValue = totalValue.Add(decimal.NewFromFloat(tx.ValueUSD))
			totalGas = totalGas.Add(decimal.NewFromFloat(tx.GasUSD))

			if contract := contractOf(tx); contract != "" {
				act.ContractsInteracted[contract] = struct{}{}
			}
			if protocol := a.detectProtocol(tx); protocol != "" {
				act.ProtocolsTouched[protocol] = struct{}{}
			}
		}
	}

	for _, chain := range sortedChains(perChainNFTs) {
		nfts := perChainNFTs[chain]
		if len(nfts) == 0 {
			continue
		}
		act.ChainsUsed[chain] = struct{}{}
		for _, nft := range nfts {
			observe(nft.AcquiredAtUnix)
			if c := strings.ToLower(strings.TrimSpace(nft.ContractAddress)); c != "" {
				act.NFTContractsHeld[c] = struct{}{}
			}
		}
	}

	act.TotalValueUSD = totalValue.Round(2).InexactFloat64()
	act.TotalGasUSD = totalGas.Round(2).InexactFloat64()

	return act
}

// detectProtocol tries the contract label first, then the token symbol.
func (a *Aggregator) detectProtocol(tx *domain.ChainTransaction) string {
	if tx.ContractName != nil {
		if p := a.matcher.Match(*tx.ContractName); p != "" {
			return p
		}
	}
	if tx.TokenSymbol != nil {
		if p := a.matcher.Match(*tx.TokenSymbol); p != "" {
			return p
		}
	}
	return ""
}

// contractOf returns the lower-cased called contract, falling back to the recipient.
func contractOf(tx *domain.ChainTransaction) string {
	if tx.ContractAddress != nil && *tx.ContractAddress != "" {
		return strings.ToLower(strings.TrimSpace(*tx.ContractAddress))
	}
	return strings.ToLower(strings.TrimSpace(tx.To))
}

func sortedChains[T any](m map[domain.ChainID][]T) []domain.ChainID {
	chains := make([]domain.ChainID, 0, len(m))
	for c := range m {
		chains = append(chains, c)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}
