package domain

import (
	"sort"
	"strings"
)

// UserActivity is the canonical activity profile of one address.
// Rebuilt on every aggregation; never persisted.
// Invariant: TotalTransactionCount == sum(PerChainTransactionCount).
type UserActivity struct {
	Address                  string
	ChainsUsed               map[ChainID]struct{}
	TotalTransactionCount    int
	PerChainTransactionCount map[ChainID]int
	ContractsInteracted      map[string]struct{} // lower-cased
	ProtocolsTouched         map[string]struct{} // canonical protocol names
	NFTContractsHeld         map[string]struct{} // lower-cased
	TotalValueUSD            float64
	TotalGasUSD              float64
	FirstActivityUnix        int64
	LastActivityUnix         int64
}

// NewUserActivity returns an empty profile with all sets initialized.
func NewUserActivity(address string) *UserActivity {
	return &UserActivity{
		Address:                  strings.ToLower(address),
		ChainsUsed:               make(map[ChainID]struct{}),
		PerChainTransactionCount: make(map[ChainID]int),
		ContractsInteracted:      make(map[string]struct{}),
		ProtocolsTouched:         make(map[string]struct{}),
		NFTContractsHeld:         make(map[string]struct{}),
	}
}

// ChainCount returns the number of distinct chains used.
func (a *UserActivity) ChainCount() int {
	return len(a.ChainsUsed)
}

// UsedChain reports whether the address was active on chain.
func (a *UserActivity) UsedChain(chain ChainID) bool {
	_, ok := a.ChainsUsed[chain]
	return ok
}

// HasContract reports whether the address interacted with contract (case-insensitive).
func (a *UserActivity) HasContract(contract string) bool {
	_, ok := a.ContractsInteracted[strings.ToLower(contract)]
	return ok
}

// HoldsNFT reports whether the address holds an NFT from contract (case-insensitive).
func (a *UserActivity) HoldsNFT(contract string) bool {
	_, ok := a.NFTContractsHeld[strings.ToLower(contract)]
	return ok
}

// TouchedProtocol reports whether the named protocol was detected (case-insensitive).
func (a *UserActivity) TouchedProtocol(protocol string) bool {
	_, ok := a.ProtocolsTouched[strings.ToLower(protocol)]
	return ok
}

// ChainList returns used chains in ascending order.
func (a *UserActivity) ChainList() []ChainID {
	chains := make([]ChainID, 0, len(a.ChainsUsed))
	for c := range a.ChainsUsed {
		chains = append(chains, c)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	return chains
}

// ProtocolList returns touched protocols sorted by name.
func (a *UserActivity) ProtocolList() []string {
	return sortedKeys(a.ProtocolsTouched)
}

// ContractList returns interacted contracts sorted by address.
func (a *UserActivity) ContractList() []string {
	return sortedKeys(a.ContractsInteracted)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
