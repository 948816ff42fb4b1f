package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airdrop-scout/internal/domain"
)

func strPtr(s string) *string { return &s }

func fixtureTxs() map[domain.ChainID][]domain.ChainTransaction {
	return map[domain.ChainID][]domain.ChainTransaction{
		domain.ChainEthereum: {
			{
				ChainID: domain.ChainEthereum, Hash: "0x01", From: "0xuser", To: "0xRouter",
				ValueUSD: 100.10, GasUSD: 4.2, TimestampUnix: 1_700_000_000,
				ContractAddress: strPtr("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
				ContractName:    strPtr("Uniswap V3: Router"),
			},
			{
				ChainID: domain.ChainEthereum, Hash: "0x02", From: "0xuser", To: "0xFriend",
				ValueUSD: 0.2, GasUSD: 1.1, TimestampUnix: 1_690_000_000,
			},
		},
		domain.ChainBase: {
			{
				ChainID: domain.ChainBase, Hash: "0x03", From: "0xuser", To: "0xpool",
				ValueUSD: 50, GasUSD: 0.01, TimestampUnix: 1_710_000_000,
				ContractAddress: strPtr("0xA238Dd80C259a72e81d7e4664a9801593F98d1c5"),
				TokenSymbol:     strPtr("AAVE"),
			},
		},
		domain.ChainArbitrum: {},
	}
}

func fixtureNFTs() map[domain.ChainID][]domain.ChainNFT {
	return map[domain.ChainID][]domain.ChainNFT{
		domain.ChainZkSync: {
			{ChainID: domain.ChainZkSync, ContractAddress: "0xNFTPass", TokenID: "7", AcquiredAtUnix: 1_720_000_000},
			{ChainID: domain.ChainZkSync, ContractAddress: "0xnftpass", TokenID: "8", AcquiredAtUnix: 1_650_000_000},
		},
	}
}

func TestAggregate_BuildsProfile(t *testing.T) {
	agg := NewAggregator(nil)

	act := agg.Aggregate("0xUSER", fixtureTxs(), fixtureNFTs())

	assert.Equal(t, "0xuser", act.Address)
	assert.Equal(t, 3, act.TotalTransactionCount)
	assert.Equal(t, 2, act.PerChainTransactionCount[domain.ChainEthereum])
	assert.Equal(t, 1, act.PerChainTransactionCount[domain.ChainBase])
	assert.NotContains(t, act.PerChainTransactionCount, domain.ChainArbitrum)

	// Arbitrum has an empty list; zkSync has NFTs only.
	assert.Equal(t, []domain.ChainID{domain.ChainEthereum, domain.ChainZkSync, domain.ChainBase}, act.ChainList())

	assert.True(t, act.HasContract("0xe592427a0aece92de3edee1f18e0157c05861564"))
	assert.True(t, act.HasContract("0xFRIEND"))
	assert.Len(t, act.ContractsInteracted, 3)

	assert.Equal(t, []string{"aave", "uniswap"}, act.ProtocolList())

	assert.Len(t, act.NFTContractsHeld, 1)
	assert.True(t, act.HoldsNFT("0xNfTpAsS"))

	assert.InDelta(t, 150.30, act.TotalValueUSD, 1e-9)
	assert.InDelta(t, 5.31, act.TotalGasUSD, 1e-9)

	assert.Equal(t, int64(1_650_000_000), act.FirstActivityUnix)
	assert.Equal(t, int64(1_720_000_000), act.LastActivityUnix)
}

func TestAggregate_CountInvariant(t *testing.T) {
	act := NewAggregator(nil).Aggregate("0xuser", fixtureTxs(), fixtureNFTs())

	sum := 0
	for _, n := range act.PerChainTransactionCount {
		sum += n
	}
	assert.Equal(t, act.TotalTransactionCount, sum)
}

func TestAggregate_Idempotent(t *testing.T) {
	agg := NewAggregator(nil)
	txs, nfts := fixtureTxs(), fixtureNFTs()

	first := agg.Aggregate("0xuser", txs, nfts)
	second := agg.Aggregate("0xuser", txs, nfts)

	assert.Equal(t, first, second)
}

func TestAggregate_EmptyInputs(t *testing.T) {
	agg := NewAggregator(nil)

	for name, act := range map[string]*domain.UserActivity{
		"nil maps":   agg.Aggregate("0xuser", nil, nil),
		"empty maps": agg.Aggregate("0xuser", map[domain.ChainID][]domain.ChainTransaction{}, map[domain.ChainID][]domain.ChainNFT{}),
	} {
		t.Run(name, func(t *testing.T) {
			require.NotNil(t, act)
			assert.Zero(t, act.TotalTransactionCount)
			assert.Zero(t, act.ChainCount())
			assert.NotNil(t, act.ContractsInteracted)
			assert.Empty(t, act.ProtocolsTouched)
			assert.Zero(t, act.TotalValueUSD)
			assert.Zero(t, act.LastActivityUnix)
		})
	}
}

func TestAggregate_OneSidedInputsStillBuildProfile(t *testing.T) {
	agg := NewAggregator(nil)

	nftOnly := agg.Aggregate("0xuser", nil, fixtureNFTs())
	assert.Zero(t, nftOnly.TotalTransactionCount)
	assert.Equal(t, 1, nftOnly.ChainCount())
	assert.True(t, nftOnly.UsedChain(domain.ChainZkSync))
	assert.True(t, nftOnly.HoldsNFT("0xnftpass"))
	assert.Equal(t, int64(1_650_000_000), nftOnly.FirstActivityUnix)
	assert.Equal(t, int64(1_720_000_000), nftOnly.LastActivityUnix)

	txOnly := agg.Aggregate("0xuser", fixtureTxs(), map[domain.ChainID][]domain.ChainNFT{})
	assert.Equal(t, 3, txOnly.TotalTransactionCount)
	assert.Equal(t, 2, txOnly.ChainCount())
	assert.Empty(t, txOnly.NFTContractsHeld)
}

func TestAggregate_ValueSumIsOrderIndependent(t *testing.T) {
	agg := NewAggregator(nil)
	a := map[domain.ChainID][]domain.ChainTransaction{
		domain.ChainEthereum: {{ValueUSD: 0.1, TimestampUnix: 1}, {ValueUSD: 0.2, TimestampUnix: 2}, {ValueUSD: 0.3, TimestampUnix: 3}},
	}
	b := map[domain.ChainID][]domain.ChainTransaction{
		domain.ChainEthereum: {{ValueUSD: 0.3, TimestampUnix: 3}, {ValueUSD: 0.1, TimestampUnix: 1}, {ValueUSD: 0.2, TimestampUnix: 2}},
	}

	assert.Equal(t, 0.6, agg.Aggregate("0xuser", a, nil).TotalValueUSD)
	assert.Equal(t, 0.6, agg.Aggregate("0xuser", b, nil).TotalValueUSD)
}
