package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCriterion_UnknownKind(t *testing.T) {
	_, err := DecodeCriterion(RawCriterion{Kind: "bridge_volume", Params: json.RawMessage(`{}`)})

	var unknown *UnknownCriterionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, CriterionKind("bridge_volume"), unknown.Kind)
	assert.Contains(t, err.Error(), "bridge_volume")
}

func TestDecodeCriterion_MissingParams(t *testing.T) {
	_, err := DecodeCriterion(RawCriterion{Kind: KindMinTransactionCount})
	assert.ErrorIs(t, err, ErrInvalidCriterion)
}

func TestDecodeCriterion_Variants(t *testing.T) {
	tests := []struct {
		raw  RawCriterion
		want Criterion
	}{
		{
			raw:  RawCriterion{Kind: KindMinTransactionCount, Params: json.RawMessage(`{"n":10}`)},
			want: MinTransactionCount{N: 10},
		},
		{
			raw:  RawCriterion{Kind: KindHoldsNFT, Description: "Hold a pass", Params: json.RawMessage(`{"address":"0xAbC"}`)},
			want: HoldsNFT{Contract: "0xAbC", Description: "Hold a pass"},
		},
		{
			raw:  RawCriterion{Kind: KindDateRange, Params: json.RawMessage(`{"start":100,"end":200}`)},
			want: DateRange{Start: 100, End: 200},
		},
		{
			raw:  RawCriterion{Kind: KindActiveOnChain, Params: json.RawMessage(`{"chain":8453}`)},
			want: ActiveOnChain{Chain: ChainBase},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.raw.Kind), func(t *testing.T) {
			got, err := DecodeCriterion(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribe_DefaultsFromPayload(t *testing.T) {
	assert.Equal(t, "At least 10 transactions", MinTransactionCount{N: 10}.Describe())
	assert.Equal(t, "Active on at least 3 chains", ChainCountAtLeast{N: 3}.Describe())
	assert.Equal(t, "Be active on base", ActiveOnChain{Chain: ChainBase}.Describe())
	assert.Equal(t, "custom", MinValueUSD{Value: 5, Description: "custom"}.Describe())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, "Active between 2024-01-01 and 2024-06-30", DateRange{Start: start, End: end}.Describe())
}

func TestProjectJSON_PreservesCriteriaOrder(t *testing.T) {
	value := 1500.0
	snapshot := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	p := Project{
		ProjectID:         "scroll",
		Name:              "Scroll",
		Status:            StatusRumored,
		Chains:            []ChainID{ChainScroll},
		SnapshotDate:      &snapshot,
		EstimatedValueUSD: &value,
		Criteria: []Criterion{
			ActiveOnChain{Chain: ChainScroll},
			MinTransactionCount{N: 5},
			ProtocolUsed{Protocol: "uniswap"},
		},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Project
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, p.Criteria, decoded.Criteria)
	assert.Equal(t, p.Status, decoded.Status)
	require.NotNil(t, decoded.SnapshotDate)
	assert.True(t, snapshot.Equal(*decoded.SnapshotDate))
}

func TestProjectJSON_UnknownCriterionFails(t *testing.T) {
	data := []byte(`{"project_id":"x","status":"CONFIRMED","criteria":[{"kind":"karma","params":{}}]}`)

	var p Project
	err := json.Unmarshal(data, &p)

	var unknown *UnknownCriterionError
	assert.True(t, errors.As(err, &unknown))
}

func TestProjectFilter_Matches(t *testing.T) {
	p := &Project{ProjectID: "a", Status: StatusConfirmed, Chains: []ChainID{ChainBase, ChainEthereum}}

	assert.True(t, ProjectFilter{}.Matches(p))
	assert.True(t, ProjectFilter{Statuses: []ProjectStatus{StatusConfirmed}}.Matches(p))
	assert.False(t, ProjectFilter{Statuses: []ProjectStatus{StatusRumored}}.Matches(p))
	assert.True(t, ProjectFilter{Chains: []ChainID{ChainBase}}.Matches(p))
	assert.False(t, ProjectFilter{Chains: []ChainID{ChainScroll}}.Matches(p))
	assert.False(t, ProjectFilter{ProjectIDs: []string{"b"}}.Matches(p))
}

func TestDecodeCriteriaLenient_KeepsUnrecognized(t *testing.T) {
	raw := []RawCriterion{
		{Kind: KindMinTransactionCount, Params: json.RawMessage(`{"n":3}`)},
		{Kind: "gitcoin_passport", Description: "Hold a passport", Params: json.RawMessage(`{"score":20}`)},
		{Kind: KindMinValueUSD},
	}

	got := DecodeCriteriaLenient(raw)
	require.Len(t, got, 3)
	assert.Equal(t, MinTransactionCount{N: 3}, got[0])

	unknown, ok := got[1].(UnrecognizedCriterion)
	require.True(t, ok)
	assert.Equal(t, "Hold a passport", unknown.Describe())
	var unknownErr *UnknownCriterionError
	assert.ErrorAs(t, unknown.Err, &unknownErr)

	invalid, ok := got[2].(UnrecognizedCriterion)
	require.True(t, ok)
	assert.ErrorIs(t, invalid.Err, ErrInvalidCriterion)

	// Re-encoding returns the stored payload untouched.
	back, err := EncodeCriterion(unknown)
	require.NoError(t, err)
	assert.Equal(t, raw[1], back)
}
