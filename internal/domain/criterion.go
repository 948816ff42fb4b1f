package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// CriterionKind tags a criterion variant. Stored alongside project criteria.
type CriterionKind string

const (
	KindMinTransactionCount CriterionKind = "min_transaction_count"
	KindChainCountAtLeast   CriterionKind = "chain_count_at_least"
	KindContractInteraction CriterionKind = "contract_interaction"
	KindHoldsNFT            CriterionKind = "holds_nft"
	KindMinValueUSD         CriterionKind = "min_value_usd"
	KindDateRange           CriterionKind = "date_range"
	KindProtocolUsed        CriterionKind = "protocol_used"
	KindActiveOnChain       CriterionKind = "active_on_chain"
)

// Criterion is one eligibility rule of a project.
// The set of variants is closed: only types in this package implement it.
type Criterion interface {
	Kind() CriterionKind
	// Describe returns the human-readable rule, used in missing-criteria lists.
	Describe() string
	isCriterion()
}

// MinTransactionCount is met when the total transaction count is at least N.
type MinTransactionCount struct {
	N           int
	Description string
}

// ChainCountAtLeast is met when at least N distinct chains were used.
type ChainCountAtLeast struct {
	N           int
	Description string
}

// ContractInteraction is met when the address called Address.
type ContractInteraction struct {
	Address     string
	Description string
}

// HoldsNFT is met when the address holds any token of Contract.
type HoldsNFT struct {
	Contract    string
	Description string
}

// MinValueUSD is met when the total transacted value is at least Value.
type MinValueUSD struct {
	Value       float64
	Description string
}

// DateRange is met when the last activity falls within [Start, End] (unix seconds).
type DateRange struct {
	Start       int64
	End         int64
	Description string
}

// ProtocolUsed is met when the named protocol was detected in the activity.
type ProtocolUsed struct {
	Protocol    string
	Description string
}

// ActiveOnChain is met when the address has activity on Chain.
type ActiveOnChain struct {
	Chain       ChainID
	Description string
}

func (MinTransactionCount) Kind() CriterionKind { return KindMinTransactionCount }
func (ChainCountAtLeast) Kind() CriterionKind   { return KindChainCountAtLeast }
func (ContractInteraction) Kind() CriterionKind { return KindContractInteraction }
func (HoldsNFT) Kind() CriterionKind            { return KindHoldsNFT }
func (MinValueUSD) Kind() CriterionKind         { return KindMinValueUSD }
func (DateRange) Kind() CriterionKind           { return KindDateRange }
func (ProtocolUsed) Kind() CriterionKind        { return KindProtocolUsed }
func (ActiveOnChain) Kind() CriterionKind       { return KindActiveOnChain }

func (MinTransactionCount) isCriterion()   {}
func (ChainCountAtLeast) isCriterion()     {}
func (ContractInteraction) isCriterion()   {}
func (HoldsNFT) isCriterion()              {}
func (MinValueUSD) isCriterion()           {}
func (DateRange) isCriterion()             {}
func (ProtocolUsed) isCriterion()          {}
func (ActiveOnChain) isCriterion()         {}
func (UnrecognizedCriterion) isCriterion() {}

func (c MinTransactionCount) Describe() string {
	return orDefault(c.Description, fmt.Sprintf("At least %d transactions", c.N))
}

func (c ChainCountAtLeast) Describe() string {
	return orDefault(c.Description, fmt.Sprintf("Active on at least %d chains", c.N))
}

func (c ContractInteraction) Describe() string {
	return orDefault(c.Description, fmt.Sprintf("Interact with contract %s", c.Address))
}

func (c HoldsNFT) Describe() string {
	return orDefault(c.Description, fmt.Sprintf("Hold an NFT from %s", c.Contract))
}

func (c MinValueUSD) Describe() string {
	return orDefault(c.Description, fmt.Sprintf("Transact at least $%.2f", c.Value))
}

func (c DateRange) Describe() string {
	return orDefault(c.Description, fmt.Sprintf("Active between %s and %s",
		time.Unix(c.Start, 0).UTC().Format("2006-01-02"),
		time.Unix(c.End, 0).UTC().Format("2006-01-02")))
}

func (c ProtocolUsed) Describe() string {
	return orDefault(c.Description, fmt.Sprintf("Use %s", c.Protocol))
}

func (c ActiveOnChain) Describe() string {
	return orDefault(c.Description, fmt.Sprintf("Be active on %s", c.Chain))
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

// CriterionResult is the outcome of evaluating one criterion.
type CriterionResult struct {
	Description string `json:"description"`
	Met         bool   `json:"met"`
}

// RawCriterion is the storage/wire shape of a criterion: a tag plus a
// kind-specific JSON payload.
type RawCriterion struct {
	Kind        CriterionKind   `json:"kind"`
	Description string          `json:"description,omitempty"`
	Params      json.RawMessage `json:"params"`
}

type countParams struct {
	N int `json:"n"`
}

type addressParams struct {
	Address string `json:"address"`
}

type valueParams struct {
	Value float64 `json:"value"`
}

type rangeParams struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type protocolParams struct {
	Protocol string `json:"protocol"`
}

type chainParams struct {
	Chain ChainID `json:"chain"`
}

// DecodeCriterion converts a RawCriterion into its typed variant.
// Returns *UnknownCriterionError for unrecognized kinds.
func DecodeCriterion(raw RawCriterion) (Criterion, error) {
	desc := raw.Description
	switch raw.Kind {
	case KindMinTransactionCount:
		var p countParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return MinTransactionCount{N: p.N, Description: desc}, nil
	case KindChainCountAtLeast:
		var p countParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return ChainCountAtLeast{N: p.N, Description: desc}, nil
	case KindContractInteraction:
		var p addressParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return ContractInteraction{Address: p.Address, Description: desc}, nil
	case KindHoldsNFT:
		var p addressParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return HoldsNFT{Contract: p.Address, Description: desc}, nil
	case KindMinValueUSD:
		var p valueParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return MinValueUSD{Value: p.Value, Description: desc}, nil
	case KindDateRange:
		var p rangeParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return DateRange{Start: p.Start, End: p.End, Description: desc}, nil
	case KindProtocolUsed:
		var p protocolParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return ProtocolUsed{Protocol: p.Protocol, Description: desc}, nil
	case KindActiveOnChain:
		var p chainParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return ActiveOnChain{Chain: p.Chain, Description: desc}, nil
	default:
		return nil, &UnknownCriterionError{Kind: raw.Kind}
	}
}

// UnrecognizedCriterion holds a stored criterion that failed to decode.
// Stores load it so the owning project fails at scoring time instead of
// failing the whole listing; evaluating it returns Err.
type UnrecognizedCriterion struct {
	Raw RawCriterion
	Err error
}

// Kind returns the stored tag.
func (c UnrecognizedCriterion) Kind() CriterionKind { return c.Raw.Kind }

func (c UnrecognizedCriterion) Describe() string {
	return orDefault(c.Raw.Description, fmt.Sprintf("Unrecognized criterion %q", string(c.Raw.Kind)))
}

// DecodeCriterionLenient decodes raw, wrapping any failure in UnrecognizedCriterion.
func DecodeCriterionLenient(raw RawCriterion) Criterion {
	c, err := DecodeCriterion(raw)
	if err != nil {
		return UnrecognizedCriterion{Raw: raw, Err: err}
	}
	return c
}

// DecodeCriteriaLenient decodes criteria preserving declaration order.
func DecodeCriteriaLenient(raw []RawCriterion) []Criterion {
	out := make([]Criterion, 0, len(raw))
	for _, r := range raw {
		out = append(out, DecodeCriterionLenient(r))
	}
	return out
}

// EncodeCriterion converts a typed criterion into its storage shape.
func EncodeCriterion(c Criterion) (RawCriterion, error) {
	var params interface{}
	var desc string
	switch v := c.(type) {
	case MinTransactionCount:
		params, desc = countParams{N: v.N}, v.Description
	case ChainCountAtLeast:
		params, desc = countParams{N: v.N}, v.Description
	case ContractInteraction:
		params, desc = addressParams{Address: v.Address}, v.Description
	case HoldsNFT:
		params, desc = addressParams{Address: v.Contract}, v.Description
	case MinValueUSD:
		params, desc = valueParams{Value: v.Value}, v.Description
	case DateRange:
		params, desc = rangeParams{Start: v.Start, End: v.End}, v.Description
	case ProtocolUsed:
		params, desc = protocolParams{Protocol: v.Protocol}, v.Description
	case ActiveOnChain:
		params, desc = chainParams{Chain: v.Chain}, v.Description
	case UnrecognizedCriterion:
		return v.Raw, nil
	default:
		return RawCriterion{}, &UnknownCriterionError{Kind: kindOf(c)}
	}

	data, err := json.Marshal(params)
	if err != nil {
		return RawCriterion{}, fmt.Errorf("marshal %s params: %w", c.Kind(), err)
	}
	return RawCriterion{Kind: c.Kind(), Description: desc, Params: data}, nil
}

func decodeParams(raw RawCriterion, dst interface{}) error {
	if len(raw.Params) == 0 {
		return fmt.Errorf("%w: %s criterion has no params", ErrInvalidCriterion, raw.Kind)
	}
	if err := json.Unmarshal(raw.Params, dst); err != nil {
		return fmt.Errorf("%w: %s params: %v", ErrInvalidCriterion, raw.Kind, err)
	}
	return nil
}

func kindOf(c Criterion) CriterionKind {
	if c == nil {
		return ""
	}
	return c.Kind()
}
