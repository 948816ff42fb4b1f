// Package criteria evaluates project eligibility rules against an activity profile.
package criteria

import (
	"airdrop-scout/internal/domain"
)

// Evaluator evaluates criteria. Stateless and safe for concurrent use.
type Evaluator struct{}

// NewEvaluator creates a new criteria evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate reports whether activity satisfies c.
// Returns *domain.UnknownCriterionError for variants without a comparison,
// never a silent false.
func (e *Evaluator) Evaluate(c domain.Criterion, a *domain.UserActivity) (bool, error) {
	if a == nil {
		a = domain.NewUserActivity("")
	}

	switch v := c.(type) {
	case domain.MinTransactionCount:
		return a.TotalTransactionCount >= v.N, nil
	case domain.ChainCountAtLeast:
		return a.ChainCount() >= v.N, nil
	case domain.ContractInteraction:
		return a.HasContract(v.Address), nil
	case domain.HoldsNFT:
		return a.HoldsNFT(v.Contract), nil
	case domain.MinValueUSD:
		return a.TotalValueUSD >= v.Value, nil
	case domain.DateRange:
		return v.Start <= a.LastActivityUnix && a.LastActivityUnix <= v.End, nil
	case domain.ProtocolUsed:
		return a.TouchedProtocol(v.Protocol), nil
	case domain.ActiveOnChain:
		return a.UsedChain(v.Chain), nil
	case domain.UnrecognizedCriterion:
		if v.Err == nil {
			return false, &domain.UnknownCriterionError{Kind: v.Raw.Kind}
		}
		return false, v.Err
	default:
		var kind domain.CriterionKind
		if c != nil {
			kind = c.Kind()
		}
		return false, &domain.UnknownCriterionError{Kind: kind}
	}
}

// Explain evaluates c and pairs the outcome with its description.
func (e *Evaluator) Explain(c domain.Criterion, a *domain.UserActivity) (domain.CriterionResult, error) {
	met, err := e.Evaluate(c, a)
	if err != nil {
		return domain.CriterionResult{}, err
	}
	return domain.CriterionResult{
		Description: c.Describe(),
		Met:         met,
	}, nil
}
