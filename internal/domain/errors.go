package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCriterion is returned when a stored criterion payload cannot be decoded.
var ErrInvalidCriterion = errors.New("invalid criterion")

// UnknownCriterionError reports a criterion tag the evaluator does not handle.
// It is a data/configuration error, never treated as "not met".
type UnknownCriterionError struct {
	Kind CriterionKind
}

func (e *UnknownCriterionError) Error() string {
	if e.Kind == "" {
		return "unknown criterion: missing kind"
	}
	return fmt.Sprintf("unknown criterion kind %q", string(e.Kind))
}

// ProjectFailure records a project that could not be scored.
// Other projects of the same batch are unaffected.
type ProjectFailure struct {
	ProjectID string
	Err       error
}

func (f ProjectFailure) Error() string {
	return fmt.Sprintf("project %s: %v", f.ProjectID, f.Err)
}

func (f ProjectFailure) Unwrap() error {
	return f.Err
}

type projectFailureJSON struct {
	ProjectID string `json:"project_id"`
	Error     string `json:"error"`
}

// MarshalJSON flattens the error to its message.
func (f ProjectFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(projectFailureJSON{ProjectID: f.ProjectID, Error: msg})
}

// UnmarshalJSON restores the failure with an opaque error.
// The concrete error type does not survive a round trip.
func (f *ProjectFailure) UnmarshalJSON(data []byte) error {
	var raw projectFailureJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.ProjectID = raw.ProjectID
	f.Err = nil
	if raw.Error != "" {
		f.Err = errors.New(raw.Error)
	}
	return nil
}

// Data kinds a chain fetch can degrade on.
const (
	DataKindTransactions = "transactions"
	DataKindNFTs         = "nfts"
	DataKindProbe        = "probe"
)

// PartialDataWarning reports a chain whose data could not be fetched.
// The chain contributes empty lists; the rest of the result stands.
type PartialDataWarning struct {
	Chain   ChainID `json:"chain_id"`
	Kind    string  `json:"kind"`
	Message string  `json:"message"`
}

func (w PartialDataWarning) Error() string {
	return fmt.Sprintf("partial data: %s %s: %s", w.Chain, w.Kind, w.Message)
}
