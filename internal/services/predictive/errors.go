package predictive

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	// ErrDataShape means the input table cannot be analysed at all.
	ErrDataShape = errors.New("data shape error")
	// ErrConfiguration means the run parameters are invalid.
	ErrConfiguration = errors.New("configuration error")
)

// AnalysisError carries a fatal failure kind and a message for the operator.
type AnalysisError struct {
	Kind error
	Msg  string
}

func (e *AnalysisError) Error() string { return fmt.Sprintf("%v: %s", e.Kind, e.Msg) }

func (e *AnalysisError) Unwrap() error { return e.Kind }

func dataShapef(format string, a ...interface{}) error {
	return &AnalysisError{Kind: ErrDataShape, Msg: fmt.Sprintf(format, a...)}
}

func configf(format string, a ...interface{}) error {
	return &AnalysisError{Kind: ErrConfiguration, Msg: fmt.Sprintf(format, a...)}
}
