package propagation

import "fmt"

// NumericalFailure reports an integration that failed or produced non-finite values.
// No partial trajectory accompanies it.
type NumericalFailure struct {
	Reason string
	Sample int // first offending sample, -1 when not applicable
	Err    error
}

func (e *NumericalFailure) Error() string {
	msg := "numerical failure: " + e.Reason
	if e.Sample >= 0 {
		msg += fmt.Sprintf(" at sample %d", e.Sample)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NumericalFailure) Unwrap() error {
	return e.Err
}
