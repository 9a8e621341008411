package hydrology

import "fmt"

// Phase names the part of a step in which an HRU failed.
type Phase string

const (
	PhaseSubcatchment Phase = "subcatchment"
	PhaseReach        Phase = "reach"
)

// StepError reports the failure of one HRU during a step. A StepError
// aborts the whole step.
type StepError struct {
	Step  int
	HRU   string
	Phase Phase
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: %s %q: %v", e.Step, e.Phase, e.HRU, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
