package queue

import (
	"errors"
	"fmt"

	"github.com/viadorer/orchestrator-sub001/internal/services"
)

var (
	errProjectRequired = fmt.Errorf("%w: project id is required", services.ErrValidation)
	errTypeRequired    = fmt.Errorf("%w: task type is required", services.ErrValidation)
	errInvalidPriority = fmt.Errorf("%w: invalid priority", services.ErrValidation)
	errInvalidParams   = fmt.Errorf("%w: params must be valid JSON", services.ErrValidation)
)

// TransitionError reports a guarded status change that did not apply because
// the task was missing or not in the expected state. No row is modified.
type TransitionError struct {
	TaskID   string
	Expected Status
	Target   Status
	Actual   Status
}

func (e *TransitionError) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("task %s: cannot move to %s: task not found", e.TaskID, e.Target)
	}
	return fmt.Sprintf("task %s: cannot move to %s: status is %s, expected %s", e.TaskID, e.Target, e.Actual, e.Expected)
}

// Unwrap exposes the inconsistency marker, plus ErrNotFound for missing rows.
func (e *TransitionError) Unwrap() []error {
	if e.Actual == "" {
		return []error{services.ErrInconsistent, services.ErrNotFound}
	}
	return []error{services.ErrInconsistent}
}

// IsTransitionError reports whether err is a rejected guarded transition.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
