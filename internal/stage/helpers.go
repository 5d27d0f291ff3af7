package stage

import (
	"github.com/viadorer/orchestrator-sub001/internal/services"
)

// InvalidParams wraps a params decode failure as a validation error that
// names the task type, so stored failure messages point at the bad payload.
func InvalidParams(taskType string, err error) error {
	return services.Wrap(
		services.ErrValidation, taskType, "decode params",
		"Task params missing or invalid; recreate the task", err)
}
