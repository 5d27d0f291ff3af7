package stage

// Health is a handler's readiness as shown by `postpilot health` and
// GET /api/health. Detail says what the operator must fix.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func Healthy(name string) Health { return Health{Name: name, Ready: true} }

func Unhealthy(name, detail string) Health { return Health{Name: name, Detail: detail} }

// NotConfigured reports a task type with no handler wired in.
func NotConfigured(taskType string) Health {
	return Unhealthy(taskType, "handler not configured")
}
