package orchestrator

import "time"

// Stage outcomes.
const (
	StageOK      = "ok"
	StageFailed  = "failed"
	StageSkipped = "skipped"
)

// Reasons reported on skipped stages.
const (
	ReasonOutsideWindow      = "outside_window"
	ReasonNotConfigured      = "not_configured"
	ReasonAlreadyRan         = "already_ran_today"
	ReasonNoEligibleProjects = "no_eligible_projects"
)

// Counts tallies the work done by a cycle. Each stage fills its own fields.
type Counts struct {
	Executed          int `json:"executed"`
	Succeeded         int `json:"succeeded"`
	Failed            int `json:"failed"`
	Created           int `json:"created"`
	ScheduleFailed    int `json:"schedule_failed"`
	Published         int `json:"published"`
	PublishFailed     int `json:"publish_failed"`
	PublishSkipped    int `json:"publish_skipped"`
	FeedsChecked      int `json:"feeds_checked"`
	FeedItemsAdded    int `json:"feed_items_added"`
	FeedErrors        int `json:"feed_errors"`
	MediaProcessed    int `json:"media_processed"`
	MediaFailed       int `json:"media_failed"`
	TopicsScheduled   int `json:"topics_scheduled"`
	EngagementUpdated int `json:"engagement_updated"`
	EngagementFailed  int `json:"engagement_failed"`
	Embedded          int `json:"embedded"`
	EmbedFailed       int `json:"embed_failed"`
	Duplicates        int `json:"duplicates"`
	ProjectsOptimized int `json:"projects_optimized"`
	OptimizeFailed    int `json:"optimize_failed"`
}

func (c *Counts) add(o Counts) {
	c.Executed += o.Executed
	c.Succeeded += o.Succeeded
	c.Failed += o.Failed
	c.Created += o.Created
	c.ScheduleFailed += o.ScheduleFailed
	c.Published += o.Published
	c.PublishFailed += o.PublishFailed
	c.PublishSkipped += o.PublishSkipped
	c.FeedsChecked += o.FeedsChecked
	c.FeedItemsAdded += o.FeedItemsAdded
	c.FeedErrors += o.FeedErrors
	c.MediaProcessed += o.MediaProcessed
	c.MediaFailed += o.MediaFailed
	c.TopicsScheduled += o.TopicsScheduled
	c.EngagementUpdated += o.EngagementUpdated
	c.EngagementFailed += o.EngagementFailed
	c.Embedded += o.Embedded
	c.EmbedFailed += o.EmbedFailed
	c.Duplicates += o.Duplicates
	c.ProjectsOptimized += o.ProjectsOptimized
	c.OptimizeFailed += o.OptimizeFailed
}

// StageResult reports one stage of a cycle. A failed stage keeps the counts
// it gathered before failing.
type StageResult struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Counts   Counts        `json:"-"`
}

// RunResult aggregates one orchestration cycle.
type RunResult struct {
	CycleID    string        `json:"cycle_id"`
	ProjectID  string        `json:"project_id,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Counts
	Stages []StageResult `json:"stages"`
}

// Degraded reports whether any stage failed.
func (r RunResult) Degraded() bool {
	for _, s := range r.Stages {
		if s.Status == StageFailed {
			return true
		}
	}
	return false
}

// FailedStages lists the names of failed stages in run order.
func (r RunResult) FailedStages() []string {
	var names []string
	for _, s := range r.Stages {
		if s.Status == StageFailed {
			names = append(names, s.Name)
		}
	}
	return names
}

// Stage returns the named stage result.
func (r RunResult) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}
