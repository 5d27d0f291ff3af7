// Package publishing moves approved content to the social posting API and
// keeps engagement metrics for published posts fresh.
package publishing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/viadorer/orchestrator-sub001/internal/activity"
	"github.com/viadorer/orchestrator-sub001/internal/content"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/projects"
	"github.com/viadorer/orchestrator-sub001/internal/services"
	"github.com/viadorer/orchestrator-sub001/internal/services/publisher"
)

// Publisher is the posting API surface used here.
type Publisher interface {
	Configured() bool
	Publish(ctx context.Context, payload publisher.Payload) publisher.Result
	FetchEngagement(ctx context.Context, externalID string) (publisher.Engagement, error)
}

// ContentStore is the slice of the content store used here.
type ContentStore interface {
	GetItem(ctx context.Context, id string) (*content.Item, error)
	ListApproved(ctx context.Context, projectID string) ([]*content.Item, error)
	ListForEngagement(ctx context.Context, cutoff time.Time, limit int) ([]*content.Item, error)
	MarkPublished(ctx context.Context, id, externalID string) error
	MarkPublishFailed(ctx context.Context, id, message string) error
	UpdateEngagement(ctx context.Context, id string, engagement content.Engagement) error
}

// SweepResult tallies one auto-publish sweep.
type SweepResult struct {
	Published int `json:"published"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// EngagementResult tallies one engagement refresh.
type EngagementResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Service runs publish sweeps and engagement refreshes.
type Service struct {
	publisher Publisher
	content   ContentStore
	activity  *activity.BestEffort
	minAge    time.Duration
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// Options tunes engagement refresh.
type Options struct {
	// MinAge is how old a post must be before its metrics are pulled.
	MinAge    time.Duration
	BatchSize int
	Now       func() time.Time
}

// New constructs the service. log may be nil.
func New(pub Publisher, store ContentStore, log *activity.BestEffort, opts Options, logger *slog.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MinAge <= 0 {
		opts.MinAge = 24 * time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Service{
		publisher: pub,
		content:   store,
		activity:  log,
		minAge:    opts.MinAge,
		batchSize: opts.BatchSize,
		now:       opts.Now,
		logger:    logging.NewComponentLogger(logger, "publishing"),
	}
}

// Sweep publishes approved items of auto-publish projects whose score meets
// the project's threshold. Items below threshold, and every item when the
// publisher lacks credentials, count as skipped. A project that fails does
// not stop the others; the returned result holds the work done and the
// error joins every project failure.
func (s *Service) Sweep(ctx context.Context, list []*projects.Project) (SweepResult, error) {
	var (
		result SweepResult
		errs   []error
	)
	for _, project := range list {
		if !project.Active || !project.Config.Enabled || !project.Config.AutoPublish {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.sweepProject(ctx, project, &result); err != nil {
			logging.WarnWithContext(s.logger, "project publish sweep failed", "publish_sweep_failed",
				logging.Project(project.ID),
				logging.String(logging.FieldImpact, "remaining items wait for the next cycle"),
				logging.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return result, errors.Join(errs...)
}

func (s *Service) sweepProject(ctx context.Context, project *projects.Project, result *SweepResult) error {
	items, err := s.content.ListApproved(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("list approved content for %s: %w", project.ID, err)
	}
	for _, item := range items {
		if item.Score < project.Config.AutoPublishThreshold || !s.publisher.Configured() {
			result.Skipped++
			continue
		}
		ok, err := s.publish(ctx, item)
		if ok {
			result.Published++
		} else {
			result.Failed++
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// PublishItem publishes one approved item by id, regardless of score.
func (s *Service) PublishItem(ctx context.Context, id string) (publisher.Result, error) {
	item, err := s.content.GetItem(ctx, id)
	if err != nil {
		return publisher.Result{}, fmt.Errorf("load content item: %w", err)
	}
	if item == nil {
		return publisher.Result{}, services.Wrap(services.ErrValidation, "publishing", "publish item", fmt.Sprintf("content item %s does not exist", id), nil)
	}
	switch item.Status {
	case content.StatusPublished:
		return publisher.Result{OK: true, ExternalID: item.ExternalID, Status: "already_published"}, nil
	case content.StatusApproved, content.StatusPublishFailed:
	default:
		return publisher.Result{}, services.Wrap(services.ErrValidation, "publishing", "publish item", fmt.Sprintf("content item %s is %s, not approved", id, item.Status), nil)
	}
	if !s.publisher.Configured() {
		return publisher.Result{}, services.Wrap(services.ErrConfiguration, "publishing", "publish item", "publisher credentials missing", nil)
	}
	res := s.publisher.Publish(ctx, payloadFor(item))
	if err := s.record(ctx, item, res); err != nil {
		return res, err
	}
	if !res.OK {
		return res, services.Wrap(services.ErrExternalService, "publishing", "publish item", res.Err, nil)
	}
	return res, nil
}

func (s *Service) publish(ctx context.Context, item *content.Item) (bool, error) {
	res := s.publisher.Publish(ctx, payloadFor(item))
	return res.OK, s.record(ctx, item, res)
}

func (s *Service) record(ctx context.Context, item *content.Item, res publisher.Result) error {
	if res.OK {
		if err := s.content.MarkPublished(ctx, item.ID, res.ExternalID); err != nil {
			return fmt.Errorf("mark content published: %w", err)
		}
		s.activity.Record(ctx, item.ProjectID, activity.ActionContentPublished, map[string]any{
			"content_id":  item.ID,
			"external_id": res.ExternalID,
			"platform":    item.Platform,
		})
		return nil
	}
	if err := s.content.MarkPublishFailed(ctx, item.ID, res.Err); err != nil {
		return fmt.Errorf("mark content publish failed: %w", err)
	}
	logging.WarnWithContext(s.logger, "publish failed", "publish_failed",
		logging.Project(item.ProjectID),
		logging.String("content_id", item.ID),
		logging.String("publisher_error", res.Err),
		logging.String(logging.FieldErrorHint, "check publisher credentials and connected accounts"),
		logging.String(logging.FieldImpact, "post stays unpublished until re-queued"),
	)
	s.activity.Record(ctx, item.ProjectID, activity.ActionPublishFailed, map[string]any{
		"content_id": item.ID,
		"error":      res.Err,
	})
	return nil
}

// RefreshEngagement pulls metrics for published posts older than the
// configured minimum age, at most limit posts (the batch size when limit is
// not positive).
func (s *Service) RefreshEngagement(ctx context.Context, limit int) (EngagementResult, error) {
	var result EngagementResult
	if !s.publisher.Configured() {
		return result, services.Wrap(services.ErrConfiguration, "publishing", "refresh engagement", "publisher credentials missing", nil)
	}
	if limit <= 0 {
		limit = s.batchSize
	}
	items, err := s.content.ListForEngagement(ctx, s.now().Add(-s.minAge), limit)
	if err != nil {
		return result, fmt.Errorf("list posts for engagement: %w", err)
	}
	for _, item := range items {
		metrics, err := s.publisher.FetchEngagement(ctx, item.ExternalID)
		if err != nil {
			result.Failed++
			s.logger.Debug("engagement fetch failed",
				logging.String("content_id", item.ID),
				logging.Error(err),
			)
			continue
		}
		if err := s.content.UpdateEngagement(ctx, item.ID, content.Engagement(metrics)); err != nil {
			return result, fmt.Errorf("store engagement: %w", err)
		}
		result.Updated++
	}
	return result, nil
}

func payloadFor(item *content.Item) publisher.Payload {
	return publisher.Payload{
		ProjectID: item.ProjectID,
		Platform:  item.Platform,
		Text:      item.Body,
		MediaURL:  item.MediaURL,
		Hashtags:  item.Hashtags,
	}
}
