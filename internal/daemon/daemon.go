package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"github.com/viadorer/orchestrator-sub001/internal/api"
	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/logging"
	"github.com/viadorer/orchestrator-sub001/internal/metrics"
	"github.com/viadorer/orchestrator-sub001/internal/notifications"
)

// Daemon runs scheduled cycles and the API server, and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	svc      *api.Service
	metrics  *metrics.Metrics
	notifier notifications.Service
	logger   *slog.Logger

	lockPath string
	lock     *flock.Flock

	cron    *cron.Cron
	entryID cron.EntryID
	server  *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon. m and notifier may be nil.
func New(cfg *config.Config, svc *api.Service, m *metrics.Metrics, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("daemon requires config and api service")
	}
	if _, err := cron.ParseStandard(cfg.Orchestrator.CycleSchedule); err != nil {
		return nil, fmt.Errorf("cycle schedule: %w", err)
	}
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	lockPath := cfg.DaemonLockPath()
	return &Daemon{
		cfg:      cfg,
		svc:      svc,
		metrics:  m,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, schedules cycles and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another postpilot daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	cronLog := cronLogger{logger: d.logger}
	d.cron = cron.New(
		cron.WithLocation(d.cfg.Location()),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	d.entryID, err = d.cron.AddFunc(d.cfg.Orchestrator.CycleSchedule, d.runScheduledCycle)
	if err != nil {
		d.abortStart()
		return fmt.Errorf("schedule cycles: %w", err)
	}

	d.server, err = newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.abortStart()
		return err
	}
	if err := d.server.start(d.ctx); err != nil {
		d.abortStart()
		return err
	}

	d.cron.Start()
	d.running.Store(true)
	d.logger.Info("postpilot daemon started",
		logging.String("lock", d.lockPath),
		logging.String("schedule", d.cfg.Orchestrator.CycleSchedule),
		logging.String("timezone", d.cfg.Location().String()),
	)
	if d.cfg.Orchestrator.RunOnStart {
		go d.runScheduledCycle()
	}
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
	d.cron = nil
	d.server = nil
}

// Stop waits for a running cycle to finish, stops the API server and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cron != nil {
		<-d.cron.Stop().Done()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("postpilot daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Addr returns the API listener address, or "" when the server is disabled.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

func (d *Daemon) runScheduledCycle() {
	ctx := d.ctx
	if ctx == nil || ctx.Err() != nil {
		return
	}
	result, err := d.svc.RunCycle(ctx, "")
	switch {
	case errors.Is(err, api.ErrCycleInProgress):
		d.logger.Info("scheduled cycle skipped",
			logging.Args(logging.DecisionAttrs("cycle_start", "skipped", "cycle lock held by another process")...)...)
	case err != nil:
		logging.ErrorWithContext(d.logger, "scheduled cycle failed", "cycle_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database access and the daemon log"),
		)
	default:
		d.logger.Debug("scheduled cycle finished",
			logging.String(logging.FieldCorrelationID, result.CycleID),
			logging.Duration("duration", result.Duration),
		)
	}
}

// NextCycle reports the next scheduled cycle time.
func (d *Daemon) NextCycle() time.Time {
	if d.cron == nil {
		return time.Time{}
	}
	return d.cron.Entry(d.entryID).Next
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (api.Status, error) {
	health, err := d.svc.Health(ctx)
	if err != nil {
		return api.Status{}, err
	}
	status := api.Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		DatabasePath:  d.cfg.DatabasePath(),
		LockFilePath:  d.lockPath,
		Timezone:      d.cfg.Location().String(),
		CycleSchedule: d.cfg.Orchestrator.CycleSchedule,
		Tasks:         health.Tasks,
		Handlers:      health.Handlers,
		LastCycle:     d.svc.LastCycle(),
	}
	if next := d.NextCycle(); !next.IsZero() {
		status.NextCycle = next.UTC().Format(time.RFC3339)
	}
	return status, nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// cronLogger adapts slog to the cron scheduler's logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	args := append([]any{logging.Error(err)}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
