// Package daemon implements the tracker daemon: the periodic driver that
// wires sampling, sessionizing, compliance evaluation and persistence.
package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/timewarden/internal/domain"
	"github.com/eliteGoblin/timewarden/internal/schedule"
	"github.com/eliteGoblin/timewarden/internal/session"
)

// TrackerConfig holds tracker daemon configuration.
type TrackerConfig struct {
	PollInterval time.Duration // sampling cadence (default 1s)
}

// DefaultTrackerConfig returns default tracker configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		PollInterval: 1 * time.Second,
	}
}

// Tracker is the main tracking daemon. Per tick, strictly serially, it
// acquires a sample, advances the sessionizer, persists completed sessions,
// and evaluates every enabled schedule, logging and notifying on
// non-compliance. Collaborator failures are logged and never abort the
// loop; the next tick proceeds unconditionally.
type Tracker struct {
	config      TrackerConfig
	collector   domain.ActivityCollector
	sessionizer *session.Sessionizer
	engine      *schedule.Engine
	sessions    domain.SessionStore
	schedules   domain.ScheduleStore
	compliance  domain.ComplianceStore
	notifier    domain.Notifier
	logger      *zap.Logger
}

// NewTracker creates a tracker daemon.
func NewTracker(
	config TrackerConfig,
	collector domain.ActivityCollector,
	sessionizer *session.Sessionizer,
	engine *schedule.Engine,
	sessions domain.SessionStore,
	schedules domain.ScheduleStore,
	compliance domain.ComplianceStore,
	notifier domain.Notifier,
	logger *zap.Logger,
) *Tracker {
	return &Tracker{
		config:      config,
		collector:   collector,
		sessionizer: sessionizer,
		engine:      engine,
		sessions:    sessions,
		schedules:   schedules,
		compliance:  compliance,
		notifier:    notifier,
		logger:      logger,
	}
}

// Run starts the tracker loop. This blocks until context is canceled.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("tracker daemon started",
		zap.Duration("poll_interval", t.config.PollInterval))

	// First tick immediately, then on the ticker cadence.
	t.Tick()

	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker daemon stopping")
			return ctx.Err()
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick performs one sample-evaluate-persist cycle.
func (t *Tracker) Tick() {
	sample := t.collector.Sample()

	if t.sessionizer.Update(sample) {
		t.persistCompleted()
	}

	currentApp := ""
	if sample.App != nil {
		currentApp = sample.App.ProcessName
	}
	t.evaluateSchedules(currentApp)
}

// persistCompleted drains the pending-session queue into the store.
func (t *Tracker) persistCompleted() {
	for _, sess := range t.sessionizer.TakePendingSessions() {
		id, err := t.sessions.InsertSession(sess)
		if err != nil {
			t.logger.Warn("failed to persist session",
				zap.String("app", sess.AppID),
				zap.Error(err))
			continue
		}
		t.logger.Info("session recorded",
			zap.Int64("id", id),
			zap.String("app", sess.AppID),
			zap.Bool("idle", sess.IsIdle),
			zap.Int64("duration_seconds", sess.DurationSeconds))
	}
}

// evaluateSchedules runs the compliance engine over every enabled schedule.
func (t *Tracker) evaluateSchedules(currentApp string) {
	schedules, err := t.schedules.EnabledSchedules()
	if err != nil {
		t.logger.Warn("failed to load schedules", zap.Error(err))
		return
	}

	for _, sched := range schedules {
		shouldNotify, isCompliant := t.engine.Evaluate(sched, currentApp)

		if !isCompliant {
			if _, err := t.compliance.InsertComplianceLog(sched.ID, isCompliant, currentApp); err != nil {
				t.logger.Warn("failed to persist compliance log",
					zap.Int64("schedule_id", sched.ID),
					zap.Error(err))
			}
		}

		if shouldNotify {
			t.notifier.Notify(
				fmt.Sprintf("Schedule: %s", sched.Name),
				notificationBody(sched, currentApp))
		}
	}
}

func notificationBody(sched domain.Schedule, currentApp string) string {
	if currentApp == "" {
		return fmt.Sprintf("No tracked app in focus during %q (%s-%s).",
			sched.Name, sched.StartTime, sched.EndTime)
	}
	return fmt.Sprintf("You are using %s, expected one of: %v.",
		currentApp, sched.ExpectedApps)
}
