// Package schedule evaluates foreground-app observations against
// user-defined schedules, with grace-period and rate-limit logic.
package schedule

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/timewarden/internal/domain"
)

// NotificationRateLimit is the minimum gap between alerts for one schedule.
// Fixed at 5 minutes, independent of the schedule's check interval.
const NotificationRateLimit = 5 * time.Minute

// scheduleState tracks per-schedule runtime state for rate limiting and
// grace periods. Zero time values mean "unset". Interval math relies on the
// monotonic reading carried by time.Time, so wall-clock adjustments do not
// disturb it.
type scheduleState struct {
	mu                      sync.Mutex
	lastCheck               time.Time
	lastNotification        time.Time
	graceStarted            time.Time
	consecutiveNonCompliant uint32
}

// Engine evaluates schedules against the current foreground app.
//
// Per-schedule state is created lazily on first evaluation and lives for the
// process lifetime. The state map supports concurrent evaluators: the map
// lock covers only get-or-create, then the entry's own lock covers the
// read-modify-write, so unrelated schedules never serialize on each other.
type Engine struct {
	mu     sync.Mutex
	states map[int64]*scheduleState

	monotonic func() time.Time // interval/grace/rate-limit arithmetic
	wall      func() time.Time // day-of-week / time-of-day window test
	logger    *zap.Logger
}

// New creates an engine using the system clocks.
func New(logger *zap.Logger) *Engine {
	return NewWithClocks(time.Now, time.Now, logger)
}

// NewWithClocks creates an engine with injected clocks for tests.
// monotonic feeds interval arithmetic, wall feeds the window test.
func NewWithClocks(monotonic, wall func() time.Time, logger *zap.Logger) *Engine {
	return &Engine{
		states:    make(map[int64]*scheduleState),
		monotonic: monotonic,
		wall:      wall,
		logger:    logger,
	}
}

// Evaluate checks one schedule against the current foreground app name and
// returns (shouldNotify, isCompliant). It never fails: every input, including
// an unsaved schedule with ID 0, produces a defined result.
func (e *Engine) Evaluate(sched domain.Schedule, currentApp string) (bool, bool) {
	if !sched.Enabled {
		return false, true
	}
	if !e.IsWithinSchedule(sched) {
		return false, true
	}

	st := e.stateFor(sched.ID)
	st.mu.Lock()
	defer st.mu.Unlock()

	now := e.monotonic()

	// Not time to check yet. Deliberately leaves grace and notification
	// state untouched, matching the check-interval throttle semantics.
	if !st.lastCheck.IsZero() && now.Sub(st.lastCheck) < secondsDuration(sched.CheckIntervalSeconds) {
		return false, true
	}
	st.lastCheck = now

	if isCompliant(sched, currentApp) {
		st.graceStarted = time.Time{}
		st.consecutiveNonCompliant = 0
		return false, true
	}

	// Non-compliant: the grace period starts on the first detection and is
	// not restarted while non-compliance persists.
	if st.graceStarted.IsZero() {
		st.graceStarted = now
	}

	shouldNotify := now.Sub(st.graceStarted) >= secondsDuration(sched.GracePeriodSeconds) &&
		(st.lastNotification.IsZero() || now.Sub(st.lastNotification) >= NotificationRateLimit)

	if shouldNotify {
		st.lastNotification = now
		st.consecutiveNonCompliant++
		e.logger.Debug("schedule notification due",
			zap.Int64("schedule_id", sched.ID),
			zap.String("schedule", sched.Name),
			zap.String("current_app", currentApp),
			zap.Uint32("consecutive", st.consecutiveNonCompliant))
	}

	return shouldNotify, false
}

// IsWithinSchedule reports whether the wall clock is inside the schedule's
// active window: today's weekday is in the day set and the time of day falls
// between start and end (inclusive). A start later than the end denotes an
// overnight window, e.g. 22:00-06:00.
func (e *Engine) IsWithinSchedule(sched domain.Schedule) bool {
	now := e.wall()
	if !sched.HasDay(domain.FromTimeWeekday(now.Weekday())) {
		return false
	}

	nowSecs := now.Hour()*3600 + now.Minute()*60 + now.Second()
	start := sched.StartTime.SecondsOfDay()
	end := sched.EndTime.SecondsOfDay()

	if start <= end {
		return nowSecs >= start && nowSecs <= end
	}
	return nowSecs >= start || nowSecs <= end
}

// isCompliant reports whether currentApp satisfies the schedule's
// expectations. An empty expected-apps list accepts any app; otherwise the
// current app name must contain one of the entries, case-insensitively.
func isCompliant(sched domain.Schedule, currentApp string) bool {
	if len(sched.ExpectedApps) == 0 {
		return true
	}
	currentLower := strings.ToLower(currentApp)
	for _, expected := range sched.ExpectedApps {
		if strings.Contains(currentLower, strings.ToLower(expected)) {
			return true
		}
	}
	return false
}

// stateFor returns the runtime state for a schedule ID, creating it on first
// use. Entries are never deleted while the process runs.
func (e *Engine) stateFor(id int64) *scheduleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[id]
	if !ok {
		st = &scheduleState{}
		e.states[id] = st
	}
	return st
}

func secondsDuration(secs uint32) time.Duration {
	return time.Duration(secs) * time.Second
}
