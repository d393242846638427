// Package session converts periodic activity samples into discrete,
// non-overlapping usage sessions.
package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/timewarden/internal/domain"
)

// DefaultIdleThresholdSeconds is 5 minutes of inactivity before the user
// counts as idle. The threshold is inclusive.
const DefaultIdleThresholdSeconds uint64 = 300

// Config holds sessionizer configuration.
type Config struct {
	IdleThresholdSeconds uint64
}

// DefaultConfig returns the default sessionizer configuration.
func DefaultConfig() Config {
	return Config{IdleThresholdSeconds: DefaultIdleThresholdSeconds}
}

// Phase is the discriminant of the tracking state.
type Phase int

const (
	// PhaseInactive means no session is open.
	PhaseInactive Phase = iota
	// PhaseActive means an app session is open.
	PhaseActive
	// PhaseIdle means an idle session is open.
	PhaseIdle
)

// String returns the phase name for logs and status output.
func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseIdle:
		return "idle"
	default:
		return "inactive"
	}
}

// State is the sessionizer's current tracking state. AppID, AppName and
// StartTime are meaningful only for the phases that carry them: Active has
// all three, Idle has StartTime only, Inactive has none.
type State struct {
	Phase     Phase
	AppID     string
	AppName   string
	StartTime time.Time
}

// Sessionizer maintains exactly one tracking state and a queue of completed
// sessions awaiting persistence. It has a single logical writer: the caller
// must invoke Update and TakePendingSessions serially.
type Sessionizer struct {
	config  Config
	state   State
	pending []domain.Session
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a sessionizer in the Inactive state.
func New(config Config, logger *zap.Logger) *Sessionizer {
	return NewWithClock(config, time.Now, logger)
}

// NewWithClock creates a sessionizer with an injected clock for tests.
func NewWithClock(config Config, now func() time.Time, logger *zap.Logger) *Sessionizer {
	if config.IdleThresholdSeconds == 0 {
		config.IdleThresholdSeconds = DefaultIdleThresholdSeconds
	}
	return &Sessionizer{
		config: config,
		state:  State{Phase: PhaseInactive},
		now:    now,
		logger: logger,
	}
}

// Update consumes one sample and advances the state machine.
// Returns true iff one or more sessions were completed by this call.
func (s *Sessionizer) Update(sample domain.Sample) bool {
	now := s.now()
	isIdle := sample.IdleSeconds >= s.config.IdleThresholdSeconds

	switch s.state.Phase {
	case PhaseInactive:
		if isIdle {
			s.transition(State{Phase: PhaseIdle, StartTime: now})
			return false
		}
		if sample.App != nil {
			s.startActive(sample.App, now)
		}
		return false

	case PhaseActive:
		if !isIdle && sample.App != nil && sample.App.ProcessName == s.state.AppID {
			// Same app, still active: nothing to do.
			return false
		}
		s.closeActive(now)
		switch {
		case isIdle:
			s.transition(State{Phase: PhaseIdle, StartTime: now})
		case sample.App != nil:
			s.startActive(sample.App, now)
		default:
			s.transition(State{Phase: PhaseInactive})
		}
		return true

	case PhaseIdle:
		if isIdle {
			return false
		}
		s.closeIdle(now)
		if sample.App != nil {
			s.startActive(sample.App, now)
		} else {
			s.transition(State{Phase: PhaseInactive})
		}
		return true
	}

	return false
}

// TakePendingSessions drains and clears the completed-session queue.
// A second call before new completions returns an empty slice.
func (s *Sessionizer) TakePendingSessions() []domain.Session {
	pending := s.pending
	s.pending = nil
	return pending
}

// State returns the current tracking state, for status display.
func (s *Sessionizer) State() State {
	return s.state
}

func (s *Sessionizer) startActive(app *domain.AppInfo, now time.Time) {
	s.transition(State{
		Phase:     PhaseActive,
		AppID:     app.ProcessName,
		AppName:   app.WindowTitle,
		StartTime: now,
	})
}

func (s *Sessionizer) closeActive(now time.Time) {
	s.push(domain.Session{
		AppID:           s.state.AppID,
		AppName:         s.state.AppName,
		StartTime:       s.state.StartTime,
		EndTime:         now,
		DurationSeconds: clampedSeconds(s.state.StartTime, now),
		IsIdle:          false,
	})
}

func (s *Sessionizer) closeIdle(now time.Time) {
	s.push(domain.Session{
		AppID:           domain.IdleAppID,
		AppName:         domain.IdleAppID,
		StartTime:       s.state.StartTime,
		EndTime:         now,
		DurationSeconds: clampedSeconds(s.state.StartTime, now),
		IsIdle:          true,
	})
}

func (s *Sessionizer) push(sess domain.Session) {
	s.pending = append(s.pending, sess)
	s.logger.Debug("session completed",
		zap.String("app", sess.AppID),
		zap.Bool("idle", sess.IsIdle),
		zap.Int64("duration_seconds", sess.DurationSeconds))
}

func (s *Sessionizer) transition(next State) {
	s.logger.Debug("sessionizer transition",
		zap.String("from", s.state.Phase.String()),
		zap.String("to", next.Phase.String()),
		zap.String("app", next.AppID))
	s.state = next
}

// clampedSeconds returns end-start in whole seconds, floored at zero.
// The wall clock can move backward mid-session; a closed session must still
// satisfy duration = end - start >= 0, so negative spans collapse to zero.
func clampedSeconds(start, end time.Time) int64 {
	secs := int64(end.Sub(start).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
