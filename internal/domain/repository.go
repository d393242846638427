package domain

import "time"

// ActivityCollector supplies foreground-app and idle-time observations.
// Implementation: platform probes plus gopsutil for process resolution.
type ActivityCollector interface {
	// Sample returns one observation. App is nil when the foreground
	// application cannot be determined; this is not an error.
	Sample() Sample
}

// SessionStore persists completed usage sessions.
type SessionStore interface {
	// InsertSession stores a closed session and returns its row ID.
	InsertSession(s Session) (int64, error)

	// SessionsInRange returns sessions whose start time falls in [start, end],
	// ordered by start time.
	SessionsInRange(start, end time.Time) ([]Session, error)

	// SessionTotals returns total recorded seconds per app ID for sessions
	// starting in [start, end].
	SessionTotals(start, end time.Time) (map[string]int64, error)
}

// ScheduleStore persists schedules. CRUD is driven by the CLI; the tracker
// only reads enabled schedules.
type ScheduleStore interface {
	// InsertSchedule stores a new schedule and returns its row ID.
	InsertSchedule(s Schedule) (int64, error)

	// UpdateSchedule rewrites an existing schedule by ID.
	UpdateSchedule(s Schedule) error

	// DeleteSchedule removes a schedule and its compliance logs.
	DeleteSchedule(id int64) error

	// ToggleSchedule flips the enabled flag.
	ToggleSchedule(id int64, enabled bool) error

	// AllSchedules returns every schedule.
	AllSchedules() ([]Schedule, error)

	// EnabledSchedules returns only enabled schedules.
	EnabledSchedules() ([]Schedule, error)
}

// ComplianceStore persists compliance evaluation logs.
type ComplianceStore interface {
	// InsertComplianceLog records one evaluation. currentApp may be empty.
	InsertComplianceLog(scheduleID int64, isCompliant bool, currentApp string) (int64, error)

	// ComplianceLogs returns the most recent logs for a schedule,
	// newest first.
	ComplianceLogs(scheduleID int64, limit int) ([]ComplianceLog, error)
}

// Notifier delivers user-facing alerts. Delivery is best-effort:
// implementations log failures and never return them.
type Notifier interface {
	Notify(title, body string)
}

// KeyProvider abstracts the source of the database encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
