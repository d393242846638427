// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// IdleAppID is the sentinel app identifier recorded for idle sessions.
// Idle periods are app-agnostic: whatever was foreground before the user
// went idle is not carried into the idle session.
const IdleAppID = "Idle"

// AppInfo identifies the foreground application.
// ProcessName is the session/compliance key; the rest is display metadata.
type AppInfo struct {
	ProcessName string
	WindowTitle string // optional
	BundleID    string // optional, macOS only
}

// Sample is one periodic observation from the activity collector.
// App is nil when no foreground application could be determined.
type Sample struct {
	App         *AppInfo
	IdleSeconds uint64
}

// Session is a closed, immutable record of continuous attention to one
// application (or to idleness). ID is 0 until the session is persisted.
type Session struct {
	ID              int64
	AppID           string
	AppName         string // optional display name
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
	IsIdle          bool
}

// ComplianceLog records one non-compliant schedule evaluation.
type ComplianceLog struct {
	ID          int64
	ScheduleID  int64
	Timestamp   time.Time
	IsCompliant bool
	CurrentApp  string // optional, empty when no foreground app
}

// Weekday is a day of the week with stable Monday=0..Sunday=6 numbering
// (time.Weekday counts from Sunday, which does not survive persistence).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// String returns the short English name (Mon..Sun).
func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// FromTimeWeekday converts time.Weekday (Sunday=0) to Weekday (Monday=0).
func FromTimeWeekday(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ParseWeekday parses a short day name ("Mon".."Sun", case-insensitive).
func ParseWeekday(s string) (Weekday, error) {
	for i, name := range weekdayNames {
		if strings.EqualFold(s, name) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// TimeOfDay is a wall-clock time with minute precision, e.g. 09:30.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// String formats as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// SecondsOfDay returns the offset from midnight in seconds.
func (t TimeOfDay) SecondsOfDay() int {
	return t.Hour*3600 + t.Minute*60
}

// Default schedule timings, applied when a schedule is created without
// explicit values.
const (
	DefaultCheckIntervalSeconds uint32 = 300
	DefaultGracePeriodSeconds   uint32 = 60
)

// Schedule is a recurring time window with an expected set of applications.
// ID is 0 until persisted.
type Schedule struct {
	ID                   int64
	Name                 string
	StartTime            TimeOfDay
	EndTime              TimeOfDay
	Days                 []Weekday
	ExpectedApps         []string
	CheckIntervalSeconds uint32
	GracePeriodSeconds   uint32
	Enabled              bool
}

// HasDay reports whether d is in the schedule's day set.
func (s *Schedule) HasDay(d Weekday) bool {
	for _, day := range s.Days {
		if day == d {
			return true
		}
	}
	return false
}
