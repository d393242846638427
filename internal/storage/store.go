// Package storage implements the persistence store on a SQLCipher
// encrypted SQLite database.
package storage

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/timewarden/internal/domain"
)

const dbFileName = "timewarden.db"

// Store persists sessions, schedules and compliance logs.
// It implements domain.SessionStore, domain.ScheduleStore and
// domain.ComplianceStore.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (or creates) the encrypted usage database in dataDir.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func Open(dataDir string, key []byte) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// Verify the key works before handing the store out.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path (for status output and tests).
func (s *Store) Path() string {
	return s.dbPath
}

// createTables creates the schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		app_id TEXT NOT NULL,
		app_name TEXT,
		start_time INTEGER NOT NULL,
		end_time INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		is_idle BOOLEAN DEFAULT FALSE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_time ON sessions(start_time, end_time);
	CREATE INDEX IF NOT EXISTS idx_sessions_app ON sessions(app_id);

	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		days TEXT NOT NULL,
		expected_apps TEXT NOT NULL,
		check_interval_secs INTEGER DEFAULT 300,
		grace_period_secs INTEGER DEFAULT 60,
		enabled BOOLEAN DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS compliance_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		schedule_id INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		is_compliant BOOLEAN NOT NULL,
		current_app TEXT,
		FOREIGN KEY (schedule_id) REFERENCES schedules(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- domain.SessionStore implementation ---

// InsertSession stores a closed session and returns its row ID.
func (s *Store) InsertSession(sess domain.Session) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO sessions (app_id, app_name, start_time, end_time, duration_seconds, is_idle)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.AppID, nullString(sess.AppName),
		sess.StartTime.Unix(), sess.EndTime.Unix(),
		sess.DurationSeconds, sess.IsIdle,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	return res.LastInsertId()
}

// SessionsInRange returns sessions starting in [start, end], ordered by
// start time.
func (s *Store) SessionsInRange(start, end time.Time) ([]domain.Session, error) {
	rows, err := s.db.Query(`
		SELECT id, app_id, app_name, start_time, end_time, duration_seconds, is_idle
		FROM sessions
		WHERE start_time >= ? AND start_time <= ?
		ORDER BY start_time`,
		start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var (
			sess           domain.Session
			appName        sql.NullString
			startTS, endTS int64
		)
		if err := rows.Scan(&sess.ID, &sess.AppID, &appName, &startTS, &endTS,
			&sess.DurationSeconds, &sess.IsIdle); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.AppName = appName.String
		sess.StartTime = time.Unix(startTS, 0).UTC()
		sess.EndTime = time.Unix(endTS, 0).UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionTotals returns total recorded seconds per app ID for sessions
// starting in [start, end].
func (s *Store) SessionTotals(start, end time.Time) (map[string]int64, error) {
	rows, err := s.db.Query(`
		SELECT app_id, SUM(duration_seconds)
		FROM sessions
		WHERE start_time >= ? AND start_time <= ?
		GROUP BY app_id`,
		start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query session totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var appID string
		var secs int64
		if err := rows.Scan(&appID, &secs); err != nil {
			return nil, fmt.Errorf("failed to scan session total: %w", err)
		}
		totals[appID] = secs
	}
	return totals, rows.Err()
}

// --- domain.ScheduleStore implementation ---

// InsertSchedule stores a new schedule and returns its row ID.
func (s *Store) InsertSchedule(sched domain.Schedule) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO schedules (name, start_time, end_time, days, expected_apps, check_interval_secs, grace_period_secs, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.Name, sched.StartTime.String(), sched.EndTime.String(),
		encodeDays(sched.Days), encodeApps(sched.ExpectedApps),
		sched.CheckIntervalSeconds, sched.GracePeriodSeconds, sched.Enabled,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert schedule: %w", err)
	}
	return res.LastInsertId()
}

// UpdateSchedule rewrites an existing schedule by ID.
func (s *Store) UpdateSchedule(sched domain.Schedule) error {
	_, err := s.db.Exec(`
		UPDATE schedules
		SET name = ?, start_time = ?, end_time = ?, days = ?, expected_apps = ?,
		    check_interval_secs = ?, grace_period_secs = ?, enabled = ?
		WHERE id = ?`,
		sched.Name, sched.StartTime.String(), sched.EndTime.String(),
		encodeDays(sched.Days), encodeApps(sched.ExpectedApps),
		sched.CheckIntervalSeconds, sched.GracePeriodSeconds, sched.Enabled,
		sched.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	return nil
}

// DeleteSchedule removes a schedule and its compliance logs.
func (s *Store) DeleteSchedule(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM schedules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM compliance_logs WHERE schedule_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete compliance logs: %w", err)
	}
	return nil
}

// ToggleSchedule flips the enabled flag.
func (s *Store) ToggleSchedule(id int64, enabled bool) error {
	_, err := s.db.Exec(`UPDATE schedules SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to toggle schedule: %w", err)
	}
	return nil
}

// AllSchedules returns every schedule.
func (s *Store) AllSchedules() ([]domain.Schedule, error) {
	return s.querySchedules(`
		SELECT id, name, start_time, end_time, days, expected_apps, check_interval_secs, grace_period_secs, enabled
		FROM schedules ORDER BY id`)
}

// EnabledSchedules returns only enabled schedules.
func (s *Store) EnabledSchedules() ([]domain.Schedule, error) {
	return s.querySchedules(`
		SELECT id, name, start_time, end_time, days, expected_apps, check_interval_secs, grace_period_secs, enabled
		FROM schedules WHERE enabled ORDER BY id`)
}

func (s *Store) querySchedules(query string) ([]domain.Schedule, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		var (
			sched            domain.Schedule
			startStr, endStr string
			daysStr, appsStr string
		)
		if err := rows.Scan(&sched.ID, &sched.Name, &startStr, &endStr, &daysStr, &appsStr,
			&sched.CheckIntervalSeconds, &sched.GracePeriodSeconds, &sched.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		// Malformed times fall back to a 09:00-17:00 window rather than
		// dropping the row.
		if sched.StartTime, err = domain.ParseTimeOfDay(startStr); err != nil {
			sched.StartTime = domain.TimeOfDay{Hour: 9}
		}
		if sched.EndTime, err = domain.ParseTimeOfDay(endStr); err != nil {
			sched.EndTime = domain.TimeOfDay{Hour: 17}
		}
		sched.Days = decodeDays(daysStr)
		sched.ExpectedApps = decodeApps(appsStr)
		schedules = append(schedules, sched)
	}
	return schedules, rows.Err()
}

// --- domain.ComplianceStore implementation ---

// InsertComplianceLog records one evaluation.
func (s *Store) InsertComplianceLog(scheduleID int64, isCompliant bool, currentApp string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO compliance_logs (schedule_id, timestamp, is_compliant, current_app)
		VALUES (?, ?, ?, ?)`,
		scheduleID, time.Now().Unix(), isCompliant, nullString(currentApp),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert compliance log: %w", err)
	}
	return res.LastInsertId()
}

// ComplianceLogs returns the most recent logs for a schedule, newest first.
func (s *Store) ComplianceLogs(scheduleID int64, limit int) ([]domain.ComplianceLog, error) {
	rows, err := s.db.Query(`
		SELECT id, schedule_id, timestamp, is_compliant, current_app
		FROM compliance_logs
		WHERE schedule_id = ?
		ORDER BY timestamp DESC LIMIT ?`,
		scheduleID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query compliance logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ComplianceLog
	for rows.Next() {
		var (
			log        domain.ComplianceLog
			ts         int64
			currentApp sql.NullString
		)
		if err := rows.Scan(&log.ID, &log.ScheduleID, &ts, &log.IsCompliant, &currentApp); err != nil {
			return nil, fmt.Errorf("failed to scan compliance log: %w", err)
		}
		log.Timestamp = time.Unix(ts, 0).UTC()
		log.CurrentApp = currentApp.String
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// --- schedule encoding ---

// encodeDays serializes the day set as comma-joined Monday=0..Sunday=6
// ordinals, e.g. "0,2,4" for Mon/Wed/Fri.
func encodeDays(days []domain.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(int(d)))
	}
	return strings.Join(parts, ",")
}

// decodeDays parses the encoded day set, dropping unparseable entries.
func decodeDays(s string) []domain.Weekday {
	var days []domain.Weekday
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			continue
		}
		days = append(days, domain.Weekday(n))
	}
	return days
}

// encodeApps serializes the expected-app list comma-joined. App name
// patterns contain no commas, so the encoding is lossless.
func encodeApps(apps []string) string {
	return strings.Join(apps, ",")
}

func decodeApps(s string) []string {
	var apps []string
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			apps = append(apps, part)
		}
	}
	return apps
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Interface assertions.
var (
	_ domain.SessionStore    = (*Store)(nil)
	_ domain.ScheduleStore   = (*Store)(nil)
	_ domain.ComplianceStore = (*Store)(nil)
)
