package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// timeLayout is the ISO-8601 second-precision format used for every
// timestamp column.
const timeLayout = "2006-01-02T15:04:05"

// Store wraps the SQLite database holding the goal log, rejections,
// security events, preferences and the goal queue.
type Store struct {
	DB *sql.DB
}

type GoalRecord struct {
	Timestamp string
	User      string
	Goal      string
	Result    string
}

type Rejection struct {
	Timestamp string
	User      string
	Goal      string
	Reason    string
}

func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS goal_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT,
			user TEXT,
			goal TEXT,
			result TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS rejections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT,
			user TEXT,
			goal TEXT,
			reason TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			timestamp TEXT,
			event TEXT,
			user TEXT,
			details TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS preferences (
			user TEXT,
			category TEXT,
			key TEXT,
			value TEXT,
			PRIMARY KEY (user, category, key)
		);`,
		`CREATE TABLE IF NOT EXISTS goal_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			goal TEXT,
			user TEXT,
			run_at TEXT,
			interval INTEGER
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, err
		}
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func now() string {
	return time.Now().Format(timeLayout)
}

// LogGoal records an executed goal with its result summary.
func (s *Store) LogGoal(goal, resultSummary, user string) error {
	_, err := s.DB.Exec(
		`INSERT INTO goal_log (timestamp, user, goal, result) VALUES (?, ?, ?, ?)`,
		now(), user, goal, resultSummary,
	)
	return err
}

// LogRejection records that a goal or step was rejected with the given reason.
func (s *Store) LogRejection(goal, reason, user string) error {
	_, err := s.DB.Exec(
		`INSERT INTO rejections (timestamp, user, goal, reason) VALUES (?, ?, ?, ?)`,
		now(), user, goal, reason,
	)
	return err
}

// LogEvent records a security-relevant event (first_run, voice, tamper).
func (s *Store) LogEvent(event, user, details string) error {
	_, err := s.DB.Exec(
		`INSERT INTO events (timestamp, event, user, details) VALUES (?, ?, ?, ?)`,
		now(), event, user, details,
	)
	return err
}

// RecentGoals returns the most recent goal records, newest first.
// An empty user returns records for every user.
func (s *Store) RecentGoals(limit int, user string) ([]GoalRecord, error) {
	var rows *sql.Rows
	var err error
	if user != "" {
		rows, err = s.DB.Query(
			`SELECT timestamp, user, goal, result FROM goal_log WHERE user = ? ORDER BY id DESC LIMIT ?`,
			user, limit,
		)
	} else {
		rows, err = s.DB.Query(
			`SELECT timestamp, user, goal, result FROM goal_log ORDER BY id DESC LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GoalRecord
	for rows.Next() {
		var r GoalRecord
		if err := rows.Scan(&r.Timestamp, &r.User, &r.Goal, &r.Result); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecentRejections returns the most recent rejection records, newest first.
func (s *Store) RecentRejections(limit int) ([]Rejection, error) {
	rows, err := s.DB.Query(
		`SELECT timestamp, user, goal, reason FROM rejections ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Rejection
	for rows.Next() {
		var r Rejection
		if err := rows.Scan(&r.Timestamp, &r.User, &r.Goal, &r.Reason); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListUsers returns distinct user identifiers seen in the goal log.
func (s *Store) ListUsers() ([]string, error) {
	rows, err := s.DB.Query(`SELECT DISTINCT user FROM goal_log`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		if u != "" {
			users = append(users, u)
		}
	}
	return users, rows.Err()
}

// SetPreference stores a per-(user, category, key) value, last write wins.
func (s *Store) SetPreference(user, category, key, value string) error {
	_, err := s.DB.Exec(
		`INSERT OR REPLACE INTO preferences (user, category, key, value) VALUES (?, ?, ?, ?)`,
		user, category, key, value,
	)
	return err
}

// GetPreference retrieves a stored preference value.
func (s *Store) GetPreference(user, category, key string) (string, bool) {
	var value string
	err := s.DB.QueryRow(
		`SELECT value FROM preferences WHERE user = ? AND category = ? AND key = ?`,
		user, category, key,
	).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}
