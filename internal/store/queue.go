package store

import "time"

// QueuedGoal is one persisted row of the goal queue. Interval is in
// minutes; zero means the goal fires once and is removed.
type QueuedGoal struct {
	ID       int64
	Goal     string
	User     string
	RunAt    time.Time
	Interval int
}

// AddQueuedGoal inserts a goal scheduled for runAt.
func (s *Store) AddQueuedGoal(goal, user string, runAt time.Time, interval int) error {
	_, err := s.DB.Exec(
		`INSERT INTO goal_queue (goal, user, run_at, interval) VALUES (?, ?, ?, ?)`,
		goal, user, runAt.Format(timeLayout), interval,
	)
	return err
}

// DueGoals returns every queued goal whose run_at is at or before now.
func (s *Store) DueGoals(at time.Time) ([]QueuedGoal, error) {
	rows, err := s.DB.Query(
		`SELECT id, goal, user, run_at, interval FROM goal_queue WHERE run_at <= ?`,
		at.Format(timeLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []QueuedGoal
	for rows.Next() {
		var g QueuedGoal
		var runAt string
		if err := rows.Scan(&g.ID, &g.Goal, &g.User, &runAt, &g.Interval); err != nil {
			return nil, err
		}
		g.RunAt, _ = time.Parse(timeLayout, runAt)
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// RescheduleGoal advances a repeating goal's run_at.
func (s *Store) RescheduleGoal(id int64, next time.Time) error {
	_, err := s.DB.Exec(
		`UPDATE goal_queue SET run_at = ? WHERE id = ?`,
		next.Format(timeLayout), id,
	)
	return err
}

// DeleteQueuedGoal removes a queue row after a one-shot firing.
func (s *Store) DeleteQueuedGoal(id int64) error {
	_, err := s.DB.Exec(`DELETE FROM goal_queue WHERE id = ?`, id)
	return err
}

// QueueSize returns the number of pending queue rows.
func (s *Store) QueueSize() (int, error) {
	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM goal_queue`).Scan(&n)
	return n, err
}
