package agent

import (
	"context"
	"testing"
	"time"

	"github.com/woakley/ghosthand/internal/store"
)

// memQueue is an in-memory QueueStore.
type memQueue struct {
	nextID  int64
	entries map[int64]store.QueuedGoal
}

func newMemQueue() *memQueue {
	return &memQueue{entries: make(map[int64]store.QueuedGoal)}
}

func (q *memQueue) AddQueuedGoal(goal, user string, runAt time.Time, interval int) error {
	q.nextID++
	q.entries[q.nextID] = store.QueuedGoal{ID: q.nextID, Goal: goal, User: user, RunAt: runAt, Interval: interval}
	return nil
}

func (q *memQueue) DueGoals(at time.Time) ([]store.QueuedGoal, error) {
	var due []store.QueuedGoal
	for _, e := range q.entries {
		if !e.RunAt.After(at) {
			due = append(due, e)
		}
	}
	return due, nil
}

func (q *memQueue) RescheduleGoal(id int64, next time.Time) error {
	e := q.entries[id]
	e.RunAt = next
	q.entries[id] = e
	return nil
}

func (q *memQueue) DeleteQueuedGoal(id int64) error {
	delete(q.entries, id)
	return nil
}

type memGateway struct {
	sent []string
}

func (g *memGateway) Send(chatID, text string) error {
	g.sent = append(g.sent, text)
	return nil
}

func newTestScheduler(t *testing.T, gw Messenger) (*Scheduler, *memQueue) {
	t.Helper()
	core := &fakeCapability{name: "core", results: map[string]any{"print": "done"}}
	runner := newTestRunner(t, &recordingRejections{}, &fakeHistory{}, core)
	queue := newMemQueue()
	s := NewScheduler(runner, queue, gw, "42", runner.Logger)
	return s, queue
}

func TestRunDue_OneShotRunsOnce(t *testing.T) {
	s, queue := newTestScheduler(t, nil)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.Enqueue("remind me about the meeting", "william", base.Add(-time.Minute), 0); err != nil {
		t.Fatal(err)
	}

	if n := s.RunDue(context.Background()); n != 1 {
		t.Fatalf("first pass ran %d goals, want 1", n)
	}
	if n := s.RunDue(context.Background()); n != 0 {
		t.Errorf("second pass ran %d goals, want 0", n)
	}
	if len(queue.entries) != 0 {
		t.Errorf("one-shot entry survived: %v", queue.entries)
	}
}

func TestRunDue_FutureGoalWaits(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.Enqueue("check the post", "william", base.Add(time.Hour), 0); err != nil {
		t.Fatal(err)
	}

	if n := s.RunDue(context.Background()); n != 0 {
		t.Errorf("ran %d goals before the run time, want 0", n)
	}
}

func TestRunDue_IntervalReschedulesFromPassTime(t *testing.T) {
	s, queue := newTestScheduler(t, nil)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// The entry fell due 45 minutes ago with a 30-minute interval.
	now := base
	s.now = func() time.Time { return now }
	if err := s.Enqueue("water the plants", "william", base.Add(-45*time.Minute), 30); err != nil {
		t.Fatal(err)
	}

	if n := s.RunDue(context.Background()); n != 1 {
		t.Fatalf("ran %d goals, want 1", n)
	}

	// Rescheduled relative to the pass, not the stale run_at, so it is
	// not immediately due again.
	entry := queue.entries[1]
	want := base.Add(30 * time.Minute)
	if !entry.RunAt.Equal(want) {
		t.Errorf("next run at %v, want %v", entry.RunAt, want)
	}
	if n := s.RunDue(context.Background()); n != 0 {
		t.Errorf("interval goal re-ran in the same pass window")
	}

	// Advance past the interval and it fires again.
	now = base.Add(31 * time.Minute)
	if n := s.RunDue(context.Background()); n != 1 {
		t.Errorf("ran %d goals after the interval elapsed, want 1", n)
	}
}

func TestRunDue_NotifiesGateway(t *testing.T) {
	gw := &memGateway{}
	s, _ := newTestScheduler(t, gw)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.Enqueue("anything", "william", base, 0); err != nil {
		t.Fatal(err)
	}
	s.RunDue(context.Background())

	if len(gw.sent) != 1 {
		t.Fatalf("gateway received %d messages, want 1", len(gw.sent))
	}
}

func TestEnqueueRepeat_FirstFireAfterInterval(t *testing.T) {
	s, queue := newTestScheduler(t, nil)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.EnqueueRepeat("rotate the logs", "william", 15); err != nil {
		t.Fatal(err)
	}

	entry := queue.entries[1]
	if !entry.RunAt.Equal(base.Add(15 * time.Minute)) {
		t.Errorf("first run at %v, want %v", entry.RunAt, base.Add(15*time.Minute))
	}
	if entry.Interval != 15 {
		t.Errorf("interval = %d, want 15", entry.Interval)
	}
}
