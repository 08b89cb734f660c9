package store

import (
	"testing"
	"time"
)

func TestGoalQueue(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := s.AddQueuedGoal("past goal", "william", base.Add(-time.Hour), 0); err != nil {
		t.Fatalf("AddQueuedGoal failed: %v", err)
	}
	if err := s.AddQueuedGoal("future goal", "william", base.Add(time.Hour), 30); err != nil {
		t.Fatalf("AddQueuedGoal failed: %v", err)
	}

	size, err := s.QueueSize()
	if err != nil {
		t.Fatalf("QueueSize failed: %v", err)
	}
	if size != 2 {
		t.Errorf("QueueSize = %d, want 2", size)
	}

	due, err := s.DueGoals(base)
	if err != nil {
		t.Fatalf("DueGoals failed: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("got %d due goals, want 1", len(due))
	}
	if due[0].Goal != "past goal" || due[0].Interval != 0 {
		t.Errorf("due entry = %+v", due[0])
	}

	// Boundary: run_at equal to the pass time is due.
	due, err = s.DueGoals(base.Add(time.Hour))
	if err != nil {
		t.Fatalf("DueGoals failed: %v", err)
	}
	if len(due) != 2 {
		t.Errorf("got %d due goals at the boundary, want 2", len(due))
	}
}

func TestRescheduleAndDelete(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := s.AddQueuedGoal("repeating goal", "william", base, 30); err != nil {
		t.Fatal(err)
	}
	due, err := s.DueGoals(base)
	if err != nil || len(due) != 1 {
		t.Fatalf("DueGoals = %v, %v", due, err)
	}
	id := due[0].ID

	if err := s.RescheduleGoal(id, base.Add(30*time.Minute)); err != nil {
		t.Fatalf("RescheduleGoal failed: %v", err)
	}
	due, err = s.DueGoals(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Errorf("rescheduled goal still due: %+v", due)
	}

	due, err = s.DueGoals(base.Add(time.Hour))
	if err != nil || len(due) != 1 {
		t.Fatalf("DueGoals after interval = %v, %v", due, err)
	}

	if err := s.DeleteQueuedGoal(id); err != nil {
		t.Fatalf("DeleteQueuedGoal failed: %v", err)
	}
	size, err := s.QueueSize()
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Errorf("QueueSize = %d after delete, want 0", size)
	}
}
