package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/woakley/ghosthand/internal/observability"
	"github.com/woakley/ghosthand/internal/store"
)

// Messenger delivers scheduled-goal output to the owner (Telegram,
// Discord, etc.). Optional.
type Messenger interface {
	Send(chatID string, text string) error
}

// QueueStore is the slice of the store the scheduler needs.
type QueueStore interface {
	AddQueuedGoal(goal, user string, runAt time.Time, interval int) error
	DueGoals(at time.Time) ([]store.QueuedGoal, error)
	RescheduleGoal(id int64, next time.Time) error
	DeleteQueuedGoal(id int64) error
}

// Scheduler persists goals with a future run time and re-enters the
// goal pipeline when they fall due.
type Scheduler struct {
	Runner  *Runner
	Queue   QueueStore
	Gateway Messenger
	ChatID  string
	Logger  *observability.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewScheduler(runner *Runner, queue QueueStore, gateway Messenger, chatID string, logger *observability.Logger) *Scheduler {
	return &Scheduler{
		Runner:  runner,
		Queue:   queue,
		Gateway: gateway,
		ChatID:  chatID,
		Logger:  logger,
		now:     time.Now,
	}
}

// Enqueue stores a goal to run at runAt. A positive interval (minutes)
// makes it repeat indefinitely until removed.
func (s *Scheduler) Enqueue(goal, user string, runAt time.Time, interval int) error {
	return s.Queue.AddQueuedGoal(goal, user, runAt, interval)
}

// EnqueueRepeat stores a goal firing first after interval minutes and
// then every interval minutes thereafter.
func (s *Scheduler) EnqueueRepeat(goal, user string, interval int) error {
	return s.Enqueue(goal, user, s.now().Add(time.Duration(interval)*time.Minute), interval)
}

// RunDue executes every queued goal whose run time has arrived and
// returns the number processed. Entries are independent: one entry's
// failure never prevents the rest of the pass.
func (s *Scheduler) RunDue(ctx context.Context) int {
	due, err := s.Queue.DueGoals(s.now())
	if err != nil {
		s.Logger.Error("failed to query due goals: %v", err)
		return 0
	}

	for _, entry := range due {
		s.runEntry(ctx, entry)
	}
	return len(due)
}

func (s *Scheduler) runEntry(ctx context.Context, entry store.QueuedGoal) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("queued goal %d panicked: %v", entry.ID, r)
		}
	}()

	observability.SetStatus(observability.PhaseScheduled, entry.Goal)
	results := s.Runner.RunGoal(ctx, Goal{Text: entry.Goal, User: entry.User})

	// Interval entries are rescheduled from the time of this pass,
	// not from the original run_at.
	if entry.Interval > 0 {
		next := s.now().Add(time.Duration(entry.Interval) * time.Minute)
		if err := s.Queue.RescheduleGoal(entry.ID, next); err != nil {
			s.Logger.Error("failed to reschedule goal %d: %v", entry.ID, err)
		}
	} else {
		if err := s.Queue.DeleteQueuedGoal(entry.ID); err != nil {
			s.Logger.Error("failed to delete goal %d: %v", entry.ID, err)
		}
	}

	if s.Gateway != nil {
		summary := "no result"
		if len(results) > 0 {
			summary = fmt.Sprint(results[len(results)-1])
		}
		if err := s.Gateway.Send(s.ChatID, "⏰ Scheduled goal finished\n\n"+entry.Goal+"\n→ "+summary); err != nil {
			s.Logger.Warn("failed to notify gateway: %v", err)
		}
	}
}

// Start polls for due goals until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	log.Println("Goal scheduler started...")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}
