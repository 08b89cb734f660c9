package agent

import (
	"context"
	"fmt"

	"github.com/woakley/ghosthand/internal/governance"
	"github.com/woakley/ghosthand/internal/observability"
)

// HistoryStore records completed goals, best-effort.
type HistoryStore interface {
	LogGoal(goal, resultSummary, user string) error
}

// Indexer refreshes the file index before a goal runs so file lookups
// see recent files. Optional.
type Indexer interface {
	BuildIndex()
}

// Runner is the goal-running entry point shared by the CLI, the HTTP
// bridge and the scheduler: gate, plan, execute, summarize, persist.
type Runner struct {
	Gate     *governance.Gate
	Planner  *Planner
	Executor *Executor
	History  HistoryStore
	Index    Indexer
	Logger   *observability.Logger
	Narrator Narrator
}

func NewRunner(gate *governance.Gate, planner *Planner, executor *Executor, history HistoryStore, index Indexer, logger *observability.Logger, narrator Narrator) *Runner {
	return &Runner{
		Gate:     gate,
		Planner:  planner,
		Executor: executor,
		History:  history,
		Index:    index,
		Logger:   logger,
		Narrator: narrator,
	}
}

// RunGoal executes a goal end to end and returns the ordered step
// results. A gate rejection returns an empty slice without error; the
// planner is never invoked for a rejected goal.
func (r *Runner) RunGoal(ctx context.Context, g Goal) []any {
	r.Logger.LogGoal(g.User, g.Text)
	observability.SetStatus(observability.PhasePlanning, g.Text)
	defer observability.SetStatus(observability.PhaseIdle, "")

	if g.Speak && r.Narrator != nil {
		r.Narrator.Speak(fmt.Sprintf("Running goal for %s", g.User))
	}

	if ok, _ := r.Gate.CanExecute(g.Text, g.User); !ok {
		return []any{}
	}

	if r.Index != nil {
		r.Index.BuildIndex()
	}

	plan := r.Planner.GeneratePlan(ctx, g.Text, g.User)
	r.Logger.LogPlan(g.User, g.Text, plan)

	observability.SetStatus(observability.PhaseExecuting, g.Text)
	results := r.Executor.Execute(ctx, plan, ExecOptions{
		User:   g.User,
		DryRun: g.DryRun,
		Speak:  g.Speak,
	})

	r.record(g.Text, results, g.User)

	if g.Speak && r.Narrator != nil {
		r.Narrator.Speak("Goal complete")
	}
	return results
}

// RunPlanDirect executes an externally supplied JSON plan. A plan that
// does not parse yields an empty result, logged but not raised.
func (r *Runner) RunPlanDirect(ctx context.Context, planText, user string, dryRun bool) []any {
	if ok, _ := r.Gate.CanExecute(planText, user); !ok {
		return []any{}
	}

	plan, err := ParsePlan(planText)
	if err != nil {
		r.Logger.Error("failed to parse plan: %v", err)
		return []any{}
	}

	observability.SetStatus(observability.PhaseExecuting, "direct plan")
	defer observability.SetStatus(observability.PhaseIdle, "")

	results := r.Executor.Execute(ctx, plan, ExecOptions{User: user, DryRun: dryRun})
	r.record("direct:"+planText, results, user)
	return results
}

// record persists the goal outcome; persistence failures are logged
// and swallowed so orchestration never depends on the store.
func (r *Runner) record(goal string, results []any, user string) {
	summary := "no result"
	if len(results) > 0 {
		summary = fmt.Sprint(results[len(results)-1])
	}
	if r.History != nil {
		if err := r.History.LogGoal(goal, summary, user); err != nil {
			r.Logger.Error("failed to log goal: %v", err)
		}
	}
}
