package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/woakley/ghosthand/internal/governance"
	"github.com/woakley/ghosthand/internal/observability"
	"github.com/woakley/ghosthand/internal/skills"
	"github.com/woakley/ghosthand/internal/tools"
)

// Narrator speaks status updates when a goal runs with the speak flag.
// Voice synthesis is an external collaborator; a nil Narrator is valid.
type Narrator interface {
	Speak(text string)
}

// RejectionSink records step-level rejections, best-effort.
type RejectionSink interface {
	LogRejection(goal, reason, user string) error
}

// ExecOptions carries the per-goal execution flags.
type ExecOptions struct {
	User   string
	DryRun bool
	Speak  bool
}

// Executor runs a plan step by step. A step rejected by policy or
// skipped by dry-run records a nil result and execution continues; a
// capability that cannot be resolved or that fails is fatal to the
// remaining plan.
type Executor struct {
	Registry   *tools.Registry
	Skills     *skills.Registry
	Policy     governance.PolicyEngine
	Rejections RejectionSink
	Logger     *observability.Logger
	Narrator   Narrator
}

func NewExecutor(registry *tools.Registry, sk *skills.Registry, policy governance.PolicyEngine, rejections RejectionSink, logger *observability.Logger, narrator Narrator) *Executor {
	return &Executor{
		Registry:   registry,
		Skills:     sk,
		Policy:     policy,
		Rejections: rejections,
		Logger:     logger,
		Narrator:   narrator,
	}
}

// Execute returns one entry per executed step, in order. The returned
// slice is always a prefix of the plan: full length unless a step's
// capability faulted, in which case it is truncated at that step.
func (e *Executor) Execute(ctx context.Context, plan Plan, opts ExecOptions) []any {
	results := make([]any, 0, len(plan))

	for idx, step := range plan {
		if opts.Speak && e.Narrator != nil {
			e.Narrator.Speak(fmt.Sprintf("Step %d: %s %s", idx, step.Capability, step.Action))
		}

		// Per-step policy check; a denial skips the step, not the plan.
		if e.Policy != nil {
			verdict, err := e.Policy.Evaluate(ctx, governance.Request{
				Capability: step.Capability,
				Action:     step.Action,
				User:       opts.User,
			})
			if err != nil {
				e.Logger.Warn("policy evaluation failed for step %d: %v", idx, err)
			}
			e.Logger.LogPolicy(opts.User, step.Capability, step.Action, string(verdict.Effect), verdict.Reason)
			if verdict.Effect == governance.EffectDeny {
				if e.Rejections != nil {
					_ = e.Rejections.LogRejection(step.Capability+"."+step.Action, verdict.Reason, opts.User)
				}
				results = append(results, nil)
				continue
			}
		}

		params := e.resolveParams(step, results, opts.User)

		e.Logger.LogStep(opts.User, idx, step.Capability, step.Action, params)

		if opts.DryRun {
			results = append(results, nil)
			continue
		}

		result, err := e.invoke(ctx, step, params)
		if err != nil {
			e.Logger.Error("step %d (%s.%s) failed: %v", idx, step.Capability, step.Action, err)
			break
		}

		results = append(results, result)
		if opts.Speak && e.Narrator != nil {
			e.Narrator.Speak(fmt.Sprintf("Step %d completed", idx))
		}
	}

	return results
}

// resolveParams copies the step's params, substituting back-references
// with the referenced prior result. A reference outside the results so
// far is non-fatal: the step proceeds with the placeholder string.
func (e *Executor) resolveParams(step Step, results []any, user string) map[string]any {
	params := make(map[string]any, len(step.Params)+1)
	for key, val := range step.Params {
		if ref, ok := val.(StepRef); ok {
			if ref.Index >= 0 && ref.Index < len(results) {
				params[key] = results[ref.Index]
			} else {
				e.Logger.Warn("failed to resolve parameter %s: step %d has no result", ref, ref.Index)
				params[key] = ref.String()
			}
			continue
		}
		params[key] = val
	}
	if _, ok := params["user"]; !ok {
		params["user"] = user
	}
	return params
}

// invoke routes the step to the skill registry or the built-in
// capability namespace and runs it.
func (e *Executor) invoke(ctx context.Context, step Step, params map[string]any) (any, error) {
	if name, ok := strings.CutPrefix(step.Capability, SkillCapabilityPrefix); ok {
		if e.Skills == nil {
			return nil, fmt.Errorf("no skills loaded")
		}
		skill := e.Skills.Get(name)
		if skill == nil {
			return nil, fmt.Errorf("unknown skill %q", name)
		}
		return skill.Execute(ctx, params)
	}

	if e.Registry == nil {
		return nil, fmt.Errorf("no capability registry")
	}
	capability := e.Registry.Get(step.Capability)
	if capability == nil {
		return nil, fmt.Errorf("unknown capability %q", step.Capability)
	}
	return capability.Execute(ctx, step.Action, params)
}
