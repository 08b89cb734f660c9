package agent

import (
	"context"
	"strings"

	"github.com/woakley/ghosthand/internal/observability"
	"github.com/woakley/ghosthand/internal/skills"
	"github.com/woakley/ghosthand/internal/store"
)

// TeacherRecipient is the address used when a goal mentions the
// user's teacher explicitly.
const TeacherRecipient = "teacher@school.uk"

// Memory is the slice of the store the planner consults: similar past
// goals (context only) and stored preferences (planning defaults).
type Memory interface {
	SimilarGoals(goal, user string) ([]store.GoalRecord, error)
	GetPreference(user, category, key string) (string, bool)
}

// Fallback produces a plan for goals no skill or trigger claimed.
// Implementations are opaque and may be non-deterministic.
type Fallback interface {
	Plan(ctx context.Context, goal string) (Plan, error)
}

// Planner turns a goal into an ordered plan. Skills pre-empt the
// built-in keyword triggers; triggers are independent and evaluated in
// a fixed order (search, download, browser, screenshot pipeline) so
// combined plans are deterministic.
type Planner struct {
	Skills   *skills.Registry
	Memory   Memory
	Fallback Fallback
	Logger   *observability.Logger
}

func NewPlanner(sk *skills.Registry, memory Memory, fallback Fallback, logger *observability.Logger) *Planner {
	return &Planner{Skills: sk, Memory: memory, Fallback: fallback, Logger: logger}
}

func (p *Planner) GeneratePlan(ctx context.Context, goal, user string) Plan {
	lowered := strings.ToLower(goal)

	// Similar past goals are surfaced for context only; they never
	// alter the plan.
	if p.Memory != nil {
		if history, err := p.Memory.SimilarGoals(goal, user); err == nil && len(history) > 0 {
			for _, h := range history {
				p.Logger.Log(observability.Event{
					Type: observability.EventTypePlan,
					User: user,
					Goal: goal,
					Data: map[string]string{
						"similar_goal": h.Goal,
						"timestamp":    h.Timestamp,
						"result":       h.Result,
					},
				})
			}
		}
	}

	// First affirmative skill wins outright.
	if p.Skills != nil {
		for _, s := range p.Skills.All() {
			if s.CanHandle(goal) {
				p.Logger.LogSkill(s.Name(), "claimed goal")
				plan := Plan{{
					Capability: SkillCapabilityPrefix + s.Name(),
					Params:     map[string]any{"goal": goal},
				}}
				return p.normalize(plan, user)
			}
		}
	}

	var plan Plan

	if query, ok := searchQuery(goal); ok {
		plan = append(plan, Step{
			Capability: "web",
			Action:     "search",
			Params:     map[string]any{"query": query},
		})
	}

	if strings.Contains(lowered, "download") {
		url := firstURL(goal)
		if url == "" {
			url = "<url>"
		}
		plan = append(plan, Step{
			Capability: "web",
			Action:     "download",
			Params:     map[string]any{"url": url},
		})
		if strings.Contains(lowered, "extract") || strings.Contains(lowered, "unzip") {
			plan = append(plan, Step{
				Capability: "file",
				Action:     "extract",
				Params: map[string]any{
					"path": StepRef{Index: len(plan) - 1},
					"dest": "extracted",
				},
			})
		}
	}

	if strings.Contains(lowered, "navigate to") ||
		(strings.Contains(lowered, "open ") && (strings.Contains(lowered, "http") || strings.Contains(lowered, "website"))) {
		url := firstURL(goal)
		if url == "" {
			url = "<url>"
		}
		plan = append(plan, Step{
			Capability: "browser",
			Action:     "navigate",
			Params:     map[string]any{"url": url},
		})
	}

	if strings.Contains(lowered, "screenshot") {
		plan = append(plan, Step{
			Capability: "file",
			Action:     "find_recent_screenshot",
			Params:     map[string]any{},
		})
		// Sub-steps thread a reference to the previous appended step,
		// so dropping one keeps the chain intact.
		last := len(plan) - 1

		if strings.Contains(lowered, "text") || strings.Contains(lowered, "ocr") {
			plan = append(plan, Step{
				Capability: "ocr",
				Action:     "extract_text",
				Params:     map[string]any{"image_path": StepRef{Index: last}},
			})
			last = len(plan) - 1
		}

		if strings.Contains(lowered, "redact") {
			plan = append(plan, Step{
				Capability: "file",
				Action:     "redact_names",
				Params:     map[string]any{"image_path": StepRef{Index: last}},
			})
			last = len(plan) - 1
		}

		if strings.Contains(lowered, "email") || strings.Contains(lowered, "mail") {
			plan = append(plan, Step{
				Capability: "comms",
				Action:     "send_email",
				Params: map[string]any{
					"to":         p.resolveRecipient(lowered, user),
					"subject":    "Latest screenshot",
					"attachment": StepRef{Index: last},
				},
			})
		}
	}

	if len(plan) == 0 && p.Fallback != nil {
		generated, err := p.Fallback.Plan(ctx, goal)
		if err != nil {
			p.Logger.Warn("fallback planning failed: %v", err)
		} else {
			plan = generated
		}
	}

	if len(plan) == 0 {
		plan = Plan{{
			Capability: "core",
			Action:     "print",
			Params:     map[string]any{"text": "Goal not understood."},
		}}
	}

	return p.normalize(plan, user)
}

// resolveRecipient picks an email recipient: explicit teacher keyword,
// then the stored preference, then an unresolved placeholder. Never a
// guess.
func (p *Planner) resolveRecipient(lowered, user string) string {
	if strings.Contains(lowered, "teacher") {
		return TeacherRecipient
	}
	if p.Memory != nil {
		if pref, ok := p.Memory.GetPreference(user, "comms", "default_recipient"); ok && pref != "" {
			return pref
		}
	}
	return "<recipient>"
}

// normalize defaults the acting user into every step's params.
func (p *Planner) normalize(plan Plan, user string) Plan {
	for i := range plan {
		if plan[i].Params == nil {
			plan[i].Params = map[string]any{}
		}
		if _, ok := plan[i].Params["user"]; !ok {
			plan[i].Params["user"] = user
		}
	}
	return plan
}

var searchPhrases = []string{"search the web for ", "search for ", "look up "}

// searchQuery extracts the query following a search phrase, keeping the
// goal's original casing. Goals that merely contain the word "search"
// elsewhere do not trigger.
func searchQuery(goal string) (string, bool) {
	for _, phrase := range searchPhrases {
		if idx := indexFold(goal, phrase); idx >= 0 {
			query := strings.TrimSpace(goal[idx+len(phrase):])
			query = strings.TrimRight(query, ".!?")
			if query != "" {
				return query, true
			}
		}
	}
	return "", false
}

// indexFold returns the byte offset in s of the first case-insensitive
// occurrence of phrase, or -1. Matching and slicing happen on s itself;
// offsets from a lowercased copy are unusable because lowering can
// change a rune's UTF-8 length.
func indexFold(s, phrase string) int {
	if len(phrase) == 0 {
		return 0
	}
	for i := 0; i+len(phrase) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(phrase)], phrase) {
			return i
		}
	}
	return -1
}

// firstURL returns the first http(s) token in the goal text.
func firstURL(goal string) string {
	for _, field := range strings.Fields(goal) {
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			return strings.TrimRight(field, ".,;)")
		}
	}
	return ""
}
