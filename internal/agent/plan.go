package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Goal is one natural-language instruction submitted for execution.
// Goals are never persisted; only their text and outcome are.
type Goal struct {
	Text   string
	User   string
	DryRun bool
	Speak  bool
}

// StepRef is a tagged back-reference: "use the result of step Index".
// It exists so that a literal string which merely looks like a
// placeholder can never be confused with an actual reference.
type StepRef struct {
	Index int
}

func (r StepRef) String() string {
	return fmt.Sprintf("<result_from_step_%d>", r.Index)
}

// MarshalJSON writes the wire placeholder so plans round-trip through
// JSON (direct plan submission, logging, skill manifests).
func (r StepRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// Step is one planned capability invocation. Params may contain
// StepRef values; everything else is a literal.
type Step struct {
	Capability string         `json:"capability"`
	Action     string         `json:"action"`
	Params     map[string]any `json:"params"`
}

// Plan is an ordered sequence of steps, immutable once handed to the
// executor. Steps run strictly sequentially.
type Plan []Step

// SkillCapabilityPrefix qualifies step capabilities that route to the
// skill registry rather than the built-in namespace.
const SkillCapabilityPrefix = "skill:"

var stepRefPattern = regexp.MustCompile(`^<result_from_step_(\d+)>$`)

// parseRef converts a wire placeholder into a StepRef. The second
// return is false for anything that is not a well-formed placeholder.
func parseRef(v any) (StepRef, bool) {
	s, ok := v.(string)
	if !ok {
		return StepRef{}, false
	}
	m := stepRefPattern.FindStringSubmatch(s)
	if m == nil {
		return StepRef{}, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return StepRef{}, false
	}
	return StepRef{Index: idx}, true
}

// ParsePlan decodes an externally supplied JSON plan and normalizes
// wire placeholders into tagged StepRef values. A malformed payload is
// an error; the caller substitutes an empty plan.
func ParsePlan(text string) (Plan, error) {
	var plan Plan
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("invalid plan string: %w", err)
	}
	for i := range plan {
		if plan[i].Capability == "" {
			return nil, fmt.Errorf("step %d is missing a capability", i)
		}
		for key, val := range plan[i].Params {
			if ref, ok := parseRef(val); ok {
				plan[i].Params[key] = ref
			}
		}
	}
	return plan, nil
}
