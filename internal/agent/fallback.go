package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// fallbackPrompt asks the model for a raw JSON plan. Kept strict so
// the response parses without post-processing beyond fence stripping.
const fallbackPrompt = `You translate a user goal into a JSON plan for an automation agent.
Respond with ONLY a JSON array of steps, no prose. Each step is an object:
{"capability": "...", "action": "...", "params": {...}}.
Available capabilities: file (read_text, write_text, list, find_by_keywords,
find_recent_screenshot, redact_names, extract), web (search, download,
extract_text), browser (navigate, content, screenshot), comms (send_email,
send_message), ui (mouse_move, mouse_click, key_press, type_text,
desktop_screenshot), ocr (extract_text), core (print).
A param value may be "<result_from_step_N>" to reference an earlier result.

Goal: %s`

// LLMFallback asks an external model for a plan when no skill or
// keyword trigger claimed the goal. Explicitly non-deterministic.
type LLMFallback struct {
	Model llms.Model
}

func NewLLMFallback(model llms.Model) *LLMFallback {
	return &LLMFallback{Model: model}
}

func (f *LLMFallback) Plan(ctx context.Context, goal string) (Plan, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(fmt.Sprintf(fallbackPrompt, goal))},
		},
	}

	resp, err := f.Model.GenerateContent(ctx, messages)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	return ParsePlan(stripFences(resp.Choices[0].Content))
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
