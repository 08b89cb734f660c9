package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/woakley/ghosthand/internal/governance"
	"github.com/woakley/ghosthand/internal/observability"
	"github.com/woakley/ghosthand/internal/skills"
	"github.com/woakley/ghosthand/internal/tools"
)

// fakeCapability records every invocation and replies from a canned
// result table keyed by action.
type fakeCapability struct {
	name    string
	results map[string]any
	failOn  string
	calls   []map[string]any
}

func (c *fakeCapability) Name() string        { return c.name }
func (c *fakeCapability) Description() string { return "test capability" }

func (c *fakeCapability) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	c.calls = append(c.calls, params)
	if action == c.failOn {
		return nil, errors.New("boom")
	}
	if r, ok := c.results[action]; ok {
		return r, nil
	}
	return action + " done", nil
}

func newTestExecutor(t *testing.T, caps ...*fakeCapability) (*Executor, *tools.Registry) {
	t.Helper()
	t.Chdir(t.TempDir())
	registry := tools.NewRegistry()
	for _, c := range caps {
		registry.Register(c)
	}
	return NewExecutor(registry, skills.NewRegistry(), nil, nil, observability.NewLogger(), nil), registry
}

func TestExecute_ResolvesBackReferences(t *testing.T) {
	file := &fakeCapability{name: "file", results: map[string]any{"find_recent_screenshot": "/home/w/Pictures/screenshot.png"}}
	ocr := &fakeCapability{name: "ocr"}
	exec, _ := newTestExecutor(t, file, ocr)

	plan := Plan{
		{Capability: "file", Action: "find_recent_screenshot", Params: map[string]any{}},
		{Capability: "ocr", Action: "extract_text", Params: map[string]any{"image_path": StepRef{Index: 0}}},
	}

	results := exec.Execute(context.Background(), plan, ExecOptions{User: "william"})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if got := ocr.calls[0]["image_path"]; got != "/home/w/Pictures/screenshot.png" {
		t.Errorf("image_path = %v, want the step 0 result", got)
	}
	// The plan itself is untouched: the reference stays tagged.
	if _, ok := plan[1].Params["image_path"].(StepRef); !ok {
		t.Errorf("plan mutated: %v", plan[1].Params["image_path"])
	}
}

func TestExecute_OutOfRangeReference(t *testing.T) {
	cap := &fakeCapability{name: "core"}
	exec, _ := newTestExecutor(t, cap)

	plan := Plan{{Capability: "core", Action: "print", Params: map[string]any{"text": StepRef{Index: 7}}}}

	results := exec.Execute(context.Background(), plan, ExecOptions{User: "william"})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := cap.calls[0]["text"]; got != "<result_from_step_7>" {
		t.Errorf("text = %v, want the placeholder string", got)
	}
}

func TestExecute_FailedStepTruncates(t *testing.T) {
	cap := &fakeCapability{name: "web", failOn: "download"}
	exec, _ := newTestExecutor(t, cap)

	plan := Plan{
		{Capability: "web", Action: "search", Params: map[string]any{"query": "x"}},
		{Capability: "web", Action: "download", Params: map[string]any{"url": "https://example.com/a"}},
		{Capability: "web", Action: "search", Params: map[string]any{"query": "never runs"}},
	}

	results := exec.Execute(context.Background(), plan, ExecOptions{User: "william"})
	if len(results) != 1 {
		t.Fatalf("got %d results, want truncation after the failure", len(results))
	}
	if len(cap.calls) != 2 {
		t.Errorf("capability called %d times, want 2", len(cap.calls))
	}
}

func TestExecute_UnknownCapabilityTruncates(t *testing.T) {
	exec, _ := newTestExecutor(t)

	plan := Plan{{Capability: "nonexistent", Action: "run", Params: map[string]any{}}}
	results := exec.Execute(context.Background(), plan, ExecOptions{User: "william"})
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestExecute_DryRun(t *testing.T) {
	cap := &fakeCapability{name: "web"}
	exec, _ := newTestExecutor(t, cap)

	plan := Plan{
		{Capability: "web", Action: "search", Params: map[string]any{"query": "x"}},
		{Capability: "web", Action: "download", Params: map[string]any{"url": "y"}},
	}

	results := exec.Execute(context.Background(), plan, ExecOptions{User: "william", DryRun: true})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if r != nil {
			t.Errorf("result %d = %v, want nil in dry-run", i, r)
		}
	}
	if len(cap.calls) != 0 {
		t.Errorf("capability invoked %d times during dry-run", len(cap.calls))
	}
}

func TestExecute_PolicyDenialSkipsStep(t *testing.T) {
	cap := &fakeCapability{name: "file"}
	exec, _ := newTestExecutor(t, cap)
	exec.Policy = governance.NewStepPolicy()
	sink := &recordingRejections{}
	exec.Rejections = sink

	plan := Plan{
		{Capability: "file", Action: "delete_everything", Params: map[string]any{}},
		{Capability: "file", Action: "read_text", Params: map[string]any{"path": "notes.txt"}},
	}

	results := exec.Execute(context.Background(), plan, ExecOptions{User: "william"})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0] != nil {
		t.Errorf("denied step result = %v, want nil", results[0])
	}
	if results[1] == nil {
		t.Error("execution did not continue past the denied step")
	}
	if len(sink.entries) != 1 || sink.entries[0].goal != "file.delete_everything" {
		t.Errorf("rejection not recorded: %+v", sink.entries)
	}
}

func TestExecute_SkillRouting(t *testing.T) {
	exec, _ := newTestExecutor(t)
	exec.Skills.Register(&fakeSkill{name: "greeter", keyword: "hello"})

	plan := Plan{{Capability: SkillCapabilityPrefix + "greeter", Params: map[string]any{"goal": "hello"}}}
	results := exec.Execute(context.Background(), plan, ExecOptions{User: "william"})
	if len(results) != 1 || results[0] != "handled by greeter" {
		t.Errorf("results = %v", results)
	}

	// An unknown skill faults the plan.
	plan = Plan{{Capability: SkillCapabilityPrefix + "missing", Params: map[string]any{}}}
	results = exec.Execute(context.Background(), plan, ExecOptions{User: "william"})
	if len(results) != 0 {
		t.Errorf("got %d results for unknown skill, want 0", len(results))
	}
}

type rejectionEntry struct {
	goal, reason, user string
}

type recordingRejections struct {
	entries []rejectionEntry
}

func (r *recordingRejections) LogRejection(goal, reason, user string) error {
	r.entries = append(r.entries, rejectionEntry{goal, reason, user})
	return nil
}
