package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/woakley/ghosthand/internal/agent"
	"github.com/woakley/ghosthand/internal/governance"
	"github.com/woakley/ghosthand/internal/observability"
	"github.com/woakley/ghosthand/internal/skills"
	"github.com/woakley/ghosthand/internal/store"
	"github.com/woakley/ghosthand/internal/tools"
)

func newTestBridge(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Chdir(t.TempDir())

	st, err := store.Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	logger := observability.NewLogger()
	registry := tools.NewRegistry()
	registry.Register(tools.NewCoreCapability())
	sk := skills.NewRegistry()

	gate := governance.NewGate("william", st, logger)
	planner := agent.NewPlanner(sk, st, nil, logger)
	executor := agent.NewExecutor(registry, sk, governance.NewStepPolicy(), st, logger, nil)
	runner := agent.NewRunner(gate, planner, executor, st, nil, logger, nil)

	return New(runner, st, nil, logger), st
}

func postJSON(t *testing.T, engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestReceiveGoal(t *testing.T) {
	engine, st := newTestBridge(t)

	w := postJSON(t, engine, "/goal", `{"goal": "say hello", "user": "william"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "started" || resp["task_id"] == "" {
		t.Errorf("response = %v", resp)
	}

	// The goal runs in the background and lands in the history.
	deadline := time.Now().Add(2 * time.Second)
	for {
		records, err := st.RecentGoals(1, "william")
		if err != nil {
			t.Fatal(err)
		}
		if len(records) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("goal never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReceiveGoal_BadBody(t *testing.T) {
	engine, _ := newTestBridge(t)
	if w := postJSON(t, engine, "/goal", "not json"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUsersEndpoint(t *testing.T) {
	engine, st := newTestBridge(t)
	if err := st.LogGoal("g", "ok", "william"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Users []string `json:"users"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	hasDefault, hasWilliam := false, false
	for _, u := range resp.Users {
		if u == "default" {
			hasDefault = true
		}
		if u == "william" {
			hasWilliam = true
		}
	}
	if !hasDefault || !hasWilliam {
		t.Errorf("users = %v", resp.Users)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	engine, st := newTestBridge(t)
	for _, g := range []string{"first", "second", "third"} {
		if err := st.LogGoal(g, "ok", "william"); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/history?limit=2&user=william", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		History []struct {
			Goal string `json:"goal"`
		} `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.History) != 2 || resp.History[0].Goal != "third" {
		t.Errorf("history = %+v", resp.History)
	}
}

func TestEnrollUnconfigured(t *testing.T) {
	engine, _ := newTestBridge(t)
	if w := postJSON(t, engine, "/enroll", "{}"); w.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", w.Code)
	}
}
