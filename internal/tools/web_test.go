package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woakley/ghosthand/internal/observability"
)

func TestWebDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("report body"))
	}))
	defer srv.Close()

	w, err := NewWebCapability(filepath.Join(t.TempDir(), "downloads"))
	if err != nil {
		t.Fatalf("NewWebCapability: %v", err)
	}

	out, err := w.Execute(context.Background(), "download", map[string]any{"url": srv.URL + "/report.txt"})
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	target, ok := out.(string)
	if !ok || filepath.Base(target) != "report.txt" {
		t.Fatalf("result = %v", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(data) != "report body" {
		t.Errorf("content = %q", data)
	}
}

func TestWebDownload_LogsEvent(t *testing.T) {
	t.Chdir(t.TempDir())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	w, err := NewWebCapability("downloads")
	if err != nil {
		t.Fatalf("NewWebCapability: %v", err)
	}
	w.Logger = observability.NewLogger()

	if _, err := w.Execute(context.Background(), "download", map[string]any{"url": srv.URL + "/a.bin"}); err != nil {
		t.Fatalf("download failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join("logs", "ghosthand.jsonl"))
	if err != nil {
		t.Fatalf("reading event log: %v", err)
	}
	if !strings.Contains(string(data), `"type":"web"`) {
		t.Errorf("no web event recorded: %s", data)
	}
}

func TestWebDownload_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	w, err := NewWebCapability(t.TempDir())
	if err != nil {
		t.Fatalf("NewWebCapability: %v", err)
	}
	if _, err := w.Execute(context.Background(), "download", map[string]any{"url": srv.URL + "/gone"}); err == nil {
		t.Error("HTTP 404 treated as success")
	}
}
