package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "greeter.yaml", `
name: greeter
match:
  keywords: ["hello", "greet"]
run:
  reply: "Hello from the greeter skill."
`)
	writeManifest(t, dir, "broken.yaml", `
name: broken
run:
  reply: "no match section"
`)
	writeManifest(t, dir, "notes.txt", "not a manifest")

	r := NewRegistry()
	if err := r.LoadDir(dir, nil); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	if r.Len() != 1 {
		t.Fatalf("loaded %d skills, want 1", r.Len())
	}
	s := r.Get("greeter")
	if s == nil {
		t.Fatal("greeter not registered")
	}
	if !s.CanHandle("please GREET the visitors") {
		t.Error("keyword match should be case-insensitive")
	}
	if s.CanHandle("water the plants") {
		t.Error("unrelated goal claimed")
	}

	out, err := s.Execute(context.Background(), map[string]any{"goal": "hello"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "Hello from the greeter skill." {
		t.Errorf("reply = %v", out)
	}
}

func TestLoadDir_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "greeter.yaml", `
match:
  keywords: ["hello"]
run:
  reply: "hi"
`)

	r := NewRegistry()
	if err := r.LoadDir(dir, nil); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadDir(dir, nil); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 1 {
		t.Errorf("re-discovery duplicated skills: %d", r.Len())
	}

	// New manifests appearing later are picked up.
	writeManifest(t, dir, "later.yaml", `
match:
  pattern: "check the (post|mail)"
run:
  reply: "checking"
`)
	if err := r.LoadDir(dir, nil); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Errorf("got %d skills after a new manifest, want 2", r.Len())
	}
	if s := r.Get("later"); s == nil || !s.CanHandle("check the mail") {
		t.Error("pattern manifest not working")
	}
}

func TestLoadDir_MissingDirCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "skills")

	r := NewRegistry()
	if err := r.LoadDir(dir, nil); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("skills dir not created: %v", err)
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	r := NewRegistry()
	if !r.Register(&manifestSkill{name: "x", reply: "a"}) {
		t.Fatal("first registration refused")
	}
	if r.Register(&manifestSkill{name: "x", reply: "b"}) {
		t.Error("duplicate registration accepted")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d", r.Len())
	}
}
