package skills

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/woakley/ghosthand/internal/observability"
)

// Manifest is the on-disk declaration of a skill plugin. `match`
// supplies the can-handle test, `run` the execution; a manifest
// missing either is skipped, mirroring a plugin without the expected
// entry points.
type Manifest struct {
	Name  string `yaml:"name"`
	Match struct {
		Keywords []string `yaml:"keywords"`
		Pattern  string   `yaml:"pattern"`
	} `yaml:"match"`
	Run struct {
		Command []string `yaml:"command"`
		Reply   string   `yaml:"reply"`
	} `yaml:"run"`
}

type manifestSkill struct {
	name     string
	keywords []string
	pattern  *regexp.Regexp
	command  []string
	reply    string
}

func (s *manifestSkill) Name() string { return s.name }

func (s *manifestSkill) CanHandle(goal string) bool {
	lowered := strings.ToLower(goal)
	for _, kw := range s.keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	if s.pattern != nil && s.pattern.MatchString(lowered) {
		return true
	}
	return false
}

// Execute runs the manifest's command, passing params through the
// environment as GHOSTHAND_PARAM_<KEY>, and returns trimmed stdout.
// Command-less manifests return the canned reply.
func (s *manifestSkill) Execute(ctx context.Context, params map[string]any) (any, error) {
	if len(s.command) == 0 {
		return s.reply, nil
	}
	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	cmd.Env = os.Environ()
	for k, v := range params {
		key := "GHOSTHAND_PARAM_" + strings.ToUpper(k)
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%v", key, v))
	}
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("skill %s failed: %w", s.name, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// LoadDir discovers skill manifests in dir (*.yaml, *.yml) and
// registers them. Files already consumed in this process are skipped,
// so repeated discovery is idempotent. A missing directory is created
// empty rather than treated as an error.
func (r *Registry) LoadDir(dir string, logger *observability.Logger) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names) // deterministic discovery order

	for _, name := range names {
		path := filepath.Join(dir, name)

		r.mu.Lock()
		seen := r.loaded[path]
		r.loaded[path] = true
		r.mu.Unlock()
		if seen {
			continue
		}

		skill, err := loadManifest(path)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping skill %s: %v", name, err)
			}
			continue
		}
		if r.Register(skill) && logger != nil {
			logger.LogSkill(skill.Name(), "loaded from "+name)
		}
	}
	return nil
}

func loadManifest(path string) (Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(m.Match.Keywords) == 0 && m.Match.Pattern == "" {
		return nil, fmt.Errorf("missing match section")
	}
	if len(m.Run.Command) == 0 && m.Run.Reply == "" {
		return nil, fmt.Errorf("missing run section")
	}

	s := &manifestSkill{
		name:     m.Name,
		keywords: m.Match.Keywords,
		command:  m.Run.Command,
		reply:    m.Run.Reply,
	}
	if m.Match.Pattern != "" {
		re, err := regexp.Compile(m.Match.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid match pattern: %w", err)
		}
		s.pattern = re
	}
	return s, nil
}
