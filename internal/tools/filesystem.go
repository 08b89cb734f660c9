package tools

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileCapability manages files in the local workspace and locates user
// files (screenshots, keyword matches) in the common home folders.
type FileCapability struct {
	Root string

	mu    sync.Mutex
	index []string
}

func NewFileCapability(root string) *FileCapability {
	absRoot, _ := filepath.Abs(root)
	return &FileCapability{Root: absRoot}
}

func (f *FileCapability) Name() string {
	return "file"
}

func (f *FileCapability) Description() string {
	return "File operations: read, write, list, keyword search, screenshot lookup, redaction, archive extraction."
}

func (f *FileCapability) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "read_text":
		return f.readText(strParam(params, "path"))
	case "write_text":
		return f.writeText(strParam(params, "path"), strParam(params, "content"))
	case "list":
		return f.list(strParam(params, "path"))
	case "find_by_keywords":
		return f.findByKeywords(params)
	case "find_recent_screenshot":
		return f.findRecentScreenshot()
	case "redact_names":
		return f.redactNames(strParam(params, "image_path"))
	case "extract":
		return extractArchive(strParam(params, "path"), strParam(params, "dest"))
	default:
		return nil, fmt.Errorf("unknown file action %q", action)
	}
}

// resolve joins a relative path onto the workspace root and refuses
// escapes above it.
func (f *FileCapability) resolve(name string) (string, error) {
	target := filepath.Join(f.Root, name)
	rel, err := filepath.Rel(f.Root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("unsafe path attempt: %s", name)
	}
	return target, nil
}

func (f *FileCapability) readText(name string) (any, error) {
	target, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return string(data), nil
}

func (f *FileCapability) writeText(name, content string) (any, error) {
	target, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("wrote %s", name), nil
}

func (f *FileCapability) list(name string) (any, error) {
	target, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		kind := "file"
		if e.IsDir() {
			kind = "dir"
		}
		out = append(out, fmt.Sprintf("[%s] %s", kind, e.Name()))
	}
	return strings.Join(out, "\n"), nil
}

// searchDirs lists the home folders scanned for user files.
func searchDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, "Downloads"),
		filepath.Join(home, "Pictures"),
		filepath.Join(home, "Desktop"),
		filepath.Join(home, "Documents"),
	}
}

// BuildIndex walks the common home folders once and caches the file
// list used by keyword search. Safe to call repeatedly.
func (f *FileCapability) BuildIndex() {
	f.mu.Lock()
	defer f.mu.Unlock()

	var paths []string
	for _, dir := range searchDirs() {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() {
				paths = append(paths, path)
			}
			if len(paths) >= 50000 {
				return fs.SkipAll
			}
			return nil
		})
	}
	f.index = paths
}

func (f *FileCapability) findByKeywords(params map[string]any) (any, error) {
	var keywords []string
	switch v := params["keywords"].(type) {
	case []string:
		keywords = v
	case []any:
		for _, k := range v {
			keywords = append(keywords, fmt.Sprint(k))
		}
	case string:
		keywords = strings.Fields(v)
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("keywords required")
	}

	f.mu.Lock()
	if f.index == nil {
		f.mu.Unlock()
		f.BuildIndex()
		f.mu.Lock()
	}
	index := f.index
	f.mu.Unlock()

	var matches []string
	for _, path := range index {
		name := strings.ToLower(filepath.Base(path))
		for _, kw := range keywords {
			if strings.Contains(name, strings.ToLower(kw)) {
				matches = append(matches, path)
				break
			}
		}
	}
	return matches, nil
}

// findRecentScreenshot returns the newest file in the common folders
// whose name contains "screenshot" and has an image extension.
func (f *FileCapability) findRecentScreenshot() (any, error) {
	var latest string
	var latestMod int64

	for _, dir := range searchDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := strings.ToLower(e.Name())
			if !strings.Contains(name, "screenshot") {
				continue
			}
			ext := filepath.Ext(name)
			if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if mod := info.ModTime().Unix(); mod > latestMod {
				latestMod = mod
				latest = filepath.Join(dir, e.Name())
			}
		}
	}

	if latest == "" {
		return nil, fmt.Errorf("no screenshot found in common folders")
	}
	abs, _ := filepath.Abs(latest)
	return abs, nil
}

// redactNames produces a redacted_ copy of the image. Name detection
// and blurring belong to the OCR/NER collaborator; when it is absent
// the original is copied through unchanged, matching the behavior when
// no names are detected.
func (f *FileCapability) redactNames(imagePath string) (any, error) {
	if imagePath == "" {
		return nil, fmt.Errorf("image_path required")
	}
	src, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer src.Close()

	dir := filepath.Dir(imagePath)
	base := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	outPath := filepath.Join(dir, "redacted_"+base+".png")

	dst, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create redacted copy: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, err
	}
	return outPath, nil
}
