package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tmc/langchaingo/tools/duckduckgo"

	"github.com/woakley/ghosthand/internal/observability"
)

// WebCapability covers outbound web operations: search, file download,
// and readable-text extraction from a page.
type WebCapability struct {
	UserAgent   string
	DownloadDir string
	// Logger, when set, records each completed web action.
	Logger *observability.Logger
	client *http.Client
	search *duckduckgo.Tool
}

func NewWebCapability(downloadDir string) (*WebCapability, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &WebCapability{
		UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		DownloadDir: downloadDir,
		client:      &http.Client{Timeout: 30 * time.Second},
		search:      ddg,
	}, nil
}

func (w *WebCapability) Name() string {
	return "web"
}

func (w *WebCapability) Description() string {
	return "Web operations: search the web, download files, extract readable text from a page."
}

func (w *WebCapability) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "search":
		return w.doSearch(ctx, strParam(params, "query"))
	case "download":
		return w.download(ctx, strParam(params, "url"))
	case "extract_text":
		return w.extractText(ctx, strParam(params, "url"))
	default:
		return nil, fmt.Errorf("unknown web action %q", action)
	}
}

func (w *WebCapability) logEvent(action, detail string) {
	if w.Logger != nil {
		w.Logger.LogWeb(action, detail)
	}
}

func (w *WebCapability) doSearch(ctx context.Context, query string) (any, error) {
	if query == "" {
		return nil, fmt.Errorf("query required")
	}
	res, err := w.search.Call(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	w.logEvent("search", query)
	return res, nil
}

func (w *WebCapability) download(ctx context.Context, rawURL string) (any, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", w.UserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status code %d", resp.StatusCode)
	}

	if err := os.MkdirAll(w.DownloadDir, 0755); err != nil {
		return nil, err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}
	target := filepath.Join(w.DownloadDir, name)

	f, err := os.Create(target)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to save download: %w", err)
	}
	w.logEvent("download", target)
	return target, nil
}

func (w *WebCapability) extractText(ctx context.Context, rawURL string) (any, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", w.UserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status code %d", resp.StatusCode)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article: %w", err)
	}

	// Strip any markup the readability pass left behind.
	p := bluemonday.StrictPolicy()
	content := p.Sanitize(article.TextContent)
	if len(content) > 50000 {
		content = content[:50000] + "\n... (content truncated) ..."
	}

	output := fmt.Sprintf("TITLE: %s\n", article.Title)
	if article.Excerpt != "" {
		output += fmt.Sprintf("EXCERPT: %s\n", article.Excerpt)
	}
	output += "\n-- CONTENT --\n" + content
	w.logEvent("extract_text", rawURL)
	return output, nil
}
