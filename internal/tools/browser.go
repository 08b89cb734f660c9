package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// BrowserCapability drives a Chrome instance for steps that need a
// real browser. The browser stays open across steps until "close".
type BrowserCapability struct {
	ScreenshotDir string

	mu            sync.Mutex
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewBrowserCapability(screenshotDir string) *BrowserCapability {
	return &BrowserCapability{ScreenshotDir: screenshotDir}
}

func (b *BrowserCapability) Name() string {
	return "browser"
}

func (b *BrowserCapability) Description() string {
	return "Browser automation: navigate, read page content, capture a page screenshot, close."
}

func (b *BrowserCapability) initBrowser() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.cleanup()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	return chromedp.Run(b.browserCtx)
}

func (b *BrowserCapability) cleanup() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

func (b *BrowserCapability) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	if action == "close" {
		b.mu.Lock()
		b.cleanup()
		b.mu.Unlock()
		return "browser closed", nil
	}

	if err := b.initBrowser(); err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	actionCtx, cancel := context.WithTimeout(b.browserCtx, 60*time.Second)
	defer cancel()

	switch action {
	case "navigate":
		url := strParam(params, "url")
		if url == "" {
			return nil, fmt.Errorf("url required")
		}
		if err := chromedp.Run(actionCtx, chromedp.Navigate(url)); err != nil {
			return nil, fmt.Errorf("navigation failed: %w", err)
		}
		return fmt.Sprintf("navigated to %s", url), nil

	case "content":
		var html string
		err := chromedp.Run(actionCtx,
			chromedp.ActionFunc(func(ctx context.Context) error {
				node, err := dom.GetDocument().Do(ctx)
				if err != nil {
					return err
				}
				html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
				return err
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to read page: %w", err)
		}
		if len(html) > 50000 {
			html = html[:50000] + "\n... (truncated)"
		}
		return html, nil

	case "screenshot":
		var buf []byte
		if err := chromedp.Run(actionCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
			return nil, fmt.Errorf("screenshot failed: %w", err)
		}
		if err := os.MkdirAll(b.ScreenshotDir, 0755); err != nil {
			return nil, err
		}
		path := filepath.Join(b.ScreenshotDir, fmt.Sprintf("page_%d.png", time.Now().Unix()))
		if err := os.WriteFile(path, buf, 0644); err != nil {
			return nil, err
		}
		abs, _ := filepath.Abs(path)
		return abs, nil

	default:
		return nil, fmt.Errorf("unknown browser action %q", action)
	}
}
