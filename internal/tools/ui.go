package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// UICapability controls the desktop GUI (mouse and keyboard) and
// captures desktop state by shelling out to xdotool and ffmpeg/scrot.
type UICapability struct {
	ScreenshotDir string
}

func NewUICapability(screenshotDir string) *UICapability {
	return &UICapability{ScreenshotDir: screenshotDir}
}

func (u *UICapability) Name() string {
	return "ui"
}

func (u *UICapability) Description() string {
	return "Desktop control: mouse_move, mouse_click, key_press, type_text, desktop_screenshot."
}

func (u *UICapability) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "desktop_screenshot":
		return u.captureDesktop(ctx)
	case "mouse_move", "mouse_click", "key_press", "type_text":
		return u.executeXdotool(ctx, action, params)
	default:
		return nil, fmt.Errorf("unknown ui action %q", action)
	}
}

func (u *UICapability) captureDesktop(ctx context.Context) (any, error) {
	if err := os.MkdirAll(u.ScreenshotDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(u.ScreenshotDir, fmt.Sprintf("desktop_%d.png", time.Now().Unix()))

	cmd := exec.CommandContext(ctx, "ffmpeg", "-f", "x11grab", "-i", ":0.0", "-frames:v", "1", path, "-y")
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Fallback for hosts without ffmpeg
		cmd = exec.CommandContext(ctx, "scrot", path)
		output, err = cmd.CombinedOutput()
		if err != nil {
			return nil, fmt.Errorf("failed to capture desktop: %v\noutput: %s", err, string(output))
		}
	}

	abs, _ := filepath.Abs(path)
	return abs, nil
}

func (u *UICapability) executeXdotool(ctx context.Context, action string, params map[string]any) (any, error) {
	var cmdArgs []string
	switch action {
	case "mouse_move":
		cmdArgs = []string{"mousemove", strconv.Itoa(intParam(params, "x")), strconv.Itoa(intParam(params, "y"))}
	case "mouse_click":
		button := strParam(params, "button")
		if button == "" {
			button = "1"
		}
		cmdArgs = []string{"click", button}
	case "key_press":
		key := strParam(params, "key")
		if key == "" {
			return nil, fmt.Errorf("key required for key_press")
		}
		cmdArgs = []string{"key", key}
	case "type_text":
		text := strParam(params, "text")
		if text == "" {
			return nil, fmt.Errorf("text required for type_text")
		}
		cmdArgs = []string{"type", text}
	}

	cmd := exec.CommandContext(ctx, "xdotool", cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(err.Error(), "executable file not found") {
			return nil, fmt.Errorf("xdotool is not installed")
		}
		return nil, fmt.Errorf("xdotool failed: %v\noutput: %s", err, string(output))
	}

	return fmt.Sprintf("executed %s", action), nil
}
