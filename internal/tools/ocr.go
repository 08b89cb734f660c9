package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OCRCapability extracts text from images via the tesseract binary.
// OCR quality is entirely the collaborator's concern; this wrapper only
// routes the image through and returns the raw text.
type OCRCapability struct {
	Binary string
}

func NewOCRCapability() *OCRCapability {
	return &OCRCapability{Binary: "tesseract"}
}

func (o *OCRCapability) Name() string {
	return "ocr"
}

func (o *OCRCapability) Description() string {
	return "Extract text from an image using OCR."
}

func (o *OCRCapability) Execute(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "extract_text":
		imagePath := strParam(params, "image_path")
		if imagePath == "" {
			return nil, fmt.Errorf("image_path required")
		}
		// stdout output mode: tesseract <image> stdout
		cmd := exec.CommandContext(ctx, o.Binary, imagePath, "stdout")
		output, err := cmd.Output()
		if err != nil {
			if strings.Contains(err.Error(), "executable file not found") {
				return nil, fmt.Errorf("tesseract is not installed")
			}
			return nil, fmt.Errorf("ocr failed: %w", err)
		}
		return strings.TrimSpace(string(output)), nil
	default:
		return nil, fmt.Errorf("unknown ocr action %q", action)
	}
}
