package tools

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractArchive unpacks a downloaded archive into dest. Only zip is
// handled in-process; other formats are the concern of external
// converters.
func extractArchive(path, dest string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("path required")
	}
	if dest == "" {
		dest = "extracted"
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		if err := unzip(path, dest); err != nil {
			return nil, err
		}
		return dest, nil
	default:
		return nil, fmt.Errorf("unsupported archive type: %s", filepath.Ext(path))
	}
}

func unzip(path, dest string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		// Refuse entries that escape the destination.
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dest)+string(filepath.Separator)) {
			return fmt.Errorf("archive entry escapes destination: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		src, err := f.Open()
		if err != nil {
			return err
		}
		dst, err := os.Create(target)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
