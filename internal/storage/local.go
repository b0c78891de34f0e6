// Package storage persists uploaded images and returns their public URL.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes blobs under a directory served by the API at /uploads.
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates a store rooted at dir whose files are reachable at baseURL/uploads.
func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir is the directory the API should serve at /uploads.
func (s *Local) Dir() string { return s.dir }

// Put writes data to dir/key, creating intermediate directories.
func (s *Local) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	clean := filepath.Clean("/" + key)[1:] // rooted clean drops any ".."
	if clean == "" {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	path := filepath.Join(s.dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return s.baseURL + "/uploads/" + filepath.ToSlash(clean), nil
}
