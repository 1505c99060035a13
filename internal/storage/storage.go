// Package storage holds uploaded media: question images and listening clips.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage stores an object and returns the URL it is served from.
type Storage interface {
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, name string) error
}

// Local writes objects under a directory served at /uploads.
type Local struct {
	dir       string
	urlPrefix string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir, urlPrefix: "/uploads/"}
}

func (s *Local) Put(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return s.urlPrefix + name, nil
}

func (s *Local) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
