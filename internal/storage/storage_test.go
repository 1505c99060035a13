package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalPut(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(filepath.Join(dir, "nested"))

	url, err := s.Put(context.Background(), "clip.mp3", "audio/mpeg", strings.NewReader("ID3"), 3)
	if err != nil {
		t.Fatal(err)
	}
	if url != "/uploads/clip.mp3" {
		t.Errorf("url = %q", url)
	}
	b, err := os.ReadFile(filepath.Join(dir, "nested", "clip.mp3"))
	if err != nil || string(b) != "ID3" {
		t.Errorf("stored %q, %v", b, err)
	}

	if err := s.Delete(context.Background(), "clip.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(context.Background(), "clip.mp3"); err != nil {
		t.Errorf("second delete = %v", err)
	}
}

func TestLocalRejectsPaths(t *testing.T) {
	s := NewLocal(t.TempDir())
	if _, err := s.Put(context.Background(), "../escape.png", "image/png", strings.NewReader(""), 0); err == nil {
		t.Error("path traversal accepted")
	}
}
