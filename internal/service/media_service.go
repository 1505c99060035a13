package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/korenlms/portal/internal/storage"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// MediaKind tells an image upload from a listening clip.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
)

var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
	"audio/webm": ".webm",
	"audio/mp4":  ".m4a",
}

// Upload is a stored media object.
type Upload struct {
	URL         string    `json:"url"`
	Kind        MediaKind `json:"kind"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
}

// MediaService stores question images and audio clips.
type MediaService struct {
	store    storage.Storage
	maxBytes int64
}

// NewMediaService creates a new MediaService.
func NewMediaService(store storage.Storage, maxBytes int64) *MediaService {
	return &MediaService{store: store, maxBytes: maxBytes}
}

// MaxBytes is the largest accepted upload.
func (s *MediaService) MaxBytes() int64 { return s.maxBytes }

// SaveUpload checks the file's type and size and stores it under a UUID name.
func (s *MediaService) SaveUpload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*Upload, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0]))
	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(allowedTypes(), ", "))
	}
	if header.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.maxBytes)
	}

	url, err := s.store.Put(ctx, uuid.New().String()+ext, contentType, file, header.Size)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	kind := MediaImage
	if strings.HasPrefix(contentType, "audio/") {
		kind = MediaAudio
	}
	return &Upload{URL: url, Kind: kind, ContentType: contentType, Size: header.Size}, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMIMETypes))
	for t := range allowedMIMETypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
