package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalAssetStore stores uploads on the local filesystem and serves them
// from the application's HTTP server. Good enough for demo/testing without
// a cloud bucket.
type LocalAssetStore struct {
	baseURL   string // server URL (e.g., "http://localhost:8080")
	uploadDir string // local directory for uploads (e.g., "./uploads")
	imagesDir string
}

func NewLocalAssetStore(baseURL, uploadDir string) (*LocalAssetStore, error) {
	imagesDir := filepath.Join(uploadDir, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	return &LocalAssetStore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		uploadDir: uploadDir,
		imagesDir: imagesDir,
	}, nil
}

func (s *LocalAssetStore) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	// Random key so concurrent uploads of the same filename never collide
	key := uuid.New().String() + sanitizeExt(filename)

	f, err := os.Create(filepath.Join(s.imagesDir, key))
	if err != nil {
		return "", fmt.Errorf("failed to create asset file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write asset file: %w", err)
	}

	return fmt.Sprintf("%s/assets/images/%s", s.baseURL, key), nil
}

func (s *LocalAssetStore) Delete(ctx context.Context, url string) error {
	idx := strings.LastIndex(url, "/")
	if idx < 0 {
		return fmt.Errorf("malformed asset url: %s", url)
	}
	key := url[idx+1:]
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("malformed asset url: %s", url)
	}
	return os.Remove(filepath.Join(s.imagesDir, key))
}

// ImagesDir is the directory the HTTP server mounts under /assets/images.
func (s *LocalAssetStore) ImagesDir() string { return s.imagesDir }

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	default:
		return ""
	}
}
