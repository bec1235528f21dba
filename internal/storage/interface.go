package storage

import (
	"context"
	"io"
)

// AssetStore is the interface for stored-asset backends. The local
// implementation serves files from disk; a cloud backend (S3, Azure) can
// slot in behind the same contract.
type AssetStore interface {
	// Upload persists the file content and returns the URL it will be
	// served from.
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)

	// Delete removes a previously uploaded asset by its served URL.
	Delete(ctx context.Context, url string) error
}
