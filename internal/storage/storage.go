// Package storage holds the gateway to the remote object-storage
// provider. The orchestrator only ever sees the Gateway interface; the
// concrete backend (Google Drive or an S3-compatible store) is chosen
// at startup.
package storage

import (
	"context"
	"io"
)

// StoredFile is the provider-assigned identity of an uploaded file.
type StoredFile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
}

// Gateway is the call contract the upload orchestrator consumes.
type Gateway interface {
	// CreateFile streams r into the provider under the given name and
	// MIME type. A non-empty folderID places the file inside that
	// provider folder (or key prefix).
	CreateFile(ctx context.Context, r io.Reader, name, mimeType, folderID string) (*StoredFile, error)

	// ListFiles returns up to pageSize recently created files.
	ListFiles(ctx context.Context, pageSize int64) ([]*StoredFile, error)
}
