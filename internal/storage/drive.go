package storage

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveFileFields = "id, name, webViewLink, webContentLink"

// DriveGateway stores files in Google Drive on behalf of the
// authenticated account.
type DriveGateway struct {
	svc *drive.Service
}

// NewDriveGateway builds a Drive client over the given token source.
// The token source may be empty at construction time; Drive calls will
// fail with the source's error until a token is available, which the
// orchestrator prevents by checking credentials before every submit.
func NewDriveGateway(ctx context.Context, ts oauth2.TokenSource) (*DriveGateway, error) {
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &DriveGateway{svc: svc}, nil
}

func (g *DriveGateway) CreateFile(ctx context.Context, r io.Reader, name, mimeType, folderID string) (*StoredFile, error) {
	meta := &drive.File{Name: name}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	f, err := g.svc.Files.Create(meta).
		Media(r, googleapi.ContentType(mimeType)).
		Fields(driveFileFields).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive create: %w", err)
	}

	return &StoredFile{
		ID:             f.Id,
		Name:           f.Name,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
	}, nil
}

func (g *DriveGateway) ListFiles(ctx context.Context, pageSize int64) ([]*StoredFile, error) {
	if pageSize <= 0 {
		pageSize = 10
	}

	list, err := g.svc.Files.List().
		PageSize(pageSize).
		OrderBy("createdTime desc").
		Fields(googleapi.Field(fmt.Sprintf("files(%s)", driveFileFields))).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive list: %w", err)
	}

	files := make([]*StoredFile, 0, len(list.Files))
	for _, f := range list.Files {
		files = append(files, &StoredFile{
			ID:             f.Id,
			Name:           f.Name,
			WebViewLink:    f.WebViewLink,
			WebContentLink: f.WebContentLink,
		})
	}
	return files, nil
}
