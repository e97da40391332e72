package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignExpiry = 24 * time.Hour

// S3Config configures the S3-compatible backend.
type S3Config struct {
	Endpoint  string // "minio:9000" or "https://minio:9000"
	AccessKey string
	SecretKey string
	Bucket    string
}

// S3Gateway stores files in an S3-compatible bucket. Links in the
// returned StoredFile are presigned GET URLs.
type S3Gateway struct {
	client *minio.Client
	bucket string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		secure = (u.Scheme == "https")
		return u.Host, secure, nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// NewS3Gateway connects to the configured endpoint and verifies the
// bucket exists before accepting any transfer.
func NewS3Gateway(ctx context.Context, cfg S3Config) (*S3Gateway, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket does not exist: %s", cfg.Bucket)
	}

	return &S3Gateway{client: client, bucket: cfg.Bucket}, nil
}

func (g *S3Gateway) CreateFile(ctx context.Context, r io.Reader, name, mimeType, folderID string) (*StoredFile, error) {
	// A fresh prefix per upload keeps same-named files from clobbering
	// each other.
	key := uuid.NewString() + "/" + name
	if folderID != "" {
		key = strings.Trim(folderID, "/") + "/" + key
	}

	_, err := g.client.PutObject(ctx, g.bucket, key, r, -1,
		minio.PutObjectOptions{ContentType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	link, err := g.presign(ctx, key)
	if err != nil {
		return nil, err
	}

	return &StoredFile{
		ID:             key,
		Name:           name,
		WebViewLink:    link,
		WebContentLink: link,
	}, nil
}

func (g *S3Gateway) ListFiles(ctx context.Context, pageSize int64) ([]*StoredFile, error) {
	if pageSize <= 0 {
		pageSize = 10
	}

	var objects []minio.ObjectInfo
	for obj := range g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		objects = append(objects, obj)
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	if int64(len(objects)) > pageSize {
		objects = objects[:pageSize]
	}

	files := make([]*StoredFile, 0, len(objects))
	for _, obj := range objects {
		link, err := g.presign(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		name := obj.Key
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		files = append(files, &StoredFile{
			ID:             obj.Key,
			Name:           name,
			WebViewLink:    link,
			WebContentLink: link,
		})
	}
	return files, nil
}

func (g *S3Gateway) presign(ctx context.Context, key string) (string, error) {
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}
