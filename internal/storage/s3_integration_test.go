//go:build integration
// +build integration

// Validates the S3 gateway against a real MinIO instance started with
// dockertest. Requires Docker available to the test runner:
//
//	go test -tags integration ./internal/storage -run TestS3Gateway
//
// Optional env:
//
//	RELAY_MINIO_TEST_TAG  override MinIO image tag for compatibility.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

func TestS3GatewayRoundTrip(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	tag := os.Getenv("RELAY_MINIO_TEST_TAG")
	if tag == "" {
		tag = "RELEASE.2024-01-31T20-20-33Z"
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "minio/minio",
		Tag:        tag,
		Cmd:        []string{"server", "/data"},
		Env: []string{
			"MINIO_ROOT_USER=minio",
			"MINIO_ROOT_PASSWORD=minio123",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		t.Fatalf("could not start minio: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })
	port := resource.GetPort("9000/tcp")

	if err := pool.Retry(func() error {
		resp, err := http.Get("http://localhost:" + port + "/minio/health/live")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			return fmt.Errorf("minio not ready: %d", resp.StatusCode)
		}
		return nil
	}); err != nil {
		t.Fatalf("minio not ready: %v", err)
	}

	ctx := context.Background()

	// Create the bucket directly; the gateway only verifies existence.
	mc, err := minio.New("localhost:"+port, &minio.Options{
		Creds:  credentials.NewStaticV4("minio", "minio123", ""),
		Secure: false,
	})
	if err != nil {
		t.Fatalf("minio client: %v", err)
	}
	bucket := "relay-test"
	if err := mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		t.Fatalf("make bucket: %v", err)
	}

	gw, err := NewS3Gateway(ctx, S3Config{
		Endpoint:  "localhost:" + port,
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    bucket,
	})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}

	payload := "hello from the relay"
	stored, err := gw.CreateFile(ctx, strings.NewReader(payload), "greeting.txt", "text/plain", "inbox")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	if stored.ID == "" || stored.Name != "greeting.txt" {
		t.Fatalf("unexpected stored file: %+v", stored)
	}
	if stored.WebContentLink == "" {
		t.Fatal("expected a presigned link")
	}

	// The presigned link must serve the original bytes back.
	resp, err := http.Get(stored.WebContentLink)
	if err != nil {
		t.Fatalf("fetch presigned link: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("presigned GET status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read presigned body: %v", err)
	}
	if string(body) != payload {
		t.Fatalf("presigned body = %q, want %q", body, payload)
	}

	files, err := gw.ListFiles(ctx, 10)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Name != "greeting.txt" {
		t.Fatalf("listed name = %q", files[0].Name)
	}
}
