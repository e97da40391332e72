// config.go - Environment configuration for the upload relay.
//
// All settings are read from RELAY_* environment variables and
// validated at startup to fail fast with clear messages rather than
// at the first upload.
package server

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend names accepted by RELAY_STORAGE_BACKEND.
const (
	BackendDrive = "drive"
	BackendS3    = "s3"
)

// Settings is the full startup configuration of the relay.
type Settings struct {
	Addr    string
	Backend string

	// Google Drive backend
	DriveClientID     string
	DriveClientSecret string
	DriveRedirectURL  string
	DriveFolderID     string

	// S3-compatible backend
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string

	MaxUploadBytes int64
	MaxBatchFiles  int
	Workers        int
	QueueSize      int

	StoreMaxEntries int
	StoreRetention  time.Duration
	SweepInterval   time.Duration
	SampleInterval  time.Duration

	TempDir string
}

// configError collects validation failures so a misconfigured start
// reports everything at once.
type configError struct {
	problems []string
}

func (e *configError) add(field, msg string) {
	e.problems = append(e.problems, fmt.Sprintf("%s: %s", field, msg))
}

func (e *configError) err() error {
	if len(e.problems) == 0 {
		return nil
	}
	return fmt.Errorf("configuration invalid: %s", strings.Join(e.problems, "; "))
}

// LoadSettings reads and validates the environment.
func LoadSettings() (Settings, error) {
	v := &configError{}

	s := Settings{
		Addr:              getenvDefault("RELAY_ADDR", ":8080"),
		Backend:           getenvDefault("RELAY_STORAGE_BACKEND", BackendDrive),
		DriveClientID:     os.Getenv("RELAY_DRIVE_CLIENT_ID"),
		DriveClientSecret: os.Getenv("RELAY_DRIVE_CLIENT_SECRET"),
		DriveRedirectURL:  getenvDefault("RELAY_DRIVE_REDIRECT_URL", "http://localhost:8080/oauth2/callback"),
		DriveFolderID:     os.Getenv("RELAY_DRIVE_FOLDER_ID"),
		S3Endpoint:        os.Getenv("RELAY_S3_ENDPOINT"),
		S3AccessKey:       os.Getenv("RELAY_S3_ACCESS_KEY"),
		S3SecretKey:       os.Getenv("RELAY_S3_SECRET_KEY"),
		S3Bucket:          os.Getenv("RELAY_S3_BUCKET"),
		MaxUploadBytes:    envInt64(v, "RELAY_MAX_UPLOAD_BYTES", 0),
		MaxBatchFiles:     envInt(v, "RELAY_MAX_BATCH_FILES", 10),
		Workers:           envInt(v, "RELAY_WORKERS", 4),
		QueueSize:         envInt(v, "RELAY_QUEUE_SIZE", 64),
		StoreMaxEntries:   envInt(v, "RELAY_STORE_MAX_ENTRIES", 10000),
		StoreRetention:    envDuration(v, "RELAY_STORE_RETENTION", time.Hour),
		SweepInterval:     envDuration(v, "RELAY_SWEEP_INTERVAL", 5*time.Minute),
		SampleInterval:    envDuration(v, "RELAY_SAMPLE_INTERVAL", 250*time.Millisecond),
		TempDir:           os.Getenv("RELAY_TEMP_DIR"),
	}

	switch s.Backend {
	case BackendDrive:
		if s.DriveClientID == "" {
			v.add("RELAY_DRIVE_CLIENT_ID", "required for the drive backend")
		}
		if s.DriveClientSecret == "" {
			v.add("RELAY_DRIVE_CLIENT_SECRET", "required for the drive backend")
		}
		if u, err := url.Parse(s.DriveRedirectURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			v.add("RELAY_DRIVE_REDIRECT_URL", "must be an http(s) URL")
		}
	case BackendS3:
		if s.S3Endpoint == "" || s.S3AccessKey == "" || s.S3SecretKey == "" || s.S3Bucket == "" {
			v.add("RELAY_S3_*", "endpoint, access key, secret key and bucket are all required for the s3 backend")
		}
	default:
		v.add("RELAY_STORAGE_BACKEND", fmt.Sprintf("unknown backend %q (want %s or %s)", s.Backend, BackendDrive, BackendS3))
	}

	if s.MaxBatchFiles <= 0 {
		v.add("RELAY_MAX_BATCH_FILES", "must be positive")
	}
	if s.Workers <= 0 {
		v.add("RELAY_WORKERS", "must be positive")
	}
	if s.TempDir != "" {
		if fi, err := os.Stat(s.TempDir); err != nil || !fi.IsDir() {
			v.add("RELAY_TEMP_DIR", "must be an existing directory")
		}
	}

	return s, v.err()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(v *configError, key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.add(key, "must be an integer")
		return def
	}
	return n
}

func envInt64(v *configError, key string, def int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		v.add(key, "must be an integer")
		return def
	}
	return n
}

func envDuration(v *configError, key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		v.add(key, "must be a duration like 30s or 5m")
		return def
	}
	return d
}
