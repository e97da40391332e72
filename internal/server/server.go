package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"drive-upload-relay/internal/storage"
	"drive-upload-relay/internal/upload"
)

// BuildInfo identifies the running binary in logs and health output.
type BuildInfo struct {
	Version string
	Commit  string
}

// AuthFlow is the interactive OAuth surface. Nil when the configured
// backend authenticates with static keys.
type AuthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// Config carries the wired dependencies into the HTTP layer.
type Config struct {
	Addr  string
	Build BuildInfo

	Orchestrator *upload.Orchestrator
	Gateway      storage.Gateway
	Creds        upload.CredentialSource
	Flow         AuthFlow
	States       *StateCache

	Backend        string // "drive" or "s3", reported by /auth/status
	MaxUploadBytes int64  // 0 = unlimited
	MaxBatchFiles  int
	TempDir        string // "" = system temp dir
	DefaultFolder  string // destination folder when the request names none
}

type Server struct {
	httpServer *http.Server
}

func New(cfg Config) *Server {
	if cfg.MaxBatchFiles <= 0 {
		cfg.MaxBatchFiles = 10
	}
	if cfg.States == nil {
		cfg.States = NewStateCache()
	}

	mux := http.NewServeMux()

	mux.Handle("POST /upload", cfg.uploadHandler())
	mux.Handle("GET /upload/progress/{uploadID}", cfg.progressHandler())
	mux.Handle("POST /upload-multiple", cfg.uploadMultipleHandler())
	mux.Handle("GET /files", cfg.listFilesHandler())

	mux.Handle("GET /auth/url", cfg.authURLHandler())
	mux.Handle("GET /oauth2/callback", cfg.oauthCallbackHandler())
	mux.Handle("GET /auth/status", cfg.authStatusHandler())

	mux.Handle("GET /health", cfg.healthHandler())

	// Wrap middleware: requestID -> logging -> mux
	var handler http.Handler = mux
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	Info("routes registered", map[string]interface{}{
		"backend":   cfg.Backend,
		"max_batch": cfg.MaxBatchFiles,
	})

	return &Server{httpServer: s}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routed handler for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
