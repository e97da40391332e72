package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drive-upload-relay/internal/auth"
	"drive-upload-relay/internal/server"
	"drive-upload-relay/internal/storage"
	"drive-upload-relay/internal/upload"
)

func main() {
	settings, err := server.LoadSettings()
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "bad_configuration", err)
		os.Exit(1)
	}

	build := server.BuildInfo{
		Version: getenvDefault("RELAY_VERSION", "dev"),
		Commit:  getenvDefault("RELAY_COMMIT", "unknown"),
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Storage backend and matching credential source.
	var (
		gateway storage.Gateway
		creds   upload.CredentialSource
		flow    server.AuthFlow
	)
	switch settings.Backend {
	case server.BackendDrive:
		provider := auth.NewOAuthProvider(
			settings.DriveClientID,
			settings.DriveClientSecret,
			settings.DriveRedirectURL,
		)
		gateway, err = storage.NewDriveGateway(ctx, provider)
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "drive_init_failed", err)
			os.Exit(1)
		}
		creds = provider
		flow = provider
	case server.BackendS3:
		gateway, err = storage.NewS3Gateway(ctx, storage.S3Config{
			Endpoint:  settings.S3Endpoint,
			AccessKey: settings.S3AccessKey,
			SecretKey: settings.S3SecretKey,
			Bucket:    settings.S3Bucket,
		})
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "s3_init_failed", err)
			os.Exit(1)
		}
		creds = auth.Static{Authenticated: true}
	}

	// Progress store with its retention sweeper.
	store := upload.NewStore(settings.StoreMaxEntries, settings.StoreRetention)
	go store.RunSweeper(ctx, settings.SweepInterval)

	// Worker pool driving the detached transfers.
	pool := upload.NewPool(settings.Workers, settings.QueueSize)
	defer pool.Stop()

	orch := upload.NewOrchestrator(store, gateway, creds, pool, settings.SampleInterval)

	srv := server.New(server.Config{
		Addr:           settings.Addr,
		Build:          build,
		Orchestrator:   orch,
		Gateway:        gateway,
		Creds:          creds,
		Flow:           flow,
		Backend:        settings.Backend,
		MaxUploadBytes: settings.MaxUploadBytes,
		MaxBatchFiles:  settings.MaxBatchFiles,
		TempDir:        settings.TempDir,
		DefaultFolder:  settings.DriveFolderID,
	})

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s backend=%s version=%s commit=%s",
			"starting", settings.Addr, settings.Backend, build.Version, build.Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		// Give the server 5 seconds to finish in-flight requests.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
