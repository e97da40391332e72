package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"drive-upload-relay/internal/storage"
)

// ErrAuthRequired is returned by Submit and SubmitMany when no valid
// provider credential is available. No transfer is started and the
// caller keeps ownership of the temporary files.
var ErrAuthRequired = errors.New("authentication required")

// CredentialSource reports whether a usable provider credential exists.
// Consulted synchronously before any transfer is accepted.
type CredentialSource interface {
	Valid() bool
}

const defaultSampleInterval = 250 * time.Millisecond

// Orchestrator accepts decoded uploads, acknowledges the caller
// immediately, and drives each transfer to the storage gateway as a
// detached job on a worker pool. Per-upload state lives in the Store.
type Orchestrator struct {
	store    *Store
	gateway  storage.Gateway
	creds    CredentialSource
	pool     *Pool
	interval time.Duration
}

// NewOrchestrator wires the orchestrator. A non-positive sampleInterval
// selects the default progress sampling interval.
func NewOrchestrator(store *Store, gw storage.Gateway, creds CredentialSource, pool *Pool, sampleInterval time.Duration) *Orchestrator {
	if sampleInterval <= 0 {
		sampleInterval = defaultSampleInterval
	}
	return &Orchestrator{
		store:    store,
		gateway:  gw,
		creds:    creds,
		pool:     pool,
		interval: sampleInterval,
	}
}

// Store exposes the progress store for polling handlers.
func (o *Orchestrator) Store() *Store {
	return o.store
}

// Submit registers file for transfer and returns its upload id. The
// progress record exists before Submit returns; everything after the
// return happens on the worker pool. Ownership of the temporary file
// passes to the transfer job, except on error, where the caller keeps
// it (no job was created).
func (o *Orchestrator) Submit(file TemporaryFile, folderID string) (string, error) {
	if !o.creds.Valid() {
		return "", ErrAuthRequired
	}

	id := newUploadID()
	o.store.Create(id)
	o.pool.Submit(func() {
		o.transfer(id, file, folderID)
	})
	return id, nil
}

// SubmitMany fans out one independent single-file transfer per input
// file and blocks until all of them finish. Each file's cleanup and
// error handling is its own; one failure never aborts siblings.
func (o *Orchestrator) SubmitMany(files []TemporaryFile, folderID string) (BatchResult, error) {
	if !o.creds.Valid() {
		return BatchResult{}, ErrAuthRequired
	}

	type outcome struct {
		result *storage.StoredFile
		err    error
	}

	results := make([]outcome, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		o.pool.Submit(func() {
			defer wg.Done()
			stored, err := o.transferFile(context.Background(), f, folderID, nil)
			results[i] = outcome{result: stored, err: err}
		})
	}
	wg.Wait()

	batch := BatchResult{
		Successful: []Result{},
		Failed:     []FileFailure{},
	}
	for i, out := range results {
		if out.err != nil {
			batch.Failed = append(batch.Failed, FileFailure{Name: files[i].Name, Error: out.err.Error()})
			continue
		}
		batch.Successful = append(batch.Successful, storedResult(out.result))
	}
	return batch, nil
}

// transfer runs one detached upload to completion, finalizing the
// progress record on every path.
func (o *Orchestrator) transfer(id string, file TemporaryFile, folderID string) {
	o.store.Update(id, Patch{Status: StatusInProgress})

	stored, err := o.transferFile(context.Background(), file, folderID, func(pct int) {
		o.store.Update(id, Patch{Progress: &pct})
	})
	if err != nil {
		log.Printf("service=orchestrator msg=%q id=%s file=%q err=%v", "transfer_failed", id, file.Name, err)
		o.store.Update(id, Patch{Status: StatusError, ErrorMessage: err.Error()})
		return
	}

	full := 100
	result := storedResult(stored)
	o.store.Update(id, Patch{Status: StatusDone, Progress: &full, Result: &result})
	log.Printf("service=orchestrator msg=%q id=%s file=%q provider_id=%s", "transfer_done", id, file.Name, stored.ID)
}

// transferFile streams one temporary file into the gateway. The
// temporary file is deleted exactly once before this returns, on
// success and on every failure path.
func (o *Orchestrator) transferFile(ctx context.Context, file TemporaryFile, folderID string, onProgress ProgressFunc) (*storage.StoredFile, error) {
	defer func() {
		if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("service=orchestrator msg=%q path=%q err=%v", "temp_cleanup_failed", file.Path, err)
		}
	}()

	fh, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open temp file: %w", err)
	}
	defer func() { _ = fh.Close() }()

	r := NewProgressReader(fh, file.Size, o.interval, onProgress)
	stored, err := o.gateway.CreateFile(ctx, r, file.Name, file.MIMEType, folderID)
	if err != nil {
		return nil, fmt.Errorf("create file %q: %w", file.Name, err)
	}
	return stored, nil
}

func storedResult(sf *storage.StoredFile) Result {
	return Result{
		ID:             sf.ID,
		Name:           sf.Name,
		WebViewLink:    sf.WebViewLink,
		WebContentLink: sf.WebContentLink,
	}
}

// newUploadID builds an id from the submission time in milliseconds and
// a random suffix, so concurrent submissions within the same
// millisecond cannot collide.
func newUploadID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
