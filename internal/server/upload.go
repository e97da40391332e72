package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"drive-upload-relay/internal/upload"
)

// uploadAcceptedResp acknowledges a single-file submission. The actual
// transfer continues in the background; the client polls
// /upload/progress/{uploadId} with the returned id.
type uploadAcceptedResp struct {
	Success  bool   `json:"success"`
	UploadID string `json:"uploadId"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// progressResp is the polling response for one upload.
type progressResp struct {
	Success bool `json:"success"`
	upload.Record
}

// batchResp is the synchronous aggregate for /upload-multiple.
type batchResp struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Results upload.BatchResult `json:"results"`
}

// uploadHandler handles POST /upload (multipart field "file"). It
// spools the file to disk, registers it with the orchestrator, and
// acknowledges immediately with the upload id. Errors after this
// acknowledgment are only observable through polling.
func (cfg Config) uploadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reject before spooling anything when no credential exists.
		if !cfg.Creds.Valid() {
			writeError(w, http.StatusUnauthorized, "Authentication required. Visit /auth/url to authenticate.")
			return
		}

		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		form, err := cfg.spoolMultipart(r, "file", 1)
		if err != nil {
			cfg.rejectUpload(w, r, err)
			return
		}

		folder := form.Values["folderId"]
		if folder == "" {
			folder = cfg.DefaultFolder
		}

		file := form.Files[0]
		id, err := cfg.Orchestrator.Submit(file, folder)
		if err != nil {
			// The orchestrator takes no ownership on rejection; the
			// spooled file is ours to remove.
			form.discard()
			if errors.Is(err, upload.ErrAuthRequired) {
				writeError(w, http.StatusUnauthorized, "Authentication required. Visit /auth/url to authenticate.")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to start upload")
			return
		}

		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=upload_accepted id=%s file=%q size=%d", rid, id, file.Name, file.Size)

		writeJSON(w, http.StatusAccepted, uploadAcceptedResp{
			Success:  true,
			UploadID: id,
			Status:   string(upload.StatusPending),
			Progress: 0,
			Message:  fmt.Sprintf("Upload started. Poll /upload/progress/%s for status.", id),
		})
	})
}

// progressHandler handles GET /upload/progress/{uploadID}.
func (cfg Config) progressHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("uploadID")
		rec, ok := cfg.Orchestrator.Store().Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "Upload ID not found")
			return
		}
		writeJSON(w, http.StatusOK, progressResp{Success: true, Record: rec})
	})
}

// uploadMultipleHandler handles POST /upload-multiple (multipart field
// "files"). Unlike the single-file path it blocks until every transfer
// finishes and returns the aggregate directly.
func (cfg Config) uploadMultipleHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Creds.Valid() {
			writeError(w, http.StatusUnauthorized, "Authentication required. Visit /auth/url to authenticate.")
			return
		}

		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		form, err := cfg.spoolMultipart(r, "files", cfg.MaxBatchFiles)
		if err != nil {
			cfg.rejectUpload(w, r, err)
			return
		}

		folder := form.Values["folderId"]
		if folder == "" {
			folder = cfg.DefaultFolder
		}

		batch, err := cfg.Orchestrator.SubmitMany(form.Files, folder)
		if err != nil {
			form.discard()
			if errors.Is(err, upload.ErrAuthRequired) {
				writeError(w, http.StatusUnauthorized, "Authentication required. Visit /auth/url to authenticate.")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to process uploads")
			return
		}

		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=batch_complete stored=%d failed=%d", rid, len(batch.Successful), len(batch.Failed))

		writeJSON(w, http.StatusOK, batchResp{
			Success: batch.OK(),
			Message: fmt.Sprintf("%d of %d files uploaded", len(batch.Successful), len(form.Files)),
			Results: batch,
		})
	})
}

// rejectUpload maps spooling failures to HTTP statuses. MaxBytesReader
// overruns surface as 413, everything else as a validation error.
func (cfg Config) rejectUpload(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, errNoFile):
		writeError(w, http.StatusBadRequest, "No file uploaded")
	default:
		rid := RequestIDFromContext(r.Context())
		log.Printf("rid=%s msg=upload_rejected err=%v", rid, err)
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
