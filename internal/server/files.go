package server

import (
	"log"
	"net/http"
	"strconv"

	"drive-upload-relay/internal/storage"
)

const defaultListPageSize = 10

type listFilesResp struct {
	Success bool                  `json:"success"`
	Files   []*storage.StoredFile `json:"files"`
}

// listFilesHandler handles GET /files?pageSize=N, delegating entirely
// to the storage gateway.
func (cfg Config) listFilesHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Creds.Valid() {
			writeError(w, http.StatusUnauthorized, "Authentication required. Visit /auth/url to authenticate.")
			return
		}

		pageSize := int64(defaultListPageSize)
		if raw := r.URL.Query().Get("pageSize"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n <= 0 || n > 100 {
				writeError(w, http.StatusBadRequest, "pageSize must be between 1 and 100")
				return
			}
			pageSize = n
		}

		files, err := cfg.Gateway.ListFiles(r.Context(), pageSize)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=list_files err=%v", rid, err)
			writeError(w, http.StatusBadGateway, "Failed to list files")
			return
		}
		if files == nil {
			files = []*storage.StoredFile{}
		}

		writeJSON(w, http.StatusOK, listFilesResp{Success: true, Files: files})
	})
}
