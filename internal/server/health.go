package server

import (
	"net/http"
	"time"
)

// ComponentStatus represents the health of an individual component.
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health is the health check response body.
type Health struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentStatus `json:"components"`
}

// healthHandler handles GET /health. Credential validity is the one
// dependency cheap enough to check inline; storage reachability is
// left to the provider calls themselves.
func (cfg Config) healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authStatus := ComponentStatusDown
		if cfg.Creds.Valid() {
			authStatus = ComponentStatusUp
		}

		writeJSON(w, http.StatusOK, Health{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Version:   cfg.Build.Version,
			Components: map[string]ComponentStatus{
				"auth": authStatus,
			},
		})
	})
}
