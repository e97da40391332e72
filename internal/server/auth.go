package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const stateTTL = 10 * time.Minute

// StateCache tracks outstanding OAuth state values so the callback can
// reject forged redirects. States expire after stateTTL.
type StateCache struct {
	mu     sync.Mutex
	states map[string]time.Time
}

func NewStateCache() *StateCache {
	return &StateCache{states: make(map[string]time.Time)}
}

// Issue registers and returns a fresh state value.
func (c *StateCache) Issue() string {
	state := uuid.NewString()
	c.mu.Lock()
	c.states[state] = time.Now().Add(stateTTL)
	c.mu.Unlock()
	return state
}

// Consume validates and removes a state value. Expired entries are
// pruned as a side effect.
func (c *StateCache) Consume(state string) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for s, deadline := range c.states {
		if now.After(deadline) {
			delete(c.states, s)
		}
	}
	if _, ok := c.states[state]; !ok {
		return false
	}
	delete(c.states, state)
	return true
}

// authURLHandler handles GET /auth/url, returning the provider consent
// URL. 404 when the backend has no interactive flow.
func (cfg Config) authURLHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Flow == nil {
			writeError(w, http.StatusNotFound, "Interactive authentication is not used by this backend")
			return
		}
		state := cfg.States.Issue()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"authUrl": cfg.Flow.AuthURL(state),
		})
	})
}

// oauthCallbackHandler handles GET /oauth2/callback?code=...&state=...,
// exchanging the authorization code for a token.
func (cfg Config) oauthCallbackHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cfg.Flow == nil {
			writeError(w, http.StatusNotFound, "Interactive authentication is not used by this backend")
			return
		}

		q := r.URL.Query()
		if errMsg := q.Get("error"); errMsg != "" {
			writeError(w, http.StatusBadRequest, "Authorization denied: "+errMsg)
			return
		}
		code := q.Get("code")
		if code == "" {
			writeError(w, http.StatusBadRequest, "Missing authorization code")
			return
		}
		if !cfg.States.Consume(q.Get("state")) {
			writeError(w, http.StatusBadRequest, "Invalid or expired state")
			return
		}

		if err := cfg.Flow.Exchange(r.Context(), code); err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=oauth_exchange err=%v", rid, err)
			writeError(w, http.StatusBadGateway, "Token exchange failed")
			return
		}

		Info("authentication complete", nil)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Authentication complete. Uploads are now accepted.",
		})
	})
}

// authStatusHandler handles GET /auth/status.
func (cfg Config) authStatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"backend":       cfg.Backend,
			"authenticated": cfg.Creds.Valid(),
		})
	})
}
