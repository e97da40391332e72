// Package auth provides the credential abstraction the orchestrator
// consults before accepting a transfer. Tokens live in memory only;
// persisting credentials across restarts is out of scope.
package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DriveScope grants per-file access to files created by this app.
const DriveScope = "https://www.googleapis.com/auth/drive.file"

// OAuthProvider holds an OAuth2 authorization-code flow and the token
// it produced. It implements oauth2.TokenSource so the Drive client can
// pull (and transparently refresh) the current token.
type OAuthProvider struct {
	cfg *oauth2.Config

	mu    sync.Mutex
	token *oauth2.Token
}

// NewOAuthProvider configures the Google authorization-code flow.
func NewOAuthProvider(clientID, clientSecret, redirectURL string, scopes ...string) *OAuthProvider {
	if len(scopes) == 0 {
		scopes = []string{DriveScope}
	}
	return &OAuthProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the consent-screen URL for the given state.
func (p *OAuthProvider) AuthURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and stores it.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) error {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("oauth exchange: %w", err)
	}
	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()
	return nil
}

// SetToken installs a token directly, e.g. one loaded from the
// environment for headless deployments.
func (p *OAuthProvider) SetToken(tok *oauth2.Token) {
	p.mu.Lock()
	p.token = tok
	p.mu.Unlock()
}

// Valid reports whether a usable credential exists: either the access
// token is still live or a refresh token is present to mint a new one.
func (p *OAuthProvider) Valid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == nil {
		return false
	}
	return p.token.Valid() || p.token.RefreshToken != ""
}

// Token implements oauth2.TokenSource. Refreshed tokens are retained so
// a refresh happens once, not per request.
func (p *OAuthProvider) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	tok := p.token
	p.mu.Unlock()

	if tok == nil {
		return nil, fmt.Errorf("no credential: authenticate first")
	}
	if tok.Valid() {
		return tok, nil
	}

	fresh, err := p.cfg.TokenSource(context.Background(), tok).Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh: %w", err)
	}
	p.mu.Lock()
	p.token = fresh
	p.mu.Unlock()
	return fresh, nil
}

// Static is a fixed credential state, used by the S3 backend (keys are
// checked at client construction) and as a deterministic test double.
type Static struct {
	Authenticated bool
}

func (s Static) Valid() bool { return s.Authenticated }
