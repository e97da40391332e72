package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

type stubFlow struct {
	exchanged string
	fail      bool
}

func (f *stubFlow) AuthURL(state string) string {
	return "https://accounts.example/consent?state=" + url.QueryEscape(state)
}

func (f *stubFlow) Exchange(ctx context.Context, code string) error {
	if f.fail {
		return errors.New("exchange refused")
	}
	f.exchanged = code
	return nil
}

func newAuthTestConfig(flow AuthFlow) Config {
	return Config{
		Flow:    flow,
		States:  NewStateCache(),
		Creds:   stubCreds{valid: false},
		Backend: BackendDrive,
	}
}

func TestStateCacheIssueConsume(t *testing.T) {
	c := NewStateCache()
	s := c.Issue()
	if s == "" {
		t.Fatal("empty state")
	}
	if !c.Consume(s) {
		t.Fatal("freshly issued state rejected")
	}
	if c.Consume(s) {
		t.Fatal("state accepted twice")
	}
	if c.Consume("forged") {
		t.Fatal("unknown state accepted")
	}
}

func TestAuthURLHandler(t *testing.T) {
	cfg := newAuthTestConfig(&stubFlow{})

	rr := httptest.NewRecorder()
	cfg.authURLHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/url", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Success bool   `json:"success"`
		AuthURL string `json:"authUrl"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.AuthURL == "" {
		t.Fatalf("body = %+v", body)
	}
}

func TestAuthURLHandlerNoFlow(t *testing.T) {
	cfg := newAuthTestConfig(nil)

	rr := httptest.NewRecorder()
	cfg.authURLHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/url", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for keyed backend", rr.Code)
	}
}

func TestOAuthCallback(t *testing.T) {
	flow := &stubFlow{}
	cfg := newAuthTestConfig(flow)
	state := cfg.States.Issue()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=abc&state="+state, nil)
	cfg.oauthCallbackHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if flow.exchanged != "abc" {
		t.Fatalf("exchanged code = %q", flow.exchanged)
	}
}

func TestOAuthCallbackRejectsBadState(t *testing.T) {
	cfg := newAuthTestConfig(&stubFlow{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=abc&state=forged", nil)
	cfg.oauthCallbackHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestOAuthCallbackMissingCode(t *testing.T) {
	cfg := newAuthTestConfig(&stubFlow{})

	rr := httptest.NewRecorder()
	cfg.oauthCallbackHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/oauth2/callback", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestOAuthCallbackExchangeFailure(t *testing.T) {
	cfg := newAuthTestConfig(&stubFlow{fail: true})
	state := cfg.States.Issue()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=abc&state="+state, nil)
	cfg.oauthCallbackHandler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}

func TestAuthStatus(t *testing.T) {
	cfg := newAuthTestConfig(&stubFlow{})

	rr := httptest.NewRecorder()
	cfg.authStatusHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/status", nil))

	var body struct {
		Success       bool   `json:"success"`
		Backend       string `json:"backend"`
		Authenticated bool   `json:"authenticated"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.Backend != BackendDrive || body.Authenticated {
		t.Fatalf("body = %+v", body)
	}
}
