package auth

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestOAuthProviderStartsInvalid(t *testing.T) {
	p := NewOAuthProvider("id", "secret", "http://localhost/oauth2/callback")
	if p.Valid() {
		t.Fatal("provider valid before any token exists")
	}
	if _, err := p.Token(); err == nil {
		t.Fatal("expected token error before authentication")
	}
}

func TestOAuthProviderValidity(t *testing.T) {
	tests := []struct {
		name  string
		token *oauth2.Token
		want  bool
	}{
		{
			name:  "live access token",
			token: &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)},
			want:  true,
		},
		{
			name:  "expired with refresh token",
			token: &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(-time.Hour)},
			want:  true,
		},
		{
			name:  "expired without refresh token",
			token: &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(-time.Hour)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewOAuthProvider("id", "secret", "http://localhost/oauth2/callback")
			p.SetToken(tt.token)
			if got := p.Valid(); got != tt.want {
				t.Fatalf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOAuthProviderTokenReturnsLiveToken(t *testing.T) {
	p := NewOAuthProvider("id", "secret", "http://localhost/oauth2/callback")
	live := &oauth2.Token{AccessToken: "live", Expiry: time.Now().Add(time.Hour)}
	p.SetToken(live)

	got, err := p.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if got.AccessToken != "live" {
		t.Fatalf("access token = %q", got.AccessToken)
	}
}

func TestAuthURLCarriesStateAndClient(t *testing.T) {
	p := NewOAuthProvider("my-client", "secret", "http://localhost/oauth2/callback")
	u := p.AuthURL("state-123")
	if !strings.Contains(u, "state=state-123") {
		t.Fatalf("auth url missing state: %s", u)
	}
	if !strings.Contains(u, "my-client") {
		t.Fatalf("auth url missing client id: %s", u)
	}
}

func TestStaticCredential(t *testing.T) {
	if !(Static{Authenticated: true}).Valid() {
		t.Fatal("authenticated static credential reported invalid")
	}
	if (Static{}).Valid() {
		t.Fatal("zero static credential reported valid")
	}
}
