package connectors

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// googleScopes maps google-backed connector keys to the scopes they need.
var googleScopes = map[string][]string{
	"gmail":    {"https://www.googleapis.com/auth/gmail.readonly"},
	"drive":    {"https://www.googleapis.com/auth/drive.readonly"},
	"calendar": {"https://www.googleapis.com/auth/calendar.events"},
}

// GoogleOAuth wraps the oauth2 client used by google-backed connectors. Each
// connector key has its own callback path under redirectBase.
type GoogleOAuth struct {
	config       *oauth2.Config
	redirectBase string
}

// NewGoogleOAuth builds a GoogleOAuth. redirectBase is the connectors API
// base, e.g. "http://localhost:8000/api/v1/connectors". Returns nil when the
// client is not configured; callers treat nil as link-only mode.
func NewGoogleOAuth(clientID, clientSecret, redirectBase string) *GoogleOAuth {
	if clientID == "" || clientSecret == "" || redirectBase == "" {
		return nil
	}
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
		redirectBase: strings.TrimSuffix(redirectBase, "/"),
	}
}

// Supports reports whether a connector key is google-backed.
func (g *GoogleOAuth) Supports(key string) bool {
	_, ok := googleScopes[key]
	return ok
}

// AuthCodeURL returns the consent screen URL for a connector and state
// token, scoped to what that connector needs.
func (g *GoogleOAuth) AuthCodeURL(key, state string) string {
	cfg := *g.config
	cfg.Scopes = googleScopes[key]
	cfg.RedirectURL = g.redirectBase + "/" + key + "/callback"
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token. The redirect URL must
// match the one the consent screen was opened with.
func (g *GoogleOAuth) Exchange(ctx context.Context, key, code string) error {
	cfg := *g.config
	cfg.RedirectURL = g.redirectBase + "/" + key + "/callback"
	_, err := cfg.Exchange(ctx, code)
	return err
}

type stateStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	s.items[state] = exp
	s.mu.Unlock()
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	return ok && !time.Now().After(exp)
}
