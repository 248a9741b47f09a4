package connectors

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"saku-backend/internal/shared/telemetry"
)

const stateTTL = 5 * time.Minute

// Service contains business logic for the connector registry and its OAuth
// entry points.
type Service struct {
	Repo        Repo
	Google      *GoogleOAuth
	FrontendURL string

	states *stateStore
}

// NewService constructs a Service. google may be nil when no OAuth client is
// configured; auth flows then run in link-only mode.
func NewService(repo Repo, google *GoogleOAuth, frontendURL string) *Service {
	return &Service{
		Repo:        repo,
		Google:      google,
		FrontendURL: frontendURL,
		states:      newStateStore(),
	}
}

// List returns the registry.
func (s *Service) List(ctx context.Context) ([]Connector, error) {
	return s.Repo.Load(ctx)
}

// Toggle flips the connected flag for a connector.
func (s *Service) Toggle(ctx context.Context, key string) (Connector, error) {
	list, err := s.Repo.Load(ctx)
	if err != nil {
		return Connector{}, err
	}
	for i := range list {
		if list[i].Key != key {
			continue
		}
		list[i].Connected = !list[i].Connected
		if err := s.Repo.Save(ctx, list); err != nil {
			return Connector{}, err
		}
		return list[i], nil
	}
	return Connector{}, ErrUnknown
}

// IsConnected reports whether a provider is currently connected. Registry
// failures read as disconnected.
func (s *Service) IsConnected(ctx context.Context, key string) bool {
	list, err := s.Repo.Load(ctx)
	if err != nil {
		return false
	}
	for _, c := range list {
		if c.Key == key {
			return c.Connected
		}
	}
	return false
}

// AuthURL builds the URL a client visits to connect a provider. Google-backed
// connectors go through the real consent screen when an OAuth client is
// configured; everything else gets the frontend callback link.
func (s *Service) AuthURL(ctx context.Context, key string) (string, string, error) {
	list, err := s.Repo.Load(ctx)
	if err != nil {
		return "", "", err
	}
	if !containsKey(list, key) {
		return "", "", ErrUnknown
	}

	state := uuid.NewString()
	s.states.put(state, time.Now().Add(stateTTL))

	if s.Google != nil && s.Google.Supports(key) {
		return s.Google.AuthCodeURL(key, state), state, nil
	}

	params := url.Values{"key": {key}, "state": {state}}
	return fmt.Sprintf("%s/api/connect/callback?%s", s.FrontendURL, params.Encode()), state, nil
}

// Callback completes a connect flow: validates state when one was issued,
// exchanges the authorization code best effort, marks the connector
// connected, and returns the frontend redirect target. A failed code
// exchange degrades to a plain connect; it never fails the callback.
func (s *Service) Callback(ctx context.Context, key, state, code string) (string, error) {
	list, err := s.Repo.Load(ctx)
	if err != nil {
		return "", err
	}
	if !containsKey(list, key) {
		return "", ErrUnknown
	}

	if state != "" && !s.states.consume(state) {
		telemetry.Warn("connector callback with unknown state", map[string]any{
			"connector": key,
		})
	}

	if code != "" && s.Google != nil && s.Google.Supports(key) {
		if err := s.Google.Exchange(ctx, key, code); err != nil {
			telemetry.Warn("oauth code exchange failed", map[string]any{
				"connector": key,
				"error":     err.Error(),
			})
		}
	}

	for i := range list {
		if list[i].Key == key {
			list[i].Connected = true
		}
	}
	if err := s.Repo.Save(ctx, list); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/connect?connected=%s", s.FrontendURL, url.QueryEscape(key)), nil
}

func containsKey(list []Connector, key string) bool {
	for _, c := range list {
		if c.Key == key {
			return true
		}
	}
	return false
}
