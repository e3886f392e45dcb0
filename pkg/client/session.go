// Package client is the Go SDK for the subscription-tracker auth API. Its
// centrepiece is the session bootstrapper: a state machine that recovers
// an authenticated session from stored tokens at startup, refreshing
// transparently when the access token has gone stale and falling back to
// an unauthenticated state otherwise.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
)

// State is the client-visible session lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
)

// ErrUnauthenticated is returned by Login when the server rejects the
// credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

const defaultHTTPTimeout = 10 * time.Second

// Session tracks the authentication state against one API server.
// Bootstrap is single-flight: concurrent callers share one in-progress
// run instead of racing duplicate refreshes against the same stored
// tokens.
type Session struct {
	baseURL string
	httpc   *http.Client
	store   TokenStore

	mu    sync.Mutex
	state State
	user  *domain.User

	group singleflight.Group
}

// Option adjusts Session behaviour.
type Option func(*Session)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.httpc = c }
}

// New creates a Session against baseURL with tokens persisted in store.
func New(baseURL string, store TokenStore, opts ...Option) *Session {
	s := &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: defaultHTTPTimeout},
		store:   store,
		state:   StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the profile fetched by the last successful bootstrap or
// login, or nil when unauthenticated.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// AccessToken returns the stored access token, empty when none is held.
func (s *Session) AccessToken() (string, error) {
	access, _, err := s.store.Load()
	return access, err
}

// Bootstrap attempts to recover an authenticated session from stored
// tokens: profile fetch with the access token, one refresh on failure,
// one retried fetch, then give up and clear. Concurrent calls share a
// single in-flight run. Cancelling ctx abandons the caller's wait and
// discards the result for that caller; the session state is only updated
// by a run that completes.
func (s *Session) Bootstrap(ctx context.Context) (State, error) {
	ch := s.group.DoChan("bootstrap", func() (interface{}, error) {
		return s.bootstrap(ctx)
	})

	select {
	case <-ctx.Done():
		return s.State(), ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return s.State(), res.Err
		}
		return res.Val.(State), nil
	}
}

func (s *Session) bootstrap(ctx context.Context) (State, error) {
	prev := s.State()

	access, refresh, err := s.store.Load()
	if err != nil {
		return prev, fmt.Errorf("load tokens: %w", err)
	}

	// 1. Nothing stored: terminal for this cycle.
	if access == "" {
		s.apply(StateUnauthenticated, nil)
		return StateUnauthenticated, nil
	}

	// 2. Try the stored access token.
	s.apply(StateAuthenticating, nil)
	user, err := s.fetchProfile(ctx, access)
	if err == nil {
		s.apply(StateAuthenticated, user)
		return StateAuthenticated, nil
	}
	if ctx.Err() != nil {
		s.apply(prev, nil)
		return prev, ctx.Err()
	}

	// 3. Stale or rejected: one refresh attempt, never a retry loop.
	s.apply(StateRefreshing, nil)
	pair, err := s.refreshTokens(ctx, refresh)
	if err != nil {
		if ctx.Err() != nil {
			s.apply(prev, nil)
			return prev, ctx.Err()
		}
		_ = s.store.Clear()
		s.apply(StateUnauthenticated, nil)
		return StateUnauthenticated, nil
	}
	if err := s.store.Save(pair.AccessToken, pair.RefreshToken); err != nil {
		s.apply(prev, nil)
		return prev, fmt.Errorf("save tokens: %w", err)
	}

	// 4. Retry the profile fetch once with the fresh pair.
	user, err = s.fetchProfile(ctx, pair.AccessToken)
	if err != nil {
		if ctx.Err() != nil {
			s.apply(prev, nil)
			return prev, ctx.Err()
		}
		_ = s.store.Clear()
		s.apply(StateUnauthenticated, nil)
		return StateUnauthenticated, nil
	}

	s.apply(StateAuthenticated, user)
	return StateAuthenticated, nil
}

// Login authenticates with credentials, stores the issued pair, and
// transitions to authenticated.
func (s *Session) Login(ctx context.Context, email, password string) (*domain.User, error) {
	s.apply(StateAuthenticating, nil)

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	var resp sessionPayload
	status, err := s.postJSON(ctx, "/auth/login", body, &resp)
	if err != nil {
		s.apply(StateUnauthenticated, nil)
		return nil, err
	}
	if status != http.StatusOK {
		s.apply(StateUnauthenticated, nil)
		return nil, ErrUnauthenticated
	}

	if err := s.store.Save(resp.AccessToken, resp.RefreshToken); err != nil {
		return nil, fmt.Errorf("save tokens: %w", err)
	}
	s.apply(StateAuthenticated, resp.User)
	return resp.User, nil
}

// Logout tells the server (best-effort, the call is advisory) and always
// clears the local pair.
func (s *Session) Logout(ctx context.Context) error {
	access, _, _ := s.store.Load()
	if access != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/logout", nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+access)
			if resp, err := s.httpc.Do(req); err == nil {
				resp.Body.Close()
			}
		}
	}

	s.apply(StateUnauthenticated, nil)
	return s.store.Clear()
}

func (s *Session) apply(state State, user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.user = user
}

type sessionPayload struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

type userPayload struct {
	User *domain.User `json:"user"`
}

func (s *Session) fetchProfile(ctx context.Context, access string) (*domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/auth/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+access)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch: status %d", resp.StatusCode)
	}

	var payload userPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("profile fetch: %w", err)
	}
	return payload.User, nil
}

func (s *Session) refreshTokens(ctx context.Context, refresh string) (*sessionPayload, error) {
	if refresh == "" {
		return nil, errors.New("no refresh token stored")
	}

	body, err := json.Marshal(map[string]string{"refreshToken": refresh})
	if err != nil {
		return nil, err
	}
	var payload sessionPayload
	status, err := s.postJSON(ctx, "/auth/refresh", body, &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("refresh: status %d", status)
	}
	return &payload, nil
}

func (s *Session) postJSON(ctx context.Context, path string, body []byte, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
