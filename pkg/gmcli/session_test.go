package gmcli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesnick/gmcli/pkg/gmcli/oauth"
)

type memoryCredentials struct {
	mu        sync.Mutex
	cfg       *Config
	tokens    *oauth.Tokens
	tokenSave int
}

func (m *memoryCredentials) LoadConfig() (Config, error) {
	if m.cfg == nil {
		return Config{}, ErrNotConfigured
	}
	return *m.cfg, nil
}

func (m *memoryCredentials) SaveConfig(c Config) error {
	m.cfg = &c
	return nil
}

func (m *memoryCredentials) LoadTokens() (oauth.Tokens, error) {
	if m.tokens == nil {
		return oauth.Tokens{}, ErrNotLoggedIn
	}
	return *m.tokens, nil
}

func (m *memoryCredentials) SaveTokens(t oauth.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = &t
	m.tokenSave++
	return nil
}

type fakeAuthenticator struct {
	store     *memoryCredentials
	next      oauth.Tokens
	err       error
	refreshes []string
	logins    int
}

func (f *fakeAuthenticator) Login(context.Context) (oauth.Tokens, error) {
	f.logins++
	return f.next, f.store.SaveTokens(f.next)
}

func (f *fakeAuthenticator) Refresh(_ context.Context, refreshToken string) (oauth.Tokens, error) {
	f.refreshes = append(f.refreshes, refreshToken)
	if f.err != nil {
		return oauth.Tokens{}, f.err
	}
	return f.next, f.store.SaveTokens(f.next)
}

// tokenGatedTransport accepts only the given bearer tokens and counts calls
// by path.
func tokenGatedTransport(valid map[string]bool, calls map[string]int) *http.Client {
	var mu sync.Mutex
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		calls[req.URL.Path]++
		mu.Unlock()
		tok := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
		if !valid[tok] {
			return &http.Response{
				StatusCode: http.StatusUnauthorized,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(strings.NewReader(`{"error":{"code":401,"message":"Invalid Credentials"}}`)),
				Request:    req,
			}, nil
		}
		return jsonResponse(http.StatusOK, `{"messages":[{"id":"m1"}],"labels":[]}`), nil
	})}
}

func newTestSession(store *memoryCredentials, auth *fakeAuthenticator, hc *http.Client) *Session {
	return &Session{
		Store:            store,
		NewAuthenticator: func(Config) Authenticator { return auth },
		HTTPClient:       hc,
	}
}

func configured(access, refresh string) *memoryCredentials {
	return &memoryCredentials{
		cfg:    &Config{ClientID: "id", ClientSecret: "secret"},
		tokens: &oauth.Tokens{AccessToken: access, RefreshToken: refresh},
	}
}

func TestEnsureClientValidToken(t *testing.T) {
	store := configured("good", "r1")
	auth := &fakeAuthenticator{store: store}
	calls := map[string]int{}
	s := newTestSession(store, auth, tokenGatedTransport(map[string]bool{"good": true}, calls))

	c, err := s.EnsureClient(context.Background())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, auth.refreshes)
	assert.Equal(t, 1, calls["/gmail/v1/users/me/messages"])
	assert.Zero(t, store.tokenSave)
}

func TestEnsureClientRefreshesExactlyOnce(t *testing.T) {
	store := configured("stale", "r1")
	auth := &fakeAuthenticator{store: store, next: oauth.Tokens{AccessToken: "fresh", RefreshToken: "r1"}}
	calls := map[string]int{}
	s := newTestSession(store, auth, tokenGatedTransport(map[string]bool{"fresh": true}, calls))

	c, err := s.EnsureClient(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, auth.refreshes)
	assert.Equal(t, 1, calls["/gmail/v1/users/me/messages"], "refreshed token is not probed again")
	assert.Equal(t, oauth.Tokens{AccessToken: "fresh", RefreshToken: "r1"}, *store.tokens)

	_, err = c.ListMessages(context.Background(), "", "INBOX", 1)
	require.NoError(t, err)
}

func TestEnsureClientNoSecondRefresh(t *testing.T) {
	store := configured("stale", "r1")
	auth := &fakeAuthenticator{store: store, next: oauth.Tokens{AccessToken: "also-bad", RefreshToken: "r1"}}
	s := newTestSession(store, auth, tokenGatedTransport(map[string]bool{}, map[string]int{}))

	c, err := s.EnsureClient(context.Background())
	require.NoError(t, err)

	_, err = c.ListLabels(context.Background())
	var herr *HTTPError
	require.True(t, errors.As(err, &herr), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, herr.Status)
	assert.Len(t, auth.refreshes, 1)
}

func TestEnsureClientRefreshFailure(t *testing.T) {
	store := configured("stale", "r1")
	auth := &fakeAuthenticator{store: store, err: oauth.ErrRefreshFailed}
	s := newTestSession(store, auth, tokenGatedTransport(map[string]bool{}, map[string]int{}))

	_, err := s.EnsureClient(context.Background())
	assert.True(t, errors.Is(err, oauth.ErrRefreshFailed), "got %v", err)
	assert.Len(t, auth.refreshes, 1)
}

func TestEnsureClientNotConfigured(t *testing.T) {
	s := newTestSession(&memoryCredentials{}, &fakeAuthenticator{}, nil)
	_, err := s.EnsureClient(context.Background())
	assert.True(t, errors.Is(err, ErrNotConfigured), "got %v", err)
}

func TestEnsureClientNotLoggedIn(t *testing.T) {
	store := &memoryCredentials{cfg: &Config{ClientID: "id", ClientSecret: "s"}}
	s := newTestSession(store, &fakeAuthenticator{store: store}, nil)
	_, err := s.EnsureClient(context.Background())
	assert.True(t, errors.Is(err, ErrNotLoggedIn), "got %v", err)
}

func TestSessionLogin(t *testing.T) {
	store := &memoryCredentials{cfg: &Config{ClientID: "id", ClientSecret: "s"}}
	auth := &fakeAuthenticator{store: store, next: oauth.Tokens{AccessToken: "a", RefreshToken: "r"}}
	s := newTestSession(store, auth, nil)

	tokens, err := s.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "r", tokens.RefreshToken)
	assert.Equal(t, 1, auth.logins)

	_, err = newTestSession(&memoryCredentials{}, auth, nil).Login(context.Background())
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
