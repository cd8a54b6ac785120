package gmcli

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/wesnick/gmcli/pkg/gmcli/oauth"
)

// Authenticator obtains and refreshes token pairs. *oauth.Authenticator
// implements it.
type Authenticator interface {
	Login(ctx context.Context) (oauth.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (oauth.Tokens, error)
}

// Session turns stored credentials into a working Client.
type Session struct {
	Store CredentialStore

	// NewAuthenticator builds the authenticator for the stored client
	// credentials. Nil means oauth.NewAuthenticator persisting to Store.
	NewAuthenticator func(Config) Authenticator
	// HTTPClient supplies the API transport. Nil means the default.
	HTTPClient *http.Client
	// Endpoint overrides DefaultEndpoint.
	Endpoint string
}

// NewSession returns a Session over store with default collaborators.
func NewSession(store CredentialStore) *Session {
	return &Session{Store: store}
}

func (s *Session) authenticator(cfg Config) Authenticator {
	if s.NewAuthenticator != nil {
		return s.NewAuthenticator(cfg)
	}
	return oauth.NewAuthenticator(cfg.ClientID, cfg.ClientSecret, s.Store)
}

// Login runs the browser flow for the configured client.
func (s *Session) Login(ctx context.Context) (oauth.Tokens, error) {
	cfg, err := s.Store.LoadConfig()
	if err != nil {
		return oauth.Tokens{}, err
	}
	return s.authenticator(cfg).Login(ctx)
}

type sessionState int

const (
	stateFresh sessionState = iota
	stateProbeFailed
	stateRefreshed
)

// EnsureClient returns a Client whose access token has been checked.
//
// The stored access token is probed with a one-message listing. Any probe
// failure counts as expiry: the token is refreshed exactly once and a
// Client over the new token is returned without probing again.
func (s *Session) EnsureClient(ctx context.Context) (*Client, error) {
	cfg, err := s.Store.LoadConfig()
	if err != nil {
		return nil, err
	}
	tokens, err := s.Store.LoadTokens()
	if err != nil {
		return nil, err
	}

	state := stateFresh
	for {
		switch state {
		case stateFresh:
			c, err := s.client(ctx, tokens.AccessToken)
			if err != nil {
				return nil, err
			}
			_, err = c.ListMessages(ctx, "", Inbox.ID(), 1)
			if err == nil {
				return c, nil
			}
			log.Debugf("Access token probe failed, refreshing: %v", err)
			state = stateProbeFailed

		case stateProbeFailed:
			tokens, err = s.authenticator(cfg).Refresh(ctx, tokens.RefreshToken)
			if err != nil {
				return nil, err
			}
			state = stateRefreshed

		case stateRefreshed:
			return s.client(ctx, tokens.AccessToken)
		}
	}
}

func (s *Session) client(ctx context.Context, accessToken string) (*Client, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return newClient(ctx, bearerClient(accessToken, s.HTTPClient), endpoint)
}
