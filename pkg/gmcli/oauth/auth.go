// Package oauth implements the installed-app authorization code flow with
// PKCE against a loopback redirect, and access token refresh.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
)

const (
	// AuthURL is the provider's authorization endpoint.
	AuthURL = "https://accounts.google.com/o/oauth2/v2/auth"
	// TokenURL is the provider's token endpoint.
	TokenURL = "https://oauth2.googleapis.com/token"

	// Scope is the single mailbox read/modify scope requested at login.
	Scope = gmail.GmailModifyScope
)

var (
	// ErrCSRFMismatch is returned when the callback state does not match the
	// one generated for the login attempt. No code is exchanged.
	ErrCSRFMismatch = errors.New("CSRF state mismatch")
	// ErrMissingCode is returned when the callback carries no code.
	ErrMissingCode = errors.New("no code in callback")
	// ErrExchangeFailed wraps failures of the code-for-token exchange.
	ErrExchangeFailed = errors.New("exchanging authorization code failed")
	// ErrNoRefreshToken is returned when the exchange yields no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token received")
	// ErrRefreshFailed wraps failures of the refresh-token grant.
	ErrRefreshFailed = errors.New("refreshing access token failed")
)

// Authenticator drives login and refresh for one OAuth client.
type Authenticator struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint

	// Store receives every new token pair.
	Store TokenSaver
	// OpenBrowser is handed the authorization URL. Failure is not fatal.
	OpenBrowser func(url string) error
	// HTTPClient talks to the token endpoint. It must not follow redirects.
	HTTPClient *http.Client
}

// NewAuthenticator returns an Authenticator for the default provider
// endpoints.
func NewAuthenticator(clientID, clientSecret string, store TokenSaver) *Authenticator {
	return &Authenticator{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Store:       store,
		OpenBrowser: OpenURL,
		HTTPClient:  NoRedirectClient(),
	}
}

// NoRedirectClient returns an HTTP client that hands 3xx responses back to
// the caller instead of following them.
func NoRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *Authenticator) config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		Endpoint:     a.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{Scope},
	}
}

func (a *Authenticator) httpContext(ctx context.Context) context.Context {
	hc := a.HTTPClient
	if hc == nil {
		hc = NoRedirectClient()
	}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

// pendingAuthorization lives for exactly one login attempt.
type pendingAuthorization struct {
	state    string
	verifier string
	port     int
}

func newPendingAuthorization(port int) (*pendingAuthorization, error) {
	state, err := generateOauthState()
	if err != nil {
		return nil, err
	}
	return &pendingAuthorization{
		state:    state,
		verifier: oauth2.GenerateVerifier(),
		port:     port,
	}, nil
}

func (p *pendingAuthorization) redirectURL() string {
	return fmt.Sprintf("http://localhost:%d", p.port)
}

func generateOauthState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating OAuth state")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// authCodeURL builds the authorization URL for a pending attempt.
func (a *Authenticator) authCodeURL(p *pendingAuthorization) string {
	return a.config(p.redirectURL()).AuthCodeURL(p.state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(p.verifier),
	)
}

// Login runs the browser authorization flow and persists the resulting
// token pair. It blocks until the redirect arrives or ctx is cancelled.
func (a *Authenticator) Login(ctx context.Context) (Tokens, error) {
	cb, err := listenLoopback()
	if err != nil {
		return Tokens{}, err
	}
	defer cb.Close()

	pending, err := newPendingAuthorization(cb.Port())
	if err != nil {
		return Tokens{}, err
	}

	authURL := a.authCodeURL(pending)
	log.Infof("Opening browser for authentication. If nothing opens, visit:\n\n%s\n", authURL)
	if a.OpenBrowser != nil {
		if err := a.OpenBrowser(authURL); err != nil {
			log.Warnf("Could not open a browser: %v", err)
		}
	}

	code, err := cb.Await(ctx, pending.state)
	if err != nil {
		return Tokens{}, err
	}

	tok, err := a.config(pending.redirectURL()).Exchange(a.httpContext(ctx), code,
		oauth2.VerifierOption(pending.verifier))
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	if tok.RefreshToken == "" {
		return Tokens{}, ErrNoRefreshToken
	}

	tokens := Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if err := a.save(tokens); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

// Refresh exchanges refreshToken for a new access token and persists the
// result. The given refresh token is kept unless the provider rotates it.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	src := a.config("").TokenSource(a.httpContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	tokens := Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
	}
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		log.Debugf("Provider rotated the refresh token")
		tokens.RefreshToken = tok.RefreshToken
	}
	if err := a.save(tokens); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

func (a *Authenticator) save(tokens Tokens) error {
	if a.Store == nil {
		return nil
	}
	return errors.Wrap(a.Store.SaveTokens(tokens), "saving tokens")
}
