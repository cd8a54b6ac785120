package gmcli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/wesnick/gmcli/pkg/gmcli/oauth"
)

const (
	// DefaultConfigDir is the default location for gmcli configuration
	DefaultConfigDir = "~/.config/gmcli"

	configFile = "config.jsonnet"
	tokenFile  = "token.json"
)

// DefaultClientSecret is used when the config omits client_secret.
// Release builds may set it with -ldflags.
var DefaultClientSecret = ""

// ConfigPaths holds paths to all config files
type ConfigPaths struct {
	Dir    string
	Config string
	Token  string
}

// GetConfigPaths returns the config paths, expanding ~ if needed
func GetConfigPaths(configDir string) (*ConfigPaths, error) {
	if configDir == "" {
		configDir = DefaultConfigDir
	}

	if len(configDir) > 0 && configDir[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		configDir = filepath.Join(home, configDir[1:])
	}

	return &ConfigPaths{
		Dir:    configDir,
		Config: filepath.Join(configDir, configFile),
		Token:  filepath.Join(configDir, tokenFile),
	}, nil
}

// Config holds the OAuth client credentials.
type Config struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Validate reports every missing field at once.
func (c Config) Validate() error {
	var res error
	if c.ClientID == "" {
		res = multierror.Append(res, errors.New("client_id is empty"))
	}
	if c.ClientSecret == "" {
		res = multierror.Append(res, errors.New("client_secret is empty"))
	}
	return res
}

// CredentialStore loads and saves client credentials and the token pair.
type CredentialStore interface {
	LoadConfig() (Config, error)
	SaveConfig(Config) error
	LoadTokens() (oauth.Tokens, error)
	SaveTokens(oauth.Tokens) error
}

// Store is the file-backed CredentialStore.
type Store struct {
	Paths *ConfigPaths
}

// NewStore returns a Store rooted at paths.
func NewStore(paths *ConfigPaths) *Store {
	return &Store{Paths: paths}
}

// LoadConfig reads config.jsonnet. A missing file or missing credentials
// yield ErrNotConfigured.
func (s *Store) LoadConfig() (Config, error) {
	b, err := os.ReadFile(s.Paths.Config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ErrNotConfigured
		}
		return Config{}, errors.Wrap(err, "reading config file")
	}
	cfg, err := ReadJsonnet(s.Paths.Config, b)
	if err != nil {
		return Config{}, err
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = DefaultClientSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as JSON, which config.jsonnet accepts as is.
func (s *Store) SaveConfig(cfg Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return s.write(s.Paths.Config, append(b, '\n'))
}

// LoadTokens reads token.json. A missing file or a file without a refresh
// token yields ErrNotLoggedIn.
func (s *Store) LoadTokens() (oauth.Tokens, error) {
	b, err := os.ReadFile(s.Paths.Token)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return oauth.Tokens{}, ErrNotLoggedIn
		}
		return oauth.Tokens{}, errors.Wrap(err, "reading token file")
	}
	var tok oauth.Tokens
	if err := json.Unmarshal(b, &tok); err != nil {
		return oauth.Tokens{}, errors.Wrapf(err, "parsing %s", s.Paths.Token)
	}
	if tok.RefreshToken == "" {
		return oauth.Tokens{}, ErrNotLoggedIn
	}
	return tok, nil
}

// SaveTokens replaces token.json.
func (s *Store) SaveTokens(tok oauth.Tokens) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return errors.Wrap(err, "encoding tokens")
	}
	log.Debugf("Saving tokens to %s", s.Paths.Token)
	return s.write(s.Paths.Token, b)
}

// write replaces name atomically with mode 0600 inside a 0700 directory.
func (s *Store) write(name string, data []byte) error {
	if err := os.MkdirAll(s.Paths.Dir, 0700); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	tmp, err := os.CreateTemp(s.Paths.Dir, filepath.Base(name)+".*")
	if err != nil {
		return errors.Wrapf(err, "creating %s", name)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "setting mode on %s", name)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", name)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), name), "replacing %s", name)
}
