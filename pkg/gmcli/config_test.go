package gmcli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesnick/gmcli/pkg/gmcli/oauth"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	paths, err := GetConfigPaths(filepath.Join(t.TempDir(), "gmcli"))
	require.NoError(t, err)
	return NewStore(paths)
}

func TestGetConfigPathsExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	paths, err := GetConfigPaths("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "gmcli"), paths.Dir)
	assert.Equal(t, filepath.Join(paths.Dir, "config.jsonnet"), paths.Config)
	assert.Equal(t, filepath.Join(paths.Dir, "token.json"), paths.Token)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := testStore(t).LoadConfig()
	assert.True(t, errors.Is(err, ErrNotConfigured), "got %v", err)
}

func TestSaveAndLoadConfig(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SaveConfig(Config{ClientID: "id.apps", ClientSecret: "shh"}))

	cfg, err := s.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Config{ClientID: "id.apps", ClientSecret: "shh"}, cfg)

	dir, err := os.Stat(s.Paths.Dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dir.Mode().Perm())
	file, err := os.Stat(s.Paths.Config)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), file.Mode().Perm())
}

func TestLoadConfigJsonnet(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.MkdirAll(s.Paths.Dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(s.Paths.Dir, "secret.libsonnet"), []byte(`"from-import"`), 0600))
	require.NoError(t, os.WriteFile(s.Paths.Config, []byte(`
// Client credentials.
local project = 'my-project';
{
  client_id: project + '.apps.example.com',
  client_secret: import 'secret.libsonnet',
}
`), 0600))

	cfg, err := s.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "my-project.apps.example.com", cfg.ClientID)
	assert.Equal(t, "from-import", cfg.ClientSecret)
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.MkdirAll(s.Paths.Dir, 0700))
	require.NoError(t, os.WriteFile(s.Paths.Config, []byte(`{client_id: "a", client_secret: "b", clientid: "typo"}`), 0600))

	_, err := s.LoadConfig()
	assert.ErrorContains(t, err, "clientid")
}

func TestLoadConfigInvalidJsonnet(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.MkdirAll(s.Paths.Dir, 0700))
	require.NoError(t, os.WriteFile(s.Paths.Config, []byte(`{client_id: }`), 0600))

	_, err := s.LoadConfig()
	assert.ErrorContains(t, err, "parsing jsonnet")
}

func TestLoadConfigDefaultSecret(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SaveConfig(Config{ClientID: "id"}))

	_, err := s.LoadConfig()
	assert.True(t, errors.Is(err, ErrNotConfigured), "got %v", err)
	assert.ErrorContains(t, err, "client_secret is empty")

	old := DefaultClientSecret
	DefaultClientSecret = "built-in"
	t.Cleanup(func() { DefaultClientSecret = old })

	cfg, err := s.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "built-in", cfg.ClientSecret)
}

func TestValidateReportsAllProblems(t *testing.T) {
	err := Config{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id is empty")
	assert.Contains(t, err.Error(), "client_secret is empty")
}

func TestTokensRoundTrip(t *testing.T) {
	s := testStore(t)

	_, err := s.LoadTokens()
	assert.True(t, errors.Is(err, ErrNotLoggedIn), "got %v", err)

	want := oauth.Tokens{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, s.SaveTokens(want))
	got, err := s.LoadTokens()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(s.Paths.Token)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(s.Paths.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadTokensWithoutRefreshToken(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.SaveTokens(oauth.Tokens{AccessToken: "a"}))

	_, err := s.LoadTokens()
	assert.True(t, errors.Is(err, ErrNotLoggedIn), "got %v", err)
}
