package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]string

func (f fakeSecrets) GetKV(_ context.Context, p, key string, _ time.Duration) (string, error) {
	v, ok := f[p+"#"+key]
	if !ok {
		return "", errors.New("no such secret")
	}
	return v, nil
}

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "cookworld.yaml"), []byte(body), 0o644))
	return root
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadWith(Options{Root: root})
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.HTTP.ListenAddr)
	assert.Equal(t, "cookworld_token", cfg.Session.CookieName)
	assert.Equal(t, 1500*time.Millisecond, cfg.Gate.ResolveWait)
	assert.Equal(t, filepath.Join(root, "logs"), cfg.Log.Dir)
	assert.Same(t, cfg, Get())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	root := writeYAML(t, `
http:
  listen_addr: "127.0.0.1:9000"
backend:
  base_url: "http://api.internal:8080"
  timeout: 3s
gate:
  resolve_wait: 250ms
`)
	t.Setenv("COOKWORLD_BACKEND__BASE_URL", "http://api.override:8080")
	t.Setenv("COOKWORLD_SESSION__SECURE", "true")

	cfg, err := LoadWith(Options{Root: root})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.ListenAddr)
	assert.Equal(t, "http://api.override:8080", cfg.Backend.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Gate.ResolveWait)
	assert.True(t, cfg.Session.Secure)
	// untouched keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.Gate.ValidationTimeout)
}

func TestLoad_VaultReference(t *testing.T) {
	root := writeYAML(t, `
csrf:
  key: "vault:secret/cookworld#csrf_key"
`)
	cfg, err := LoadWith(Options{
		Root:    root,
		Secrets: fakeSecrets{"secret/cookworld#csrf_key": "from-vault"},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-vault", cfg.CSRF.Key)
}

func TestLoad_MalformedVaultReference(t *testing.T) {
	root := writeYAML(t, `
csrf:
  key: "vault:secret/cookworld"
`)
	_, err := LoadWith(Options{Root: root, Secrets: fakeSecrets{}})
	assert.ErrorContains(t, err, "malformed vault reference")
}

func TestLoad_ValidationFailure(t *testing.T) {
	root := writeYAML(t, `
backend:
  base_url: "not a url"
log:
  level: chatty
`)
	_, err := LoadWith(Options{Root: root})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Backend.BaseURL (url)")
	assert.Contains(t, err.Error(), "Config.Log.Level (oneof)")
}

func TestLoad_BrokenYAML(t *testing.T) {
	root := writeYAML(t, "http: [unterminated")
	_, err := LoadWith(Options{Root: root})
	assert.Error(t, err)
}
