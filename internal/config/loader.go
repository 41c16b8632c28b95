// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  1. Defaults() baked into the binary.
  2. Optional `.env` file at `<root>/conf/.env`.
  3. Optional `conf/cookworld.yaml`.
  4. Environment variables prefixed `COOKWORLD_`, where `__` maps to “.”
     (e.g., `COOKWORLD_BACKEND__BASE_URL → backend.base_url`).

Before unmarshalling, every string value shaped like
`vault:<mount/path>#<key>` is replaced with the secret read from Vault.  The
Vault client is only dialled when at least one reference exists.

After merging, the tree is unmarshalled on top of the defaults, validated,
enriched with the runtime root path, and cached in an `atomic.Pointer` for
lock-free reads.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, vault resolution.
  • ERROR spans: YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span: final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/cookworld/internal/vault"
)

const (
	envPrefix = "COOKWORLD_"
	yamlName  = "cookworld.yaml"
	vaultRef  = "vault:"
	secretTTL = 10 * time.Minute
)

var current atomic.Pointer[Config]

// SecretSource resolves `vault:` references.  *vault.Client satisfies it.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// Options tweaks LoadWith.  The zero value behaves like Load().
type Options struct {
	Root    string       // skip root discovery when set
	Secrets SecretSource // dialled lazily from VAULT_* env when nil
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves COOKWORLD_ROOT or climbs directories until
// conf/cookworld.yaml is found.  Falls back to the working directory.
func rootDir() string {
	if r := os.Getenv("COOKWORLD_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", yamlName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads every layer, validates, and caches Config.
func Load() (*Config, error) { return LoadWith(Options{}) }

// LoadWith is Load with an explicit root and secret source.
func LoadWith(opts Options) (*Config, error) {
	root := opts.Root
	if root == "" {
		root = rootDir()
	}
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", yamlName)
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, fmt.Errorf("load %s: %w", yamlPath, err)
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// Env overrides: COOKWORLD_BACKEND__BASE_URL → backend.base_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	if err := resolveSecrets(context.Background(), k, opts.Secrets); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Paths.Root = root
	if !filepath.IsAbs(cfg.Log.Dir) {
		cfg.Log.Dir = filepath.Join(root, cfg.Log.Dir)
	}
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"backend", cfg.Backend.BaseURL,
		"force_https", cfg.HTTP.ForceHTTPS,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── vault refs ──────────────────────────────────*/

// resolveSecrets swaps every `vault:` string in k for its secret value.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, src SecretSource) error {
	refs := map[string]string{}
	for key, val := range k.All() {
		if s, ok := val.(string); ok && strings.HasPrefix(s, vaultRef) {
			refs[key] = strings.TrimPrefix(s, vaultRef)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	if src == nil {
		cli, err := vault.New(ctx)
		if err != nil {
			return fmt.Errorf("vault client: %w", err)
		}
		src = cli
	}

	for key, ref := range refs {
		path, field, ok := strings.Cut(ref, "#")
		if !ok || path == "" || field == "" {
			return fmt.Errorf("config %s: malformed vault reference %q", key, vaultRef+ref)
		}
		val, err := src.GetKV(ctx, path, field, secretTTL)
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key, "path", path)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the last loaded Config, or nil before the first Load.
func Get() *Config { return current.Load() }
