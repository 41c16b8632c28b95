// internal/config/model.go
//
// Typed configuration model for CookWorld web.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four overlay layers:
//
//   • built-in defaults                          – Defaults() below,
//   • optional `conf/.env`                       – dotenv values,
//   • optional `conf/cookworld.yaml`             – primary static file,
//   • `COOKWORLD_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`.  Koanf ignores `yaml` tags.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gt=0"`

	// TrustedProxies are CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `koanf:"trusted_proxies" validate:"dive,cidr"`
}

//
// Backend section
//

// Backend points at the CookWorld REST API.  BaseURL carries scheme and
// host only; endpoint paths are fixed in internal/api.
type Backend struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Timeout time.Duration `koanf:"timeout"  validate:"gt=0"`
}

//
// Session section
//

// Session configures the cookie that holds the bearer token.  MaxAge is the
// cookie lifetime used when the token carries no readable `exp` claim.
type Session struct {
	CookieName string        `koanf:"cookie_name" validate:"required"`
	Secure     bool          `koanf:"secure"`
	MaxAge     time.Duration `koanf:"max_age"     validate:"gt=0"`
}

//
// Gate section
//

// Gate tunes the capability registry.
//
// ResolveWait is how long a navigation waits for a fresh session's two
// validations before the loading view is shown.  ValidationTimeout caps the
// whole validation round trip.
type Gate struct {
	ResolveWait       time.Duration `koanf:"resolve_wait"       validate:"gte=0"`
	ValidationTimeout time.Duration `koanf:"validation_timeout" validate:"gt=0"`
	IdleTTL           time.Duration `koanf:"idle_ttl"           validate:"gt=0"`
	MaxEntries        int           `koanf:"max_entries"        validate:"gte=0"`
	EvictInterval     time.Duration `koanf:"evict_interval"     validate:"gt=0"`
}

//
// Security sections
//

// CSRF holds the HMAC key for form tokens.  Usually a `vault:` reference.
// Empty means a random per-process key.
type CSRF struct {
	Key string `koanf:"key"`
}

// RateLimit caps auth POSTs per client IP.
type RateLimit struct {
	AuthPerMinute int `koanf:"auth_per_minute" validate:"gt=0"`
}

//
// Observability sections
//

// Log configures the zap logger.
type Log struct {
	Dir   string `koanf:"dir"   validate:"required"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// GeoIP optionally enables MaxMind lookups in request logs.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // COOKWORLD_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Backend   Backend   `koanf:"backend"`
	Session   Session   `koanf:"session"`
	Gate      Gate      `koanf:"gate"`
	CSRF      CSRF      `koanf:"csrf"`
	RateLimit RateLimit `koanf:"ratelimit"`
	Log       Log       `koanf:"log"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Paths     Paths     `koanf:"-"`
}

// Defaults returns the baseline every layer overrides.
func Defaults() Config {
	return Config{
		HTTP: HTTP{
			ListenAddr:   ":3000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Backend: Backend{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Session: Session{
			CookieName: "cookworld_token",
			MaxAge:     14 * 24 * time.Hour,
		},
		Gate: Gate{
			ResolveWait:       1500 * time.Millisecond,
			ValidationTimeout: 5 * time.Second,
			IdleTTL:           30 * time.Minute,
			MaxEntries:        10000,
			EvictInterval:     5 * time.Minute,
		},
		RateLimit: RateLimit{AuthPerMinute: 10},
		Log:       Log{Dir: "logs", Level: "info"},
	}
}
