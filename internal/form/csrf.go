// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF token utilities.
//
// Context
//   Every page that carries a form embeds a hidden `csrf_token` input
//   generated at render time.  POST handlers verify it before touching the
//   body.  The token is stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//   •  HMAC – keyed with the process secret (`csrf.key`).
//
//   Validation checks the signature and ensures the timestamp is within
//   MaxAge.  No server-side state is kept, so any instance can verify.
//
// Workflow
//   •  SetSecret(key)   → called once at startup with config.CSRF.Key.
//   •  GenerateToken()  → token string for the page.
//   •  VerifyToken(tok) → constant-time verify; false on any failure.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenField is the hidden input name carrying the token.
const TokenField = "csrf_token"

const (
	tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig
	maxAge     = 2 * time.Hour        // token valid window
	minKeyLen  = 32
)

var (
	secretMu  sync.RWMutex
	secretKey []byte
)

// SetSecret installs the HMAC key.  A base64url value decoding to at least
// 32 bytes is used decoded; any other value of at least 32 bytes is used as
// is.  Anything shorter, including empty, yields a random per-process key:
// tokens then stop verifying after a restart.
func SetSecret(key string) {
	secretMu.Lock()
	defer secretMu.Unlock()

	if b, err := base64.RawURLEncoding.DecodeString(key); err == nil && len(b) >= minKeyLen {
		secretKey = b
		return
	}
	if len(key) >= minKeyLen {
		secretKey = []byte(key)
		return
	}
	secretKey = randomKey()
	zap.S().Warnw("csrf.key not set or too short, using a random key")
}

// GenerateToken creates a new CSRF token.  Call once per page render.
func GenerateToken() (string, error) {
	return tokenAt(time.Now())
}

func tokenAt(now time.Time) (string, error) {
	sec := fetchSecret()

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(now.UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, sign(sec, nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyToken returns true if tok passes HMAC and age checks.
func VerifyToken(tok string) bool {
	if tok == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce := raw[:16]
	tsBytes := raw[16:24]
	sig := raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	if time.Since(issued) > maxAge || time.Until(issued) > time.Minute {
		// Older than maxAge or from the future (clock skew).
		return false
	}

	return hmac.Equal(sig, sign(fetchSecret(), nonce, tsBytes))
}

func sign(sec, nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, sec)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}

// fetchSecret returns the installed key, generating a random one when
// SetSecret was never called (tests, tools).
func fetchSecret() []byte {
	secretMu.RLock()
	k := secretKey
	secretMu.RUnlock()
	if k != nil {
		return k
	}

	secretMu.Lock()
	defer secretMu.Unlock()
	if secretKey == nil {
		secretKey = randomKey()
	}
	return secretKey
}

func randomKey() []byte {
	k := make([]byte, minKeyLen)
	_, _ = rand.Read(k)
	return k
}
