// internal/auth/validator.go
//
// Token validator.
//
// Context
// -------
// Converts a possibly stale bearer token into a current Capabilities value
// by round-tripping to the backend's two whoami endpoints:
//
//   - GET /api/users/validate  → User bit
//   - GET /api/admin/validate  → Admin bit
//
// Each check returns true only on a 2xx status.  Any failure, including an
// unreachable backend, yields false and is never retried here.  An empty
// token short-circuits both checks without touching the network.
//
// Resolve runs both checks concurrently and returns only after both have
// finished, so callers never see a half-computed set.  When a check could
// not reach the backend, Resolve also returns ErrUnreachable: the set is
// usable for this navigation but must be computed again on the next one.
package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/cookworld/internal/api"
	"github.com/yanizio/cookworld/internal/metrics"
)

// ErrUnreachable marks a capability set computed while the backend could not
// be reached.
var ErrUnreachable = errors.New("auth: backend unreachable during validation")

// Validator is safe for concurrent use.
type Validator struct {
	api     *api.Client
	timeout time.Duration
}

// NewValidator returns a Validator over base.  timeout caps one Resolve
// round; zero means the caller's context alone bounds it.
func NewValidator(base *api.Client, timeout time.Duration) *Validator {
	return &Validator{api: base, timeout: timeout}
}

// ValidateUser reports whether token is accepted for the user role.
func (v *Validator) ValidateUser(ctx context.Context, token string) bool {
	ok, _ := v.check(ctx, "user", token, (*api.Client).ValidateUser)
	return ok
}

// ValidateAdmin reports whether token is accepted for the admin role.
func (v *Validator) ValidateAdmin(ctx context.Context, token string) bool {
	ok, _ := v.check(ctx, "admin", token, (*api.Client).ValidateAdmin)
	return ok
}

// Resolve runs both validations concurrently and waits for both.  The
// returned set is always usable; err is ErrUnreachable when either check
// failed for lack of a connection.
func (v *Validator) Resolve(ctx context.Context, token string) (Capabilities, error) {
	if token == "" {
		return Anonymous, nil
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	var (
		caps                Capabilities
		userDown, adminDown bool
		g                   errgroup.Group
	)
	g.Go(func() error {
		caps.User, userDown = v.check(ctx, "user", token, (*api.Client).ValidateUser)
		return nil
	})
	g.Go(func() error {
		caps.Admin, adminDown = v.check(ctx, "admin", token, (*api.Client).ValidateAdmin)
		return nil
	})
	_ = g.Wait() // both closures return nil; Wait is the barrier

	zap.S().Debugw("capabilities resolved", "caps", caps.String(), "unreachable", userDown || adminDown)
	if userDown || adminDown {
		return caps, ErrUnreachable
	}
	return caps, nil
}

// check reports whether call accepted token and, on failure, whether the
// backend was unreachable.
func (v *Validator) check(ctx context.Context, role, token string, call func(*api.Client, context.Context) error) (ok, unreachable bool) {
	if token == "" {
		metrics.ValidationsTotal.WithLabelValues(role, "skipped").Inc()
		return false, false
	}
	if err := call(v.api.WithToken(token), ctx); err != nil {
		result := "rejected"
		if api.IsNetwork(err) {
			result, unreachable = "unreachable", true
		}
		metrics.ValidationsTotal.WithLabelValues(role, result).Inc()
		return false, unreachable
	}
	metrics.ValidationsTotal.WithLabelValues(role, "accepted").Inc()
	return true, false
}
