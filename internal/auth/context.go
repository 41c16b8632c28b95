// internal/auth/context.go
//
// Capability helpers placed here so views can read the gate's committed
// capability set without importing the gate.
//
// Usage
// -----
//     // The gate attaches the committed set before a view runs.
//     ctx = auth.WithCapabilities(ctx, auth.UserOnly)
//
//     // Views read it.
//     caps := auth.FromContext(ctx)   // {User: true}
//
// Notes
// -----
// • A context without a set reads as Anonymous.

package auth

import "context"

// capsKey is unexported to avoid context-key collisions.
type capsKey struct{}

// WithCapabilities returns a new context carrying caps.
func WithCapabilities(ctx context.Context, caps Capabilities) context.Context {
	return context.WithValue(ctx, capsKey{}, caps)
}

// FromContext extracts the capability set from ctx.  It returns Anonymous if
// none is set.
func FromContext(ctx context.Context) Capabilities {
	caps, _ := ctx.Value(capsKey{}).(Capabilities)
	return caps
}
