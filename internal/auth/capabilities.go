// internal/auth/capabilities.go
//
// Capability set derived from validating a bearer token against both role
// endpoints.  The two bits are independent: an admin token is usually also
// accepted as a user token.  Anonymous means both bits are false.

package auth

// Capabilities is the pair {User, Admin}.
type Capabilities struct {
	User  bool
	Admin bool
}

var (
	Anonymous = Capabilities{}
	UserOnly  = Capabilities{User: true}
	AdminOnly = Capabilities{Admin: true}
	UserAdmin = Capabilities{User: true, Admin: true}
)

// Authenticated reports whether either bit is set.
func (c Capabilities) Authenticated() bool { return c.User || c.Admin }

// String names the set for logs and metrics.
func (c Capabilities) String() string {
	switch c {
	case UserAdmin:
		return "user+admin"
	case UserOnly:
		return "user"
	case AdminOnly:
		return "admin"
	default:
		return "anonymous"
	}
}
