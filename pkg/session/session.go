// Package session carries the caller identity handed to access checks.
// The admin core treats it as opaque apart from passing it to predicates.
package session

import "context"

// Session is the authenticated (or anonymous) caller of an admin operation.
type Session struct {
	Subject string
	Tenant  string
	Roles   []string
}

// Anonymous reports whether no subject is attached.
func (s Session) Anonymous() bool { return s.Subject == "" }

// HasRole reports whether the session holds any of the given roles.
func (s Session) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range s.Roles {
			if want == have {
				return true
			}
		}
	}
	return false
}

type ctxKey struct{}

// WithSession stores s in the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(ctxKey{}).(Session)
	return s
}
