package admin

import (
	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

// AccessConfig is the global page access policy.
type AccessConfig struct {
	// Enabled switches authorization on. When false every entity is open.
	Enabled bool
	// IsLoggedIn reports whether a session is authenticated. A nil func
	// denies everything once auth is enabled.
	IsLoggedIn func(session.Session) bool
}

// LoggedIn treats any session with a subject as authenticated.
func LoggedIn(s session.Session) bool { return !s.Anonymous() }

// CanAccess evaluates the access policy. An entity predicate can only narrow
// the global login requirement, never widen it.
func CanAccess(s session.Session, cfg AccessConfig, entityAccess viewmodel.AccessFunc) bool {
	if !cfg.Enabled {
		return true
	}
	if entityAccess != nil && !entityAccess(s) {
		return false
	}
	if cfg.IsLoggedIn == nil {
		return false
	}
	return cfg.IsLoggedIn(s)
}
