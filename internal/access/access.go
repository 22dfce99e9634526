// Package access decides what a visitor may see for a given route.
//
// The decision procedure is a pure function over a route's declared
// requirement and the outcome of a session/profile lookup. Any ambiguity in
// the lookup (missing profile row, query error) denies elevated access
// rather than granting it.
package access

// Role is the single tagged representation of a visitor's standing,
// derived once from the profile record.
type Role int

const (
	RoleGuest Role = iota
	RoleMember
	RoleAdmin
)

// String returns the role name for logging
func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return "guest"
	}
}

// RoleFromProfile derives the Role for an authenticated user from the
// profile's admin flag.
func RoleFromProfile(isAdmin bool) Role {
	if isAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// Requirement is the static access label attached to a navigable route
type Requirement int

const (
	Public Requirement = iota
	Authenticated
	AdminOnly // implies Authenticated; there is no admin access without a session
)

// String returns the requirement name for logging
func (r Requirement) String() string {
	switch r {
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin_only"
	default:
		return "public"
	}
}

// Decision is the navigation outcome for a route request
type Decision int

const (
	Allow Decision = iota
	RedirectHome
	RedirectLogin
)

// String returns the decision name for logging
func (d Decision) String() string {
	switch d {
	case RedirectHome:
		return "redirect_home"
	case RedirectLogin:
		return "redirect_login"
	default:
		return "allow"
	}
}

// Lookup is the outcome of querying the session and profile stores for the
// current visitor. Role is only meaningful when ProfileFound is true.
type Lookup struct {
	SessionPresent bool
	ProfileFound   bool
	Role           Role
}

// FailClosed returns a lookup outcome that denies everything beyond what the
// session's presence alone grants. Used when the profile query errors.
func FailClosed(sessionPresent bool) Lookup {
	return Lookup{SessionPresent: sessionPresent}
}

// Decide maps a route requirement and a lookup outcome to a navigation
// decision. It is stateless: every navigation attempt re-evaluates from
// scratch.
//
// Unauthenticated visitors on protected routes are sent home, not to a
// login page. A failed profile lookup on an admin route is treated as
// "not admin".
func Decide(req Requirement, l Lookup) Decision {
	if req == Public {
		return Allow
	}

	if !l.SessionPresent {
		return RedirectHome
	}

	if req == Authenticated {
		return Allow
	}

	// AdminOnly: the profile row must exist and carry the admin flag.
	if !l.ProfileFound {
		return RedirectHome
	}
	if l.Role == RoleAdmin {
		return Allow
	}
	return RedirectHome
}
