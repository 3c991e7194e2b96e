// Package auth holds the request identity type and the authorization
// predicates that gate course content. Resolution of the identity from the
// session happens once per request in middleware; everything downstream
// reads the resolved value instead of touching the session again.
package auth

// Identity is the authenticated user attached to a request. The zero value
// is the anonymous identity.
type Identity struct {
	ID    uint64
	Name  string
	Email string
	Role  string
}

// Anonymous reports whether no user is logged in on this request.
func (i Identity) Anonymous() bool { return i.ID == 0 }
