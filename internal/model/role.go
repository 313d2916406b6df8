package model

// Role is the sole basis for content-visibility decisions throughout
// stayfly: retrieval, direct property fetches, and prompt composition
// all gate on the caller's Role intersected with a record's visibility
// set.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleTourist Role = "tourist"
	RoleVendor  Role = "vendor"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether r is one of the five known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleBuyer, RoleTourist, RoleVendor, RoleStaff, RoleAdmin:
		return true
	default:
		return false
	}
}

// VisibilitySet is a set of roles allowed to see a price-gated field or
// an entire document. A nil or empty VisibilitySet means "no role may
// see this" for price fields, and is never valid for Document.Visibility
// (every document must be visible to at least one role).
type VisibilitySet map[Role]struct{}

// NewVisibilitySet builds a VisibilitySet from the given roles.
func NewVisibilitySet(roles ...Role) VisibilitySet {
	vs := make(VisibilitySet, len(roles))
	for _, r := range roles {
		vs[r] = struct{}{}
	}
	return vs
}

// Allows reports whether role is a member of vs.
func (vs VisibilitySet) Allows(role Role) bool {
	_, ok := vs[role]
	return ok
}

// Roles returns the members of vs as a slice, in no particular order.
func (vs VisibilitySet) Roles() []Role {
	roles := make([]Role, 0, len(vs))
	for r := range vs {
		roles = append(roles, r)
	}
	return roles
}
