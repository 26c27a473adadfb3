// Package authz computes, for a caller identity and a target entity, the
// subset of records the caller may see or mutate. The result is a Scope that
// renders to a SQL predicate; callers that do not qualify get the empty scope
// rather than an error.
package authz

import "github.com/google/uuid"

// Role names. The filter compares exact strings, so these constants are the
// single source of truth for spelling.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleImporter  = "importer"

	// RoleCustomsBroker is the sentinel role: operational roles grant
	// tenant-staff access only when held together with it.
	RoleCustomsBroker = "customs-broker"
)

// Identity describes the authenticated caller. A nil *Identity means the
// request carried no valid credentials.
type Identity struct {
	UserID     uuid.UUID
	TenantID   *uuid.UUID
	Roles      []string
	Superuser  bool
	IsImporter bool
	TaxpayerID string
}

// HasRole reports whether the identity holds the named role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity holds at least one of the named roles.
func (id *Identity) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if id.HasRole(r) {
			return true
		}
	}
	return false
}

// IsStaff reports whether the identity qualifies for tenant-staff access: an
// operational role held together with the customs-broker sentinel role. The
// conjunction is deliberate and mirrors the production access policy; if the
// double gate is ever relaxed, this is the only place to change.
func (id *Identity) IsStaff() bool {
	return id.HasAnyRole(RoleAdmin, RoleDeveloper, RoleUser) && id.HasRole(RoleCustomsBroker)
}
