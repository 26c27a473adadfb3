package authz_test

import (
	"testing"

	"github.com/casamar/aduanet/internal/authz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(tenant *uuid.UUID, roles ...string) *authz.Identity {
	return &authz.Identity{
		UserID:   uuid.New(),
		TenantID: tenant,
		Roles:    roles,
	}
}

func TestForEntity_Unauthenticated(t *testing.T) {
	scope := authz.ForEntity(nil, authz.Documents)
	assert.True(t, scope.IsEmpty())
}

func TestForEntity_NoTenant(t *testing.T) {
	id := identity(nil, authz.RoleAdmin, authz.RoleCustomsBroker)
	scope := authz.ForEntity(id, authz.Documents)
	assert.True(t, scope.IsEmpty(), "tenant-less non-superuser must see nothing")
}

func TestForEntity_Superuser(t *testing.T) {
	id := identity(nil)
	id.Superuser = true

	scope := authz.ForEntity(id, authz.Documents)
	assert.True(t, scope.IsAll())

	cond, args := scope.Predicate(authz.Documents, 1)
	assert.Equal(t, "TRUE", cond)
	assert.Empty(t, args)
}

func TestForEntity_StaffRequiresSentinelRole(t *testing.T) {
	tenantID := uuid.New()

	for _, role := range []string{authz.RoleAdmin, authz.RoleDeveloper, authz.RoleUser} {
		// Operational role alone is not enough.
		scope := authz.ForEntity(identity(&tenantID, role), authz.Documents)
		assert.True(t, scope.IsEmpty(), "role %q without sentinel should be empty", role)

		// Together with customs-broker it scopes to the tenant.
		scope = authz.ForEntity(identity(&tenantID, role, authz.RoleCustomsBroker), authz.Documents)
		got, ok := scope.TenantID()
		require.True(t, ok, "role %q with sentinel should be tenant-scoped", role)
		assert.Equal(t, tenantID, got)
	}

	// The sentinel alone grants nothing either.
	scope := authz.ForEntity(identity(&tenantID, authz.RoleCustomsBroker), authz.Documents)
	assert.True(t, scope.IsEmpty())
}

func TestForEntity_StaffPredicateChecksTenantFlags(t *testing.T) {
	tenantID := uuid.New()
	scope := authz.ForEntity(identity(&tenantID, authz.RoleAdmin, authz.RoleCustomsBroker), authz.Documents)

	cond, args := scope.Predicate(authz.Documents, 3)
	assert.Equal(t,
		"tenant_id = $3 AND EXISTS (SELECT 1 FROM tenants t WHERE t.id = $3 AND t.active AND t.verified)",
		cond)
	assert.Equal(t, []any{tenantID}, args)
}

func TestForEntity_Importer(t *testing.T) {
	tenantID := uuid.New()
	id := identity(&tenantID, authz.RoleImporter)
	id.IsImporter = true
	id.TaxpayerID = "XAXX010101000"

	scope := authz.ForEntity(id, authz.Declarations)
	require.False(t, scope.IsEmpty())

	cond, args := scope.Predicate(authz.Declarations, 1)
	assert.Equal(t, "tenant_id = $1 AND taxpayer_id = $2", cond)
	assert.Equal(t, []any{tenantID, "XAXX010101000"}, args)
}

func TestForEntity_ImporterSubqueryForDocuments(t *testing.T) {
	tenantID := uuid.New()
	id := identity(&tenantID, authz.RoleImporter)
	id.IsImporter = true
	id.TaxpayerID = "RFC123"

	scope := authz.ForEntity(id, authz.Documents)
	cond, args := scope.Predicate(authz.Documents, 2)
	assert.Equal(t,
		"tenant_id = $2 AND declaration_id IN (SELECT id FROM declarations WHERE taxpayer_id = $3)",
		cond)
	assert.Equal(t, []any{tenantID, "RFC123"}, args)
}

func TestForEntity_ImporterRequiresFlagRoleAndRFC(t *testing.T) {
	tenantID := uuid.New()

	// Role without the is_importer flag.
	id := identity(&tenantID, authz.RoleImporter)
	id.TaxpayerID = "RFC123"
	assert.True(t, authz.ForEntity(id, authz.Declarations).IsEmpty())

	// Flag without the role.
	id = identity(&tenantID)
	id.IsImporter = true
	id.TaxpayerID = "RFC123"
	assert.True(t, authz.ForEntity(id, authz.Declarations).IsEmpty())

	// Role and flag but no registered RFC.
	id = identity(&tenantID, authz.RoleImporter)
	id.IsImporter = true
	assert.True(t, authz.ForEntity(id, authz.Declarations).IsEmpty())
}

func TestForEntity_ImporterNeedsTaxpayerReference(t *testing.T) {
	tenantID := uuid.New()
	id := identity(&tenantID, authz.RoleImporter)
	id.IsImporter = true
	id.TaxpayerID = "RFC123"

	// storage_usage has no taxpayer reference, so importers see nothing there.
	scope := authz.ForEntity(id, authz.StorageUsages)
	assert.True(t, scope.IsEmpty())

	cond, args := scope.Predicate(authz.StorageUsages, 1)
	assert.Equal(t, "FALSE", cond)
	assert.Empty(t, args)
}

func TestForEntity_UnknownRoleCombination(t *testing.T) {
	tenantID := uuid.New()
	scope := authz.ForEntity(identity(&tenantID, "auditor"), authz.Documents)
	assert.True(t, scope.IsEmpty())
}

func TestScope_NeverCrossesTenants(t *testing.T) {
	// Property from the access contract: for any non-superuser identity the
	// rendered predicate always pins the entity's tenant column to the
	// caller's own tenant.
	tenantID := uuid.New()
	ids := []*authz.Identity{
		identity(&tenantID, authz.RoleAdmin, authz.RoleCustomsBroker),
		identity(&tenantID, authz.RoleDeveloper, authz.RoleCustomsBroker),
		identity(&tenantID, authz.RoleUser, authz.RoleCustomsBroker),
	}
	imp := identity(&tenantID, authz.RoleImporter)
	imp.IsImporter = true
	imp.TaxpayerID = "RFC123"
	ids = append(ids, imp)

	for _, id := range ids {
		scope := authz.ForEntity(id, authz.Declarations)
		require.False(t, scope.IsAll())
		if scope.IsEmpty() {
			continue
		}
		got, ok := scope.TenantID()
		require.True(t, ok)
		assert.Equal(t, tenantID, got)
	}
}
