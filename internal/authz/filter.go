package authz

import (
	"fmt"

	"github.com/google/uuid"
)

// Entity declares how an entity's table relates to tenants and taxpayers, so
// the filter can be applied uniformly to any record type. TaxpayerExpr is a
// SQL fragment with a single %s placeholder for the RFC bind parameter; it is
// empty for entities with no taxpayer association, which disables the importer
// self-service branch for them.
type Entity struct {
	Table        string
	TenantColumn string
	TaxpayerExpr string
}

// Entity descriptors for the tables the filter is applied to. Documents reach
// their taxpayer through the parent declaration.
var (
	Documents = Entity{
		Table:        "documents",
		TenantColumn: "tenant_id",
		TaxpayerExpr: "declaration_id IN (SELECT id FROM declarations WHERE taxpayer_id = %s)",
	}
	Declarations = Entity{
		Table:        "declarations",
		TenantColumn: "tenant_id",
		TaxpayerExpr: "taxpayer_id = %s",
	}
	StorageUsages = Entity{
		Table:        "storage_usage",
		TenantColumn: "tenant_id",
	}
)

type scopeKind int

const (
	scopeNone scopeKind = iota
	scopeAll
	scopeTenant
	scopeTenantTaxpayer
)

// Scope is the visible subset of an entity's records for one caller. The zero
// value is the empty scope.
type Scope struct {
	kind       scopeKind
	tenantID   uuid.UUID
	taxpayerID string
}

// ScopeAll is the unrestricted scope (superuser reads).
func ScopeAll() Scope { return Scope{kind: scopeAll} }

// ScopeNone is the empty scope; no record matches it.
func ScopeNone() Scope { return Scope{} }

// ScopeTenant restricts to records of one tenant, which must itself be active
// and verified.
func ScopeTenant(tenantID uuid.UUID) Scope {
	return Scope{kind: scopeTenant, tenantID: tenantID}
}

// ScopeTenantTaxpayer further restricts a tenant scope to records associated
// with one taxpayer RFC.
func ScopeTenantTaxpayer(tenantID uuid.UUID, taxpayerID string) Scope {
	return Scope{kind: scopeTenantTaxpayer, tenantID: tenantID, taxpayerID: taxpayerID}
}

// IsEmpty reports whether no record can match the scope.
func (s Scope) IsEmpty() bool { return s.kind == scopeNone }

// IsAll reports whether every record matches the scope.
func (s Scope) IsAll() bool { return s.kind == scopeAll }

// TenantID returns the tenant the scope is bound to, if any.
func (s Scope) TenantID() (uuid.UUID, bool) {
	if s.kind == scopeTenant || s.kind == scopeTenantTaxpayer {
		return s.tenantID, true
	}
	return uuid.Nil, false
}

// ForEntity computes the caller's scope over the given entity. The decision
// table, in order:
//
//   - unauthenticated, or no tenant and not superuser: empty
//   - superuser: everything
//   - operational role plus the customs-broker sentinel: own tenant, and the
//     tenant must be active and verified
//   - importer role with the importer flag set, on an entity that exposes a
//     taxpayer reference: own tenant narrowed to the caller's registered RFC
//   - anything else: empty
//
// It never returns an error; non-qualifying callers simply see nothing, and
// the HTTP layer turns "record not in scope" into not-found.
func ForEntity(id *Identity, e Entity) Scope {
	if id == nil {
		return ScopeNone()
	}
	if id.Superuser {
		return ScopeAll()
	}
	if id.TenantID == nil {
		return ScopeNone()
	}
	if id.IsStaff() {
		return ScopeTenant(*id.TenantID)
	}
	if id.HasRole(RoleImporter) && id.IsImporter && e.TaxpayerExpr != "" && id.TaxpayerID != "" {
		return ScopeTenantTaxpayer(*id.TenantID, id.TaxpayerID)
	}
	return ScopeNone()
}

// Predicate renders the scope as a SQL condition over e's table, numbering
// bind parameters from startArg. Empty and unrestricted scopes render to
// constant conditions so callers can always AND the result into a WHERE
// clause.
func (s Scope) Predicate(e Entity, startArg int) (string, []any) {
	switch s.kind {
	case scopeAll:
		return "TRUE", nil
	case scopeTenant:
		cond := fmt.Sprintf(
			"%s = $%d AND EXISTS (SELECT 1 FROM tenants t WHERE t.id = $%d AND t.active AND t.verified)",
			e.TenantColumn, startArg, startArg)
		return cond, []any{s.tenantID}
	case scopeTenantTaxpayer:
		cond := fmt.Sprintf("%s = $%d AND ", e.TenantColumn, startArg)
		cond += fmt.Sprintf(e.TaxpayerExpr, fmt.Sprintf("$%d", startArg+1))
		return cond, []any{s.tenantID, s.taxpayerID}
	default:
		return "FALSE", nil
	}
}
