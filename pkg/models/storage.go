package models

import (
	"time"

	"github.com/google/uuid"
)

// StorageUsage is the per-tenant quota ledger entry: one row per tenant,
// created lazily on first reference, holding the running byte count of all
// documents the tenant owns. Mutated only inside document lifecycle
// transactions under a row-level lock.
type StorageUsage struct {
	TenantID  uuid.UUID `db:"tenant_id"  json:"tenant_id"`
	BytesUsed int64     `db:"bytes_used" json:"bytes_used"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StorageReport is the aggregate returned by the storage reporting endpoint.
// BytesUsed is recomputed from document rows before the report is built, so
// the figure self-corrects even if the ledger drifted.
type StorageReport struct {
	Tenant           string  `json:"tenant"`
	QuotaGB          int     `json:"quota_gb"`
	BytesUsed        int64   `json:"bytes_used"`
	UsedGB           float64 `json:"used_gb"`
	BytesAvailable   int64   `json:"bytes_available"`
	PercentUsed      float64 `json:"percent_used"`
	DocumentCount    int     `json:"document_count"`
	DeclarationCount int     `json:"declaration_count"`
	UserCount        int     `json:"user_count"`
}
