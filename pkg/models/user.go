package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated account. TenantID is nil for accounts not yet bound
// to an organization (only superusers can act without one). TaxpayerID holds
// the user's registered RFC, used for importer self-service filtering.
type User struct {
	ID           uuid.UUID  `db:"id"            json:"id"`
	TenantID     *uuid.UUID `db:"tenant_id"     json:"tenant_id,omitempty"`
	Email        string     `db:"email"         json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Roles        []string   `db:"roles"         json:"roles"`
	Superuser    bool       `db:"superuser"     json:"superuser"`
	IsImporter   bool       `db:"is_importer"   json:"is_importer"`
	TaxpayerID   string     `db:"taxpayer_id"   json:"taxpayer_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"    json:"updated_at"`
}
