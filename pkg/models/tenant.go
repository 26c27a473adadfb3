package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a customs agency or importer organization. Every document,
// declaration, and user belongs to exactly one tenant; tenants are the unit of
// data isolation and of storage accounting.
type Tenant struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	LicenceID  uuid.UUID `db:"licence_id"  json:"licence_id"`
	Name       string    `db:"name"        json:"name"`
	TaxpayerID string    `db:"taxpayer_id" json:"taxpayer_id"`
	Active     bool      `db:"active"      json:"active"`
	Verified   bool      `db:"verified"    json:"verified"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"  json:"updated_at"`
}
