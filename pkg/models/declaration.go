package models

import (
	"time"

	"github.com/google/uuid"
)

// Declaration is a customs declaration (pedimento). TaxpayerID is the RFC of
// the importer the declaration was filed for; documents hang off a declaration.
type Declaration struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	TenantID     uuid.UUID `db:"tenant_id"     json:"tenant_id"`
	Number       string    `db:"number"        json:"number"`
	TaxpayerID   string    `db:"taxpayer_id"   json:"taxpayer_id"`
	TaxpayerName string    `db:"taxpayer_name" json:"taxpayer_name,omitempty"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}
