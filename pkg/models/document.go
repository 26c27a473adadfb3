package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded file attached to a declaration. Size is the payload
// length in bytes and is what the tenant's storage ledger accounts for; rows
// are only ever written through the document lifecycle methods of the store,
// never by direct insert, so the ledger stays in step with the sum of sizes.
type Document struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	TenantID      uuid.UUID `db:"tenant_id"      json:"tenant_id"`
	DeclarationID uuid.UUID `db:"declaration_id" json:"declaration_id"`
	Name          string    `db:"name"           json:"name"`
	Extension     string    `db:"extension"      json:"extension,omitempty"`
	Size          int64     `db:"size"           json:"size"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"     json:"updated_at"`
}
