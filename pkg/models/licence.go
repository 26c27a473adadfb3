package models

import (
	"time"

	"github.com/google/uuid"
)

// Licence is a subscription plan. StorageGB is the storage ceiling granted to
// every tenant holding the licence, configured in binary gigabytes.
type Licence struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	StorageGB   int       `db:"storage_gb"  json:"storage_gb"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}
