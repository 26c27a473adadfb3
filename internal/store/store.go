package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// StorageLimitError is returned when a document write would push a tenant's
// byte usage past its licensed ceiling. The check is strict: usage exactly at
// the ceiling is allowed, one byte over is not. Carries the full diagnostic
// detail the boundary layer reports back to the caller.
type StorageLimitError struct {
	Update         bool
	AttemptedBytes int64
	BytesUsed      int64
	CeilingBytes   int64
	ShortfallBytes int64
}

func (e *StorageLimitError) Error() string {
	op := "create"
	if e.Update {
		op = "update"
	}
	return fmt.Sprintf("storage limit exceeded on %s: used %d + attempted %d exceeds ceiling %d by %d bytes",
		op, e.BytesUsed, e.AttemptedBytes, e.CeilingBytes, e.ShortfallBytes)
}

// Store is the data access interface. All database operations go through here.
// Read and write methods over tenant-owned entities take an authz.Scope and
// treat records outside it as nonexistent.
type Store interface {
	Ping(ctx context.Context) error

	CreateLicence(ctx context.Context, l *models.Licence) error
	CreateTenant(ctx context.Context, t *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateDeclaration(ctx context.Context, d *models.Declaration) error
	ListDeclarations(ctx context.Context, scope authz.Scope, filter DeclarationFilter) ([]*models.Declaration, int, error)

	// Document lifecycle. Create, ReplaceDocumentPayload, and DeleteDocument
	// update the owning tenant's storage ledger in the same transaction as the
	// document row, serialized per tenant by a row lock on the ledger entry.
	CreateDocument(ctx context.Context, doc *models.Document, payload []byte) error
	GetDocument(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, error)
	GetDocumentPayload(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, []byte, error)
	GetDocumentsByIDs(ctx context.Context, scope authz.Scope, ids []uuid.UUID) ([]*models.Document, error)
	ListDocuments(ctx context.Context, scope authz.Scope, filter DocumentFilter) ([]*models.Document, int, error)
	RenameDocument(ctx context.Context, scope authz.Scope, id uuid.UUID, name string) (*models.Document, error)
	ReplaceDocumentPayload(ctx context.Context, scope authz.Scope, id uuid.UUID, name, extension string, payload []byte) (*models.Document, error)
	DeleteDocument(ctx context.Context, scope authz.Scope, id uuid.UUID) error

	// Quota ledger. GetStorageUsage creates the entry on first reference;
	// RecomputeStorageUsage resets it to the exact sum of document sizes.
	GetStorageUsage(ctx context.Context, tenantID uuid.UUID) (*models.StorageUsage, error)
	RecomputeStorageUsage(ctx context.Context, tenantID uuid.UUID) (int64, error)
	StorageReport(ctx context.Context, tenantID uuid.UUID) (*models.StorageReport, error)
}

type DocumentFilter struct {
	DeclarationID     *uuid.UUID
	DeclarationNumber string
	Extension         string
	Page              int
	Limit             int
}

type DeclarationFilter struct {
	Number     string
	TaxpayerID string
	Page       int
	Limit      int
}
