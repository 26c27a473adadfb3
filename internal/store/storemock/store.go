// Package storemock provides a function-field implementation of store.Store
// for handler and service tests.
package storemock

import (
	"context"

	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/internal/store"
	"github.com/casamar/aduanet/pkg/models"
	"github.com/google/uuid"
)

// Store satisfies store.Store. Unset function fields return zero values, or
// store.ErrNotFound for single-record lookups.
type Store struct {
	PingFunc func(ctx context.Context) error

	CreateLicenceFunc func(ctx context.Context, l *models.Licence) error
	CreateTenantFunc  func(ctx context.Context, t *models.Tenant) error
	GetTenantFunc     func(ctx context.Context, id uuid.UUID) (*models.Tenant, error)

	CreateUserFunc     func(ctx context.Context, u *models.User) error
	GetUserByIDFunc    func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmailFunc func(ctx context.Context, email string) (*models.User, error)

	CreateDeclarationFunc func(ctx context.Context, d *models.Declaration) error
	ListDeclarationsFunc  func(ctx context.Context, scope authz.Scope, filter store.DeclarationFilter) ([]*models.Declaration, int, error)

	CreateDocumentFunc         func(ctx context.Context, doc *models.Document, payload []byte) error
	GetDocumentFunc            func(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, error)
	GetDocumentPayloadFunc     func(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, []byte, error)
	GetDocumentsByIDsFunc      func(ctx context.Context, scope authz.Scope, ids []uuid.UUID) ([]*models.Document, error)
	ListDocumentsFunc          func(ctx context.Context, scope authz.Scope, filter store.DocumentFilter) ([]*models.Document, int, error)
	RenameDocumentFunc         func(ctx context.Context, scope authz.Scope, id uuid.UUID, name string) (*models.Document, error)
	ReplaceDocumentPayloadFunc func(ctx context.Context, scope authz.Scope, id uuid.UUID, name, extension string, payload []byte) (*models.Document, error)
	DeleteDocumentFunc         func(ctx context.Context, scope authz.Scope, id uuid.UUID) error

	GetStorageUsageFunc       func(ctx context.Context, tenantID uuid.UUID) (*models.StorageUsage, error)
	RecomputeStorageUsageFunc func(ctx context.Context, tenantID uuid.UUID) (int64, error)
	StorageReportFunc         func(ctx context.Context, tenantID uuid.UUID) (*models.StorageReport, error)
}

func (s *Store) Ping(ctx context.Context) error {
	if s.PingFunc != nil {
		return s.PingFunc(ctx)
	}
	return nil
}

func (s *Store) CreateLicence(ctx context.Context, l *models.Licence) error {
	if s.CreateLicenceFunc != nil {
		return s.CreateLicenceFunc(ctx, l)
	}
	return nil
}

func (s *Store) CreateTenant(ctx context.Context, t *models.Tenant) error {
	if s.CreateTenantFunc != nil {
		return s.CreateTenantFunc(ctx, t)
	}
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if s.GetTenantFunc != nil {
		return s.GetTenantFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if s.CreateUserFunc != nil {
		return s.CreateUserFunc(ctx, u)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.GetUserByIDFunc != nil {
		return s.GetUserByIDFunc(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.GetUserByEmailFunc != nil {
		return s.GetUserByEmailFunc(ctx, email)
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateDeclaration(ctx context.Context, d *models.Declaration) error {
	if s.CreateDeclarationFunc != nil {
		return s.CreateDeclarationFunc(ctx, d)
	}
	return nil
}

func (s *Store) ListDeclarations(ctx context.Context, scope authz.Scope, filter store.DeclarationFilter) ([]*models.Declaration, int, error) {
	if s.ListDeclarationsFunc != nil {
		return s.ListDeclarationsFunc(ctx, scope, filter)
	}
	return nil, 0, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *models.Document, payload []byte) error {
	if s.CreateDocumentFunc != nil {
		return s.CreateDocumentFunc(ctx, doc, payload)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, error) {
	if s.GetDocumentFunc != nil {
		return s.GetDocumentFunc(ctx, scope, id)
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetDocumentPayload(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, []byte, error) {
	if s.GetDocumentPayloadFunc != nil {
		return s.GetDocumentPayloadFunc(ctx, scope, id)
	}
	return nil, nil, store.ErrNotFound
}

func (s *Store) GetDocumentsByIDs(ctx context.Context, scope authz.Scope, ids []uuid.UUID) ([]*models.Document, error) {
	if s.GetDocumentsByIDsFunc != nil {
		return s.GetDocumentsByIDsFunc(ctx, scope, ids)
	}
	return nil, nil
}

func (s *Store) ListDocuments(ctx context.Context, scope authz.Scope, filter store.DocumentFilter) ([]*models.Document, int, error) {
	if s.ListDocumentsFunc != nil {
		return s.ListDocumentsFunc(ctx, scope, filter)
	}
	return nil, 0, nil
}

func (s *Store) RenameDocument(ctx context.Context, scope authz.Scope, id uuid.UUID, name string) (*models.Document, error) {
	if s.RenameDocumentFunc != nil {
		return s.RenameDocumentFunc(ctx, scope, id, name)
	}
	return nil, store.ErrNotFound
}

func (s *Store) ReplaceDocumentPayload(ctx context.Context, scope authz.Scope, id uuid.UUID, name, extension string, payload []byte) (*models.Document, error) {
	if s.ReplaceDocumentPayloadFunc != nil {
		return s.ReplaceDocumentPayloadFunc(ctx, scope, id, name, extension, payload)
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeleteDocument(ctx context.Context, scope authz.Scope, id uuid.UUID) error {
	if s.DeleteDocumentFunc != nil {
		return s.DeleteDocumentFunc(ctx, scope, id)
	}
	return store.ErrNotFound
}

func (s *Store) GetStorageUsage(ctx context.Context, tenantID uuid.UUID) (*models.StorageUsage, error) {
	if s.GetStorageUsageFunc != nil {
		return s.GetStorageUsageFunc(ctx, tenantID)
	}
	return &models.StorageUsage{TenantID: tenantID}, nil
}

func (s *Store) RecomputeStorageUsage(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if s.RecomputeStorageUsageFunc != nil {
		return s.RecomputeStorageUsageFunc(ctx, tenantID)
	}
	return 0, nil
}

func (s *Store) StorageReport(ctx context.Context, tenantID uuid.UUID) (*models.StorageReport, error) {
	if s.StorageReportFunc != nil {
		return s.StorageReportFunc(ctx, tenantID)
	}
	return nil, store.ErrNotFound
}
