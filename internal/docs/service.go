// Package docs is the document lifecycle coordinator: the only path through
// which documents are created, resized, or removed, keeping each tenant's
// storage ledger consistent with the bytes actually stored.
package docs

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/internal/store"
	"github.com/casamar/aduanet/pkg/models"
	"github.com/google/uuid"
)

// Service orchestrates document writes and exports over the store.
type Service struct {
	store store.Store
}

// NewService creates a new Service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// CreateParams holds validated input for a document upload.
type CreateParams struct {
	DeclarationID uuid.UUID
	Name          string
	Payload       []byte
	// TenantID optionally names the owning tenant; only superusers may set it,
	// everyone else uploads into their own organization.
	TenantID *uuid.UUID
}

// Create uploads a new document. The payload must be non-empty; its size is
// checked against and charged to the owning tenant's quota ledger atomically
// with the row insert. Only staff and superusers may upload.
func (s *Service) Create(ctx context.Context, id *authz.Identity, params CreateParams) (*models.Document, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}
	if len(params.Payload) == 0 {
		return nil, ErrMissingPayload
	}
	if !id.Superuser && !id.IsStaff() {
		return nil, ErrPermissionDenied
	}

	tenantID := id.TenantID
	if id.Superuser && params.TenantID != nil {
		tenantID = params.TenantID
	}
	if tenantID == nil {
		return nil, ErrNoTenant
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:            uuid.New(),
		TenantID:      *tenantID,
		DeclarationID: params.DeclarationID,
		Name:          params.Name,
		Extension:     extensionOf(params.Name),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateDocument(ctx, doc, params.Payload); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateParams holds input for a document update. A nil Payload means only
// metadata changes and the ledger is left untouched.
type UpdateParams struct {
	Name    string
	Payload []byte
}

// Update modifies a document within the caller's visible set. With a payload
// the size difference is validated and moved through the ledger atomically; a
// smaller replacement never fails on quota grounds.
func (s *Service) Update(ctx context.Context, id *authz.Identity, docID uuid.UUID, params UpdateParams) (*models.Document, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}
	scope := authz.ForEntity(id, authz.Documents)

	if params.Payload == nil {
		if params.Name == "" {
			return s.store.GetDocument(ctx, scope, docID)
		}
		return s.store.RenameDocument(ctx, scope, docID, params.Name)
	}

	if len(params.Payload) == 0 {
		return nil, ErrMissingPayload
	}

	ext := extensionOf(params.Name)
	return s.store.ReplaceDocumentPayload(ctx, scope, docID, params.Name, ext, params.Payload)
}

// Delete removes a document within the caller's visible set, refunding its
// size to the ledger.
func (s *Service) Delete(ctx context.Context, id *authz.Identity, docID uuid.UUID) error {
	if id == nil {
		return ErrUnauthenticated
	}
	scope := authz.ForEntity(id, authz.Documents)
	return s.store.DeleteDocument(ctx, scope, docID)
}

// Export writes a zip archive of the named documents to w. The requested ids
// must all fall inside the caller's visible set; otherwise the export fails
// with ErrDocumentsInaccessible before a single byte is streamed.
func (s *Service) Export(ctx context.Context, id *authz.Identity, docIDs []uuid.UUID, w io.Writer) error {
	if id == nil {
		return ErrUnauthenticated
	}
	scope := authz.ForEntity(id, authz.Documents)

	unique := make(map[uuid.UUID]struct{}, len(docIDs))
	for _, docID := range docIDs {
		unique[docID] = struct{}{}
	}

	visible, err := s.store.GetDocumentsByIDs(ctx, scope, docIDs)
	if err != nil {
		return fmt.Errorf("resolve export set: %w", err)
	}
	if len(visible) != len(unique) {
		return ErrDocumentsInaccessible
	}

	zw := zip.NewWriter(w)
	for _, doc := range visible {
		_, payload, err := s.store.GetDocumentPayload(ctx, scope, doc.ID)
		if err != nil {
			return fmt.Errorf("read document %s: %w", doc.ID, err)
		}

		name := Slugify(strings.TrimSuffix(doc.Name, "."+doc.Extension))
		if name == "" {
			name = doc.ID.String()
		}
		if doc.Extension != "" {
			name += "." + doc.Extension
		}

		entry, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create zip entry: %w", err)
		}
		if _, err := entry.Write(payload); err != nil {
			return fmt.Errorf("write zip entry: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

// StorageReport returns the storage aggregate for the caller's tenant,
// recomputing the ledger from source rows first. Importer accounts are
// refused; superusers may name any tenant.
func (s *Service) StorageReport(ctx context.Context, id *authz.Identity, tenantID *uuid.UUID) (*models.StorageReport, error) {
	if id == nil {
		return nil, ErrUnauthenticated
	}

	if id.Superuser {
		target := tenantID
		if target == nil {
			target = id.TenantID
		}
		if target == nil {
			return nil, ErrNoTenant
		}
		return s.store.StorageReport(ctx, *target)
	}

	if !id.IsStaff() {
		return nil, ErrPermissionDenied
	}
	if id.TenantID == nil {
		return nil, ErrNoTenant
	}
	return s.store.StorageReport(ctx, *id.TenantID)
}

// extensionOf returns the lower-cased extension of a file name, without the
// dot, or "" when the name has none.
func extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// Slugify reduces a file name to lower-case letters, digits, and hyphens, the
// way export archive entries are named.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
