package docs_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/internal/docs"
	"github.com/casamar/aduanet/internal/store"
	"github.com/casamar/aduanet/internal/store/storemock"
	"github.com/casamar/aduanet/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staffIdentity(tenantID uuid.UUID) *authz.Identity {
	return &authz.Identity{
		UserID:   uuid.New(),
		TenantID: &tenantID,
		Roles:    []string{authz.RoleAdmin, authz.RoleCustomsBroker},
	}
}

func importerIdentity(tenantID uuid.UUID, rfc string) *authz.Identity {
	return &authz.Identity{
		UserID:     uuid.New(),
		TenantID:   &tenantID,
		Roles:      []string{authz.RoleImporter},
		IsImporter: true,
		TaxpayerID: rfc,
	}
}

func TestCreate_Unauthenticated(t *testing.T) {
	svc := docs.NewService(&storemock.Store{})
	_, err := svc.Create(context.Background(), nil, docs.CreateParams{Payload: []byte("x")})
	assert.ErrorIs(t, err, docs.ErrUnauthenticated)
}

func TestCreate_MissingPayload(t *testing.T) {
	svc := docs.NewService(&storemock.Store{})
	id := staffIdentity(uuid.New())

	_, err := svc.Create(context.Background(), id, docs.CreateParams{Name: "a.pdf"})
	assert.ErrorIs(t, err, docs.ErrMissingPayload)

	_, err = svc.Create(context.Background(), id, docs.CreateParams{Name: "a.pdf", Payload: []byte{}})
	assert.ErrorIs(t, err, docs.ErrMissingPayload)
}

func TestCreate_ImporterMayNotUpload(t *testing.T) {
	svc := docs.NewService(&storemock.Store{})
	id := importerIdentity(uuid.New(), "RFC123")

	_, err := svc.Create(context.Background(), id, docs.CreateParams{Name: "a.pdf", Payload: []byte("x")})
	assert.ErrorIs(t, err, docs.ErrPermissionDenied)
}

func TestCreate_Staff(t *testing.T) {
	tenantID := uuid.New()
	declID := uuid.New()

	var created *models.Document
	var createdPayload []byte
	mock := &storemock.Store{
		CreateDocumentFunc: func(_ context.Context, doc *models.Document, payload []byte) error {
			doc.Size = int64(len(payload))
			created = doc
			createdPayload = payload
			return nil
		},
	}
	svc := docs.NewService(mock)

	doc, err := svc.Create(context.Background(), staffIdentity(tenantID), docs.CreateParams{
		DeclarationID: declID,
		Name:          "Factura Final.PDF",
		Payload:       []byte("pdf bytes"),
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, tenantID, doc.TenantID)
	assert.Equal(t, declID, doc.DeclarationID)
	assert.Equal(t, "pdf", doc.Extension)
	assert.Equal(t, int64(len("pdf bytes")), doc.Size)
	assert.Equal(t, []byte("pdf bytes"), createdPayload)
	assert.NotEqual(t, uuid.Nil, doc.ID)
}

func TestCreate_SuperuserMayTargetAnyTenant(t *testing.T) {
	ownTenant := uuid.New()
	otherTenant := uuid.New()

	var created *models.Document
	mock := &storemock.Store{
		CreateDocumentFunc: func(_ context.Context, doc *models.Document, _ []byte) error {
			created = doc
			return nil
		},
	}
	svc := docs.NewService(mock)

	super := &authz.Identity{UserID: uuid.New(), TenantID: &ownTenant, Superuser: true}
	_, err := svc.Create(context.Background(), super, docs.CreateParams{
		Name:     "a.xml",
		Payload:  []byte("x"),
		TenantID: &otherTenant,
	})
	require.NoError(t, err)
	assert.Equal(t, otherTenant, created.TenantID)

	// A staff caller naming another tenant still uploads into their own.
	_, err = svc.Create(context.Background(), staffIdentity(ownTenant), docs.CreateParams{
		Name:     "a.xml",
		Payload:  []byte("x"),
		TenantID: &otherTenant,
	})
	require.NoError(t, err)
	assert.Equal(t, ownTenant, created.TenantID)
}

func TestCreate_SuperuserWithoutTenant(t *testing.T) {
	svc := docs.NewService(&storemock.Store{})
	super := &authz.Identity{UserID: uuid.New(), Superuser: true}

	_, err := svc.Create(context.Background(), super, docs.CreateParams{Name: "a.pdf", Payload: []byte("x")})
	assert.ErrorIs(t, err, docs.ErrNoTenant)
}

func TestUpdate_MetadataOnlyLeavesLedgerAlone(t *testing.T) {
	docID := uuid.New()
	tenantID := uuid.New()

	renamed := false
	replaced := false
	mock := &storemock.Store{
		RenameDocumentFunc: func(_ context.Context, _ authz.Scope, id uuid.UUID, name string) (*models.Document, error) {
			renamed = true
			return &models.Document{ID: id, Name: name}, nil
		},
		ReplaceDocumentPayloadFunc: func(_ context.Context, _ authz.Scope, _ uuid.UUID, _, _ string, _ []byte) (*models.Document, error) {
			replaced = true
			return nil, nil
		},
	}
	svc := docs.NewService(mock)

	doc, err := svc.Update(context.Background(), staffIdentity(tenantID), docID, docs.UpdateParams{Name: "renamed.pdf"})
	require.NoError(t, err)
	assert.True(t, renamed)
	assert.False(t, replaced)
	assert.Equal(t, "renamed.pdf", doc.Name)
}

func TestUpdate_WithPayloadReplacesAndDerivesExtension(t *testing.T) {
	docID := uuid.New()
	tenantID := uuid.New()

	var gotExt string
	var gotPayload []byte
	mock := &storemock.Store{
		ReplaceDocumentPayloadFunc: func(_ context.Context, _ authz.Scope, id uuid.UUID, name, ext string, payload []byte) (*models.Document, error) {
			gotExt = ext
			gotPayload = payload
			return &models.Document{ID: id, Name: name, Extension: ext, Size: int64(len(payload))}, nil
		},
	}
	svc := docs.NewService(mock)

	doc, err := svc.Update(context.Background(), staffIdentity(tenantID), docID, docs.UpdateParams{
		Name:    "nuevo.XML",
		Payload: []byte("<xml/>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "xml", gotExt)
	assert.Equal(t, []byte("<xml/>"), gotPayload)
	assert.Equal(t, int64(6), doc.Size)
}

func TestUpdate_EmptyPayloadRejected(t *testing.T) {
	svc := docs.NewService(&storemock.Store{})
	_, err := svc.Update(context.Background(), staffIdentity(uuid.New()), uuid.New(), docs.UpdateParams{
		Payload: []byte{},
	})
	assert.ErrorIs(t, err, docs.ErrMissingPayload)
}

func TestDelete_OutOfScopeIsNotFound(t *testing.T) {
	mock := &storemock.Store{
		DeleteDocumentFunc: func(_ context.Context, _ authz.Scope, _ uuid.UUID) error {
			return store.ErrNotFound
		},
	}
	svc := docs.NewService(mock)

	err := svc.Delete(context.Background(), staffIdentity(uuid.New()), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExport_AllOrNothing(t *testing.T) {
	tenantID := uuid.New()
	visible := &models.Document{ID: uuid.New(), TenantID: tenantID, Name: "propio.pdf", Extension: "pdf"}
	foreign := uuid.New()

	mock := &storemock.Store{
		GetDocumentsByIDsFunc: func(_ context.Context, _ authz.Scope, ids []uuid.UUID) ([]*models.Document, error) {
			// Only the caller's own document comes back.
			return []*models.Document{visible}, nil
		},
	}
	svc := docs.NewService(mock)

	var buf bytes.Buffer
	err := svc.Export(context.Background(), staffIdentity(tenantID),
		[]uuid.UUID{visible.ID, foreign, uuid.New()}, &buf)
	assert.ErrorIs(t, err, docs.ErrDocumentsInaccessible)
	assert.Zero(t, buf.Len(), "nothing may be streamed on a failed export")
}

func TestExport_WritesZip(t *testing.T) {
	tenantID := uuid.New()
	docA := &models.Document{ID: uuid.New(), TenantID: tenantID, Name: "Factura 001.pdf", Extension: "pdf"}
	docB := &models.Document{ID: uuid.New(), TenantID: tenantID, Name: "manifiesto.xml", Extension: "xml"}
	payloads := map[uuid.UUID][]byte{
		docA.ID: []byte("pdf-a"),
		docB.ID: []byte("xml-b"),
	}

	mock := &storemock.Store{
		GetDocumentsByIDsFunc: func(_ context.Context, _ authz.Scope, _ []uuid.UUID) ([]*models.Document, error) {
			return []*models.Document{docA, docB}, nil
		},
		GetDocumentPayloadFunc: func(_ context.Context, _ authz.Scope, id uuid.UUID) (*models.Document, []byte, error) {
			return nil, payloads[id], nil
		},
	}
	svc := docs.NewService(mock)

	var buf bytes.Buffer
	err := svc.Export(context.Background(), staffIdentity(tenantID), []uuid.UUID{docA.ID, docB.ID}, &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	names := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		names[f.Name] = data
	}
	assert.Equal(t, []byte("pdf-a"), names["factura-001.pdf"])
	assert.Equal(t, []byte("xml-b"), names["manifiesto.xml"])
}

func TestExport_DuplicateIDsAllowed(t *testing.T) {
	tenantID := uuid.New()
	doc := &models.Document{ID: uuid.New(), TenantID: tenantID, Name: "a.pdf", Extension: "pdf"}

	mock := &storemock.Store{
		GetDocumentsByIDsFunc: func(_ context.Context, _ authz.Scope, _ []uuid.UUID) ([]*models.Document, error) {
			return []*models.Document{doc}, nil
		},
		GetDocumentPayloadFunc: func(_ context.Context, _ authz.Scope, _ uuid.UUID) (*models.Document, []byte, error) {
			return nil, []byte("x"), nil
		},
	}
	svc := docs.NewService(mock)

	var buf bytes.Buffer
	err := svc.Export(context.Background(), staffIdentity(tenantID), []uuid.UUID{doc.ID, doc.ID}, &buf)
	assert.NoError(t, err)
}

func TestStorageReport_Roles(t *testing.T) {
	tenantID := uuid.New()
	other := uuid.New()

	var requested uuid.UUID
	mock := &storemock.Store{
		StorageReportFunc: func(_ context.Context, id uuid.UUID) (*models.StorageReport, error) {
			requested = id
			return &models.StorageReport{Tenant: "acme"}, nil
		},
	}
	svc := docs.NewService(mock)
	ctx := context.Background()

	// Staff see their own tenant; a requested override is ignored.
	_, err := svc.StorageReport(ctx, staffIdentity(tenantID), &other)
	require.NoError(t, err)
	assert.Equal(t, tenantID, requested)

	// Importers are refused outright.
	_, err = svc.StorageReport(ctx, importerIdentity(tenantID, "RFC123"), nil)
	assert.ErrorIs(t, err, docs.ErrPermissionDenied)

	// Superusers may name any tenant.
	super := &authz.Identity{UserID: uuid.New(), Superuser: true}
	_, err = svc.StorageReport(ctx, super, &other)
	require.NoError(t, err)
	assert.Equal(t, other, requested)

	// Superuser with neither a tenant nor a target.
	_, err = svc.StorageReport(ctx, super, nil)
	assert.ErrorIs(t, err, docs.ErrNoTenant)

	// Unauthenticated.
	_, err = svc.StorageReport(ctx, nil, nil)
	assert.ErrorIs(t, err, docs.ErrUnauthenticated)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "factura-001", docs.Slugify("Factura 001"))
	assert.Equal(t, "pedimento-3801-1000123", docs.Slugify("Pedimento (3801) 1000123!"))
	assert.Equal(t, "", docs.Slugify("¡¡¡"))
}
