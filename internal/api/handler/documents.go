package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/casamar/aduanet/internal/api/middleware"
	"github.com/casamar/aduanet/internal/api/response"
	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/internal/docs"
	"github.com/casamar/aduanet/internal/store"
	"github.com/casamar/aduanet/pkg/models"
)

// Uploads larger than this are rejected before the payload is read.
const maxUploadBytes = 256 << 20

// DocumentService defines the lifecycle operations the document handlers
// depend on, implemented by docs.Service.
type DocumentService interface {
	Create(ctx context.Context, id *authz.Identity, params docs.CreateParams) (*models.Document, error)
	Update(ctx context.Context, id *authz.Identity, docID uuid.UUID, params docs.UpdateParams) (*models.Document, error)
	Delete(ctx context.Context, id *authz.Identity, docID uuid.UUID) error
	Export(ctx context.Context, id *authz.Identity, docIDs []uuid.UUID, w io.Writer) error
}

// DocumentReader defines the read surface the document handlers depend on.
type DocumentReader interface {
	GetDocument(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, error)
	GetDocumentPayload(ctx context.Context, scope authz.Scope, id uuid.UUID) (*models.Document, []byte, error)
	ListDocuments(ctx context.Context, scope authz.Scope, filter store.DocumentFilter) ([]*models.Document, int, error)
}

// NewListDocumentsHandler returns an http.HandlerFunc for GET /api/v1/documents.
func NewListDocumentsHandler(st DocumentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mw.GetIdentity(r)
		scope := authz.ForEntity(id, authz.Documents)

		filter := store.DocumentFilter{
			DeclarationNumber: r.URL.Query().Get("declaration"),
			Extension:         r.URL.Query().Get("extension"),
			Page:              queryInt(r, "page"),
			Limit:             queryInt(r, "limit"),
		}
		if raw := r.URL.Query().Get("declaration_id"); raw != "" {
			declID, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "declaration_id must be a UUID", nil)
				return
			}
			filter.DeclarationID = &declID
		}

		documents, total, err := st.ListDocuments(r.Context(), scope, filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if documents == nil {
			documents = []*models.Document{}
		}

		page, limit := normalizedPagination(filter.Page, filter.Limit)
		response.Collection(w, documents, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}

// NewGetDocumentHandler returns an http.HandlerFunc for GET /api/v1/documents/{documentID}.
func NewGetDocumentHandler(st DocumentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := pathUUID(w, r, "documentID")
		if !ok {
			return
		}

		scope := authz.ForEntity(mw.GetIdentity(r), authz.Documents)
		doc, err := st.GetDocument(r.Context(), scope, docID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response.JSON(w, doc)
	}
}

// NewDownloadDocumentHandler returns an http.HandlerFunc for
// GET /api/v1/documents/{documentID}/download. The payload streams as an
// attachment; records outside the caller's scope read as not found.
func NewDownloadDocumentHandler(st DocumentReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := pathUUID(w, r, "documentID")
		if !ok {
			return
		}

		scope := authz.ForEntity(mw.GetIdentity(r), authz.Documents)
		doc, payload, err := st.GetDocumentPayload(r.Context(), scope, docID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}
}

// NewCreateDocumentHandler returns an http.HandlerFunc for POST /api/v1/documents.
// The request is multipart/form-data with a "file" part, a "declaration_id"
// field, and (superusers only) an optional "tenant_id" field.
func NewCreateDocumentHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected multipart/form-data with a file part", nil)
			return
		}

		declID, err := uuid.Parse(r.FormValue("declaration_id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "declaration_id must be a UUID", nil)
			return
		}

		params := docs.CreateParams{DeclarationID: declID}
		if raw := r.FormValue("tenant_id"); raw != "" {
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "tenant_id must be a UUID", nil)
				return
			}
			params.TenantID = &tenantID
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "MISSING_PAYLOAD", "A file part is required", nil)
			return
		}
		defer file.Close()

		payload, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read file part", nil)
			return
		}
		params.Name = header.Filename
		params.Payload = payload

		doc, err := svc.Create(r.Context(), mw.GetIdentity(r), params)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response.Created(w, doc)
	}
}

// NewUpdateDocumentHandler returns an http.HandlerFunc for
// PATCH /api/v1/documents/{documentID}. Multipart requests may carry a
// replacement "file" part; JSON requests rename only.
func NewUpdateDocumentHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := pathUUID(w, r, "documentID")
		if !ok {
			return
		}

		var params docs.UpdateParams
		if isMultipart(r) {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
			if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart body", nil)
				return
			}
			params.Name = r.FormValue("name")

			file, header, err := r.FormFile("file")
			switch {
			case err == nil:
				defer file.Close()
				payload, readErr := io.ReadAll(file)
				if readErr != nil {
					response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to read file part", nil)
					return
				}
				params.Payload = payload
				if params.Name == "" {
					params.Name = header.Filename
				}
			case errors.Is(err, http.ErrMissingFile):
				// Metadata-only update.
			default:
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid file part", nil)
				return
			}
		} else {
			var req struct {
				Name string `json:"name"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
				return
			}
			params.Name = req.Name
		}

		doc, err := svc.Update(r.Context(), mw.GetIdentity(r), docID, params)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response.JSON(w, doc)
	}
}

// NewDeleteDocumentHandler returns an http.HandlerFunc for
// DELETE /api/v1/documents/{documentID}.
func NewDeleteDocumentHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docID, ok := pathUUID(w, r, "documentID")
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), mw.GetIdentity(r), docID); err != nil {
			writeDomainError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewExportDocumentsHandler returns an http.HandlerFunc for
// POST /api/v1/documents/export. The whole requested set must be visible to
// the caller; otherwise nothing is streamed.
func NewExportDocumentsHandler(svc DocumentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []uuid.UUID `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if len(req.IDs) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "ids is required", nil)
			return
		}

		// The visibility check runs before any archive bytes are written, so
		// a failure here still produces a clean JSON error.
		var buf bytes.Buffer
		if err := svc.Export(r.Context(), mw.GetIdentity(r), req.IDs, &buf); err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="documents.zip"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.Write(buf.Bytes())
	}
}

// writeDomainError maps store and docs errors onto the response envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	var limitErr *store.StorageLimitError
	switch {
	case errors.Is(err, docs.ErrUnauthenticated):
		response.Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", nil)
	case errors.Is(err, docs.ErrNoTenant):
		response.Error(w, http.StatusForbidden, "NO_TENANT", "Caller has no organization", nil)
	case errors.Is(err, docs.ErrPermissionDenied):
		response.Error(w, http.StatusForbidden, "PERMISSION_DENIED", "You may not perform this operation", nil)
	case errors.Is(err, docs.ErrMissingPayload):
		response.Error(w, http.StatusBadRequest, "MISSING_PAYLOAD", "Document payload is required", nil)
	case errors.Is(err, docs.ErrDocumentsInaccessible):
		response.Error(w, http.StatusNotFound, "DOCUMENTS_INACCESSIBLE",
			"One or more documents do not exist or are not accessible", nil)
	case errors.As(err, &limitErr):
		code := "STORAGE_LIMIT_EXCEEDED"
		if limitErr.Update {
			code = "UPDATE_STORAGE_LIMIT_EXCEEDED"
		}
		response.Error(w, http.StatusBadRequest, code, "Storage limit exceeded", map[string]int64{
			"attempted_bytes": limitErr.AttemptedBytes,
			"bytes_used":      limitErr.BytesUsed,
			"ceiling_bytes":   limitErr.CeilingBytes,
			"shortfall_bytes": limitErr.ShortfallBytes,
		})
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "DUPLICATE", "Resource already exists", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", param+" must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// normalizedPagination mirrors the store's clamping so meta reflects the
// values actually applied.
func normalizedPagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return page, limit
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
}
