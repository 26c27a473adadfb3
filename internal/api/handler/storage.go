package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	mw "github.com/casamar/aduanet/internal/api/middleware"
	"github.com/casamar/aduanet/internal/api/response"
	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/pkg/models"
)

// StorageReporter defines the reporting surface the handler depends on,
// implemented by docs.Service.
type StorageReporter interface {
	StorageReport(ctx context.Context, id *authz.Identity, tenantID *uuid.UUID) (*models.StorageReport, error)
}

// NewStorageReportHandler returns an http.HandlerFunc for GET /api/v1/storage/report.
// Superusers may name another tenant with ?tenant_id=; everyone else reports on
// their own organization.
func NewStorageReportHandler(svc StorageReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var target *uuid.UUID
		if raw := r.URL.Query().Get("tenant_id"); raw != "" {
			tenantID, err := uuid.Parse(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "tenant_id must be a UUID", nil)
				return
			}
			target = &tenantID
		}

		report, err := svc.StorageReport(r.Context(), mw.GetIdentity(r), target)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		response.JSON(w, report)
	}
}
