package handler

import (
	"context"
	"net/http"

	mw "github.com/casamar/aduanet/internal/api/middleware"
	"github.com/casamar/aduanet/internal/api/response"
	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/internal/store"
	"github.com/casamar/aduanet/pkg/models"
)

// DeclarationReader defines the store surface the declaration handlers depend on.
type DeclarationReader interface {
	ListDeclarations(ctx context.Context, scope authz.Scope, filter store.DeclarationFilter) ([]*models.Declaration, int, error)
}

// NewListDeclarationsHandler returns an http.HandlerFunc for GET /api/v1/declarations.
func NewListDeclarationsHandler(st DeclarationReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := authz.ForEntity(mw.GetIdentity(r), authz.Declarations)

		filter := store.DeclarationFilter{
			Number:     r.URL.Query().Get("number"),
			TaxpayerID: r.URL.Query().Get("taxpayer_id"),
			Page:       queryInt(r, "page"),
			Limit:      queryInt(r, "limit"),
		}

		declarations, total, err := st.ListDeclarations(r.Context(), scope, filter)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if declarations == nil {
			declarations = []*models.Declaration{}
		}

		page, limit := normalizedPagination(filter.Page, filter.Limit)
		response.Collection(w, declarations, response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
		})
	}
}
