package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/casamar/aduanet/internal/api/middleware"
	"github.com/casamar/aduanet/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	LoginHandler  http.HandlerFunc

	ListDocuments    http.HandlerFunc
	GetDocument      http.HandlerFunc
	DownloadDocument http.HandlerFunc
	CreateDocument   http.HandlerFunc
	UpdateDocument   http.HandlerFunc
	DeleteDocument   http.HandlerFunc
	ExportDocuments  http.HandlerFunc

	ListDeclarations http.HandlerFunc
	StorageReport    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/documents", orNotImplemented(deps.ListDocuments))
		r.Post("/api/v1/documents", orNotImplemented(deps.CreateDocument))
		r.Post("/api/v1/documents/export", orNotImplemented(deps.ExportDocuments))
		r.Get("/api/v1/documents/{documentID}", orNotImplemented(deps.GetDocument))
		r.Get("/api/v1/documents/{documentID}/download", orNotImplemented(deps.DownloadDocument))
		r.Patch("/api/v1/documents/{documentID}", orNotImplemented(deps.UpdateDocument))
		r.Delete("/api/v1/documents/{documentID}", orNotImplemented(deps.DeleteDocument))

		r.Get("/api/v1/declarations", orNotImplemented(deps.ListDeclarations))
		r.Get("/api/v1/storage/report", orNotImplemented(deps.StorageReport))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
