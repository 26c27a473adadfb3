package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/casamar/aduanet/internal/api/response"
	"github.com/casamar/aduanet/internal/store"
	"github.com/casamar/aduanet/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserReader defines the store surface the login handler depends on.
type UserReader interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer signs session tokens, implemented by middleware.Auth.
type TokenIssuer interface {
	IssueToken(userID uuid.UUID) (string, error)
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/auth/login.
// Unknown email and wrong password are indistinguishable to the caller.
func NewLoginHandler(st UserReader, issuer TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Email == "" || req.Password == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "email and password are required", nil)
			return
		}

		user, err := st.GetUserByEmail(r.Context(), req.Email)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}

		token, err := issuer.IssueToken(user.ID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", nil)
			return
		}

		response.JSON(w, loginResponse{Token: token, User: user})
	}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}
