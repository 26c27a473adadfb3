package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/casamar/aduanet/internal/api/response"
	"github.com/casamar/aduanet/internal/authz"
	"github.com/casamar/aduanet/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Auth issues and validates session tokens. Tokens carry only the user id;
// roles, tenant, and flags are loaded from the store per request so a role or
// tenant change takes effect immediately.
type Auth struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
}

// NewAuth creates a new Auth middleware.
func NewAuth(s store.Store, secret string, ttl time.Duration) *Auth {
	return &Auth{store: s, secret: []byte(secret), ttl: ttl}
}

// IssueToken signs a session token for the user.
func (a *Auth) IssueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	return token.SignedString(a.secret)
}

// Authenticate validates the Bearer token, loads the user, and sets the caller
// identity in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return a.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid or expired token", nil)
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid token subject", nil)
			return
		}

		user, err := a.store.GetUserByID(r.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Unknown user", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to load user", nil)
			return
		}

		id := &authz.Identity{
			UserID:     user.ID,
			TenantID:   user.TenantID,
			Roles:      user.Roles,
			Superuser:  user.Superuser,
			IsImporter: user.IsImporter,
			TaxpayerID: user.TaxpayerID,
		}
		next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), id)))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
