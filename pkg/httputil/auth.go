package httputil

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskflow/taskflow-backend/pkg/actor"
	"github.com/taskflow/taskflow-backend/pkg/config"
	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/permissions"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
)

// Claims represents the access token claims issued by the identity service.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`

	// Tenant context for schema-based isolation
	TenantID     string `json:"tenant_id"`
	TenantSlug   string `json:"tenant_slug"`
	TenantSchema string `json:"tenant_schema"`
}

// Auth verifies the Bearer token and populates the request context with the
// acting user and tenant. Requests without a valid token are rejected.
// /health is exempt for monitoring.
func Auth(cfg *config.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				Error(w, errors.Unauthorized("missing bearer token"))
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.Unauthorized("unexpected signing method")
				}
				return []byte(cfg.Secret), nil
			}, jwt.WithIssuer(cfg.Issuer))
			if err != nil || !token.Valid {
				Error(w, errors.Unauthorized("invalid or expired token"))
				return
			}

			if claims.TenantID == "" || claims.TenantSchema == "" {
				Error(w, errors.Forbidden("token missing tenant context"))
				return
			}

			ctx := tenant.WithTenantContext(r.Context(), claims.TenantID, claims.TenantSlug, claims.TenantSchema)
			ctx = actor.WithActor(ctx, &actor.Actor{
				ID:         claims.UserID,
				FirstName:  claims.FirstName,
				LastName:   claims.LastName,
				Email:      claims.Email,
				TenantID:   claims.TenantID,
				Role:       claims.Role,
				Department: claims.Department,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects requests whose actor's role does not grant the
// given capability. Must run after Auth.
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := actor.FromContext(r.Context())
			if a == nil {
				Error(w, errors.Unauthorized("authentication required"))
				return
			}
			if !permissions.Can(a.Role, capability) {
				Error(w, errors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
