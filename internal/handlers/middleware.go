package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/heptatravel/apiserver/internal/services"
	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/internal/token"
	"github.com/heptatravel/apiserver/types"
)

// AuthMiddleware gates protected routes: it extracts and verifies the
// bearer token, loads the credential record, and attaches a sanitized
// identity view to the request context.
type AuthMiddleware struct {
	codec *token.Codec
	users *services.UserService
}

func NewAuthMiddleware(codec *token.Codec, users *services.UserService) *AuthMiddleware {
	return &AuthMiddleware{codec: codec, users: users}
}

// Authenticate rejects the request unless a valid, verified identity
// can be established.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, errStatus, errMessage := m.resolve(r)
		if errMessage != "" {
			writeError(w, errStatus, errMessage)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), user)))
	})
}

// OptionalAuthenticate attaches an identity when a valid token is
// presented but lets the request through anonymously otherwise. Used
// for routes with anonymous-vs-authenticated behavioral differences.
func (m *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, errMessage := m.resolve(r)
		if errMessage == "" {
			r = r.WithContext(withIdentity(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// resolve runs the per-request authentication steps. An empty message
// means success.
func (m *AuthMiddleware) resolve(r *http.Request) (types.User, int, string) {
	tokenString, ok := token.FromHeader(r.Header.Get("Authorization"))
	if !ok {
		return types.User{}, http.StatusUnauthorized, "Authentication token is required"
	}

	claims, err := m.codec.VerifyAccess(tokenString)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return types.User{}, http.StatusUnauthorized, "Authentication token has expired. Please log in again."
		case errors.Is(err, token.ErrInvalid), errors.Is(err, token.ErrNotYetValid):
			return types.User{}, http.StatusUnauthorized, "Invalid authentication token. Please log in again."
		default:
			return types.User{}, http.StatusUnauthorized, "Authentication failed. Please log in again."
		}
	}

	user, err := m.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, http.StatusUnauthorized, "User no longer exists"
		}
		return types.User{}, http.StatusInternalServerError, "Internal server error during authentication"
	}

	// Tokens issued before the watermark were outlived by a password
	// change or reset. iat carries whole-second precision, so the
	// watermark is compared at the same granularity; otherwise the pair
	// minted in the same instant as the bump would never validate.
	if claims.IssuedAt != nil && claims.IssuedAt.Time.Before(user.TokenInvalidBefore.Truncate(time.Second)) {
		return types.User{}, http.StatusUnauthorized, "Authentication token has expired. Please log in again."
	}

	if !user.IsVerified {
		return types.User{}, http.StatusUnauthorized, "Please verify your email address to access this resource"
	}

	return user, 0, ""
}

// RequireRoles fails Forbidden unless the attached identity holds one
// of the allowed roles. Chain after Authenticate.
func RequireRoles(allowed ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := identityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "Insufficient permissions to access this resource")
		})
	}
}

// RequireAdmin gates admin-only routes.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRoles(types.RoleAdmin)(next)
}

// RequireGuide gates routes open to tour guides and administrators.
func RequireGuide(next http.Handler) http.Handler {
	return RequireRoles(types.RoleGuide, types.RoleAdmin)(next)
}

// RequireOwnership fails unless the caller owns the resource resolved
// by resolveOwnerID or is an administrator. Administrators bypass
// ownership checks everywhere.
func RequireOwnership(resolveOwnerID func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := identityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			ownerID := resolveOwnerID(r)
			if ownerID == "" {
				writeError(w, http.StatusBadRequest, "Invalid resource or resource ID not provided")
				return
			}

			if user.ID != ownerID && user.Role != types.RoleAdmin {
				writeError(w, http.StatusForbidden, "You can only access your own resources")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
