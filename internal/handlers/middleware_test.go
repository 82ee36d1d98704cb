package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/heptatravel/apiserver/config"
	"github.com/heptatravel/apiserver/internal/services"
	"github.com/heptatravel/apiserver/internal/token"
	"github.com/heptatravel/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

func newMiddlewareEnv(t *testing.T) (*fakeUserRepo, *token.Codec, *AuthMiddleware) {
	t.Helper()
	repo := newFakeUserRepo()
	codec, err := token.NewCodec(config.JWTConfig{AccessSecret: "test-secret"})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	userService := services.NewUserService(repo, bcrypt.MinCost)
	return repo, codec, NewAuthMiddleware(codec, userService)
}

func seedVerifiedUser(t *testing.T, repo *fakeUserRepo, role types.Role) types.User {
	t.Helper()
	user, err := repo.Create(context.Background(), types.User{
		FirstName:  "Test",
		LastName:   "User",
		Email:      string(role) + "@example.com",
		Role:       role,
		IsVerified: true,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthenticateRejections(t *testing.T) {
	repo, codec, middleware := newMiddlewareEnv(t)
	user := seedVerifiedUser(t, repo, types.RoleUser)

	valid, err := codec.MintAccess(user.ID, user.Email, string(user.Role))
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}

	otherCodec, _ := token.NewCodec(config.JWTConfig{AccessSecret: "other-secret"})
	forged, _ := otherCodec.MintAccess(user.ID, user.Email, string(user.Role))

	orphaned, _ := codec.MintAccess("no-such-user", "ghost@example.com", "user")

	handler := middleware.Authenticate(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
		{"forged signature", "Bearer " + forged, http.StatusUnauthorized},
		{"deleted subject", "Bearer " + orphaned, http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuthenticatePassesAnonymous(t *testing.T) {
	_, _, middleware := newMiddlewareEnv(t)

	var sawIdentity bool
	handler := middleware.OptionalAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = identityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sawIdentity {
		t.Error("anonymous request carried an identity")
	}
}

func TestRequireRoles(t *testing.T) {
	repo, codec, middleware := newMiddlewareEnv(t)

	handler := middleware.Authenticate(RequireAdmin(http.HandlerFunc(okHandler)))

	tests := []struct {
		role   types.Role
		status int
	}{
		{types.RoleUser, http.StatusForbidden},
		{types.RoleGuide, http.StatusForbidden},
		{types.RoleAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		user := seedVerifiedUser(t, repo, tt.role)
		access, err := codec.MintAccess(user.ID, user.Email, string(user.Role))
		if err != nil {
			t.Fatalf("MintAccess: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("role %s: status = %d, want %d", tt.role, rec.Code, tt.status)
		}
	}
}

func TestRequireGuideAdmitsAdmin(t *testing.T) {
	repo, codec, middleware := newMiddlewareEnv(t)
	handler := middleware.Authenticate(RequireGuide(http.HandlerFunc(okHandler)))

	for _, tt := range []struct {
		role   types.Role
		status int
	}{
		{types.RoleUser, http.StatusForbidden},
		{types.RoleGuide, http.StatusOK},
		{types.RoleAdmin, http.StatusOK},
	} {
		user := seedVerifiedUser(t, repo, tt.role)
		access, _ := codec.MintAccess(user.ID, user.Email, string(user.Role))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Errorf("role %s: status = %d, want %d", tt.role, rec.Code, tt.status)
		}
	}
}

func TestRequireOwnership(t *testing.T) {
	repo, codec, middleware := newMiddlewareEnv(t)
	owner := seedVerifiedUser(t, repo, types.RoleUser)
	other := seedVerifiedUser(t, repo, types.RoleGuide)
	admin := seedVerifiedUser(t, repo, types.RoleAdmin)

	router := chi.NewRouter()
	router.With(middleware.Authenticate, RequireOwnership(func(r *http.Request) string {
		return chi.URLParam(r, "userID")
	})).Get("/users/{userID}/stuff", okHandler)

	do := func(user types.User, path string) int {
		access, err := codec.MintAccess(user.ID, user.Email, string(user.Role))
		if err != nil {
			t.Fatalf("MintAccess: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := do(owner, "/users/"+owner.ID+"/stuff"); got != http.StatusOK {
		t.Errorf("owner status = %d, want 200", got)
	}
	if got := do(other, "/users/"+owner.ID+"/stuff"); got != http.StatusForbidden {
		t.Errorf("non-owner status = %d, want 403", got)
	}
	if got := do(admin, "/users/"+owner.ID+"/stuff"); got != http.StatusOK {
		t.Errorf("admin status = %d, want 200", got)
	}
}
