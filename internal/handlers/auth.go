package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/heptatravel/apiserver/internal/mail"
	"github.com/heptatravel/apiserver/internal/media"
	"github.com/heptatravel/apiserver/internal/services"
	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/internal/token"
	"github.com/heptatravel/apiserver/types"
	"github.com/sirupsen/logrus"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

// AuthHandler orchestrates the authentication flows.
type AuthHandler struct {
	users  *services.UserService
	codec  *token.Codec
	mailer mail.Enqueuer
	media  *media.Store
	log    *logrus.Logger
}

// NewAuthHandler constructs an AuthHandler. mailer may be nil when no
// mail backend is configured; delivery is then skipped. mediaStore may
// be nil, disabling avatar uploads.
func NewAuthHandler(users *services.UserService, codec *token.Codec, mailer mail.Enqueuer, mediaStore *media.Store, log *logrus.Logger) *AuthHandler {
	if log == nil {
		log = logrus.New()
	}
	return &AuthHandler{
		users:  users,
		codec:  codec,
		mailer: mailer,
		media:  mediaStore,
		log:    log,
	}
}

// AuthRouter registers auth routes on the given router. limit wraps the
// anonymous endpoints with rate limiting; pass nil to disable.
func AuthRouter(r chi.Router, h *AuthHandler, authMiddleware *AuthMiddleware, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r.With(limit).Post("/register", h.Register)
	r.With(limit).Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.With(limit).Post("/forgot-password", h.ForgotPassword)
	r.With(limit).Post("/reset-password", h.ResetPassword)
	r.Get("/verify-email/{token}", h.VerifyEmail)
	r.With(limit).Post("/resend-verification", h.ResendVerification)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Get("/me", h.Me)
		r.Post("/me/avatar", h.UploadAvatar)
		r.Post("/logout", h.Logout)
		r.Post("/change-password", h.ChangePassword)
		r.Delete("/account", h.DeleteAccount)
	})
}

// Register creates a new account, queues a verification email, and
// returns the sanitized profile with a fresh token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params, errs := req.validate()
	if len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	user, verificationToken, err := h.users.Register(r.Context(), params)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "User with this email already exists")
			return
		}
		h.log.WithError(err).Error("register failed")
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	tokens, err := h.codec.IssuePair(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.log.WithError(err).Error("token issuance failed")
		writeError(w, http.StatusInternalServerError, "Failed to create tokens")
		return
	}

	h.enqueueVerification(r, user, verificationToken)

	writeSuccess(w, http.StatusCreated, "Registration successful. Please check your email for verification link.", map[string]any{
		"user":   user.Sanitized(),
		"tokens": tokens,
	})
}

// Login verifies credentials and returns a token pair. A wrong password
// and an unknown email produce identical responses.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if errs := req.validate(); len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.log.WithError(err).Error("login failed")
		writeError(w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	tokens, err := h.codec.IssuePair(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.log.WithError(err).Error("token issuance failed")
		writeError(w, http.StatusInternalServerError, "Failed to create tokens")
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful", map[string]any{
		"user":   user.Sanitized(),
		"tokens": tokens,
	})
}

// Refresh verifies the refresh token and mints a new access token with
// the subject's current role. The refresh token is not rotated.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	access, err := h.codec.RotateAccess(r.Context(), req.RefreshToken, h.users.CurrentRole)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			writeError(w, http.StatusUnauthorized, "Refresh token has expired. Please log in again.")
		case errors.Is(err, token.ErrInvalid), errors.Is(err, token.ErrNotYetValid):
			writeError(w, http.StatusUnauthorized, "Invalid refresh token. Please log in again.")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusUnauthorized, "User no longer exists")
		default:
			h.log.WithError(err).Error("token refresh failed")
			writeError(w, http.StatusUnauthorized, "Token refresh failed. Please log in again.")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Tokens refreshed successfully", map[string]any{
		"tokens": token.Pair{AccessToken: access, RefreshToken: req.RefreshToken},
	})
}

// Logout acknowledges the request. Tokens are not individually revoked;
// the client discards them.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the identity attached by the authentication middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"user": user})
}

// UploadAvatar accepts a multipart "avatar" file, stores it in the
// object store, and records the key on the caller's profile.
func (h *AuthHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		writeError(w, http.StatusServiceUnavailable, "Media storage is not configured")
		return
	}

	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := r.ParseMultipartForm(maxCoverUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Avatar image file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "Avatar must be an image")
		return
	}

	key := media.AvatarKey(identity.ID, header.Filename)
	if err := h.media.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		h.log.WithError(err).Error("avatar upload failed")
		writeError(w, http.StatusInternalServerError, "Failed to store avatar image")
		return
	}

	identity.Avatar = key
	user, err := h.users.Update(r.Context(), identity)
	if err != nil {
		h.log.WithError(err).Error("avatar record failed")
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeSuccess(w, http.StatusOK, "Avatar uploaded successfully", map[string]any{"user": user.Sanitized()})
}

// VerifyEmail redeems a verification token from the URL.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	plaintext := strings.TrimSpace(chi.URLParam(r, "token"))
	if plaintext == "" {
		writeError(w, http.StatusBadRequest, "Verification token is required")
		return
	}

	if _, err := h.users.VerifyEmail(r.Context(), plaintext); err != nil {
		if errors.Is(err, services.ErrSecretTokenInvalid) {
			writeError(w, http.StatusBadRequest, "Invalid or expired verification token")
			return
		}
		h.log.WithError(err).Error("email verification failed")
		writeError(w, http.StatusInternalServerError, "Failed to verify email")
		return
	}

	writeSuccess(w, http.StatusOK, "Email verified successfully", nil)
}

// ResendVerification regenerates the verification token and re-queues
// delivery.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	user, verificationToken, err := h.users.ResendVerification(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrAlreadyVerified):
			writeError(w, http.StatusBadRequest, "Email is already verified")
		default:
			h.log.WithError(err).Error("resend verification failed")
			writeError(w, http.StatusInternalServerError, "Failed to resend verification email")
		}
		return
	}

	h.enqueueVerification(r, user, verificationToken)

	writeSuccess(w, http.StatusOK, "Verification email sent successfully", nil)
}

// ForgotPassword starts the reset flow. The response is identical
// whether or not the email exists, so the endpoint cannot be used to
// enumerate accounts.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	const uniformMessage = "If an account with that email exists, we have sent a password reset link"

	var req EmailRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if email := strings.TrimSpace(req.Email); email == "" || !emailPattern.MatchString(email) {
		writeValidationFailed(w, []FieldError{{Field: "email", Message: "Please provide a valid email address"}})
		return
	}

	user, resetToken, err := h.users.StartPasswordReset(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.WithError(err).Error("forgot password failed")
			writeError(w, http.StatusInternalServerError, "Failed to process request")
			return
		}
	} else if h.mailer != nil {
		if err := h.mailer.EnqueueReset(r.Context(), user.Email, user.FullName(), resetToken); err != nil {
			h.log.WithError(err).Error("failed to queue reset email")
		}
	}

	writeSuccess(w, http.StatusOK, uniformMessage, nil)
}

// ResetPassword redeems a reset token and installs a new password,
// returning a fresh token pair.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	user, err := h.users.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrSecretTokenInvalid) {
			writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
			return
		}
		h.log.WithError(err).Error("password reset failed")
		writeError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	tokens, err := h.codec.IssuePair(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.log.WithError(err).Error("token issuance failed")
		writeError(w, http.StatusInternalServerError, "Failed to create tokens")
		return
	}

	writeSuccess(w, http.StatusOK, "Password reset successfully", map[string]any{"tokens": tokens})
}

// ChangePassword verifies the current password before installing the
// new one and issues a fresh token pair.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req ChangePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	user, err := h.users.ChangePassword(r.Context(), identity.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "Current password is incorrect")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.log.WithError(err).Error("password change failed")
			writeError(w, http.StatusInternalServerError, "Failed to change password")
		}
		return
	}

	tokens, err := h.codec.IssuePair(user.ID, user.Email, string(user.Role))
	if err != nil {
		h.log.WithError(err).Error("token issuance failed")
		writeError(w, http.StatusInternalServerError, "Failed to create tokens")
		return
	}

	writeSuccess(w, http.StatusOK, "Password changed successfully", map[string]any{"tokens": tokens})
}

// DeleteAccount hard-deletes the caller's record after verifying the
// password. Cleanup of related resources is deferred to their owners.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req DeleteAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required to delete account")
		return
	}

	if err := h.users.DeleteAccount(r.Context(), identity.ID, req.Password); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "Password is incorrect")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.log.WithError(err).Error("account deletion failed")
			writeError(w, http.StatusInternalServerError, "Failed to delete account")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Account deleted successfully", nil)
}

func (h *AuthHandler) enqueueVerification(r *http.Request, user types.User, verificationToken string) {
	if h.mailer == nil {
		return
	}
	if err := h.mailer.EnqueueVerification(r.Context(), user.Email, user.FullName(), verificationToken); err != nil {
		h.log.WithError(err).Error("failed to queue verification email")
	}
}

type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	PhoneNumber     string `json:"phoneNumber"`
	DateOfBirth     string `json:"dateOfBirth"`
	Nationality     string `json:"nationality"`
}

func (req RegisterRequest) validate() (services.RegisterParams, []FieldError) {
	var errs []FieldError

	firstName := strings.TrimSpace(req.FirstName)
	if len(firstName) < 2 || len(firstName) > 50 {
		errs = append(errs, FieldError{Field: "firstName", Message: "First name must be between 2 and 50 characters"})
	}

	lastName := strings.TrimSpace(req.LastName)
	if len(lastName) < 2 || len(lastName) > 50 {
		errs = append(errs, FieldError{Field: "lastName", Message: "Last name must be between 2 and 50 characters"})
	}

	email := strings.TrimSpace(req.Email)
	if !emailPattern.MatchString(email) {
		errs = append(errs, FieldError{Field: "email", Message: "Please provide a valid email address"})
	}

	if passwordErrs := validatePassword("password", req.Password); passwordErrs != nil {
		errs = append(errs, passwordErrs...)
	}
	if req.Password != req.ConfirmPassword {
		errs = append(errs, FieldError{Field: "confirmPassword", Message: "Passwords do not match"})
	}

	params := services.RegisterParams{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  req.Password,
	}

	if phone := strings.TrimSpace(req.PhoneNumber); phone != "" {
		if !phonePattern.MatchString(phone) {
			errs = append(errs, FieldError{Field: "phoneNumber", Message: "Please provide a valid phone number"})
		} else {
			params.PhoneNumber = &phone
		}
	}

	if raw := strings.TrimSpace(req.DateOfBirth); raw != "" {
		dob, err := time.Parse("2006-01-02", raw)
		if err != nil {
			errs = append(errs, FieldError{Field: "dateOfBirth", Message: "Date of birth must be in YYYY-MM-DD format"})
		} else if dob.After(time.Now().AddDate(-13, 0, 0)) {
			errs = append(errs, FieldError{Field: "dateOfBirth", Message: "You must be at least 13 years old to register"})
		} else {
			params.DateOfBirth = &dob
		}
	}

	if nationality := strings.TrimSpace(req.Nationality); nationality != "" {
		if len(nationality) > 100 {
			errs = append(errs, FieldError{Field: "nationality", Message: "Nationality cannot be more than 100 characters"})
		} else {
			params.Nationality = &nationality
		}
	}

	return params, errs
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req LoginRequest) validate() []FieldError {
	var errs []FieldError
	if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
		errs = append(errs, FieldError{Field: "email", Message: "Please provide a valid email address"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "Password is required"})
	}
	return errs
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (req ResetPasswordRequest) validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(req.Token) == "" {
		errs = append(errs, FieldError{Field: "token", Message: "Reset token is required"})
	}
	if passwordErrs := validatePassword("password", req.Password); passwordErrs != nil {
		errs = append(errs, passwordErrs...)
	}
	if req.Password != req.ConfirmPassword {
		errs = append(errs, FieldError{Field: "confirmPassword", Message: "Passwords do not match"})
	}
	return errs
}

type ChangePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (req ChangePasswordRequest) validate() []FieldError {
	var errs []FieldError
	if req.CurrentPassword == "" {
		errs = append(errs, FieldError{Field: "currentPassword", Message: "Current password is required"})
	}
	if passwordErrs := validatePassword("newPassword", req.NewPassword); passwordErrs != nil {
		errs = append(errs, passwordErrs...)
	}
	if req.NewPassword != req.ConfirmNewPassword {
		errs = append(errs, FieldError{Field: "confirmNewPassword", Message: "Passwords do not match"})
	}
	return errs
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

func validatePassword(field, password string) []FieldError {
	if len(password) < 8 {
		return []FieldError{{Field: field, Message: "Password must be at least 8 characters"}}
	}
	return nil
}
