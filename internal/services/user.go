package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/internal/token"
	"github.com/heptatravel/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Verification tokens expire after a day; reset tokens after ten
	// minutes.
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = 10 * time.Minute

	defaultBcryptCost = 12
)

var (
	// ErrInvalidCredentials collapses "no such email" and "wrong
	// password" so callers cannot tell which field was wrong.
	ErrInvalidCredentials = errors.New("services: invalid email or password")
	// ErrEmailTaken signals a duplicate registration.
	ErrEmailTaken = errors.New("services: email already registered")
	// ErrAlreadyVerified signals a redundant verification request.
	ErrAlreadyVerified = errors.New("services: email already verified")
	// ErrSecretTokenInvalid covers unknown, mutated, and expired
	// one-time tokens uniformly.
	ErrSecretTokenInvalid = errors.New("services: invalid or expired token")
)

// UserRepository defines persistence operations for credential records.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByVerificationDigest(ctx context.Context, digest string) (types.User, error)
	GetByResetDigest(ctx context.Context, digest string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetVerificationToken(ctx context.Context, id, digest string, expires time.Time) error
	MarkVerified(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, digest string, expires time.Time) error
	Delete(ctx context.Context, id string) error
}

// UserService encapsulates credential use-cases: registration, login
// checks, and the one-time token lifecycle.
type UserService struct {
	repo       UserRepository
	bcryptCost int
}

func NewUserService(repo UserRepository, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = defaultBcryptCost
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost}
}

// RegisterParams carries validated registration input.
type RegisterParams struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber *string
	DateOfBirth *time.Time
	Nationality *string
}

// Register creates a credential record and returns it together with
// the plaintext verification token for out-of-band delivery.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (types.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, "", ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return types.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	verificationToken, err := token.GenerateSecret(token.DefaultSecretLength)
	if err != nil {
		return types.User{}, "", fmt.Errorf("generate verification token: %w", err)
	}
	digest := token.DigestSecret(verificationToken)
	expires := time.Now().Add(verificationTokenTTL)

	user, err := s.repo.Create(ctx, types.User{
		FirstName:                params.FirstName,
		LastName:                 params.LastName,
		Email:                    email,
		Role:                     types.RoleUser,
		PhoneNumber:              params.PhoneNumber,
		DateOfBirth:              params.DateOfBirth,
		Nationality:              params.Nationality,
		PasswordHash:             string(hash),
		VerificationTokenDigest:  &digest,
		VerificationTokenExpires: &expires,
	})
	if err != nil {
		return types.User{}, "", err
	}

	return user, verificationToken, nil
}

// Authenticate verifies an email/password pair. A missing record and a
// wrong password return the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Update(ctx, user)
}

// CurrentRole resolves the live role for token rotation.
func (s *UserService) CurrentRole(ctx context.Context, id string) (string, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return string(user.Role), nil
}

// VerifyEmail redeems a plaintext verification token. The stored digest
// is cleared on success, so a token redeems at most once.
func (s *UserService) VerifyEmail(ctx context.Context, plaintext string) (types.User, error) {
	user, err := s.repo.GetByVerificationDigest(ctx, token.DigestSecret(plaintext))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrSecretTokenInvalid
		}
		return types.User{}, err
	}

	if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
		return types.User{}, err
	}
	user.IsVerified = true
	return user, nil
}

// ResendVerification replaces the pending verification token and
// returns the new plaintext for delivery.
func (s *UserService) ResendVerification(ctx context.Context, email string) (types.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return types.User{}, "", err
	}
	if user.IsVerified {
		return types.User{}, "", ErrAlreadyVerified
	}

	verificationToken, err := token.GenerateSecret(token.DefaultSecretLength)
	if err != nil {
		return types.User{}, "", fmt.Errorf("generate verification token: %w", err)
	}
	if err := s.repo.SetVerificationToken(ctx, user.ID, token.DigestSecret(verificationToken), time.Now().Add(verificationTokenTTL)); err != nil {
		return types.User{}, "", err
	}

	return user, verificationToken, nil
}

// StartPasswordReset stores a reset digest with a short expiry and
// returns the plaintext token. Callers must treat store.ErrNotFound the
// same as success to avoid revealing which emails exist.
func (s *UserService) StartPasswordReset(ctx context.Context, email string) (types.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return types.User{}, "", err
	}

	resetToken, err := token.GenerateSecret(token.DefaultSecretLength)
	if err != nil {
		return types.User{}, "", fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.repo.SetResetToken(ctx, user.ID, token.DigestSecret(resetToken), time.Now().Add(resetTokenTTL)); err != nil {
		return types.User{}, "", err
	}

	return user, resetToken, nil
}

// ResetPassword redeems a reset token and installs a new password. An
// expired token fails even if the digest would match.
func (s *UserService) ResetPassword(ctx context.Context, plaintext, newPassword string) (types.User, error) {
	user, err := s.repo.GetByResetDigest(ctx, token.DigestSecret(plaintext))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrSecretTokenInvalid
		}
		return types.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return types.User{}, err
	}

	return user, nil
}

// ChangePassword verifies the current password before installing the
// new one. Storage is untouched when the current password is wrong.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return types.User{}, err
	}

	return user, nil
}

// DeleteAccount verifies the password and hard-deletes the record.
// Cleanup of related resources is left to their owners.
func (s *UserService) DeleteAccount(ctx context.Context, id, password string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	return s.repo.Delete(ctx, user.ID)
}
