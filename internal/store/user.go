package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heptatravel/apiserver/types"
)

const userColumns = `
	id, first_name, last_name, email, role, avatar, phone_number,
	date_of_birth, nationality, is_verified, password_hash,
	verification_token_digest, verification_token_expires,
	reset_token_digest, reset_token_expires, token_invalid_before,
	created_at, updated_at`

// UserRepository handles persistence for credential records.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetByVerificationDigest matches a pending, unexpired email
// verification token digest.
func (r *UserRepository) GetByVerificationDigest(ctx context.Context, digest string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE verification_token_digest = $1
		  AND verification_token_expires > now()`
	return r.scanOne(r.db.QueryRowContext(ctx, query, digest))
}

// GetByResetDigest matches a pending password-reset token digest whose
// expiry is still in the future. An expired digest is treated as absent
// even though it is still stored.
func (r *UserRepository) GetByResetDigest(ctx context.Context, digest string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_token_digest = $1
		  AND reset_token_expires > now()`
	return r.scanOne(r.db.QueryRowContext(ctx, query, digest))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (
			id, first_name, last_name, email, role, avatar, phone_number,
			date_of_birth, nationality, is_verified, password_hash,
			verification_token_digest, verification_token_expires,
			token_invalid_before, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Role,
		user.Avatar,
		user.PhoneNumber,
		user.DateOfBirth,
		user.Nationality,
		user.IsVerified,
		user.PasswordHash,
		user.VerificationTokenDigest,
		user.VerificationTokenExpires,
		user.TokenInvalidBefore,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET first_name = $1,
			last_name = $2,
			email = $3,
			role = $4,
			avatar = $5,
			phone_number = $6,
			date_of_birth = $7,
			nationality = $8,
			updated_at = $9
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.FirstName,
		user.LastName,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.Role,
		user.Avatar,
		user.PhoneNumber,
		user.DateOfBirth,
		user.Nationality,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, err
	}
	if err := requireAffected(result); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// UpdatePassword replaces the password hash, clears any pending reset
// token, and bumps the token watermark so access tokens issued before
// the change stop validating. The watermark is truncated to the second
// to match the precision of token issue timestamps.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			reset_token_digest = NULL,
			reset_token_expires = NULL,
			token_invalid_before = date_trunc('second', now()),
			updated_at = now()
		WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetVerificationToken stores a fresh verification digest and expiry.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id, digest string, expires time.Time) error {
	const query = `
		UPDATE users
		SET verification_token_digest = $1,
			verification_token_expires = $2,
			updated_at = now()
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, digest, expires, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// MarkVerified flips the verification flag and clears the stored
// digest. The flag only ever transitions false -> true.
func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `
		UPDATE users
		SET is_verified = TRUE,
			verification_token_digest = NULL,
			verification_token_expires = NULL,
			updated_at = now()
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetResetToken stores a reset digest and its expiry; the pair is
// always written together.
func (r *UserRepository) SetResetToken(ctx context.Context, id, digest string, expires time.Time) error {
	const query = `
		UPDATE users
		SET reset_token_digest = $1,
			reset_token_expires = $2,
			updated_at = now()
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, digest, expires, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) scanOne(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Role,
		&user.Avatar,
		&user.PhoneNumber,
		&user.DateOfBirth,
		&user.Nationality,
		&user.IsVerified,
		&user.PasswordHash,
		&user.VerificationTokenDigest,
		&user.VerificationTokenExpires,
		&user.ResetTokenDigest,
		&user.ResetTokenExpires,
		&user.TokenInvalidBefore,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
