package types

import "time"

// Role is the closed set of authorization levels.
type Role string

const (
	RoleUser  Role = "user"
	RoleGuide Role = "guide"
	RoleAdmin Role = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleGuide, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system.
// Secret columns carry `json:"-"` so they can never leak through a
// response payload; Sanitized additionally zeroes them for context use.
type User struct {
	// ID is the unique identifier of the user (UUID).
	ID string `json:"id" db:"id"`

	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`

	// Email is unique and stored lowercase.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	Avatar      string     `json:"avatar,omitempty" db:"avatar"`
	PhoneNumber *string    `json:"phoneNumber,omitempty" db:"phone_number"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty" db:"date_of_birth"`
	Nationality *string    `json:"nationality,omitempty" db:"nationality"`

	// IsVerified flips false -> true exactly once, when the email
	// verification token is redeemed.
	IsVerified bool `json:"isVerified" db:"is_verified"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// Never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// VerificationTokenDigest holds the SHA-256 digest of the pending
	// email-verification token, if any.
	VerificationTokenDigest  *string    `json:"-" db:"verification_token_digest"`
	VerificationTokenExpires *time.Time `json:"-" db:"verification_token_expires"`

	// ResetTokenDigest and ResetTokenExpires are set and cleared
	// together; an expired digest is treated as absent.
	ResetTokenDigest  *string    `json:"-" db:"reset_token_digest"`
	ResetTokenExpires *time.Time `json:"-" db:"reset_token_expires"`

	// TokenInvalidBefore is a watermark: access tokens issued before it
	// are rejected. Bumped on password change and password reset.
	TokenInvalidBefore time.Time `json:"-" db:"token_invalid_before"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName returns the user's display name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Sanitized returns a copy with every secret field zeroed. This is the
// identity view attached to request contexts and returned by handlers.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.VerificationTokenDigest = nil
	u.VerificationTokenExpires = nil
	u.ResetTokenDigest = nil
	u.ResetTokenExpires = nil
	return u
}
