package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/heptatravel/apiserver/config"
)

const (
	issuer          = "hepta-travel"
	audienceAccess  = "hepta-travel-users"
	audienceRefresh = "hepta-travel-refresh"
)

var (
	// ErrNoSecret signals missing signing configuration. Fatal at
	// process start, never per-request.
	ErrNoSecret = errors.New("token: signing secret is not configured")
	// ErrExpired signals a token past its expiry. Callers translate
	// this to "please log in again".
	ErrExpired = errors.New("token: token has expired")
	// ErrNotYetValid signals a token with a future nbf/iat.
	ErrNotYetValid = errors.New("token: token not active yet")
	// ErrInvalid covers bad signatures, wrong audience, and malformed
	// tokens.
	ErrInvalid = errors.New("token: invalid token")
)

// Claims is the identity claim set carried by both token kinds. Role is
// present on access tokens only; refresh tokens omit it so the current
// role is re-resolved from storage on every rotation.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Pair bundles the two tokens returned by login, registration and
// password reset.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RoleLookup resolves the current role for a user id. Injected into
// RotateAccess so role changes propagate without re-login.
type RoleLookup func(ctx context.Context, userID string) (string, error)

// Codec mints and verifies signed, expiring tokens. Stateless; safe for
// concurrent use.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewCodec constructs a Codec from config. The access secret is
// mandatory; the refresh secret falls back to it when absent.
func NewCodec(cfg config.JWTConfig) (*Codec, error) {
	accessSecret := strings.TrimSpace(cfg.AccessSecret)
	if accessSecret == "" {
		return nil, ErrNoSecret
	}

	refreshSecret := strings.TrimSpace(cfg.RefreshSecret)
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 7 * 24 * time.Hour
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// MintAccess produces a signed access token carrying subject, email and
// role.
func (c *Codec) MintAccess(userID, email, role string) (string, error) {
	return mint(c.accessSecret, audienceAccess, c.accessTTL, Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
	})
}

// MintRefresh produces a signed refresh token. No role claim: the role
// is re-resolved from the credential store on rotation.
func (c *Codec) MintRefresh(userID, email string) (string, error) {
	return mint(c.refreshSecret, audienceRefresh, c.refreshTTL, Claims{
		UserID: userID,
		Email:  email,
	})
}

// VerifyAccess checks signature, expiry, issuer and the access audience
// tag. The disjoint audience tags keep a refresh token from passing as
// an access token and vice versa.
func (c *Codec) VerifyAccess(tokenString string) (*Claims, error) {
	return verify(c.accessSecret, audienceAccess, tokenString)
}

// VerifyRefresh checks signature, expiry, issuer and the refresh
// audience tag.
func (c *Codec) VerifyRefresh(tokenString string) (*Claims, error) {
	return verify(c.refreshSecret, audienceRefresh, tokenString)
}

// IssuePair mints an access/refresh token pair for the same identity.
func (c *Codec) IssuePair(userID, email, role string) (Pair, error) {
	access, err := c.MintAccess(userID, email, role)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.MintRefresh(userID, email)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// RotateAccess verifies a refresh token, resolves the subject's current
// role through lookup, and mints a fresh access token. The refresh
// token itself is not rotated.
func (c *Codec) RotateAccess(ctx context.Context, refreshToken string, lookup RoleLookup) (string, error) {
	claims, err := c.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	role, err := lookup(ctx, claims.UserID)
	if err != nil {
		return "", err
	}

	return c.MintAccess(claims.UserID, claims.Email, role)
}

// DecodeUnsafe extracts claims without verifying the signature. For
// expiry introspection only, never for authorization decisions.
func DecodeUnsafe(tokenString string) *Claims {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}

// FromHeader parses a "Bearer <token>" Authorization header. Returns
// false for a missing header, a different scheme, or extra parts.
func FromHeader(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func mint(secret []byte, audience string, ttl time.Duration, claims Claims) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verify(secret []byte, audience, tokenString string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalid
			}
			return secret, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrNotYetValid
		default:
			return nil, ErrInvalid
		}
	}
	if !parsed.Valid || strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
