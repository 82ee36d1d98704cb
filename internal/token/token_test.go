package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/heptatravel/apiserver/config"
)

func newTestCodec(t *testing.T, cfg config.JWTConfig) *Codec {
	t.Helper()
	if cfg.AccessSecret == "" {
		cfg.AccessSecret = "test-access-secret"
	}
	codec, err := NewCodec(cfg)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestNewCodecRequiresSecret(t *testing.T) {
	if _, err := NewCodec(config.JWTConfig{}); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
	if _, err := NewCodec(config.JWTConfig{AccessSecret: "   "}); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret for blank secret, got %v", err)
	}
}

func TestAccessRoundTrip(t *testing.T) {
	codec := newTestCodec(t, config.JWTConfig{})

	signed, err := codec.MintAccess("user-1", "alice@example.com", "admin")
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}

	claims, err := codec.VerifyAccess(signed)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", claims.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", claims.Subject)
	}
}

func TestRefreshOmitsRole(t *testing.T) {
	codec := newTestCodec(t, config.JWTConfig{})

	signed, err := codec.MintRefresh("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("MintRefresh: %v", err)
	}
	claims, err := codec.VerifyRefresh(signed)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.Role != "" {
		t.Errorf("refresh token carries role %q, want empty", claims.Role)
	}
}

func TestExpiredToken(t *testing.T) {
	codec := newTestCodec(t, config.JWTConfig{})
	codec.accessTTL = -time.Minute

	signed, err := codec.MintAccess("user-1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}
	if _, err := codec.VerifyAccess(signed); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestAudienceSeparation(t *testing.T) {
	// Same secret for both kinds, so only the audience tag separates
	// them.
	codec := newTestCodec(t, config.JWTConfig{AccessSecret: "shared"})

	access, err := codec.MintAccess("user-1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}
	refresh, err := codec.MintRefresh("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("MintRefresh: %v", err)
	}

	if _, err := codec.VerifyAccess(refresh); !errors.Is(err, ErrInvalid) {
		t.Errorf("refresh token accepted as access token (err = %v)", err)
	}
	if _, err := codec.VerifyRefresh(access); !errors.Is(err, ErrInvalid) {
		t.Errorf("access token accepted as refresh token (err = %v)", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	minting := newTestCodec(t, config.JWTConfig{AccessSecret: "secret-a"})
	verifying := newTestCodec(t, config.JWTConfig{AccessSecret: "secret-b"})

	signed, err := minting.MintAccess("user-1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}
	if _, err := verifying.VerifyAccess(signed); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	codec := newTestCodec(t, config.JWTConfig{})
	for _, input := range []string{"", "garbage", "a.b.c"} {
		if _, err := codec.VerifyAccess(input); !errors.Is(err, ErrInvalid) {
			t.Errorf("VerifyAccess(%q) = %v, want ErrInvalid", input, err)
		}
	}
}

func TestRotateAccessUsesCurrentRole(t *testing.T) {
	codec := newTestCodec(t, config.JWTConfig{})

	refresh, err := codec.MintRefresh("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("MintRefresh: %v", err)
	}

	// The subject was promoted after the refresh token was minted.
	access, err := codec.RotateAccess(context.Background(), refresh, func(_ context.Context, userID string) (string, error) {
		if userID != "user-1" {
			t.Errorf("lookup called with %q, want user-1", userID)
		}
		return "admin", nil
	})
	if err != nil {
		t.Fatalf("RotateAccess: %v", err)
	}

	claims, err := codec.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("rotated role = %q, want admin", claims.Role)
	}
}

func TestRotateAccessLookupFailure(t *testing.T) {
	codec := newTestCodec(t, config.JWTConfig{})

	refresh, err := codec.MintRefresh("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("MintRefresh: %v", err)
	}

	lookupErr := errors.New("gone")
	if _, err := codec.RotateAccess(context.Background(), refresh, func(context.Context, string) (string, error) {
		return "", lookupErr
	}); !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestRotateAccessRejectsAccessToken(t *testing.T) {
	codec := newTestCodec(t, config.JWTConfig{AccessSecret: "shared"})

	access, err := codec.MintAccess("user-1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}
	if _, err := codec.RotateAccess(context.Background(), access, func(context.Context, string) (string, error) {
		return "user", nil
	}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestDecodeUnsafe(t *testing.T) {
	codec := newTestCodec(t, config.JWTConfig{})

	signed, err := codec.MintAccess("user-1", "alice@example.com", "user")
	if err != nil {
		t.Fatalf("MintAccess: %v", err)
	}

	claims := DecodeUnsafe(signed)
	if claims == nil {
		t.Fatal("DecodeUnsafe returned nil for a valid token")
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}

	if DecodeUnsafe("not-a-token") != nil {
		t.Error("DecodeUnsafe accepted garbage")
	}
}

func TestFromHeader(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc123", "abc123", true},
		{"  Bearer abc123  ", "abc123", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"bearer abc123", "", false},
		{"Basic abc123", "", false},
		{"Bearer abc 123", "", false},
	}
	for _, tt := range tests {
		got, ok := FromHeader(tt.header)
		if ok != tt.ok || got != tt.token {
			t.Errorf("FromHeader(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.token, tt.ok)
		}
	}
}
