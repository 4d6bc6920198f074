package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/enums"
)

func jwtConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "eventpass",
		ExpirationMinutes: minutes,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, now time.Time, role enums.UserRole) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	return token, userID
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := jwtConfig(30)
	now := time.Now().UTC()
	token, userID := mintToken(t, cfg, now, enums.UserRoleOrganizer)

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.UserRoleOrganizer {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected a generated jti")
	}

	wantExp := now.Add(30 * time.Minute)
	if drift := claims.ExpiresAt.Sub(wantExp).Abs(); drift >= time.Second {
		t.Fatalf("exp drifted %v from %v", drift, wantExp)
	}
}

func TestParseAccessTokenRejectsTamperedToken(t *testing.T) {
	cfg := jwtConfig(10)
	token, _ := mintToken(t, cfg, time.Now(), enums.UserRoleClient)

	if _, err := ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := jwtConfig(15)
	token, _ := mintToken(t, cfg, time.Now().Add(-time.Hour), enums.UserRoleScanner)

	_, err := ParseAccessToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseAccessTokenAllowExpired(t *testing.T) {
	cfg := jwtConfig(15)
	token, userID := mintToken(t, cfg, time.Now().Add(-time.Hour), enums.UserRoleScanner)

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("expected expired token to parse, got %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}

	// Signature checks still apply even when expiry is waived.
	if _, err := ParseAccessTokenAllowExpired(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	payload := AccessTokenPayload{UserID: uuid.New(), Role: ""}
	if _, err := MintAccessToken(jwtConfig(5), time.Now(), payload); err == nil {
		t.Fatal("expected invalid role error")
	}
}
