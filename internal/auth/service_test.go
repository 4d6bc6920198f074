package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/eventpass/eventpass-backend/pkg/auth"
	"github.com/eventpass/eventpass-backend/pkg/auth/session"
	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "eventpass",
		ExpirationMinutes: 30,
	}
}

func TestServiceLoginMintsRoleClaim(t *testing.T) {
	password := "organizer-secret"
	user := &models.User{
		ID:           uuid.New(),
		Username:     "organizer",
		Email:        "organizer@example.com",
		PasswordHash: mustHashPassword(t, password),
		FirstName:    "Olive",
		LastName:     "Runner",
		Role:         enums.UserRoleOrganizer,
		Status:       enums.UserStatusActive,
	}
	cfg := testJWTConfig()
	svc, sessionMgr := buildTestService(t, user, cfg)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleOrganizer {
		t.Fatalf("expected organizer role claim, got %s", claims.Role)
	}
	if claims.UserID != user.ID {
		t.Fatalf("user id claim mismatch")
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token to be set")
	}
	if sessionMgr.generatedFor != claims.ID {
		t.Fatalf("refresh session should be keyed by the jti")
	}
	if resp.User == nil || resp.User.LastLoginAt == nil {
		t.Fatalf("expected last login stamped on response user")
	}
}

func TestServiceLoginRejectsSuspendedAccount(t *testing.T) {
	password := "suspended"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "suspended@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleClient,
		Status:       enums.UserStatusSuspended,
	}
	svc, _ := buildTestService(t, user, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLoginRejectsWrongPassword(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "client@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleClient,
		Status:       enums.UserStatusActive,
	}
	svc, _ := buildTestService(t, user, testJWTConfig())

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: "wrong-password",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceRefreshRotatesPair(t *testing.T) {
	cfg := testJWTConfig()
	user := &models.User{
		ID:           uuid.New(),
		Email:        "client@example.com",
		PasswordHash: mustHashPassword(t, "pw"),
		Role:         enums.UserRoleClient,
		Status:       enums.UserStatusActive,
	}
	svc, sessionMgr := buildTestService(t, user, cfg)

	oldAccessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    oldAccessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	sessionMgr.rotatedAccessID = session.NewAccessID()
	sessionMgr.rotatedToken = "rotated-refresh"

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "current-refresh",
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if sessionMgr.rotateOldID != oldAccessID {
		t.Fatalf("expected rotation keyed by the presented jti")
	}
	if resp.RefreshToken != "rotated-refresh" {
		t.Fatalf("expected rotated refresh token, got %q", resp.RefreshToken)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.ID != sessionMgr.rotatedAccessID {
		t.Fatalf("new token should carry the rotated jti")
	}
}

func TestServiceRefreshRejectsUnknownSession(t *testing.T) {
	cfg := testJWTConfig()
	user := &models.User{
		ID:           uuid.New(),
		Email:        "client@example.com",
		PasswordHash: mustHashPassword(t, "pw"),
		Role:         enums.UserRoleClient,
		Status:       enums.UserStatusActive,
	}
	svc, sessionMgr := buildTestService(t, user, cfg)
	sessionMgr.rotateErr = session.ErrInvalidRefreshToken

	accessToken, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "stale",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	user := &models.User{ID: uuid.New(), Status: enums.UserStatusActive, Role: enums.UserRoleClient}
	svc, sessionMgr := buildTestService(t, user, testJWTConfig())

	accessID := session.NewAccessID()
	if err := svc.Logout(context.Background(), accessID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessionMgr.revokedID != accessID {
		t.Fatalf("expected session revoked for %s, got %s", accessID, sessionMgr.revokedID)
	}
}

func buildTestService(t *testing.T, user *models.User, jwtCfg config.JWTConfig) (Service, *stubSessionManager) {
	t.Helper()
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{user: user},
		SessionManager: sessionMgr,
		JWTConfig:      jwtCfg,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessionMgr
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	refreshToken    string
	generatedFor    string
	rotateOldID     string
	rotatedAccessID string
	rotatedToken    string
	rotateErr       error
	revokedID       string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generatedFor = accessID
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	s.rotateOldID = oldAccessID
	return s.rotatedAccessID, s.rotatedToken, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revokedID = accessID
	return nil
}
