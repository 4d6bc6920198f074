package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/internal/users"
	"github.com/eventpass/eventpass-backend/pkg/config"
	pkgmodels "github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/security"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	byEmail    map[string]*pkgmodels.User
	byUsername map[string]*pkgmodels.User
	created    *pkgmodels.User
	createErr  error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{
		byEmail:    map[string]*pkgmodels.User{},
		byUsername: map[string]*pkgmodels.User{},
	}
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) FindByUsername(ctx context.Context, username string) (*pkgmodels.User, error) {
	if user, ok := s.byUsername[username]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	s.byEmail[user.Email] = user
	s.byUsername[user.Username] = user
	s.created = user
	return user, nil
}

func newRegisterService(t *testing.T, repo *stubUserRepository) RegisterService {
	t.Helper()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return repo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc
}

func sampleRegisterRequest(username, email string) RegisterRequest {
	return RegisterRequest{
		Username:  username,
		Email:     email,
		Password:  "Secret123!",
		FirstName: "Jamie",
		LastName:  "Rivera",
	}
}

func TestRegisterCreatesClientByDefault(t *testing.T) {
	repo := newStubUserRepository()
	svc := newRegisterService(t, repo)

	dto, err := svc.Register(context.Background(), sampleRegisterRequest("jamie", "new@example.com"))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if repo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if repo.created.Role != enums.UserRoleClient {
		t.Fatalf("expected client role, got %s", repo.created.Role)
	}
	if repo.created.Status != enums.UserStatusActive {
		t.Fatalf("expected active status, got %s", repo.created.Status)
	}
	if dto.Email != "new@example.com" {
		t.Fatalf("unexpected email on response: %s", dto.Email)
	}

	valid, err := security.VerifyPassword("Secret123!", repo.created.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("stored hash does not verify: valid=%v err=%v", valid, err)
	}
}

func TestRegisterNormalizesEmailAndAcceptsOrganizerRole(t *testing.T) {
	repo := newStubUserRepository()
	svc := newRegisterService(t, repo)

	req := sampleRegisterRequest("venue-ops", "  Organizer@Example.COM ")
	req.Role = "organizer"

	dto, err := svc.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if dto.Email != "organizer@example.com" {
		t.Fatalf("expected lowercased email, got %s", dto.Email)
	}
	if repo.created.Role != enums.UserRoleOrganizer {
		t.Fatalf("expected organizer role, got %s", repo.created.Role)
	}
}

func TestRegisterRefusesAdminRole(t *testing.T) {
	repo := newStubUserRepository()
	svc := newRegisterService(t, repo)

	req := sampleRegisterRequest("root", "root@example.com")
	req.Role = "admin"

	_, err := svc.Register(context.Background(), req)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}
	if repo.created != nil {
		t.Fatalf("no user should be created")
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newStubUserRepository()
	existing := &pkgmodels.User{ID: uuid.New(), Username: "taken", Email: "dup@example.com"}
	repo.byEmail[existing.Email] = existing
	svc := newRegisterService(t, repo)

	_, err := svc.Register(context.Background(), sampleRegisterRequest("fresh", "dup@example.com"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	repo := newStubUserRepository()
	existing := &pkgmodels.User{ID: uuid.New(), Username: "taken", Email: "other@example.com"}
	repo.byUsername[existing.Username] = existing
	svc := newRegisterService(t, repo)

	_, err := svc.Register(context.Background(), sampleRegisterRequest("taken", "fresh@example.com"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}
