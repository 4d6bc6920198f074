package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/pagination"
)

type stubEventsRepo struct {
	create   func(ctx context.Context, event *models.Event) (*models.Event, error)
	findByID func(ctx context.Context, id uuid.UUID) (*models.Event, error)
	update   func(ctx context.Context, id uuid.UUID, updates map[string]any) error
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (s *stubEventsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubEventsRepo) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	if s.create != nil {
		return s.create(ctx, event)
	}
	event.ID = uuid.New()
	return event, nil
}

func (s *stubEventsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if s.findByID != nil {
		return s.findByID(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
}

func (s *stubEventsRepo) List(ctx context.Context, params pagination.Params, filters Filters) (*EventList, error) {
	return &EventList{}, nil
}

func (s *stubEventsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.update != nil {
		return s.update(ctx, id, updates)
	}
	return nil
}

func (s *stubEventsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func newEventsService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func organizerActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.UserRoleOrganizer}
}

func TestCreate_RequiresOrganizerRole(t *testing.T) {
	svc := newEventsService(t, &stubEventsRepo{})

	_, err := svc.Create(context.Background(), CreateInput{
		Actor:    Actor{UserID: uuid.New(), Role: enums.UserRoleClient},
		Name:     "City Open",
		StartsAt: time.Now().Add(24 * time.Hour),
		EndsAt:   time.Now().Add(26 * time.Hour),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden code, got %v", err)
	}
}

func TestCreate_RejectsInvertedWindow(t *testing.T) {
	svc := newEventsService(t, &stubEventsRepo{})

	start := time.Now().Add(24 * time.Hour)
	_, err := svc.Create(context.Background(), CreateInput{
		Actor:    organizerActor(),
		Name:     "City Open",
		StartsAt: start,
		EndsAt:   start.Add(-time.Hour),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_StampsOrganizer(t *testing.T) {
	actor := organizerActor()
	var created *models.Event
	repo := &stubEventsRepo{
		create: func(ctx context.Context, event *models.Event) (*models.Event, error) {
			created = event
			return event, nil
		},
	}
	svc := newEventsService(t, repo)

	start := time.Now().Add(24 * time.Hour)
	_, err := svc.Create(context.Background(), CreateInput{
		Actor:    actor,
		Name:     "  City Open  ",
		Venue:    "Central Arena",
		StartsAt: start,
		EndsAt:   start.Add(3 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected repo create call")
	}
	if created.OrganizerID != actor.UserID {
		t.Fatalf("expected organizer %s, got %s", actor.UserID, created.OrganizerID)
	}
	if created.Name != "City Open" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
}

func TestUpdate_RejectsForeignOrganizer(t *testing.T) {
	owner := uuid.New()
	repo := &stubEventsRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Event, error) {
			return &models.Event{ID: id, OrganizerID: owner}, nil
		},
	}
	svc := newEventsService(t, repo)

	name := "Renamed"
	_, err := svc.Update(context.Background(), UpdateInput{
		Actor:   organizerActor(),
		EventID: uuid.New(),
		Name:    &name,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden code, got %v", err)
	}
}

func TestUpdate_AdminBypassesOwnership(t *testing.T) {
	owner := uuid.New()
	updated := false
	repo := &stubEventsRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Event, error) {
			return &models.Event{ID: id, OrganizerID: owner, StartsAt: time.Now(), EndsAt: time.Now().Add(time.Hour)}, nil
		},
		update: func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
			if updates["name"] != "Renamed" {
				t.Fatalf("unexpected updates: %v", updates)
			}
			updated = true
			return nil
		},
	}
	svc := newEventsService(t, repo)

	name := "Renamed"
	_, err := svc.Update(context.Background(), UpdateInput{
		Actor:   Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin},
		EventID: uuid.New(),
		Name:    &name,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated {
		t.Fatal("expected update call")
	}
}

func TestDelete_NotFoundPassesThrough(t *testing.T) {
	svc := newEventsService(t, &stubEventsRepo{})

	err := svc.Delete(context.Background(), organizerActor(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}
