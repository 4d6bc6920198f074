package offers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
)

type stubOffersRepo struct {
	create           func(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	findByID         func(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	lockByIDs        func(ctx context.Context, ids []uuid.UUID) ([]models.Offer, error)
	update           func(ctx context.Context, id uuid.UUID, updates map[string]any) error
	findDueForExpiry func(ctx context.Context, now time.Time, limit int) ([]models.Offer, error)
}

func (s *stubOffersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOffersRepo) Create(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	if s.create != nil {
		return s.create(ctx, offer)
	}
	offer.ID = uuid.New()
	return offer, nil
}

func (s *stubOffersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	if s.findByID != nil {
		return s.findByID(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
}

func (s *stubOffersRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Offer, error) {
	return nil, nil
}

func (s *stubOffersRepo) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Offer, error) {
	if s.lockByIDs != nil {
		return s.lockByIDs(ctx, ids)
	}
	return nil, nil
}

func (s *stubOffersRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.update != nil {
		return s.update(ctx, id, updates)
	}
	return nil
}

func (s *stubOffersRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubOffersRepo) FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.Offer, error) {
	if s.findDueForExpiry != nil {
		return s.findDueForExpiry(ctx, now, limit)
	}
	return nil, nil
}

type stubEventSource struct {
	findByID func(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

func (s *stubEventSource) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if s.findByID != nil {
		return s.findByID(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func newOffersService(t *testing.T, repo Repository, events EventSource, ob outboxPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, events, stubTxRunner{}, ob)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func ownedEventSource(organizerID uuid.UUID) *stubEventSource {
	return &stubEventSource{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Event, error) {
			return &models.Event{ID: id, OrganizerID: organizerID}, nil
		},
	}
}

func TestCreateOffer_DerivesSeatsFromKind(t *testing.T) {
	organizer := uuid.New()
	var created *models.Offer
	repo := &stubOffersRepo{
		create: func(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
			created = offer
			return offer, nil
		},
	}
	svc := newOffersService(t, repo, ownedEventSource(organizer), &stubOutbox{})

	_, err := svc.Create(context.Background(), CreateInput{
		Actor:   Actor{UserID: organizer, Role: enums.UserRoleOrganizer},
		EventID: uuid.New(),
		Name:    "Family Pass",
		Kind:    enums.OfferKindFamily,
		Price:   decimal.RequireFromString("120.00"),
		Stock:   30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Seats != 4 {
		t.Fatalf("expected 4 seats for family kind, got %d", created.Seats)
	}
	if created.StockAvailable != 30 || created.StockTotal != 30 {
		t.Fatalf("expected stock mirrored, got %d/%d", created.StockAvailable, created.StockTotal)
	}
	if created.Status != enums.OfferStatusActive {
		t.Fatalf("expected active offer, got %s", created.Status)
	}
}

func TestCreateOffer_RejectsForeignOrganizer(t *testing.T) {
	svc := newOffersService(t, &stubOffersRepo{}, ownedEventSource(uuid.New()), &stubOutbox{})

	_, err := svc.Create(context.Background(), CreateInput{
		Actor:   Actor{UserID: uuid.New(), Role: enums.UserRoleOrganizer},
		EventID: uuid.New(),
		Name:    "Solo",
		Price:   decimal.NewFromInt(10),
		Stock:   5,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden code, got %v", err)
	}
}

func TestRestock_ReopensSoldOutOffer(t *testing.T) {
	organizer := uuid.New()
	offerID := uuid.New()
	offer := models.Offer{
		ID:             offerID,
		CreatorID:      organizer,
		StockTotal:     10,
		StockAvailable: 0,
		Status:         enums.OfferStatusSoldOut,
	}

	var captured map[string]any
	repo := &stubOffersRepo{
		findByID: func(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
			clone := offer
			return &clone, nil
		},
		lockByIDs: func(ctx context.Context, ids []uuid.UUID) ([]models.Offer, error) {
			if len(ids) != 1 || ids[0] != offerID {
				t.Fatalf("unexpected lock ids: %v", ids)
			}
			return []models.Offer{offer}, nil
		},
		update: func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
			captured = updates
			return nil
		},
	}
	svc := newOffersService(t, repo, ownedEventSource(organizer), &stubOutbox{})

	_, err := svc.Restock(context.Background(), Actor{UserID: organizer, Role: enums.UserRoleOrganizer}, offerID, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured["stock_total"] != 15 || captured["stock_available"] != 5 {
		t.Fatalf("unexpected stock updates: %v", captured)
	}
	if captured["status"] != enums.OfferStatusActive {
		t.Fatalf("expected sold_out cleared, got %v", captured["status"])
	}
}

func TestRestock_RejectsNonPositiveQuantity(t *testing.T) {
	svc := newOffersService(t, &stubOffersRepo{}, ownedEventSource(uuid.New()), &stubOutbox{})

	_, err := svc.Restock(context.Background(), Actor{UserID: uuid.New(), Role: enums.UserRoleOrganizer}, uuid.New(), 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExpireDue_FlipsStatusAndEmits(t *testing.T) {
	now := time.Now().UTC()
	ends := now.Add(-time.Hour)
	due := []models.Offer{
		{ID: uuid.New(), EventID: uuid.New(), Status: enums.OfferStatusActive, SaleEndsAt: &ends},
		{ID: uuid.New(), EventID: uuid.New(), Status: enums.OfferStatusSoldOut, SaleEndsAt: &ends},
	}

	var statusUpdates int
	repo := &stubOffersRepo{
		findDueForExpiry: func(ctx context.Context, at time.Time, limit int) ([]models.Offer, error) {
			return due, nil
		},
		update: func(ctx context.Context, id uuid.UUID, updates map[string]any) error {
			if updates["status"] != enums.OfferStatusExpired {
				t.Fatalf("unexpected status update: %v", updates)
			}
			statusUpdates++
			return nil
		},
	}
	ob := &stubOutbox{}
	svc := newOffersService(t, repo, ownedEventSource(uuid.New()), ob)

	expired, err := svc.ExpireDue(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 2 || statusUpdates != 2 {
		t.Fatalf("expected 2 expiries, got %d (updates %d)", expired, statusUpdates)
	}
	if len(ob.events) != 2 {
		t.Fatalf("expected 2 outbox events, got %d", len(ob.events))
	}
	if ob.events[0].EventType != enums.EventOfferExpired {
		t.Fatalf("unexpected event type %s", ob.events[0].EventType)
	}
}
