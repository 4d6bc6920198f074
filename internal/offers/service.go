package offers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	events EventSource
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an offer service with the required dependencies.
func NewService(repo Repository, events EventSource, tx txRunner, outboxPub outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, errors.New("offers repository required")
	}
	if events == nil {
		return nil, errors.New("event source required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if outboxPub == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &service{repo: repo, events: events, tx: tx, outbox: outboxPub}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Offer, error) {
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	kind := input.Kind
	if kind == "" {
		kind = enums.OfferKindSolo
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown offer kind")
	}
	if input.SaleStartsAt != nil && input.SaleEndsAt != nil && input.SaleEndsAt.Before(*input.SaleStartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale window must end after it starts")
	}

	event, err := s.events.FindByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrganizer(input.Actor, event.OrganizerID); err != nil {
		return nil, err
	}

	offer := &models.Offer{
		EventID:        input.EventID,
		CreatorID:      input.Actor.UserID,
		Name:           name,
		Description:    input.Description,
		Kind:           kind,
		Seats:          kind.Seats(),
		Price:          input.Price.RoundBank(2),
		StockTotal:     input.Stock,
		StockAvailable: input.Stock,
		SaleStartsAt:   input.SaleStartsAt,
		SaleEndsAt:     input.SaleEndsAt,
		Status:         enums.OfferStatusActive,
	}
	return s.repo.Create(ctx, offer)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Offer, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	return s.repo.ListByEvent(ctx, eventID)
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Offer, error) {
	offer, err := s.loadOwned(ctx, input.Actor, input.OfferID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = input.Price.RoundBank(2)
	}
	if input.SaleStartsAt != nil {
		updates["sale_starts_at"] = *input.SaleStartsAt
	}
	if input.SaleEndsAt != nil {
		updates["sale_ends_at"] = *input.SaleEndsAt
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown offer status")
		}
		updates["status"] = *input.Status
	}

	if len(updates) == 0 {
		return offer, nil
	}
	if err := s.repo.Update(ctx, input.OfferID, updates); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, input.OfferID)
}

// Restock raises stock_total and stock_available together and reopens a
// sold-out offer. Runs under the same row lock the payment path takes.
func (s *service) Restock(ctx context.Context, actor Actor, offerID uuid.UUID, additional int) (*models.Offer, error) {
	if additional <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}
	if _, err := s.loadOwned(ctx, actor, offerID); err != nil {
		return nil, err
	}

	var restocked *models.Offer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockByIDs(ctx, []uuid.UUID{offerID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		offer := locked[0]

		updates := map[string]any{
			"stock_total":     offer.StockTotal + additional,
			"stock_available": offer.StockAvailable + additional,
		}
		if offer.Status == enums.OfferStatusSoldOut {
			updates["status"] = enums.OfferStatusActive
		}
		if err := repo.Update(ctx, offerID, updates); err != nil {
			return err
		}

		refreshed, err := repo.FindByID(ctx, offerID)
		if err != nil {
			return err
		}
		restocked = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restocked, nil
}

func (s *service) Delete(ctx context.Context, actor Actor, offerID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, actor, offerID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, offerID)
}

// ExpireDue closes offers whose sale window has passed. Each offer flips in
// its own transaction together with its offer_expired outbox record.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindDueForExpiry(ctx, now, 0)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, offer := range due {
		offer := offer
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Update(ctx, offer.ID, map[string]any{"status": enums.OfferStatusExpired}); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOfferExpired,
				AggregateType: enums.AggregateOffer,
				AggregateID:   offer.ID,
				Version:       1,
				OccurredAt:    now.UTC(),
				Data: payloads.OfferExpiredEvent{
					OfferID:   offer.ID,
					EventID:   offer.EventID,
					ExpiredAt: now.UTC(),
				},
			})
		})
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *service) loadOwned(ctx context.Context, actor Actor, offerID uuid.UUID) (*models.Offer, error) {
	if offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
	}
	offer, err := s.repo.FindByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.UserRoleAdmin || actor.UserID == offer.CreatorID {
		return offer, nil
	}
	event, err := s.events.FindByID(ctx, offer.EventID)
	if err != nil {
		return nil, err
	}
	if actor.Role == enums.UserRoleOrganizer && actor.UserID == event.OrganizerID {
		return offer, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "offer belongs to another organizer")
}

func authorizeOrganizer(actor Actor, organizerID uuid.UUID) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	if actor.Role == enums.UserRoleOrganizer && actor.UserID == organizerID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "only the event organizer can manage its offers")
}
