package carts

import (
	"context"
	"errors"
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
	repo    Repository
	offers  OfferSource
	tx      txRunner
	outbox  outboxPublisher
	idleTTL time.Duration
}

// NewService builds a cart service. idleTTL bounds how long an untouched
// active cart survives before the cron worker expires it.
func NewService(repo Repository, offers OfferSource, tx txRunner, outboxPub outboxPublisher, idleTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, errors.New("carts repository required")
	}
	if offers == nil {
		return nil, errors.New("offer source required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if outboxPub == nil {
		return nil, errors.New("outbox publisher required")
	}
	if idleTTL <= 0 {
		return nil, errors.New("idle ttl must be positive")
	}
	return &service{repo: repo, offers: offers, tx: tx, outbox: outboxPub, idleTTL: idleTTL}, nil
}

func (s *service) GetActive(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resolved, err := s.resolveActiveCart(ctx, s.repo.WithTx(tx), userID)
		if err != nil {
			return err
		}
		cart = resolved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) AddLine(ctx context.Context, input AddLineInput) (*models.Cart, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.OfferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		offer, err := s.offers.FindByID(ctx, input.OfferID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if !offer.OnSaleAt(now) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer is not on sale")
		}

		cart, err := s.resolveActiveCart(ctx, repo, input.UserID)
		if err != nil {
			return err
		}

		existingQty := 0
		line, err := repo.FindLine(ctx, cart.ID, input.OfferID)
		if err != nil {
			if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
				return err
			}
			line = nil
		} else {
			existingQty = line.Quantity
		}

		requested := existingQty + input.Quantity
		if offer.StockAvailable < requested {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{
				"offer_id":  offer.ID,
				"available": offer.StockAvailable,
				"requested": requested,
			})
		}

		if line == nil {
			created := &models.CartLine{
				CartID:    cart.ID,
				OfferID:   offer.ID,
				Quantity:  input.Quantity,
				UnitPrice: offer.Price,
			}
			created.Subtotal = created.ComputeSubtotal()
			if _, err := repo.CreateLine(ctx, created); err != nil {
				return err
			}
		} else {
			line.Quantity = requested
			line.UnitPrice = offer.Price
			if err := repo.UpdateLine(ctx, line.ID, map[string]any{
				"quantity":   line.Quantity,
				"unit_price": line.UnitPrice,
				"subtotal":   line.ComputeSubtotal(),
			}); err != nil {
				return err
			}
		}

		refreshed, err := s.recomputeTotal(ctx, repo, cart.ID, now)
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RemoveLine(ctx context.Context, input RemoveLineInput) (*models.Cart, error) {
	if input.UserID == uuid.Nil || input.CartID == uuid.Nil || input.LineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user, cart and line ids are required")
	}

	var result *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByID(ctx, input.CartID)
		if err != nil {
			return err
		}
		if cart.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
		}
		if cart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is no longer active")
		}

		var target *models.CartLine
		for i := range cart.Lines {
			if cart.Lines[i].ID == input.LineID {
				target = &cart.Lines[i]
				break
			}
		}
		if target == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		if err := repo.DeleteLine(ctx, target.ID); err != nil {
			return err
		}

		refreshed, err := s.recomputeTotal(ctx, repo, cart.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		result = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireDue ages out active carts whose deadline passed. Each cart flips in
// its own transaction together with its cart_expired outbox record.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.FindDueForExpiry(ctx, now, 0)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, cart := range due {
		cart := cart
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.Update(ctx, cart.ID, map[string]any{"status": enums.CartStatusExpired}); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCartExpired,
				AggregateType: enums.AggregateCart,
				AggregateID:   cart.ID,
				Version:       1,
				OccurredAt:    now.UTC(),
				Data: payloads.CartExpiredEvent{
					CartID:    cart.ID,
					UserID:    cart.UserID,
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

// resolveActiveCart returns the user's single ACTIVE cart, creating one when
// none exists. Stray duplicates are expired, keeping the most recent.
func (s *service) resolveActiveCart(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Cart, error) {
	active, err := repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		expiresAt := time.Now().UTC().Add(s.idleTTL)
		cart := &models.Cart{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    enums.CartStatusActive,
			ExpiresAt: &expiresAt,
		}
		return repo.Create(ctx, cart)
	}
	for _, stray := range active[1:] {
		if err := repo.Update(ctx, stray.ID, map[string]any{"status": enums.CartStatusExpired}); err != nil {
			return nil, err
		}
	}
	return &active[0], nil
}

// recomputeTotal persists the cart total from its lines and pushes the idle
// deadline forward.
func (s *service) recomputeTotal(ctx context.Context, repo Repository, cartID uuid.UUID, now time.Time) (*models.Cart, error) {
	lines, err := repo.ListLines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(s.idleTTL)
	if err := repo.Update(ctx, cartID, map[string]any{
		"total":      sumLines(lines),
		"expires_at": expiresAt,
	}); err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, cartID)
}
