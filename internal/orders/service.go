package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
	"github.com/eventpass/eventpass-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxPub outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if outboxPub == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxPub}, nil
}

// Create freezes the cart into a pending order. The cart flips to LOCKED in
// the same transaction, and the total is recomputed from line subtotals
// rather than trusted from the stored cart total.
func (s *service) Create(ctx context.Context, actor Actor, cartID uuid.UUID) (*models.Order, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindCartByID(ctx, cartID)
		if err != nil {
			return err
		}
		if cart.UserID != actor.UserID && actor.Role != enums.UserRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cart belongs to another user")
		}
		if cart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is no longer active")
		}
		if len(cart.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		var orphaned []uuid.UUID
		for _, line := range cart.Lines {
			if line.Offer == nil {
				orphaned = append(orphaned, line.ID)
			}
		}
		if len(orphaned) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart has lines referencing removed offers").
				WithDetails(map[string]any{"line_ids": orphaned})
		}

		if _, err := repo.FindByCartID(ctx, cartID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart already has an order")
		} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			return err
		}

		total := decimal.Zero
		for _, line := range cart.Lines {
			total = total.Add(line.ComputeSubtotal())
		}

		order := &models.Order{
			ID:            uuid.New(),
			UserID:        cart.UserID,
			CartID:        cart.ID,
			OrderNumber:   NewOrderNumber(),
			TotalAmount:   total.RoundBank(2),
			PaymentStatus: enums.PaymentStatusPending,
		}
		if _, err := repo.Create(ctx, order); err != nil {
			return err
		}
		if err := repo.UpdateCart(ctx, cart.ID, map[string]any{"status": enums.CartStatusLocked}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				CartID:      cart.ID,
				TotalAmount: order.TotalAmount,
			},
		}); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor Actor, params pagination.Params) (*OrderList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, actor.UserID, params)
}

// Cancel removes a pending order and reopens its cart. Paid orders are
// immutable.
func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != actor.UserID && actor.Role != enums.UserRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.IsPaid() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "paid orders cannot be canceled")
		}

		if err := repo.Delete(ctx, order.ID); err != nil {
			return err
		}
		if err := repo.UpdateCart(ctx, order.CartID, map[string]any{"status": enums.CartStatusActive}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				CanceledAt: time.Now().UTC(),
			},
		})
	})
}
