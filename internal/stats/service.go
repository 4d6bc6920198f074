package stats

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a stats service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, errors.New("stats repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Apply advances the projection for every offer line of a settled order.
// All lines commit together so a replayed event never half-applies.
func (s *service) Apply(ctx context.Context, event payloads.OrderPaidEvent) error {
	if event.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if len(event.Lines) == 0 {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, line := range event.Lines {
			if line.OfferID == uuid.Nil || line.Quantity <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "order line is malformed").
					WithDetails(map[string]any{"order_id": event.OrderID})
			}
			revenue := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).RoundBank(2)
			if err := repo.Increment(ctx, line.OfferID, line.Quantity, revenue); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) List(ctx context.Context, actor Actor, filters Filters) ([]StatRow, error) {
	scoped, err := scopeFilters(actor, filters)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, scoped)
}

func (s *service) GetByOffer(ctx context.Context, actor Actor, offerID uuid.UUID) (*StatRow, error) {
	if offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
	}
	if err := authorizeReader(actor); err != nil {
		return nil, err
	}
	row, err := s.repo.FindRowByOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.UserRoleAdmin && row.OrganizerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stat belongs to another organizer")
	}
	return row, nil
}

func (s *service) Summary(ctx context.Context, actor Actor, filters Filters) (*Summary, error) {
	scoped, err := scopeFilters(actor, filters)
	if err != nil {
		return nil, err
	}
	return s.repo.Summary(ctx, scoped)
}

func scopeFilters(actor Actor, filters Filters) (Filters, error) {
	if err := authorizeReader(actor); err != nil {
		return Filters{}, err
	}
	if actor.Role == enums.UserRoleOrganizer {
		organizerID := actor.UserID
		filters.OrganizerID = &organizerID
	}
	return filters, nil
}

func authorizeReader(actor Actor) error {
	if actor.Role == enums.UserRoleAdmin || actor.Role == enums.UserRoleOrganizer {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "sales stats are restricted to organizers")
}
