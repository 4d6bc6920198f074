package tickets

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
	now    func() time.Time
}

// NewService builds a ticket service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxPub outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, errors.New("tickets repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if outboxPub == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxPub, now: time.Now}, nil
}

// Validate turns a VALID ticket into USED, stamping who scanned it, when
// and where. Any other status is a terminal state for the gate.
func (s *service) Validate(ctx context.Context, validator Actor, input ValidateInput) (*models.Ticket, error) {
	if !canScan(validator.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "scanning requires a scanner role")
	}
	if input.TicketID == uuid.Nil && input.FinalKey == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id or final key is required")
	}

	var validated *models.Ticket
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ticket, err := resolveTicket(ctx, repo, input)
		if err != nil {
			return err
		}
		if ticket.Status != enums.TicketStatusValid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is not valid").
				WithDetails(map[string]any{"status": ticket.Status})
		}

		now := s.now().UTC()
		location := strings.TrimSpace(input.Location)
		updates := map[string]any{
			"status":       enums.TicketStatusUsed,
			"used_at":      now,
			"validator_id": validator.UserID,
		}
		if location != "" {
			updates["usage_location"] = location
		}
		if err := repo.Update(ctx, ticket.ID, updates); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketValidated,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Version:       1,
			OccurredAt:    now,
			Actor:         &outbox.ActorRef{UserID: validator.UserID, Role: string(validator.Role)},
			Data: payloads.TicketValidatedEvent{
				TicketID:      ticket.ID,
				ValidatorID:   validator.UserID,
				UsedAt:        now,
				UsageLocation: location,
			},
		}); err != nil {
			return err
		}

		ticket.Status = enums.TicketStatusUsed
		ticket.UsedAt = &now
		ticket.ValidatorID = &validator.UserID
		if location != "" {
			ticket.UsageLocation = &location
		}
		validated = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return validated, nil
}

// Cancel voids a VALID ticket before use.
func (s *service) Cancel(ctx context.Context, actor Actor, ticketID uuid.UUID) (*models.Ticket, error) {
	if ticketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	var cancelled *models.Ticket
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ticket, err := repo.FindByID(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.UserID != actor.UserID && actor.Role != enums.UserRoleAdmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "ticket belongs to another user")
		}
		if ticket.Status != enums.TicketStatusValid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only valid tickets can be cancelled").
				WithDetails(map[string]any{"status": ticket.Status})
		}

		now := s.now().UTC()
		if err := repo.Update(ctx, ticket.ID, map[string]any{"status": enums.TicketStatusCancelled}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketCancelled,
			AggregateType: enums.AggregateTicket,
			AggregateID:   ticket.ID,
			Version:       1,
			OccurredAt:    now,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.TicketCancelledEvent{
				TicketID:    ticket.ID,
				CancelledAt: now,
			},
		}); err != nil {
			return err
		}

		ticket.Status = enums.TicketStatusCancelled
		cancelled = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *service) ListMine(ctx context.Context, actor Actor, params pagination.Params) (*TicketList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, actor.UserID, params)
}

func (s *service) GetByFinalKey(ctx context.Context, actor Actor, finalKey uuid.UUID) (*models.Ticket, error) {
	if finalKey == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "final key is required")
	}
	ticket, err := s.repo.FindByFinalKey(ctx, finalKey)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != actor.UserID && !canScan(actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "ticket belongs to another user")
	}
	return ticket, nil
}

func resolveTicket(ctx context.Context, repo Repository, input ValidateInput) (*models.Ticket, error) {
	if input.TicketID != uuid.Nil {
		return repo.FindByID(ctx, input.TicketID)
	}
	return repo.FindByFinalKey(ctx, input.FinalKey)
}

func canScan(role enums.UserRole) bool {
	return role == enums.UserRoleScanner || role == enums.UserRoleOrganizer || role == enums.UserRoleAdmin
}
