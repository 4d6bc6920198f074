package tickets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/pagination"
)

// Repository defines persistence operations for issued tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	FindByFinalKey(ctx context.Context, finalKey uuid.UUID) (*models.Ticket, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TicketList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// Service defines gate-side and holder-side ticket operations.
type Service interface {
	Validate(ctx context.Context, validator Actor, input ValidateInput) (*models.Ticket, error)
	Cancel(ctx context.Context, actor Actor, ticketID uuid.UUID) (*models.Ticket, error)
	ListMine(ctx context.Context, actor Actor, params pagination.Params) (*TicketList, error)
	GetByFinalKey(ctx context.Context, actor Actor, finalKey uuid.UUID) (*models.Ticket, error)
}
