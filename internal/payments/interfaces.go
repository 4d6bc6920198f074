package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
)

// Repository gathers every persistence operation the payment transaction
// needs under one handle, so the whole settlement runs on a single tx.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// LockOffers loads the given offers FOR UPDATE in ascending id order.
	LockOffers(ctx context.Context, ids []uuid.UUID) ([]models.Offer, error)
	UpdateOffer(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateTickets(ctx context.Context, tickets []*models.Ticket) error
	CountTicketsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// Service settles orders and issues their tickets.
type Service interface {
	Pay(ctx context.Context, orderID uuid.UUID, actor Actor, input PayInput) (*PayResult, error)
	IssueTickets(ctx context.Context, orderID uuid.UUID, actor Actor) (*PayResult, error)
}
