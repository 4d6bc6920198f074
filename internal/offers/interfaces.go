package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
)

// Repository defines persistence operations for offers, including the
// row-lock acquisition the payment transaction depends on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Offer, error)
	// LockByIDs loads the given offers FOR UPDATE in ascending id order.
	// Callers must already be inside a transaction.
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Offer, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.Offer, error)
}

// EventSource resolves events for ownership checks. Satisfied by the
// events repository.
type EventSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Service defines offer management operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Offer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Offer, error)
	Update(ctx context.Context, input UpdateInput) (*models.Offer, error)
	Restock(ctx context.Context, actor Actor, offerID uuid.UUID, additional int) (*models.Offer, error)
	Delete(ctx context.Context, actor Actor, offerID uuid.UUID) error
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
