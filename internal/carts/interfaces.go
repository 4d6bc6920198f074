package carts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
)

// Repository defines persistence operations for carts and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	// FindActiveByUser returns every ACTIVE cart for the user, most recent
	// first. More than one means an earlier resolution was interrupted.
	FindActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.Cart, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	FindLine(ctx context.Context, cartID, offerID uuid.UUID) (*models.CartLine, error)
	CreateLine(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	UpdateLine(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteLine(ctx context.Context, id uuid.UUID) error
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]models.Cart, error)
}

// OfferSource resolves offers for stock and sale-window checks. Satisfied
// by the offers repository.
type OfferSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

// Service defines cart aggregation operations.
type Service interface {
	GetActive(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddLine(ctx context.Context, input AddLineInput) (*models.Cart, error)
	RemoveLine(ctx context.Context, input RemoveLineInput) (*models.Cart, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
