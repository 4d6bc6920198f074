package stats

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
)

// Repository persists the per-offer sales projection.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Increment adds to tickets_sold and revenue for the offer, creating
	// the projection row on the first sale.
	Increment(ctx context.Context, offerID uuid.UUID, tickets int, revenue decimal.Decimal) error
	FindByOffer(ctx context.Context, offerID uuid.UUID) (*models.SalesStat, error)
	FindRowByOffer(ctx context.Context, offerID uuid.UUID) (*StatRow, error)
	List(ctx context.Context, filters Filters) ([]StatRow, error)
	Summary(ctx context.Context, filters Filters) (*Summary, error)
}

// Service applies settled orders to the projection and serves the read API.
type Service interface {
	Apply(ctx context.Context, event payloads.OrderPaidEvent) error
	List(ctx context.Context, actor Actor, filters Filters) ([]StatRow, error)
	GetByOffer(ctx context.Context, actor Actor, offerID uuid.UUID) (*StatRow, error)
	Summary(ctx context.Context, actor Actor, filters Filters) (*Summary, error)
}
