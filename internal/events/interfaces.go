package events

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/pagination"
)

// Repository defines persistence operations for events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*EventList, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service defines event-level operations exposed to controllers.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Event, error)
	Get(ctx context.Context, id uuid.UUID) (*EventDetail, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*EventList, error)
	Update(ctx context.Context, input UpdateInput) (*models.Event, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}
