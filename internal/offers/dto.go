package offers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Actor identifies the authenticated caller performing a mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateInput carries the validated fields for creating an offer.
type CreateInput struct {
	Actor        Actor
	EventID      uuid.UUID
	Name         string
	Description  *string
	Kind         enums.OfferKind
	Price        decimal.Decimal
	Stock        int
	SaleStartsAt *time.Time
	SaleEndsAt   *time.Time
}

// UpdateInput carries a partial update for an offer. Nil fields are left
// untouched. Stock is adjusted through Restock, never here.
type UpdateInput struct {
	Actor        Actor
	OfferID      uuid.UUID
	Name         *string
	Description  *string
	Price        *decimal.Decimal
	SaleStartsAt *time.Time
	SaleEndsAt   *time.Time
	Status       *enums.OfferStatus
}
