package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Actor identifies the authenticated caller reading the projection.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Filters narrows stats reads. The service stamps OrganizerID for
// organizer callers so they only see their own events.
type Filters struct {
	EventID     *uuid.UUID `json:"eventId,omitempty"`
	OrganizerID *uuid.UUID `json:"-"`
}

// StatRow is one offer's projection joined with its offer and event.
type StatRow struct {
	OfferID     uuid.UUID       `gorm:"column:offer_id" json:"offerId"`
	OfferName   string          `gorm:"column:offer_name" json:"offerName"`
	EventID     uuid.UUID       `gorm:"column:event_id" json:"eventId"`
	OrganizerID uuid.UUID       `gorm:"column:organizer_id" json:"-"`
	TicketsSold int             `gorm:"column:tickets_sold" json:"ticketsSold"`
	Revenue     decimal.Decimal `gorm:"column:revenue" json:"revenue"`
	LastUpdated time.Time       `gorm:"column:last_updated" json:"lastUpdated"`
}

// Summary aggregates the projection across the selected offers.
type Summary struct {
	Offers      int             `gorm:"column:offers" json:"offers"`
	TicketsSold int             `gorm:"column:tickets_sold" json:"ticketsSold"`
	Revenue     decimal.Decimal `gorm:"column:revenue" json:"revenue"`
}
