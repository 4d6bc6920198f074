package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesStat is the per-offer sales projection. Only the stats worker writes
// rows here; API reads are eventually consistent with paid orders.
type SalesStat struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OfferID     uuid.UUID       `gorm:"column:offer_id;type:uuid;not null;uniqueIndex"`
	TicketsSold int             `gorm:"column:tickets_sold;not null;default:0"`
	Revenue     decimal.Decimal `gorm:"column:revenue;type:numeric(12,2);not null;default:0"`
	LastUpdated time.Time       `gorm:"column:last_updated;autoUpdateTime"`
}
