package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Offer is a sellable ticket formula for an event. Stock fields are mutated
// only inside the payment transaction and the organizer restock path.
type Offer struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID        uuid.UUID         `gorm:"column:event_id;type:uuid;not null;index"`
	CreatorID      uuid.UUID         `gorm:"column:creator_id;type:uuid;not null"`
	Name           string            `gorm:"column:name;type:text;not null"`
	Description    *string           `gorm:"column:description"`
	Kind           enums.OfferKind   `gorm:"column:kind;type:offer_kind;not null;default:'solo'"`
	Seats          int               `gorm:"column:seats;not null;default:1"`
	Price          decimal.Decimal   `gorm:"column:price;type:numeric(8,2);not null"`
	StockTotal     int               `gorm:"column:stock_total;not null;default:0"`
	StockAvailable int               `gorm:"column:stock_available;not null;default:0"`
	SaleStartsAt   *time.Time        `gorm:"column:sale_starts_at"`
	SaleEndsAt     *time.Time        `gorm:"column:sale_ends_at"`
	Status         enums.OfferStatus `gorm:"column:status;type:offer_status;not null;default:'active'"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OnSaleAt reports whether the offer can be added to carts at the given time.
func (o Offer) OnSaleAt(now time.Time) bool {
	if o.Status != enums.OfferStatusActive {
		return false
	}
	if o.SaleStartsAt != nil && now.Before(*o.SaleStartsAt) {
		return false
	}
	if o.SaleEndsAt != nil && now.After(*o.SaleEndsAt) {
		return false
	}
	return true
}
