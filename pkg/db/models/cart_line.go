package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine snapshots one offer at the quantity and unit price it was added
// with. Unique on (cart_id, offer_id); adding the same offer bumps quantity.
type CartLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_lines_cart_offer"`
	OfferID   uuid.UUID       `gorm:"column:offer_id;type:uuid;not null;uniqueIndex:idx_cart_lines_cart_offer"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(8,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Offer     *Offer          `gorm:"foreignKey:OfferID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ComputeSubtotal applies banker's rounding to quantity times unit price.
func (l CartLine) ComputeSubtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).RoundBank(2)
}
