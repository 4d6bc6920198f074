package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Ticket is one admission issued by a paid order. FinalKey is the scannable
// QR payload; it never changes after issuance.
type Ticket struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	OfferID       uuid.UUID          `gorm:"column:offer_id;type:uuid;not null;index"`
	OrderID       uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	ValidatorID   *uuid.UUID         `gorm:"column:validator_id;type:uuid"`
	TicketNumber  string             `gorm:"column:ticket_number;type:varchar(17);not null;uniqueIndex"`
	PurchaseKey   uuid.UUID          `gorm:"column:purchase_key;type:uuid;not null"`
	FinalKey      uuid.UUID          `gorm:"column:final_key;type:uuid;not null;uniqueIndex"`
	PricePaid     decimal.Decimal    `gorm:"column:price_paid;type:numeric(8,2);not null"`
	Status        enums.TicketStatus `gorm:"column:status;type:ticket_status;not null;default:'valid'"`
	UsedAt        *time.Time         `gorm:"column:used_at"`
	UsageLocation *string            `gorm:"column:usage_location"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
