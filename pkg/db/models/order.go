package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Order freezes a cart for payment. One order per cart; the order number is
// the user-facing reference printed on tickets and receipts.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	CartID           uuid.UUID           `gorm:"column:cart_id;type:uuid;not null;uniqueIndex"`
	OrderNumber      string              `gorm:"column:order_number;type:varchar(16);not null;uniqueIndex"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod    *string             `gorm:"column:payment_method"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	Cart             *Cart               `gorm:"foreignKey:CartID"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPaid reports whether payment settled.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == enums.PaymentStatusPaid
}
