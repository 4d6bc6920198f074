package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPaidLine is one aggregated offer line of a settled order. The stats
// worker consumes these to advance the sales projection.
type OrderPaidLine struct {
	OfferID   uuid.UUID       `json:"offer_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderPaidEvent is emitted inside the payment transaction when an order
// settles.
type OrderPaidEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAt      time.Time       `json:"paid_at"`
	Lines       []OrderPaidLine `json:"lines"`
}

// OrderCreatedEvent signals that a cart was frozen into a pending order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	CartID      uuid.UUID       `json:"cart_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderCanceledEvent is emitted when a pending order is abandoned.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	CanceledAt time.Time `json:"canceled_at"`
	Reason     string    `json:"reason,omitempty"`
}

// CartExpiredEvent reports a cart aged out by the cron worker.
type CartExpiredEvent struct {
	CartID    uuid.UUID `json:"cart_id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// OfferSoldOutEvent fires when the payment transaction drains an offer's stock.
type OfferSoldOutEvent struct {
	OfferID   uuid.UUID `json:"offer_id"`
	EventID   uuid.UUID `json:"event_id"`
	SoldOutAt time.Time `json:"sold_out_at"`
}

// OfferExpiredEvent reports an offer whose sale window closed.
type OfferExpiredEvent struct {
	OfferID   uuid.UUID `json:"offer_id"`
	EventID   uuid.UUID `json:"event_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// TicketsIssuedEvent is emitted when tickets are created for an order,
// whether by payment or by the manual issuance path.
type TicketsIssuedEvent struct {
	OrderID   uuid.UUID   `json:"order_id"`
	UserID    uuid.UUID   `json:"user_id"`
	TicketIDs []uuid.UUID `json:"ticket_ids"`
	Manual    bool        `json:"manual"`
}

// TicketValidatedEvent records a gate scan.
type TicketValidatedEvent struct {
	TicketID      uuid.UUID `json:"ticket_id"`
	ValidatorID   uuid.UUID `json:"validator_id"`
	UsedAt        time.Time `json:"used_at"`
	UsageLocation string    `json:"usage_location,omitempty"`
}

// TicketCancelledEvent records a ticket voided before use.
type TicketCancelledEvent struct {
	TicketID    uuid.UUID `json:"ticket_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}
