package payments

import (
	"strings"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Actor identifies the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// PayInput carries the caller-provided payment attributes. Both fields are
// optional; defaults are applied during settlement.
type PayInput struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

// TicketSummary is the wire shape of one issued ticket.
type TicketSummary struct {
	ID           uuid.UUID          `json:"id"`
	TicketNumber string             `json:"ticket_number"`
	QRPayload    string             `json:"qr_payload"`
	Status       enums.TicketStatus `json:"status"`
}

// PayResult reports a settled (or manually re-issued) order.
type PayResult struct {
	OrderNumber string          `json:"order_number"`
	Tickets     []TicketSummary `json:"tickets"`
}

// NewTicketNumber derives a printable ticket reference: "TICKET-" plus 10
// uppercase hex characters from a fresh uuid4.
func NewTicketNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TICKET-" + strings.ToUpper(raw[:10])
}
