package tickets

import (
	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Actor identifies the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ValidateInput identifies the ticket being scanned, either directly or by
// its QR final key, plus where the scan happened.
type ValidateInput struct {
	TicketID uuid.UUID
	FinalKey uuid.UUID
	Location string
}

// TicketList is a cursor-paginated page of tickets.
type TicketList struct {
	Tickets    []models.Ticket `json:"tickets"`
	NextCursor string          `json:"nextCursor,omitempty"`
}
