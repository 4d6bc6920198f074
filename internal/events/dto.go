package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Actor identifies the authenticated caller performing a mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateInput carries the validated fields for creating an event.
type CreateInput struct {
	Actor       Actor
	Name        string
	Discipline  string
	Venue       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
}

// UpdateInput carries a partial update for an event. Nil fields are
// left untouched.
type UpdateInput struct {
	Actor       Actor
	EventID     uuid.UUID
	Name        *string
	Discipline  *string
	Venue       *string
	Description *string
	StartsAt    *time.Time
	EndsAt      *time.Time
}

// Filters narrows event listings.
type Filters struct {
	OrganizerID *uuid.UUID         `json:"organizerId,omitempty"`
	Discipline  *string            `json:"discipline,omitempty"`
	Status      *enums.EventStatus `json:"status,omitempty"`
	From        *time.Time         `json:"from,omitempty"`
	To          *time.Time         `json:"to,omitempty"`
}

// EventList is a cursor-paginated page of events.
type EventList struct {
	Events     []models.Event `json:"events"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// EventDetail is an event with its offers and a derived status.
type EventDetail struct {
	Event  models.Event      `json:"event"`
	Status enums.EventStatus `json:"status"`
}
