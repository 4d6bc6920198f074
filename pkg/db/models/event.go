package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/enums"
)

// Event is a scheduled competition offers are sold against.
type Event struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizerID uuid.UUID `gorm:"column:organizer_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Discipline  string    `gorm:"column:discipline;type:text;not null"`
	Venue       string    `gorm:"column:venue;type:text;not null"`
	Description *string   `gorm:"column:description"`
	StartsAt    time.Time `gorm:"column:starts_at;not null"`
	EndsAt      time.Time `gorm:"column:ends_at;not null"`
	Offers      []Offer   `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// StatusAt derives the lifecycle status from the event window.
func (e Event) StatusAt(now time.Time) enums.EventStatus {
	switch {
	case now.Before(e.StartsAt):
		return enums.EventStatusUpcoming
	case now.After(e.EndsAt):
		return enums.EventStatusFinished
	default:
		return enums.EventStatusOngoing
	}
}
