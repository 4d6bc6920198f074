package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/api/responses"
	"github.com/eventpass/eventpass-backend/api/validators"
	"github.com/eventpass/eventpass-backend/internal/events"
	"github.com/eventpass/eventpass-backend/internal/offers"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/logger"
)

type eventCreateRequest struct {
	Name        string    `json:"name" validate:"required,min=2,max=200"`
	Discipline  string    `json:"discipline" validate:"required,min=2,max=100"`
	Venue       string    `json:"venue" validate:"required,min=2,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required"`
}

type eventUpdateRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=2,max=200"`
	Discipline  *string    `json:"discipline" validate:"omitempty,min=2,max=100"`
	Venue       *string    `json:"venue" validate:"omitempty,min=2,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=5000"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// EventList serves the public event catalog.
func EventList(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildEventFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// EventDetail serves one event with its derived status.
func EventDetail(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		eventID, err := parsePathID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// EventOffers lists the sellable offers attached to an event.
func EventOffers(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		eventID, err := parsePathID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByEvent(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"offers": list})
	}
}

// EventCreate lets an organizer publish a new event.
func EventCreate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body eventCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Create(r.Context(), events.CreateInput{
			Actor:       events.Actor{UserID: actor.UserID, Role: actor.Role},
			Name:        body.Name,
			Discipline:  body.Discipline,
			Venue:       body.Venue,
			Description: body.Description,
			StartsAt:    body.StartsAt,
			EndsAt:      body.EndsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

// EventUpdate applies a partial update to an organizer's event.
func EventUpdate(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventID, err := parsePathID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body eventUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Update(r.Context(), events.UpdateInput{
			Actor:       events.Actor{UserID: actor.UserID, Role: actor.Role},
			EventID:     eventID,
			Name:        body.Name,
			Discipline:  body.Discipline,
			Venue:       body.Venue,
			Description: body.Description,
			StartsAt:    body.StartsAt,
			EndsAt:      body.EndsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

// EventDelete removes an event that has no sold inventory.
func EventDelete(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventID, err := parsePathID(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), events.Actor{UserID: actor.UserID, Role: actor.Role}, eventID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func buildEventFilters(r *http.Request) (events.Filters, error) {
	var filters events.Filters

	if raw := strings.TrimSpace(r.URL.Query().Get("organizer_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return events.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organizer id")
		}
		filters.OrganizerID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("discipline")); raw != "" {
		discipline := validators.SanitizeString(raw, 100)
		filters.Discipline = &discipline
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseEventStatus(raw)
		if err != nil {
			return events.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return events.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from timestamp")
		}
		filters.From = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return events.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to timestamp")
		}
		filters.To = &to
	}
	return filters, nil
}
