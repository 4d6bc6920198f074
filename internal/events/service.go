package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/pagination"
)

type service struct {
	repo Repository
}

// NewService wires the event service with its repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Event, error) {
	if !canManageEvents(input.Actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only organizers can create events")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name is required")
	}
	if input.StartsAt.IsZero() || input.EndsAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event dates are required")
	}
	if input.EndsAt.Before(input.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event must end after it starts")
	}

	description := strings.TrimSpace(input.Description)
	event := &models.Event{
		OrganizerID: input.Actor.UserID,
		Name:        name,
		Discipline:  strings.TrimSpace(input.Discipline),
		Venue:       strings.TrimSpace(input.Venue),
		Description: &description,
		StartsAt:    input.StartsAt.UTC(),
		EndsAt:      input.EndsAt.UTC(),
	}
	return s.repo.Create(ctx, event)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*EventDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EventDetail{
		Event:  *event,
		Status: event.StatusAt(time.Now().UTC()),
	}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*EventList, error) {
	return s.repo.List(ctx, params, filters)
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Event, error) {
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	event, err := s.repo.FindByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(input.Actor, event.OrganizerID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Discipline != nil {
		updates["discipline"] = strings.TrimSpace(*input.Discipline)
	}
	if input.Venue != nil {
		updates["venue"] = strings.TrimSpace(*input.Venue)
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	startsAt := event.StartsAt
	endsAt := event.EndsAt
	if input.StartsAt != nil {
		startsAt = input.StartsAt.UTC()
		updates["starts_at"] = startsAt
	}
	if input.EndsAt != nil {
		endsAt = input.EndsAt.UTC()
		updates["ends_at"] = endsAt
	}
	if endsAt.Before(startsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event must end after it starts")
	}

	if len(updates) == 0 {
		return event, nil
	}
	if err := s.repo.Update(ctx, input.EventID, updates); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, input.EventID)
}

func (s *service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeOwner(actor, event.OrganizerID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func canManageEvents(role enums.UserRole) bool {
	return role == enums.UserRoleOrganizer || role == enums.UserRoleAdmin
}

func authorizeOwner(actor Actor, organizerID uuid.UUID) error {
	if actor.Role == enums.UserRoleAdmin {
		return nil
	}
	if actor.Role == enums.UserRoleOrganizer && actor.UserID == organizerID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "event belongs to another organizer")
}
