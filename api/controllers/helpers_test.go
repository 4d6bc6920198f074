package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/internal/offers"
	"github.com/eventpass/eventpass-backend/pkg/db/models"
)

// withURLParams attaches chi URL params to an unauthenticated request.
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

var _ offers.Service = stubOfferService{}

type stubOfferService struct {
	create      func(ctx context.Context, input offers.CreateInput) (*models.Offer, error)
	get         func(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	listByEvent func(ctx context.Context, eventID uuid.UUID) ([]models.Offer, error)
	update      func(ctx context.Context, input offers.UpdateInput) (*models.Offer, error)
	restock     func(ctx context.Context, actor offers.Actor, offerID uuid.UUID, additional int) (*models.Offer, error)
	del         func(ctx context.Context, actor offers.Actor, offerID uuid.UUID) error
}

func (s stubOfferService) Create(ctx context.Context, input offers.CreateInput) (*models.Offer, error) {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return nil, fmt.Errorf("not implemented")
}

func (s stubOfferService) Get(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return nil, fmt.Errorf("not implemented")
}

func (s stubOfferService) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Offer, error) {
	if s.listByEvent != nil {
		return s.listByEvent(ctx, eventID)
	}
	return nil, nil
}

func (s stubOfferService) Update(ctx context.Context, input offers.UpdateInput) (*models.Offer, error) {
	if s.update != nil {
		return s.update(ctx, input)
	}
	return nil, fmt.Errorf("not implemented")
}

func (s stubOfferService) Restock(ctx context.Context, actor offers.Actor, offerID uuid.UUID, additional int) (*models.Offer, error) {
	if s.restock != nil {
		return s.restock(ctx, actor, offerID, additional)
	}
	return nil, fmt.Errorf("not implemented")
}

func (s stubOfferService) Delete(ctx context.Context, actor offers.Actor, offerID uuid.UUID) error {
	if s.del != nil {
		return s.del(ctx, actor, offerID)
	}
	return nil
}

func (s stubOfferService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
