package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-backend/api/responses"
	"github.com/eventpass/eventpass-backend/api/validators"
	"github.com/eventpass/eventpass-backend/internal/offers"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/logger"
)

type offerCreateRequest struct {
	EventID      uuid.UUID       `json:"event_id" validate:"required"`
	Name         string          `json:"name" validate:"required,min=2,max=200"`
	Description  *string         `json:"description" validate:"omitempty,max=2000"`
	Kind         string          `json:"kind" validate:"required"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock" validate:"min=0"`
	SaleStartsAt *time.Time      `json:"sale_starts_at"`
	SaleEndsAt   *time.Time      `json:"sale_ends_at"`
}

type offerUpdateRequest struct {
	Name         *string          `json:"name" validate:"omitempty,min=2,max=200"`
	Description  *string          `json:"description" validate:"omitempty,max=2000"`
	Price        *decimal.Decimal `json:"price"`
	SaleStartsAt *time.Time       `json:"sale_starts_at"`
	SaleEndsAt   *time.Time       `json:"sale_ends_at"`
	Status       *string          `json:"status"`
}

type offerRestockRequest struct {
	Additional int `json:"additional" validate:"required,min=1"`
}

// OfferCreate attaches a new sellable offer to an organizer's event.
func OfferCreate(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body offerCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseOfferKind(body.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offer kind"))
			return
		}

		offer, err := svc.Create(r.Context(), offers.CreateInput{
			Actor:        offers.Actor{UserID: actor.UserID, Role: actor.Role},
			EventID:      body.EventID,
			Name:         body.Name,
			Description:  body.Description,
			Kind:         kind,
			Price:        body.Price,
			Stock:        body.Stock,
			SaleStartsAt: body.SaleStartsAt,
			SaleEndsAt:   body.SaleEndsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// OfferUpdate applies a partial update to an offer. Stock changes go
// through OfferRestock instead.
func OfferUpdate(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offerID, err := parsePathID(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body offerUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := offers.UpdateInput{
			Actor:        offers.Actor{UserID: actor.UserID, Role: actor.Role},
			OfferID:      offerID,
			Name:         body.Name,
			Description:  body.Description,
			Price:        body.Price,
			SaleStartsAt: body.SaleStartsAt,
			SaleEndsAt:   body.SaleEndsAt,
		}
		if body.Status != nil {
			status, err := enums.ParseOfferStatus(*body.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid offer status"))
				return
			}
			input.Status = &status
		}

		offer, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// OfferRestock adds inventory to an offer and revives it when sold out.
func OfferRestock(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offerID, err := parsePathID(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body offerRestockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Restock(r.Context(), offers.Actor{UserID: actor.UserID, Role: actor.Role}, offerID, body.Additional)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// OfferDelete removes an offer that has not sold yet.
func OfferDelete(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "offers service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offerID, err := parsePathID(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), offers.Actor{UserID: actor.UserID, Role: actor.Role}, offerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
