package payments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
)

const defaultPaymentMethod = "card"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	qrBaseURL string
	now       func() time.Time
}

// NewService builds the payment service. qrBaseURL prefixes ticket QR
// payloads; when empty the payload is the bare final key.
func NewService(repo Repository, tx txRunner, outboxPub outboxPublisher, qrBaseURL string) (Service, error) {
	if repo == nil {
		return nil, errors.New("payments repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if outboxPub == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxPub,
		qrBaseURL: qrBaseURL,
		now:       time.Now,
	}, nil
}

// Pay settles a pending order. Everything — the paid flip, stock
// decrements, ticket rows and the order_paid outbox record — commits or
// rolls back as one transaction.
func (s *service) Pay(ctx context.Context, orderID uuid.UUID, actor Actor, input PayInput) (*PayResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var result *PayResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorizeOrder(actor, order); err != nil {
			return err
		}
		if order.IsPaid() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
		}

		lines, err := orderLines(order)
		if err != nil {
			return err
		}

		locked, err := lockLineOffers(ctx, repo, lines)
		if err != nil {
			return err
		}

		// verify stock per line against the locked rows before any mutation
		for _, offer := range locked {
			requested := 0
			for _, line := range lines {
				if line.OfferID == offer.ID {
					requested += line.Quantity
				}
			}
			if offer.StockAvailable < requested {
				return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{
					"offer_id":   offer.ID,
					"offer_name": offer.Name,
					"available":  offer.StockAvailable,
					"requested":  requested,
				})
			}
		}

		now := s.now().UTC()
		method := input.Method
		if method == "" {
			method = defaultPaymentMethod
		}
		reference := input.Reference
		if reference == "" {
			reference = fmt.Sprintf("REF-%s", order.OrderNumber)
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status":    enums.PaymentStatusPaid,
			"payment_method":    method,
			"payment_reference": reference,
			"paid_at":           now,
		}); err != nil {
			return err
		}

		for _, offer := range locked {
			sold := 0
			for _, line := range lines {
				if line.OfferID == offer.ID {
					sold += line.Quantity
				}
			}
			remaining := offer.StockAvailable - sold
			if remaining < 0 {
				remaining = 0
			}
			updates := map[string]any{"stock_available": remaining}
			if remaining == 0 {
				updates["status"] = enums.OfferStatusSoldOut
			}
			if err := repo.UpdateOffer(ctx, offer.ID, updates); err != nil {
				return err
			}
			if remaining == 0 {
				if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventOfferSoldOut,
					AggregateType: enums.AggregateOffer,
					AggregateID:   offer.ID,
					Version:       1,
					OccurredAt:    now,
					Data: payloads.OfferSoldOutEvent{
						OfferID:   offer.ID,
						EventID:   offer.EventID,
						SoldOutAt: now,
					},
				}); err != nil {
					return err
				}
			}
		}

		tickets, err := s.issueForLines(ctx, repo, order, lines, locked)
		if err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			OccurredAt:    now,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				TotalAmount: order.TotalAmount,
				PaidAt:      now,
				Lines:       aggregateLines(lines, locked),
			},
		}); err != nil {
			return err
		}
		if err := s.emitTicketsIssued(ctx, tx, order, actor, tickets, false); err != nil {
			return err
		}

		result = s.buildResult(order, tickets)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IssueTickets re-creates the tickets of a paid order whose issuance step
// failed. It takes the same ascending-id offer locks as Pay, so two
// concurrent calls serialize and the loser sees the duplicate check fail.
func (s *service) IssueTickets(ctx context.Context, orderID uuid.UUID, actor Actor) (*PayResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var result *PayResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorizeOrder(actor, order); err != nil {
			return err
		}
		if !order.IsPaid() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order not paid")
		}

		lines, err := orderLines(order)
		if err != nil {
			return err
		}
		locked, err := lockLineOffers(ctx, repo, lines)
		if err != nil {
			return err
		}

		existing, err := repo.CountTicketsByOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "tickets already issued")
		}

		tickets, err := s.issueForLines(ctx, repo, order, lines, locked)
		if err != nil {
			return err
		}
		if err := s.emitTicketsIssued(ctx, tx, order, actor, tickets, true); err != nil {
			return err
		}

		result = s.buildResult(order, tickets)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func authorizeOrder(actor Actor, order *models.Order) error {
	if actor.Role == enums.UserRoleAdmin || actor.UserID == order.UserID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
}

// orderLines returns the frozen cart lines, rejecting any line whose offer
// reference no longer resolves.
func orderLines(order *models.Order) ([]models.CartLine, error) {
	if order.Cart == nil || len(order.Cart.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no cart lines")
	}
	var orphaned []uuid.UUID
	for _, line := range order.Cart.Lines {
		if line.Offer == nil {
			orphaned = append(orphaned, line.ID)
		}
	}
	if len(orphaned) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has lines referencing removed offers").
			WithDetails(map[string]any{"line_ids": orphaned})
	}
	return order.Cart.Lines, nil
}

func lockLineOffers(ctx context.Context, repo Repository, lines []models.CartLine) ([]models.Offer, error) {
	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if !seen[line.OfferID] {
			seen[line.OfferID] = true
			ids = append(ids, line.OfferID)
		}
	}
	locked, err := repo.LockOffers(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(locked) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references offers that no longer exist")
	}
	return locked, nil
}

// issueForLines creates quantity tickets per line, pricing each at the
// locked offer's current price.
func (s *service) issueForLines(ctx context.Context, repo Repository, order *models.Order, lines []models.CartLine, locked []models.Offer) ([]*models.Ticket, error) {
	prices := make(map[uuid.UUID]models.Offer, len(locked))
	for _, offer := range locked {
		prices[offer.ID] = offer
	}

	var tickets []*models.Ticket
	for _, line := range lines {
		offer := prices[line.OfferID]
		for i := 0; i < line.Quantity; i++ {
			tickets = append(tickets, &models.Ticket{
				ID:           uuid.New(),
				UserID:       order.UserID,
				OfferID:      offer.ID,
				OrderID:      order.ID,
				TicketNumber: NewTicketNumber(),
				PurchaseKey:  uuid.New(),
				FinalKey:     uuid.New(),
				PricePaid:    offer.Price,
				Status:       enums.TicketStatusValid,
			})
		}
	}
	if err := repo.CreateTickets(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *service) emitTicketsIssued(ctx context.Context, tx *gorm.DB, order *models.Order, actor Actor, tickets []*models.Ticket, manual bool) error {
	ids := make([]uuid.UUID, len(tickets))
	for i, ticket := range tickets {
		ids[i] = ticket.ID
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTicketsIssued,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
		Data: payloads.TicketsIssuedEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			TicketIDs: ids,
			Manual:    manual,
		},
	})
}

func (s *service) buildResult(order *models.Order, tickets []*models.Ticket) *PayResult {
	result := &PayResult{OrderNumber: order.OrderNumber}
	for _, ticket := range tickets {
		payload := ticket.FinalKey.String()
		if s.qrBaseURL != "" {
			payload = fmt.Sprintf("%s/%s", s.qrBaseURL, payload)
		}
		result.Tickets = append(result.Tickets, TicketSummary{
			ID:           ticket.ID,
			TicketNumber: ticket.TicketNumber,
			QRPayload:    payload,
			Status:       ticket.Status,
		})
	}
	return result
}

// aggregateLines folds cart lines into per-offer {quantity, unit price}
// entries, ordered by offer id for stable payloads.
func aggregateLines(lines []models.CartLine, locked []models.Offer) []payloads.OrderPaidLine {
	prices := make(map[uuid.UUID]models.Offer, len(locked))
	for _, offer := range locked {
		prices[offer.ID] = offer
	}

	byOffer := map[uuid.UUID]*payloads.OrderPaidLine{}
	for _, line := range lines {
		entry, ok := byOffer[line.OfferID]
		if !ok {
			entry = &payloads.OrderPaidLine{
				OfferID:   line.OfferID,
				UnitPrice: prices[line.OfferID].Price,
			}
			byOffer[line.OfferID] = entry
		}
		entry.Quantity += line.Quantity
	}

	out := make([]payloads.OrderPaidLine, 0, len(byOffer))
	for _, entry := range byOffer {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OfferID.String() < out[j].OfferID.String()
	})
	return out
}
