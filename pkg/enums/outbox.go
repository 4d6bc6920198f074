package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder  OutboxAggregateType = "order"
	AggregateCart   OutboxAggregateType = "cart"
	AggregateOffer  OutboxAggregateType = "offer"
	AggregateTicket OutboxAggregateType = "ticket"
)

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	switch a {
	case AggregateOrder, AggregateCart, AggregateOffer, AggregateTicket:
		return true
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	aggregate := OutboxAggregateType(value)
	if !aggregate.IsValid() {
		return "", fmt.Errorf("invalid aggregate type %q", value)
	}
	return aggregate, nil
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated    OutboxEventType = "order_created"
	EventOrderPaid       OutboxEventType = "order_paid"
	EventOrderCanceled   OutboxEventType = "order_canceled"
	EventCartExpired     OutboxEventType = "cart_expired"
	EventOfferSoldOut    OutboxEventType = "offer_sold_out"
	EventOfferExpired    OutboxEventType = "offer_expired"
	EventTicketsIssued   OutboxEventType = "tickets_issued"
	EventTicketValidated OutboxEventType = "ticket_validated"
	EventTicketCancelled OutboxEventType = "ticket_cancelled"
)

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventOrderCreated, EventOrderPaid, EventOrderCanceled,
		EventCartExpired, EventOfferSoldOut, EventOfferExpired,
		EventTicketsIssued, EventTicketValidated, EventTicketCancelled:
		return true
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	eventType := OutboxEventType(value)
	if !eventType.IsValid() {
		return "", fmt.Errorf("invalid event type %q", value)
	}
	return eventType, nil
}
