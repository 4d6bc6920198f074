package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
)

// EventDescriptor ties an event type to the aggregate it belongs to, the
// topic it publishes on, and a factory for its typed payload.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is a fully decoded outbox row, ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry wires every event type to its topic. Order lifecycle,
// cart, offer, and ticket events share the orders topic; order_paid feeds
// the sales projection and rides the stats topic instead.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if cfg.StatsTopic == "" {
		return nil, fmt.Errorf("stats topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	orderEvents := map[enums.OutboxEventType]func() interface{}{
		enums.EventOrderCreated:  func() interface{} { return &payloads.OrderCreatedEvent{} },
		enums.EventOrderCanceled: func() interface{} { return &payloads.OrderCanceledEvent{} },
		enums.EventTicketsIssued: func() interface{} { return &payloads.TicketsIssuedEvent{} },
	}
	for eventType, factory := range orderEvents {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateOrder,
			Topic:          cfg.OrdersTopic,
			PayloadFactory: factory,
		})
	}

	reg.register(EventDescriptor{
		EventType:      enums.EventCartExpired,
		AggregateType:  enums.AggregateCart,
		Topic:          cfg.OrdersTopic,
		PayloadFactory: func() interface{} { return &payloads.CartExpiredEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventOfferSoldOut,
		AggregateType:  enums.AggregateOffer,
		Topic:          cfg.OrdersTopic,
		PayloadFactory: func() interface{} { return &payloads.OfferSoldOutEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventOfferExpired,
		AggregateType:  enums.AggregateOffer,
		Topic:          cfg.OrdersTopic,
		PayloadFactory: func() interface{} { return &payloads.OfferExpiredEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventTicketValidated,
		AggregateType:  enums.AggregateTicket,
		Topic:          cfg.OrdersTopic,
		PayloadFactory: func() interface{} { return &payloads.TicketValidatedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventTicketCancelled,
		AggregateType:  enums.AggregateTicket,
		Topic:          cfg.OrdersTopic,
		PayloadFactory: func() interface{} { return &payloads.TicketCancelledEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventOrderPaid,
		AggregateType:  enums.AggregateOrder,
		Topic:          cfg.StatsTopic,
		PayloadFactory: func() interface{} { return &payloads.OrderPaidEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve checks the row against its descriptor and decodes the typed
// payload. Every failure here is structural, so callers get a
// NonRetryableError and should dead-letter the row instead of retrying.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

// NonRetryableError marks a row the dispatcher should dead-letter rather
// than retry.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}
