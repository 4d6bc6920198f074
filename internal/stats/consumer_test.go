package stats

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eventpass/eventpass-backend/pkg/enums"
	"github.com/eventpass/eventpass-backend/pkg/logger"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
)

type stubProjection struct {
	applied []payloads.OrderPaidEvent
	err     error
}

func (s *stubProjection) Apply(_ context.Context, event payloads.OrderPaidEvent) error {
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, event)
	return nil
}

func (s *stubProjection) List(_ context.Context, _ Actor, _ Filters) ([]StatRow, error) {
	return nil, nil
}

func (s *stubProjection) GetByOffer(_ context.Context, _ Actor, _ uuid.UUID) (*StatRow, error) {
	return nil, nil
}

func (s *stubProjection) Summary(_ context.Context, _ Actor, _ Filters) (*Summary, error) {
	return nil, nil
}

type fakeStatsIdempotency struct {
	check    func(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	deleteFn func(ctx context.Context, consumer string, eventID uuid.UUID) error
}

func (f fakeStatsIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return f.check(ctx, consumer, eventID)
}

func (f fakeStatsIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return f.deleteFn(ctx, consumer, eventID)
}

func freshIdempotency() fakeStatsIdempotency {
	return fakeStatsIdempotency{
		check: func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
			return false, nil
		},
		deleteFn: func(_ context.Context, _ string, _ uuid.UUID) error {
			return nil
		},
	}
}

func mustStatsConsumer(t *testing.T, svc Service, manager fakeStatsIdempotency) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(svc, &pubsub.Subscriber{}, manager, logger.New(logger.Options{
		ServiceName: "stats-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	}))
	if err != nil {
		t.Fatalf("failed to build consumer: %v", err)
	}
	return consumer
}

func orderPaidMessage(t *testing.T, eventID uuid.UUID, event payloads.OrderPaidEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(enums.EventOrderPaid)},
	}
}

func TestStatsConsumerAppliesOrderPaid(t *testing.T) {
	projection := &stubProjection{}
	consumer := mustStatsConsumer(t, projection, freshIdempotency())

	orderID := uuid.New()
	msg := orderPaidMessage(t, uuid.New(), payloads.OrderPaidEvent{
		OrderID: orderID,
		Lines: []payloads.OrderPaidLine{
			{OfferID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(projection.applied) != 1 {
		t.Fatalf("expected 1 application, got %d", len(projection.applied))
	}
	if projection.applied[0].OrderID != orderID {
		t.Fatalf("order id mismatch: %s", projection.applied[0].OrderID)
	}
}

func TestStatsConsumerAppliesSameEventOnce(t *testing.T) {
	projection := &stubProjection{}
	seen := map[uuid.UUID]bool{}
	manager := fakeStatsIdempotency{
		check: func(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
			already := seen[eventID]
			seen[eventID] = true
			return already, nil
		},
		deleteFn: func(_ context.Context, _ string, eventID uuid.UUID) error {
			delete(seen, eventID)
			return nil
		},
	}
	consumer := mustStatsConsumer(t, projection, manager)

	eventID := uuid.New()
	event := payloads.OrderPaidEvent{
		OrderID: uuid.New(),
		Lines: []payloads.OrderPaidLine{
			{OfferID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")},
		},
	}

	first := consumer.process(context.Background(), orderPaidMessage(t, eventID, event))
	second := consumer.process(context.Background(), orderPaidMessage(t, eventID, event))
	if !first.ack || !second.ack {
		t.Fatalf("expected both deliveries acked, got %+v / %+v", first, second)
	}
	if len(projection.applied) != 1 {
		t.Fatalf("expected the event applied exactly once, got %d", len(projection.applied))
	}
}

func TestStatsConsumerSkipsOtherEventTypes(t *testing.T) {
	projection := &stubProjection{}
	manager := freshIdempotency()
	manager.check = func(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
		t.Fatal("idempotency should not be consulted for skipped events")
		return false, nil
	}
	consumer := mustStatsConsumer(t, projection, manager)

	msg := orderPaidMessage(t, uuid.New(), payloads.OrderPaidEvent{OrderID: uuid.New()})
	msg.Attributes["event_type"] = string(enums.EventCartExpired)

	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected ack for skipped event, got %+v", result)
	}
	if len(projection.applied) != 0 {
		t.Fatalf("expected no applications, got %d", len(projection.applied))
	}
}

func TestStatsConsumerReleasesKeyWhenApplyFails(t *testing.T) {
	projection := &stubProjection{err: errors.New("db down")}
	deleted := false
	manager := freshIdempotency()
	manager.deleteFn = func(_ context.Context, _ string, _ uuid.UUID) error {
		deleted = true
		return nil
	}
	consumer := mustStatsConsumer(t, projection, manager)

	msg := orderPaidMessage(t, uuid.New(), payloads.OrderPaidEvent{
		OrderID: uuid.New(),
		Lines: []payloads.OrderPaidLine{
			{OfferID: uuid.New(), Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})

	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack when apply fails, got %+v", result)
	}
	if !deleted {
		t.Fatal("expected idempotency key released for redelivery")
	}
}

func TestStatsConsumerAcksMalformedEnvelopes(t *testing.T) {
	projection := &stubProjection{}
	consumer := mustStatsConsumer(t, projection, freshIdempotency())

	msg := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte("{not json"),
		Attributes: map[string]string{"event_type": string(enums.EventOrderPaid)},
	}

	result := consumer.process(context.Background(), msg)
	if !result.ack {
		t.Fatalf("expected poison envelope acked, got %+v", result)
	}
	if len(projection.applied) != 0 {
		t.Fatalf("expected no applications, got %d", len(projection.applied))
	}
}

func TestStatsConsumerNacksUnknownPayloadVersion(t *testing.T) {
	projection := &stubProjection{}
	deleted := false
	manager := freshIdempotency()
	manager.deleteFn = func(_ context.Context, _ string, _ uuid.UUID) error {
		deleted = true
		return nil
	}
	consumer := mustStatsConsumer(t, projection, manager)

	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    99,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	msg := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(enums.EventOrderPaid)},
	}

	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("expected nack for unknown version, got %+v", result)
	}
	if !deleted {
		t.Fatal("expected idempotency key released")
	}
}
