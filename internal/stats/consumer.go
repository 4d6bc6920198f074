package stats

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/enums"
	"github.com/eventpass/eventpass-backend/pkg/logger"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
	"github.com/eventpass/eventpass-backend/pkg/outbox/registry"
)

const statsConsumerName = "stats-worker"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer feeds order_paid events into the sales projection with Redis
// idempotency, acking everything it cannot retry.
type Consumer struct {
	svc          Service
	subscription *pubsub.Subscriber
	decoders     *registry.DecoderRegistry
	idempotency  idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds a stats consumer and registers the payload decoder it
// needs.
func NewConsumer(svc Service, subscription *pubsub.Subscriber, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("stats service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("stats subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderPaid, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderPaidEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return event, nil
	})

	return &Consumer{
		svc:          svc,
		subscription: subscription,
		decoders:     decoders,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderPaid) {
		c.logg.Info(logCtx, "skipping non-settlement event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{"event_id": envelope.EventID})

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, statsConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	decoded, err := c.decoders.Decode(enums.EventOrderPaid, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		_ = c.idempotency.Delete(ctx, statsConsumerName, eventID)
		return processResult{nack: true}
	}
	event, ok := decoded.(payloads.OrderPaidEvent)
	if !ok {
		c.logg.Error(logCtx, "unexpected payload type", fmt.Errorf("got %T", decoded))
		_ = c.idempotency.Delete(ctx, statsConsumerName, eventID)
		return processResult{nack: true}
	}

	if err := c.svc.Apply(ctx, event); err != nil {
		c.logg.Error(logCtx, "failed to apply settlement", err)
		_ = c.idempotency.Delete(ctx, statsConsumerName, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "settlement applied to sales projection")
	return processResult{ack: true}
}
