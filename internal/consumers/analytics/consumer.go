package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/eventpass/eventpass-backend/pkg/enums"
	"github.com/eventpass/eventpass-backend/pkg/logger"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
)

const consumerName = "analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer archives order and ticket lifecycle events to BigQuery while
// honoring Redis idempotency. Rows are append-only; replays are dropped
// before they reach the table.
type Consumer struct {
	client       tableInserter
	table        string
	subscription *pubsub.Subscriber
	manager      idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds a lifecycle archive consumer.
func NewConsumer(client tableInserter, table string, subscription *pubsub.Subscriber, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	table = strings.TrimSpace(table)
	switch {
	case client == nil:
		return nil, fmt.Errorf("bigquery client required")
	case table == "":
		return nil, fmt.Errorf("bigquery table name required")
	case manager == nil:
		return nil, fmt.Errorf("idempotency manager required")
	case logg == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client:       client,
		table:        table,
		subscription: subscription,
		manager:      manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled. Malformed
// envelopes are acked and dropped; processing failures nack so Pub/Sub
// redelivers.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var envelope outbox.PayloadEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			c.logg.Error(ctx, "failed to decode envelope", err)
			msg.Ack()
			return
		}
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])
		if err := c.Process(ctx, eventType, envelope); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process ingests one outbox envelope. Unknown event types are logged and
// swallowed; transient failures surface so the message is redelivered.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})
	if !eventType.IsValid() {
		c.logg.Info(logCtx, "event not handled by analytics consumer")
		return nil
	}

	eventID, err := parseEventID(envelope.EventID)
	if err != nil {
		return err
	}
	duplicate, err := c.manager.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if duplicate {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	if err := c.archive(ctx, eventType, envelope); err != nil {
		c.logg.Error(logCtx, "failed to archive lifecycle event", err)
		// Unmark so a redelivery gets another shot at the insert.
		_ = c.manager.Delete(ctx, consumerName, eventID)
		return err
	}
	c.logg.Info(logCtx, "lifecycle event archived")
	return nil
}

func (c *Consumer) archive(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	row, err := buildRow(eventType, envelope)
	if err != nil {
		return err
	}
	return c.client.InsertRows(ctx, c.table, []any{row})
}

func parseEventID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse event id: %w", err)
	}
	return eventID, nil
}

type lifecycleEventRow struct {
	EventID    string             `bigquery:"event_id"`
	EventType  string             `bigquery:"event_type"`
	OccurredAt time.Time          `bigquery:"occurred_at"`
	OrderID    *string            `bigquery:"order_id"`
	UserID     *string            `bigquery:"user_id"`
	TicketID   *string            `bigquery:"ticket_id"`
	OfferID    *string            `bigquery:"offer_id"`
	CartID     *string            `bigquery:"cart_id"`
	Payload    cbigquery.NullJSON `bigquery:"payload"`
}

// buildRow lifts the well-known identifier fields out of the payload into
// dedicated columns and keeps the full payload as a JSON column for ad-hoc
// queries.
func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (*lifecycleEventRow, error) {
	row := &lifecycleEventRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		OccurredAt: envelope.OccurredAt,
	}
	if len(envelope.Data) == 0 {
		return row, nil
	}

	fields := map[string]any{}
	if err := json.Unmarshal(envelope.Data, &fields); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	row.OrderID = idColumn(fields, "order_id")
	row.UserID = idColumn(fields, "user_id")
	row.TicketID = idColumn(fields, "ticket_id")
	row.OfferID = idColumn(fields, "offer_id")
	row.CartID = idColumn(fields, "cart_id")
	row.Payload = cbigquery.NullJSON{Valid: true, JSONVal: string(envelope.Data)}
	return row, nil
}

func idColumn(fields map[string]any, key string) *string {
	str, ok := fields[key].(string)
	if !ok {
		return nil
	}
	if trimmed := strings.TrimSpace(str); trimmed != "" {
		return &trimmed
	}
	return nil
}
