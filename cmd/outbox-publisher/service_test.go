package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/config"
	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	"github.com/eventpass/eventpass-backend/pkg/logger"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
	"github.com/eventpass/eventpass-backend/pkg/outbox/payloads"
	"github.com/eventpass/eventpass-backend/pkg/outbox/registry"
)

type memRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (m *memRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return m.events, nil
}

func (m *memRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	m.failed = append(m.failed, id)
	return nil
}

type memDLQ struct {
	entries []models.OutboxDLQ
}

func (m *memDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	m.entries = append(m.entries, entry)
	return nil
}

type nopDB struct{}

func (nopDB) Ping(context.Context) error { return nil }

func (nopDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type nopPubSub struct{}

func (nopPubSub) Ping(context.Context) error { return nil }

func (nopPubSub) Publisher(string) *gcppubsub.Publisher { return nil }

// scriptedPublisher hands out the prepared results in order; a drained
// script returns nil, which the service treats as non-retryable.
type scriptedPublisher struct {
	results []publishResult
}

func (p *scriptedPublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	if len(p.results) == 0 {
		return nil
	}
	next := p.results[0]
	p.results = p.results[1:]
	return next
}

type scriptedResult struct {
	err error
}

func (r scriptedResult) Get(context.Context) (string, error) { return "", r.err }

// stubResolver returns either the prepared event or the prepared error,
// stamping the row's identity into the envelope.
type stubResolver struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (s *stubResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.resolved == nil {
		return nil, s.err
	}
	resolved := *s.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, s.err
}

func buildService(t *testing.T, repo outboxRepository, pub publisher, resolver registryResolver, dlq dlqRepository, outboxCfg config.OutboxConfig) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Config: &config.Config{Outbox: outboxCfg},
		Logger: logger.New(logger.Options{
			ServiceName: "outbox-publisher-test",
			Output:      io.Discard,
		}),
		DB:               nopDB{},
		PubSub:           nopPubSub{},
		Repository:       repo,
		Registry:         resolver,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func defaultOutboxCfg() config.OutboxConfig {
	return config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
}

func orderRow(t *testing.T, eventType enums.OutboxEventType, envelopeID string) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeJSON(t, envelopeID),
	}
}

func envelopeJSON(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

func orderCreatedResolution(topic string) *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         topic,
			AggregateType: enums.AggregateOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderCreatedEvent{},
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &memRepo{events: []models.OutboxEvent{
		orderRow(t, enums.EventOrderCreated, "event-one"),
		orderRow(t, enums.EventOrderCreated, "event-two"),
	}}
	pub := &scriptedPublisher{results: []publishResult{
		scriptedResult{err: errors.New("transient")},
		scriptedResult{},
	}}
	resolver := &stubResolver{resolved: orderCreatedResolution("orders-topic")}
	service := buildService(t, repo, pub, resolver, &memDLQ{}, defaultOutboxCfg())

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("expected first row marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("expected second row marked published, got %v", repo.published)
	}
}

func TestServicePublishesOrderPaidToStatsTopic(t *testing.T) {
	event := orderRow(t, enums.EventOrderPaid, "paid")
	repo := &memRepo{events: []models.OutboxEvent{event}}
	pub := &scriptedPublisher{results: []publishResult{scriptedResult{}}}
	resolver := &stubResolver{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "stats-topic",
			AggregateType: enums.AggregateOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    event.ID.String(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderPaidEvent{},
	}}
	service := buildService(t, repo, pub, resolver, &memDLQ{}, defaultOutboxCfg())
	service.publisherFactory = func(topic string) publisher {
		if topic != "stats-topic" {
			t.Fatalf("unexpected topic %q", topic)
		}
		return pub
	}

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(pub.results) != 0 {
		t.Fatalf("expected all publish results consumed, got %d", len(pub.results))
	}
	if len(repo.published) != 1 {
		t.Fatalf("expected published row recorded once, got %d", len(repo.published))
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := orderRow(t, enums.EventOrderCreated, "nonretryable")
	repo := &memRepo{events: []models.OutboxEvent{event}}
	resolver := &stubResolver{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlq := &memDLQ{}
	service := buildService(t, repo, &scriptedPublisher{}, resolver, dlq, defaultOutboxCfg())

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlq.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlq.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := orderRow(t, enums.EventOrderCreated, "max-attempts")
	event.AttemptCount = 1
	repo := &memRepo{events: []models.OutboxEvent{event}}
	pub := &scriptedPublisher{results: []publishResult{
		scriptedResult{err: errors.New("transient")},
	}}
	resolver := &stubResolver{resolved: orderCreatedResolution("orders-topic")}
	dlq := &memDLQ{}
	service := buildService(t, repo, pub, resolver, dlq, config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlq.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlq.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}
