package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type recordingStore struct {
	claim      bool
	claimErr   error
	setKey     string
	setTTL     time.Duration
	deletedKey string
}

func (s *recordingStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *recordingStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	s.setKey = key
	s.setTTL = ttl
	return s.claim, s.claimErr
}

func (s *recordingStore) IdempotencyKey(scope, id string) string {
	return "ep:idempotency:" + scope + ":" + id
}

func (s *recordingStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		s.deletedKey = keys[0]
	}
	return nil
}

func managerForTest(t *testing.T, store *recordingStore, ttl time.Duration) *Manager {
	t.Helper()
	manager, err := NewManager(store, ttl)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return manager
}

func processedKey(consumer string, eventID uuid.UUID) string {
	return "ep:idempotency:evt:processed:" + consumer + ":" + eventID.String()
}

func TestCheckAndMarkProcessedFirstDelivery(t *testing.T) {
	store := &recordingStore{claim: true}
	manager := managerForTest(t, store, 24*time.Hour)
	eventID := uuid.New()

	already, err := manager.CheckAndMarkProcessed(context.Background(), "stats-worker", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if already {
		t.Fatal("first delivery should not report already processed")
	}
	if want := processedKey("stats-worker", eventID); store.setKey != want {
		t.Fatalf("expected key %q, got %q", want, store.setKey)
	}
	if store.setTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.setTTL)
	}
}

func TestCheckAndMarkProcessedDuplicate(t *testing.T) {
	store := &recordingStore{claim: false}
	manager := managerForTest(t, store, 12*time.Hour)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "stats-worker", uuid.New())
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if !already {
		t.Fatal("duplicate delivery should report already processed")
	}
}

func TestCheckAndMarkProcessedStoreError(t *testing.T) {
	store := &recordingStore{claimErr: errors.New("boom")}
	manager := managerForTest(t, store, time.Hour)

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "stats-worker", uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

func TestCheckAndMarkProcessedRejectsBadInput(t *testing.T) {
	manager := managerForTest(t, &recordingStore{}, time.Hour)

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "stats-worker", uuid.Nil); err == nil {
		t.Fatal("expected error for nil event id")
	}
}

func TestDeleteReleasesClaim(t *testing.T) {
	store := &recordingStore{}
	manager := managerForTest(t, store, time.Hour)
	eventID := uuid.New()

	if err := manager.Delete(context.Background(), "stats-worker", eventID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if want := processedKey("stats-worker", eventID); store.deletedKey != want {
		t.Fatalf("expected deleted key %q, got %q", want, store.deletedKey)
	}
}
