package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/burgerchain/resto/internal/domain"
	"github.com/burgerchain/resto/internal/storage/memory"
)

func TestIdempotencyRepository_CreateAndReplay(t *testing.T) {
	repo := memory.NewIdempotencyRepository()

	record, err := repo.CreateProcessing("key-1", "hash-1", time.Time{})
	if err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if record.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("expected processing status, got %s", record.Status)
	}

	if err := repo.MarkDone("key-1", []byte(`{"order":"1"}`), 201); err != nil {
		t.Fatalf("mark done: %v", err)
	}

	existing, err := repo.CreateProcessing("key-1", "hash-1", time.Time{})
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected already-exists, got %v", err)
	}
	if existing.Status != domain.IdempotencyStatusDone || existing.HTTPStatus != 201 {
		t.Fatalf("expected stored response, got %+v", existing)
	}
}

func TestIdempotencyRepository_HashMismatch(t *testing.T) {
	repo := memory.NewIdempotencyRepository()

	if _, err := repo.CreateProcessing("key-1", "hash-1", time.Time{}); err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if _, err := repo.CreateProcessing("key-1", "hash-2", time.Time{}); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected hash mismatch, got %v", err)
	}
}

func TestIdempotencyRepository_DeleteExpired(t *testing.T) {
	repo := memory.NewIdempotencyRepository()

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing("old", "hash", past); err != nil {
		t.Fatalf("create old: %v", err)
	}
	if _, err := repo.CreateProcessing("fresh", "hash", future); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	deleted, err := repo.DeleteExpired(time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	if _, err := repo.Get("old"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected old key removed, got %v", err)
	}
	if _, err := repo.Get("fresh"); err != nil {
		t.Fatalf("expected fresh key kept, got %v", err)
	}
}

func TestTimelineRepository_AppendList(t *testing.T) {
	repo := memory.NewTimelineRepository()

	if err := repo.Append(domain.TimelineEvent{OrderID: "order-1", Type: domain.TimelineOrderCreated}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.Append(domain.TimelineEvent{OrderID: "order-1", Type: domain.TimelineOrderClosed}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := repo.List("order-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != domain.TimelineOrderCreated {
		t.Fatalf("expected OrderCreated first, got %s", events[0].Type)
	}
}
