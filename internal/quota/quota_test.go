package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"lingua-chat-backend/internal/store"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTryAdmitMonotonicity(t *testing.T) {
	ctx := context.Background()
	tracker := New(store.NewMemoryStore(), 50).
		WithClock(fixedClock(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)))

	admitted := 0
	for i := 0; i < 60; i++ {
		ok, err := tracker.TryAdmit(ctx, "s1")
		if err != nil {
			t.Fatalf("TryAdmit failed on call %d: %v", i+1, err)
		}
		if ok {
			admitted++
		}
		if i == 50 && ok {
			t.Fatalf("51st call in the same day was admitted")
		}
	}
	if admitted != 50 {
		t.Fatalf("admitted %d requests, want exactly 50", admitted)
	}
}

func TestTryAdmitResetsOnNewDay(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	day1 := time.Date(2026, 8, 30, 23, 50, 0, 0, time.UTC)
	tracker := New(ms, 3).WithClock(fixedClock(day1))

	for i := 0; i < 3; i++ {
		if ok, _ := tracker.TryAdmit(ctx, "s1"); !ok {
			t.Fatalf("call %d unexpectedly denied", i+1)
		}
	}
	if ok, _ := tracker.TryAdmit(ctx, "s1"); ok {
		t.Fatalf("admitted past the limit")
	}

	tracker.WithClock(fixedClock(day1.Add(time.Hour))) // past UTC midnight
	ok, err := tracker.TryAdmit(ctx, "s1")
	if err != nil {
		t.Fatalf("TryAdmit after rollover failed: %v", err)
	}
	if !ok {
		t.Fatalf("first call of the new day was denied")
	}
	rec, err := tracker.ReadState(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if rec.Count != 1 || rec.Date != "2026-08-31" {
		t.Fatalf("unexpected record after rollover: %+v", rec)
	}
}

func TestQuotaIsPerSession(t *testing.T) {
	ctx := context.Background()
	tracker := New(store.NewMemoryStore(), 1)
	if ok, _ := tracker.TryAdmit(ctx, "a"); !ok {
		t.Fatalf("session a denied")
	}
	if ok, _ := tracker.TryAdmit(ctx, "a"); ok {
		t.Fatalf("session a admitted past limit")
	}
	if ok, _ := tracker.TryAdmit(ctx, "b"); !ok {
		t.Fatalf("session b should not share session a's counter")
	}
}

func TestReadStateResetPersists(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	if err := ms.WriteQuota(ctx, "s1", store.QuotaRecord{Count: 49, Date: "2020-01-01"}); err != nil {
		t.Fatalf("seed write failed: %v", err)
	}
	tracker := New(ms, 50).WithClock(fixedClock(time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)))

	rec, err := tracker.ReadState(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if rec.Count != 0 || rec.Date != "2026-08-30" {
		t.Fatalf("stale record not reset: %+v", rec)
	}
	stored, _ := ms.ReadQuota(ctx, "s1")
	if stored.Count != 0 || stored.Date != "2026-08-30" {
		t.Fatalf("reset was not persisted: %+v", stored)
	}
}

func TestRemaining(t *testing.T) {
	ctx := context.Background()
	tracker := New(store.NewMemoryStore(), 5)
	for i := 0; i < 2; i++ {
		if _, err := tracker.TryAdmit(ctx, "s1"); err != nil {
			t.Fatalf("TryAdmit failed: %v", err)
		}
	}
	left, err := tracker.Remaining(ctx, "s1")
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if left != 3 {
		t.Fatalf("Remaining = %d, want 3", left)
	}
}

// brokenStore fails every operation, to pin down the fail-closed policy.
type brokenStore struct{ err error }

func (b *brokenStore) ReadQuota(context.Context, string) (store.QuotaRecord, error) {
	return store.QuotaRecord{}, b.err
}
func (b *brokenStore) WriteQuota(context.Context, string, store.QuotaRecord) error {
	return b.err
}

func TestTryAdmitFailsClosedOnStoreError(t *testing.T) {
	boom := errors.New("disk gone")
	tracker := New(&brokenStore{err: boom}, 50)
	ok, err := tracker.TryAdmit(context.Background(), "s1")
	if ok {
		t.Fatalf("admitted despite store failure")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error to surface, got %v", err)
	}
}

func TestTrackerFallbackWithoutAtomicAdmitter(t *testing.T) {
	// brokenStore doubles as a plain QuotaStore; use a working one here.
	ctx := context.Background()
	rmw := &plainStore{records: map[string]store.QuotaRecord{}}
	tracker := New(rmw, 2)
	for i := 0; i < 2; i++ {
		if ok, _ := tracker.TryAdmit(ctx, "s1"); !ok {
			t.Fatalf("call %d denied", i+1)
		}
	}
	if ok, _ := tracker.TryAdmit(ctx, "s1"); ok {
		t.Fatalf("read-modify-write path admitted past limit")
	}
}

type plainStore struct{ records map[string]store.QuotaRecord }

func (p *plainStore) ReadQuota(_ context.Context, key string) (store.QuotaRecord, error) {
	return p.records[key], nil
}
func (p *plainStore) WriteQuota(_ context.Context, key string, rec store.QuotaRecord) error {
	p.records[key] = rec
	return nil
}
