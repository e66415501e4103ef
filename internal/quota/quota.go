// Package quota enforces the per-session daily ceiling on outbound chat
// requests. The day boundary is the UTC calendar day; store failures deny
// admission so a broken store cannot lift the cap.
package quota

import (
	"context"
	"time"

	"lingua-chat-backend/internal/store"
)

const DefaultDailyLimit = 50

// DayFormat is the persisted calendar-day string. It is compared for
// equality only and never parsed back into a time.
const DayFormat = "2006-01-02"

type Tracker struct {
	store store.QuotaStore
	limit int
	now   func() time.Time
}

func New(s store.QuotaStore, limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Tracker{store: s, limit: limit, now: time.Now}
}

// WithClock overrides the clock, for tests that need to cross a day
// boundary.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

func (t *Tracker) Limit() int { return t.limit }

func (t *Tracker) today() string {
	return t.now().UTC().Format(DayFormat)
}

// ReadState returns the current counter for the session, resetting the
// persisted record to {0, today} first when the stored day has rolled
// over. A missing record reads as zero.
func (t *Tracker) ReadState(ctx context.Context, sessionID string) (store.QuotaRecord, error) {
	today := t.today()
	rec, err := t.store.ReadQuota(ctx, sessionID)
	if err != nil {
		return store.QuotaRecord{}, err
	}
	if rec.Date != today {
		rec = store.QuotaRecord{Count: 0, Date: today}
		if err := t.store.WriteQuota(ctx, sessionID, rec); err != nil {
			return store.QuotaRecord{}, err
		}
	}
	return rec, nil
}

// TryAdmit admits the request and increments the counter, or returns
// false once the session has used up today's limit. Stores that implement
// AtomicAdmitter run the whole pass under their own lock; otherwise the
// tracker falls back to a plain read-modify-write.
func (t *Tracker) TryAdmit(ctx context.Context, sessionID string) (bool, error) {
	if aa, ok := t.store.(store.AtomicAdmitter); ok {
		return aa.AdmitQuota(ctx, sessionID, t.limit, t.today())
	}
	rec, err := t.ReadState(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if rec.Count >= t.limit {
		return false, nil
	}
	rec.Count++
	rec.Date = t.today()
	if err := t.store.WriteQuota(ctx, sessionID, rec); err != nil {
		return false, err
	}
	return true, nil
}

// Remaining reports how many requests the session has left today.
func (t *Tracker) Remaining(ctx context.Context, sessionID string) (int, error) {
	rec, err := t.ReadState(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	left := t.limit - rec.Count
	if left < 0 {
		left = 0
	}
	return left, nil
}
