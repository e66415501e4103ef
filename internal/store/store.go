package store

import (
	"context"
	"time"
)

// QuotaRecord is the persisted daily counter for one session. Date is a
// UTC calendar day formatted as 2006-01-02 and is only ever compared for
// equality, never parsed back.
type QuotaRecord struct {
	Count int    `json:"count"`
	Date  string `json:"date"`
}

// Session is the persisted identity record behind the widget's opaque
// session ID.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// QuotaStore persists per-session daily counters. A missing record reads
// back as the zero QuotaRecord with no error.
type QuotaStore interface {
	ReadQuota(ctx context.Context, sessionID string) (QuotaRecord, error)
	WriteQuota(ctx context.Context, sessionID string, rec QuotaRecord) error
}

// AtomicAdmitter is implemented by quota stores that can perform the whole
// reset-check-increment pass under a single lock or transaction, so two
// concurrent callers can never both be admitted past the limit.
type AtomicAdmitter interface {
	AdmitQuota(ctx context.Context, sessionID string, limit int, today string) (bool, error)
}

// SessionStore persists session identity records. GetSession returns
// (nil, nil) when the session is unknown.
type SessionStore interface {
	SaveSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
}
