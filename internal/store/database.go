package store

import (
	"context"
	"database/sql"
	"fmt"

	"lingua-chat-backend/internal/db"
)

// DatabaseStore keeps quota counters and sessions in PostgreSQL. Quota
// admission runs inside a transaction with a row lock, so two concurrent
// requests for the same session cannot both slip past the limit — the
// read-then-write race the browser widget had between tabs.
type DatabaseStore struct {
	db *db.DB
}

func NewDatabaseStore(database *db.DB) *DatabaseStore {
	return &DatabaseStore{db: database}
}

func (ds *DatabaseStore) ReadQuota(ctx context.Context, sessionID string) (QuotaRecord, error) {
	if sessionID == "" {
		return QuotaRecord{}, fmt.Errorf("session_id is required")
	}
	var rec QuotaRecord
	err := ds.db.QueryRowContext(ctx,
		`SELECT count, date FROM chat_quota WHERE session_id = $1`, sessionID,
	).Scan(&rec.Count, &rec.Date)
	if err == sql.ErrNoRows {
		return QuotaRecord{}, nil
	}
	if err != nil {
		return QuotaRecord{}, fmt.Errorf("failed to read quota: %w", err)
	}
	return rec, nil
}

func (ds *DatabaseStore) WriteQuota(ctx context.Context, sessionID string, rec QuotaRecord) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	_, err := ds.db.ExecContext(ctx, `
		INSERT INTO chat_quota (session_id, count, date, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session_id)
		DO UPDATE SET
			count = EXCLUDED.count,
			date = EXCLUDED.date,
			updated_at = NOW()
	`, sessionID, rec.Count, rec.Date)
	if err != nil {
		return fmt.Errorf("failed to write quota: %w", err)
	}
	return nil
}

// AdmitQuota runs the reset-check-increment pass as a transactional
// read-modify-write with the quota row locked.
func (ds *DatabaseStore) AdmitQuota(ctx context.Context, sessionID string, limit int, today string) (bool, error) {
	if sessionID == "" {
		return false, fmt.Errorf("session_id is required")
	}
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rec QuotaRecord
	err = tx.QueryRowContext(ctx,
		`SELECT count, date FROM chat_quota WHERE session_id = $1 FOR UPDATE`, sessionID,
	).Scan(&rec.Count, &rec.Date)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_quota (session_id, count, date, updated_at)
			VALUES ($1, 1, $2, NOW())
		`, sessionID, today); err != nil {
			return false, fmt.Errorf("failed to insert quota: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit quota: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to read quota: %w", err)
	}

	if rec.Date != today {
		rec = QuotaRecord{Count: 0, Date: today}
	}
	admitted := rec.Count < limit
	if admitted {
		rec.Count++
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_quota SET count = $2, date = $3, updated_at = NOW()
		WHERE session_id = $1
	`, sessionID, rec.Count, rec.Date); err != nil {
		return false, fmt.Errorf("failed to update quota: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit quota: %w", err)
	}
	return admitted, nil
}

func (ds *DatabaseStore) SaveSession(ctx context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	_, err := ds.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (session_id, created_at, last_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id)
		DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
	`, s.ID, s.CreatedAt, s.LastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	var s Session
	err := ds.db.QueryRowContext(ctx,
		`SELECT session_id, created_at, last_seen_at FROM chat_sessions WHERE session_id = $1`, id,
	).Scan(&s.ID, &s.CreatedAt, &s.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

var _ QuotaStore = (*DatabaseStore)(nil)
var _ AtomicAdmitter = (*DatabaseStore)(nil)
var _ SessionStore = (*DatabaseStore)(nil)
