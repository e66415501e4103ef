package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps quota counters and sessions in process memory. It is
// the default backing when neither DB_URL nor DATA_DIR is configured;
// counters do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	quota    map[string]QuotaRecord
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quota:    make(map[string]QuotaRecord),
		sessions: make(map[string]Session),
	}
}

func (m *MemoryStore) ReadQuota(_ context.Context, sessionID string) (QuotaRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quota[sessionID], nil
}

func (m *MemoryStore) WriteQuota(_ context.Context, sessionID string, rec QuotaRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota[sessionID] = rec
	return nil
}

// AdmitQuota performs the reset-check-increment pass under the store lock.
func (m *MemoryStore) AdmitQuota(_ context.Context, sessionID string, limit int, today string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.quota[sessionID]
	if rec.Date != today {
		rec = QuotaRecord{Count: 0, Date: today}
		m.quota[sessionID] = rec
	}
	if rec.Count >= limit {
		return false, nil
	}
	rec.Count++
	m.quota[sessionID] = rec
	return true, nil
}

func (m *MemoryStore) SaveSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	out := s
	return &out, nil
}

var _ QuotaStore = (*MemoryStore)(nil)
var _ AtomicAdmitter = (*MemoryStore)(nil)
var _ SessionStore = (*MemoryStore)(nil)

// Message is one entry in a widget conversation. Messages are never
// mutated after creation.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"` // "user" or "ai"
	Timestamp time.Time `json:"timestamp"`
}

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// MessageLog holds per-session conversations in memory only, mirroring the
// widget's lifetime: the log is gone on restart just as the widget's is on
// a page reload.
type MessageLog struct {
	mu          sync.RWMutex
	sessions    map[string][]Message
	maxMessages int
}

func NewMessageLog(maxMessages int) *MessageLog {
	return &MessageLog{
		sessions:    make(map[string][]Message),
		maxMessages: maxMessages,
	}
}

func (l *MessageLog) Append(sessionID string, msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[sessionID] = append(l.sessions[sessionID], msg)
	l.trimLocked(sessionID)
}

func (l *MessageLog) Get(sessionID string) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	msgs := l.sessions[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

func (l *MessageLog) trimLocked(sessionID string) {
	if l.maxMessages <= 0 {
		return
	}
	msgs := l.sessions[sessionID]
	if len(msgs) > l.maxMessages {
		l.sessions[sessionID] = msgs[len(msgs)-l.maxMessages:]
	}
}
