package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists quota counters and sessions as JSON files under a
// data directory, the on-disk stand-in for the widget's localStorage.
// A process-wide mutex serializes the read-modify-write cycles; corrupt
// files are treated as absent rather than fatal.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) quotaPath() string   { return filepath.Join(f.dir, "quota.json") }
func (f *FileStore) sessionPath() string { return filepath.Join(f.dir, "sessions.json") }

func (f *FileStore) ReadQuota(_ context.Context, sessionID string) (QuotaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.loadQuota()
	if err != nil {
		return QuotaRecord{}, err
	}
	return records[sessionID], nil
}

func (f *FileStore) WriteQuota(_ context.Context, sessionID string, rec QuotaRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.loadQuota()
	if err != nil {
		return err
	}
	records[sessionID] = rec
	return writeJSON(f.quotaPath(), records)
}

// AdmitQuota runs the reset-check-increment pass with the store lock held
// across the whole file round-trip.
func (f *FileStore) AdmitQuota(_ context.Context, sessionID string, limit int, today string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.loadQuota()
	if err != nil {
		return false, err
	}
	rec := records[sessionID]
	if rec.Date != today {
		rec = QuotaRecord{Count: 0, Date: today}
		records[sessionID] = rec
		if err := writeJSON(f.quotaPath(), records); err != nil {
			return false, err
		}
	}
	if rec.Count >= limit {
		return false, nil
	}
	rec.Count++
	records[sessionID] = rec
	if err := writeJSON(f.quotaPath(), records); err != nil {
		return false, err
	}
	return true, nil
}

func (f *FileStore) SaveSession(_ context.Context, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessions, err := f.loadSessions()
	if err != nil {
		return err
	}
	sessions[s.ID] = s
	return writeJSON(f.sessionPath(), sessions)
}

func (f *FileStore) GetSession(_ context.Context, id string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessions, err := f.loadSessions()
	if err != nil {
		return nil, err
	}
	s, ok := sessions[id]
	if !ok {
		return nil, nil
	}
	out := s
	return &out, nil
}

func (f *FileStore) loadQuota() (map[string]QuotaRecord, error) {
	records := make(map[string]QuotaRecord)
	if err := readJSON(f.quotaPath(), &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = make(map[string]QuotaRecord)
	}
	return records, nil
}

func (f *FileStore) loadSessions() (map[string]Session, error) {
	sessions := make(map[string]Session)
	if err := readJSON(f.sessionPath(), &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = make(map[string]Session)
	}
	return sessions, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		// Corrupt state reads as empty, matching the widget's tolerance
		// for a mangled localStorage value.
		return nil
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ QuotaStore = (*FileStore)(nil)
var _ AtomicAdmitter = (*FileStore)(nil)
var _ SessionStore = (*FileStore)(nil)
