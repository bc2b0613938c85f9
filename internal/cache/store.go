// Package cache persists the last good view of the game state so a restart
// can render something before the first refresh lands. It is an optimization
// only: every storage failure is swallowed and the cache degrades to empty.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultTTL is the window inside which a stored snapshot is usable.
const DefaultTTL = 3600000 * time.Millisecond

// Snapshot is a partial view of the game state. Nil fields were not present
// in the write that produced it; Merge only overwrites fields a partial
// actually carries.
type Snapshot struct {
	Level         *uint64   `json:"level,omitempty"`
	PriceWei      *big.Int  `json:"priceWei,omitempty"`
	Phase         *string   `json:"phase,omitempty"`
	PresaleActive *bool     `json:"presaleActive,omitempty"`
	TakenSymbols  []uint8   `json:"takenSymbols,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (s *Snapshot) mergeFrom(p Snapshot) {
	if p.Level != nil {
		s.Level = p.Level
	}
	if p.PriceWei != nil {
		s.PriceWei = p.PriceWei
	}
	if p.Phase != nil {
		s.Phase = p.Phase
	}
	if p.PresaleActive != nil {
		s.PresaleActive = p.PresaleActive
	}
	if p.TakenSymbols != nil {
		s.TakenSymbols = p.TakenSymbols
	}
}

// Fresh reports whether the snapshot is inside the ttl window. A zero
// timestamp is never fresh.
func Fresh(s Snapshot, ttl time.Duration) bool {
	if s.UpdatedAt.IsZero() {
		return false
	}
	return time.Since(s.UpdatedAt) < ttl
}

// Store is best-effort persistence. None of the methods report errors:
// failures are logged and the caller proceeds as if the cache were empty.
type Store interface {
	Merge(ctx context.Context, partial Snapshot)
	Load(ctx context.Context) Snapshot
	SaveReferralCode(ctx context.Context, code string)
	ReferralCode(ctx context.Context) string
}

// MemoryStore is mostly for testing.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot Snapshot
	referral string
	Now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStore) Merge(_ context.Context, partial Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.mergeFrom(partial)
	m.snapshot.UpdatedAt = m.now()
}

func (m *MemoryStore) Load(context.Context) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *MemoryStore) SaveReferralCode(_ context.Context, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.referral = code
}

func (m *MemoryStore) ReferralCode(context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.referral
}

type fileDoc struct {
	Snapshot     Snapshot `json:"snapshot"`
	ReferralCode string   `json:"referralCode,omitempty"`
}

// FileStore keeps the single cache record in a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
	Now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *FileStore) read() fileDoc {
	var doc fileDoc
	blob, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc
	}
	if err != nil {
		log.Printf("cache read error: %v", err)
		return fileDoc{}
	}
	if err := json.Unmarshal(blob, &doc); err != nil {
		log.Printf("cache decode error: %v", err)
		return fileDoc{}
	}
	return doc
}

func (f *FileStore) write(doc fileDoc) {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		log.Printf("cache mkdir error: %v", err)
		return
	}
	blob, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Printf("cache encode error: %v", err)
		return
	}
	if err := os.WriteFile(f.path, blob, 0o600); err != nil {
		log.Printf("cache write error: %v", err)
	}
}

func (f *FileStore) Merge(_ context.Context, partial Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.read()
	doc.Snapshot.mergeFrom(partial)
	doc.Snapshot.UpdatedAt = f.now()
	f.write(doc)
}

func (f *FileStore) Load(context.Context) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read().Snapshot
}

func (f *FileStore) SaveReferralCode(_ context.Context, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.read()
	doc.ReferralCode = code
	f.write(doc)
}

func (f *FileStore) ReferralCode(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read().ReferralCode
}
