package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Cache Store — content-addressed memoization of expensive provider calls.
// Corruption is never an error: a malformed or expired entry is a miss, so a
// corrupted cache can never fail a run. Writes are upserts; concurrent writes
// to the same key are safe to race because the value is a pure function of the
// key's inputs.
// ---------------------------------------------------------------------------

// Store is the cache contract shared by the Redis and in-memory backends.
type Store interface {
	// Get returns the cached value for hashKey, or ok=false when the key was
	// never written, has expired, or holds an unparseable entry.
	Get(ctx context.Context, hashKey string) (value []byte, ok bool)

	// Put upserts the value under hashKey. A write to an existing key
	// overwrites the value and resets the expiry. ttl <= 0 means no expiry.
	Put(ctx context.Context, hashKey, kind string, value []byte, ttl time.Duration) error
}

// Key builds the content-addressed hash key for an operation and its inputs.
func Key(op string, inputs ...string) string {
	h := sha256.New()
	h.Write([]byte(op))
	for _, in := range inputs {
		h.Write([]byte{0})
		h.Write([]byte(in))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// entry is the serialized envelope stored under each key.
type entry struct {
	Kind  string `json:"kind"`
	Value []byte `json:"value"`
}

// ---------------------------------------------------------------------------
// In-memory backend — used in tests and single-process setups
// ---------------------------------------------------------------------------

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time // zero = never expires
}

// Memory is a process-local Store with lazy expiry at read time.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, hashKey string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, found := m.entries[hashKey]
	if !found {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		// Lazy eviction: expired entries are absent, removed on read.
		delete(m.entries, hashKey)
		return nil, false
	}

	var parsed entry
	if err := json.Unmarshal(e.payload, &parsed); err != nil {
		// Malformed entries are misses, never errors.
		return nil, false
	}
	return parsed.Value, true
}

func (m *Memory) Put(ctx context.Context, hashKey, kind string, value []byte, ttl time.Duration) error {
	payload, err := json.Marshal(entry{Kind: kind, Value: value})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{payload: payload}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[hashKey] = e
	return nil
}
