// Package cache implements the best-effort read cache for Driftmail API
// responses. Entries carry an absolute expiry and are purged lazily by the
// read that finds them stale; there is no background sweep.
package cache

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrNotFound is returned by backends when a key is absent.
	ErrNotFound = errors.New("cache: not found")
	// ErrDisabled is returned by write operations on a disabled store.
	ErrDisabled = errors.New("cache: disabled")
)

// Backend is the byte-oriented storage a Store sits on. Implementations only
// move opaque bytes; expiry is handled uniformly by the Store.
type Backend interface {
	Read(key string) ([]byte, error)
	Write(key string, value []byte) error
	Delete(key string) error
	DeleteAll() error
}

// entry is the stored document: {"expires": epochSeconds, "data": ...}.
type entry struct {
	Expires int64           `json:"expires"`
	Data    json.RawMessage `json:"data"`
}

// Config configures a Store.
type Config struct {
	Enabled    bool
	Backend    Backend
	DefaultTTL time.Duration
	Logger     *slog.Logger
}

// Store is a TTL cache over a Backend. A disabled store reports every read
// as a miss and every write as ErrDisabled.
type Store struct {
	enabled    bool
	backend    Backend
	defaultTTL time.Duration
	log        *slog.Logger

	now func() time.Time
}

// New builds a Store. A nil Backend forces the store disabled.
func New(cfg Config) *Store {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Store{
		enabled:    cfg.Enabled && cfg.Backend != nil,
		backend:    cfg.Backend,
		defaultTTL: cfg.DefaultTTL,
		log:        log,
		now:        time.Now,
	}
}

// Enabled reports whether the store accepts reads and writes.
func (s *Store) Enabled() bool {
	return s.enabled
}

// Get returns the cached value for key. Any failure (disabled store, absent
// key, unreadable backend, corrupt entry) degrades to a miss. An entry past
// its expiry is deleted as a side effect of the read that discovered it.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	if !s.enabled {
		return nil, false
	}
	raw, err := s.backend.Read(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.log.Warn("cache entry corrupt, purging", "key", key, "error", err)
		_ = s.backend.Delete(key)
		return nil, false
	}
	if s.now().Unix() > e.Expires {
		if err := s.backend.Delete(key); err != nil {
			s.log.Warn("cache purge failed", "key", key, "error", err)
		}
		return nil, false
	}
	return e.Data, true
}

// Put stores value under key with the given ttl. A ttl <= 0 falls back to
// the store default.
func (s *Store) Put(key string, value any, ttl time.Duration) error {
	if !s.enabled {
		return ErrDisabled
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(entry{
		Expires: s.now().Add(ttl).Unix(),
		Data:    data,
	})
	if err != nil {
		return err
	}
	if err := s.backend.Write(key, raw); err != nil {
		s.log.Warn("cache write failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Clear removes key. Clearing an absent key succeeds.
func (s *Store) Clear(key string) error {
	if !s.enabled {
		return ErrDisabled
	}
	return s.backend.Delete(key)
}

// ClearAll removes every entry. Partial failure is reported as an error.
func (s *Store) ClearAll() error {
	if !s.enabled {
		return ErrDisabled
	}
	return s.backend.DeleteAll()
}
