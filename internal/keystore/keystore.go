// Package keystore owns the list of registered provider API key records and
// persists it to a single slot.
package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptySecret is returned by Add when no secret was submitted.
	ErrEmptySecret = errors.New("secret is required")
	// ErrNotFound is returned when an operation targets an unknown id.
	ErrNotFound = errors.New("api key not found")
)

// Slot is the persistence port: one named unit of storage holding the
// serialized record list.
type Slot interface {
	// Load returns nil, nil when the slot does not exist.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	// Remove deletes the slot. Removing a missing slot is not an error.
	Remove(ctx context.Context) error
}

// Observer receives notifications about store mutations (used for metrics).
// KeysChanged is called with the store lock held, so calls arrive in
// mutation order; implementations must not call back into the Store.
type Observer interface {
	KeyOp(op string, ok bool)
	KeysChanged(recs []Record)
}

// Store is the authoritative, sole writer of the key list.
type Store struct {
	slot   Slot
	logger *slog.Logger
	obs    Observer
	now    func() time.Time
	newID  func() string

	initOnce sync.Once

	mu     sync.RWMutex
	keys   []Record
	loaded bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithObserver attaches a mutation observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.obs = o }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// New creates a Store backed by slot. Call Init before serving reads.
func New(slot Slot, opts ...Option) *Store {
	s := &Store{
		slot:   slot,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  newRecordID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Init loads the persisted list. Only the first call has any effect. A
// missing or malformed slot leaves the store empty; it is never fatal.
func (s *Store) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		recs := s.load(ctx)
		s.mu.Lock()
		s.keys = recs
		s.loaded = true
		s.notifyLocked()
		s.mu.Unlock()
		s.logger.Info("key store initialized", slog.Int("records", len(recs)))
	})
}

func (s *Store) load(ctx context.Context) []Record {
	data, err := s.slot.Load(ctx)
	if err != nil {
		s.logger.Warn("failed to read key slot", slog.String("error", err.Error()))
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		s.logger.Warn("failed to parse keys, starting empty", slog.String("error", err.Error()))
		return nil
	}
	return recs
}

// Add validates, masks and appends a new record, then persists the list.
// A secret that fails format validation is stored with StatusError; only an
// empty secret is rejected.
func (s *Store) Add(ctx context.Context, provider, secret, name string) (Record, error) {
	if secret == "" {
		s.observe("add", false)
		return Record{}, ErrEmptySecret
	}
	p := NormalizeProvider(provider)
	if name == "" {
		name = DefaultName(p)
	}
	rec := Record{
		ID:               s.newID(),
		Provider:         p,
		Name:             name,
		SecretDisplay:    Mask(secret),
		Status:           Validate(p, secret),
		LastCheckedLabel: JustNow,
		CreatedAt:        s.now(),
	}

	s.mu.Lock()
	s.keys = append(s.keys, rec)
	err := s.persistLocked(ctx)
	s.notifyLocked()
	s.mu.Unlock()

	s.observe("add", err == nil)
	if err != nil {
		return rec, err
	}
	s.logger.Info("api key added",
		slog.String("id", rec.ID),
		slog.String("provider", string(rec.Provider)),
		slog.String("status", string(rec.Status)),
	)
	return rec, nil
}

// Delete removes the record with the given id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	kept := s.keys[:0:0]
	for _, k := range s.keys {
		if k.ID != id {
			kept = append(kept, k)
		}
	}
	s.keys = kept
	err := s.persistLocked(ctx)
	s.notifyLocked()
	s.mu.Unlock()

	s.observe("delete", err == nil)
	return err
}

// Reset clears the list and removes the slot itself. Before Init the slot
// is left alone, the same as every other write.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.keys = nil
	var err error
	if s.loaded {
		err = s.slot.Remove(ctx)
	}
	s.notifyLocked()
	s.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("remove key slot: %w", err)
		s.logger.Warn("reset failed", slog.String("error", err.Error()))
	}
	s.observe("reset", err == nil)
	return err
}

// Touch is the connectivity-test stub. It refreshes the recency label and
// performs no check against the provider.
func (s *Store) Touch(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.keys {
		if s.keys[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.observe("touch", false)
		return Record{}, ErrNotFound
	}
	s.keys[idx].LastCheckedLabel = JustNow
	rec := s.keys[idx]
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.observe("touch", err == nil)
	return rec, err
}

// List returns the current records in insertion order.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *Store) snapshotLocked() []Record {
	out := make([]Record, len(s.keys))
	copy(out, s.keys)
	return out
}

// persistLocked writes the full list. Writes are skipped until Init has
// loaded the slot so an empty initial state never overwrites saved data.
// Caller must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	if !s.loaded {
		return nil
	}
	recs := s.keys
	if recs == nil {
		recs = []Record{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal keys: %w", err)
	}
	if err := s.slot.Save(ctx, data); err != nil {
		s.logger.Warn("failed to persist keys", slog.String("error", err.Error()))
		return fmt.Errorf("save key slot: %w", err)
	}
	return nil
}

func (s *Store) observe(op string, ok bool) {
	if s.obs != nil {
		s.obs.KeyOp(op, ok)
	}
}

// Caller must hold s.mu.
func (s *Store) notifyLocked() {
	if s.obs != nil {
		s.obs.KeysChanged(s.snapshotLocked())
	}
}
