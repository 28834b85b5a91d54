package keystore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSlot is an in-memory Slot with injectable failures.
type fakeSlot struct {
	data    []byte
	exists  bool
	saves   int
	loadErr error
	saveErr error
}

func (f *fakeSlot) Load(context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if !f.exists {
		return nil, nil
	}
	return f.data, nil
}

func (f *fakeSlot) Save(_ context.Context, data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.data = append([]byte(nil), data...)
	f.exists = true
	f.saves++
	return nil
}

func (f *fakeSlot) Remove(context.Context) error {
	f.data = nil
	f.exists = false
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, slot Slot) *Store {
	t.Helper()
	n := 0
	s := New(slot,
		WithLogger(quietLogger()),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		WithClock(func() time.Time { return time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC) }),
	)
	s.Init(context.Background())
	return s
}

func TestAddExample(t *testing.T) {
	s := newTestStore(t, &fakeSlot{})

	rec, err := s.Add(context.Background(), "openai", "sk-abcdefghijklmnop", "")
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, rec.Provider)
	assert.Equal(t, StatusConnected, rec.Status)
	assert.Equal(t, "sk-abcd****mnop", rec.SecretDisplay)
	assert.Equal(t, "Openai Key", rec.Name)
	assert.Equal(t, JustNow, rec.LastCheckedLabel)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestAddValidationPolicy(t *testing.T) {
	tests := []struct {
		provider string
		secret   string
		want     Status
	}{
		{"openai", "sk-123456", StatusConnected},
		{"openai", "pk-123456", StatusError},
		{"anthropic", "sk-ant-123456", StatusConnected},
		{"anthropic", "sk-123456789", StatusError},
		{"google", "AIzaSy12345", StatusConnected},
		{"google", "sk-ant-123456", StatusError},
		{"mistral", "anything-goes", StatusConnected},
		{"cohere", "123456", StatusConnected},
		{"unknown-vendor", "123456", StatusConnected},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.secret, func(t *testing.T) {
			s := newTestStore(t, &fakeSlot{})
			rec, err := s.Add(context.Background(), tt.provider, tt.secret, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Status)
		})
	}
}

func TestAddShortSecretAlwaysError(t *testing.T) {
	for _, p := range append([]Provider{"custom"}, Providers...) {
		for _, secret := range []string{"a", "sk-", "AIza", "sk-an", "12345"} {
			assert.Equal(t, StatusError, Validate(p, secret), "provider=%s secret=%q", p, secret)
		}
	}
}

func TestAddEmptySecretRejected(t *testing.T) {
	slot := &fakeSlot{}
	s := newTestStore(t, slot)

	_, err := s.Add(context.Background(), "openai", "", "x")
	require.ErrorIs(t, err, ErrEmptySecret)
	assert.Empty(t, s.List())
	assert.Zero(t, slot.saves)
}

func TestAddKeepsCustomName(t *testing.T) {
	s := newTestStore(t, &fakeSlot{})
	rec, err := s.Add(context.Background(), "anthropic", "sk-ant-abcdefgh", "Claude API")
	require.NoError(t, err)
	assert.Equal(t, "Claude API", rec.Name)
}

func TestAddPersistsFullList(t *testing.T) {
	slot := &fakeSlot{}
	s := newTestStore(t, slot)
	ctx := context.Background()

	_, err := s.Add(ctx, "openai", "sk-aaaaaaaaaaaa", "")
	require.NoError(t, err)
	_, err = s.Add(ctx, "google", "AIzaBBBBBBBBBB", "")
	require.NoError(t, err)

	assert.Equal(t, 2, slot.saves)
	for _, field := range []string{`"id"`, `"provider"`, `"name"`, `"secretDisplay"`, `"status"`, `"lastCheckedLabel"`, `"createdAt"`} {
		assert.Contains(t, string(slot.data), field)
	}

	reloaded := newTestStore(t, slot)
	got := reloaded.List()
	require.Len(t, got, 2)
	assert.Equal(t, ProviderOpenAI, got[0].Provider)
	assert.Equal(t, ProviderGoogle, got[1].Provider)
}

func TestRawSecretNeverPersisted(t *testing.T) {
	slot := &fakeSlot{}
	s := newTestStore(t, slot)
	secret := "sk-ant-REDACTED"

	_, err := s.Add(context.Background(), "anthropic", secret, "")
	require.NoError(t, err)

	assert.NotContains(t, string(slot.data), "verysecretmaterial")
	for _, r := range s.List() {
		assert.NotContains(t, r.SecretDisplay, "verysecretmaterial")
	}
}

func TestDelete(t *testing.T) {
	slot := &fakeSlot{}
	s := newTestStore(t, slot)
	ctx := context.Background()

	a, _ := s.Add(ctx, "openai", "sk-aaaaaaaaaaaa", "")
	b, _ := s.Add(ctx, "openai", "sk-bbbbbbbbbbbb", "")

	require.NoError(t, s.Delete(ctx, a.ID))
	got := s.List()
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	reloaded := newTestStore(t, slot)
	require.Len(t, reloaded.List(), 1)
}

func TestDeleteUnknownIsNoop(t *testing.T) {
	s := newTestStore(t, &fakeSlot{})
	ctx := context.Background()
	_, _ = s.Add(ctx, "openai", "sk-aaaaaaaaaaaa", "")
	before := s.List()

	require.NoError(t, s.Delete(ctx, "does-not-exist"))
	assert.Equal(t, before, s.List())
}

func TestResetRemovesSlot(t *testing.T) {
	slot := &fakeSlot{}
	s := newTestStore(t, slot)
	ctx := context.Background()
	_, _ = s.Add(ctx, "openai", "sk-aaaaaaaaaaaa", "")

	require.NoError(t, s.Reset(ctx))
	assert.Empty(t, s.List())
	assert.False(t, slot.exists, "slot should be deleted, not emptied")

	fresh := newTestStore(t, slot)
	assert.Empty(t, fresh.List())
}

func TestInitMalformedSlotStartsEmpty(t *testing.T) {
	slot := &fakeSlot{data: []byte("{not json"), exists: true}
	s := newTestStore(t, slot)
	assert.Empty(t, s.List())
}

func TestInitLoadErrorStartsEmpty(t *testing.T) {
	slot := &fakeSlot{loadErr: errors.New("disk on fire")}
	s := newTestStore(t, slot)
	assert.Empty(t, s.List())
}

func TestInitRunsOnce(t *testing.T) {
	slot := &fakeSlot{}
	s := newTestStore(t, slot)
	ctx := context.Background()
	_, _ = s.Add(ctx, "openai", "sk-aaaaaaaaaaaa", "")

	// Swap in different persisted content; a second Init must not reload it.
	slot.data = []byte("[]")
	s.Init(ctx)
	assert.Len(t, s.List(), 1)
}

func TestMutationsBeforeInitAreNotPersisted(t *testing.T) {
	slot := &fakeSlot{data: []byte(`[{"id":"saved","provider":"openai"}]`), exists: true}
	s := New(slot, WithLogger(quietLogger()))

	_, err := s.Add(context.Background(), "google", "AIzaXXXXXXXXXX", "")
	require.NoError(t, err)
	assert.Zero(t, slot.saves)

	s.Init(context.Background())
	got := s.List()
	require.Len(t, got, 1)
	assert.Equal(t, "saved", got[0].ID)
}

func TestResetBeforeInitKeepsSlot(t *testing.T) {
	slot := &fakeSlot{data: []byte(`[{"id":"saved","provider":"openai"}]`), exists: true}
	s := New(slot, WithLogger(quietLogger()))

	require.NoError(t, s.Reset(context.Background()))
	assert.True(t, slot.exists, "slot must survive a reset issued before init")

	s.Init(context.Background())
	got := s.List()
	require.Len(t, got, 1)
	assert.Equal(t, "saved", got[0].ID)
}

func TestSaveFailureIsReported(t *testing.T) {
	slot := &fakeSlot{}
	s := newTestStore(t, slot)
	slot.saveErr = errors.New("quota exceeded")

	rec, err := s.Add(context.Background(), "openai", "sk-aaaaaaaaaaaa", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.NotEmpty(t, rec.ID)
	assert.Len(t, s.List(), 1, "in-memory state stays updated")
}

func TestTouch(t *testing.T) {
	s := newTestStore(t, &fakeSlot{})
	ctx := context.Background()
	rec, _ := s.Add(ctx, "openai", "sk-aaaaaaaaaaaa", "")

	got, err := s.Touch(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, JustNow, got.LastCheckedLabel)
	assert.Equal(t, rec.Status, got.Status)

	_, err = s.Touch(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIDsUnique(t *testing.T) {
	s := New(&fakeSlot{}, WithLogger(quietLogger()))
	s.Init(context.Background())
	seen := make(map[string]bool)
	for range 200 {
		rec, err := s.Add(context.Background(), "cohere", "co-1234567", "")
		require.NoError(t, err)
		require.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "sk-abcd****mnop", Mask("sk-abcdefghijklmnop"))
	assert.Equal(t, "AIzaSyA****wxyz", Mask("AIzaSyA0123456789wxyz"))
	assert.Equal(t, "****", Mask("short"))
	assert.Equal(t, "****", Mask("0123456789"))
	assert.Equal(t, "0123456****7890", Mask("01234567890"))
}

func TestMaskNeverRevealsMiddle(t *testing.T) {
	for n := 11; n <= 64; n++ {
		secret := strings.Repeat("a", 7) + strings.Repeat("Z", n-11) + strings.Repeat("b", 4)
		m := Mask(secret)
		assert.NotContains(t, m, "Z", "length %d", n)
		assert.Equal(t, "aaaaaaa****bbbb", m)
	}
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	ops  []string
	last []Record
}

func (r *recordingObserver) KeyOp(op string, ok bool) {
	r.ops = append(r.ops, fmt.Sprintf("%s:%t", op, ok))
}

func (r *recordingObserver) KeysChanged(recs []Record) { r.last = recs }

func TestObserverNotified(t *testing.T) {
	obs := &recordingObserver{}
	s := New(&fakeSlot{}, WithLogger(quietLogger()), WithObserver(obs))
	ctx := context.Background()
	s.Init(ctx)

	rec, _ := s.Add(ctx, "openai", "sk-aaaaaaaaaaaa", "")
	_, _ = s.Add(ctx, "openai", "", "")
	_ = s.Delete(ctx, rec.ID)
	_ = s.Reset(ctx)

	assert.Equal(t, []string{"add:true", "add:false", "delete:true", "reset:true"}, obs.ops)
	assert.Empty(t, obs.last)
}

// countingObserver checks that every KeysChanged call carries a list at
// least as long as the one before it while only Adds are running.
type countingObserver struct {
	mu      sync.Mutex
	lastLen int
	shrunk  bool
}

func (c *countingObserver) KeyOp(string, bool) {}

func (c *countingObserver) KeysChanged(recs []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(recs) < c.lastLen {
		c.shrunk = true
	}
	c.lastLen = len(recs)
}

func TestObserverSeesMutationsInOrder(t *testing.T) {
	obs := &countingObserver{}
	s := New(&fakeSlot{}, WithLogger(quietLogger()), WithObserver(obs))
	ctx := context.Background()
	s.Init(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Add(ctx, "openai", "sk-aaaaaaaaaaaa", "")
		}()
	}
	wg.Wait()

	assert.False(t, obs.shrunk, "an older snapshot was delivered after a newer one")
	assert.Equal(t, s.Len(), obs.lastLen)
}
