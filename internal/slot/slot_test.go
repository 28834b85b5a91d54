package slot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/llmdash/internal/circuitbreaker"
)

// exerciseSlot runs the shared contract against any backend.
func exerciseSlot(t *testing.T, s Slot) {
	t.Helper()
	ctx := context.Background()

	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data, "fresh slot should be absent")

	require.NoError(t, s.Remove(ctx), "removing an absent slot is not an error")

	require.NoError(t, s.Save(ctx, []byte(`[{"id":"1"}]`)))
	data, err = s.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(data))

	require.NoError(t, s.Save(ctx, []byte(`[]`)))
	data, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data), "an empty list is still a present slot")

	require.NoError(t, s.Remove(ctx))
	data, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestMemorySlot(t *testing.T) {
	exerciseSlot(t, NewMemory())
}

func TestFileSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keys.json")
	exerciseSlot(t, NewFile(path))
}

func TestFileSlotSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "keys.json"))
	require.NoError(t, f.Save(context.Background(), []byte("[]")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keys.json", entries[0].Name())
}

func TestSQLiteSlot(t *testing.T) {
	s, err := NewSQLite(context.Background(), ":memory:", DefaultName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Migrating twice is idempotent.
	require.NoError(t, s.Migrate(context.Background()))
	exerciseSlot(t, s)
}

func TestSQLiteSlotsAreIsolatedByName(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "slots.sqlite")
	ctx := context.Background()

	a, err := NewSQLite(ctx, dsn, "a")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := NewSQLite(ctx, dsn, "b")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	require.NoError(t, a.Save(ctx, []byte("A")))
	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWithBusyTimeout(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{":memory:", ":memory:?_pragma=busy_timeout(5000)"},
		{"file:x.db", "file:x.db?_pragma=busy_timeout(5000)"},
		{"file:x.db?mode=rwc", "file:x.db?mode=rwc&_pragma=busy_timeout(5000)"},
		{"x.db?_pragma=busy_timeout(100)", "x.db?_pragma=busy_timeout(100)"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, withBusyTimeout(tt.dsn))
		})
	}
}

func TestSQLiteBusyTimeoutAppliesToEveryConnection(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "slots.sqlite")
	ctx := context.Background()
	s, err := NewSQLite(ctx, dsn, DefaultName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Force the pool to drop its connection so the next query dials a new one.
	s.db.SetMaxIdleConns(0)
	require.NoError(t, s.Save(ctx, []byte("x")))
	s.db.SetMaxIdleConns(1)

	var timeout int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, busyTimeoutMillis, timeout)
}

func TestSQLiteMemoryKeepsDataAcrossCalls(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(ctx, ":memory:", DefaultName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Save(ctx, []byte(`[]`)))
	stats := s.db.Stats()
	assert.Equal(t, 1, stats.MaxOpenConnections)
	assert.Zero(t, stats.MaxLifetimeClosed)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestBadgerSlot(t *testing.T) {
	b, err := NewBadger("", DefaultName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	exerciseSlot(t, b)
}

func TestBadgerSlotOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := NewBadger(dir, DefaultName)
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, []byte("persisted")))
	require.NoError(t, b.Close())

	reopened, err := NewBadger(dir, DefaultName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}

func TestRedisSlot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisFromClient(client, "test-slot")
	exerciseSlot(t, s)

	require.NoError(t, s.Save(context.Background(), []byte("kept")))
	assert.True(t, mr.Exists("llmdash:slot:test-slot"))
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, backend := range []string{"", "file", "memory", "sqlite", "badger"} {
		t.Run("backend="+backend, func(t *testing.T) {
			s, closer, err := Open(ctx, Config{
				Backend:   backend,
				Dir:       filepath.Join(dir, backend),
				SQLiteDSN: ":memory:",
			})
			require.NoError(t, err)
			require.NotNil(t, closer)
			t.Cleanup(func() { _ = closer.Close() })
			exerciseSlot(t, s)
		})
	}
}

func TestOpenRedisIsGuarded(t *testing.T) {
	mr := miniredis.RunT(t)
	s, closer, err := Open(context.Background(), Config{Backend: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	_, ok := s.(*guarded)
	assert.True(t, ok, "redis slot should sit behind a circuit breaker")
	exerciseSlot(t, s)
}

func TestOpenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := Open(context.Background(), Config{Backend: "redis", RedisAddr: addr})
	assert.ErrorContains(t, err, "redis ping")
}

func TestOpenFileUsesSlotName(t *testing.T) {
	dir := t.TempDir()
	s, _, err := Open(context.Background(), Config{Backend: "file", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultName+".json"), s.(*File).Path())
}

func TestOpenUnknownBackend(t *testing.T) {
	_, _, err := Open(context.Background(), Config{Backend: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestTracedSlot(t *testing.T) {
	exerciseSlot(t, Traced(NewMemory(), "memory"))
}

type failingSlot struct{ calls int }

func (f *failingSlot) Load(context.Context) ([]byte, error) { f.calls++; return nil, errors.New("down") }
func (f *failingSlot) Save(context.Context, []byte) error  { f.calls++; return errors.New("down") }
func (f *failingSlot) Remove(context.Context) error        { f.calls++; return errors.New("down") }

func TestGuardedSlotFailsFast(t *testing.T) {
	ctx := context.Background()
	inner := &failingSlot{}
	s := Guarded(inner, circuitbreaker.New("test", circuitbreaker.WithThreshold(2), circuitbreaker.WithCooldown(time.Hour)))

	_, err := s.Load(ctx)
	require.Error(t, err)
	require.Error(t, s.Save(ctx, []byte("x")))
	assert.Equal(t, 2, inner.calls)

	err = s.Remove(ctx)
	require.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the backend")
}

func TestGuardedSlotPassesThrough(t *testing.T) {
	exerciseSlot(t, Guarded(NewMemory(), circuitbreaker.New("test")))
}
