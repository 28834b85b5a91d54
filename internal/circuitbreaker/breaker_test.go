package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func fail() error { return errBackend }
func ok() error   { return nil }

func TestClosedPassesThrough(t *testing.T) {
	b := New("test")
	if err := b.Do(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Do(fail); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if b.State() != "closed" {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestTripsAfterThreshold(t *testing.T) {
	b := New("redis", WithThreshold(2), WithCooldown(time.Hour))
	_ = b.Do(fail)
	if b.State() != "closed" {
		t.Fatal("one failure should not trip")
	}
	_ = b.Do(fail)
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	called := false
	err := b.Do(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatal("open breaker must not call through")
	}
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	b := New("test", WithThreshold(2))
	_ = b.Do(fail)
	_ = b.Do(ok)
	_ = b.Do(fail)
	if b.State() != "closed" {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestProbeAfterCooldown(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	b := New("test",
		WithThreshold(1),
		WithCooldown(20*time.Millisecond),
		WithOnStateChange(func(from, to string) {
			mu.Lock()
			transitions = append(transitions, from+"->"+to)
			mu.Unlock()
		}),
	)

	_ = b.Do(fail)
	time.Sleep(40 * time.Millisecond)
	if b.State() != "half-open" {
		t.Fatalf("state = %s, want half-open", b.State())
	}
	if err := b.Do(ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != "closed" {
		t.Fatalf("state = %s, want closed", b.State())
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestOptionsIgnoreNonPositive(t *testing.T) {
	b := New("test", WithThreshold(0), WithCooldown(-time.Second))
	for range defaultThreshold - 1 {
		_ = b.Do(fail)
	}
	if b.State() != "closed" {
		t.Fatal("default threshold should still apply")
	}
	_ = b.Do(fail)
	if b.State() != "open" {
		t.Fatal("expected open at default threshold")
	}
}
