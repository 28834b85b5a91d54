// Package circuitbreaker guards calls to remote slot backends. After a run of
// consecutive failures the breaker opens and calls fail fast with ErrOpen
// until the cooldown elapses and a single probe succeeds.
package circuitbreaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit open")

const (
	defaultThreshold = 3
	defaultCooldown  = 30 * time.Second
)

type config struct {
	threshold     uint32
	cooldown      time.Duration
	onStateChange func(from, to string)
}

// Option configures a Breaker.
type Option func(*config)

// WithThreshold sets the consecutive failures needed to open. Default 3.
func WithThreshold(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.threshold = uint32(n)
		}
	}
}

// WithCooldown sets how long the breaker stays open before probing.
// Default 30s.
func WithCooldown(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// WithOnStateChange registers a transition callback ("closed", "open",
// "half-open").
func WithOnStateChange(fn func(from, to string)) Option {
	return func(c *config) { c.onStateChange = fn }
}

// Breaker is a goroutine-safe circuit breaker.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// New creates a closed Breaker identified by name.
func New(name string, opts ...Option) *Breaker {
	cfg := config{threshold: defaultThreshold, cooldown: defaultCooldown}
	for _, o := range opts {
		o(&cfg)
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.threshold
		},
	}
	if cfg.onStateChange != nil {
		st.OnStateChange = func(_ string, from, to gobreaker.State) {
			cfg.onStateChange(from.String(), to.String())
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(st)}
}

// Do runs fn through the breaker.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", b.cb.Name(), ErrOpen)
	}
	return err
}

// State returns "closed", "open" or "half-open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}
