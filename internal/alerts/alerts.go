// Package alerts manages budget alert rules and notification channel
// preferences, and evaluates the rules against derived spend.
package alerts

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jordanhubbard/llmdash/internal/dashboard"
)

var (
	ErrNotFound         = errors.New("alert not found")
	ErrInvalidType      = errors.New("alert type must be daily, weekly or monthly")
	ErrInvalidThreshold = errors.New("alert threshold must be a non-negative number")
	ErrInvalidEmail     = errors.New("email address is invalid")
	ErrInvalidWebhook   = errors.New("webhook url must be an absolute http or https url")
	ErrSlackUnavailable = errors.New("slack notifications are not available yet")
)

// Type is the spend window an alert watches.
type Type string

const (
	Daily   Type = "daily"
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
)

func (t Type) valid() bool {
	return t == Daily || t == Weekly || t == Monthly
}

// Alert is a budget threshold rule.
type Alert struct {
	ID        string  `json:"id"`
	Type      Type    `json:"type"`
	Threshold float64 `json:"threshold"`
	Enabled   bool    `json:"enabled"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Type      *Type    `json:"type,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Enabled   *bool    `json:"enabled,omitempty"`
}

type EmailChannel struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

type SlackChannel struct {
	Enabled bool `json:"enabled"`
}

type WebhookChannel struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

// Channels are the notification preferences. Nothing is ever sent.
type Channels struct {
	Email   EmailChannel   `json:"email"`
	Slack   SlackChannel   `json:"slack"`
	Webhook WebhookChannel `json:"webhook"`
}

// Spend is the derived cost per alert window.
type Spend struct {
	Daily   decimal.Decimal `json:"daily"`
	Weekly  decimal.Decimal `json:"weekly"`
	Monthly decimal.Decimal `json:"monthly"`
}

func (s Spend) forType(t Type) decimal.Decimal {
	switch t {
	case Daily:
		return s.Daily
	case Weekly:
		return s.Weekly
	default:
		return s.Monthly
	}
}

// SpendFromDashboard reads the spend windows off a derived snapshot: the
// last history point is today, the whole window is the week, and the month
// is the week scaled to 30 days.
func SpendFromDashboard(d dashboard.Dashboard) Spend {
	var s Spend
	for i, p := range d.UsageHistory {
		c := decimal.NewFromFloat(p.CostUSD)
		s.Weekly = s.Weekly.Add(c)
		if i == len(d.UsageHistory)-1 {
			s.Daily = c
		}
	}
	s.Monthly = s.Weekly.Mul(decimal.NewFromInt(30)).Div(decimal.NewFromInt(dashboard.HistoryDays)).Round(2)
	return s
}

// Status is the evaluation result for one alert.
type Status struct {
	Alert     Alert   `json:"alert"`
	SpendUSD  float64 `json:"spend"`
	Triggered bool    `json:"triggered"`
}

// TriggerObserver is told when an alert crosses its threshold.
type TriggerObserver interface {
	AlertTriggered(t Type)
}

// Manager holds the alert rules and channel preferences in memory.
type Manager struct {
	logger *slog.Logger
	obs    TriggerObserver
	newID  func() string

	mu        sync.RWMutex
	alerts    []Alert
	channels  Channels
	triggered map[string]bool
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithObserver(o TriggerObserver) Option {
	return func(m *Manager) { m.obs = o }
}

func WithIDGenerator(f func() string) Option {
	return func(m *Manager) { m.newID = f }
}

// DefaultChannels returns the initial channel preferences.
func DefaultChannels() Channels {
	return Channels{
		Email: EmailChannel{Enabled: true, Address: "user@example.com"},
	}
}

// NewManager creates a Manager seeded with a daily $50 and a monthly $500
// alert.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:    slog.Default(),
		newID:     uuid.NewString,
		channels:  DefaultChannels(),
		triggered: make(map[string]bool),
	}
	for _, o := range opts {
		o(m)
	}
	m.alerts = []Alert{
		{ID: m.newID(), Type: Daily, Threshold: 50, Enabled: true},
		{ID: m.newID(), Type: Monthly, Threshold: 500, Enabled: true},
	}
	return m
}

// List returns the alerts in creation order.
func (m *Manager) List() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Add appends an alert. A nil patch field takes the new-alert default
// (daily, $100, enabled).
func (m *Manager) Add(p Patch) (Alert, error) {
	a := Alert{Type: Daily, Threshold: 100, Enabled: true}
	if err := apply(&a, p); err != nil {
		return Alert{}, err
	}
	a.ID = m.newID()

	m.mu.Lock()
	m.alerts = append(m.alerts, a)
	m.mu.Unlock()
	m.logger.Info("budget alert added", slog.String("id", a.ID), slog.String("type", string(a.Type)))
	return a, nil
}

// Update applies p to the alert with the given id.
func (m *Manager) Update(id string, p Patch) (Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID != id {
			continue
		}
		a := m.alerts[i]
		if err := apply(&a, p); err != nil {
			return Alert{}, err
		}
		m.alerts[i] = a
		delete(m.triggered, id)
		return a, nil
	}
	return Alert{}, ErrNotFound
}

// Remove deletes the alert with the given id.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts = append(m.alerts[:i], m.alerts[i+1:]...)
			delete(m.triggered, id)
			return nil
		}
	}
	return ErrNotFound
}

func apply(a *Alert, p Patch) error {
	if p.Type != nil {
		if !p.Type.valid() {
			return ErrInvalidType
		}
		a.Type = *p.Type
	}
	if p.Threshold != nil {
		v := *p.Threshold
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidThreshold
		}
		a.Threshold = v
	}
	if p.Enabled != nil {
		a.Enabled = *p.Enabled
	}
	return nil
}

// Channels returns the current channel preferences.
func (m *Manager) Channels() Channels {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels
}

// SetChannels replaces the channel preferences after validation.
func (m *Manager) SetChannels(c Channels) (Channels, error) {
	c.Email.Address = strings.TrimSpace(c.Email.Address)
	c.Webhook.URL = strings.TrimSpace(c.Webhook.URL)

	if c.Slack.Enabled {
		return Channels{}, ErrSlackUnavailable
	}
	if c.Email.Enabled && !validEmail(c.Email.Address) {
		return Channels{}, fmt.Errorf("%w: %q", ErrInvalidEmail, c.Email.Address)
	}
	if c.Webhook.Enabled && !validWebhook(c.Webhook.URL) {
		return Channels{}, ErrInvalidWebhook
	}

	m.mu.Lock()
	m.channels = c
	m.mu.Unlock()
	return c, nil
}

func validEmail(s string) bool {
	local, domain, ok := strings.Cut(s, "@")
	return ok && local != "" && domain != "" && !strings.ContainsAny(s, " \t")
}

func validWebhook(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Evaluate checks every alert against spend. An enabled alert triggers when
// spend reaches its threshold. The observer and the warn log fire only on the
// transition into the triggered state.
func (m *Manager) Evaluate(s Spend) []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Status, 0, len(m.alerts))
	for _, a := range m.alerts {
		spent := s.forType(a.Type)
		hit := a.Enabled && spent.GreaterThanOrEqual(decimal.NewFromFloat(a.Threshold))
		if hit && !m.triggered[a.ID] {
			m.logger.Warn("budget alert triggered",
				slog.String("id", a.ID),
				slog.String("type", string(a.Type)),
				slog.Float64("threshold", a.Threshold),
				slog.String("spend", spent.StringFixed(2)),
			)
			if m.obs != nil {
				m.obs.AlertTriggered(a.Type)
			}
		}
		m.triggered[a.ID] = hit
		out = append(out, Status{Alert: a, SpendUSD: spent.InexactFloat64(), Triggered: hit})
	}
	return out
}
