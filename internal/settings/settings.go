// Package settings holds the dashboard display preferences.
package settings

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrInvalidTheme    = errors.New("invalid theme")
	ErrInvalidLanguage = errors.New("invalid language")
	ErrInvalidCurrency = errors.New("invalid currency")
)

var (
	Themes     = []string{"dark", "light", "system"}
	Languages  = []string{"ko", "en", "ja"}
	Currencies = []string{"USD", "KRW", "EUR"}
)

// Settings are the display preferences shown on the settings page.
type Settings struct {
	Theme       string `json:"theme"`
	Language    string `json:"language"`
	Currency    string `json:"currency"`
	AutoRefresh bool   `json:"autoRefresh"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Theme       *string `json:"theme,omitempty"`
	Language    *string `json:"language,omitempty"`
	Currency    *string `json:"currency,omitempty"`
	AutoRefresh *bool   `json:"autoRefresh,omitempty"`
}

func Defaults() Settings {
	return Settings{Theme: "dark", Language: "ko", Currency: "USD", AutoRefresh: true}
}

// Store is a concurrency-safe in-memory Settings holder.
type Store struct {
	mu sync.RWMutex
	s  Settings
}

// New creates a Store holding initial. Invalid values in initial are
// replaced by the defaults.
func New(initial Settings) *Store {
	d := Defaults()
	if !slices.Contains(Themes, initial.Theme) {
		initial.Theme = d.Theme
	}
	if !slices.Contains(Languages, initial.Language) {
		initial.Language = d.Language
	}
	if !slices.Contains(Currencies, initial.Currency) {
		initial.Currency = d.Currency
	}
	return &Store{s: initial}
}

func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// Update validates p as a whole and applies it. On error nothing changes.
func (st *Store) Update(p Patch) (Settings, error) {
	if p.Theme != nil && !slices.Contains(Themes, *p.Theme) {
		return Settings{}, fmt.Errorf("%w %q", ErrInvalidTheme, *p.Theme)
	}
	if p.Language != nil && !slices.Contains(Languages, *p.Language) {
		return Settings{}, fmt.Errorf("%w %q", ErrInvalidLanguage, *p.Language)
	}
	if p.Currency != nil && !slices.Contains(Currencies, *p.Currency) {
		return Settings{}, fmt.Errorf("%w %q", ErrInvalidCurrency, *p.Currency)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if p.Theme != nil {
		st.s.Theme = *p.Theme
	}
	if p.Language != nil {
		st.s.Language = *p.Language
	}
	if p.Currency != nil {
		st.s.Currency = *p.Currency
	}
	if p.AutoRefresh != nil {
		st.s.AutoRefresh = *p.AutoRefresh
	}
	return st.s, nil
}
