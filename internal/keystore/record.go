package keystore

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Provider identifies an LLM API vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderMistral   Provider = "mistral"
	ProviderCohere    Provider = "cohere"
)

// Providers lists the known providers in display order.
var Providers = []Provider{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGoogle,
	ProviderMistral,
	ProviderCohere,
}

// Known reports whether p is one of the five supported providers.
func (p Provider) Known() bool {
	for _, k := range Providers {
		if p == k {
			return true
		}
	}
	return false
}

// Status is the format-validation outcome recorded on a key.
type Status string

const (
	StatusConnected Status = "connected"
	StatusError     Status = "error"
	StatusPending   Status = "pending"
)

// JustNow is the recency label written at creation and on touch.
const JustNow = "just now"

// Record is a registered API key. The raw secret is never part of it.
type Record struct {
	ID               string    `json:"id"`
	Provider         Provider  `json:"provider"`
	Name             string    `json:"name"`
	SecretDisplay    string    `json:"secretDisplay"`
	Status           Status    `json:"status"`
	LastCheckedLabel string    `json:"lastCheckedLabel"`
	CreatedAt        time.Time `json:"createdAt"`
}

const (
	minSecretLen = 6
	maskToken    = "****"
	maskHead     = 7
	maskTail     = 4
)

// requiredPrefix holds the per-provider secret prefixes. Providers absent
// from the map only get the length check.
var requiredPrefix = map[Provider]string{
	ProviderGoogle:    "AIza",
	ProviderOpenAI:    "sk-",
	ProviderAnthropic: "sk-ant-",
}

// Validate applies the format-only policy: no network call is made.
func Validate(p Provider, secret string) Status {
	if utf8.RuneCountInString(secret) < minSecretLen {
		return StatusError
	}
	if prefix, ok := requiredPrefix[p]; ok && !strings.HasPrefix(secret, prefix) {
		return StatusError
	}
	return StatusConnected
}

// Mask returns the display form of a secret: the first 7 and last 4
// characters around a fixed mask. Secrets too short to keep head and tail
// disjoint are fully masked.
func Mask(secret string) string {
	r := []rune(secret)
	if len(r) < maskHead+maskTail {
		return maskToken
	}
	return string(r[:maskHead]) + maskToken + string(r[len(r)-maskTail:])
}

// DefaultName derives a display name from the provider, e.g. "Openai Key".
func DefaultName(p Provider) string {
	s := string(p)
	if s == "" {
		return "Key"
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + s[size:] + " Key"
}

// NormalizeProvider trims and lower-cases a provider string. Unknown values
// are kept as-is.
func NormalizeProvider(s string) Provider {
	return Provider(strings.ToLower(strings.TrimSpace(s)))
}
