package dashboard

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jordanhubbard/llmdash/internal/keystore"
)

// ModelEntry is a synthetic model contribution with fixed base figures.
// InputTokens and OutputTokens split Tokens; both zero means no split is
// known.
type ModelEntry struct {
	Name         string          `yaml:"name" json:"name"`
	Requests     int64           `yaml:"requests" json:"requests"`
	Tokens       int64           `yaml:"tokens" json:"tokens"`
	InputTokens  int64           `yaml:"input,omitempty" json:"inputTokens,omitempty"`
	OutputTokens int64           `yaml:"output,omitempty" json:"outputTokens,omitempty"`
	CostUSD      decimal.Decimal `yaml:"cost" json:"cost"`
}

// ProviderEntry groups the models contributed when a provider is present.
type ProviderEntry struct {
	ID     keystore.Provider `yaml:"id" json:"id"`
	Label  string            `yaml:"label" json:"label"`
	Color  string            `yaml:"color,omitempty" json:"color,omitempty"`
	Models []ModelEntry      `yaml:"models" json:"models"`
}

// Catalog is the static lookup table keyed by provider, in display order.
type Catalog struct {
	Providers []ProviderEntry `yaml:"providers" json:"providers"`
}

func usd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultCatalog returns the built-in model table. Mistral and Cohere have
// no entries and contribute nothing.
func DefaultCatalog() Catalog {
	return Catalog{Providers: []ProviderEntry{
		{ID: keystore.ProviderOpenAI, Label: "OpenAI", Models: []ModelEntry{
			{Name: "GPT-5.2", Requests: 3420, Tokens: 1_200_000, InputTokens: 800_000, OutputTokens: 400_000, CostUSD: usd("15.40")},
			{Name: "GPT-5 mini", Requests: 2150, Tokens: 480_000, InputTokens: 300_000, OutputTokens: 180_000, CostUSD: usd("0.85")},
		}},
		{ID: keystore.ProviderAnthropic, Label: "Anthropic", Models: []ModelEntry{
			{Name: "Claude Sonnet 4.5", Requests: 1870, Tokens: 850_000, InputTokens: 570_000, OutputTokens: 280_000, CostUSD: usd("4.65")},
			{Name: "Claude Haiku 4.5", Requests: 960, Tokens: 320_000, InputTokens: 200_000, OutputTokens: 120_000, CostUSD: usd("0.80")},
		}},
		{ID: keystore.ProviderGoogle, Label: "Google AI", Models: []ModelEntry{
			{Name: "Gemini 3 Pro", Requests: 1240, Tokens: 620_000, InputTokens: 434_000, OutputTokens: 186_000, CostUSD: usd("2.50")},
		}},
	}}
}

// LoadCatalog reads a YAML catalog file, replacing the built-in table.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate rejects entries that would produce nonsensical aggregates.
func (c Catalog) Validate() error {
	seen := make(map[keystore.Provider]bool)
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("catalog: provider id required")
		}
		if seen[p.ID] {
			return fmt.Errorf("catalog: duplicate provider %q", p.ID)
		}
		seen[p.ID] = true
		for _, m := range p.Models {
			if m.Name == "" {
				return fmt.Errorf("catalog: %s: model name required", p.ID)
			}
			if m.Requests < 0 || m.Tokens < 0 || m.InputTokens < 0 || m.OutputTokens < 0 || m.CostUSD.IsNegative() {
				return fmt.Errorf("catalog: %s/%s: negative figures", p.ID, m.Name)
			}
			if split := m.InputTokens + m.OutputTokens; split != 0 && split != m.Tokens {
				return fmt.Errorf("catalog: %s/%s: input+output tokens %d do not match tokens %d", p.ID, m.Name, split, m.Tokens)
			}
		}
	}
	return nil
}

func (p ProviderEntry) label() string {
	if p.Label != "" {
		return p.Label
	}
	return string(p.ID)
}

func (p ProviderEntry) color() string {
	if p.Color != "" {
		return p.Color
	}
	return ColorFor(p.label())
}

var providerColors = []struct {
	match string
	color string
}{
	{"openai", "#22c55e"},
	{"anthropic", "#f59e0b"},
	{"google", "#6366f1"},
	{"mistral", "#ec4899"},
	{"cohere", "#06b6d4"},
}

const fallbackColor = "#6b7280"

// ColorFor picks a display color by case-insensitive substring match on the
// provider label.
func ColorFor(label string) string {
	l := strings.ToLower(label)
	for _, pc := range providerColors {
		if strings.Contains(l, pc.match) {
			return pc.color
		}
	}
	return fallbackColor
}
