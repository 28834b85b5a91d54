// Package dashboard derives display aggregates from the registered key list.
// Derive is a pure function of its inputs; the only nondeterminism is the
// history jitter, which draws from an injectable random source.
package dashboard

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jordanhubbard/llmdash/internal/keystore"
)

const (
	// MaxKeys is the key-slot capacity shown on the dashboard.
	MaxKeys = 5
	// HistoryDays is the length of the trailing usage window.
	HistoryDays = 7
	// Jitter bounds the multiplicative noise applied to each history point.
	Jitter = 0.2
)

// Rand is the random source used for history jitter. *rand.Rand from
// math/rand and math/rand/v2 both satisfy it.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Options parameterize Derive. Zero values fall back to defaults.
type Options struct {
	Rand     Rand
	Now      func() time.Time
	Location *time.Location
	Catalog  *Catalog
}

func (o Options) withDefaults() Options {
	if o.Rand == nil {
		o.Rand = globalRand{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Catalog == nil {
		c := DefaultCatalog()
		o.Catalog = &c
	}
	return o
}

// Totals are the unformatted aggregate figures.
type Totals struct {
	Requests int64           `json:"requests"`
	Tokens   int64           `json:"tokens"`
	CostUSD  decimal.Decimal `json:"costUsd"`
}

// HistoryPoint is one day of the trailing usage window. Providers breaks
// Tokens down by provider id and always sums to it.
type HistoryPoint struct {
	Label     string           `json:"label"`
	Tokens    int64            `json:"tokens"`
	CostUSD   float64          `json:"cost"`
	Providers map[string]int64 `json:"providers"`
}

// ProviderShare is one slice of the provider distribution.
type ProviderShare struct {
	Provider string  `json:"provider"`
	Requests int64   `json:"requests"`
	Share    float64 `json:"share"`
	Color    string  `json:"color"`
}

// ModelUsage is one synthetic model row.
type ModelUsage struct {
	ModelName    string  `json:"modelName"`
	Tokens       int64   `json:"tokens"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	CostUSD      float64 `json:"cost"`
	Provider     string  `json:"provider"`
}

// Dashboard is the derived snapshot. It has no identity and is never
// persisted.
type Dashboard struct {
	TotalRequests        string          `json:"totalRequests"`
	TotalTokens          string          `json:"totalTokens"`
	EstimatedCost        string          `json:"estimatedCost"`
	KeyCount             string          `json:"keyCount"`
	Totals               Totals          `json:"totals"`
	UsageHistory         []HistoryPoint  `json:"usageHistory"`
	ProviderDistribution []ProviderShare `json:"providerDistribution"`
	ModelUsage           []ModelUsage    `json:"modelUsage"`
}

// Empty reports whether d is the no-data sentinel.
func (d Dashboard) Empty() bool {
	return len(d.UsageHistory) == 0 && len(d.ModelUsage) == 0 && d.Totals.Requests == 0
}

// Sentinel returns the placeholder shown when no keys are registered.
func Sentinel(keyCount int) Dashboard {
	return Dashboard{
		TotalRequests:        "0",
		TotalTokens:          "0",
		EstimatedCost:        "$0.00",
		KeyCount:             formatKeyCount(keyCount),
		Totals:               Totals{CostUSD: decimal.Zero},
		UsageHistory:         []HistoryPoint{},
		ProviderDistribution: []ProviderShare{},
		ModelUsage:           []ModelUsage{},
	}
}

// Derive computes the dashboard for keys. Only provider presence matters;
// several keys for one provider contribute that provider's models once.
func Derive(keys []keystore.Record, opts Options) Dashboard {
	if len(keys) == 0 {
		return Sentinel(0)
	}
	opts = opts.withDefaults()

	present := make(map[keystore.Provider]bool, len(keys))
	for _, k := range keys {
		present[k.Provider] = true
	}

	d := Sentinel(len(keys))
	var contributed []contribution
	shareIdx := make(map[string]int)

	for _, p := range opts.Catalog.Providers {
		if !present[p.ID] || len(p.Models) == 0 {
			continue
		}
		label := p.label()
		for _, m := range p.Models {
			contributed = append(contributed, contribution{provider: string(p.ID), model: m})
			d.Totals.Requests += m.Requests
			d.Totals.Tokens += m.Tokens
			d.Totals.CostUSD = d.Totals.CostUSD.Add(m.CostUSD)
			d.ModelUsage = append(d.ModelUsage, ModelUsage{
				ModelName:    m.Name,
				Tokens:       m.Tokens,
				InputTokens:  m.InputTokens,
				OutputTokens: m.OutputTokens,
				CostUSD:      m.CostUSD.InexactFloat64(),
				Provider:     label,
			})

			i, ok := shareIdx[label]
			if !ok {
				i = len(d.ProviderDistribution)
				shareIdx[label] = i
				d.ProviderDistribution = append(d.ProviderDistribution, ProviderShare{
					Provider: label,
					Color:    p.color(),
				})
			}
			d.ProviderDistribution[i].Requests += m.Requests
		}
	}

	if d.Totals.Requests > 0 {
		for i := range d.ProviderDistribution {
			pct := float64(d.ProviderDistribution[i].Requests) / float64(d.Totals.Requests) * 100
			d.ProviderDistribution[i].Share = round(pct, 1)
		}
	}

	d.UsageHistory = buildHistory(contributed, opts)
	d.TotalRequests = FormatCount(d.Totals.Requests)
	d.TotalTokens = FormatTokens(d.Totals.Tokens)
	d.EstimatedCost = FormatUSD(d.Totals.CostUSD)
	return d
}

type contribution struct {
	provider string
	model    ModelEntry
}

// buildHistory spreads each model's figures evenly over the window and
// applies independent jitter per point per model.
func buildHistory(models []contribution, opts Options) []HistoryPoint {
	today := opts.Now().In(opts.Location)
	start := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, opts.Location).
		AddDate(0, 0, -(HistoryDays - 1))

	points := make([]HistoryPoint, HistoryDays)
	for day := range HistoryDays {
		var tokens, cost float64
		var order []string
		byProvider := make(map[string]float64)
		for _, c := range models {
			f := jitterFactor(opts.Rand)
			t := float64(c.model.Tokens) / HistoryDays * f
			if _, ok := byProvider[c.provider]; !ok {
				order = append(order, c.provider)
			}
			byProvider[c.provider] += t
			tokens += t
			cost += c.model.CostUSD.InexactFloat64() / HistoryDays * f
		}
		total := int64(math.Round(tokens))
		points[day] = HistoryPoint{
			Label:     DayLabel(start.AddDate(0, 0, day)),
			Tokens:    total,
			CostUSD:   round(cost, 2),
			Providers: splitTokens(total, order, byProvider),
		}
	}
	return points
}

// splitTokens rounds each provider's share and gives the rounding residue to
// the largest one so the parts add up to total.
func splitTokens(total int64, order []string, shares map[string]float64) map[string]int64 {
	out := make(map[string]int64, len(order))
	var sum int64
	largest := ""
	for _, id := range order {
		v := int64(math.Round(shares[id]))
		out[id] = v
		sum += v
		if largest == "" || shares[id] > shares[largest] {
			largest = id
		}
	}
	if largest != "" {
		out[largest] += total - sum
	}
	return out
}

func jitterFactor(r Rand) float64 {
	return 1 - Jitter + 2*Jitter*r.Float64()
}

// DayLabel renders a calendar date as month/day, e.g. "1/7".
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
}

func formatKeyCount(n int) string {
	return fmt.Sprintf("%d / %d", n, MaxKeys)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
