package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// ModelRate is the price per million tokens for one model.
type ModelRate struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

// Cost is a computed price breakdown for one generation.
type Cost struct {
	InputUSD  decimal.Decimal
	OutputUSD decimal.Decimal
	TotalUSD  decimal.Decimal
}

var million = decimal.NewFromInt(1_000_000)

func (r ModelRate) Cost(inputTokens, outputTokens int) Cost {
	in := r.InputPerMTok.Mul(decimal.NewFromInt(int64(inputTokens))).Div(million)
	out := r.OutputPerMTok.Mul(decimal.NewFromInt(int64(outputTokens))).Div(million)
	return Cost{InputUSD: in, OutputUSD: out, TotalUSD: in.Add(out)}
}

// Source supplies the rate table, typically from a remote catalog.
type Source interface {
	Fetch(ctx context.Context) (map[string]ModelRate, error)
}

// StaticSource serves a fixed rate table. Used as the default source and in
// tests.
type StaticSource map[string]ModelRate

func (s StaticSource) Fetch(ctx context.Context) (map[string]ModelRate, error) {
	return s, nil
}

// DefaultRates covers the models this service ships with. Values are USD per
// million tokens.
func DefaultRates() StaticSource {
	return StaticSource{
		"deepseek-chat":     {InputPerMTok: decimal.RequireFromString("0.27"), OutputPerMTok: decimal.RequireFromString("1.10")},
		"deepseek-reasoner": {InputPerMTok: decimal.RequireFromString("0.55"), OutputPerMTok: decimal.RequireFromString("2.19")},
		"gpt-4o":            {InputPerMTok: decimal.RequireFromString("2.50"), OutputPerMTok: decimal.RequireFromString("10.00")},
		"gpt-4o-mini":       {InputPerMTok: decimal.RequireFromString("0.15"), OutputPerMTok: decimal.RequireFromString("0.60")},
	}
}

const ratesCacheKey = "rates"

// Catalog is the process-wide rate table with time-bounded caching. A failed
// refresh falls back to the last successfully fetched table, so lookups
// degrade to stale data rather than errors.
type Catalog struct {
	source Source
	cache  *cache.Cache

	mu       sync.RWMutex
	fallback map[string]ModelRate
}

// NewCatalog builds a catalog that re-fetches from source at most once per
// ttl (default refresh interval is 24h, see bootstrap).
func NewCatalog(source Source, ttl time.Duration) *Catalog {
	if source == nil {
		source = DefaultRates()
	}
	return &Catalog{
		source: source,
		cache:  cache.New(ttl, ttl/2+time.Minute),
	}
}

// Lookup resolves the rate for a model id. The second return is false when
// the model is unknown or no table could ever be fetched; callers must treat
// that as "forward raw counts unenriched".
func (c *Catalog) Lookup(ctx context.Context, modelId string) (ModelRate, bool) {
	rates := c.rates(ctx)
	rate, ok := rates[modelId]
	return rate, ok
}

func (c *Catalog) rates(ctx context.Context) map[string]ModelRate {
	if x, found := c.cache.Get(ratesCacheKey); found {
		return x.(map[string]ModelRate)
	}

	fetched, err := c.source.Fetch(ctx)
	if err != nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.fallback
	}

	c.cache.Set(ratesCacheKey, fetched, cache.DefaultExpiration)
	c.mu.Lock()
	c.fallback = fetched
	c.mu.Unlock()
	return fetched
}
