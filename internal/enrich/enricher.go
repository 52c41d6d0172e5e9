package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solana-copydesk/internal/domain"
)

// Cache TTLs. Prices go stale in seconds; symbols effectively never change.
const (
	PriceTTL  = 30 * time.Second
	SymbolTTL = 24 * time.Hour
)

// Enricher fills display symbols and current USD prices on classified swaps,
// reading through a redis cache in front of the upstream APIs. A redis
// outage degrades to direct fetches; an upstream outage leaves the affected
// fields unset. Neither fails the scan.
type Enricher struct {
	prices  PriceSource
	symbols SymbolSource
	rdb     *redis.Client
	logger  zerolog.Logger
}

// NewEnricher creates an enricher. rdb may be nil to disable caching.
func NewEnricher(prices PriceSource, symbols SymbolSource, rdb *redis.Client, logger zerolog.Logger) *Enricher {
	return &Enricher{
		prices:  prices,
		symbols: symbols,
		rdb:     rdb,
		logger:  logger.With().Str("component", "enricher").Logger(),
	}
}

// Enrich fills TokenSymbol and PriceUSD in place for every swap. The
// returned error reports degraded upstreams; fields resolved before the
// failure are still filled, so callers may store the swaps regardless.
func (e *Enricher) Enrich(ctx context.Context, swaps []*domain.ClassifiedSwap) error {
	if len(swaps) == 0 {
		return nil
	}

	mints := distinctMints(swaps)
	symbols, symErr := e.resolveSymbols(ctx, mints)
	prices, priceErr := e.resolvePrices(ctx, mints)

	for _, s := range swaps {
		if symbol, ok := symbols[s.TokenMint]; ok {
			s.TokenSymbol = symbol
		}
		if price, ok := prices[s.TokenMint]; ok {
			p := price
			s.PriceUSD = &p
		}
	}
	return errors.Join(symErr, priceErr)
}

// Prices resolves current USD prices for the given mints through the cache.
// Exposed for the position monitor's batched re-pricing tick.
func (e *Enricher) Prices(ctx context.Context, mints []string) map[string]float64 {
	prices, _ := e.resolvePrices(ctx, mints)
	return prices
}

func (e *Enricher) resolveSymbols(ctx context.Context, mints []string) (map[string]string, error) {
	resolved := make(map[string]string, len(mints))

	var misses []string
	for _, mint := range mints {
		if cached, ok := e.cacheGet(ctx, symbolKey(mint)); ok {
			resolved[mint] = cached
			continue
		}
		misses = append(misses, mint)
	}
	if len(misses) == 0 {
		return resolved, nil
	}

	fetched, err := e.symbols.GetSymbols(ctx, misses)
	if err != nil {
		e.logger.Warn().Err(err).Int("mints", len(misses)).Msg("symbol lookup degraded")
	}
	for mint, symbol := range fetched {
		resolved[mint] = symbol
		e.cacheSet(ctx, symbolKey(mint), symbol, SymbolTTL)
	}
	return resolved, err
}

func (e *Enricher) resolvePrices(ctx context.Context, mints []string) (map[string]float64, error) {
	resolved := make(map[string]float64, len(mints))

	var misses []string
	for _, mint := range mints {
		if cached, ok := e.cacheGet(ctx, priceKey(mint)); ok {
			var price float64
			if _, err := fmt.Sscanf(cached, "%g", &price); err == nil {
				resolved[mint] = price
				continue
			}
		}
		misses = append(misses, mint)
	}
	if len(misses) == 0 {
		return resolved, nil
	}

	fetched, err := e.prices.GetPrices(ctx, misses)
	if err != nil {
		// Best-effort: swaps keep nil prices and the next pass retries.
		e.logger.Warn().Err(err).Int("mints", len(misses)).Msg("price fetch failed")
		return resolved, err
	}
	for mint, price := range fetched {
		resolved[mint] = price
		e.cacheSet(ctx, priceKey(mint), fmt.Sprintf("%g", price), PriceTTL)
	}
	return resolved, nil
}

func (e *Enricher) cacheGet(ctx context.Context, key string) (string, bool) {
	if e.rdb == nil {
		return "", false
	}
	val, err := e.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (e *Enricher) cacheSet(ctx context.Context, key, val string, ttl time.Duration) {
	if e.rdb == nil {
		return
	}
	if err := e.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		e.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func priceKey(mint string) string  { return "price:" + mint }
func symbolKey(mint string) string { return "symbol:" + mint }

func distinctMints(swaps []*domain.ClassifiedSwap) []string {
	seen := make(map[string]struct{}, len(swaps))
	var mints []string
	for _, s := range swaps {
		if _, ok := seen[s.TokenMint]; ok {
			continue
		}
		seen[s.TokenMint] = struct{}{}
		mints = append(mints, s.TokenMint)
	}
	return mints
}
