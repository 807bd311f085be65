// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package marketdata fetches quotes and index snapshots from an external
// price feed. Results are memoized for a short window to bound call volume
// against the upstream API.
package marketdata

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/abdullahkazmii/financial-chatbot/pkg/provider"
)

// Providers is the registry of market data backends. Implementations
// self-register via init().
var Providers = provider.NewRegistry[Provider]("market_data")

// Quote is a point-in-time snapshot for a single symbol. Optional fields
// are omitted when the feed does not report them.
type Quote struct {
	Symbol       string   `json:"symbol"`
	CurrentPrice float64  `json:"current_price"`
	CompanyName  string   `json:"company_name"`
	MarketCap    *int64   `json:"market_cap,omitempty"`
	PERatio      *float64 `json:"pe_ratio,omitempty"`
	Week52High   *float64 `json:"52_week_high,omitempty"`
	Week52Low    *float64 `json:"52_week_low,omitempty"`
	Volume       *int64   `json:"volume,omitempty"`
}

// IndexSnapshot is one row of the market overview.
type IndexSnapshot struct {
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// Provider retrieves raw market data from an upstream feed.
type Provider interface {
	// Quote fetches the full snapshot for one symbol.
	Quote(ctx context.Context, symbol string) (*Quote, error)
	// Daily fetches the latest close and the previous close for one symbol.
	Daily(ctx context.Context, symbol string) (current, previous float64, err error)
}

// overviewSymbols is the curated set of global indices, commodities and
// crypto shown in the market overview, keyed by display name.
var overviewSymbols = []struct {
	Name   string
	Symbol string
}{
	{"S&P 500", "^GSPC"},
	{"NASDAQ", "^IXIC"},
	{"NVIDIA", "NVDA"},
	{"Russell 2000", "^RUT"},
	{"Bitcoin", "BTC-USD"},
	{"Ethereum", "ETH-USD"},
	{"Crude Oil", "CL=F"},
	{"Gold", "GC=F"},
	{"Silver", "SI=F"},
	{"FTSE 100", "^FTSE"},
	{"DAX", "^GDAXI"},
	{"Nikkei 225", "^N225"},
	{"Hang Seng", "^HSI"},
	{"S&P/TSX Composite", "^GSPTSE"},
	{"Euro Stoxx 50", "^STOXX50E"},
	{"CAC 40", "^FCHI"},
	{"ASX 200", "^AXJO"},
	{"Bovespa", "^BVSP"},
	{"Sensex", "^BSESN"},
	{"Swiss Market Index", "^SSMI"},
	{"KOSPI", "^KS11"},
	{"Nifty 50", "^NSEI"},
	{"Jakarta Composite", "^JKSE"},
	{"Straits Times", "^STI"},
}

const overviewCacheKey = "__overview__"

// Service wraps a Provider with a TTL cache. All reads go through the cache;
// entries expire naturally after the window, there is no invalidation API.
type Service struct {
	provider Provider
	cache    *ttlCache
}

// NewService creates a Service caching provider results for ttl.
func NewService(p Provider, ttl time.Duration) *Service {
	return &Service{
		provider: p,
		cache:    newTTLCache(ttl),
	}
}

// Quote returns the snapshot for symbol, serving from cache within the TTL
// window. Symbols are case-insensitive.
func (s *Service) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	if v, ok := s.cache.get("quote:" + symbol); ok {
		q := v.(Quote)
		return &q, nil
	}

	q, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("no data available for %s: %w", symbol, err)
	}

	q.Symbol = symbol
	q.CurrentPrice = round2(q.CurrentPrice)
	if q.CompanyName == "" {
		q.CompanyName = symbol
	}

	s.cache.set("quote:"+symbol, *q)
	return q, nil
}

// Overview returns snapshots for the curated symbol set. Failures for
// individual symbols are reported per entry without failing the whole
// overview; the assembled map is cached as one unit.
func (s *Service) Overview(ctx context.Context) map[string]any {
	if v, ok := s.cache.get(overviewCacheKey); ok {
		return v.(map[string]any)
	}

	results := make(map[string]any, len(overviewSymbols))
	for _, entry := range overviewSymbols {
		current, previous, err := s.provider.Daily(ctx, entry.Symbol)
		if err != nil {
			results[entry.Name] = map[string]string{"error": err.Error()}
			continue
		}

		change := current - previous
		changePct := 0.0
		if previous != 0 {
			changePct = (change / previous) * 100
		}
		results[entry.Name] = IndexSnapshot{
			Current:       round2(current),
			Change:        round2(change),
			ChangePercent: round2(changePct),
		}
	}

	s.cache.set(overviewCacheKey, results)
	return results
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
