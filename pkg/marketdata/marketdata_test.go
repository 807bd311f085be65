// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package marketdata

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type countingProvider struct {
	quoteCalls int
	dailyCalls int
	failQuote  bool
	failDaily  map[string]bool
}

func (p *countingProvider) Quote(_ context.Context, symbol string) (*Quote, error) {
	p.quoteCalls++
	if p.failQuote {
		return nil, fmt.Errorf("feed down")
	}
	return &Quote{CurrentPrice: 99.999, CompanyName: ""}, nil
}

func (p *countingProvider) Daily(_ context.Context, symbol string) (float64, float64, error) {
	p.dailyCalls++
	if p.failDaily[symbol] {
		return 0, 0, fmt.Errorf("no data for %s", symbol)
	}
	return 110, 100, nil
}

func TestQuoteNormalization(t *testing.T) {
	p := &countingProvider{}
	svc := NewService(p, time.Minute)

	q, err := svc.Quote(context.Background(), "  aapl ")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Symbol != "AAPL" {
		t.Errorf("Symbol = %q", q.Symbol)
	}
	if q.CurrentPrice != 100.0 {
		t.Errorf("CurrentPrice = %v, want rounded 100", q.CurrentPrice)
	}
	if q.CompanyName != "AAPL" {
		t.Errorf("CompanyName = %q, want symbol fallback", q.CompanyName)
	}
}

func TestQuoteEmptySymbol(t *testing.T) {
	svc := NewService(&countingProvider{}, time.Minute)
	if _, err := svc.Quote(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestQuoteCached(t *testing.T) {
	p := &countingProvider{}
	svc := NewService(p, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := svc.Quote(context.Background(), "aapl"); err != nil {
			t.Fatalf("Quote: %v", err)
		}
	}
	if p.quoteCalls != 1 {
		t.Errorf("quoteCalls = %d, want 1 (cached)", p.quoteCalls)
	}

	// Different symbol misses the cache.
	if _, err := svc.Quote(context.Background(), "MSFT"); err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if p.quoteCalls != 2 {
		t.Errorf("quoteCalls = %d, want 2", p.quoteCalls)
	}
}

func TestQuoteCacheExpiry(t *testing.T) {
	p := &countingProvider{}
	svc := NewService(p, time.Minute)

	current := time.Now()
	svc.cache.now = func() time.Time { return current }

	if _, err := svc.Quote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("Quote: %v", err)
	}
	current = current.Add(2 * time.Minute)
	if _, err := svc.Quote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if p.quoteCalls != 2 {
		t.Errorf("quoteCalls = %d, want 2 after expiry", p.quoteCalls)
	}
}

func TestQuoteErrorNotCached(t *testing.T) {
	p := &countingProvider{failQuote: true}
	svc := NewService(p, time.Minute)

	if _, err := svc.Quote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error")
	}
	p.failQuote = false
	if _, err := svc.Quote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("Quote after recovery: %v", err)
	}
	if p.quoteCalls != 2 {
		t.Errorf("quoteCalls = %d", p.quoteCalls)
	}
}

func TestOverview(t *testing.T) {
	p := &countingProvider{failDaily: map[string]bool{"^FTSE": true}}
	svc := NewService(p, time.Minute)

	overview := svc.Overview(context.Background())
	if len(overview) != len(overviewSymbols) {
		t.Fatalf("len(overview) = %d, want %d", len(overview), len(overviewSymbols))
	}

	snap, ok := overview["S&P 500"].(IndexSnapshot)
	if !ok {
		t.Fatalf("S&P 500 entry = %T", overview["S&P 500"])
	}
	if snap.Current != 110 || snap.Change != 10 || snap.ChangePercent != 10 {
		t.Errorf("snapshot = %+v", snap)
	}

	// A failing symbol yields a per-entry error, not a missing key.
	errEntry, ok := overview["FTSE 100"].(map[string]string)
	if !ok {
		t.Fatalf("FTSE 100 entry = %T", overview["FTSE 100"])
	}
	if errEntry["error"] == "" {
		t.Errorf("FTSE 100 entry = %v", errEntry)
	}
}

func TestOverviewCachedAsUnit(t *testing.T) {
	p := &countingProvider{}
	svc := NewService(p, time.Minute)

	svc.Overview(context.Background())
	svc.Overview(context.Background())
	if p.dailyCalls != len(overviewSymbols) {
		t.Errorf("dailyCalls = %d, want %d", p.dailyCalls, len(overviewSymbols))
	}
}
