// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const defaultYahooEndpoint = "https://query1.finance.yahoo.com"

func init() {
	Providers.Register("yahoo", func(_ context.Context, params map[string]string) (Provider, error) {
		endpoint := params["endpoint"]
		if endpoint == "" {
			endpoint = defaultYahooEndpoint
		}
		return NewYahooProvider(endpoint), nil
	})
}

// YahooProvider fetches market data from the Yahoo Finance chart API.
type YahooProvider struct {
	endpoint   string
	httpClient *http.Client
}

// NewYahooProvider creates a provider against the given endpoint
// (no trailing slash; tests point this at an httptest server).
func NewYahooProvider(endpoint string) *YahooProvider {
	return &YahooProvider{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{},
	}
}

// Quote implements Provider.Quote.
func (y *YahooProvider) Quote(ctx context.Context, symbol string) (*Quote, error) {
	result, err := y.chart(ctx, symbol)
	if err != nil {
		return nil, err
	}

	price := result.Meta.RegularMarketPrice
	if price == 0 {
		if closes := result.closes(); len(closes) > 0 {
			price = closes[len(closes)-1]
		}
	}
	if price == 0 {
		return nil, fmt.Errorf("no price data for %s", symbol)
	}

	name := result.Meta.LongName
	if name == "" {
		name = result.Meta.ShortName
	}

	q := &Quote{
		Symbol:       strings.ToUpper(symbol),
		CurrentPrice: price,
		CompanyName:  name,
	}
	if result.Meta.RegularMarketVolume > 0 {
		v := result.Meta.RegularMarketVolume
		q.Volume = &v
	}
	if result.Meta.FiftyTwoWeekHigh > 0 {
		h := result.Meta.FiftyTwoWeekHigh
		q.Week52High = &h
	}
	if result.Meta.FiftyTwoWeekLow > 0 {
		l := result.Meta.FiftyTwoWeekLow
		q.Week52Low = &l
	}
	return q, nil
}

// Daily implements Provider.Daily.
func (y *YahooProvider) Daily(ctx context.Context, symbol string) (float64, float64, error) {
	result, err := y.chart(ctx, symbol)
	if err != nil {
		return 0, 0, err
	}

	closes := result.closes()
	switch {
	case len(closes) >= 2:
		return closes[len(closes)-1], closes[len(closes)-2], nil
	case len(closes) == 1:
		return closes[0], closes[0], nil
	case result.Meta.RegularMarketPrice != 0:
		prev := result.Meta.ChartPreviousClose
		if prev == 0 {
			prev = result.Meta.RegularMarketPrice
		}
		return result.Meta.RegularMarketPrice, prev, nil
	default:
		return 0, 0, fmt.Errorf("no price data for %s", symbol)
	}
}

func (y *YahooProvider) chart(ctx context.Context, symbol string) (*yahooChartResult, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s", y.endpoint, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("range", "5d")
	q.Set("interval", "1d")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "financial-chatbot/1.0")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chart request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed yahooChartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %s", parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}
	return &parsed.Chart.Result[0], nil
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooChartResult struct {
	Meta struct {
		Symbol              string  `json:"symbol"`
		LongName            string  `json:"longName"`
		ShortName           string  `json:"shortName"`
		RegularMarketPrice  float64 `json:"regularMarketPrice"`
		ChartPreviousClose  float64 `json:"chartPreviousClose"`
		RegularMarketVolume int64   `json:"regularMarketVolume"`
		FiftyTwoWeekHigh    float64 `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow     float64 `json:"fiftyTwoWeekLow"`
	} `json:"meta"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

// closes returns the non-null close series in order.
func (r *yahooChartResult) closes() []float64 {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	var out []float64
	for _, c := range r.Indicators.Quote[0].Close {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}
