// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"context"
	"fmt"

	"github.com/abdullahkazmii/financial-chatbot/pkg/core/api"
	"github.com/abdullahkazmii/financial-chatbot/pkg/marketdata"
)

// RegisterFinanceTools wires the market data service into the registry as
// the two functions advertised to the remote assistant.
func RegisterFinanceTools(r *Registry, md *marketdata.Service) {
	r.Register(Tool{
		Schema: api.ToolSchema{
			Name:        "get_stock_data",
			Description: "Get real-time stock data including price, market cap, P/E ratio, and 52-week range for a given stock symbol",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"symbol": map[string]any{
						"type":        "string",
						"description": "Stock symbol (e.g., AAPL, GOOGL, TSLA)",
					},
				},
				"required": []string{"symbol"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			symbol, _ := args["symbol"].(string)
			if symbol == "" {
				return nil, fmt.Errorf("symbol is required")
			}
			return md.Quote(ctx, symbol)
		},
	})

	r.Register(Tool{
		Schema: api.ToolSchema{
			Name:        "get_market_overview",
			Description: "Get an overview of major global market indices, commodities, and cryptocurrencies with current values and daily changes",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		Handler: func(ctx context.Context, _ map[string]any) (any, error) {
			return md.Overview(ctx), nil
		},
	})
}
