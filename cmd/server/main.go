// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

// Command server runs the financial chatbot HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/abdullahkazmii/financial-chatbot/pkg/adapters/http"
	"github.com/abdullahkazmii/financial-chatbot/pkg/core/advisor"
	"github.com/abdullahkazmii/financial-chatbot/pkg/core/api"
	"github.com/abdullahkazmii/financial-chatbot/pkg/core/config"
	"github.com/abdullahkazmii/financial-chatbot/pkg/marketdata"
	"github.com/abdullahkazmii/financial-chatbot/pkg/observability/logging"
	"github.com/abdullahkazmii/financial-chatbot/pkg/speech"
	"github.com/abdullahkazmii/financial-chatbot/pkg/storage/memory"
	"github.com/abdullahkazmii/financial-chatbot/pkg/tools"
)

var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		port        = flag.Int("port", 0, "override HTTP listen port")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("financial-chatbot", version)
		return
	}

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if portOverride != 0 {
		cfg.Server.Port = portOverride
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Info("starting financial chatbot", "version", version, "backend", cfg.Assistant.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mdProvider, err := marketdata.Providers.New(ctx, cfg.MarketData.Provider, map[string]string{
		"endpoint": cfg.MarketData.Endpoint,
	})
	if err != nil {
		return err
	}
	market := marketdata.NewService(mdProvider, cfg.MarketData.CacheTTL)

	registry := tools.NewRegistry()
	tools.RegisterFinanceTools(registry, market)

	var client api.AssistantClient
	switch cfg.Assistant.Backend {
	case "chat":
		client = api.NewChatEmulator(api.NewOpenAIChatClient(cfg.Assistant.Endpoint, cfg.Assistant.APIKey))
	default:
		client = api.NewOpenAIAssistantsClient(cfg.Assistant.Endpoint, cfg.Assistant.APIKey)
	}

	adv := advisor.New(client, registry, cfg.Assistant, logger)
	if err := adv.EnsureAssistant(ctx); err != nil {
		return err
	}

	speechSvc := speech.NewService(
		speech.NewOpenAIClient(cfg.Assistant.Endpoint, cfg.Assistant.APIKey),
		cfg.Speech.Model,
		cfg.Speech.Voice,
	)

	handler := httpAdapter.NewHandler(adv, memory.New(), market, speechSvc, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
