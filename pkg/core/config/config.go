// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultInstructions is the system prompt given to the remote assistant
// when it is provisioned.
const DefaultInstructions = `You are a knowledgeable financial advisor chatbot. You can help users with:
- Stock analysis and recommendations
- Market trends and insights
- Investment strategies
- Financial planning advice
- Real-time market data interpretation

Always provide accurate, helpful financial information while reminding users that this is not personalized financial advice and they should consult with a licensed financial advisor for investment decisions.

When users ask about specific stocks or market data, use the provided tools to give current information.`

// Config represents the main configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Speech     SpeechConfig     `yaml:"speech"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// AssistantConfig contains remote assistant service configuration.
//
// Backend selects how the remote service is reached: "assistants" drives the
// OpenAI Assistants API (threads and runs), "chat" emulates the same protocol
// over plain chat completions for OpenAI-compatible backends that lack the
// Assistants API (Ollama, vLLM).
type AssistantConfig struct {
	Backend      string        `yaml:"backend"`
	Endpoint     string        `yaml:"endpoint"` // e.g. "https://api.openai.com/v1"
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"` // e.g. "gpt-4o"
	Name         string        `yaml:"name"`
	Instructions string        `yaml:"instructions"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// MarketDataConfig contains market data provider configuration
type MarketDataConfig struct {
	Provider string        `yaml:"provider"` // "yahoo" (default)
	Endpoint string        `yaml:"endpoint"` // override for tests/proxies
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// SpeechConfig contains speech synthesis configuration
type SpeechConfig struct {
	Model string `yaml:"model"` // e.g. "tts-1"
	Voice string `yaml:"voice"` // default voice when a request omits one
}

// LoggingConfig contains logger configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 60 * time.Second,
		},
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// Validate reports configuration errors that must abort startup.
func (c *Config) Validate() error {
	if c.Assistant.APIKey == "" {
		return fmt.Errorf("assistant api key is required (set OPENAI_API_KEY)")
	}
	switch c.Assistant.Backend {
	case "assistants", "chat":
	default:
		return fmt.Errorf("unknown assistant backend %q (want \"assistants\" or \"chat\")", c.Assistant.Backend)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Assistant.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_ENDPOINT"); v != "" {
		cfg.Assistant.Endpoint = v
	}
	if v := os.Getenv("MARKET_DATA_ENDPOINT"); v != "" {
		cfg.MarketData.Endpoint = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 60 * time.Second
	}
	if cfg.Assistant.Backend == "" {
		cfg.Assistant.Backend = "assistants"
	}
	if cfg.Assistant.Model == "" {
		cfg.Assistant.Model = "gpt-4o"
	}
	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = "Financial Advisor Bot"
	}
	if cfg.Assistant.Instructions == "" {
		cfg.Assistant.Instructions = DefaultInstructions
	}
	if cfg.Assistant.PollInterval == 0 {
		cfg.Assistant.PollInterval = time.Second
	}
	if cfg.Assistant.MaxPolls == 0 {
		cfg.Assistant.MaxPolls = 120
	}
	if cfg.MarketData.Provider == "" {
		cfg.MarketData.Provider = "yahoo"
	}
	if cfg.MarketData.CacheTTL == 0 {
		cfg.MarketData.CacheTTL = 5 * time.Minute
	}
	if cfg.Speech.Model == "" {
		cfg.Speech.Model = "tts-1"
	}
	if cfg.Speech.Voice == "" {
		cfg.Speech.Voice = "alloy"
	}
}
