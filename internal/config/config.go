package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server Server `yaml:"server"`
	Log    Log    `yaml:"log"`
	Store  Store  `yaml:"store"`
	Quotes Quotes `yaml:"quotes"`
	Export Export `yaml:"export"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Store struct {
	Sqlite Sqlite `yaml:"sqlite"`
}

type Sqlite struct {
	Path string `yaml:"path"`
}

type Quotes struct {
	BaseURL              string `yaml:"base_url"`
	APIKey               string `yaml:"api_key"`
	Currency             string `yaml:"currency"`
	TimeoutMs            int    `yaml:"timeout_ms"`
	MinRequestIntervalMs int    `yaml:"min_request_interval_ms"`
}

type Export struct {
	// Secret is the distinguished value that expands DefaultTokens.
	Secret string `yaml:"secret"`
	// DefaultTokens are display strings of the form "Bitcoin (BTC)";
	// only the parenthesized symbol is ever sent upstream.
	DefaultTokens []string `yaml:"default_tokens"`
}

// Load reads path and overlays it onto the built-in defaults. A missing file
// is not an error so the binary can run from env vars alone.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Server: Server{Port: 8000},
		Log:    Log{Level: "info"},
		Store: Store{
			Sqlite: Sqlite{Path: "data/tickers.db"},
		},
		Quotes: Quotes{
			BaseURL:   "https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest",
			Currency:  "USD",
			TimeoutMs: 10000,
		},
		Export: Export{
			DefaultTokens: []string{
				"Bitcoin (BTC)",
				"Ethereum (ETH)",
				"Solana (SOL)",
				"Ripple (XRP)",
				"Pi Network (PI)",
			},
		},
	}
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("CMC_API_KEY"); v != "" {
		cfg.Quotes.APIKey = v
	}
	if v := os.Getenv("CP_SECRET"); v != "" {
		cfg.Export.Secret = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Store.Sqlite.Path = v
	}
	return nil
}
