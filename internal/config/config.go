package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigPath returns the default config file location, honoring the
// NEWSHOUND_CONFIG override.
func ConfigPath() string {
	if p := os.Getenv("NEWSHOUND_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".newshound", "config.json")
}

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	LLM      struct {
		Provider    string  `json:"provider"`
		BaseURL     string  `json:"base_url"`
		APIKey      string  `json:"api_key"`
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
	} `json:"llm"`
	Search struct {
		APIKey string `json:"api_key"`
	} `json:"search"`
	Telegram struct {
		Token string `json:"token"`
		// ChatID is the operator conversation that receives digests and
		// run failure notices.
		ChatID       int64 `json:"chat_id"`
		MessageLimit int   `json:"message_limit"`
		RateLimitSec int   `json:"rate_limit_sec"`
	} `json:"telegram"`
	HTTP struct {
		Addr      string `json:"addr"`
		AuthToken string `json:"auth_token"`
	} `json:"http"`
	Store struct {
		Path          string `json:"path"`
		RetentionDays int    `json:"retention_days"`
	} `json:"store"`
	Index struct {
		Path string `json:"path"`
	} `json:"index"`
	Sources struct {
		Path string `json:"path"`
	} `json:"sources"`
	Pipeline struct {
		MaxDigestItems       int `json:"max_digest_items"`
		DedupWindowDays      int `json:"dedup_window_days"`
		ValidatorConcurrency int `json:"validator_concurrency"`
		MaxArticlesPerRun    int `json:"max_articles_per_run"`
		// CategoryBoost is added to the rank score of UPI/credit-card
		// relevant finance articles. Keep it larger than the credibility
		// spread between surfaced items (>= 30) so boosted articles
		// reliably outrank unboosted ones.
		CategoryBoost       int `json:"category_boost"`
		FetchTimeoutSec     int `json:"fetch_timeout_sec"`
		ClassifyTimeoutSec  int `json:"classify_timeout_sec"`
		TranslateTimeoutSec int `json:"translate_timeout_sec"`
		CrossRefTimeoutSec  int `json:"crossref_timeout_sec"`
	} `json:"pipeline"`
	Chat struct {
		HistoryWindow    int `json:"history_window"`
		HistoryMax       int `json:"history_max"`
		MaxContextTokens int `json:"max_context_tokens"`
	} `json:"chat"`
	Schedule struct {
		Specs       []string `json:"specs"`
		Timezone    string   `json:"timezone"`
		CleanupSpec string   `json:"cleanup_spec"`
	} `json:"schedule"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".newshound"),
		LogLevel: "info",
	}
	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 2000
	cfg.LLM.Temperature = 0.3
	cfg.Telegram.MessageLimit = 3800
	cfg.Telegram.RateLimitSec = 3
	cfg.HTTP.Addr = ":8090"
	cfg.Store.RetentionDays = 30
	cfg.Pipeline.MaxDigestItems = 15
	cfg.Pipeline.DedupWindowDays = 7
	cfg.Pipeline.ValidatorConcurrency = 5
	cfg.Pipeline.MaxArticlesPerRun = 50
	cfg.Pipeline.CategoryBoost = 40
	cfg.Pipeline.FetchTimeoutSec = 20
	cfg.Pipeline.ClassifyTimeoutSec = 40
	cfg.Pipeline.TranslateTimeoutSec = 25
	cfg.Pipeline.CrossRefTimeoutSec = 15
	cfg.Chat.HistoryWindow = 8
	cfg.Chat.HistoryMax = 60
	cfg.Chat.MaxContextTokens = 8000
	cfg.Schedule.Specs = []string{"0 9 * * *", "0 18 * * *"}
	cfg.Schedule.Timezone = "Asia/Kolkata"
	cfg.Schedule.CleanupSpec = "0 3 * * *"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Empty paths derive from data_dir after any file override.
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.DataDir, "newshound.db")
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = filepath.Join(cfg.DataDir, "index.bleve")
	}
	if cfg.Sources.Path == "" {
		cfg.Sources.Path = filepath.Join(cfg.DataDir, "sources.yaml")
	}

	// Override from env (highest precedence)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if searchKey := os.Getenv("BRAVE_API_KEY"); searchKey != "" {
		cfg.Search.APIKey = searchKey
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if apiToken := os.Getenv("NEWSHOUND_API_TOKEN"); apiToken != "" {
		cfg.HTTP.AuthToken = apiToken
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := Save(path, cfg); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
