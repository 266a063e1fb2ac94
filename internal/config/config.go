package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	DataDir       string   `json:"data_dir"`
	LogLevel      string   `json:"log_level"`
	MaxConcurrent int      `json:"max_concurrent"`
	MaxSteps      int      `json:"max_steps"`
	DedupeWindow  Duration `json:"dedupe_window"`
	ToolTimeout   Duration `json:"tool_timeout"`
	IdleTTL       Duration `json:"idle_ttl"`
	LLM           struct {
		Provider      string   `json:"provider"`
		BaseURL       string   `json:"base_url"`
		APIKey        string   `json:"api_key"`
		Model         string   `json:"model"`
		MaxTokens     int      `json:"max_tokens"`
		Temperature   float32  `json:"temperature"`
		MaxAttempts   int      `json:"max_attempts"`
		RetryDelay    Duration `json:"retry_delay"`
		HistoryBudget int      `json:"history_budget"`
	} `json:"llm"`
	GitHub struct {
		Token string `json:"token"`
	} `json:"github"`
	Server struct {
		Addr string `json:"addr"`
	} `json:"server"`
}

// Duration marshals as a Go duration string ("30s", "1h") so the config file
// stays human-editable.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".gitscout"),
		MaxConcurrent: 8,
	}
	cfg.LogLevel = "info"
	cfg.MaxSteps = 30
	cfg.DedupeWindow = Duration(30 * time.Second)
	cfg.ToolTimeout = Duration(30 * time.Second)
	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 2000
	cfg.LLM.Temperature = 0.7
	cfg.LLM.MaxAttempts = 3
	cfg.LLM.RetryDelay = Duration(time.Second)
	cfg.LLM.HistoryBudget = 24000
	cfg.Server.Addr = ":8000"

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

	// Override from env (highest precedence)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
