package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
)

type VeniceConfig struct {
	BaseURL        string  `json:"base_url"`
	Model          string  `json:"model"`
	APIKey         string  `json:"api_key"`
	Temperature    float64 `json:"temperature"`
	MaxTokens      int     `json:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

type CoachingConfig struct {
	AutonomyIntervalMinutes int `json:"autonomy_interval_minutes"`
	ProactiveAfterHours     int `json:"proactive_after_hours"`
	RecentContextLimit      int `json:"recent_context_limit"`
	AnalysisWindow          int `json:"analysis_window"`
}

type Config struct {
	Server struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Venice   VeniceConfig   `json:"venice"`
	Coaching CoachingConfig `json:"coaching"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton).
// A .env file, if present, supplies VENICE_AI_API_KEY; the env var always
// wins over the api_key field in the config file.
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		_ = godotenv.Load()

		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		applyDefaults(&c)
		// Minimal validation
		if c.Postgres.DSN == "" {
			cfgErr = errors.New("postgres dsn must be set in config")
			return
		}
		cfg = &c
	})
	return cfg, cfgErr
}

func applyDefaults(c *Config) {
	if key := os.Getenv("VENICE_AI_API_KEY"); key != "" {
		c.Venice.APIKey = key
	}
	if c.Venice.BaseURL == "" {
		c.Venice.BaseURL = "https://api.venice.ai/api/v1"
	}
	if c.Venice.Model == "" {
		c.Venice.Model = "llama-3.1-405b"
	}
	if c.Venice.Temperature == 0 {
		c.Venice.Temperature = 0.7
	}
	if c.Venice.MaxTokens == 0 {
		c.Venice.MaxTokens = 1000
	}
	if c.Venice.TimeoutSeconds == 0 {
		c.Venice.TimeoutSeconds = 30
	}
	if c.Coaching.AutonomyIntervalMinutes == 0 {
		c.Coaching.AutonomyIntervalMinutes = 60
	}
	if c.Coaching.ProactiveAfterHours == 0 {
		c.Coaching.ProactiveAfterHours = 24
	}
	if c.Coaching.RecentContextLimit == 0 {
		c.Coaching.RecentContextLimit = 3
	}
	if c.Coaching.AnalysisWindow == 0 {
		c.Coaching.AnalysisWindow = 50
	}
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
