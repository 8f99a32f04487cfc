package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Analysis    AnalysisConfig            `json:"analysis"`
	Retention   RetentionConfig           `json:"retention"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
	Database      string `json:"database"`
	UploadDir     string `json:"upload_dir"`
	// Worker pool sizing; zero values fall back to the defaults in main.
	MinWorkers        int `json:"min_workers"`
	MaxWorkers        int `json:"max_workers"`
	QueueSize         int `json:"queue_size"`
	WorkerIdleTimeout int `json:"worker_idle_timeout"` // minutes
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// AnalysisConfig tunes the document analysis calls. Zero values fall
// back to the defaults below.
type AnalysisConfig struct {
	Provider          string  `json:"provider"`
	Temperature       float32 `json:"temperature"`
	MaxTokens         int     `json:"max_tokens"`
	FollowupMaxTokens int     `json:"followup_max_tokens"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
}

// RetentionConfig controls the optional stored-document sweeper.
type RetentionConfig struct {
	Enabled       bool `json:"enabled"`
	MaxAgeHours   int  `json:"max_age_hours"`
	IntervalHours int  `json:"interval_hours"`
}

const (
	defaultTemperature       = 0.3
	defaultMaxTokens         = 1000
	defaultFollowupMaxTokens = 800
	defaultTimeoutSeconds    = 60
)

// Load reads configuration from the provided path (defaults to config.json).
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.BasicConfig.Database == "" {
		cfg.BasicConfig.Database = "sqlite"
	}
	if cfg.BasicConfig.UploadDir == "" {
		cfg.BasicConfig.UploadDir = "uploads"
	}
	if !filepath.IsAbs(cfg.BasicConfig.UploadDir) {
		cfg.BasicConfig.UploadDir = filepath.Join(filepath.Dir(absPath), cfg.BasicConfig.UploadDir)
	}

	cfg.Analysis.Normalize()
	cfg.Retention.Normalize()

	return &cfg, nil
}

// Normalize fills unset tuning fields with the service defaults.
func (a *AnalysisConfig) Normalize() {
	if a.Temperature == 0 {
		a.Temperature = defaultTemperature
	}
	if a.MaxTokens == 0 {
		a.MaxTokens = defaultMaxTokens
	}
	if a.FollowupMaxTokens == 0 {
		a.FollowupMaxTokens = defaultFollowupMaxTokens
	}
	if a.TimeoutSeconds == 0 {
		a.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (r *RetentionConfig) Normalize() {
	if r.MaxAgeHours == 0 {
		r.MaxAgeHours = 24 * 30
	}
	if r.IntervalHours == 0 {
		r.IntervalHours = 6
	}
}
