package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvAPIKey overrides the provider api key from the environment.
const EnvAPIKey = "PDFQA_PROVIDER_API_KEY"

// ErrMissingCredential is returned when no provider api key is configured.
// It is the only startup error callers must treat as fatal.
var ErrMissingCredential = errors.New("provider api key missing: set " + EnvAPIKey + " or provider.api_key")

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Provider    ProviderConfig            `json:"provider"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
}

// ProviderConfig describes the hosted file-search provider endpoint.
type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`

	// Ingestion polling bounds, in seconds.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	PollMaxWaitSeconds  int `json:"poll_max_wait_seconds"`
	RequestTimeout      int `json:"request_timeout_seconds"`
}

type BasicConfig struct {
	ServerAddress        string `json:"server_address"`
	MaxUploadMB          int64  `json:"max_upload_mb"`
	SessionTTLMinutes    int    `json:"session_ttl_minutes"`
	CleanIntervalMinutes int    `json:"clean_interval_minutes"`
	AnswerCacheMinutes   int    `json:"answer_cache_minutes"`
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
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Enabled  bool   `json:"enabled"`
}

// Load reads configuration from the provided path (defaults to config.json).
// The provider api key may come from the environment instead of the file;
// a missing key fails here, before any route is registered.
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

	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.Provider.APIKey = key
	}
	if cfg.Provider.APIKey == "" {
		return nil, ErrMissingCredential
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "gpt-4o-mini"
	}

	for name, db := range cfg.Databases {
		if name == "mysql" || db.DSN == "" {
			continue
		}
		// Leave :memory: and file: URIs alone, anchor plain relative paths
		// next to the config file.
		if !filepath.IsAbs(db.DSN) && !strings.HasPrefix(db.DSN, ":") && !strings.HasPrefix(db.DSN, "file:") {
			db.DSN = filepath.Join(filepath.Dir(absPath), db.DSN)
			cfg.Databases[name] = db
		}
	}

	return &cfg, nil
}
