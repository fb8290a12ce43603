package config

import (
	"fmt"
	"os"
	"time"

	"github.com/gookit/validate"
	"go.yaml.in/yaml/v4"
)

type Upstream struct {
	BaseURL         string `yaml:"base_url" validate:"required"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" validate:"min:1"`
	Retries         int    `yaml:"retries" validate:"min:1"`
	CacheSizeMB     int    `yaml:"cache_size_mb" validate:"min:0"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds" validate:"min:0"`
}

type Refresh struct {
	Concurrency int    `yaml:"concurrency" validate:"min:1"`
	DailyAt     string `yaml:"daily_at"`
}

type Notify struct {
	From         string `yaml:"from"`
	ResendAPIKey string `yaml:"-"`
}

type Config struct {
	ListenAddr string   `yaml:"listen_addr" validate:"required"`
	DBPath     string   `yaml:"db_path" validate:"required"`
	LogJSON    bool     `yaml:"log_json"`
	Upstream   Upstream `yaml:"upstream"`
	Refresh    Refresh  `yaml:"refresh"`
	Notify     Notify   `yaml:"notify"`
}

func (u Upstream) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

func (u Upstream) CacheTTL() time.Duration {
	return time.Duration(u.CacheTTLSeconds) * time.Second
}

func defaults() Config {
	return Config{
		ListenAddr: ":8080",
		DBPath:     "leetrack.db",
		Upstream: Upstream{
			BaseURL:         "https://leetcode.com",
			TimeoutSeconds:  10,
			Retries:         3,
			CacheSizeMB:     8,
			CacheTTLSeconds: 300,
		},
		Refresh: Refresh{
			Concurrency: 4,
			DailyAt:     "00:00",
		},
		Notify: Notify{
			From: "Leetrack <alerts@leetrack.dev>",
		},
	}
}

// Load reads the yaml config at path (LEETRACK_CONFIG overrides the path),
// applies environment overrides and validates the result. The resend API key
// is a secret and only ever comes from the environment.
func Load(path string) (*Config, error) {
	if env := os.Getenv("LEETRACK_CONFIG"); env != "" {
		path = env
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if v := os.Getenv("LEETRACK_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LEETRACK_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.Notify.ResendAPIKey = os.Getenv("LEETRACK_RESEND_API_KEY")

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	v := validate.Struct(cfg)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}
	return nil
}
