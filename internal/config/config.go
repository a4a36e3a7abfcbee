package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string
	Host        string
	Port        int
	// sentry
	SentryEnabled bool `toml:"sentry_enabled"`
	// logging
	LogLevel    string `toml:"log_level"`
	LogsPath    string `toml:"logs_path"`
	LogToStdout bool   `toml:"log_to_stdout"`
	// postgres
	DBHost string `toml:"db_host"`
	DBPort string `toml:"db_port"`
	DBName string `toml:"db_name"`
	// redis
	RedisHost     string `toml:"redis_host"`
	RedisPort     string `toml:"redis_port"`
	RedisPassword string `toml:"redis_password"`
	// prometheus metrics server
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`
	// login
	LoginRateLimitAllowedPerMin int `toml:"login_rate_limit_allowed_per_min"`
	// daily job
	JobHourUTC          int `toml:"job_hour_utc"`
	JobWorkers          int `toml:"job_workers"`
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds"`
	// environment / location
	ForecastApiURL   string  `toml:"forecast_api_url"`
	AirQualityApiURL string  `toml:"air_quality_api_url"`
	IpInfoAPIKey     string  `toml:"ipinfo_api_key"`
	DefaultLatitude  float64 `toml:"default_latitude"`
	DefaultLongitude float64 `toml:"default_longitude"`
	// wearable provider base urls, empty for production defaults
	FitbitApiURL string `toml:"fitbit_api_url"`
	OuraApiURL   string `toml:"oura_api_url"`
	WhoopApiURL  string `toml:"whoop_api_url"`
	GarminApiURL string `toml:"garmin_api_url"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads the TOML config file and returns the section for env.
func Load(path, env string) (*Config, error) {
	var configToml Toml
	if _, err := toml.DecodeFile(path, &configToml); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := configToml.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("config for env %s is empty", env)
	}
	return cfg, nil
}
