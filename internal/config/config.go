package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	StoreDriverDuckDB   = "duckdb"
	StoreDriverPostgres = "postgres"

	AIProviderOpenAI = "openai"
	AIProviderGemini = "gemini"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Session       SessionConfig
	Store         StoreConfig
	Datasets      DatasetsConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type SessionConfig struct {
	MemoryLimit int
	TableSuffix string
}

type StoreConfig struct {
	Driver          string
	DSN             string
	ConnMaxLifetime time.Duration
}

type DatasetsConfig struct {
	Enabled bool
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type ObservabilityConfig struct {
	LogLevel    slog.Level
	LogJSON     bool
	MetricsAddr string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DUCKASK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DUCKASK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "DUCKASK_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyInt(lookup, "DUCKASK_MEMORY_LIMIT", &cfg.Session.MemoryLimit) },
		func() error { return applyString(lookup, "DUCKASK_TABLE_SUFFIX", &cfg.Session.TableSuffix) },
		func() error { return applyString(lookup, "DUCKASK_STORE_DRIVER", &cfg.Store.Driver) },
		func() error { return applyString(lookup, "DUCKASK_STORE_DSN", &cfg.Store.DSN) },
		func() error {
			return applyDuration(lookup, "DUCKASK_STORE_CONN_MAX_LIFETIME", &cfg.Store.ConnMaxLifetime)
		},
		func() error { return applyBool(lookup, "DUCKASK_DATASETS_ENABLED", &cfg.Datasets.Enabled) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error {
			return applyString(lookup, "DUCKASK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID)
		},
		func() error {
			return applyString(lookup, "DUCKASK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "DUCKASK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "DUCKASK_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyString(lookup, "DUCKASK_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "DUCKASK_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "DUCKASK_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "DUCKASK_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "DUCKASK_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "DUCKASK_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyBool(lookup, "DUCKASK_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "DUCKASK_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyString(lookup, "DUCKASK_METRICS_ADDR", &cfg.Observability.MetricsAddr) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints that individual appliers cannot.
func (c Config) Validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.Session.MemoryLimit < 1 {
		return fmt.Errorf("invalid DUCKASK_MEMORY_LIMIT: %d (must be >= 1)", c.Session.MemoryLimit)
	}
	switch c.Store.Driver {
	case StoreDriverDuckDB:
	case StoreDriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("DUCKASK_STORE_DSN is required for the postgres driver")
		}
		if c.Datasets.Enabled {
			return fmt.Errorf("DUCKASK_DATASETS_ENABLED is only supported with the duckdb driver")
		}
	default:
		return fmt.Errorf("invalid DUCKASK_STORE_DRIVER: %q", c.Store.Driver)
	}
	switch c.AI.Provider {
	case AIProviderOpenAI, AIProviderGemini:
	default:
		return fmt.Errorf("invalid DUCKASK_AI_PROVIDER: %q", c.AI.Provider)
	}
	if c.AI.Temperature < 0 {
		return fmt.Errorf("invalid DUCKASK_AI_TEMPERATURE: %v", c.AI.Temperature)
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "duckask"},
		Session: SessionConfig{
			MemoryLimit: 3,
			TableSuffix: "_DATA",
		},
		Store: StoreConfig{
			Driver:          StoreDriverDuckDB,
			DSN:             "",
			ConnMaxLifetime: 0,
		},
		Datasets: DatasetsConfig{
			Enabled: false,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "duckask-datasets",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		AI: AIConfig{
			Provider:    AIProviderOpenAI,
			BaseURL:     "https://api.openai.com",
			Model:       "",
			Temperature: 0,
			Timeout:     30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
