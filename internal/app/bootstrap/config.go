package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string
	HTTPPort  int

	DatabaseURL   string
	RedisURL      string
	RedisPoolSize int

	TokenSecret         string
	AllowEphemeralToken bool
	TokenTTL            time.Duration

	SeedSealKey string

	ConfigDefaultKey   string
	ConfigKeyPrefix    string
	FallbackConfigPath string

	MaxDBConns       int32
	StorageOpTimeout time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Configuration struct {
		DefaultKey   string `yaml:"default_key"`
		KeyPrefix    string `yaml:"key_prefix"`
		FallbackPath string `yaml:"fallback_path"`
	} `yaml:"configuration"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "device-provisioning-service",
		HTTPPort:            8080,
		AllowEphemeralToken: true,
		TokenTTL:            365 * 24 * time.Hour,
		ConfigDefaultKey:    "default_config",
		FallbackConfigPath:  "default_config.json",
		MaxDBConns:          10,
		RedisPoolSize:       10,
		StorageOpTimeout:    3 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Configuration.DefaultKey != "" {
			cfg.ConfigDefaultKey = f.Configuration.DefaultKey
		}
		if f.Configuration.KeyPrefix != "" {
			cfg.ConfigKeyPrefix = f.Configuration.KeyPrefix
		}
		if f.Configuration.FallbackPath != "" {
			cfg.FallbackConfigPath = f.Configuration.FallbackPath
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("DATABASE_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.TokenSecret = envOrDefault("SECRET_KEY", cfg.TokenSecret)
	cfg.AllowEphemeralToken = envBool("TOKEN_ALLOW_EPHEMERAL", cfg.AllowEphemeralToken)
	cfg.SeedSealKey = envOrDefault("SEED_SEAL_KEY", cfg.SeedSealKey)
	cfg.ConfigDefaultKey = envOrDefault("CONFIG_DEFAULT_KEY", cfg.ConfigDefaultKey)
	cfg.ConfigKeyPrefix = envOrDefault("CONFIG_KEY_PREFIX", cfg.ConfigKeyPrefix)
	cfg.FallbackConfigPath = envOrDefault("CONFIG_FALLBACK_PATH", cfg.FallbackConfigPath)

	cfg.HTTPPort = envInt("PORT", envInt("HTTP_PORT", cfg.HTTPPort))
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.RedisPoolSize = envInt("REDIS_POOL_SIZE", cfg.RedisPoolSize)
	cfg.TokenTTL = time.Duration(envInt("TOKEN_TTL_DAYS", int(cfg.TokenTTL.Hours()/24))) * 24 * time.Hour
	cfg.StorageOpTimeout = time.Duration(envInt("STORAGE_OP_TIMEOUT_MS", int(cfg.StorageOpTimeout.Milliseconds()))) * time.Millisecond

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/DATABASE_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.TokenSecret == "" && !cfg.AllowEphemeralToken {
		return Config{}, fmt.Errorf("missing SECRET_KEY")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
