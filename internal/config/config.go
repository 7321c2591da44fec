package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config holds all service configuration. It is built once at startup and
// handed to constructors; nothing reads it from package state.
type Config struct {
	Port string `yaml:"port"`

	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`

	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	HashConcurrency int           `yaml:"hash_concurrency"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	GitHubAPIURL   string        `yaml:"github_api_url"`
	GitHubToken    string        `yaml:"github_token"`
	GitHubCacheTTL time.Duration `yaml:"github_cache_ttl"`

	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`

	PostgresDSN string `yaml:"postgres_dsn"`

	CORSOrigins []string `yaml:"cors_origins"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`
}

// ConfigError reports a configuration problem that must stop the process.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Msg
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:            "5000",
		MongoDB:         "devconnector",
		TokenTTL:        100 * time.Hour,
		BcryptCost:      10,
		HashConcurrency: runtime.GOMAXPROCS(0),
		GitHubAPIURL:    "https://api.github.com",
		GitHubCacheTTL:  10 * time.Minute,
		MinioBucket:     "avatars",
		CORSOrigins:     []string{"http://localhost:3000"},
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file named by CONFIG_FILE and finally the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return &ConfigError{Field: "JWT_SECRET", Msg: "signing secret is required"}
	}
	if c.MongoURI == "" {
		return &ConfigError{Field: "MONGO_URI", Msg: "connection string is required"}
	}
	if c.TokenTTL <= 0 {
		return &ConfigError{Field: "TOKEN_TTL", Msg: "must be positive"}
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return &ConfigError{Field: "BCRYPT_COST", Msg: fmt.Sprintf("must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)}
	}
	if c.HashConcurrency < 1 {
		return &ConfigError{Field: "HASH_CONCURRENCY", Msg: "must be at least 1"}
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDB, "MONGO_DB")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.GitHubAPIURL, "GITHUB_API_URL")
	setString(&cfg.GitHubToken, "GITHUB_TOKEN")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	setString(&cfg.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if v := getenv("CORS_ORIGINS", ""); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return err
	}
	if cfg.GitHubCacheTTL, err = durationEnv("GITHUB_CACHE_TTL", cfg.GitHubCacheTTL); err != nil {
		return err
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", cfg.BcryptCost); err != nil {
		return err
	}
	if cfg.HashConcurrency, err = intEnv("HASH_CONCURRENCY", cfg.HashConcurrency); err != nil {
		return err
	}
	if cfg.MinioUseSSL, err = boolEnv("MINIO_USE_SSL", cfg.MinioUseSSL); err != nil {
		return err
	}
	if cfg.LogPretty, err = boolEnv("LOG_PRETTY", cfg.LogPretty); err != nil {
		return err
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setString(dst *string, key string) {
	*dst = getenv(key, *dst)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &ConfigError{Field: key, Msg: err.Error()}
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Field: key, Msg: err.Error()}
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigError{Field: key, Msg: err.Error()}
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
