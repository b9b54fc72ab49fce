package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	ExportTargetLocal = "local"
	ExportTargetS3    = "s3"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Query         QueryConfig
	AI            AIConfig
	Context       ContextConfig
	History       HistoryConfig
	Export        ExportConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Path     string
	ReadOnly bool
	Timeout  time.Duration
}

type QueryConfig struct {
	MaxRows int
	Timeout time.Duration
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type ContextConfig struct {
	File     string
	MaxChars int
}

type HistoryConfig struct {
	Enabled bool
	DSN     string
}

type ExportConfig struct {
	Target string
	Dir    string
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

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
	LogFile  string
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

// LoadFromEnv reads an optional .env file from the working directory before
// resolving the process environment. Variables already set win over the file.
func LoadFromEnv(serviceName string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
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

	// Unprefixed keys are accepted for compatibility; prefixed keys are
	// applied afterwards and take precedence.
	if err := applyString(lookup, "DB_PATH", &cfg.Database.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "LLM_CONTEXT_FILE", &cfg.Context.File); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "LLM_CONTEXT_MAX_CHARS", &cfg.Context.MaxChars); err != nil {
		return Config{}, err
	}

	steps := []func() error{
		func() error { return applyString(lookup, "DUCKASK_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "DUCKASK_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "DUCKASK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "DUCKASK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "DUCKASK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "DUCKASK_DB_PATH", &cfg.Database.Path) },
		func() error { return applyBool(lookup, "DUCKASK_DB_READ_ONLY", &cfg.Database.ReadOnly) },
		func() error { return applyDuration(lookup, "DUCKASK_DB_TIMEOUT", &cfg.Database.Timeout) },
		func() error { return applyInt(lookup, "DUCKASK_MAX_ROWS", &cfg.Query.MaxRows) },
		func() error { return applyDuration(lookup, "DUCKASK_QUERY_TIMEOUT", &cfg.Query.Timeout) },
		func() error { return applyString(lookup, "DUCKASK_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "DUCKASK_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "DUCKASK_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyInt(lookup, "DUCKASK_AI_MAX_TOKENS", &cfg.AI.MaxTokens) },
		func() error { return applyFloat(lookup, "DUCKASK_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "DUCKASK_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyString(lookup, "DUCKASK_CONTEXT_FILE", &cfg.Context.File) },
		func() error { return applyInt(lookup, "DUCKASK_CONTEXT_MAX_CHARS", &cfg.Context.MaxChars) },
		func() error { return applyBool(lookup, "DUCKASK_HISTORY_ENABLED", &cfg.History.Enabled) },
		func() error { return applyString(lookup, "DUCKASK_HISTORY_DSN", &cfg.History.DSN) },
		func() error { return applyString(lookup, "DUCKASK_EXPORT_TARGET", &cfg.Export.Target) },
		func() error { return applyString(lookup, "DUCKASK_EXPORT_DIR", &cfg.Export.Dir) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey) },
		func() error { return applyBool(lookup, "DUCKASK_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "DUCKASK_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "DUCKASK_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyBool(lookup, "DUCKASK_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "DUCKASK_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyString(lookup, "DUCKASK_LOG_FILE", &cfg.Observability.LogFile) },
		func() error { return applyBool(lookup, "DUCKASK_AUTH_REQUIRED", &cfg.Auth.Required) },
		func() error { return applyString(lookup, "DUCKASK_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return Config{}, err
		}
	}

	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if err := resolveAPIKey(lookup, &cfg.AI); err != nil {
		return Config{}, err
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultBaseURL(cfg.AI.Provider)
	}
	cfg.Export.Target = strings.ToLower(cfg.Export.Target)

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.Database.Path == "" {
		return Config{}, fmt.Errorf("database path is required")
	}
	if cfg.Query.MaxRows <= 0 {
		return Config{}, fmt.Errorf("max rows must be positive, got %d", cfg.Query.MaxRows)
	}
	if cfg.AI.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("max tokens must be positive, got %d", cfg.AI.MaxTokens)
	}
	if cfg.Context.MaxChars < 0 {
		return Config{}, fmt.Errorf("context max chars must not be negative, got %d", cfg.Context.MaxChars)
	}
	switch cfg.AI.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return Config{}, fmt.Errorf("invalid DUCKASK_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	switch cfg.Export.Target {
	case ExportTargetLocal, ExportTargetS3:
	default:
		return Config{}, fmt.Errorf("invalid DUCKASK_EXPORT_TARGET: %q", cfg.Export.Target)
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	return cfg, nil
}

// RequireAPIKey is checked only by commands that talk to a model.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.AI.APIKey) == "" {
		return fmt.Errorf("DUCKASK_AI_API_KEY must be set for provider %q", c.AI.Provider)
	}
	return nil
}

func resolveAPIKey(lookup LookupFunc, ai *AIConfig) error {
	fallback := "OPENAI_API_KEY"
	if ai.Provider == ProviderAnthropic {
		fallback = "ANTHROPIC_API_KEY"
	}
	if err := applyString(lookup, fallback, &ai.APIKey); err != nil {
		return err
	}
	return applyString(lookup, "DUCKASK_AI_API_KEY", &ai.APIKey)
}

func defaultBaseURL(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "https://api.anthropic.com/v1"
	default:
		return "https://api.openai.com"
	}
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "duckask"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Path:     "learnium.duckdb",
			ReadOnly: true,
			Timeout:  30 * time.Second,
		},
		Query: QueryConfig{
			MaxRows: 100,
			Timeout: 10 * time.Second,
		},
		AI: AIConfig{
			Provider:  ProviderOpenAI,
			Model:     "gpt-4-turbo",
			MaxTokens: 1024,
			Timeout:   60 * time.Second,
		},
		Context: ContextConfig{
			File:     "context.txt",
			MaxChars: 2000,
		},
		History: HistoryConfig{
			Enabled: true,
			DSN:     "duckask_history.db",
		},
		Export: ExportConfig{
			Target: ExportTargetLocal,
			Dir:    "exports",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "duckask-exports",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelInfo,
			LogJSON:  false,
			LogFile:  "duckask.log",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Observability.LogFile = ""
		cfg.History.Enabled = false
	case ProfileProd:
		cfg.Observability.LogJSON = true
		cfg.Auth.Required = true
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
