package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("duckask", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.Database.Path != "learnium.duckdb" {
		t.Fatalf("Database.Path = %q", cfg.Database.Path)
	}
	if !cfg.Database.ReadOnly {
		t.Fatal("Database.ReadOnly should default to true")
	}
	if cfg.Database.Timeout != 30*time.Second {
		t.Fatalf("Database.Timeout = %s", cfg.Database.Timeout)
	}
	if cfg.Query.MaxRows != 100 {
		t.Fatalf("Query.MaxRows = %d", cfg.Query.MaxRows)
	}
	if cfg.Query.Timeout != 10*time.Second {
		t.Fatalf("Query.Timeout = %s", cfg.Query.Timeout)
	}
	if cfg.AI.Provider != ProviderOpenAI {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gpt-4-turbo" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.MaxTokens != 1024 {
		t.Fatalf("AI.MaxTokens = %d", cfg.AI.MaxTokens)
	}
	if cfg.AI.BaseURL != "https://api.openai.com" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.Context.File != "context.txt" {
		t.Fatalf("Context.File = %q", cfg.Context.File)
	}
	if cfg.Context.MaxChars != 2000 {
		t.Fatalf("Context.MaxChars = %d", cfg.Context.MaxChars)
	}
	if !cfg.History.Enabled {
		t.Fatal("History.Enabled should default to true in dev")
	}
	if cfg.Export.Target != ExportTargetLocal {
		t.Fatalf("Export.Target = %q", cfg.Export.Target)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogFile != "duckask.log" {
		t.Fatalf("LogFile = %q", cfg.Observability.LogFile)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("duckask", mapLookup(map[string]string{"DUCKASK_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if !cfg.Observability.LogJSON {
		t.Fatal("LogJSON should default to true in prod")
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
}

func TestLoadTestProfileDisablesSideFiles(t *testing.T) {
	cfg, err := Load("duckask", mapLookup(map[string]string{"DUCKASK_PROFILE": "test"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogFile != "" {
		t.Fatalf("LogFile = %q, want empty", cfg.Observability.LogFile)
	}
	if cfg.History.Enabled {
		t.Fatal("History.Enabled should default to false in test")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"DUCKASK_PROFILE":            "test",
		"DUCKASK_SERVICE_NAME":       "duckask-custom",
		"DUCKASK_HTTP_ADDR":          ":9999",
		"DUCKASK_HTTP_READ_TIMEOUT":  "2s",
		"DUCKASK_DB_PATH":            "/data/shop.duckdb",
		"DUCKASK_DB_READ_ONLY":       "false",
		"DUCKASK_DB_TIMEOUT":         "3s",
		"DUCKASK_MAX_ROWS":           "25",
		"DUCKASK_QUERY_TIMEOUT":      "4s",
		"DUCKASK_AI_PROVIDER":        "Anthropic",
		"DUCKASK_AI_API_KEY":         "secret-key",
		"DUCKASK_AI_MODEL":           "claude-sonnet-4-5",
		"DUCKASK_AI_MAX_TOKENS":      "512",
		"DUCKASK_AI_TEMPERATURE":     "0.2",
		"DUCKASK_AI_TIMEOUT":         "21s",
		"DUCKASK_CONTEXT_FILE":       "/etc/duckask/context.txt",
		"DUCKASK_CONTEXT_MAX_CHARS":  "500",
		"DUCKASK_HISTORY_ENABLED":    "true",
		"DUCKASK_HISTORY_DSN":        "postgres://history",
		"DUCKASK_EXPORT_TARGET":      "S3",
		"DUCKASK_OBJECTSTORE_BUCKET": "exports",
		"DUCKASK_LOG_LEVEL":          "error",
		"DUCKASK_LOG_FILE":           "/var/log/duckask.log",
		"DUCKASK_AUTH_REQUIRED":      "true",
		"DUCKASK_AUTH_STATIC_KEYS":   "k1:ops:query_reader",
	})
	cfg, err := Load("duckask", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "duckask-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Database.Path != "/data/shop.duckdb" {
		t.Fatalf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Database.ReadOnly {
		t.Fatal("Database.ReadOnly = true, want false")
	}
	if cfg.Database.Timeout != 3*time.Second {
		t.Fatalf("Database.Timeout = %s", cfg.Database.Timeout)
	}
	if cfg.Query.MaxRows != 25 {
		t.Fatalf("Query.MaxRows = %d", cfg.Query.MaxRows)
	}
	if cfg.Query.Timeout != 4*time.Second {
		t.Fatalf("Query.Timeout = %s", cfg.Query.Timeout)
	}
	if cfg.AI.Provider != ProviderAnthropic {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.AI.BaseURL != "https://api.anthropic.com/v1" {
		t.Fatalf("AI.BaseURL = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.Model != "claude-sonnet-4-5" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.MaxTokens != 512 {
		t.Fatalf("AI.MaxTokens = %d", cfg.AI.MaxTokens)
	}
	if cfg.AI.Temperature != 0.2 {
		t.Fatalf("AI.Temperature = %f", cfg.AI.Temperature)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.Context.File != "/etc/duckask/context.txt" {
		t.Fatalf("Context.File = %q", cfg.Context.File)
	}
	if cfg.Context.MaxChars != 500 {
		t.Fatalf("Context.MaxChars = %d", cfg.Context.MaxChars)
	}
	if !cfg.History.Enabled || cfg.History.DSN != "postgres://history" {
		t.Fatalf("History = %+v", cfg.History)
	}
	if cfg.Export.Target != ExportTargetS3 {
		t.Fatalf("Export.Target = %q", cfg.Export.Target)
	}
	if cfg.ObjectStore.Bucket != "exports" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Observability.LogFile != "/var/log/duckask.log" {
		t.Fatalf("LogFile = %q", cfg.Observability.LogFile)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required = false, want true")
	}
	if cfg.Auth.StaticKeys != "k1:ops:query_reader" {
		t.Fatalf("StaticKeys = %q", cfg.Auth.StaticKeys)
	}
}

func TestLoadHonorsLegacyKeys(t *testing.T) {
	cfg, err := Load("duckask", mapLookup(map[string]string{
		"DB_PATH":               "legacy.duckdb",
		"OPENAI_API_KEY":        "sk-legacy",
		"LLM_CONTEXT_FILE":      "/tmp/ctx.txt",
		"LLM_CONTEXT_MAX_CHARS": "42",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "legacy.duckdb" {
		t.Fatalf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.AI.APIKey != "sk-legacy" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.Context.File != "/tmp/ctx.txt" || cfg.Context.MaxChars != 42 {
		t.Fatalf("Context = %+v", cfg.Context)
	}
}

func TestLoadPrefixedKeysWinOverLegacyKeys(t *testing.T) {
	cfg, err := Load("duckask", mapLookup(map[string]string{
		"DB_PATH":            "legacy.duckdb",
		"DUCKASK_DB_PATH":    "current.duckdb",
		"OPENAI_API_KEY":     "sk-legacy",
		"DUCKASK_AI_API_KEY": "sk-current",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Path != "current.duckdb" {
		t.Fatalf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.AI.APIKey != "sk-current" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg, err := Load("duckask", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.RequireAPIKey(); err == nil {
		t.Fatal("RequireAPIKey() expected error without a key")
	}
	cfg.AI.APIKey = "k"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("RequireAPIKey() error = %v", err)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"DUCKASK_PROFILE": "oops"},
		{"DUCKASK_HTTP_READ_TIMEOUT": "NaN"},
		{"DUCKASK_MAX_ROWS": "oops"},
		{"DUCKASK_MAX_ROWS": "0"},
		{"DUCKASK_AI_MAX_TOKENS": "-1"},
		{"DUCKASK_AI_TEMPERATURE": "bad"},
		{"DUCKASK_AI_PROVIDER": "llama"},
		{"DUCKASK_CONTEXT_MAX_CHARS": "-5"},
		{"DUCKASK_EXPORT_TARGET": "ftp"},
		{"DUCKASK_DB_PATH": "  "},
		{"DUCKASK_AUTH_REQUIRED": "not-bool"},
		{"DUCKASK_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("duckask", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
