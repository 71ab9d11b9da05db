package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("shopquery-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if !reflect.DeepEqual(cfg.HTTP.CORSAllowedOrigins, []string{"*"}) {
		t.Fatalf("HTTP.CORSAllowedOrigins = %#v", cfg.HTTP.CORSAllowedOrigins)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.History.DSN != "" || cfg.History.MemoryLimit != 1000 {
		t.Fatalf("History = %#v", cfg.History)
	}
	if cfg.Dataset != (DatasetConfig{Name: "retail", Seed: 42, Customers: 100, Orders: 200}) {
		t.Fatalf("Dataset = %#v", cfg.Dataset)
	}
	if cfg.Query.RowLimit != 1000 || cfg.Query.Timeout != 30*time.Second {
		t.Fatalf("Query = %#v", cfg.Query)
	}
	if cfg.NER.Backend != "regex" {
		t.Fatalf("NER.Backend = %q", cfg.NER.Backend)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("shopquery-api", mapLookup(map[string]string{"SHOPQUERY_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.ObjectStore.UseSSL || cfg.ObjectStore.AutoCreateBucket {
		t.Fatalf("ObjectStore = %#v", cfg.ObjectStore)
	}
	if len(cfg.HTTP.CORSAllowedOrigins) != 0 {
		t.Fatalf("HTTP.CORSAllowedOrigins = %#v", cfg.HTTP.CORSAllowedOrigins)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	cfg, err := Load("shopquery-api", mapLookup(map[string]string{
		"SHOPQUERY_PROFILE":                        "test",
		"SHOPQUERY_SERVICE_NAME":                   "shopquery-custom",
		"SHOPQUERY_HTTP_ADDR":                      ":9999",
		"SHOPQUERY_HTTP_READ_TIMEOUT":              "2s",
		"SHOPQUERY_HTTP_WRITE_TIMEOUT":             "3s",
		"SHOPQUERY_CORS_ALLOWED_ORIGINS":           " https://a.example.com, ,https://b.example.com",
		"SHOPQUERY_HISTORY_DSN":                    "postgres://example",
		"SHOPQUERY_HISTORY_MAX_OPEN_CONNS":         "42",
		"SHOPQUERY_HISTORY_CONN_MAX_LIFETIME":      "1h",
		"SHOPQUERY_HISTORY_MEMORY_LIMIT":           "50",
		"SHOPQUERY_OBJECTSTORE_ENDPOINT":           "s3.example.com",
		"SHOPQUERY_OBJECTSTORE_BUCKET":             "shopquery-prod",
		"SHOPQUERY_OBJECTSTORE_USE_SSL":            "true",
		"SHOPQUERY_OBJECTSTORE_PREFIX":             "root",
		"SHOPQUERY_OBJECTSTORE_AUTO_CREATE_BUCKET": "false",
		"SHOPQUERY_DATASET_NAME":                   "demo",
		"SHOPQUERY_DATASET_SEED":                   "7",
		"SHOPQUERY_DATASET_CUSTOMERS":              "10",
		"SHOPQUERY_DATASET_ORDERS":                 "0",
		"SHOPQUERY_QUERY_ROW_LIMIT":                "250",
		"SHOPQUERY_QUERY_TIMEOUT":                  "4s",
		"SHOPQUERY_NER_BACKEND":                    "HuggingFace",
		"SHOPQUERY_NER_API_KEY":                    "hf-token",
		"SHOPQUERY_NER_MODEL":                      "dslim/bert-large-NER",
		"SHOPQUERY_NER_TIMEOUT":                    "1500ms",
		"SHOPQUERY_LOG_LEVEL":                      "error",
		"SHOPQUERY_LOG_JSON":                       "false",
		"SHOPQUERY_AUTH_REQUIRED":                  "true",
		"SHOPQUERY_AUTH_STATIC_KEYS":               "k1:analyst:query_reader",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "shopquery-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" || cfg.HTTP.ReadTimeout != 2*time.Second || cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP = %#v", cfg.HTTP)
	}
	if !reflect.DeepEqual(cfg.HTTP.CORSAllowedOrigins, []string{"https://a.example.com", "https://b.example.com"}) {
		t.Fatalf("HTTP.CORSAllowedOrigins = %#v", cfg.HTTP.CORSAllowedOrigins)
	}
	if cfg.History.DSN != "postgres://example" || cfg.History.MaxOpenConns != 42 || cfg.History.ConnMaxLifetime != time.Hour || cfg.History.MemoryLimit != 50 {
		t.Fatalf("History = %#v", cfg.History)
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" || cfg.ObjectStore.Bucket != "shopquery-prod" || !cfg.ObjectStore.UseSSL || cfg.ObjectStore.Prefix != "root" || cfg.ObjectStore.AutoCreateBucket {
		t.Fatalf("ObjectStore = %#v", cfg.ObjectStore)
	}
	if cfg.Dataset != (DatasetConfig{Name: "demo", Seed: 7, Customers: 10, Orders: 0}) {
		t.Fatalf("Dataset = %#v", cfg.Dataset)
	}
	if cfg.Query.RowLimit != 250 || cfg.Query.Timeout != 4*time.Second {
		t.Fatalf("Query = %#v", cfg.Query)
	}
	if cfg.NER.Backend != "huggingface" || cfg.NER.APIKey != "hf-token" || cfg.NER.Model != "dslim/bert-large-NER" || cfg.NER.Timeout != 1500*time.Millisecond {
		t.Fatalf("NER = %#v", cfg.NER)
	}
	if cfg.Observability.LogLevel != slog.LevelError || cfg.Observability.LogJSON {
		t.Fatalf("Observability = %#v", cfg.Observability)
	}
	if !cfg.Auth.Required || cfg.Auth.StaticKeys != "k1:analyst:query_reader" {
		t.Fatalf("Auth = %#v", cfg.Auth)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want string
	}{
		{env: map[string]string{"SHOPQUERY_PROFILE": "staging"}, want: "SHOPQUERY_PROFILE"},
		{env: map[string]string{"SHOPQUERY_HTTP_READ_TIMEOUT": "soon"}, want: "SHOPQUERY_HTTP_READ_TIMEOUT"},
		{env: map[string]string{"SHOPQUERY_LOG_LEVEL": "verbose"}, want: "SHOPQUERY_LOG_LEVEL"},
		{env: map[string]string{"SHOPQUERY_AUTH_REQUIRED": "maybe"}, want: "SHOPQUERY_AUTH_REQUIRED"},
		{env: map[string]string{"SHOPQUERY_DATASET_SEED": "x"}, want: "SHOPQUERY_DATASET_SEED"},
		{env: map[string]string{"SHOPQUERY_QUERY_ROW_LIMIT": "0"}, want: "row limit"},
		{env: map[string]string{"SHOPQUERY_DATASET_CUSTOMERS": "0"}, want: "dataset"},
		{env: map[string]string{"SHOPQUERY_DATASET_NAME": " "}, want: "dataset name"},
		{env: map[string]string{"SHOPQUERY_NER_BACKEND": "spacy"}, want: "SHOPQUERY_NER_BACKEND"},
		{env: map[string]string{"SHOPQUERY_HTTP_ADDR": ""}, want: "http address"},
	}
	for _, tc := range tests {
		_, err := Load("shopquery-api", mapLookup(tc.env))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("Load(%v) error = %v, want mention of %q", tc.env, err, tc.want)
		}
	}
}

func TestLoadKeepsFirstParseError(t *testing.T) {
	_, err := Load("shopquery-api", mapLookup(map[string]string{
		"SHOPQUERY_HTTP_READ_TIMEOUT": "bad",
		"SHOPQUERY_LOG_LEVEL":         "bad",
	}))
	if err == nil || !strings.Contains(err.Error(), "HTTP_READ_TIMEOUT") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("SHOPQUERY_DOTENV_CHECK=from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("SHOPQUERY_DOTENV_CHECK", "")
	if err := os.Unsetenv("SHOPQUERY_DOTENV_CHECK"); err != nil {
		t.Fatalf("Unsetenv() error = %v", err)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("SHOPQUERY_DOTENV_CHECK"); got != "from-file" {
		t.Fatalf("SHOPQUERY_DOTENV_CHECK = %q", got)
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
