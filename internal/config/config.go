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

const envPrefix = "SHOPQUERY_"

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	History       HistoryConfig
	ObjectStore   ObjectStoreConfig
	Dataset       DatasetConfig
	Query         QueryConfig
	NER           NERConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address            string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	CORSAllowedOrigins []string
}

// HistoryConfig selects the query history backend. An empty DSN keeps history in memory.
type HistoryConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	MemoryLimit     int
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

type DatasetConfig struct {
	Name      string
	Seed      int64
	Customers int
	Orders    int
}

type QueryConfig struct {
	RowLimit int
	Timeout  time.Duration
}

type NERConfig struct {
	Backend string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

// LoadDotEnv copies variables from the given files (".env" when none are given) into the process
// environment. Variables already set win, and missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup(envPrefix + "PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid %sPROFILE: %q", envPrefix, profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	b := &binder{lookup: lookup}
	b.str("SERVICE_NAME", &cfg.Service.Name)

	b.str("HTTP_ADDR", &cfg.HTTP.Address)
	b.duration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout)
	b.duration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout)
	b.duration("HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout)
	b.list("CORS_ALLOWED_ORIGINS", &cfg.HTTP.CORSAllowedOrigins)

	b.str("HISTORY_DSN", &cfg.History.DSN)
	b.integer("HISTORY_MAX_OPEN_CONNS", &cfg.History.MaxOpenConns)
	b.integer("HISTORY_MAX_IDLE_CONNS", &cfg.History.MaxIdleConns)
	b.duration("HISTORY_CONN_MAX_IDLE_TIME", &cfg.History.ConnMaxIdleTime)
	b.duration("HISTORY_CONN_MAX_LIFETIME", &cfg.History.ConnMaxLifetime)
	b.integer("HISTORY_MEMORY_LIMIT", &cfg.History.MemoryLimit)

	b.str("OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint)
	b.str("OBJECTSTORE_REGION", &cfg.ObjectStore.Region)
	b.str("OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket)
	b.str("OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID)
	b.str("OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
	b.boolean("OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL)
	b.str("OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix)
	b.boolean("OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)

	b.str("DATASET_NAME", &cfg.Dataset.Name)
	b.int64("DATASET_SEED", &cfg.Dataset.Seed)
	b.integer("DATASET_CUSTOMERS", &cfg.Dataset.Customers)
	b.integer("DATASET_ORDERS", &cfg.Dataset.Orders)

	b.integer("QUERY_ROW_LIMIT", &cfg.Query.RowLimit)
	b.duration("QUERY_TIMEOUT", &cfg.Query.Timeout)

	b.str("NER_BACKEND", &cfg.NER.Backend)
	b.str("NER_BASE_URL", &cfg.NER.BaseURL)
	b.str("NER_API_KEY", &cfg.NER.APIKey)
	b.str("NER_MODEL", &cfg.NER.Model)
	b.duration("NER_TIMEOUT", &cfg.NER.Timeout)

	b.logLevel("LOG_LEVEL", &cfg.Observability.LogLevel)
	b.boolean("LOG_JSON", &cfg.Observability.LogJSON)

	b.boolean("AUTH_REQUIRED", &cfg.Auth.Required)
	b.str("AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys)

	if b.err != nil {
		return Config{}, b.err
	}
	cfg.NER.Backend = strings.ToLower(cfg.NER.Backend)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	if c.HTTP.Address == "" {
		return fmt.Errorf("http address is required")
	}
	if c.Dataset.Name == "" {
		return fmt.Errorf("dataset name is required")
	}
	if c.Dataset.Customers <= 0 || c.Dataset.Orders < 0 {
		return fmt.Errorf("dataset needs at least one customer and a non-negative order count")
	}
	if c.Query.RowLimit <= 0 {
		return fmt.Errorf("query row limit must be > 0")
	}
	switch c.NER.Backend {
	case "regex", "huggingface", "openai":
	default:
		return fmt.Errorf("invalid %sNER_BACKEND: %q", envPrefix, c.NER.Backend)
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "shopquery-api"},
		HTTP: HTTPConfig{
			Address:            ":8080",
			ReadTimeout:        5 * time.Second,
			WriteTimeout:       60 * time.Second,
			IdleTimeout:        60 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		History: HistoryConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			MemoryLimit:     1000,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "shopquery",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			AutoCreateBucket: true,
		},
		Dataset: DatasetConfig{
			Name:      "retail",
			Seed:      42,
			Customers: 100,
			Orders:    200,
		},
		Query: QueryConfig{
			RowLimit: 1000,
			Timeout:  30 * time.Second,
		},
		NER: NERConfig{
			Backend: "regex",
			Timeout: 10 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.HTTP.CORSAllowedOrigins = nil
		cfg.Observability.LogLevel = slog.LevelInfo
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

// binder reads prefixed keys and keeps the first parse error; later calls are no-ops.
type binder struct {
	lookup LookupFunc
	err    error
}

func (b *binder) value(key string) (string, bool) {
	if b.err != nil {
		return "", false
	}
	raw, ok := b.lookup(envPrefix + key)
	return strings.TrimSpace(raw), ok
}

func (b *binder) fail(key string, err error) {
	b.err = fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
}

func (b *binder) str(key string, dst *string) {
	if raw, ok := b.value(key); ok {
		*dst = raw
	}
}

func (b *binder) list(key string, dst *[]string) {
	raw, ok := b.value(key)
	if !ok {
		return
	}
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func (b *binder) duration(key string, dst *time.Duration) {
	raw, ok := b.value(key)
	if !ok {
		return
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		b.fail(key, err)
		return
	}
	*dst = value
}

func (b *binder) boolean(key string, dst *bool) {
	raw, ok := b.value(key)
	if !ok {
		return
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		b.fail(key, err)
		return
	}
	*dst = value
}

func (b *binder) integer(key string, dst *int) {
	raw, ok := b.value(key)
	if !ok {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		b.fail(key, err)
		return
	}
	*dst = value
}

func (b *binder) int64(key string, dst *int64) {
	raw, ok := b.value(key)
	if !ok {
		return
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		b.fail(key, err)
		return
	}
	*dst = value
}

func (b *binder) logLevel(key string, dst *slog.Level) {
	raw, ok := b.value(key)
	if !ok {
		return
	}
	switch strings.ToLower(raw) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		b.fail(key, fmt.Errorf("unknown level %q", raw))
	}
}
