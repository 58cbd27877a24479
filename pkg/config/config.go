// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, SQLite, Kafka, Redis, Index, Search, etc.) and
// the list of searchable record kinds.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/fts/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Postgres    PostgresConfig     `yaml:"postgres"`
	SQLite      SQLiteConfig       `yaml:"sqlite"`
	Kafka       KafkaConfig        `yaml:"kafka"`
	Redis       RedisConfig        `yaml:"redis"`
	Index       IndexConfig        `yaml:"index"`
	Search      SearchConfig       `yaml:"search"`
	Logging     LoggingConfig      `yaml:"logging"`
	Metrics     MetricsConfig      `yaml:"metrics"`
	Collections []CollectionConfig `yaml:"collections"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SQLiteConfig holds the database file used by the sqlite backend. An empty
// path opens a private in-memory database.
type SQLiteConfig struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busyTimeout"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ReindexRequests string `yaml:"reindexRequests"`
	IndexComplete   string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexConfig selects the storage backend and the defaults every collection
// inherits unless it overrides them.
type IndexConfig struct {
	Backend          string              `yaml:"backend"`
	Language         string              `yaml:"language"`
	FallbackLanguage string              `yaml:"fallbackLanguage"`
	Stemmer          string              `yaml:"stemmer"`
	MaxTokenLength   int                 `yaml:"maxTokenLength"`
	TokenCacheSize   int                 `yaml:"tokenCacheSize"`
	ExtraStopwords   map[string][]string `yaml:"extraStopwords"`
	RetryAttempts    int                 `yaml:"retryAttempts"`
	RetryDelay       time.Duration       `yaml:"retryDelay"`
}

// CollectionConfig describes one searchable record kind: where its records
// live, which fields are indexed at which weight, and how tokens are produced.
type CollectionConfig struct {
	Kind        string        `yaml:"kind"`
	Namespace   string        `yaml:"namespace"`
	Language    string        `yaml:"language"`
	Stem        *bool         `yaml:"stem"`
	FullIndex   bool          `yaml:"fullIndex"`
	ExactSearch bool          `yaml:"exactSearch"`
	MinLength   int           `yaml:"minLength"`
	Source      SourceConfig  `yaml:"source"`
	Fields      []FieldConfig `yaml:"fields"`
}

// StemEnabled reports whether stemming is on; it defaults to true.
func (c CollectionConfig) StemEnabled() bool {
	return c.Stem == nil || *c.Stem
}

// SourceConfig points at the table holding the records of a kind.
type SourceConfig struct {
	Table           string `yaml:"table"`
	IDColumn        string `yaml:"idColumn"`
	NamespaceColumn string `yaml:"namespaceColumn"`
}

// FieldConfig is a field name or dotted path paired with a weight tier (A-D).
type FieldConfig struct {
	Path   string `yaml:"path"`
	Weight string `yaml:"weight"`
}

// SearchConfig controls query execution limits.
type SearchConfig struct {
	MaxResults   int  `yaml:"maxResults"`
	DefaultLimit int  `yaml:"defaultLimit"`
	DefaultRank  bool `yaml:"defaultRank"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "fts",
			User:            "fts",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path:        "data/fts.db",
			BusyTimeout: 5 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "fts-indexer",
			Topics: KafkaTopics{
				ReindexRequests: "fts.reindex",
				IndexComplete:   "fts.index-complete",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Index: IndexConfig{
			Backend:        "postgres",
			Language:       "en",
			Stemmer:        "snowball",
			MaxTokenLength: 64,
			TokenCacheSize: 50000,
			RetryAttempts:  3,
			RetryDelay:     100 * time.Millisecond,
		},
		Search: SearchConfig{
			MaxResults:   1000,
			DefaultLimit: 20,
			DefaultRank:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	validBackends     = map[string]bool{"postgres": true, "sqlite": true, "memory": true}
	validStemmers     = map[string]bool{"snowball": true, "porter": true, "simple": true, "none": true}
	validTiers        = map[string]bool{"A": true, "B": true, "C": true, "D": true}
)

// ValidIdentifier reports whether s can be used as a quoted SQL table or
// column name.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Validate checks the configuration for mistakes that would only surface at
// indexing time. Every failure wraps ErrConfiguration.
func (c *Config) Validate() error {
	if !validBackends[c.Index.Backend] {
		return fmt.Errorf("%w: unknown index backend %q", apperrors.ErrConfiguration, c.Index.Backend)
	}
	if !validStemmers[c.Index.Stemmer] {
		return fmt.Errorf("%w: unknown stemmer %q", apperrors.ErrConfiguration, c.Index.Stemmer)
	}
	seen := make(map[string]bool, len(c.Collections))
	for i, col := range c.Collections {
		if col.Kind == "" {
			return fmt.Errorf("%w: collections[%d]: kind is required", apperrors.ErrConfiguration, i)
		}
		if seen[col.Kind] {
			return fmt.Errorf("%w: duplicate collection kind %q", apperrors.ErrConfiguration, col.Kind)
		}
		seen[col.Kind] = true
		if len(col.Fields) == 0 {
			return fmt.Errorf("%w: collection %q has no fields", apperrors.ErrConfiguration, col.Kind)
		}
		if col.MinLength < 0 {
			return fmt.Errorf("%w: collection %q: minLength must not be negative", apperrors.ErrConfiguration, col.Kind)
		}
		for _, f := range col.Fields {
			if strings.TrimSpace(f.Path) == "" {
				return fmt.Errorf("%w: collection %q: field path is required", apperrors.ErrConfiguration, col.Kind)
			}
			if !validTiers[f.Weight] {
				return fmt.Errorf("%w: collection %q: field %q has weight %q (want A, B, C or D)",
					apperrors.ErrConfiguration, col.Kind, f.Path, f.Weight)
			}
		}
		if c.Index.Backend != "memory" {
			if err := col.Source.validate(col.Kind); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s SourceConfig) validate(kind string) error {
	if !ValidIdentifier(s.Table) {
		return fmt.Errorf("%w: collection %q: invalid source table %q", apperrors.ErrConfiguration, kind, s.Table)
	}
	if !ValidIdentifier(s.IDColumn) {
		return fmt.Errorf("%w: collection %q: invalid id column %q", apperrors.ErrConfiguration, kind, s.IDColumn)
	}
	if s.NamespaceColumn != "" && !ValidIdentifier(s.NamespaceColumn) {
		return fmt.Errorf("%w: collection %q: invalid namespace column %q", apperrors.ErrConfiguration, kind, s.NamespaceColumn)
	}
	return nil
}

// applyEnvOverrides reads FTS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FTS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FTS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FTS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FTS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FTS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FTS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FTS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("FTS_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("FTS_INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("FTS_INDEX_LANGUAGE"); v != "" {
		cfg.Index.Language = v
	}
	if v := os.Getenv("FTS_INDEX_STEMMER"); v != "" {
		cfg.Index.Stemmer = v
	}
	if v := os.Getenv("FTS_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("FTS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FTS_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("FTS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FTS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FTS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FTS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
