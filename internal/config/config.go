// Package config loads and validates ingestor configuration via Viper.
package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends selectable through storage.backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendGCS      = "gcs"
	BackendSheets   = "sheets"
	BackendRedis    = "redis"
)

// EnvPrefix namespaces environment overrides, e.g. INGEST_STORAGE_BACKEND.
const EnvPrefix = "INGEST"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Storage  StorageConfig           `mapstructure:"storage"`
	PubSub   PubSubConfig            `mapstructure:"pubsub"`
	Budgets  BudgetsConfig           `mapstructure:"budgets"`
	Progress ProgressConfig          `mapstructure:"progress"`
	Sources  map[string]SourceConfig `mapstructure:"sources"`
}

// ServerConfig controls the operator HTTP server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the collaborator transport shared by all sources.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	ProxyURL  string        `mapstructure:"proxy_url"`
}

// StorageConfig selects a sink and carries per-backend settings.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig controls access to the relational sink.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	CreateTable     bool          `mapstructure:"create_table"`
}

// GCSConfig sets the bucket and object prefix for the object sink.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// SheetsConfig points at the spreadsheet used as a sink.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Worksheet       string `mapstructure:"worksheet"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// RedisConfig points at the Redis sink.
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// PubSubConfig holds stored-record notification settings. An empty topic
// disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// BudgetConfig is one rate governor budget.
type BudgetConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// BudgetsConfig holds the governor budget per operation class.
type BudgetsConfig struct {
	Read  BudgetConfig `mapstructure:"read"`
	Write BudgetConfig `mapstructure:"write"`
	Total BudgetConfig `mapstructure:"total"`
}

// ProgressConfig tunes the progress hub.
type ProgressConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	MaxBatchWait   time.Duration `mapstructure:"max_batch_wait"`
	LogEvents      bool          `mapstructure:"log_events"`
}

// SourceConfig configures one source worker.
type SourceConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	MaxPages    int           `mapstructure:"max_pages"`
	PageDelay   time.Duration `mapstructure:"page_delay"`
	DetailDelay time.Duration `mapstructure:"detail_delay"`
	BaseURL     string        `mapstructure:"base_url"`
	PageSize    int           `mapstructure:"page_size"`
	CountryCode string        `mapstructure:"country_code"`
}

// Load builds a Config from defaults, an optional file, and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DefaultSources lists the source keys that receive default settings and
// per-source validation.
var DefaultSources = []string{"glints", "jobstreet", "loker"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.postgres.table", "jobs")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.postgres.create_table", true)
	v.SetDefault("storage.gcs.prefix", "jobs")
	v.SetDefault("storage.sheets.worksheet", "Jobs")
	v.SetDefault("storage.redis.prefix", "jobs")
	v.SetDefault("budgets.read.limit", 300)
	v.SetDefault("budgets.read.window", time.Minute)
	v.SetDefault("budgets.write.limit", 60)
	v.SetDefault("budgets.write.window", time.Minute)
	v.SetDefault("budgets.total.limit", 500)
	v.SetDefault("budgets.total.window", 100*time.Second)
	v.SetDefault("progress.log_events", false)
	for _, key := range DefaultSources {
		prefix := "sources." + key + "."
		v.SetDefault(prefix+"enabled", true)
		v.SetDefault(prefix+"interval", time.Hour)
		v.SetDefault(prefix+"max_pages", 0)
		v.SetDefault(prefix+"page_delay", time.Second)
		v.SetDefault(prefix+"detail_delay", 2*time.Second)
		v.SetDefault(prefix+"base_url", "")
		v.SetDefault(prefix+"page_size", 0)
		v.SetDefault(prefix+"country_code", "")
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	for name, b := range map[string]BudgetConfig{"read": c.Budgets.Read, "write": c.Budgets.Write, "total": c.Budgets.Total} {
		if b.Limit < 0 || b.Window < 0 {
			return fmt.Errorf("budgets.%s must not be negative", name)
		}
	}
	if len(c.EnabledSources()) == 0 {
		return fmt.Errorf("sources: at least one source must be enabled")
	}
	for _, name := range c.EnabledSources() {
		// Unknown keys are left to the source factory, which stops only that worker.
		if !slices.Contains(DefaultSources, name) {
			continue
		}
		src := c.Sources[name]
		if src.Interval <= 0 {
			return fmt.Errorf("sources.%s.interval must be > 0", name)
		}
		if src.MaxPages < 0 {
			return fmt.Errorf("sources.%s.max_pages must be >= 0", name)
		}
		if src.PageDelay < 0 || src.DetailDelay < 0 {
			return fmt.Errorf("sources.%s delays must be >= 0", name)
		}
	}
	return nil
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case BackendMemory:
	case BackendPostgres:
		if s.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	case BackendGCS:
		if s.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required for the gcs backend")
		}
	case BackendSheets:
		if s.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("storage.sheets.spreadsheet_id is required for the sheets backend")
		}
	case BackendRedis:
		if s.Redis.URL == "" {
			return fmt.Errorf("storage.redis.url is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", s.Backend)
	}
	return nil
}

// EnabledSources returns the keys of enabled sources in sorted order.
func (c Config) EnabledSources() []string {
	names := make([]string, 0, len(c.Sources))
	for name, src := range c.Sources {
		if src.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
