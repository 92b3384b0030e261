// Package config provides configuration management for the research assistant service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "RESEARCH"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Storage backends.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

// MinJWTSecretLength is the shortest accepted HS256 signing secret.
const MinJWTSecretLength = 16

// Config holds all configuration for the research assistant service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Auth     AuthConfig     `mapstructure:"auth"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Features FeaturesConfig `mapstructure:"features"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP API port (default: 8000).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the Prometheus listener port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	// LLM calls can take a minute, so the default is generous.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxUploadBytes caps multipart uploads (default: 32 MiB).
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// URL overrides every other connection field when set.
	// Loaded from DATABASE_URL only.
	URL string `mapstructure:"-"`
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password.
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun applies pending migrations when the server starts.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AuthConfig holds access token settings.
type AuthConfig struct {
	// JWTSecret signs access tokens. Loaded from JWT_SECRET only.
	JWTSecret string `mapstructure:"-"`
	// TokenTTL is the access token lifetime (default: 120m).
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// LLMConfig selects and configures the single active LLM backend.
type LLMConfig struct {
	// Provider is openai, gemini or anthropic.
	Provider string `mapstructure:"provider"`
	// Model overrides the provider default model.
	Model string `mapstructure:"model"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds one chat call (default: 60s).
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxTokens bounds the completion length for providers that require it.
	MaxTokens int `mapstructure:"max_tokens"`
	// TranscriptionModel overrides the speech-to-text model.
	TranscriptionModel string `mapstructure:"transcription_model"`

	OpenAIAPIKey    string `mapstructure:"-"`
	GeminiAPIKey    string `mapstructure:"-"`
	AnthropicAPIKey string `mapstructure:"-"`
}

// APIKey returns the key of the configured provider.
func (c *LLMConfig) APIKey() string {
	switch strings.ToLower(c.Provider) {
	case "openai":
		return c.OpenAIAPIKey
	case "gemini":
		return c.GeminiAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

// SourcesConfig holds the bibliographic provider settings.
type SourcesConfig struct {
	// ContactEmail is sent to OpenAlex, Crossref and Unpaywall for their polite pools.
	ContactEmail    string       `mapstructure:"contact_email"`
	SemanticScholar SourceConfig `mapstructure:"semantic_scholar"`
	OpenAlex        SourceConfig `mapstructure:"openalex"`
	Crossref        SourceConfig `mapstructure:"crossref"`
	Unpaywall       SourceConfig `mapstructure:"unpaywall"`
}

// SourceConfig holds the settings of one provider API.
type SourceConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	BurstSize int           `mapstructure:"burst_size"`
	// APIKey is only used by Semantic Scholar. Loaded from SEMANTIC_SCHOLAR_API_KEY.
	APIKey string `mapstructure:"-"`
}

// StorageConfig selects where uploads and exports are written.
type StorageConfig struct {
	// Backend is local or s3.
	Backend string `mapstructure:"backend"`
	// LocalDir is the base directory of the local backend.
	LocalDir string `mapstructure:"local_dir"`
	// PublicBaseURL prefixes locations when building download URLs.
	PublicBaseURL string   `mapstructure:"public_base_url"`
	S3            S3Config `mapstructure:"s3"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	// Loaded from S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY only.
	AccessKeyID     string `mapstructure:"-"`
	SecretAccessKey string `mapstructure:"-"`
}

// RedisConfig holds the settings of the inbound rate limiter store.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	// RateLimit is the number of unauthenticated requests allowed per IP and window.
	RateLimit int           `mapstructure:"rate_limit"`
	Window    time.Duration `mapstructure:"window"`
}

// KafkaConfig holds job event publisher settings.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// Enabled turns on the asynchronous survey job endpoint.
	Enabled bool `mapstructure:"enabled"`
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue for survey jobs.
	TaskQueue string `mapstructure:"task_queue"`
}

// FeaturesConfig holds the feature flags of the optional endpoints.
type FeaturesConfig struct {
	Translation   bool `mapstructure:"translation"`
	Replicator    bool `mapstructure:"replicator"`
	Contradiction bool `mapstructure:"contradiction"`
}

// CORSConfig holds cross-origin settings for the browser client.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Validate checks the connection settings. A DATABASE_URL replaces the
// host, port and name checks.
func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		if c.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Port <= 0 || c.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Port)
		}
		if c.Name == "" {
			return fmt.Errorf("database name is required")
		}
	}
	if c.MaxConns < c.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.MaxConns, c.MinConns)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics listener address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadDatabase loads configuration like Load but only validates the database
// section. The migrate CLI needs no LLM key or JWT secret.
func LoadDatabase() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func read() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-assistant")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)
	return &cfg, nil
}

// secretEnv returns RESEARCH_<name> when set, else <name>.
func secretEnv(name string) string {
	if v := os.Getenv(EnvPrefix + "_" + name); v != "" {
		return v
	}
	return os.Getenv(name)
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Auth.JWTSecret = secretEnv("JWT_SECRET")
	cfg.Database.URL = secretEnv("DATABASE_URL")

	cfg.LLM.OpenAIAPIKey = secretEnv("OPENAI_API_KEY")
	cfg.LLM.GeminiAPIKey = secretEnv("GEMINI_API_KEY")
	cfg.LLM.AnthropicAPIKey = secretEnv("ANTHROPIC_API_KEY")

	cfg.Sources.SemanticScholar.APIKey = secretEnv("SEMANTIC_SCHOLAR_API_KEY")

	cfg.Storage.S3.AccessKeyID = secretEnv("S3_ACCESS_KEY_ID")
	cfg.Storage.S3.SecretAccessKey = secretEnv("S3_SECRET_ACCESS_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_bytes", 32<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "research")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "research_assistant")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("auth.token_ttl", "120m")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.transcription_model", "")

	v.SetDefault("sources.contact_email", "research-assistant@example.com")
	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("sources.semantic_scholar.timeout", "20s")
	v.SetDefault("sources.semantic_scholar.rate_limit", 1.0)
	v.SetDefault("sources.semantic_scholar.burst_size", 1)
	v.SetDefault("sources.openalex.enabled", true)
	v.SetDefault("sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("sources.openalex.timeout", "20s")
	v.SetDefault("sources.openalex.rate_limit", 10.0)
	v.SetDefault("sources.openalex.burst_size", 10)
	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.timeout", "20s")
	v.SetDefault("sources.crossref.rate_limit", 10.0)
	v.SetDefault("sources.crossref.burst_size", 5)
	v.SetDefault("sources.unpaywall.enabled", true)
	v.SetDefault("sources.unpaywall.base_url", "https://api.unpaywall.org")
	v.SetDefault("sources.unpaywall.timeout", "20s")
	v.SetDefault("sources.unpaywall.rate_limit", 10.0)
	v.SetDefault("sources.unpaywall.burst_size", 10)

	v.SetDefault("storage.backend", StorageBackendLocal)
	v.SetDefault("storage.local_dir", "./storage")
	v.SetDefault("storage.public_base_url", "/files")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.rate_limit", 20)
	v.SetDefault("redis.window", "1s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.research_assistant.jobs")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "research-assistant")
	v.SetDefault("temporal.task_queue", "research-assistant-jobs")

	v.SetDefault("features.translation", true)
	v.SetDefault("features.replicator", true)
	v.SetDefault("features.contradiction", true)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Metrics.Enabled && (c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "pretty":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token_ttl must be positive")
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("LLM provider %q requires OPENAI_API_KEY to be set", c.LLM.Provider)
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("LLM provider %q requires GEMINI_API_KEY to be set", c.LLM.Provider)
		}
	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("LLM provider %q requires ANTHROPIC_API_KEY to be set", c.LLM.Provider)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %q", c.LLM.Provider)
	}

	sources := map[string]SourceConfig{
		"semantic_scholar": c.Sources.SemanticScholar,
		"openalex":         c.Sources.OpenAlex,
		"crossref":         c.Sources.Crossref,
		"unpaywall":        c.Sources.Unpaywall,
	}
	for name, s := range sources {
		if s.Enabled && s.Timeout <= 0 {
			return fmt.Errorf("sources.%s.timeout must be positive", name)
		}
	}

	switch c.Storage.Backend {
	case StorageBackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage local_dir is required for the local backend")
		}
	case StorageBackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}

	if c.Redis.Enabled && (c.Redis.RateLimit <= 0 || c.Redis.Window <= 0) {
		return fmt.Errorf("redis rate_limit and window must be positive when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka brokers and topic are required when kafka is enabled")
	}
	if c.Temporal.Enabled && (c.Temporal.HostPort == "" || c.Temporal.TaskQueue == "") {
		return fmt.Errorf("temporal host_port and task_queue are required when temporal is enabled")
	}

	return nil
}
