// Package config loads and validates application configuration from YAML files
// with .env and environment-variable overrides. It provides typed structs for
// every subsystem (Server, Postgres, Kafka, Redis, Matcher, Jobs, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
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
	QueryTimeout    time.Duration `yaml:"queryTimeout"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. An empty broker list
// disables event publishing.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	MatchAnalytics string `yaml:"matchAnalytics"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// disables the match-result cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// MatcherConfig tunes skill extraction and scoring.
type MatcherConfig struct {
	MaxSkills       int     `yaml:"maxSkills"`
	BonusPerSkill   float64 `yaml:"bonusPerSkill"`
	DefaultMinScore int     `yaml:"defaultMinScore"`
	Parallelism     int     `yaml:"parallelism"`
	// TablesFile optionally replaces the built-in vocabulary and stopwords.
	TablesFile string `yaml:"tablesFile"`
}

const (
	JobSourceMemory   = "memory"
	JobSourcePostgres = "postgres"
)

// JobsConfig selects where job postings come from.
type JobsConfig struct {
	Source string `yaml:"source"`
	// File seeds the memory source; empty means the built-in samples.
	File string `yaml:"file"`
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

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	IdleTTL           time.Duration `yaml:"idleTTL"`
}

// CORSConfig lists the origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Load reads a YAML config file (if provided), then a .env file from the
// working directory (if present), and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
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
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every out-of-range setting in one error.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Matcher.MaxSkills <= 0 {
		problems = append(problems, "matcher.maxSkills must be positive")
	}
	if c.Matcher.BonusPerSkill < 0 {
		problems = append(problems, "matcher.bonusPerSkill must not be negative")
	}
	if c.Matcher.DefaultMinScore < 0 || c.Matcher.DefaultMinScore > 100 {
		problems = append(problems, "matcher.defaultMinScore must be within 0..100")
	}
	switch c.Jobs.Source {
	case JobSourceMemory, JobSourcePostgres:
	default:
		problems = append(problems, fmt.Sprintf("jobs.source %q is not memory or postgres", c.Jobs.Source))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		problems = append(problems, "ratelimit.requestsPerSecond and ratelimit.burst must be positive")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		problems = append(problems, fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// defaultConfig returns a Config suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "jobmatch",
			User:            "jobmatch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			QueryTimeout:    3 * time.Second,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "jobmatch-analytics",
			Topics: KafkaTopics{
				MatchAnalytics: "match-analytics",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Matcher: MatcherConfig{
			MaxSkills:     12,
			BonusPerSkill: 0.05,
		},
		Jobs: JobsConfig{
			Source: JobSourceMemory,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
			IdleTTL:           10 * time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// applyEnvOverrides reads JM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) error {
	ints := map[string]*int{
		"JM_SERVER_PORT":               &cfg.Server.Port,
		"JM_POSTGRES_PORT":             &cfg.Postgres.Port,
		"JM_REDIS_DB":                  &cfg.Redis.DB,
		"JM_MATCHER_MAX_SKILLS":        &cfg.Matcher.MaxSkills,
		"JM_MATCHER_DEFAULT_MIN_SCORE": &cfg.Matcher.DefaultMinScore,
		"JM_MATCHER_PARALLELISM":       &cfg.Matcher.Parallelism,
		"JM_METRICS_PORT":              &cfg.Metrics.Port,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		*dst = n
	}

	strs := map[string]*string{
		"JM_POSTGRES_HOST":     &cfg.Postgres.Host,
		"JM_POSTGRES_DATABASE": &cfg.Postgres.Database,
		"JM_POSTGRES_USER":     &cfg.Postgres.User,
		"JM_POSTGRES_PASSWORD": &cfg.Postgres.Password,
		"JM_POSTGRES_SSLMODE":  &cfg.Postgres.SSLMode,
		"JM_REDIS_ADDR":        &cfg.Redis.Addr,
		"JM_REDIS_PASSWORD":    &cfg.Redis.Password,
		"JM_MATCHER_TABLES":    &cfg.Matcher.TablesFile,
		"JM_JOBS_SOURCE":       &cfg.Jobs.Source,
		"JM_JOBS_FILE":         &cfg.Jobs.File,
		"JM_LOGGING_LEVEL":     &cfg.Logging.Level,
		"JM_LOGGING_FORMAT":    &cfg.Logging.Format,
		"JM_KAFKA_TOPIC":       &cfg.Kafka.Topics.MatchAnalytics,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("JM_MATCHER_BONUS_PER_SKILL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing JM_MATCHER_BONUS_PER_SKILL: %w", err)
		}
		cfg.Matcher.BonusPerSkill = f
	}
	if v := os.Getenv("JM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JM_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("JM_RATELIMIT_ENABLED"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing JM_RATELIMIT_ENABLED: %w", err)
		}
		cfg.RateLimit.Enabled = on
	}
	return nil
}
