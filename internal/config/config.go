package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ServiceName    = "storefront"
	ServiceVersion = "0.1.0"
)

const (
	LogsPath      = "/v1/logs"
	TracesPath    = "/v1/traces"
	ExportTimeout = 30 * time.Second
	MaxQueueSize  = 2048
)

// FileEnv names the optional YAML file read before the environment.
const FileEnv = "STOREFRONT_CONFIG"

type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	DatabaseURL     string        `yaml:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	KafkaBrokers    []string      `yaml:"kafka_brokers"`
	OtelEndpoint    string        `yaml:"otel_endpoint"`
	OtelAuthHeader  string        `yaml:"otel_auth_header"`
	LogLevel        string        `yaml:"log_level"`
	SeedDemoData    bool          `yaml:"seed_demo_data"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// UsesPostgres reports whether a database is configured. Without one the
// service keeps its data in memory.
func (c *Config) UsesPostgres() bool { return c.DatabaseURL != "" }

// UsesKafka reports whether events go to Kafka rather than the in-process bus.
func (c *Config) UsesKafka() bool { return len(c.KafkaBrokers) > 0 }

// UsesOtel reports whether traces and logs are exported.
func (c *Config) UsesOtel() bool { return c.OtelEndpoint != "" }

func defaults() *Config {
	return &Config{
		HTTPAddr:        ":8080",
		MaxOpenConns:    10,
		LogLevel:        "info",
		SeedDemoData:    true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the configuration: defaults, then the YAML file named by
// STOREFRONT_CONFIG, then environment variables.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := defaults()

	if path := getenv(FileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	env := envReader{getenv: getenv}
	cfg.HTTPAddr = env.str("HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseURL = env.str("DATABASE_URL", cfg.DatabaseURL)
	cfg.MaxOpenConns = env.integer("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.KafkaBrokers = env.list("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.OtelEndpoint = env.str("OTEL_ENDPOINT", cfg.OtelEndpoint)
	cfg.OtelAuthHeader = env.str("OTEL_AUTH_HEADER", cfg.OtelAuthHeader)
	cfg.LogLevel = env.str("LOG_LEVEL", cfg.LogLevel)
	cfg.SeedDemoData = env.boolean("SEED_DEMO_DATA", cfg.SeedDemoData)
	cfg.ShutdownTimeout = env.duration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if env.err != nil {
		return nil, env.err
	}

	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max_open_conns must be positive, got %d", cfg.MaxOpenConns)
	}
	return cfg, nil
}

// envReader keeps the first parse error so Load can report it once.
type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) str(key, fallback string) string {
	if val := e.getenv(key); val != "" {
		return val
	}
	return fallback
}

func (e *envReader) integer(key string, fallback int) int {
	val := e.getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		e.fail(key, val, err)
		return fallback
	}
	return n
}

func (e *envReader) boolean(key string, fallback bool) bool {
	val := e.getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		e.fail(key, val, err)
		return fallback
	}
	return b
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	val := e.getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		e.fail(key, val, err)
		return fallback
	}
	return d
}

func (e *envReader) list(key string, fallback []string) []string {
	val := e.getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *envReader) fail(key, val string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q: %w", key, val, err)
	}
}
