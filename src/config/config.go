package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration of the service.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Mongo       MongoConfig       `mapstructure:"mongo"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Nats        NatsConfig        `mapstructure:"nats"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Media       MediaConfig       `mapstructure:"media"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
	Connections ConnectionsConfig `mapstructure:"connections"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowOrigins    string        `mapstructure:"allow_origins"`
	BodyLimit       int           `mapstructure:"body_limit"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type MongoConfig struct {
	URI          string        `mapstructure:"uri"`
	Database     string        `mapstructure:"database"`
	Transactions bool          `mapstructure:"transactions"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables the display-info cache when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NatsConfig enables connection event publishing when URL is set.
type NatsConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type MediaConfig struct {
	Dir       string `mapstructure:"dir"`
	URLPrefix string `mapstructure:"url_prefix"`
	MaxSize   int64  `mapstructure:"max_size"`
}

// TracingConfig enables OTLP trace export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Insecure    bool   `mapstructure:"insecure"`
}

type ConnectionsConfig struct {
	// AutoAcceptCrossed turns a request that meets a pending request in the
	// opposite direction into an accepted pair.
	AutoAcceptCrossed bool `mapstructure:"auto_accept_crossed"`
}

// SetDefaults registers every default so the service runs with an empty
// config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.allow_origins", "*")
	v.SetDefault("server.body_limit", 10*1024*1024)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.service_name", "prolinka")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", true)

	v.SetDefault("storage.backend", BackendMongo)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "prolinka")
	v.SetDefault("mongo.transactions", false)
	v.SetDefault("mongo.timeout", 10*time.Second)

	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("nats.subject_prefix", "prolinka")

	v.SetDefault("auth.token_ttl", 7*24*time.Hour)

	v.SetDefault("media.dir", "./uploads")
	v.SetDefault("media.url_prefix", "/uploads")
	v.SetDefault("media.max_size", 10*1024*1024)

	v.SetDefault("tracing.service_name", "prolinka")
	v.SetDefault("tracing.insecure", true)

	v.SetDefault("connections.auto_accept_crossed", false)
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Backend {
	case BackendMongo:
		if c.Mongo.URI == "" {
			problems = append(problems, "mongo.uri is required")
		}
		if c.Mongo.Database == "" {
			problems = append(problems, "mongo.database is required")
		}
		if c.Auth.JWTSecret == "" {
			problems = append(problems, "auth.jwt_secret is required with the mongo backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q must be %q or %q", c.Storage.Backend, BackendMongo, BackendMemory))
	}
	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, "auth.token_ttl must be positive")
	}
	if c.Media.Dir == "" {
		problems = append(problems, "media.dir is required")
	}
	if !strings.HasPrefix(c.Media.URLPrefix, "/") {
		problems = append(problems, "media.url_prefix must start with /")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Storage.Backend == BackendMemory && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "prolinka-dev-secret"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
