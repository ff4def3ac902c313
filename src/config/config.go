package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"price-relay/src/helpers"
	"price-relay/src/models"
	"price-relay/src/symbols"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "PRICE_RELAY"

	DefaultUpstreamURL       = "wss://stream.binance.com:9443/ws/!ticker@arr"
	DefaultReconnectDelay    = 5
	DefaultKeepAliveSeconds  = 30
	DefaultReadTimeout       = 60
	DefaultWriteTimeout      = 10
	DefaultRedisChannel      = "prices"
	DefaultRedisLatestKey    = "prices:latest"
	DefaultKafkaTopic        = "token-prices"
	DefaultGrpcPort          = 50051
	DefaultStorageDBType     = "sqlite"
	DefaultStorageSQLitePath = "price-relay.db"
)

// DefaultTokens is the tracked token list used when the file names none.
var DefaultTokens = []string{
	"eth", "sol", "near", "usdc", "wbtc", "arb", "op", "strk", "pol",
	"imx", "link", "uni", "aave", "ldo", "crv", "shib", "pepe",
}

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// envOverrides are read from PRICE_RELAY_* after the file is loaded.
type envOverrides struct {
	Port               int      `envconfig:"PORT"`
	GrpcPort           int      `envconfig:"GRPC_PORT"`
	LogLevel           string   `envconfig:"LOG_LEVEL"`
	UpstreamURL        string   `envconfig:"UPSTREAM_URL"`
	DBConnectionString string   `envconfig:"DB_CONNECTION_STRING"`
	RedisAddr          string   `envconfig:"REDIS_ADDR"`
	RedisPassword      string   `envconfig:"REDIS_PASSWORD"`
	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
}

// Option is a function that modifies loading behaviour
type Option func(*loadOptions)

type loadOptions struct {
	envFile   string
	envPrefix string
}

// WithEnvFile loads variables from a .env file before reading the environment.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *loadOptions) { o.envPrefix = prefix }
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from a YAML file, environment
// overrides and defaults, then validates it.
func NewConfig(configPath string, opts ...Option) (*Config, error) {
	o := loadOptions{envFile: ".env", envPrefix: EnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Environment overrides
	if err := config.applyEnv(o); err != nil {
		return nil, err
	}

	config.applyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv(o loadOptions) error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return helpers.NewConfigurationError(fmt.Sprintf("failed to load env file '%s'", o.envFile), err)
		}
	}

	var env envOverrides
	if err := envconfig.Process(o.envPrefix, &env); err != nil {
		return helpers.NewConfigurationError("failed to process environment", err)
	}

	if env.Port != 0 {
		c.Port = env.Port
	}
	if env.GrpcPort != 0 {
		c.GrpcPort = env.GrpcPort
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.UpstreamURL != "" {
		c.Upstream.URL = env.UpstreamURL
	}
	if env.DBConnectionString != "" {
		c.Storage.DBConnectionString = env.DBConnectionString
	}
	if env.RedisAddr != "" {
		c.Redis.Addr = env.RedisAddr
	}
	if env.RedisPassword != "" {
		c.Redis.Password = env.RedisPassword
	}
	if len(env.KafkaBrokers) > 0 {
		c.Kafka.Brokers = env.KafkaBrokers
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = DefaultGrpcPort
	}
	if len(c.Tokens) == 0 {
		c.Tokens = append([]string(nil), DefaultTokens...)
	}
	if len(c.Symbols) == 0 {
		// Built-in table, limited to the tokens actually tracked.
		tracked := make(map[string]struct{}, len(c.Tokens))
		for _, id := range c.Tokens {
			tracked[id] = struct{}{}
		}
		c.Symbols = make(map[string]string)
		for sym, id := range symbols.DefaultBinanceSymbols() {
			if _, ok := tracked[id]; ok {
				c.Symbols[sym] = id
			}
		}
	}
	if c.Upstream.URL == "" {
		c.Upstream.URL = DefaultUpstreamURL
	}
	if c.Upstream.ReconnectDelaySeconds == 0 {
		c.Upstream.ReconnectDelaySeconds = DefaultReconnectDelay
	}
	if c.Upstream.ReadTimeoutSeconds == 0 {
		c.Upstream.ReadTimeoutSeconds = DefaultReadTimeout
	}
	if c.Stream.KeepAliveSeconds == 0 {
		c.Stream.KeepAliveSeconds = DefaultKeepAliveSeconds
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = DefaultStorageDBType
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = DefaultStorageSQLitePath
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = DefaultRedisChannel
	}
	if c.Redis.LatestKey == "" {
		c.Redis.LatestKey = DefaultRedisLatestKey
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = DefaultKafkaTopic
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Tokens
	known := make(map[string]struct{}, len(c.Tokens))
	for i, id := range c.Tokens {
		if id == "" {
			return fmt.Errorf("token %d cannot be empty", i)
		}
		if _, dup := known[id]; dup {
			return fmt.Errorf("token '%s' listed twice", id)
		}
		known[id] = struct{}{}
	}
	for sym, id := range c.Symbols {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("symbol '%s' maps to unknown token '%s'", sym, id)
		}
	}
	for id, sp := range c.StaticPrices {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("static price for unknown token '%s'", id)
		}
		if sp.Price <= 0 {
			return fmt.Errorf("static price for '%s' must be greater than 0", id)
		}
	}

	// Upstream
	u, err := url.Parse(c.Upstream.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("upstream url must be ws:// or wss://: %s", c.Upstream.URL)
	}
	if c.Upstream.ReconnectDelaySeconds <= 0 {
		return fmt.Errorf("reconnect delay must be greater than 0")
	}
	if c.Upstream.ReadTimeoutSeconds <= 0 {
		return fmt.Errorf("upstream read timeout must be greater than 0")
	}
	if c.Stream.KeepAliveSeconds <= 0 {
		return fmt.Errorf("keep-alive interval must be greater than 0")
	}

	// Mirrors
	if c.Storage.Enabled {
		switch c.Storage.DBType {
		case "sqlite":
			if c.Storage.DBPath == "" {
				return fmt.Errorf("database path cannot be empty for sqlite")
			}
		case "postgres":
			if c.Storage.DBConnectionString == "" {
				return fmt.Errorf("database connection string cannot be empty for postgres")
			}
		default:
			return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address cannot be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker must be configured")
	}

	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Upstream.ReconnectDelaySeconds) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Upstream.ReadTimeoutSeconds) * time.Second
}

func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.Stream.KeepAliveSeconds) * time.Second
}

// GrpcEnabled is false when grpc_port is negative.
func (c *Config) GrpcEnabled() bool {
	return c.GrpcPort > 0
}
