package models

// MConfig Structure
type MConfig struct {
	Name         string                  `yaml:"name"`
	Host         string                  `yaml:"host"`
	Port         int                     `yaml:"port"`
	LogLevel     string                  `yaml:"log_level"`
	GrpcHost     string                  `yaml:"grpc_host"`
	GrpcPort     int                     `yaml:"grpc_port"`
	CorsOrigins  []string                `yaml:"cors_origins"`
	Tokens       []string                `yaml:"tokens"`
	Symbols      map[string]string       `yaml:"symbols"` // upstream symbol -> token id
	StaticPrices map[string]MStaticPrice `yaml:"static_prices"`
	Upstream     MUpstreamConfig         `yaml:"upstream"`
	Stream       MStreamConfig           `yaml:"stream"`
	Network      MNetworkConfig          `yaml:"network"`
	Storage      MStorageConfig          `yaml:"storage"`
	Redis        MRedisConfig            `yaml:"redis"`
	Kafka        MKafkaConfig            `yaml:"kafka"`
}

type MStaticPrice struct {
	Price                    float64 `yaml:"price"`
	PriceChangePercentage24h float64 `yaml:"change_percent_24h"`
}

type MUpstreamConfig struct {
	URL                   string `yaml:"url"`
	ReconnectDelaySeconds int    `yaml:"reconnect_delay_seconds"`
	ReadTimeoutSeconds    int    `yaml:"read_timeout_seconds"` // no message within this window = stale
}

type MStreamConfig struct {
	KeepAliveSeconds int `yaml:"keepalive_seconds"`
	WriteTimeout     int `yaml:"write_timeout_seconds"`
}

type MNetworkConfig struct {
	Proxies          []string `yaml:"proxies"`
	HandshakeTimeout int      `yaml:"handshake_timeout"`
	UserAgent        string   `yaml:"user_agent"`
}

type MStorageConfig struct {
	Enabled            bool   `yaml:"enabled"`
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	WarmStart          bool   `yaml:"warm_start"`
}

type MRedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Channel   string `yaml:"channel"`
	LatestKey string `yaml:"latest_key"`
}

type MKafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}
