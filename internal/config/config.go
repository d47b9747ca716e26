package config

import (
	"net"
	"strconv"
	"time"
)

// EnvProduction is the NODE_ENV value that turns on static bundle serving.
const EnvProduction = "production"

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds server configuration values.
type Config struct {
	Port       int    `mapstructure:"port" yaml:"port"`
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin"`
	JWTSecret  string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	Env        string `mapstructure:"node_env" yaml:"node_env"`
	StaticDir  string `mapstructure:"static_dir" yaml:"static_dir"`

	DBDriver         string        `mapstructure:"db_driver" yaml:"db_driver"`
	MongoURI         string        `mapstructure:"mongodb_uri" yaml:"mongodb_uri"`
	MongoDatabase    string        `mapstructure:"mongodb_database" yaml:"mongodb_database"`
	DatabasePath     string        `mapstructure:"db_path" yaml:"db_path"`
	DBConnectTimeout time.Duration `mapstructure:"db_connect_timeout" yaml:"db_connect_timeout"`

	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	WSRateLimit       int           `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Port:       5001,
		CORSOrigin: "http://localhost:5173",
		Env:        "development",
		StaticDir:  "../frontend/dist",

		DBDriver:         DriverMongo,
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "relaychat",
		DatabasePath:     "relaychat.db",
		DBConnectTimeout: 10 * time.Second,

		JWTIssuer:   "relaychat",
		JWTAudience: "relaychat",
		JWTTTL:      7 * 24 * time.Hour,

		LogLevel:  "info",
		LogFormat: "console",

		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxBodyBytes:      10 << 20,
		MaxMessageBytes:   1 << 20,
		WSRateLimit:       120,
	}
}

// Addr returns the listen address for Port.
func (c *Config) Addr() string {
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// IsProduction reports whether NODE_ENV selects production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
