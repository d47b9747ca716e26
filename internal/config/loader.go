package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigPath  = "RELAYCHAT_CONFIG"
	dotEnvFileName = ".env"
)

// Load builds configuration from defaults, an optional YAML file, a .env file
// in the working directory, and process environment variables.
// Precedence: defaults < config file < .env < process env.
// It returns the config file path that was used, or "" when none was.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	if err := loadDotEnv(logger, dotEnvFileName); err != nil {
		return cfg, "", err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("port", cfg.Port)
	v.SetDefault("cors_origin", cfg.CORSOrigin)
	v.SetDefault("jwt_secret", cfg.JWTSecret)
	v.SetDefault("node_env", cfg.Env)
	v.SetDefault("static_dir", cfg.StaticDir)
	v.SetDefault("db_driver", cfg.DBDriver)
	v.SetDefault("mongodb_uri", cfg.MongoURI)
	v.SetDefault("mongodb_database", cfg.MongoDatabase)
	v.SetDefault("db_path", cfg.DatabasePath)
	v.SetDefault("db_connect_timeout", cfg.DBConnectTimeout)
	v.SetDefault("jwt_issuer", cfg.JWTIssuer)
	v.SetDefault("jwt_audience", cfg.JWTAudience)
	v.SetDefault("jwt_ttl", cfg.JWTTTL)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("max_body_bytes", cfg.MaxBodyBytes)
	v.SetDefault("max_message_bytes", cfg.MaxMessageBytes)
	v.SetDefault("ws_rate_limit", cfg.WSRateLimit)

	// Keys map 1:1 to unprefixed variables: port -> PORT, node_env -> NODE_ENV.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
		if logger != nil {
			logger.Info().Str("path", configPath).Msg("loaded config file")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DBDriver != DriverMongo && cfg.DBDriver != DriverSQLite {
		return cfg, configPath, fmt.Errorf("unknown db_driver %q", cfg.DBDriver)
	}
	if err := validateOrigin(cfg.CORSOrigin); err != nil {
		return cfg, configPath, fmt.Errorf("cors_origin: %w", err)
	}

	return cfg, configPath, nil
}

// validateOrigin accepts a bare browser origin: http or https scheme, a host,
// and nothing after it.
func validateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("parse %q: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must start with http:// or https://", origin)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", origin)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%q must be an origin without path, query or fragment", origin)
	}
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	return os.Getenv(envConfigPath)
}

// loadDotEnv copies KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is fine.
func loadDotEnv(logger *zerolog.Logger, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(key)
		if _, ok := os.LookupEnv(envKey); ok {
			continue
		}
		if err := os.Setenv(envKey, v.GetString(key)); err != nil {
			return fmt.Errorf("set %s: %w", envKey, err)
		}
	}

	if logger != nil {
		logger.Debug().Str("path", path).Int("keys", len(v.AllKeys())).Msg("loaded dotenv file")
	}
	return nil
}

// WriteDefault writes cfg as YAML to path, creating parent directories.
func WriteDefault(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
