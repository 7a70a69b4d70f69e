// Package config loads service settings from the environment and an optional
// YAML file. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverTables = "tables"
)

// Config is the full service configuration.
type Config struct {
	Debug      bool   `mapstructure:"debug"`
	ListenPort string `mapstructure:"listen_port"`

	StorageDriver           string `mapstructure:"storage_driver"`
	SQLitePath              string `mapstructure:"sqlite_path"`
	StorageConnectionString string `mapstructure:"storage_connection_string"`
	ColumnsTable            string `mapstructure:"columns_table"`
	TasksTable              string `mapstructure:"tasks_table"`

	RedisConnectionString string        `mapstructure:"redis_connection_string"`
	DeduperTTL            time.Duration `mapstructure:"deduper_ttl"`
	SubscribeRetryDelay   time.Duration `mapstructure:"subscribe_retry_delay"`

	Auth0Domain   string `mapstructure:"auth0_domain"`
	Auth0Audience string `mapstructure:"auth0_audience"`
	Auth0TestMode bool   `mapstructure:"auth0_test_mode"`
	TestJWTSecret string `mapstructure:"test_jwt_secret"`
}

var defaults = map[string]any{
	"debug":                     false,
	"listen_port":               "8080",
	"storage_driver":            DriverSQLite,
	"sqlite_path":               "data/board.db",
	"storage_connection_string": "",
	"columns_table":             "Columns",
	"tasks_table":               "Tasks",
	"redis_connection_string":   "",
	"deduper_ttl":               "24h",
	"subscribe_retry_delay":     "3s",
	"auth0_domain":              "",
	"auth0_audience":            "",
	"auth0_test_mode":           false,
	"test_jwt_secret":           "",
}

// Load reads the configuration. path names an optional YAML file; the empty
// string skips it.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, err
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	return cfg, nil
}

// Validate checks the settings the server needs. The migrate command only
// needs the storage part; see ValidateStorage.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateStorage(); err != nil {
		errs = append(errs, err)
	}
	if c.RedisConnectionString == "" {
		errs = append(errs, errors.New("missing redis config"))
	}
	if c.DeduperTTL <= 0 {
		errs = append(errs, errors.New("invalid DEDUPER_TTL: must be greater than zero"))
	}
	if c.SubscribeRetryDelay <= 0 {
		errs = append(errs, errors.New("invalid SUBSCRIBE_RETRY_DELAY: must be greater than zero"))
	}
	if c.Auth0TestMode {
		if c.TestJWTSecret == "" {
			errs = append(errs, errors.New("TEST_JWT_SECRET must be set when AUTH0_TEST_MODE=1"))
		}
	} else if c.Auth0Domain == "" || c.Auth0Audience == "" {
		errs = append(errs, errors.New("missing Auth0 config"))
	}
	if c.ListenPort == "" {
		errs = append(errs, errors.New("missing LISTEN_PORT"))
	}
	return errors.Join(errs...)
}

// ValidateStorage checks the settings of the selected storage driver.
func (c *Config) ValidateStorage() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	case DriverTables:
		if c.StorageConnectionString == "" || c.ColumnsTable == "" || c.TasksTable == "" {
			return errors.New("missing storage config")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}

// JWKSURL is where the Auth0 signing keys are published.
func (c *Config) JWKSURL() string {
	return fmt.Sprintf("https://%s/.well-known/jwks.json", c.Auth0Domain)
}

// Issuer is the expected token issuer.
func (c *Config) Issuer() string {
	return "https://" + c.Auth0Domain + "/"
}

// ListenAddr is the address the HTTP server binds.
func (c *Config) ListenAddr() string {
	return ":" + c.ListenPort
}
