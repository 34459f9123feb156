// Package config loads runtime settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Export drivers.
const (
	ExportNone = "none"
	ExportFS   = "fs"
	ExportS3   = "s3"
)

// Config is the full runtime configuration.
type Config struct {
	Addr   string `mapstructure:"addr"`
	WebDir string `mapstructure:"web_dir"`

	StoreDriver string `mapstructure:"store_driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	DatabaseURL string `mapstructure:"database_url"`

	DisableAuth             bool   `mapstructure:"disable_auth"`
	ForwardAuthHeader       string `mapstructure:"forward_auth_header"`
	InitialOperator         string `mapstructure:"initial_operator"`
	InitialOperatorPassword string `mapstructure:"initial_operator_password"`

	OIDCIssuer       string `mapstructure:"oidc_issuer"`
	OIDCClientID     string `mapstructure:"oidc_client_id"`
	OIDCClientSecret string `mapstructure:"oidc_client_secret"`
	OIDCRedirectURL  string `mapstructure:"oidc_redirect_url"`

	ExportDriver      string `mapstructure:"export_driver"`
	ExportDir         string `mapstructure:"export_dir"`
	ExportSchedule    string `mapstructure:"export_schedule"`
	ExportS3Bucket    string `mapstructure:"export_s3_bucket"`
	ExportS3Region    string `mapstructure:"export_s3_region"`
	ExportS3Endpoint  string `mapstructure:"export_s3_endpoint"`
	ExportS3PathStyle bool   `mapstructure:"export_s3_path_style"`
}

// OIDCEnabled reports whether SSO is configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != ""
}

var defaults = map[string]any{
	"addr":                      ":8080",
	"web_dir":                   "",
	"store_driver":              StoreSQLite,
	"sqlite_path":               "data/weighbridge.db",
	"database_url":              "",
	"disable_auth":              false,
	"forward_auth_header":       "",
	"initial_operator":          "",
	"initial_operator_password": "",
	"oidc_issuer":               "",
	"oidc_client_id":            "",
	"oidc_client_secret":        "",
	"oidc_redirect_url":         "",
	"export_driver":             ExportNone,
	"export_dir":                "data/exports",
	"export_schedule":           "",
	"export_s3_bucket":          "",
	"export_s3_region":          "us-east-1",
	"export_s3_endpoint":        "",
	"export_s3_path_style":      false,
}

// Load reads settings from environment variables (ADDR, STORE_DRIVER, ...)
// layered over the file named by CONFIG_FILE, if set, and validates them.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.ExportDriver = strings.ToLower(strings.TrimSpace(cfg.ExportDriver))
	cfg.ForwardAuthHeader = strings.TrimSpace(cfg.ForwardAuthHeader)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver names and the settings each driver needs.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.ExportDriver {
	case ExportNone, ExportFS:
	case ExportS3:
		if c.ExportS3Bucket == "" {
			errs = append(errs, errors.New("EXPORT_S3_BUCKET is required for the s3 export driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EXPORT_DRIVER %q", c.ExportDriver))
	}

	if strings.ContainsAny(c.ForwardAuthHeader, " :\t") {
		errs = append(errs, fmt.Errorf("FORWARD_AUTH_HEADER %q is not a header name", c.ForwardAuthHeader))
	}

	if c.ExportSchedule != "" {
		if c.ExportDriver == ExportNone {
			errs = append(errs, errors.New("EXPORT_SCHEDULE needs an EXPORT_DRIVER"))
		} else if _, err := cron.ParseStandard(c.ExportSchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid EXPORT_SCHEDULE: %w", err))
		}
	}

	if c.OIDCEnabled() && (c.OIDCClientID == "" || c.OIDCRedirectURL == "") {
		errs = append(errs, errors.New("OIDC_CLIENT_ID and OIDC_REDIRECT_URL are required when OIDC_ISSUER is set"))
	}
	if (c.InitialOperator == "") != (c.InitialOperatorPassword == "") {
		errs = append(errs, errors.New("INITIAL_OPERATOR and INITIAL_OPERATOR_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}
