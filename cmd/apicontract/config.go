package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/loykin/apicontract"
	"github.com/loykin/apicontract/internal/constants"
	"github.com/loykin/apicontract/pkg/env"
	"github.com/loykin/apicontract/pkg/executor"
	"github.com/loykin/apicontract/pkg/spec"
	"github.com/spf13/viper"
)

type SQLiteStoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type PostgresStoreConfig struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	DBName   string `mapstructure:"dbname" yaml:"dbname"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode"`
}

type EnvConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Value        string `mapstructure:"value" yaml:"value"`
	ValueFromEnv string `mapstructure:"valueFromEnv" yaml:"valueFromEnv"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
	// MaskKeys adds header and attribute names to mask on top of the defaults.
	MaskKeys []string `mapstructure:"mask_keys" yaml:"mask_keys"`
}

type StoreConfig struct {
	Disabled    bool                `mapstructure:"disabled" yaml:"disabled"`
	Type        string              `mapstructure:"type" yaml:"type"`
	SQLite      SQLiteStoreConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres    PostgresStoreConfig `mapstructure:"postgres" yaml:"postgres"`
	TablePrefix string              `mapstructure:"table_prefix" yaml:"table_prefix"`
}

type ClientConfig struct {
	Insecure      bool   `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version" yaml:"min_tls_version"`
	MaxTLSVersion string `mapstructure:"max_tls_version" yaml:"max_tls_version"`
}

type ConfigDoc struct {
	SuiteDir        string            `mapstructure:"suite_dir" yaml:"suite_dir"`
	BaseURI         string            `mapstructure:"base_uri" yaml:"base_uri"`
	BasePath        string            `mapstructure:"base_path" yaml:"base_path"`
	Timeout         string            `mapstructure:"timeout" yaml:"timeout"`
	FollowRedirects *bool             `mapstructure:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects    int               `mapstructure:"max_redirects" yaml:"max_redirects"`
	DefaultHeaders  map[string]string `mapstructure:"default_headers" yaml:"default_headers"`
	Env             []EnvConfig       `mapstructure:"env" yaml:"env"`
	Client          ClientConfig      `mapstructure:"client" yaml:"client"`
	Logging         LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Store           StoreConfig       `mapstructure:"store" yaml:"store"`
	PropertiesFile  string            `mapstructure:"properties_file" yaml:"properties_file"`
}

// Load reads the YAML config at path. Keys may be overridden by
// APICONTRACT_* environment variables (e.g. APICONTRACT_BASE_URI).
func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	// Ensure path points to a regular file to avoid opening directories/special files
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	v := viper.New()
	v.SetConfigFile(clean)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APICONTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", clean, err)
	}
	// AutomaticEnv only applies to keys viper already knows about
	for _, k := range []string{"suite_dir", "base_uri", "base_path", "timeout", "properties_file", "store.type", "store.postgres.dsn"} {
		_ = v.BindEnv(k)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("decode config %s: %w", clean, err)
	}
	return nil
}

// GetEnv builds the global env from config values. base_uri is exposed as
// {{.env.base_uri}}. The result is sealed; runners write into clones.
func (c *ConfigDoc) GetEnv() (*env.Env, error) {
	base := env.New()
	if u := strings.TrimSpace(c.BaseURI); u != "" {
		_ = base.SetString("global", "base_uri", u)
	}
	for _, kv := range c.Env {
		if kv.Name == "" {
			continue
		}
		val := kv.Value
		if val == "" && strings.TrimSpace(kv.ValueFromEnv) != "" {
			val = os.Getenv(kv.ValueFromEnv)
			if val == "" {
				slog.Warn("env variable requested but empty or not set", "name", kv.Name, "env_var", kv.ValueFromEnv)
			}
		}
		if err := base.SetString("global", kv.Name, val); err != nil {
			return nil, err
		}
	}
	base.Seal()
	return base, nil
}

// ExecutorConfig maps the document onto an executor configuration.
func (c *ConfigDoc) ExecutorConfig() (executor.Config, error) {
	cfg := executor.Config{
		BaseURI:       strings.TrimSpace(c.BaseURI),
		BasePath:      strings.TrimSpace(c.BasePath),
		Timeout:       constants.DefaultRequestTimeout,
		MaxRedirects:  c.MaxRedirects,
		Insecure:      c.Client.Insecure,
		MinTLSVersion: strings.TrimSpace(c.Client.MinTLSVersion),
		MaxTLSVersion: strings.TrimSpace(c.Client.MaxTLSVersion),
	}
	if t := strings.TrimSpace(c.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return cfg, fmt.Errorf("invalid timeout %q: %w", t, err)
		}
		cfg.Timeout = d
	}
	if c.FollowRedirects != nil && !*c.FollowRedirects {
		cfg.RedirectPolicy = executor.NoRedirects
	}
	if len(c.DefaultHeaders) > 0 {
		names := make([]string, 0, len(c.DefaultHeaders))
		for k := range c.DefaultHeaders {
			names = append(names, k)
		}
		sort.Strings(names)
		b := spec.Given()
		for _, k := range names {
			b.Header(k, c.DefaultHeaders[k])
		}
		cfg.Defaults = b.Build()
	}
	return cfg, nil
}

// SuiteDirectory returns the configured suite directory or the default.
func (c *ConfigDoc) SuiteDirectory() string {
	if d := strings.TrimSpace(c.SuiteDir); d != "" {
		return d
	}
	return constants.DefaultSuiteDir
}

// ToStoreConfig returns nil when no store is configured.
func (c *StoreConfig) ToStoreConfig() *apicontract.StoreConfig {
	if c.Disabled {
		return nil
	}
	stType := strings.ToLower(strings.TrimSpace(c.Type))
	if stType == "" {
		return nil
	}
	tableNames := apicontract.DefaultTableNames(c.TablePrefix)
	if stType == apicontract.DriverPostgres || stType == "postgres" {
		return &apicontract.StoreConfig{
			Driver:     apicontract.DriverPostgres,
			TableNames: tableNames,
			DriverConfig: &apicontract.PostgresConfig{
				DSN:      strings.TrimSpace(c.Postgres.DSN),
				Host:     strings.TrimSpace(c.Postgres.Host),
				Port:     c.Postgres.Port,
				User:     strings.TrimSpace(c.Postgres.User),
				Password: strings.TrimSpace(c.Postgres.Password),
				DBName:   strings.TrimSpace(c.Postgres.DBName),
				SSLMode:  strings.TrimSpace(c.Postgres.SSLMode),
			},
		}
	}
	path := strings.TrimSpace(c.SQLite.Path)
	if path == "" {
		path = apicontract.StoreDBFileName
	}
	return &apicontract.StoreConfig{
		Driver:       apicontract.DriverSqlite,
		TableNames:   tableNames,
		DriverConfig: &apicontract.SqliteConfig{Path: path},
	}
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, ok := apicontract.ParseLogLevel(c.Logging.Level)
	if !ok {
		return fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}

	var logger *apicontract.Logger
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))

	useColor := false
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	} else if format == "color" || format == "colour" {
		useColor = true
	}

	switch format {
	case "json":
		logger = apicontract.NewJSONLogger(level)
	case "color", "colour":
		logger = apicontract.NewColorLogger(level)
	case "text", "":
		if useColor {
			logger = apicontract.NewColorLogger(level)
		} else {
			logger = apicontract.NewLogger(level)
		}
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	if logger != nil && c.Logging.Color != nil {
		logger.SetColor(*c.Logging.Color)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	logger.MaskKeys(c.Logging.MaskKeys...)
	apicontract.SetDefaultLogger(logger)
	apicontract.EnableMasking(maskingEnabled)

	logger.Debug("logging configured",
		"level", level.String(),
		"format", format,
		"color", useColor,
		"mask_sensitive", maskingEnabled)
	return nil
}
