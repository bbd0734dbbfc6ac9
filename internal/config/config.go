// Package config loads the portal configuration.
//
// Values come from, in increasing priority: built-in defaults, an optional
// cmsportal.yaml in the working directory or ./config, dotenv files, the
// process environment (prefix CMSPORTAL_, dots become underscores) and
// command-line flags bound by the caller.
//
//	CMSPORTAL_API_BASE_URL=https://api.nanacaring.test
//	CMSPORTAL_PREFS_BACKEND=s3
//	CMSPORTAL_PREFS_BUCKET=portal-prefs
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nanacaring/cmsportal/internal/errors"
)

// EnvPrefix prefixes every environment variable read by the portal.
const EnvPrefix = "CMSPORTAL"

// Preference backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendS3     = "s3"
)

type Config struct {
	// Env is dev, test or prod.
	Env string `mapstructure:"env"`
	// Debug enables the action logger middleware.
	Debug bool `mapstructure:"debug"`

	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
	DB      DBConfig      `mapstructure:"db"`
	Prefs   PrefsConfig   `mapstructure:"prefs"`
	Rollbar RollbarConfig `mapstructure:"rollbar"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins limits websocket upgrades. Empty allows same-origin only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// PingInterval is the websocket heartbeat period.
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
}

type AuthConfig struct {
	// Local enables the admin_users table as the first authenticator.
	Local    bool          `mapstructure:"local"`
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type DBConfig struct {
	// Driver is postgres or sqlite3.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type PrefsConfig struct {
	Backend string `mapstructure:"backend"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
	Region  string `mapstructure:"region"`
	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string `mapstructure:"endpoint"`
}

type RollbarConfig struct {
	Token string `mapstructure:"token"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("env", "dev")
	v.SetDefault("debug", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.ping_interval", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.cache_ttl", 30*time.Second)
	v.SetDefault("api.cache_size", 256)

	v.SetDefault("auth.local", false)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 8*time.Hour)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.dsn", "")

	v.SetDefault("prefs.backend", BackendMemory)
	v.SetDefault("prefs.bucket", "")
	v.SetDefault("prefs.prefix", "prefs/")
	v.SetDefault("prefs.region", "")
	v.SetDefault("prefs.endpoint", "")

	v.SetDefault("rollbar.token", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "cmsportal")

	v.SetDefault("tracing.enabled", false)
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// Dir is the project directory holding .env, config/ and cmsportal.yaml.
	// Defaults to the working directory.
	Dir string
	// Flags are bound over every other source. Flag names use dashes for
	// the key's dots and underscores, e.g. --server-addr.
	Flags *pflag.FlagSet
}

// Load reads and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.New("C006").Wrap(err)
		}
		dir = wd
	}

	env := strings.ToLower(os.Getenv(EnvPrefix + "_ENV"))
	if env == "" {
		env = "dev"
	}
	if err := loadDotEnv(filepath.Join(dir, ".env"), filepath.Join(dir, "config", ".env."+env)); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("cmsportal")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(filepath.Join(dir, "config"))
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Newf(errors.CategoryConfig, "read config file").Wrap(err)
		}
	}

	if opts.Flags != nil {
		for _, key := range v.AllKeys() {
			name := strings.NewReplacer(".", "-", "_", "-").Replace(key)
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Newf(errors.CategoryConfig, "bind flag --%s", name).Wrap(err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Newf(errors.CategoryConfig, "decode config").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads each existing file. Variables already set in the
// environment win, so earlier files take precedence over later ones.
func loadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.New("C006").WithDetail(path).Wrap(err)
		}
		if err := godotenv.Load(path); err != nil {
			return errors.New("C006").WithDetail(path).Wrap(err)
		}
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, port, err := net.SplitHostPort(c.Server.Addr); err != nil || port == "" {
		return errors.New("C001").WithDetail(fmt.Sprintf("%q", c.Server.Addr))
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("C002").WithDetail(fmt.Sprintf("%q", c.API.BaseURL))
	}

	switch c.Prefs.Backend {
	case BackendMemory:
	case BackendSQL:
		if c.DB.Driver == "" || c.DB.DSN == "" {
			return errors.New("C004").WithDetail("sql backend")
		}
	case BackendS3:
		if c.Prefs.Bucket == "" {
			return errors.New("C004").WithDetail("s3 backend")
		}
	default:
		return errors.New("C003").WithDetail(fmt.Sprintf("%q", c.Prefs.Backend))
	}

	if c.Auth.Local {
		if c.Auth.Secret == "" {
			return errors.New("C007")
		}
		if c.DB.Driver == "" || c.DB.DSN == "" {
			return errors.New("C004").WithDetail("local authentication needs db.driver and db.dsn")
		}
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New("C005").WithDetail(fmt.Sprintf("%q", c.Log.Level))
	}
	return level, nil
}

// Logger builds the process logger: JSON in prod or when Log.Format is
// json, text otherwise.
func (c *Config) Logger() *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" || c.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// IsProd reports whether the portal runs in production.
func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}
