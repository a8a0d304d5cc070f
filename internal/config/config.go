// Package config merges pangloss settings from defaults, a pangloss.toml
// file, PANGLOSS_* environment variables (optionally seeded from a .env file)
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pangloss/internal/cache"
	"pangloss/internal/classify"
	"pangloss/internal/resolve"
)

// EnvPrefix prefixes every environment variable: PANGLOSS_JOBS, PANGLOSS_CACHE_DIR.
const EnvPrefix = "PANGLOSS"

// Keys known to the loader. Flags with these names are bound automatically.
const (
	KeyJobs       = "jobs"
	KeyFormat     = "format"
	KeyConfidence = "confidence"
	KeyModels     = "models"
	KeyCache      = "cache"
	KeyCacheDir   = "cache-dir"
	KeyCacheSize  = "cache-size"
	KeyRedisURL   = "redis-url"
	KeyRedisTTL   = "redis-ttl"
	KeyColor      = "color"
	KeyUI         = "ui"
	KeyTimings    = "timings"
)

var defaults = map[string]any{
	KeyJobs:       1,
	KeyFormat:     "csv",
	KeyConfidence: "literal",
	KeyModels:     "",
	KeyCache:      "off",
	KeyCacheDir:   "",
	KeyCacheSize:  cache.DefaultMemorySize,
	KeyRedisURL:   "",
	KeyRedisTTL:   "0s",
	KeyColor:      "auto",
	KeyUI:         "off",
	KeyTimings:    false,
}

// Config is the merged configuration of a run.
type Config struct {
	Jobs       int           `mapstructure:"jobs"`
	Format     string        `mapstructure:"format"`
	Confidence string        `mapstructure:"confidence"`
	Models     string        `mapstructure:"models"`
	Cache      string        `mapstructure:"cache"`
	CacheDir   string        `mapstructure:"cache-dir"`
	CacheSize  int           `mapstructure:"cache-size"`
	RedisURL   string        `mapstructure:"redis-url"`
	RedisTTL   time.Duration `mapstructure:"redis-ttl"`
	Color      string        `mapstructure:"color"`
	UI         string        `mapstructure:"ui"`
	Timings    bool          `mapstructure:"timings"`

	policy    classify.Policy
	cacheMode cache.Mode
}

// Policy returns the parsed confidence policy.
func (c *Config) Policy() classify.Policy { return c.policy }

// CacheConfig returns the cache backend settings.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Mode:     c.cacheMode,
		Dir:      c.CacheDir,
		Size:     c.CacheSize,
		RedisURL: c.RedisURL,
		TTL:      c.RedisTTL,
	}
}

// FieldError is a validation failure of one configuration key.
type FieldError struct {
	Key string
	Err error
}

func (e *FieldError) Error() string { return e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErrorf(key, format string, args ...any) error {
	return &FieldError{Key: key, Err: fmt.Errorf(format, args...)}
}

// Validate normalizes enumerations and rejects unknown values. The result
// joins one *FieldError per bad key.
func (c *Config) Validate() error {
	var errs []error
	if c.Jobs < 0 {
		errs = append(errs, fieldErrorf(KeyJobs, "jobs must be >= 0, got %d", c.Jobs))
	}
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case "csv", "json", "pretty":
	default:
		errs = append(errs, fieldErrorf(KeyFormat, "invalid format %q (expected csv|json|pretty)", c.Format))
	}
	p, err := classify.ParsePolicy(c.Confidence)
	if err != nil {
		errs = append(errs, &FieldError{Key: KeyConfidence, Err: err})
	}
	c.policy = p
	m, err := cache.ParseMode(c.Cache)
	if err != nil {
		errs = append(errs, &FieldError{Key: KeyCache, Err: err})
	}
	c.cacheMode = m
	if m == cache.ModeRedis && c.RedisURL == "" {
		errs = append(errs, fieldErrorf(KeyCache, "cache=redis requires redis-url"))
	}
	for _, key := range []string{KeyColor, KeyUI} {
		val := &c.Color
		if key == KeyUI {
			val = &c.UI
		}
		*val = strings.ToLower(strings.TrimSpace(*val))
		switch *val {
		case "auto", "on", "off":
		default:
			errs = append(errs, fieldErrorf(key, "invalid %s value %q (expected auto|on|off)", key, *val))
		}
	}
	return errors.Join(errs...)
}

// fromFlags reports whether some key rejected by err was set on the command
// line, which makes err a usage problem rather than a configuration one.
func fromFlags(err error, flags *pflag.FlagSet) bool {
	if flags == nil {
		return false
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var fe *FieldError
		if !errors.As(e, &fe) {
			continue
		}
		if f := flags.Lookup(fe.Key); f != nil && f.Changed {
			return true
		}
	}
	return false
}

// Options tells Load where to look.
type Options struct {
	// File is an explicit config file. Empty searches for pangloss.toml in
	// the working directory and $XDG_CONFIG_HOME/pangloss.
	File string
	// EnvFile is a dotenv file. Empty tries ".env" and ignores its absence.
	EnvFile string
	// Flags are bound by name for every known key that is defined.
	Flags *pflag.FlagSet
}

// Loader wraps a private viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment binding in place.
func NewLoader() *Loader {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load merges every source and validates the result.
func (l *Loader) Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}
	if opts.Flags != nil {
		for k := range defaults {
			if f := opts.Flags.Lookup(k); f != nil {
				if err := l.v.BindPFlag(k, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", k, err)
				}
			}
		}
	}
	if err := l.readFile(opts.File); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		if fromFlags(err, opts.Flags) {
			return nil, &resolve.UsageError{Msg: err.Error()}
		}
		if used := l.v.ConfigFileUsed(); used != "" {
			return nil, fmt.Errorf("%s: %w", used, err)
		}
		return nil, err
	}
	return &cfg, nil
}

// FileUsed returns the config file that was read, if any.
func (l *Loader) FileUsed() string { return l.v.ConfigFileUsed() }

func (l *Loader) readFile(file string) error {
	if file != "" {
		l.v.SetConfigFile(file)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("cannot read config file: %w", err)
		}
		return nil
	}
	l.v.SetConfigName("pangloss")
	l.v.SetConfigType("toml")
	l.v.AddConfigPath(".")
	if dir := configHome(); dir != "" {
		l.v.AddConfigPath(filepath.Join(dir, "pangloss"))
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("cannot read config file: %w", err)
	}
	return nil
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return ""
}

// loadEnvFile copies a dotenv file into the process environment without
// overriding variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
