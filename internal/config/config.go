// Package config loads the server configuration.
//
// Values are layered in priority order:
//  1. Defaults
//  2. TOML file (-config flag, TASKSPHERE_CONFIG, or tasksphere.toml in the working directory)
//  3. Environment variables (TASKSPHERE_*)
//  4. Command-line flags
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tasksphere/internal/resolver"
	"tasksphere/internal/util"
)

// DefaultConfigFile is looked up in the working directory when no file is named.
const DefaultConfigFile = "tasksphere.toml"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Duration is a time.Duration written as a Go duration string ("300ms").
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	API       APIConfig       `toml:"api"`
	Directory DirectoryConfig `toml:"directory"`
	Log       LogConfig       `toml:"log"`

	// File is the config file that was read, if any.
	File string `toml:"-"`
}

// ServerConfig controls the HTTP listener and what it serves.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	StaticDir      string   `toml:"static_dir"`
	AllowedOrigins []string `toml:"allowed_origins"`

	// Admin mounts the seed, reset and clear routes under /api/admin.
	Admin bool `toml:"admin"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Driver     string `toml:"driver"`
	Path       string `toml:"path"`
	QuotaBytes int64  `toml:"quota_bytes"`
}

// APIConfig tunes the data layer behind the routes.
type APIConfig struct {
	Latency       Duration `toml:"latency"`
	LogoutLatency Duration `toml:"logout_latency"`
	Seed          bool     `toml:"seed"`
	TaskScope     string   `toml:"task_scope"`
}

// DirectoryConfig points at the collaborator directory service.
type DirectoryConfig struct {
	URL      string   `toml:"url"`
	CacheTTL Duration `toml:"cache_ttl"`
	Timeout  Duration `toml:"timeout"`
}

// LogConfig sets the slog level and handler format.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			StaticDir:      "web/dist",
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Driver:     DriverSQLite,
			Path:       "data/tasksphere.db",
			QuotaBytes: 5 * 1024 * 1024,
		},
		API: APIConfig{
			Latency:       Duration(300 * time.Millisecond),
			LogoutLatency: Duration(200 * time.Millisecond),
			Seed:          true,
			TaskScope:     resolver.ScopeCreated.String(),
		},
		Directory: DirectoryConfig{
			URL:      "https://randomuser.me/api",
			CacheTTL: Duration(5 * time.Minute),
			Timeout:  Duration(10 * time.Second),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from every source. fs receives the
// command-line flags and is parsed with args.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	configFlag := fs.String("config", "", "Path to a TOML config file")
	addrFlag := fs.String("addr", "", "HTTP listen address")
	dbFlag := fs.String("db", "", "Path to sqlite database file")
	staticFlag := fs.String("static", "", "Directory with built frontend")
	driverFlag := fs.String("storage", "", "Storage driver: sqlite or memory")
	seedFlag := fs.Bool("seed", cfg.API.Seed, "Write demo data on first start")
	latencyFlag := fs.String("latency", "", "Simulated latency of every data call")
	levelFlag := fs.String("log-level", "", "Log level: debug, info, warn or error")
	adminFlag := fs.Bool("admin", cfg.Server.Admin, "Expose the seed, reset and clear routes")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	path := *configFlag
	if path == "" {
		path = util.EnvOrDefault("TASKSPHERE_CONFIG", "")
	}
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		cfg.File = path
	}

	if err := loadFromEnv(&cfg); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addrFlag
		case "db":
			cfg.Storage.Path = *dbFlag
		case "static":
			cfg.Server.StaticDir = *staticFlag
		case "storage":
			cfg.Storage.Driver = *driverFlag
		case "seed":
			cfg.API.Seed = *seedFlag
		case "latency":
			if err := cfg.API.Latency.UnmarshalText([]byte(*latencyFlag)); err != nil {
				flagErr = fmt.Errorf("-latency: %w", err)
			}
		case "log-level":
			cfg.Log.Level = *levelFlag
		case "admin":
			cfg.Server.Admin = *adminFlag
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFromEnv(cfg *Config) error {
	cfg.Server.Addr = util.EnvOrDefault("TASKSPHERE_ADDR", cfg.Server.Addr)
	cfg.Server.StaticDir = util.EnvOrDefault("TASKSPHERE_STATIC_DIR", cfg.Server.StaticDir)
	if v := util.EnvOrDefault("TASKSPHERE_ALLOWED_ORIGINS", ""); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	cfg.Storage.Driver = util.EnvOrDefault("TASKSPHERE_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = util.EnvOrDefault("TASKSPHERE_DB_PATH", cfg.Storage.Path)
	if v := util.EnvOrDefault("TASKSPHERE_STORAGE_QUOTA", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TASKSPHERE_STORAGE_QUOTA: %w", err)
		}
		cfg.Storage.QuotaBytes = n
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"TASKSPHERE_LATENCY", &cfg.API.Latency},
		{"TASKSPHERE_LOGOUT_LATENCY", &cfg.API.LogoutLatency},
		{"TASKSPHERE_DIRECTORY_TTL", &cfg.Directory.CacheTTL},
		{"TASKSPHERE_DIRECTORY_TIMEOUT", &cfg.Directory.Timeout},
	}
	for _, d := range durations {
		if v := util.EnvOrDefault(d.key, ""); v != "" {
			if err := d.dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s: %w", d.key, err)
			}
		}
	}

	if v := util.EnvOrDefault("TASKSPHERE_ADMIN", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKSPHERE_ADMIN: %w", err)
		}
		cfg.Server.Admin = b
	}

	if v := util.EnvOrDefault("TASKSPHERE_SEED", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKSPHERE_SEED: %w", err)
		}
		cfg.API.Seed = b
	}
	cfg.API.TaskScope = util.EnvOrDefault("TASKSPHERE_TASK_SCOPE", cfg.API.TaskScope)

	cfg.Directory.URL = util.EnvOrDefault("TASKSPHERE_DIRECTORY_URL", cfg.Directory.URL)
	cfg.Log.Level = util.EnvOrDefault("TASKSPHERE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = util.EnvOrDefault("TASKSPHERE_LOG_FORMAT", cfg.Log.Format)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the values that have a closed set of options.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: want %s or %s", c.Storage.Driver, DriverSQLite, DriverMemory))
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path must be set for the sqlite driver"))
	}
	if c.Storage.QuotaBytes < 0 {
		errs = append(errs, fmt.Errorf("storage.quota_bytes %d must not be negative", c.Storage.QuotaBytes))
	}
	if c.API.Latency < 0 || c.API.LogoutLatency < 0 {
		errs = append(errs, errors.New("api latencies must not be negative"))
	}
	if _, err := resolver.ParseScope(c.API.TaskScope); err != nil {
		errs = append(errs, fmt.Errorf("api.task_scope: %w", err))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}

// NewLogger builds the process logger described by l.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
