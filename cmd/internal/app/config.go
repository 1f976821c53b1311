package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// ErrConfig is returned for invalid top-level configuration.
var ErrConfig = errors.New("app: invalid configuration")

// Config contains the top-level runtime configuration.
//
// Subsystems (password hashing, sessions, auth API, solver, realtime) read their own
// AYA_* variables; this struct covers the server, logging and storage.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	Storage    string
	DataDir    string
	SQLitePath string

	DatabaseURL      string
	DatabaseSchema   string
	DBMaxConns       int32
	DBMinConns       int32
	AutoMigrate      bool
	DBStartupTimeout time.Duration

	// AdminSecret gates enrollment. Empty disables it.
	AdminSecret string

	SeedUsername string
	SeedPassword string

	MetricsEnabled bool
}

// NewViper returns a viper instance with defaults, the AYA_ env prefix and the
// "." to "_" key replacer, so "http.addr" reads AYA_HTTP_ADDR.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.read_header_timeout", 5*time.Second)
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 90*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("storage", StorageFile)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("sqlite.path", "")

	v.SetDefault("database.url", "")
	v.SetDefault("database.schema", "aya")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.startup_timeout", 5*time.Second)

	v.SetDefault("admin_secret", "")
	v.SetDefault("seed.username", "")
	v.SetDefault("seed.password", "")

	v.SetDefault("metrics.enabled", true)

	v.SetEnvPrefix("AYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfigFile loads path, or aya.yaml from the working directory or /etc/aya when
// path is empty. A missing default file is not an error.
func ReadConfigFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/aya/")
		v.SetConfigType("yaml")
		v.SetConfigName("aya")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("%w: read config: %v", ErrConfig, err)
	}
	return v.ConfigFileUsed(), nil
}

// LoadConfig builds Config from v and validates it.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v == nil {
		v = NewViper()
	}

	cfg := Config{
		HTTPAddr:  strings.TrimSpace(v.GetString("http.addr")),
		LogLevel:  strings.TrimSpace(v.GetString("log.level")),
		LogFormat: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),

		ReadHeaderTimeout: v.GetDuration("http.read_header_timeout"),
		ReadTimeout:       v.GetDuration("http.read_timeout"),
		WriteTimeout:      v.GetDuration("http.write_timeout"),
		IdleTimeout:       v.GetDuration("http.idle_timeout"),
		ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
		MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),

		Storage:    strings.ToLower(strings.TrimSpace(v.GetString("storage"))),
		DataDir:    strings.TrimSpace(v.GetString("data_dir")),
		SQLitePath: strings.TrimSpace(v.GetString("sqlite.path")),

		DatabaseURL:      strings.TrimSpace(v.GetString("database.url")),
		DatabaseSchema:   strings.TrimSpace(v.GetString("database.schema")),
		DBMaxConns:       v.GetInt32("database.max_conns"),
		DBMinConns:       v.GetInt32("database.min_conns"),
		AutoMigrate:      v.GetBool("database.auto_migrate"),
		DBStartupTimeout: v.GetDuration("database.startup_timeout"),

		AdminSecret: v.GetString("admin_secret"),

		SeedUsername: strings.TrimSpace(v.GetString("seed.username")),
		SeedPassword: v.GetString("seed.password"),

		MetricsEnabled: v.GetBool("metrics.enabled"),
	}

	if cfg.SQLitePath == "" {
		cfg.SQLitePath = filepath.Join(cfg.DataDir, "aya.db")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: empty http address", ErrConfig)
	}

	switch c.LogFormat {
	case "json", "pretty":
	default:
		return fmt.Errorf("%w: log format %q (want json or pretty)", ErrConfig, c.LogFormat)
	}

	switch c.Storage {
	case StorageFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: storage=file requires a data dir", ErrConfig)
		}
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: storage=postgres requires AYA_DATABASE_URL", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrConfig, c.Storage)
	}

	if (c.SeedUsername == "") != (c.SeedPassword == "") {
		return fmt.Errorf("%w: seed username and password must be set together", ErrConfig)
	}
	if c.DBMaxConns < 0 || c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("%w: invalid database pool bounds", ErrConfig)
	}
	return nil
}
