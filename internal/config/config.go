package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config is the service configuration, read from the environment and
// optionally a .env or config.env file in the working directory.
type Config struct {
	App    AppConfig
	HTTP   HTTPConfig
	DB     DBConfig
	Redis  RedisConfig
	Minio  MinioConfig
	Ledger LedgerConfig
	Jobs   JobsConfig
}

type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

type HTTPConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

type DBConfig struct {
	Driver       string // postgres or memory
	DatabaseURL  string
	EnsureSchema bool
}

// RedisConfig is optional; an empty Addr disables caching.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	LocationTTL time.Duration
	StockTTL    time.Duration
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// MinioConfig is optional; an empty Endpoint disables report archiving.
type MinioConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	ReportBucket string
	URLExpiry    time.Duration
}

func (c MinioConfig) Enabled() bool { return c.Endpoint != "" }

type LedgerConfig struct {
	MaxRetries int           // compare-and-swap attempts in the memory store
	OpTimeout  time.Duration // per ledger call
}

type JobsConfig struct {
	ReconcileInterval time.Duration
	ReconcileEnabled  bool
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Name:     v.GetString("APP_NAME"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		HTTP: HTTPConfig{
			Port:            v.GetInt("PORT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		DB: DBConfig{
			Driver:       strings.ToLower(v.GetString("STORE_DRIVER")),
			DatabaseURL:  v.GetString("DATABASE_URL"),
			EnsureSchema: v.GetBool("DB_ENSURE_SCHEMA"),
		},
		Redis: RedisConfig{
			Addr:        v.GetString("REDIS_ADDR"),
			Password:    v.GetString("REDIS_PASSWORD"),
			DB:          v.GetInt("REDIS_DB"),
			LocationTTL: v.GetDuration("CACHE_LOCATION_TTL"),
			StockTTL:    v.GetDuration("CACHE_STOCK_TTL"),
		},
		Minio: MinioConfig{
			Endpoint:     v.GetString("MINIO_ENDPOINT"),
			AccessKey:    v.GetString("MINIO_ACCESS_KEY"),
			SecretKey:    v.GetString("MINIO_SECRET_KEY"),
			UseSSL:       v.GetBool("MINIO_USE_SSL"),
			ReportBucket: v.GetString("REPORT_BUCKET"),
			URLExpiry:    v.GetDuration("REPORT_URL_EXPIRY"),
		},
		Ledger: LedgerConfig{
			MaxRetries: v.GetInt("LEDGER_MAX_RETRIES"),
			OpTimeout:  v.GetDuration("LEDGER_OP_TIMEOUT"),
		},
		Jobs: JobsConfig{
			ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
			ReconcileEnabled:  v.GetBool("RECONCILE_ENABLED"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "fleetledger")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", 8080)
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("DB_ENSURE_SCHEMA", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_LOCATION_TTL", 10*time.Minute)
	v.SetDefault("CACHE_STOCK_TTL", 30*time.Second)
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("REPORT_BUCKET", "ledger-reports")
	v.SetDefault("REPORT_URL_EXPIRY", 24*time.Hour)
	v.SetDefault("LEDGER_MAX_RETRIES", 5)
	v.SetDefault("LEDGER_OP_TIMEOUT", 5*time.Second)
	v.SetDefault("RECONCILE_INTERVAL", time.Hour)
	v.SetDefault("RECONCILE_ENABLED", true)
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case StoreDriverPostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.DB.Driver)
	}
	if c.Ledger.MaxRetries <= 0 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must be positive")
	}
	if c.Ledger.OpTimeout <= 0 {
		return fmt.Errorf("LEDGER_OP_TIMEOUT must be positive")
	}
	if c.Minio.Enabled() && (c.Minio.AccessKey == "" || c.Minio.SecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	return nil
}
