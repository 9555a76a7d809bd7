package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Booking struct {
		DefaultCheckInTime   string `mapstructure:"default_check_in_time"`
		DefaultCheckOutTime  string `mapstructure:"default_check_out_time"`
		CalendarCacheMinutes int    `mapstructure:"calendar_cache_minutes"`
	} `mapstructure:"booking"`

	Ledger struct {
		ReconcileIntervalMinutes int `mapstructure:"reconcile_interval_minutes"`
	} `mapstructure:"ledger"`

	Notify struct {
		WebhookURL   string `mapstructure:"webhook_url"`
		WebhookToken string `mapstructure:"webhook_token"`
	} `mapstructure:"notify"`

	Reports struct {
		Enabled   bool   `mapstructure:"enabled"`
		Endpoint  string `mapstructure:"endpoint"`
		Region    string `mapstructure:"region"`
		Bucket    string `mapstructure:"bucket"`
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
		Prefix    string `mapstructure:"prefix"`
	} `mapstructure:"reports"`
}

// SetDefaults registers the values the binary runs with when no config file is present
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "villa-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "villa_db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("booking.default_check_in_time", "14:00")
	v.SetDefault("booking.default_check_out_time", "11:00")
	v.SetDefault("booking.calendar_cache_minutes", 5)
	v.SetDefault("ledger.reconcile_interval_minutes", 10)
	v.SetDefault("reports.region", "auto")
	v.SetDefault("reports.prefix", "reconciliation/")
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")
	v.AutomaticEnv()
	SetDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	applyEnv(&cfg, os.Getenv)

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET not found in environment or config")
	}

	return &cfg
}

// applyEnv overrides file values with the deployment's environment variables
func applyEnv(cfg *Config, getenv func(string) string) {
	if host := getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = getenv("JWT_SECRET")
	}

	if addr := getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pass := getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}

	if url := getenv("NOTIFY_WEBHOOK_URL"); url != "" {
		cfg.Notify.WebhookURL = url
	}
	if token := getenv("NOTIFY_WEBHOOK_TOKEN"); token != "" {
		cfg.Notify.WebhookToken = token
	}

	if bucket := getenv("REPORTS_BUCKET"); bucket != "" {
		cfg.Reports.Bucket = bucket
		cfg.Reports.Enabled = true
	}
	if endpoint := getenv("REPORTS_ENDPOINT"); endpoint != "" {
		cfg.Reports.Endpoint = endpoint
	}
	if key := getenv("REPORTS_ACCESS_KEY"); key != "" {
		cfg.Reports.AccessKey = key
	}
	if secret := getenv("REPORTS_SECRET_KEY"); secret != "" {
		cfg.Reports.SecretKey = secret
	}
}
