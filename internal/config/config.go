package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`

	// Keyed integrity signal on pricing responses and bearer-token verification.
	ChecksumSecret string `env:"CHECKSUM_SECRET,required"`
	AuthSecret     string `env:"AUTH_SECRET,required"`

	Database Database
	Redis    Redis
	SMTP     SMTP
	Admin    Admin

	// Static pricing data. Market documents live under MarketDataDir as <id>.json;
	// baseline rates and zone tables are single JSON files.
	MarketDataDir string `env:"MARKET_DATA_DIR" envDefault:"data/markets"`
	RatesPath     string `env:"RATES_PATH" envDefault:"data/rates.json"`
	ZonesPath     string `env:"ZONES_PATH" envDefault:"data/zones.json"`

	// Every external fetch gets a bounded deadline.
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`

	RateLimit       int64         `env:"RATE_LIMIT" envDefault:"100"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h"`

	WeeklyEstimateLimit int `env:"WEEKLY_ESTIMATE_LIMIT" envDefault:"3"`

	LeadLogPath string `env:"LEAD_LOG_PATH" envDefault:"reports/leads.xlsx"`
}

type Database struct {
	Host            string        `env:"DB_HOST,required"`
	Port            int           `env:"DB_PORT,required"`
	User            string        `env:"DB_USER,required"`
	Password        string        `env:"DB_PASSWORD,required"`
	Name            string        `env:"DB_NAME,required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

type Redis struct {
	Addr     string        `env:"REDIS_ADDR,required"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_TTL" envDefault:"24h"`
}

type SMTP struct {
	Host     string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"EMAIL_USER"`
	Password string `env:"EMAIL_PASSWORD"`
	From     string `env:"EMAIL_FROM"`
}

type Admin struct {
	Email         string  `env:"ADMIN_EMAIL"`
	TelegramToken string  `env:"TELEGRAM_TOKEN"`
	ChannelID     int64   `env:"TELEGRAM_CHANNEL_ID"`
	ChatIDs       []int64 `env:"TELEGRAM_ADMIN_IDS" envSeparator:","`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
	return &cfg, nil
}
