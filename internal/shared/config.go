package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tourism_occupancy/internal/stats"
)

type Config struct {
	AppEnv         string        `env:"APP_ENV" envDefault:"prod"`
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr    string        `env:"METRICS_ADDR"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	MySQLDSN   string `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/tourism?parseTime=true&charset=utf8mb4&loc=UTC"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"tourism.db"`

	RedisAddr string `env:"REDIS_ADDR"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret       string `env:"JWT_SECRET"`
	SuperAdminEmail string `env:"SUPER_ADMIN_EMAIL"`

	DirectoryURL        string `env:"DIRECTORY_URL"`
	DirectoryKey        string `env:"DIRECTORY_API_KEY"`
	DirectoryRPS        int    `env:"DIRECTORY_RPS" envDefault:"10"`
	DirectoryMaxRetries int    `env:"DIRECTORY_MAX_RETRIES" envDefault:"0"`

	Stats StatsConfig

	BackfillWorkers int `env:"BACKFILL_WORKERS" envDefault:"4"`
}

type StatsConfig struct {
	HighSeasonThreshold int     `env:"STATS_HIGH_SEASON_THRESHOLD" envDefault:"50"`
	MonthDays           int     `env:"STATS_MONTH_DAYS" envDefault:"30"`
	TopProvenance       int     `env:"STATS_TOP_PROVENANCE" envDefault:"10"`
	PeakShare           float64 `env:"STATS_PEAK_SHARE" envDefault:"0.2"`
	ScanLimit           int     `env:"STATS_SCAN_LIMIT" envDefault:"50000"`
}

func (s StatsConfig) Options() stats.Options {
	return stats.Options{
		HighSeasonThreshold: s.HighSeasonThreshold,
		MonthDays:           s.MonthDays,
		TopProvenance:       s.TopProvenance,
		PeakShare:           s.PeakShare,
	}
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty, token revocation checks disabled")
	}
	return c, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.DBDriver) {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql or sqlite, got %q", c.DBDriver)
	}
	if c.DirectoryMaxRetries < 0 {
		return fmt.Errorf("DIRECTORY_MAX_RETRIES must not be negative")
	}
	if c.BackfillWorkers <= 0 {
		return fmt.Errorf("BACKFILL_WORKERS must be positive")
	}
	return nil
}
