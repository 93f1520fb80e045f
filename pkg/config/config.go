package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DBDriver     string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost       string `env:"DB_HOST" envDefault:"postgres"`
	DBPort       string `env:"DB_PORT" envDefault:"5432"`
	DBUser       string `env:"DB_USER" envDefault:"program"`
	DBPassword   string `env:"DB_PASSWORD" envDefault:"test"`
	DBName       string `env:"DB_NAME" envDefault:"peminjaman"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"peminjaman.db"`
	DBMaxRetries int    `env:"DB_MAX_RETRIES" envDefault:"10"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DendaPerHari   int64 `env:"DENDA_PER_HARI" envDefault:"5000"`
	MaksHariPinjam int   `env:"MAKS_HARI_PINJAM" envDefault:"7"`

	UploadDir   string `env:"UPLOAD_DIR" envDefault:"uploads/bukti"`
	MaxUploadMB int64  `env:"MAX_UPLOAD_MB" envDefault:"2"`

	TimeZone string `env:"TIMEZONE" envDefault:"Asia/Jakarta"`
	SeedData bool   `env:"SEED_DATA" envDefault:"false"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.DendaPerHari < 0 {
		return fmt.Errorf("DENDA_PER_HARI must not be negative")
	}
	if c.MaksHariPinjam < 1 {
		return fmt.Errorf("MAKS_HARI_PINJAM must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func (c *Config) FinePerDay() decimal.Decimal {
	return decimal.NewFromInt(c.DendaPerHari)
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
