// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"skill-wager-system/achievements"
	"skill-wager-system/rating"
	"skill-wager-system/settlement"
)

// Config is the full runtime configuration.
type Config struct {
	Port           string   `env:"PORT" envDefault:"5200"`
	AppEnv         string   `env:"APP_ENV" envDefault:"production"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	DBType      string `env:"DB_TYPE" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"wager.db"`

	GatewayToken string `env:"GAME_SERVICE_TOKEN,required"`

	SyncServiceURL string        `env:"SYNC_SERVICE_URL"`
	SyncInterval   time.Duration `env:"SYNC_INTERVAL" envDefault:"1m"`

	MintServiceURL   string `env:"MINT_SERVICE_URL"`
	MintServiceToken string `env:"MINT_SERVICE_TOKEN"`

	MetadataBucket          string `env:"METADATA_BUCKET"`
	MetadataEndpoint        string `env:"METADATA_ENDPOINT"`
	MetadataAccessKeyID     string `env:"METADATA_ACCESS_KEY_ID"`
	MetadataAccessKeySecret string `env:"METADATA_ACCESS_KEY_SECRET"`
	CDNBaseURL              string `env:"CDN_BASE_URL"`

	SystemResolverID    string        `env:"SYSTEM_RESOLVER_ID" envDefault:"system"`
	RetractWindow       time.Duration `env:"RETRACT_WINDOW" envDefault:"5m"`
	ForceCloseMinAge    time.Duration `env:"FORCE_CLOSE_MIN_AGE" envDefault:"24h"`
	OracleMinDelay      time.Duration `env:"ORACLE_MIN_DELAY" envDefault:"0s"`
	AchievementCooldown time.Duration `env:"ACHIEVEMENT_COOLDOWN" envDefault:"1h"`
	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL" envDefault:"1m"`
}

// Load reads .env when present and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DBType {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_TYPE=postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_TYPE %q", c.DBType)
	}
	if c.RetractWindow <= 0 {
		return fmt.Errorf("RETRACT_WINDOW must be positive")
	}
	if c.OracleMinDelay < 0 || c.ForceCloseMinAge < 0 || c.AchievementCooldown < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

func (c *Config) Development() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

func (c *Config) SettlementPolicy() settlement.Policy {
	return settlement.Policy{
		RetractWindow:    c.RetractWindow,
		ForceCloseMinAge: c.ForceCloseMinAge,
		OracleMinDelay:   c.OracleMinDelay,
	}
}

func (c *Config) AchievementPolicy() achievements.Policy {
	return achievements.Policy{Cooldown: c.AchievementCooldown}
}

func (c *Config) RatingParams() rating.Params {
	return rating.DefaultParams()
}

// NewLogger builds the process logger for the environment.
func (c *Config) NewLogger() (*zap.Logger, error) {
	if c.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// OpenDB connects to the configured database.
func (c *Config) OpenDB() (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.DBType {
	case "sqlite":
		dialector = sqlite.Open(c.SQLitePath)
	default:
		dialector = postgres.Open(c.DatabaseURL)
	}
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.DBType, err)
	}
	if c.DBType == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
