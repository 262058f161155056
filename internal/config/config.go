package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	// Discord
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/mdiboard.db"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Game data providers
	Region               string `env:"WOW_REGION" envDefault:"eu"`
	DefaultRealm         string `env:"WOW_DEFAULT_REALM" envDefault:"ragnaros"`
	BlizzardClientID     string `env:"BLIZZARD_CLIENT_ID"`
	BlizzardClientSecret string `env:"BLIZZARD_CLIENT_SECRET"`
	RaiderIOKey          string `env:"RAIDERIO_API_KEY"`
	UserAgent            string `env:"USER_AGENT" envDefault:"mdiboard/1.0"`

	// Refresh intervals
	ScoreboardInterval time.Duration `env:"SCOREBOARD_INTERVAL" envDefault:"10m"`
	SignupsInterval    time.Duration `env:"SIGNUPS_INTERVAL" envDefault:"30m"`

	// Scoreboard assets, from a directory unless a bucket is named
	AssetsDir         string `env:"ASSETS_DIR" envDefault:"./assets"`
	AssetsBucket      string `env:"ASSETS_BUCKET"`
	AssetsPrefix      string `env:"ASSETS_PREFIX"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3Region          string `env:"S3_REGION" envDefault:"auto"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	// Tournament
	RosterFile string `env:"ROSTER_FILE"`
	DraftAt    int64  `env:"MDI_DRAFT_AT" envDefault:"1731524400"`
	StartAt    int64  `env:"MDI_START_AT" envDefault:"1732734000"`
	FirstDayAt int64  `env:"MDI_FIRST_DAY_AT" envDefault:"1708543800"`

	// Observability, both off when empty
	StatusAddr string `env:"STATUS_ADDR"`
	NatsURL    string `env:"NATS_URL"`
	EventLog   int    `env:"EVENT_LOG_SIZE" envDefault:"100"`
}

// Load reads the environment, after a .env file if there is one
func Load() (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ScoreboardInterval <= 0 || c.SignupsInterval <= 0 {
		return errors.New("refresh intervals must be positive")
	}
	if c.EventLog <= 0 {
		return errors.New("EVENT_LOG_SIZE must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) DraftTime() time.Time {
	return unix(c.DraftAt)
}

func (c *Config) StartTime() time.Time {
	return unix(c.StartAt)
}

func (c *Config) FirstDayTime() time.Time {
	return unix(c.FirstDayAt)
}

// Zero means unset
func unix(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}
