package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTTTLHours int    `mapstructure:"JWT_TTL_HOURS"`

	TimeZone             string `mapstructure:"TIMEZONE"`
	SlotDurationMinutes  int    `mapstructure:"SLOT_DURATION_MINUTES"`
	BusinessHoursEnabled bool   `mapstructure:"BUSINESS_HOURS_ENABLED"`
	OpeningHour          int    `mapstructure:"OPENING_HOUR"`
	ClosingHour          int    `mapstructure:"CLOSING_HOUR"`

	CORSOrigins    string  `mapstructure:"CORS_ORIGINS"`
	LoginRateRPS   float64 `mapstructure:"LOGIN_RATE_RPS"`
	LoginRateBurst int     `mapstructure:"LOGIN_RATE_BURST"`

	RemindersEnabled    bool   `mapstructure:"REMINDERS_ENABLED"`
	ReminderLeadMinutes int    `mapstructure:"REMINDER_LEAD_MINUTES"`
	SMTPHost            string `mapstructure:"SMTP_HOST"`
	SMTPPort            int    `mapstructure:"SMTP_PORT"`
	EmailUser           string `mapstructure:"EMAIL_USER"`
	EmailPass           string `mapstructure:"EMAIL_PASS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "REDIS_ADDR",
	"JWT_SECRET", "JWT_TTL_HOURS",
	"TIMEZONE", "SLOT_DURATION_MINUTES", "BUSINESS_HOURS_ENABLED", "OPENING_HOUR", "CLOSING_HOUR",
	"CORS_ORIGINS", "LOGIN_RATE_RPS", "LOGIN_RATE_BURST",
	"REMINDERS_ENABLED", "REMINDER_LEAD_MINUTES", "SMTP_HOST", "SMTP_PORT", "EMAIL_USER", "EMAIL_PASS",
}

// Load reads configuration from the environment, falling back to a .env file
// in the working directory when one exists.
func Load() (*Config, error) {
	// a missing .env is fine, the process environment wins anyway
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_TTL_HOURS", 24*30)
	v.SetDefault("TIMEZONE", "Europe/Paris")
	v.SetDefault("SLOT_DURATION_MINUTES", 30)
	v.SetDefault("BUSINESS_HOURS_ENABLED", true)
	v.SetDefault("OPENING_HOUR", 8)
	v.SetDefault("CLOSING_HOUR", 19)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOGIN_RATE_RPS", 1)
	v.SetDefault("LOGIN_RATE_BURST", 5)
	v.SetDefault("REMINDERS_ENABLED", false)
	v.SetDefault("REMINDER_LEAD_MINUTES", 60)
	v.SetDefault("SMTP_PORT", 587)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev_secret_change_me"
	}
	if c.SlotDurationMinutes <= 0 {
		return fmt.Errorf("SLOT_DURATION_MINUTES must be positive, got %d", c.SlotDurationMinutes)
	}
	if c.OpeningHour < 0 || c.ClosingHour > 24 || c.OpeningHour >= c.ClosingHour {
		return fmt.Errorf("invalid business hours %d-%d", c.OpeningHour, c.ClosingHour)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.TimeZone, err)
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the practice time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.SlotDurationMinutes) * time.Minute
}

func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ",")
}
