// Package config loads application configuration from an optional .env file and the environment using Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	Session  SessionConfig
	OTP      OTPConfig
	Mail     MailConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TrustedOrigins are allowed to submit cross-origin requests with credentials.
	TrustedOrigins []string
}

type LogConfig struct {
	Level string
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type SessionConfig struct {
	SecretKey    string
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
}

type OTPConfig struct {
	Length int
	Expiry time.Duration
	// MaxAttempts is the number of wrong codes tolerated per challenge. Zero disables the limit.
	MaxAttempts int
}

type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// FailSilently keeps OTP issuance successful when delivery fails.
	FailSilently bool
}

type SecurityConfig struct {
	BcryptCost int
}

// Load reads .env (if present), then the environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("READ_TIMEOUT", "15s")
	v.SetDefault("WRITE_TIMEOUT", "15s")
	v.SetDefault("TRUSTED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DYNAMODB_ENDPOINT", "")
	v.SetDefault("DYNAMODB_REGION", "us-east-1")
	v.SetDefault("DYNAMODB_TABLE_NAME", "RoomLedger")

	v.SetDefault("REDIS_ENDPOINT", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_SECRET_KEY", "")
	v.SetDefault("SESSION_COOKIE_NAME", "sessionid")
	v.SetDefault("SESSION_COOKIE_SECURE", true)
	v.SetDefault("SESSION_TTL", "336h") // two weeks

	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_EXPIRY", "5m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("MAIL_HOST", "smtp.gmail.com")
	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_USERNAME", "")
	v.SetDefault("MAIL_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_FAIL_SILENTLY", false)

	v.SetDefault("BCRYPT_COST", 12)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			ReadTimeout:    v.GetDuration("READ_TIMEOUT"),
			WriteTimeout:   v.GetDuration("WRITE_TIMEOUT"),
			TrustedOrigins: splitList(v.GetString("TRUSTED_ORIGINS")),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  v.GetString("DYNAMODB_ENDPOINT"),
			Region:    v.GetString("DYNAMODB_REGION"),
			TableName: v.GetString("DYNAMODB_TABLE_NAME"),
		},
		Redis: RedisConfig{
			Endpoint: v.GetString("REDIS_ENDPOINT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Session: SessionConfig{
			SecretKey:    v.GetString("SESSION_SECRET_KEY"),
			CookieName:   v.GetString("SESSION_COOKIE_NAME"),
			CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
			TTL:          v.GetDuration("SESSION_TTL"),
		},
		OTP: OTPConfig{
			Length:      v.GetInt("OTP_LENGTH"),
			Expiry:      v.GetDuration("OTP_EXPIRY"),
			MaxAttempts: v.GetInt("OTP_MAX_ATTEMPTS"),
		},
		Mail: MailConfig{
			Enabled:      v.GetBool("MAIL_ENABLED"),
			Host:         v.GetString("MAIL_HOST"),
			Port:         v.GetInt("MAIL_PORT"),
			Username:     v.GetString("MAIL_USERNAME"),
			Password:     v.GetString("MAIL_PASSWORD"),
			From:         v.GetString("MAIL_FROM"),
			FailSilently: v.GetBool("MAIL_FAIL_SILENTLY"),
		},
		Security: SecurityConfig{
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if c.Session.SecretKey == "" {
		return fmt.Errorf("SESSION_SECRET_KEY environment variable is required")
	}
	if len(c.Session.SecretKey) < 32 {
		return fmt.Errorf("SESSION_SECRET_KEY must be at least 32 bytes (256 bits)")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10")
	}
	if c.OTP.Expiry <= 0 {
		return fmt.Errorf("OTP_EXPIRY must be positive")
	}
	if c.OTP.MaxAttempts < 0 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must not be negative")
	}
	if c.Mail.Enabled && c.Mail.From == "" {
		return fmt.Errorf("MAIL_FROM is required when MAIL_ENABLED is true")
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
