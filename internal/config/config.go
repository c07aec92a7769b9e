package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds the application settings.
type Config struct {
	AppPort    string
	AppVersion string

	LogLevel string
	JSONLogs bool

	DB       DatabaseConfig
	Queue    QueueConfig
	Auth     AuthConfig
	Password PasswordConfig
}

// DatabaseConfig selects and configures the relational store.
type DatabaseConfig struct {
	Driver          string // postgres | sqlite | memory
	User            string
	Password        string
	Host            string
	Port            int
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// QueueConfig configures the RabbitMQ broker.
type QueueConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	DefaultQueue string
}

// AuthConfig configures JWT issuance.
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type PasswordConfig struct {
	BcryptCost int
}

// Load reads configuration from a .env file (when present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JSON_LOGS", false)

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "questrya.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("QUEUE_ENABLED", true)
	v.SetDefault("QUEUE_HOST", "localhost")
	v.SetDefault("QUEUE_PORT", 5672)
	v.SetDefault("QUEUE_USER", "guest")
	v.SetDefault("QUEUE_PASSWORD", "guest")
	v.SetDefault("DEFAULT_QUEUE_NAME", "default")

	v.SetDefault("ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppPort:    v.GetString("APP_PORT"),
		AppVersion: v.GetString("APP_VERSION"),
		LogLevel:   strings.ToLower(v.GetString("LOG_LEVEL")),
		JSONLogs:   v.GetBool("JSON_LOGS"),
		DB: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			User:            v.GetString("DATABASE_USER"),
			Password:        v.GetString("DATABASE_PASSWORD"),
			Host:            v.GetString("DATABASE_HOST"),
			Port:            v.GetInt("DATABASE_PORT"),
			Name:            v.GetString("DATABASE_NAME"),
			SSLMode:         v.GetString("DATABASE_SSLMODE"),
			SQLitePath:      v.GetString("SQLITE_PATH"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Queue: QueueConfig{
			Enabled:      v.GetBool("QUEUE_ENABLED"),
			Host:         v.GetString("QUEUE_HOST"),
			Port:         v.GetInt("QUEUE_PORT"),
			User:         v.GetString("QUEUE_USER"),
			Password:     v.GetString("QUEUE_PASSWORD"),
			DefaultQueue: v.GetString("DEFAULT_QUEUE_NAME"),
		},
		Auth: AuthConfig{
			JWTSecret:       v.GetString("JWT_SECRET_KEY"),
			AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
			RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
		},
		Password: PasswordConfig{
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	switch c.DB.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

// DatabaseDSN returns the postgres connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DB.Host, c.DB.User, c.DB.Password, c.DB.Name, c.DB.Port, c.DB.SSLMode)
}

// QueueURL returns the AMQP URL of the broker.
func (c *Config) QueueURL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.Queue.User, c.Queue.Password),
		Host:   fmt.Sprintf("%s:%d", c.Queue.Host, c.Queue.Port),
		Path:   "/",
	}
	return u.String()
}
