package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Identity resolvers.
const (
	IdentityHeader  = "header"
	IdentityRemote  = "remote"
	IdentitySession = "session"
)

type Config struct {
	AppPort  int    `mapstructure:"APP_PORT" validate:"gt=0,lte=65535"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// AI Search binding. An empty base URL or search ID leaves the chat
	// endpoint unconfigured; it then answers with a configuration error.
	AIBaseURL         string        `mapstructure:"AI_BASE_URL" validate:"omitempty,url"`
	AIAPIToken        string        `mapstructure:"AI_API_TOKEN"`
	AISearchID        string        `mapstructure:"AI_SEARCH_ID"`
	AIResponseTimeout time.Duration `mapstructure:"AI_RESPONSE_TIMEOUT" validate:"gte=0"`

	StoreDriver   string `mapstructure:"STORE_DRIVER" validate:"oneof=sqlite redis memory"`
	DatabasePath  string `mapstructure:"DATABASE_PATH" validate:"required_if=StoreDriver sqlite"`
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required_if=StoreDriver redis"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0"`

	IdentityResolver string `mapstructure:"IDENTITY_RESOLVER" validate:"oneof=header remote session"`
	IdentityHeader   string `mapstructure:"IDENTITY_HEADER" validate:"required_if=IdentityResolver header"`
	SessionSecret    string `mapstructure:"SESSION_SECRET" validate:"required_if=IdentityResolver session"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=0"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// AIConfigured reports whether the AI Search binding is complete.
func (c *Config) AIConfigured() bool {
	return c.AIBaseURL != "" && c.AISearchID != ""
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("AI_BASE_URL", "")
	viper.SetDefault("AI_API_TOKEN", "")
	viper.SetDefault("AI_SEARCH_ID", "")
	viper.SetDefault("AI_RESPONSE_TIMEOUT", 60*time.Second)
	viper.SetDefault("STORE_DRIVER", StoreSQLite)
	viper.SetDefault("DATABASE_PATH", "/data/chat.db")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("IDENTITY_RESOLVER", IdentityHeader)
	viper.SetDefault("IDENTITY_HEADER", "cf-connecting-ip")
	viper.SetDefault("SESSION_SECRET", "")
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./backend")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags once at startup so the rest of the
// program can trust the values it is handed.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
