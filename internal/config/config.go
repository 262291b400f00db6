/**
 * @description
 * Server configuration loaded with Viper from environment variables or a .env file.
 *
 * @dependencies
 * - github.com/spf13/viper: For configuration management.
 */
package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the server.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	JWTIssuer                string `mapstructure:"JWT_ISSUER"`
	JWTAudience              string `mapstructure:"JWT_AUDIENCE"`
	AuthAllowHeaderFallback  bool   `mapstructure:"AUTH_ALLOW_HEADER_FALLBACK"`
	CORSAllowedOrigins       string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	EventsExchange           string `mapstructure:"EVENTS_EXCHANGE"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	PublicRateLimitPerMinute int    `mapstructure:"PUBLIC_RATE_LIMIT_PER_MINUTE"`
	OutboxPurgeSchedule      string `mapstructure:"OUTBOX_PURGE_SCHEDULE"`
	OutboxRetentionHours     int    `mapstructure:"OUTBOX_RETENTION_HOURS"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("JWT_ISSUER", "")
	viper.SetDefault("JWT_AUDIENCE", "")
	viper.SetDefault("AUTH_ALLOW_HEADER_FALLBACK", false)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("EVENTS_EXCHANGE", "allrails_events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "allrails:rate_limit")
	viper.SetDefault("PUBLIC_RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("OUTBOX_PURGE_SCHEDULE", "@every 1h")
	viper.SetDefault("OUTBOX_RETENTION_HOURS", 72)

	// Bind envs explicitly so containers pick them up reliably
	for _, key := range []string{
		"SERVER_PORT", "DATABASE_URL", "JWT_SECRET", "JWT_ISSUER", "JWT_AUDIENCE",
		"AUTH_ALLOW_HEADER_FALLBACK", "CORS_ALLOWED_ORIGINS", "RABBITMQ_URL", "EVENTS_EXCHANGE",
		"REDIS_URL", "REDIS_RATE_LIMIT_PREFIX", "PUBLIC_RATE_LIMIT_PER_MINUTE",
		"OUTBOX_PURGE_SCHEDULE", "OUTBOX_RETENTION_HOURS",
	} {
		_ = viper.BindEnv(key)
	}
	// Platform-provided PORT (Railway/Render) wins over SERVER_PORT
	_ = viper.BindEnv("SERVER_PORT", "PORT", "SERVER_PORT")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Error reading config file: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(config.JWTSecret) == "" && !config.AuthAllowHeaderFallback {
		return nil, fmt.Errorf("JWT_SECRET is required unless AUTH_ALLOW_HEADER_FALLBACK is enabled")
	}
	if config.PublicRateLimitPerMinute < 1 {
		config.PublicRateLimitPerMinute = 60
	}
	if config.OutboxRetentionHours < 1 {
		config.OutboxRetentionHours = 72
	}

	return &config, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
