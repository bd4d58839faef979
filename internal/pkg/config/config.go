// Package config assembles the typed runtime settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
)

type Config struct {
	AppHost      string `validate:"required"`
	AppPort      string `validate:"required,numeric"`
	PublicDomain string `validate:"required,url"`

	StripeSecretKey     string `validate:"required"`
	StripeClientID      string `validate:"required"`
	StripeWebhookSecret string `validate:"required"`

	DiscordToken            string `validate:"required"`
	DiscordGuildID          string `validate:"omitempty,numeric"`
	DiscordSubscriberRoleID string `validate:"omitempty,numeric"`

	SessionSecret string        `validate:"required,min=16"`
	StateTTL      time.Duration `validate:"gt=0"`

	RoleQueueWorkers int `validate:"gte=1,lte=16"`

	MetricsUser     string
	MetricsPassword string
}

// Load reads the configuration from the environment without validating it.
func Load() *Config {
	host := env.GetEnv("APP_HOST", "localhost")
	port := env.GetEnv("APP_PORT", "5000")

	publicDomain := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if publicDomain == "" {
		publicDomain = fmt.Sprintf("http://%s:%s", host, port)
	}

	return &Config{
		AppHost:                 host,
		AppPort:                 port,
		PublicDomain:            publicDomain,
		StripeSecretKey:         strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		StripeClientID:          strings.TrimSpace(env.GetEnv("STRIPE_CLIENT_ID", "")),
		StripeWebhookSecret:     strings.TrimSpace(env.FirstEnv("", "STRIPE_WEBHOOK_SECRET", "STRIPE_ENDPOINT_SECRET")),
		DiscordToken:            strings.TrimSpace(env.GetEnv("DISCORD_TOKEN", "")),
		DiscordGuildID:          strings.TrimSpace(env.GetEnv("DISCORD_GUILD_ID", "")),
		DiscordSubscriberRoleID: strings.TrimSpace(env.GetEnv("DISCORD_SUBSCRIBER_ROLE_ID", "")),
		SessionSecret:           env.FirstEnv("", "SESSION_SECRET", "FLASK_SECRET_KEY"),
		StateTTL:                time.Duration(env.GetEnvInt("OAUTH_STATE_TTL_MINUTES", 15)) * time.Minute,
		RoleQueueWorkers:        env.GetEnvInt("ROLE_QUEUE_WORKERS", 1),
		MetricsUser:             env.GetEnv("METRICS_USER", "admin"),
		MetricsPassword:         env.GetEnv("METRICS_PASSWORD", ""),
	}
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// ListenAddr is the fiber listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}
