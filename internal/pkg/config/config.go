package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port       string
	CORSOrigin string
	StaticDir  string
	LogLevel   string
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// PostgresConfig backs the LLM interaction log. An empty URL disables it.
type PostgresConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Mongo    MongoConfig
	Postgres PostgresConfig
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type AIConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

type ImagesConfig struct {
	APIKey          string
	BaseURL         string
	WikiBaseURL     string
	PlaceholderPath string
	CacheTTL        time.Duration
}

type WeatherConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AppURL   string
}

type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	PriceID        string
	CreditsPerUnit int
	SuccessURL     string
	CancelURL      string
}

type ObservabilityConfig struct {
	ServiceName  string
	MetricsAddr  string
	OTLPEndpoint string
	PprofAddr    string
}

type JobsConfig struct {
	OrphanSweepSchedule string
}

type RateLimitConfig struct {
	GeneratePerMinute int
	GenerateBurst     int
}

type Config struct {
	Server        ServerConfig
	Repositories  RepositoriesConfig
	Auth          AuthConfig
	AI            AIConfig
	Images        ImagesConfig
	Weather       WeatherConfig
	SMTP          SMTPConfig
	Stripe        StripeConfig
	Observability ObservabilityConfig
	Jobs          JobsConfig
	RateLimit     RateLimitConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8091")
	v.SetDefault("server.cors_origin", "http://localhost:5173")
	v.SetDefault("server.static_dir", "./web/dist")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("mongo.database", "wanderplan")
	v.SetDefault("mongo.timeout", 10*time.Second)
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("images.base_url", "https://api.unsplash.com")
	v.SetDefault("images.wiki_base_url", "https://en.wikipedia.org/wiki")
	v.SetDefault("images.placeholder_path", "./static/placeholder.png")
	v.SetDefault("images.cache_ttl", time.Hour)
	v.SetDefault("weather.base_url", "https://api.open-meteo.com/v1")
	v.SetDefault("weather.cache_ttl", 10*time.Minute)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.app_url", "http://localhost:5173")
	v.SetDefault("stripe.credits_per_unit", 5)
	v.SetDefault("stripe.success_url", "http://localhost:5173/credits?status=success")
	v.SetDefault("stripe.cancel_url", "http://localhost:5173/credits?status=cancel")
	v.SetDefault("observability.service_name", "wanderplan")
	v.SetDefault("observability.metrics_addr", ":9092")
	v.SetDefault("observability.otlp_endpoint", "otel-collector:4318")
	v.SetDefault("observability.pprof_addr", "")
	v.SetDefault("jobs.orphan_sweep_schedule", "@hourly")
	v.SetDefault("ratelimit.generate_per_minute", 6)
	v.SetDefault("ratelimit.generate_burst", 2)
}

// Load reads configuration from defaults, an optional config.yaml and the environment.
// Environment keys are the upper-cased dotted keys with '.' replaced by '_' (e.g. MONGO_URI).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:       v.GetString("server.port"),
			CORSOrigin: v.GetString("server.cors_origin"),
			StaticDir:  v.GetString("server.static_dir"),
			LogLevel:   v.GetString("server.log_level"),
		},
		Repositories: RepositoriesConfig{
			Mongo: MongoConfig{
				URI:      v.GetString("mongo.uri"),
				Database: v.GetString("mongo.database"),
				Timeout:  v.GetDuration("mongo.timeout"),
			},
			Postgres: PostgresConfig{
				URL:      v.GetString("postgres.url"),
				MaxConns: v.GetInt32("postgres.max_conns"),
				MinConns: v.GetInt32("postgres.min_conns"),
			},
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		AI: AIConfig{
			Provider: strings.ToLower(v.GetString("ai.provider")),
			APIKey:   v.GetString("ai.api_key"),
			BaseURL:  v.GetString("ai.base_url"),
			Model:    v.GetString("ai.model"),
			Timeout:  v.GetDuration("ai.timeout"),
		},
		Images: ImagesConfig{
			APIKey:          v.GetString("images.api_key"),
			BaseURL:         v.GetString("images.base_url"),
			WikiBaseURL:     v.GetString("images.wiki_base_url"),
			PlaceholderPath: v.GetString("images.placeholder_path"),
			CacheTTL:        v.GetDuration("images.cache_ttl"),
		},
		Weather: WeatherConfig{
			BaseURL:  v.GetString("weather.base_url"),
			CacheTTL: v.GetDuration("weather.cache_ttl"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
			AppURL:   v.GetString("smtp.app_url"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("stripe.secret_key"),
			WebhookSecret:  v.GetString("stripe.webhook_secret"),
			PriceID:        v.GetString("stripe.price_id"),
			CreditsPerUnit: v.GetInt("stripe.credits_per_unit"),
			SuccessURL:     v.GetString("stripe.success_url"),
			CancelURL:      v.GetString("stripe.cancel_url"),
		},
		Observability: ObservabilityConfig{
			ServiceName:  v.GetString("observability.service_name"),
			MetricsAddr:  v.GetString("observability.metrics_addr"),
			OTLPEndpoint: v.GetString("observability.otlp_endpoint"),
			PprofAddr:    v.GetString("observability.pprof_addr"),
		},
		Jobs: JobsConfig{
			OrphanSweepSchedule: v.GetString("jobs.orphan_sweep_schedule"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerMinute: v.GetInt("ratelimit.generate_per_minute"),
			GenerateBurst:     v.GetInt("ratelimit.generate_burst"),
		},
	}

	if cfg.Repositories.Mongo.URI == "" {
		return nil, fmt.Errorf("MONGO_URI environment variable is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET environment variable is required")
	}
	switch cfg.AI.Provider {
	case "openai", "gemini":
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.AI.Provider)
	}

	return cfg, nil
}
