package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	CORSOrigins      string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	EventsChannel    string
	JWTSecret        string
	DefaultLocale    string
	AIAPIKey         string
	AIBaseURL        string
	AIModel          string
	AIMaxTokens      int
	AITemperature    float32
	AITimeout        time.Duration
	AnalysisCacheTTL time.Duration
	SubmitRateLimit  int
	AnalyzeRateLimit int
	RateLimitWindow  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CODEMENTOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "CodeMentor AI API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("events.channel", "codementor")
	v.SetDefault("locale.default", "en")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("analysis.cache_ttl", "10m")
	v.SetDefault("ratelimit.submit", 10)
	v.SetDefault("ratelimit.analyze", 3)
	v.SetDefault("ratelimit.window", "1m")

	aiTimeout, err := parseDuration(v, "ai.timeout")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "analysis.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	window, err := parseDuration(v, "ratelimit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		CORSOrigins:      v.GetString("cors.origins"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		EventsChannel:    v.GetString("events.channel"),
		JWTSecret:        v.GetString("jwt.secret"),
		DefaultLocale:    v.GetString("locale.default"),
		AIAPIKey:         v.GetString("ai.api_key"),
		AIBaseURL:        v.GetString("ai.base_url"),
		AIModel:          v.GetString("ai.model"),
		AIMaxTokens:      v.GetInt("ai.max_tokens"),
		AITemperature:    float32(v.GetFloat64("ai.temperature")),
		AITimeout:        aiTimeout,
		AnalysisCacheTTL: cacheTTL,
		SubmitRateLimit:  v.GetInt("ratelimit.submit"),
		AnalyzeRateLimit: v.GetInt("ratelimit.analyze"),
		RateLimitWindow:  window,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AITimeout <= 0 {
		return Config{}, fmt.Errorf("ai timeout must be positive")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return duration, nil
}
