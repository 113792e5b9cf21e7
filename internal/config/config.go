package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds companion client configuration
type Config struct {
	Server    ServerConfig
	API       APIConfig
	Realtime  RealtimeConfig
	Session   SessionConfig
	OAuth     OAuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// APIConfig points at the remote QuizHive HTTP API.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RealtimeConfig configures the notification websocket endpoint.
type RealtimeConfig struct {
	URL            string
	ReconnectDelay time.Duration
}

type SessionConfig struct {
	CookieName string
	CookieTTL  time.Duration
	ProfileTTL time.Duration
}

// OAuthConfig is used to verify third-party identity tokens before the
// exchange with the API. Empty issuer disables OAuth login.
type OAuthConfig struct {
	Issuer   string
	ClientID string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5173")
	viper.SetDefault("SERVER_HOST", "127.0.0.1")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("API_TIMEOUT", 15)
	viper.SetDefault("SESSION_COOKIE_NAME", "quizhive_session")
	viper.SetDefault("SESSION_COOKIE_TTL_HOURS", 168)
	viper.SetDefault("PROFILE_TTL_SECONDS", 300)
	viper.SetDefault("RECONNECT_DELAY_SECONDS", 5)
	viper.SetDefault("RATE_LIMIT_RPS", 1.0)
	viper.SetDefault("RATE_LIMIT_BURST", 5)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		API: APIConfig{
			BaseURL: viper.GetString("API_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("API_TIMEOUT")) * time.Second,
		},
		Realtime: RealtimeConfig{
			URL:            viper.GetString("REALTIME_URL"),
			ReconnectDelay: time.Duration(viper.GetInt("RECONNECT_DELAY_SECONDS")) * time.Second,
		},
		Session: SessionConfig{
			CookieName: viper.GetString("SESSION_COOKIE_NAME"),
			CookieTTL:  time.Duration(viper.GetInt("SESSION_COOKIE_TTL_HOURS")) * time.Hour,
			ProfileTTL: time.Duration(viper.GetInt("PROFILE_TTL_SECONDS")) * time.Second,
		},
		OAuth: OAuthConfig{
			Issuer:   viper.GetString("OAUTH_ISSUER"),
			ClientID: viper.GetString("OAUTH_CLIENT_ID"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
	}

	// Basic validation
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.Realtime.URL == "" {
		// derive the realtime endpoint next to the API base when not set
		cfg.Realtime.URL = cfg.API.BaseURL + "/ws"
	}

	return cfg, nil
}
