package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string `mapstructure:"port" validate:"required|isNumber"`
	DatabaseURL   string `mapstructure:"database_url" validate:"required"`
	StoreDriver   string `mapstructure:"store_driver" validate:"required|in:sqlite,postgres,memory"`
	AppEnv        string `mapstructure:"app_env"`
	BaseURL       string `mapstructure:"base_url"`
	IPHashSalt    string `mapstructure:"ip_hash_salt"`
	StatsSchedule string `mapstructure:"stats_schedule"`

	Log       LogConfig       `mapstructure:"log"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Format string `mapstructure:"format" validate:"required|in:json,console"`
}

type GeneratorConfig struct {
	Type            string        `mapstructure:"type" validate:"required|in:gemini,anthropic,extractive"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	AnthropicModel  string        `mapstructure:"anthropic_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxContentChars int           `mapstructure:"max_content_chars" validate:"required|min:1"`
}

type CacheConfig struct {
	SizeMB     int `mapstructure:"size_mb" validate:"min:0"`
	TTLSeconds int `mapstructure:"ttl_seconds" validate:"min:0"`
}

type RateLimitConfig struct {
	Points   int           `mapstructure:"points" validate:"required|min:1"`
	Window   time.Duration `mapstructure:"window"`
	RedisURL string        `mapstructure:"redis_url"`
}

type AuthConfig struct {
	GoogleClientID     string   `mapstructure:"google_client_id"`
	GoogleClientSecret string   `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string   `mapstructure:"google_redirect_url"`
	JWTSecret          string   `mapstructure:"jwt_secret" validate:"required"`
	FrontendURL        string   `mapstructure:"frontend_url"`
	AllowedEmails      []string `mapstructure:"allowed_emails"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"port":                        "PORT",
	"database_url":                "DATABASE_URL",
	"store_driver":                "STORE_DRIVER",
	"app_env":                     "APP_ENV",
	"base_url":                    "BASE_URL",
	"ip_hash_salt":                "IP_HASH_SALT",
	"stats_schedule":              "STATS_SCHEDULE",
	"log.level":                   "LOG_LEVEL",
	"log.format":                  "LOG_FORMAT",
	"generator.type":              "GENERATOR",
	"generator.gemini_api_key":    "GEMINI_API_KEY",
	"generator.gemini_model":      "GEMINI_MODEL",
	"generator.anthropic_api_key": "ANTHROPIC_API_KEY",
	"generator.anthropic_model":   "ANTHROPIC_MODEL",
	"generator.timeout":           "GENERATION_TIMEOUT",
	"generator.max_content_chars": "MAX_CONTENT_CHARS",
	"cache.size_mb":               "CACHE_SIZE_MB",
	"cache.ttl_seconds":           "CACHE_TTL_SECONDS",
	"rate_limit.points":           "RATE_LIMIT_POINTS",
	"rate_limit.window":           "RATE_LIMIT_WINDOW",
	"rate_limit.redis_url":        "REDIS_URL",
	"auth.google_client_id":       "GOOGLE_CLIENT_ID",
	"auth.google_client_secret":   "GOOGLE_CLIENT_SECRET",
	"auth.google_redirect_url":    "GOOGLE_REDIRECT_URL",
	"auth.jwt_secret":             "JWT_SECRET",
	"auth.frontend_url":           "FRONTEND_URL",
	"auth.allowed_emails":         "ALLOWED_EMAILS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "file:tinyread.db")
	v.SetDefault("store_driver", "sqlite")
	v.SetDefault("app_env", "local")
	v.SetDefault("base_url", "")
	v.SetDefault("stats_schedule", "@every 5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("generator.type", "gemini")
	v.SetDefault("generator.gemini_model", "gemini-1.5-flash")
	v.SetDefault("generator.anthropic_model", "claude-3-5-haiku-latest")
	v.SetDefault("generator.timeout", 25*time.Second)
	v.SetDefault("generator.max_content_chars", 30000)
	v.SetDefault("cache.size_mb", 16)
	v.SetDefault("cache.ttl_seconds", 0)
	v.SetDefault("rate_limit.points", 10)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("auth.google_redirect_url", "http://localhost:8080/auth/google/callback")
	v.SetDefault("auth.jwt_secret", "secret")
	v.SetDefault("auth.frontend_url", "http://localhost:8080/")
}

// Load reads .env, the optional CONFIG_FILE (yaml) and the environment, in
// increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	cfg.Auth.AllowedEmails = splitList(cfg.Auth.AllowedEmails)
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %w", v.Errors)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// splitList normalizes list values that arrive as one comma separated string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
