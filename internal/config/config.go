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
	AppName                string
	AppEnv                 string
	AppPort                string
	CORSOrigins            string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	KeyCacheTTL            time.Duration
	NATSURL                string
	NATSSubject            string
	JWTSecret              string
	StorageDriver          string
	StorageDir             string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxBytes         int
	StageTimeout           time.Duration
	GraderProvider         string
	GeminiAPIKey           string
	GeminiModel            string
	GeminiEndpoint         string
	OpenAIAPIKey           string
	OpenAIModel            string
	RateLimitMax           int
	RateLimitWindow        time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with app.env=production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "GEMA Grader API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("key_cache.ttl", "24h")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "gema.grader")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.dir", "uploads")
	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.folder", "gema/grader")
	v.SetDefault("upload.max_mb", 16)
	v.SetDefault("pipeline.stage_timeout", "2m")
	v.SetDefault("ai.grader_provider", "gemini")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.endpoint", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("rate_limit.max", 10)
	v.SetDefault("rate_limit.window", "1m")
}

func fromViper(v *viper.Viper) (Config, error) {
	durations := map[string]time.Duration{}
	for _, key := range []string{"key_cache.ttl", "pipeline.stage_timeout", "rate_limit.window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("invalid %s: must be positive", key)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		CORSOrigins:            v.GetString("cors.origins"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		KeyCacheTTL:            durations["key_cache.ttl"],
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		StorageDriver:          strings.ToLower(v.GetString("storage.driver")),
		StorageDir:             v.GetString("storage.dir"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxBytes:         v.GetInt("upload.max_mb") * 1024 * 1024,
		StageTimeout:           durations["pipeline.stage_timeout"],
		GraderProvider:         strings.ToLower(v.GetString("ai.grader_provider")),
		GeminiAPIKey:           v.GetString("gemini.api_key"),
		GeminiModel:            v.GetString("gemini.model"),
		GeminiEndpoint:         v.GetString("gemini.endpoint"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("openai.model"),
		RateLimitMax:           v.GetInt("rate_limit.max"),
		RateLimitWindow:        durations["rate_limit.window"],
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	switch cfg.StorageDriver {
	case "local", "cloudinary":
	default:
		return Config{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	switch cfg.GraderProvider {
	case "gemini", "openai":
	default:
		return Config{}, fmt.Errorf("unsupported grader provider %q", cfg.GraderProvider)
	}

	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 16 * 1024 * 1024
	}

	return cfg, nil
}
