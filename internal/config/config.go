package config

import (
	"strings"

	"github.com/spf13/viper"
	"github.com/yukikurage/crm-pipeline-api/internal/constants"
)

type Config struct {
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	SessionStore  string
	GinMode       string
	OpenAIAPIKey  string
	ServerPort    string

	LogLevel string
	LogFile  string

	CORSAllowedOrigins []string
	StaleDealDays      int
	MetricsEnabled     bool
}

// Load reads configuration from the environment, optionally overlaid by a
// config.yaml in the working directory or ./config.
func Load() *Config {
	v := viper.New()

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "crmuser")
	v.SetDefault("DB_PASSWORD", "crmpassword")
	v.SetDefault("DB_NAME", "crm")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SESSION_SECRET", "default-secret-key-change-me")
	v.SetDefault("SESSION_STORE", "redis")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("STALE_DEAL_DAYS", constants.DefaultStaleDays)
	v.SetDefault("METRICS_ENABLED", true)

	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// A missing config file is fine; the environment and defaults still apply.
	_ = v.ReadInConfig()

	staleDays := v.GetInt("STALE_DEAL_DAYS")
	if staleDays <= 0 {
		staleDays = constants.DefaultStaleDays
	}

	return &Config{
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:             v.GetString("DB_HOST"),
		DBPort:             v.GetString("DB_PORT"),
		DBUser:             v.GetString("DB_USER"),
		DBPassword:         v.GetString("DB_PASSWORD"),
		DBName:             v.GetString("DB_NAME"),
		RedisHost:          v.GetString("REDIS_HOST"),
		RedisPort:          v.GetString("REDIS_PORT"),
		SessionSecret:      v.GetString("SESSION_SECRET"),
		SessionStore:       strings.ToLower(v.GetString("SESSION_STORE")),
		GinMode:            v.GetString("GIN_MODE"),
		OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
		ServerPort:         v.GetString("SERVER_PORT"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFile:            v.GetString("LOG_FILE"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		StaleDealDays:      staleDays,
		MetricsEnabled:     v.GetBool("METRICS_ENABLED"),
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
