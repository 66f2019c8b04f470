package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env             string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string        // optional; enables the Redis area cache and traffic stats
	DataEndpoint    string        // upstream place lookup, called with ?input=<query>
	AreaCacheTTL    time.Duration // fixed lifetime of a cached area lookup
	UpstreamTimeout time.Duration
	AllowedOrigins  []string
	HealthAdminKey  string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "5000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("AREA_CACHE_TTL", time.Hour)
	viper.SetDefault("UPSTREAM_TIMEOUT", 10*time.Second)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	ttl := viper.GetDuration("AREA_CACHE_TTL")
	if ttl <= 0 {
		return nil, fmt.Errorf("config: AREA_CACHE_TTL must be positive, got %q", viper.GetString("AREA_CACHE_TTL"))
	}
	timeout := viper.GetDuration("UPSTREAM_TIMEOUT")
	if timeout <= 0 {
		return nil, fmt.Errorf("config: UPSTREAM_TIMEOUT must be positive, got %q", viper.GetString("UPSTREAM_TIMEOUT"))
	}

	return &Config{
		Env:             viper.GetString("APP_ENV"),
		Port:            viper.GetString("PORT"),
		LogLevel:        viper.GetString("LOG_LEVEL"),
		DatabaseURL:     databaseURL(),
		RedisURL:        strings.TrimSpace(viper.GetString("REDIS_URL")),
		DataEndpoint:    strings.TrimSpace(viper.GetString("DATA_ENDPOINT")),
		AreaCacheTTL:    ttl,
		UpstreamTimeout: timeout,
		AllowedOrigins:  splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		HealthAdminKey:  viper.GetString("HEALTH_ADMIN_KEY"),
	}, nil
}

// databaseURL prefers DATABASE_URL and falls back to the discrete DB_* settings
// used by the docker compose setup.
func databaseURL() string {
	if dsn := strings.TrimSpace(viper.GetString("DATABASE_URL")); dsn != "" {
		return dsn
	}
	host := valueOr(viper.GetString("DB_HOST"), "postgres")
	port := valueOr(viper.GetString("DB_PORT"), "5432")
	name := valueOr(viper.GetString("DB_NAME"), "listings_db")
	user := valueOr(viper.GetString("DB_USER"), "listings_user")
	password := valueOr(viper.GetString("DB_PASSWORD"), "listings_password")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func valueOr(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
