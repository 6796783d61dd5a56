package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Next Watch service.
type Config struct {
	DB             DBConfig
	Redis          RedisConfig
	TMDB           TMDBConfig
	TextGen        TextGenConfig
	Auth           AuthConfig
	Recommendation RecommendationConfig
	RateLimit      RateLimitConfig
	Port           string
	LogLevel       slog.Level
}

// DBConfig holds PostgreSQL configuration.
type DBConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SSLRootCert string
}

// DSN returns the PostgreSQL connection string.
func (d DBConfig) DSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
	if d.SSLRootCert != "" {
		dsn += fmt.Sprintf(" sslrootcert=%s", d.SSLRootCert)
	}
	return dsn
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	// URL, when set, overrides Addr, Password and DB.
	URL         string
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// TMDBConfig holds metadata provider configuration.
type TMDBConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// TextGenConfig holds the text-generation provider configuration.
// An empty APIKey disables generated reasons.
type TextGenConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	MaxConcurrent int
}

// Enabled reports whether a credential is configured.
func (t TextGenConfig) Enabled() bool {
	return strings.TrimSpace(t.APIKey) != ""
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	// AdminIDs may call the catalog sync and import endpoints in addition
	// to tokens carrying role=admin.
	AdminIDs []int
}

// RecommendationConfig holds ranking constants and response limits.
type RecommendationConfig struct {
	DefaultLimit        int
	MaxLimit            int
	LikedGenreWeight    float64
	DislikedGenreWeight float64
	PoolFactor          int
	PopularMinVotes     int
	CacheTTL            time.Duration
}

// RateLimitConfig holds the fixed-window limiter settings.
type RateLimitConfig struct {
	Max           int
	WindowSeconds int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DB: DBConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "next_watch"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			SSLRootCert: getEnv("DB_SSLROOTCERT", ""),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			DialTimeout: getEnvDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
		},
		TMDB: TMDBConfig{
			APIKey:            getEnv("TMDB_API_KEY", ""),
			BaseURL:           getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			Timeout:           getEnvDuration("TMDB_TIMEOUT", 15*time.Second),
			RequestsPerSecond: getEnvFloat("TMDB_REQUESTS_PER_SECOND", 10),
		},
		TextGen: TextGenConfig{
			APIKey:        getEnv("GROQ_API_KEY", ""),
			BaseURL:       getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:         getEnv("GROQ_MODEL", "llama3-8b-8192"),
			Timeout:       getEnvDuration("GROQ_TIMEOUT", 5*time.Second),
			MaxConcurrent: getEnvInt("GROQ_MAX_CONCURRENT", 4),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			AdminIDs:  getEnvIntList("AUTH_ADMIN_IDS"),
		},
		Recommendation: RecommendationConfig{
			DefaultLimit:        getEnvInt("RECOMMENDATION_DEFAULT_LIMIT", 20),
			MaxLimit:            getEnvInt("RECOMMENDATION_MAX_LIMIT", 50),
			LikedGenreWeight:    getEnvFloat("RECOMMENDATION_LIKED_GENRE_WEIGHT", 0.5),
			DislikedGenreWeight: getEnvFloat("RECOMMENDATION_DISLIKED_GENRE_WEIGHT", 0.3),
			PoolFactor:          getEnvInt("RECOMMENDATION_POOL_FACTOR", 2),
			PopularMinVotes:     getEnvInt("RECOMMENDATION_POPULAR_MIN_VOTES", 100),
			CacheTTL:            getEnvDuration("RECOMMENDATION_CACHE_TTL", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Max:           getEnvInt("RATE_LIMIT_MAX", 100),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Port:     getEnv("SERVER_PORT", "8080"),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.Recommendation.MaxLimit < 1 {
		return nil, fmt.Errorf("RECOMMENDATION_MAX_LIMIT must be positive, got %d", cfg.Recommendation.MaxLimit)
	}
	if cfg.Recommendation.DefaultLimit < 1 || cfg.Recommendation.DefaultLimit > cfg.Recommendation.MaxLimit {
		cfg.Recommendation.DefaultLimit = cfg.Recommendation.MaxLimit
	}
	if cfg.Recommendation.PoolFactor < 1 {
		cfg.Recommendation.PoolFactor = 1
	}
	if cfg.TextGen.MaxConcurrent < 1 {
		cfg.TextGen.MaxConcurrent = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

// getEnvIntList parses a comma-separated id list, skipping invalid entries.
func getEnvIntList(key string) []int {
	var out []int
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// getEnvDuration accepts Go duration strings ("5s") or bare seconds ("5").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
