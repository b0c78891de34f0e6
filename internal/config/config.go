package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the API server, the import job and the bot.
type Config struct {
	Env           string
	Port          string
	DatabaseURL   string
	MigrationsDir string

	TokenStore string // postgres | redis
	RedisURL   string
	TokenTTL   time.Duration // redis only; 0 keeps tokens until logout

	BlobDriver    string // gcs | local
	GCSBucket     string
	GCSCredFile   string
	UploadDir     string
	PublicBaseURL string

	GooglePlacesKey string
	ImportRadius    int
	ImportInterval  time.Duration

	CORSOrigins  []string
	TicketSecret string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional; in containers everything comes from the environment
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getenv("APP_ENV", "development"),
		Port:            getenv("API_PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MigrationsDir:   getenv("MIGRATIONS_DIR", "migrations"),
		TokenStore:      getenv("TOKEN_STORE", "postgres"),
		RedisURL:        getenv("REDIS_URL", "redis://localhost:6379/0"),
		BlobDriver:      getenv("BLOB_DRIVER", "local"),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		GCSCredFile:     os.Getenv("GCS_CREDENTIALS_FILE"),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		GooglePlacesKey: os.Getenv("GOOGLE_PLACES_KEY"),
		TicketSecret:    getenv("TICKET_SECRET", "change-me"),
	}
	cfg.PublicBaseURL = strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:"+cfg.Port), "/")

	if cfg.DatabaseURL == "" {
		dbHost := getenv("DB_HOST", "localhost")
		dbPort := getenv("DB_PORT", "5432")
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbHost, dbPort,
			os.Getenv("DB_USER"), os.Getenv("DB_PASS"), os.Getenv("DB_NAME"),
			getenv("DB_SSLMODE", "disable"),
		)
	}

	var err error
	if cfg.ImportRadius, err = strconv.Atoi(getenv("IMPORT_RADIUS", "50000")); err != nil {
		return nil, fmt.Errorf("IMPORT_RADIUS: %w", err)
	}
	if cfg.TokenTTL, err = time.ParseDuration(getenv("TOKEN_TTL", "0s")); err != nil {
		return nil, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	if cfg.ImportInterval, err = time.ParseDuration(getenv("IMPORT_INTERVAL", "1s")); err != nil {
		return nil, fmt.Errorf("IMPORT_INTERVAL: %w", err)
	}

	for _, origin := range strings.Split(getenv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	switch cfg.TokenStore {
	case "postgres", "redis":
	default:
		return nil, fmt.Errorf("unknown TOKEN_STORE %q", cfg.TokenStore)
	}
	switch cfg.BlobDriver {
	case "local":
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required when BLOB_DRIVER=gcs")
		}
	default:
		return nil, fmt.Errorf("unknown BLOB_DRIVER %q", cfg.BlobDriver)
	}
	return cfg, nil
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
