package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	LogMode    string

	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	JWTSecret      string
	JWTSecretAdmin string
	TokenTTL       time.Duration
	BlacklistTTL   time.Duration

	RedisAddr     string
	RedisPassword string

	GCSBucket    string
	GCSCDNDomain string

	SendGridAPIKey string
	MailFromEmail  string
	MailFromName   string

	ZoomClientID     string
	ZoomClientSecret string
	ZoomAccountID    string

	CORSOrigins string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogMode:    getEnv("LOG_MODE", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "learnhub"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTSecretAdmin: getEnv("JWT_SECRETADMIN", ""),
		TokenTTL:       getDuration("TOKEN_TTL", 5*24*time.Hour),
		BlacklistTTL:   getDuration("BLACKLIST_TTL", 24*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		GCSBucket:    getEnv("GCS_BUCKET_NAME", ""),
		GCSCDNDomain: getEnv("GCS_CDN_DOMAIN", ""),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFromEmail:  getEnv("SENDGRID_FROM_EMAIL", ""),
		MailFromName:   getEnv("SENDGRID_FROM_NAME", "LearnHub"),

		ZoomClientID:     getEnv("ZOOM_CLIENT_ID", ""),
		ZoomClientSecret: getEnv("ZOOM_CLIENT_SECRET", ""),
		ZoomAccountID:    getEnv("ZOOM_ACCOUNT_ID", ""),

		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations where the two token namespaces could collide.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("missing env var JWT_SECRET")
	}
	if strings.TrimSpace(c.JWTSecretAdmin) == "" {
		return errors.New("missing env var JWT_SECRETADMIN")
	}
	if c.JWTSecret == c.JWTSecretAdmin {
		return errors.New("JWT_SECRET and JWT_SECRETADMIN must differ")
	}
	if c.TokenTTL <= 0 || c.BlacklistTTL <= 0 {
		return errors.New("token and blacklist TTL must be positive")
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* vars.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("36h") or a plain number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid duration for %s=%q, using %s", key, raw, defaultValue)
	return defaultValue
}
