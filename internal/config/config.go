package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the portal API reads from the environment.
type Config struct {
	Port             string
	WebSocketAddr    string // bind address for the realtime endpoint
	WebSocketURL     string // public URL handed out to portal clients
	JWTSecret        string
	DatabaseURL      string
	DatabaseConfig   DatabaseConfig
	RedisConfig      RedisConfig
	CloudinaryConfig CloudinaryConfig
	PaystackConfig   PaystackConfig
	AppEnv           string
}

// DatabaseConfig contains the Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains the Redis connection settings used by the presence store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CloudinaryConfig contains the settings for signed attachment uploads.
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	UploadFolder string
}

// PaystackConfig contains the payment gateway settings.
type PaystackConfig struct {
	SecretKey   string
	CallbackURL string
}

// LoadConfig loads variables from .env and the environment.
func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️ No .env file found, using environment variables")
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "portal_user"),
		Password: getEnv("PGPASSWORD", "portal_pass"),
		Name:     getEnv("PGDATABASE", "agency_portal"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode)

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		WebSocketAddr:  getEnv("WS_ADDR", ":8081"),
		WebSocketURL:   getEnv("WS_BASE_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		DatabaseURL:    dbURL,
		DatabaseConfig: dbConfig,
		RedisConfig: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		},
		CloudinaryConfig: CloudinaryConfig{
			CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
			UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "agency_portal"),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "service_requests"),
		},
		PaystackConfig: PaystackConfig{
			SecretKey:   getEnv("PAYSTACK_SECRET_KEY", ""),
			CallbackURL: getEnv("PAYSTACK_CALLBACK_URL", ""),
		},
		AppEnv: getEnv("APP_ENV", "production"),
	}

	// The realtime endpoint is not optional: without it the chat subsystem
	// cannot start at all, so a missing value is a startup failure.
	if cfg.JWTSecret == "" || cfg.WebSocketURL == "" {
		log.Fatal("❌ Error: JWT_SECRET and WS_BASE_URL must be set")
	}

	return cfg
}

// getEnv returns an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
