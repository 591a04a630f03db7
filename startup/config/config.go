package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMongo  = "mongo"
	StoreMemory = "memory"

	devSecret = "dev-secret-change-me"
)

type Config struct {
	Port             string
	AppEnv           string
	MongoURI         string
	MongoDatabase    string
	StoreDriver      string
	SecretKey        string
	TokenTTL         time.Duration
	CORSOrigin       string
	AuthCacheHost    string
	AuthCachePort    string
	JaegerAddress    string
	SMTPHost         string
	SMTPPort         int
	SMTPAuthMail     string
	SMTPAuthPassword string
	LogLevel         string
	LogFilePath      string
	RBACModelPath    string
	RBACPolicyPath   string
}

func NewConfig() *Config {
	appEnv := getEnv("APP_ENV", EnvDevelopment)

	secret := os.Getenv("SECRET_KEY")
	if secret == "" && appEnv != EnvProduction {
		secret = devSecret
	}

	return &Config{
		Port:             getEnv("PORT", "5000"),
		AppEnv:           appEnv,
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "rezerwacje"),
		StoreDriver:      getEnv("STORE_DRIVER", StoreMongo),
		SecretKey:        secret,
		TokenTTL:         getDuration("TOKEN_TTL", 24*time.Hour),
		CORSOrigin:       getEnv("CORS_ORIGIN", "*"),
		AuthCacheHost:    os.Getenv("AUTH_CACHE_HOST"),
		AuthCachePort:    getEnv("AUTH_CACHE_PORT", "6379"),
		JaegerAddress:    os.Getenv("JAEGER_ADDRESS"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getInt("SMTP_PORT", 587),
		SMTPAuthMail:     os.Getenv("SMTP_AUTH_MAIL"),
		SMTPAuthPassword: os.Getenv("SMTP_AUTH_PASSWORD"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFilePath:      os.Getenv("LOG_FILE_PATH"),
		RBACModelPath:    getEnv("RBAC_MODEL_PATH", "./rbac_model.conf"),
		RBACPolicyPath:   getEnv("RBAC_POLICY_PATH", "./policy.csv"),
	}
}

// Validate rejects settings the server cannot start with.
func (config *Config) Validate() error {
	if config.StoreDriver != StoreMongo && config.StoreDriver != StoreMemory {
		return errors.New("STORE_DRIVER must be mongo or memory")
	}
	if config.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if config.AppEnv != EnvProduction {
		return nil
	}
	if config.SecretKey == "" {
		return errors.New("SECRET_KEY is required in production")
	}
	if config.StoreDriver == StoreMongo && os.Getenv("MONGO_URI") == "" {
		return errors.New("MONGO_URI is required in production")
	}
	return nil
}

func (config *Config) CacheEnabled() bool {
	return config.AuthCacheHost != ""
}

func (config *Config) MailEnabled() bool {
	return config.SMTPHost != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
