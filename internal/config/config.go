// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage backends selectable with STORE_BACKEND
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds the settings shared by the API, worker and CLI
type Config struct {
	Port         string        `validate:"required,numeric"`
	StoreBackend string        `validate:"required,oneof=postgres mongo badger redis memory"`
	StoreTimeout time.Duration `validate:"gt=0"`

	MongoURI      string `validate:"required_if=StoreBackend mongo"`
	MongoDatabase string `validate:"required_if=StoreBackend mongo"`

	BadgerPath string `validate:"required_if=StoreBackend badger"`

	// Redis backs the redis store, the shared generation quotas and the
	// scheduled-close queue
	RedisAddr     string `validate:"required_if=StoreBackend redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	AuthPublicJWK  string
	AuthPrivateJWK string
	AuthIssuer     string
	TokenTTL       time.Duration `validate:"gt=0"`

	OpenAIAPIKey   string
	OpenAIModel    string
	AIDailyBudget  float64 `validate:"gte=0"`
	OTLPEndpoint   string
	ServiceName    string `validate:"required"`
	AllowedOrigins string
}

var validate = validator.New()

// FromEnv reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence over it.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfg := Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		StoreBackend:   getEnvOrDefault("STORE_BACKEND", BackendPostgres),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnvOrDefault("MONGO_DATABASE", "surveystudio"),
		BadgerPath:     getEnvOrDefault("BADGER_PATH", "./data/badger"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		AuthPublicJWK:  os.Getenv("AUTH_PUBLIC_JWK"),
		AuthPrivateJWK: os.Getenv("AUTH_PRIVATE_JWK"),
		AuthIssuer:     os.Getenv("AUTH_ISSUER"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:    getEnvOrDefault("SERVICE_NAME", "surveystudio-api"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
	}

	var err error
	if cfg.StoreTimeout, err = time.ParseDuration(getEnvOrDefault("STORE_TIMEOUT", "5s")); err != nil {
		return Config{}, fmt.Errorf("invalid STORE_TIMEOUT: %w", err)
	}
	if cfg.TokenTTL, err = time.ParseDuration(getEnvOrDefault("TOKEN_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if cfg.RedisDB, err = strconv.Atoi(getEnvOrDefault("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.AIDailyBudget, err = strconv.ParseFloat(getEnvOrDefault("AI_DAILY_BUDGET", "10"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid AI_DAILY_BUDGET: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags and reports the first failing variable
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("invalid configuration: %s failed %q", errs[0].Field(), errs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RedisEnabled reports whether a Redis address was configured
func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
