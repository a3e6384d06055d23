package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Auth     AuthConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	// URL may be empty; the store falls back to the in-memory adapter.
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
	Enabled       bool
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	RefreshWindow time.Duration
	AdminEmail    string
	AdminPassword string
}

type BusinessConfig struct {
	TaxRate               float64
	FreeShippingThreshold float64
	ShippingFee           float64
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, _ := time.ParseDuration(getEnv("JWT_TOKEN_TTL", "24h"))
	refreshWindow, _ := time.ParseDuration(getEnv("JWT_REFRESH_WINDOW", "72h"))
	taxRate, _ := strconv.ParseFloat(getEnv("TAX_RATE", "0.08"), 64)
	freeShipping, _ := strconv.ParseFloat(getEnv("FREE_SHIPPING_THRESHOLD", "75"), 64)
	shippingFee, _ := strconv.ParseFloat(getEnv("SHIPPING_FEE", "9.99"), 64)

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			Enabled:  getEnv("REDIS_ENABLED", "true") == "true",
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-audit"),
			Enabled:       getEnv("KAFKA_ENABLED", "true") == "true",
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
			TokenTTL:      tokenTTL,
			RefreshWindow: refreshWindow,
			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@localhost"),
			AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		},
		Business: BusinessConfig{
			TaxRate:               taxRate,
			FreeShippingThreshold: freeShipping,
			ShippingFee:           shippingFee,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
