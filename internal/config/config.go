package config

import (
	"os"
	"strconv"
	"time"

	"github.com/Eymeric05/E-Perfume-sub000/internal/pricing"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	MongoURI    string
	MongoDBName string

	PostgresHost      string
	PostgresPort      int
	PostgresUser      string
	PostgresPassword  string
	PostgresDB        string
	MigrationsDirPath string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string

	CardProviderURL   string
	WalletProviderURL string
	// StorefrontURL is the base the card provider redirects back to.
	StorefrontURL string

	Pricing pricing.Config
}

func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "perfumedb"),

		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:        getEnv("POSTGRES_DB", "ordersdb"),
		MigrationsDirPath: getEnv("MIGRATIONS_DIR", "internal/order/migrations"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KafkaBrokers: []string{getEnv("KAFKA_BROKER", "localhost:9092")},

		CardProviderURL:   getEnv("CARD_PROVIDER_URL", "https://card.provider.local"),
		WalletProviderURL: getEnv("WALLET_PROVIDER_URL", "https://wallet.provider.local"),
		StorefrontURL:     getEnv("STOREFRONT_URL", "https://localhost:3000"),

		Pricing: pricing.Config{
			FreeShippingThreshold: getEnvFloat("FREE_SHIPPING_THRESHOLD", 100),
			FlatShippingFee:       getEnvFloat("FLAT_SHIPPING_FEE", 9.99),
			TaxRate:               getEnvFloat("TAX_RATE", 0.15),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
