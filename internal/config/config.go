// Package config provides runtime configuration values for the storefront.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds configuration knobs for the HTTP server, storage backends
// and the commercial rules that are tunable rather than invariant.
type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	MigrationsPath   string

	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	KafkaBrokers  []string

	PaymentBaseURL      string
	PaymentClientID     string
	PaymentClientSecret string

	// MemberFallbackDiscount applies when a variant has no explicit
	// member price. Business rule, not an invariant; keep it here.
	MemberFallbackDiscount decimal.Decimal

	FreeShippingThreshold decimal.Decimal
	FlatShippingRate      decimal.Decimal
	MembershipPrice       decimal.Decimal
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func decenv(key, def string) decimal.Decimal {
	d, err := decimal.NewFromString(getenv(key, def))
	if err != nil {
		d, _ = decimal.NewFromString(def)
	}
	return d
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPPort:        getenv("HTTP_PORT", "8080"),
		RequestTimeout:  time.Duration(atoienv("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		ShutdownTimeout: time.Duration(atoienv("SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,

		PostgresHost:     getenv("DB_HOST", "localhost"),
		PostgresPort:     atoienv("DB_PORT", 5432),
		PostgresUser:     getenv("DB_USER", "postgres"),
		PostgresPassword: getenv("DB_PASSWORD", "postgres"),
		PostgresDB:       getenv("DB_NAME", "storefront"),
		MigrationsPath:   getenv("MIGRATIONS_PATH", "./migrations"),

		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGO_DATABASE", "storefront"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:  []string{getenv("KAFKA_BROKER", "localhost:9092")},

		PaymentBaseURL:      getenv("PAYMENT_BASE_URL", ""),
		PaymentClientID:     getenv("PAYMENT_CLIENT_ID", ""),
		PaymentClientSecret: getenv("PAYMENT_CLIENT_SECRET", ""),

		MemberFallbackDiscount: decenv("MEMBER_FALLBACK_DISCOUNT", "0.23"),
		FreeShippingThreshold:  decenv("FREE_SHIPPING_THRESHOLD", "150"),
		FlatShippingRate:       decenv("FLAT_SHIPPING_RATE", "9.95"),
		MembershipPrice:        decenv("MEMBERSHIP_PRICE", "89.00"),
	}
}
