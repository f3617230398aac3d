package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"ticketapi/internal/database"
	"ticketapi/internal/messaging"

	"github.com/joho/godotenv"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	Database database.Config
	NATS     messaging.Config
}

// Load reads the configuration from the environment. Values from a .env file in
// the working directory are used for variables that are not already set.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	driver := getEnv("DB_DRIVER", database.DriverMongo)

	return &Config{
		Port:      getEnv("PORT", "3000"),
		GinMode:   getEnv("GIN_MODE", "debug"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Database: database.Config{
			Name:           getEnv("DB_DATASOURCE_NAME", "ticket"),
			Driver:         driver,
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", defaultPort(driver)),
			User:           getEnv("DB_USER", ""),
			Password:       getEnv("DB_PASSWORD", ""),
			Database:       getEnv("DB_NAME", "ticket"),
			URL:            getEnv("DB_URL", ""),
			Collection:     getEnv("DB_COLLECTION", "Ticket"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnectTimeout: time.Duration(getEnvInt("DB_CONNECT_TIMEOUT_SEC", 10)) * time.Second,
			MaxRetries:     getEnvInt("DB_MAX_RETRIES", 3),
		},

		NATS: messaging.Config{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID:     getEnv("NATS_CLUSTER_ID", "ticket"),
			ClientID:      getEnv("NATS_CLIENT_ID", "ticket-api"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", ""),
		},
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case database.DriverMongo, database.DriverPostgres, database.DriverElasticsearch, database.DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER: unsupported driver %q", c.Database.Driver)
	}
	if c.Database.Driver != database.DriverMemory && c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("DB_HOST or DB_URL is required for driver %q", c.Database.Driver)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	return nil
}

func defaultPort(driver string) int {
	switch driver {
	case database.DriverPostgres:
		return 5432
	case database.DriverElasticsearch:
		return 9200
	}
	return 27017
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
