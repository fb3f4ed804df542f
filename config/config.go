package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"fulfillment-service/pkg/database"

	"go.uber.org/zap"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPPort       string
	GRPCPort       string
	StoreDriver    string
	DB             DB
	Redis          Redis
	Kafka          Kafka
	ExpirySweep    time.Duration
	WarehousesFile string
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

type Kafka struct {
	Enabled     bool
	Brokers     []string
	TopicEvents string
	// пустой: приём пик-запросов из Kafka выключен
	TopicPickRequests string
	GroupID           string
}

func Load(log *zap.Logger) *Config {
	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", log),
		GRPCPort:       getEnv("GRPC_PORT", log),
		StoreDriver:    getEnvDefault("STORE_DRIVER", StoreMemory),
		ExpirySweep:    parseDurationWithDays(getEnvDefault("EXPIRY_SWEEP_INTERVAL", "1h")),
		WarehousesFile: os.Getenv("WAREHOUSES_FILE"),
	}
	if cfg.ExpirySweep <= 0 {
		log.Warn("invalid EXPIRY_SWEEP_INTERVAL, using 1h")
		cfg.ExpirySweep = time.Hour
	}

	switch cfg.StoreDriver {
	case StorePostgres:
		cfg.DB = DB{
			Config: database.Config{
				Host:     getEnv("DB_HOST", log),
				Port:     getEnv("DB_PORT", log),
				User:     getEnv("DB_USER", log),
				Password: getEnv("DB_PASSWORD", log),
				Name:     getEnv("DB_NAME", log),
				SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
			},
		}
	case StoreMemory:
	default:
		log.Error("Неизвестный STORE_DRIVER", zap.String("value", cfg.StoreDriver))
		panic("unknown STORE_DRIVER: " + cfg.StoreDriver)
	}

	if getEnvDefault("REDIS_ENABLED", "false") == "true" {
		cfg.Redis = Redis{
			Enabled:    true,
			Addr:       getEnv("REDIS_ADDR", log),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         atoiDefault(os.Getenv("REDIS_DB"), 0),
			TTLSeconds: atoiDefault(os.Getenv("CACHE_TTL_SECONDS"), 60),
		}
	}

	if getEnvDefault("KAFKA_ENABLED", "false") == "true" {
		cfg.Kafka = Kafka{
			Enabled:     true,
			Brokers:     splitAndTrim(getEnv("KAFKA_BROKERS", log)),
			TopicEvents: getEnvDefault("KAFKA_TOPIC_EVENTS", "fulfillment.events"),

			TopicPickRequests: os.Getenv("KAFKA_TOPIC_PICK_REQUESTS"),
			GroupID:           getEnvDefault("KAFKA_GROUP_ID", "fulfillment-service"),
		}
	}
	return cfg
}

// ForMigration: только подключение к БД, без портов сервиса.
func ForMigration(log *zap.Logger) *DB {
	return &DB{
		Config: database.Config{
			Host:     getEnv("DB_HOST", log),
			Port:     getEnv("DB_PORT", log),
			User:     getEnv("DB_USER", log),
			Password: getEnv("DB_PASSWORD", log),
			Name:     getEnv("DB_NAME", log),
			SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
		},
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func parseDurationWithDays(s string) time.Duration {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0
		}
		return time.Duration(days) * 24 * time.Hour
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return duration
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}
