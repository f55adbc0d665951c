package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ignatzorin/order-intake/internal/logger"
)

// Config хранит все параметры запуска приложения.
type Config struct {
	Env             string
	HTTPPort        string
	LogLevel        string
	DatabaseURL     string
	MigrationsPath  string
	JWTSecret       string
	AllowedOrigins  []string
	RateLimitLimit  int64
	RateLimitPeriod time.Duration

	OrderAPIBaseURL   string
	OrderAPIToken     string
	SubmitTimeout     time.Duration
	UploadTimeout     time.Duration
	UploadConcurrency int

	MaxAttachedFiles   int
	MaxAttachmentsMB   int64
	MediaStoragePath   string
	VocabularyFile     string
	VocabularyCacheTTL time.Duration
	SessionTTL         time.Duration
}

// IsProduction сообщает, запущено ли приложение в production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// MaxAttachmentsBytes возвращает лимит суммарного размера вложений в байтах.
func (c *Config) MaxAttachmentsBytes() int64 {
	return c.MaxAttachmentsMB << 20
}

// Load читает переменные окружения и возвращает готовую конфигурацию.
func Load() (*Config, error) {
	log := logger.WithComponent("config")

	// Загружаем .env только если он существует, иначе используем системные переменные.
	if err := godotenv.Load(".env"); err != nil {
		log.Debugf(".env не найден, используем переменные окружения: %v", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:              env,
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      getDatabaseURL(),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "./migrations"),
		OrderAPIBaseURL:  strings.TrimRight(getEnv("ORDER_API_BASE_URL", ""), "/"),
		OrderAPIToken:    getEnv("ORDER_API_TOKEN", ""),
		MediaStoragePath: getEnv("MEDIA_STORAGE_PATH", "./storage/attachments"),
		VocabularyFile:   getEnv("VOCABULARY_FILE", ""),
	}

	var errs []string
	parseDuration := func(key, fallback string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, fallback))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: ожидается положительная длительность", key))
		}
		return d
	}
	parseInt := func(key, fallback string) int64 {
		n, err := strconv.ParseInt(getEnv(key, fallback), 10, 64)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Sprintf("%s: ожидается положительное число", key))
		}
		return n
	}

	cfg.SubmitTimeout = parseDuration("SUBMIT_TIMEOUT", "30s")
	cfg.UploadTimeout = parseDuration("UPLOAD_TIMEOUT", "2m")
	cfg.UploadConcurrency = int(parseInt("UPLOAD_CONCURRENCY", "3"))
	cfg.MaxAttachedFiles = int(parseInt("MAX_ATTACHED_FILES", "10"))
	cfg.MaxAttachmentsMB = parseInt("MAX_ATTACHMENTS_MB", "50")
	cfg.VocabularyCacheTTL = parseDuration("VOCABULARY_CACHE_TTL", "10m")
	cfg.SessionTTL = parseDuration("SESSION_TTL", "2h")
	cfg.RateLimitLimit = parseInt("RATE_LIMIT_LIMIT", "10")
	cfg.RateLimitPeriod = parseDuration("RATE_LIMIT_PERIOD", "1m")

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if cfg.IsProduction() {
		if len(jwtSecret) < 32 {
			return nil, fmt.Errorf("config: JWT_SECRET обязателен и должен быть не менее 32 символов в production")
		}
		if cfg.OrderAPIBaseURL == "" {
			return nil, fmt.Errorf("config: ORDER_API_BASE_URL обязателен в production")
		}
	} else if jwtSecret == "" {
		jwtSecret = "super-secret-development-only-change-in-production"
		log.Warn("используется дефолтный JWT_SECRET, измените в production!")
	}
	cfg.JWTSecret = jwtSecret

	if cfg.OrderAPIBaseURL == "" {
		cfg.OrderAPIBaseURL = "http://localhost:9000"
	}

	// CORS allowed origins
	originsStr := getEnv("CORS_ALLOWED_ORIGINS", "")
	if originsStr == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("config: CORS_ALLOWED_ORIGINS обязателен в production")
		}
		cfg.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	} else {
		for _, origin := range strings.Split(originsStr, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или дефолт. Пустое значение считается незаданным.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getDatabaseURL возвращает DATABASE_URL либо из переменной, либо собирает из отдельных переменных.
// Пустая строка означает работу без базы.
func getDatabaseURL() string {
	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		return dbURL
	}

	host := getEnv("POSTGRESQL_HOST", "")
	port := getEnv("POSTGRESQL_PORT", "5432")
	user := getEnv("POSTGRESQL_USER", "")
	password := getEnv("POSTGRESQL_PASSWORD", "")
	dbname := getEnv("POSTGRESQL_DBNAME", "")

	if host != "" && user != "" && dbname != "" {
		userInfo := url.UserPassword(user, password)
		return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable",
			userInfo.String(), host, port, dbname)
	}
	return ""
}
