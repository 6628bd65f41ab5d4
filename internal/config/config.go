// Пакет config - загрузка и валидация конфигурации filegate
// из переменных окружения (с опциональным .env файлом).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые backend'ы объектного хранилища.
const (
	BackendS3 = "s3"
	BackendFS = "fs"
)

// Config содержит все параметры конфигурации filegate.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Параметры подключения к PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Backend объектного хранилища: s3 или fs
	StorageBackend string
	// Параметры S3/MinIO
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3UseSSL       bool
	S3CreateBucket bool
	// Корневая директория для backend'а fs
	DataDir string

	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64

	// Размер и TTL LRU-кэша метаданных
	CacheSize int
	CacheTTL  time.Duration

	// Redis для блокировки имён при загрузке (пустой адрес - блокировка отключена)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	// Разрешённые CORS origins через запятую
	CORSOrigins []string

	// Параметры topologymetrics
	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthIsEntry       bool

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
// Перед чтением окружения подгружается .env файл (FG_ENV_FILE), если он есть.
// Уже установленные переменные окружения не перезаписываются.
func Load() (*Config, error) {
	if err := loadEnvFile(getEnvDefault("FG_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}
	var err error

	// FG_PORT - порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("FG_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("FG_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("FG_PORT: значение %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FG_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FG_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("FG_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FG_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---
	cfg.DBHost = getEnvDefault("FG_DB_HOST", "localhost")
	cfg.DBPort, err = getEnvInt("FG_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("FG_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("FG_DB_NAME", "filegate")
	cfg.DBUser = getEnvDefault("FG_DB_USER", "filegate")
	cfg.DBPassword = os.Getenv("FG_DB_PASSWORD")
	cfg.DBSSLMode = getEnvDefault("FG_DB_SSL_MODE", "disable")

	// --- Объектное хранилище ---
	cfg.StorageBackend = strings.ToLower(getEnvDefault("FG_STORAGE_BACKEND", BackendS3))
	switch cfg.StorageBackend {
	case BackendS3:
		cfg.S3Endpoint = getEnvDefault("FG_S3_ENDPOINT", "localhost:9000")
		cfg.S3AccessKey = os.Getenv("FG_S3_ACCESS_KEY")
		cfg.S3SecretKey = os.Getenv("FG_S3_SECRET_KEY")
		cfg.S3Bucket = getEnvDefault("FG_S3_BUCKET", "files")
		cfg.S3Region = os.Getenv("FG_S3_REGION")
		cfg.S3UseSSL, err = getEnvBool("FG_S3_USE_SSL", false)
		if err != nil {
			return nil, fmt.Errorf("FG_S3_USE_SSL: %w", err)
		}
		cfg.S3CreateBucket, err = getEnvBool("FG_S3_CREATE_BUCKET", true)
		if err != nil {
			return nil, fmt.Errorf("FG_S3_CREATE_BUCKET: %w", err)
		}
		if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
			return nil, fmt.Errorf("FG_S3_ACCESS_KEY, FG_S3_SECRET_KEY: обязательны для backend %q", BackendS3)
		}
	case BackendFS:
		cfg.DataDir = getEnvDefault("FG_DATA_DIR", "./data")
	default:
		return nil, fmt.Errorf("FG_STORAGE_BACKEND: недопустимое значение %q, допустимые: s3, fs", cfg.StorageBackend)
	}

	// FG_MAX_UPLOAD_SIZE - лимит тела загрузки (по умолчанию 1 GiB)
	cfg.MaxUploadSize, err = getEnvInt64("FG_MAX_UPLOAD_SIZE", 1<<30)
	if err != nil {
		return nil, fmt.Errorf("FG_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("FG_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}

	// --- Кэш метаданных ---
	cfg.CacheSize, err = getEnvInt("FG_CACHE_SIZE", 10000)
	if err != nil {
		return nil, fmt.Errorf("FG_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("FG_CACHE_SIZE: значение должно быть положительным")
	}
	cfg.CacheTTL, err = getEnvDuration("FG_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FG_CACHE_TTL: %w", err)
	}

	// --- Redis (опционально) ---
	cfg.RedisAddr = os.Getenv("FG_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("FG_REDIS_PASSWORD")
	cfg.RedisDB, err = getEnvInt("FG_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("FG_REDIS_DB: %w", err)
	}
	cfg.LockTTL, err = getEnvDuration("FG_LOCK_TTL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FG_LOCK_TTL: %w", err)
	}
	if cfg.LockTTL <= 0 {
		return nil, fmt.Errorf("FG_LOCK_TTL: значение должно быть > 0")
	}

	// Пустое значение отключает CORS, отсутствие переменной разрешает все origins
	cfg.CORSOrigins = []string{"*"}
	if v, ok := os.LookupEnv("FG_CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}

	// --- topologymetrics ---
	cfg.DephealthGroup = getEnvDefault("FG_DEPHEALTH_GROUP", "filegate")
	cfg.DephealthCheckInterval, err = getEnvDuration("FG_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FG_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	// --- HTTP-сервер ---
	cfg.HTTPReadTimeout, err = getEnvDuration("FG_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FG_HTTP_READ_TIMEOUT: %w", err)
	}
	// 0 - без ограничения: streaming больших файлов
	cfg.HTTPWriteTimeout, err = getEnvDuration("FG_HTTP_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("FG_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("FG_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FG_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("FG_SHUTDOWN_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FG_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=%s",
		c.dbUserInfo(), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s@%s:%d/%s?sslmode=%s",
		c.dbUserInfo(), c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// S3HealthURL возвращает базовый URL MinIO для HTTP health checker.
func (c *Config) S3HealthURL() string {
	scheme := "http"
	if c.S3UseSSL {
		scheme = "https"
	}
	return scheme + "://" + c.S3Endpoint
}

// dbUserInfo экранирует логин и пароль для подстановки в URL.
func (c *Config) dbUserInfo() string {
	if c.DBPassword == "" {
		return url.User(c.DBUser).String()
	}
	return url.UserPassword(c.DBUser, c.DBPassword).String()
}

// SetupLogger создаёт и настраивает slog.Logger на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// loadEnvFile подгружает переменные из .env файла.
// Отсутствие файла не считается ошибкой.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	return nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 из переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// splitList разбивает строку по запятым, отбрасывая пустые элементы.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
