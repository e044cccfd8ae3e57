// Пакет config — загрузка и валидация конфигурации QRStore
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации QRStore.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Публичный базовый URL сервиса. Кодируется в изображение
	// динамических QR как <PublicBaseURL>/s/{id}, поэтому должен быть
	// адресом, доступным сканирующим устройствам.
	PublicBaseURL string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- JWT (аутентификация через внешний IdP) ---

	// URL JWKS endpoint внешнего IdP
	JWTJWKSURL string
	// Ожидаемый issuer JWT (опционально; пустая строка — не проверять)
	JWTIssuer string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Генерация изображений ---

	// Размер стороны preview-изображения в пикселях (хранится в БД)
	PreviewSize int
	// Размер стороны high-res изображения для скачивания
	DownloadSize int
	// Максимальное количество записей в кэше отрендеренных изображений
	DownloadCacheSize int
	// Время жизни записи в кэше отрендеренных изображений
	DownloadCacheTTL time.Duration

	// --- Мониторинг зависимостей ---

	// Имя группы topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// QS_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("QS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("QS_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("QS_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// QS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("QS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("QS_LOG_LEVEL: %w", err)
	}

	// QS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("QS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("QS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// QS_PUBLIC_BASE_URL — публичный базовый URL (по умолчанию http://localhost:<port>)
	cfg.PublicBaseURL = getEnvDefault("QS_PUBLIC_BASE_URL",
		fmt.Sprintf("http://localhost:%d", cfg.Port))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	// --- PostgreSQL ---

	// QS_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("QS_DB_HOST")
	if err != nil {
		return nil, err
	}

	// QS_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("QS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("QS_DB_PORT: %w", err)
	}

	// QS_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("QS_DB_NAME")
	if err != nil {
		return nil, err
	}

	// QS_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("QS_DB_USER")
	if err != nil {
		return nil, err
	}

	// QS_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("QS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// QS_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("QS_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("QS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT ---

	// QS_JWT_JWKS_URL — обязательный
	cfg.JWTJWKSURL, err = getEnvRequired("QS_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// QS_JWT_ISSUER — опциональный (пустая строка — не проверять issuer)
	cfg.JWTIssuer = getEnvDefault("QS_JWT_ISSUER", "")

	// QS_JWKS_CLIENT_TIMEOUT — таймаут HTTP-клиента JWKS (по умолчанию 10s)
	cfg.JWKSClientTimeout, err = getEnvDuration("QS_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QS_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// QS_JWKS_REFRESH_INTERVAL — интервал обновления ключей (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("QS_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("QS_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// QS_JWT_LEEWAY — допуск времени при проверке JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("QS_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QS_JWT_LEEWAY: %w", err)
	}

	// --- Генерация изображений ---

	// QS_PREVIEW_SIZE — размер preview-изображения (по умолчанию 256)
	cfg.PreviewSize, err = getEnvInt("QS_PREVIEW_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("QS_PREVIEW_SIZE: %w", err)
	}
	if cfg.PreviewSize < 64 || cfg.PreviewSize > 1024 {
		return nil, fmt.Errorf("QS_PREVIEW_SIZE: значение %d вне допустимого диапазона 64-1024", cfg.PreviewSize)
	}

	// QS_DOWNLOAD_SIZE — размер high-res изображения (по умолчанию 1080)
	cfg.DownloadSize, err = getEnvInt("QS_DOWNLOAD_SIZE", 1080)
	if err != nil {
		return nil, fmt.Errorf("QS_DOWNLOAD_SIZE: %w", err)
	}
	if cfg.DownloadSize < 256 || cfg.DownloadSize > 4096 {
		return nil, fmt.Errorf("QS_DOWNLOAD_SIZE: значение %d вне допустимого диапазона 256-4096", cfg.DownloadSize)
	}

	// QS_DOWNLOAD_CACHE_SIZE — размер кэша рендеров (по умолчанию 512)
	cfg.DownloadCacheSize, err = getEnvInt("QS_DOWNLOAD_CACHE_SIZE", 512)
	if err != nil {
		return nil, fmt.Errorf("QS_DOWNLOAD_CACHE_SIZE: %w", err)
	}
	if cfg.DownloadCacheSize < 1 {
		return nil, fmt.Errorf("QS_DOWNLOAD_CACHE_SIZE: значение должно быть положительным")
	}

	// QS_DOWNLOAD_CACHE_TTL — TTL кэша рендеров (по умолчанию 5m)
	cfg.DownloadCacheTTL, err = getEnvDuration("QS_DOWNLOAD_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("QS_DOWNLOAD_CACHE_TTL: %w", err)
	}

	// --- Мониторинг зависимостей ---

	// QS_DEPHEALTH_GROUP — группа topologymetrics (по умолчанию qrstore)
	cfg.DephealthGroup = getEnvDefault("QS_DEPHEALTH_GROUP", "qrstore")

	// QS_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("QS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// QS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("QS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для метрик/лейблов).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
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

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
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
