// Пакет database — доступ QRStore к PostgreSQL: пул соединений pgxpool,
// встроенные миграции схемы qr_codes (golang-migrate) и проверка
// готовности для readiness probe.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/qrstore/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// readyTimeout — таймаут ping при проверке готовности.
const readyTimeout = 3 * time.Second

// Connect создаёт пул соединений с PostgreSQL и проверяет его ping-ом.
// Пул отдаётся репозиторию QR-кодов и dephealth-монитору.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("разбор DSN PostgreSQL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("создание пула соединений: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("PostgreSQL недоступен: %w", err)
	}

	logger.Info("Пул соединений PostgreSQL готов",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)
	return pool, nil
}

// Migrate приводит схему qr_codes к актуальной версии.
// Миграции встроены в бинарник, отдельный инструмент не нужен.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("миграции: чтение встроенных файлов: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(cfg))
	if err != nil {
		return fmt.Errorf("миграции: инициализация: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("миграции: применение: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Схема qr_codes актуальна",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// migrateURL переводит URL подключения в форму, которую ждёт
// golang-migrate: тот выбирает драйвер по схеме, для pgx/v5 это pgx5.
func migrateURL(cfg *config.Config) string {
	return "pgx5" + strings.TrimPrefix(cfg.DatabaseURL(), "postgres")
}

// ReadinessChecker — проверка готовности PostgreSQL для /health/ready.
// Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// CheckReady ping-ует пул соединений.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()

	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL: %v", err)
	}
	return "ok", "пул соединений отвечает"
}
