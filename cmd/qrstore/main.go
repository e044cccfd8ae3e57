// Точка входа QRStore — сервис управления QR-кодами.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт сервисный слой и API handlers, запускает мониторинг зависимостей
// (topologymetrics), HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/bigkaa/qrstore/internal/api/handlers"
	"github.com/bigkaa/qrstore/internal/api/middleware"
	"github.com/bigkaa/qrstore/internal/config"
	"github.com/bigkaa/qrstore/internal/database"
	"github.com/bigkaa/qrstore/internal/qrimage"
	"github.com/bigkaa/qrstore/internal/repository"
	"github.com/bigkaa/qrstore/internal/server"
	"github.com/bigkaa/qrstore/internal/service"
)

func main() {
	// 0. .env для локальной разработки (в кластере переменные задаёт окружение)
	_ = godotenv.Load()

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("QRStore запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("public_base_url", cfg.PublicBaseURL),
	)

	if os.Getenv("QS_PUBLIC_BASE_URL") == "" {
		logger.Warn("QS_PUBLIC_BASE_URL не задана, используется значение по умолчанию",
			slog.String("default", cfg.PublicBaseURL),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repository и кодек изображений
	qrRepo := repository.NewQRCodeRepository(pool)
	codec := qrimage.NewCodec(cfg.PreviewSize)

	// 6. Services
	qrSvc := service.NewQRCodeService(qrRepo, codec, cfg.PublicBaseURL, logger)
	redirectSvc := service.NewRedirectService(qrRepo, logger)
	downloadSvc := service.NewDownloadService(
		qrRepo, codec,
		cfg.DownloadSize, cfg.DownloadCacheSize, cfg.DownloadCacheTTL,
		logger,
	)

	// 7. Readiness checkers (PostgreSQL + IdP)
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker := middleware.NewJWKSReadinessChecker(cfg.JWTJWKSURL, cfg.JWKSClientTimeout)
	healthHandler := handlers.NewHealthHandler(pgChecker, idpChecker)

	// 8. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		qrSvc,
		redirectSvc,
		downloadSvc,
		logger,
	)

	// 9. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + IdP)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"qrstore",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	// Дожидаемся фоновых инкрементов счётчика сканирований
	redirectSvc.Drain()

	logger.Info("QRStore остановлен")
}
