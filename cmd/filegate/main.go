// main.go - точка входа filegate.
// Порядок: config → logger → PostgreSQL → хранилище → сервисы → HTTP.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/filegate/internal/api/handlers"
	"github.com/bigkaa/filegate/internal/api/middleware"
	"github.com/bigkaa/filegate/internal/config"
	"github.com/bigkaa/filegate/internal/database"
	"github.com/bigkaa/filegate/internal/lock"
	"github.com/bigkaa/filegate/internal/repository"
	"github.com/bigkaa/filegate/internal/server"
	"github.com/bigkaa/filegate/internal/service"
	"github.com/bigkaa/filegate/internal/storage/filestore"
	"github.com/bigkaa/filegate/internal/storage/s3store"
)

// objectStore - хранилище blob'ов с проверкой готовности.
type objectStore interface {
	service.ObjectStore
	handlers.ReadinessChecker
}

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("filegate запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("storage_backend", cfg.StorageBackend),
	)

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

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Каталог метаданных
	fileRepo := repository.NewFileRepository(pool)

	// 6. Объектное хранилище
	var store objectStore
	switch cfg.StorageBackend {
	case config.BackendFS:
		store, err = filestore.New(cfg.DataDir)
	default:
		store, err = s3store.New(ctx, s3store.Config{
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			UseSSL:       cfg.S3UseSSL,
			CreateBucket: cfg.S3CreateBucket,
		}, logger)
	}
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Блокировка имён (Redis опционален)
	var (
		locker      service.NameLocker = lock.NopLocker{}
		lockChecker handlers.ReadinessChecker
	)
	if cfg.RedisAddr != "" {
		redisLocker, err := lock.NewRedisLocker(ctx, lock.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.LockTTL,
		}, logger)
		if err != nil {
			logger.Error("Ошибка подключения к Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisLocker.Close()
		locker = redisLocker
		lockChecker = redisLocker
	} else {
		logger.Info("FG_REDIS_ADDR не задан, блокировка имён между экземплярами отключена")
	}

	// 8. Сервисы
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	naming := service.NewNamingResolver(fileRepo)
	services := handlers.Services{
		Upload:    service.NewUploadService(fileRepo, store, naming, locker, cache, "", logger),
		Files:     service.NewFileService(fileRepo, cache, logger),
		Retrieval: service.NewRetrievalService(fileRepo, store, cache, logger),
		Archive:   service.NewArchiveService(fileRepo, store, cache, logger),
		Deletion:  service.NewDeletionService(fileRepo, store, cache, logger),
	}

	// 9. topologymetrics - мониторинг зависимостей (PostgreSQL + MinIO)
	dhParams := service.DephealthParams{
		ServiceID:     "filegate",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PgConnURL:     cfg.DatabaseDSN(),
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}
	if cfg.StorageBackend == config.BackendS3 {
		dhParams.ObjectStoreURL = cfg.S3HealthURL()
	}
	dephealthSvc, err := service.NewDephealthService(dhParams, logger)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		dephealthSvc = nil
	} else if err := dephealthSvc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		dephealthSvc = nil
	}

	// 10. HTTP-обработчики
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), store, lockChecker)
	apiHandler := handlers.NewAPIHandler(healthHandler, services, cfg.MaxUploadSize, logger)

	// 11. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, apiHandler,
		middleware.CORS(cfg.CORSOrigins),
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
	)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("filegate остановлен")
}
