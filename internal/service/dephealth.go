// dephealth.go - интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// filegate мониторит:
//   - PostgreSQL - SQL checker через существующий pgxpool (connection pool mode, critical)
//   - MinIO - HTTP checker к /minio/health/live (critical, только для backend s3)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health - состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds - задержка проверки
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// minioHealthPath - liveness endpoint MinIO.
const minioHealthPath = "/minio/health/live"

// DephealthParams - параметры мониторинга зависимостей.
type DephealthParams struct {
	// ServiceID - имя вершины графа текущего приложения
	ServiceID string
	// Group - имя группы в метриках (FG_DEPHEALTH_GROUP)
	Group string
	// DB - *sql.DB из pgxpool через stdlib.OpenDBFromPool(); nil - без PostgreSQL
	DB *sql.DB
	// PgConnURL - URL PostgreSQL (для лейблов, не для подключения)
	PgConnURL string
	// ObjectStoreURL - базовый URL MinIO; пустой - без проверки хранилища
	ObjectStoreURL string
	// CheckInterval - интервал проверки (FG_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
	// IsEntry - лейбл isentry=yes ко всем зависимостям (DEPHEALTH_ISENTRY)
	IsEntry bool
}

// DephealthService - сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
func NewDephealthService(p DephealthParams, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(p, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	p DephealthParams,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(p, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(p DephealthParams, logger *slog.Logger, extraOpts ...dephealth.Option) (*DephealthService, error) {
	if p.DB == nil && p.ObjectStoreURL == "" {
		return nil, errors.New("не задано ни одной зависимости для мониторинга")
	}

	opts := []dephealth.Option{dephealth.WithLogger(logger)}

	if p.DB != nil {
		pgDepOpts := []dephealth.DependencyOption{
			dephealth.FromURL(p.PgConnURL),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(true),
		}
		if p.IsEntry {
			pgDepOpts = append(pgDepOpts, dephealth.WithLabel("isentry", "yes"))
		}
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(p.DB)), pgDepOpts...))
	}

	if p.ObjectStoreURL != "" {
		s3DepOpts := []dephealth.DependencyOption{
			dephealth.FromURL(p.ObjectStoreURL),
			dephealth.WithHTTPHealthPath(minioHealthPath),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(true),
		}
		if p.IsEntry {
			s3DepOpts = append(s3DepOpts, dephealth.WithLabel("isentry", "yes"))
		}
		if parsed, err := url.Parse(p.ObjectStoreURL); err == nil && parsed.Scheme == "https" {
			s3DepOpts = append(s3DepOpts, dephealth.WithHTTPTLSSkipVerify(false))
		}
		opts = append(opts, dephealth.HTTP("object-store", s3DepOpts...))
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(p.ServiceID, p.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ - имя зависимости, значение - true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
