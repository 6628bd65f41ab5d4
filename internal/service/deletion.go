// deletion.go - удаление файла из хранилища и каталога.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filegate/internal/repository"
)

var deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fg_deletes_total",
	Help: "Общее количество удалений файлов (по статусу).",
}, []string{"status"})

// DeletionService - удаление blob'а и записи каталога.
type DeletionService struct {
	repo   repository.FileRepository
	store  ObjectStore
	cache  *CacheService
	logger *slog.Logger
}

// NewDeletionService создаёт сервис удаления.
func NewDeletionService(
	repo repository.FileRepository,
	store ObjectStore,
	cache *CacheService,
	logger *slog.Logger,
) *DeletionService {
	return &DeletionService{
		repo:   repo,
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "deletion_service")),
	}
}

// Delete удаляет файл: сначала blob, затем запись каталога.
// Если удаление blob'а не удалось, каталог не изменяется. Повтор операции
// безопасен: удаление отсутствующего blob'а не ошибка.
func (s *DeletionService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		deletesTotal.WithLabelValues("not_found").Inc()
		return newError(ErrNotFound, nil, "")
	}

	// Запись читается из БД в обход кэша: ключ должен быть актуальным
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.cache.MarkDeleted(id)
			deletesTotal.WithLabelValues("not_found").Inc()
			return newError(ErrNotFound, nil, "")
		}
		deletesTotal.WithLabelValues("error").Inc()
		return newError(ErrCatalogFailed, err, "")
	}

	if err := s.store.Delete(ctx, record.StorageKey); err != nil {
		deletesTotal.WithLabelValues("storage_error").Inc()
		s.logger.Error("Ошибка удаления blob, запись каталога сохранена",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		return newError(ErrStorageDeleteFailed, err, "")
	}

	if err := s.repo.Remove(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Запись удалена параллельным запросом
			s.cache.MarkDeleted(id)
			deletesTotal.WithLabelValues("not_found").Inc()
			return newError(ErrNotFound, nil, "")
		}
		// Запись осталась в БД, метку удаления не ставим
		s.cache.Delete(id)
		deletesTotal.WithLabelValues("error").Inc()
		s.logger.Error("Blob удалён, запись каталога не удалена",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		return newError(ErrCatalogFailed, err, "")
	}

	s.cache.MarkDeleted(id)
	deletesTotal.WithLabelValues("success").Inc()
	s.logger.Info("Файл удалён",
		slog.String("file_id", id),
		slog.String("filename", record.Filename),
	)
	return nil
}
