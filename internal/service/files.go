// files.go - общие зависимости сервисов, чтение метаданных и список файлов.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bigkaa/filegate/internal/domain/model"
	"github.com/bigkaa/filegate/internal/lock"
	"github.com/bigkaa/filegate/internal/repository"
)

// ObjectStore - хранилище blob'ов по непрозрачным ключам.
// Реализации: s3store.Store и filestore.FileStore.
type ObjectStore interface {
	// Put записывает blob целиком; частично записанный blob не виден Get.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get возвращает поток blob'а или ошибку, оборачивающую storage.ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete удаляет blob; отсутствие ключа не ошибка.
	Delete(ctx context.Context, key string) error
}

// NameLocker - блокировка отображаемого имени на время загрузки.
type NameLocker interface {
	Lock(ctx context.Context, name string) (lock.Unlock, error)
}

// recordSource - чтение записей каталога через кэш.
type recordSource struct {
	repo  repository.FileRepository
	cache *CacheService
}

// get возвращает запись по id: сначала кэш, затем БД.
// Некорректный UUID трактуется как отсутствующая запись.
func (rs recordSource) get(ctx context.Context, id string) (*model.FileRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, newError(ErrNotFound, nil, "")
	}

	if record, ok := rs.cache.Get(id); ok {
		return record, nil
	}
	if rs.cache.Deleted(id) {
		return nil, newError(ErrNotFound, nil, "")
	}

	record, err := rs.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, nil, "")
		}
		return nil, newError(ErrCatalogFailed, err, "")
	}

	// Файл удалён, пока шло чтение из БД
	if !rs.cache.Fill(id, record) {
		return nil, newError(ErrNotFound, nil, "")
	}
	return record, nil
}

// gone перепроверяет запись в БД, когда blob не найден: запись могла
// быть удалена другим экземпляром, а здесь остаться в кэше.
func (rs recordSource) gone(ctx context.Context, id string) bool {
	_, err := rs.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		rs.cache.MarkDeleted(id)
		return true
	}
	return false
}

// FileService - чтение метаданных и список файлов.
type FileService struct {
	records recordSource
	logger  *slog.Logger
}

// NewFileService создаёт сервис метаданных.
func NewFileService(repo repository.FileRepository, cache *CacheService, logger *slog.Logger) *FileService {
	return &FileService{
		records: recordSource{repo: repo, cache: cache},
		logger:  logger.With(slog.String("component", "file_service")),
	}
}

// GetMetadata возвращает запись каталога по id.
func (s *FileService) GetMetadata(ctx context.Context, id string) (*model.FileRecord, error) {
	return s.records.get(ctx, id)
}

// List возвращает записи, у которых content_type содержит contentType.
// Пустая строка - без фильтра. Порядок не гарантируется.
func (s *FileService) List(ctx context.Context, contentType string) ([]*model.FileRecord, error) {
	records, err := s.records.repo.ListByContentType(ctx, contentType)
	if err != nil {
		return nil, newError(ErrCatalogFailed, err, "")
	}
	if records == nil {
		records = []*model.FileRecord{}
	}
	return records, nil
}
