// archive.go - просмотр содержимого zip-архива без извлечения файлов.
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filegate/internal/repository"
)

var archiveInspectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fg_archive_inspections_total",
	Help: "Общее количество запросов на просмотр архива (по статусу).",
}, []string{"status"})

// ArchiveService - инспекция архивов, хранящихся в объектном хранилище.
type ArchiveService struct {
	retrieval *RetrievalService
	logger    *slog.Logger
}

// NewArchiveService создаёт сервис инспекции архивов.
func NewArchiveService(
	repo repository.FileRepository,
	store ObjectStore,
	cache *CacheService,
	logger *slog.Logger,
) *ArchiveService {
	return &ArchiveService{
		retrieval: NewRetrievalService(repo, store, cache, logger),
		logger:    logger.With(slog.String("component", "archive_service")),
	}
}

// ListEntries возвращает имена записей zip-архива в порядке central directory.
// Содержимое записей не читается.
//
// Если поток blob'а поддерживает io.ReaderAt (os.File, minio.Object),
// читается только central directory; иначе blob буферизуется в памяти целиком.
func (s *ArchiveService) ListEntries(ctx context.Context, id string) ([]string, error) {
	record, body, err := s.retrieval.Open(ctx, id)
	if err != nil {
		archiveInspectionsTotal.WithLabelValues(statusLabel(err)).Inc()
		return nil, err
	}
	defer body.Close()

	var (
		ra   io.ReaderAt
		size int64
	)
	if r, ok := body.(io.ReaderAt); ok {
		ra, size = r, record.Size
	} else {
		data, err := io.ReadAll(body)
		if err != nil {
			archiveInspectionsTotal.WithLabelValues("error").Inc()
			return nil, newError(ErrArchiveReadFailed, err, "")
		}
		ra, size = bytes.NewReader(data), int64(len(data))
	}

	zr, err := zip.NewReader(ra, size)
	if err != nil {
		if isMalformedArchive(err) {
			archiveInspectionsTotal.WithLabelValues("invalid").Inc()
			return nil, newError(ErrInvalidArchive, err, "")
		}
		archiveInspectionsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка чтения архива",
			slog.String("file_id", record.ID),
			slog.String("error", err.Error()),
		)
		return nil, newError(ErrArchiveReadFailed, err, "")
	}

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	archiveInspectionsTotal.WithLabelValues("success").Inc()
	return names, nil
}

// isMalformedArchive проверяет, что ошибка вызвана содержимым, а не чтением.
// Обрыв central directory (io.ErrUnexpectedEOF) означает усечённый архив.
func isMalformedArchive(err error) bool {
	return errors.Is(err, zip.ErrFormat) ||
		errors.Is(err, zip.ErrAlgorithm) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
