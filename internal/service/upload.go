// upload.go - сервис загрузки файлов.
// Порядок: SHA-256 и размер по всему содержимому → имена → blob → запись каталога.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filegate/internal/domain/model"
	"github.com/bigkaa/filegate/internal/repository"
)

// Prometheus-метрики загрузки.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fg_uploads_total",
		Help: "Общее количество загрузок (по статусу).",
	}, []string{"status"})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fg_upload_bytes_total",
		Help: "Общее количество байт, записанных в хранилище при загрузке.",
	})

	uploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fg_upload_duration_seconds",
		Help:    "Длительность загрузки (от чтения тела до записи в каталог).",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	orphanBlobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fg_orphan_blobs_total",
		Help: "Blob'ы, записанные в хранилище без записи в каталоге.",
	})
)

// UploadParams - параметры загрузки файла.
type UploadParams struct {
	// Reader - содержимое файла. io.ReadSeeker читается дважды,
	// прочие источники предварительно копируются во временный файл.
	Reader io.Reader
	// Filename - исходное имя файла
	Filename string
	// ContentType - MIME-тип, сохраняется как есть
	ContentType string
}

// UploadService - сервис загрузки файлов.
type UploadService struct {
	repo     repository.FileRepository
	store    ObjectStore
	naming   *NamingResolver
	locker   NameLocker
	cache    *CacheService
	spoolDir string
	logger   *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
// spoolDir - директория временных файлов ("" - os.TempDir()).
func NewUploadService(
	repo repository.FileRepository,
	store ObjectStore,
	naming *NamingResolver,
	locker NameLocker,
	cache *CacheService,
	spoolDir string,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		repo:     repo,
		store:    store,
		naming:   naming,
		locker:   locker,
		cache:    cache,
		spoolDir: spoolDir,
		logger:   logger.With(slog.String("component", "upload_service")),
	}
}

// Upload загружает файл и возвращает созданную запись каталога.
//
// Pipeline:
//  1. SHA-256 и размер по всему содержимому до любой записи
//  2. Блокировка исходного имени (Redis или заглушка)
//  3. Ключ хранилища и свободное отображаемое имя
//  4. Запись blob'а; при ошибке запись в каталоге не создаётся
//  5. Вставка записи; при конфликте имени - одно повторное разрешение
//
// Если вставка не удалась после записи blob'а, blob остаётся в хранилище
// без записи (orphan) и фиксируется в логе и метрике fg_orphan_blobs_total.
func (s *UploadService) Upload(ctx context.Context, p UploadParams) (*model.FileRecord, error) {
	start := time.Now()

	if p.Filename == "" {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, newError(ErrEmptyFilename, nil, "")
	}

	// 1. Хэш и размер
	payload, err := s.preparePayload(p.Reader)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, newError(ErrUploadFailed, err, "")
	}
	defer payload.cleanup()

	// 2. Блокировка имени
	unlock, err := s.locker.Lock(ctx, p.Filename)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, newError(ErrUploadFailed, fmt.Errorf("блокировка имени: %w", err), "")
	}
	defer unlock()

	// 3. Имена
	storageKey := s.naming.StorageKey(p.Filename)
	filename, err := s.naming.ResolveFilename(ctx, p.Filename)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, newError(ErrUploadFailed, errors.Join(ErrCatalogFailed, err), "")
	}

	// 4. Blob
	if err := s.store.Put(ctx, storageKey, payload.reader, payload.size, p.ContentType); err != nil {
		uploadsTotal.WithLabelValues("storage_error").Inc()
		s.logger.Error("Ошибка записи blob",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		return nil, newError(ErrUploadFailed, errors.Join(ErrStorageWriteFailed, err), "")
	}

	// 5. Запись каталога
	record := &model.FileRecord{
		ID:          uuid.NewString(),
		Filename:    filename,
		Size:        payload.size,
		ContentType: p.ContentType,
		Hash:        payload.hash,
		StorageKey:  storageKey,
	}

	err = s.repo.Insert(ctx, record)
	if errors.Is(err, repository.ErrDuplicateFilename) {
		s.logger.Warn("Имя занято параллельной загрузкой, повторное разрешение",
			slog.String("filename", filename),
		)
		record.Filename, err = s.naming.ResolveFilename(ctx, p.Filename)
		if err == nil {
			err = s.repo.Insert(ctx, record)
		}
	}
	if err != nil {
		uploadsTotal.WithLabelValues("catalog_error").Inc()
		orphanBlobsTotal.Inc()
		s.logger.Error("Запись каталога не создана, blob остался без записи",
			slog.String("filename", record.Filename),
			slog.String("storage_key", storageKey),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, repository.ErrDuplicateFilename) {
			return nil, newError(ErrDuplicateFilename, err, "")
		}
		return nil, newError(ErrUploadFailed, errors.Join(ErrCatalogFailed, err), "")
	}

	s.cache.Set(record.ID, record)

	duration := time.Since(start)
	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytesTotal.Add(float64(record.Size))
	uploadDuration.Observe(duration.Seconds())

	s.logger.Info("Файл загружен",
		slog.String("file_id", record.ID),
		slog.String("filename", record.Filename),
		slog.Int64("size", record.Size),
		slog.Duration("duration", duration),
	)

	return record, nil
}

// payload - подготовленное содержимое: поток с начала, размер и хэш.
type payload struct {
	reader  io.Reader
	size    int64
	hash    string
	cleanup func()
}

// preparePayload вычисляет SHA-256 и размер содержимого за один проход
// и возвращает поток, читающий то же содержимое с начала.
func (s *UploadService) preparePayload(r io.Reader) (*payload, error) {
	if r == nil {
		return nil, errors.New("содержимое файла не передано")
	}

	if rs, ok := r.(io.ReadSeeker); ok {
		hasher := sha256.New()
		size, err := io.Copy(hasher, rs)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения содержимого: %w", err)
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("ошибка перемотки содержимого: %w", err)
		}
		return &payload{
			reader:  rs,
			size:    size,
			hash:    hex.EncodeToString(hasher.Sum(nil)),
			cleanup: func() {},
		}, nil
	}

	// Источник без Seek: копия во временный файл с подсчётом SHA-256 на лету
	f, err := os.CreateTemp(s.spoolDir, "filegate-upload-*")
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(r, hasher))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("ошибка чтения содержимого: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, fmt.Errorf("ошибка перемотки временного файла: %w", err)
	}

	return &payload{
		reader:  f,
		size:    size,
		hash:    hex.EncodeToString(hasher.Sum(nil)),
		cleanup: cleanup,
	}, nil
}
