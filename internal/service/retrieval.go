// retrieval.go - выдача содержимого файла клиенту потоком.
// Pipeline: FileRecord (кэш/БД) → blob из хранилища → streaming в ResponseWriter.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filegate/internal/domain/model"
	"github.com/bigkaa/filegate/internal/repository"
	"github.com/bigkaa/filegate/internal/storage"
)

// Disposition - способ отображения файла клиентом.
type Disposition string

const (
	// DispositionInline - показать в браузере
	DispositionInline Disposition = "inline"
	// DispositionAttachment - предложить сохранить
	DispositionAttachment Disposition = "attachment"
)

// Prometheus-метрики выдачи.
var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fg_downloads_total",
		Help: "Общее количество запросов на получение файла (по статусу).",
	}, []string{"status"})

	downloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fg_download_duration_seconds",
		Help:    "Длительность выдачи файла (от запроса до завершения streaming).",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fg_download_bytes_total",
		Help: "Общее количество переданных байт при выдаче файлов.",
	})

	activeDownloads = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fg_active_downloads",
		Help: "Количество активных (in-progress) выдач файлов.",
	})
)

// RetrievalService - выдача файлов из объектного хранилища.
type RetrievalService struct {
	records recordSource
	store   ObjectStore
	logger  *slog.Logger
}

// NewRetrievalService создаёт сервис выдачи файлов.
func NewRetrievalService(
	repo repository.FileRepository,
	store ObjectStore,
	cache *CacheService,
	logger *slog.Logger,
) *RetrievalService {
	return &RetrievalService{
		records: recordSource{repo: repo, cache: cache},
		store:   store,
		logger:  logger.With(slog.String("component", "retrieval_service")),
	}
}

// Open находит запись и открывает поток blob'а.
// Вызывающий код обязан закрыть возвращённый ReadCloser.
func (s *RetrievalService) Open(ctx context.Context, id string) (*model.FileRecord, io.ReadCloser, error) {
	record, err := s.records.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.store.Get(ctx, record.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if s.records.gone(ctx, record.ID) {
				return nil, nil, newError(ErrNotFound, nil, "")
			}
			s.logger.Error("Blob отсутствует в хранилище при наличии записи каталога",
				slog.String("file_id", record.ID),
				slog.String("storage_key", record.StorageKey),
			)
			return nil, nil, newError(ErrStorageMissing, err, "")
		}
		return nil, nil, newError(ErrStorageReadFailed, err, "")
	}

	return record, body, nil
}

// Stream отправляет файл клиенту с заголовками Content-Type,
// Content-Length и Content-Disposition.
// Ошибки до отправки заголовков возвращаются вызывающему; ошибка
// в процессе streaming только логируется, так как статус уже отправлен.
func (s *RetrievalService) Stream(ctx context.Context, w http.ResponseWriter, id string, disposition Disposition) error {
	start := time.Now()
	activeDownloads.Inc()
	defer activeDownloads.Dec()

	record, body, err := s.Open(ctx, id)
	if err != nil {
		downloadsTotal.WithLabelValues(statusLabel(err)).Inc()
		return err
	}
	defer body.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(record.Size, 10))
	w.Header().Set("Content-Disposition", ContentDisposition(disposition, record.Filename))
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, body)
	if err != nil {
		s.logger.Error("Ошибка streaming файла",
			slog.String("file_id", record.ID),
			slog.Int64("bytes_written", written),
			slog.String("error", err.Error()),
		)
		downloadsTotal.WithLabelValues("stream_error").Inc()
		return nil
	}

	duration := time.Since(start)
	downloadsTotal.WithLabelValues("success").Inc()
	downloadDuration.Observe(duration.Seconds())
	downloadBytesTotal.Add(float64(written))

	s.logger.Debug("Файл отправлен",
		slog.String("file_id", record.ID),
		slog.Int64("bytes", written),
		slog.Duration("duration", duration),
	)

	return nil
}

// ContentDisposition формирует значение заголовка Content-Disposition
// с именем в формате RFC 5987: filename*=utf-8''<percent-encoded>.
func ContentDisposition(disposition Disposition, filename string) string {
	return fmt.Sprintf("%s; filename*=utf-8''%s", disposition, encodeRFC5987(filename))
}

// encodeRFC5987 кодирует все байты UTF-8, кроме букв, цифр и "-._~".
func encodeRFC5987(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

// statusLabel возвращает значение метки status для ошибки сервиса.
func statusLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageMissing):
		return "storage_missing"
	default:
		return "error"
	}
}
