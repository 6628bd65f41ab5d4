// handler.go - основной обработчик API filegate.
// Объединяет health и файловые обработчики, делегируя работу в сервисный слой.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/filegate/internal/api/errors"
	"github.com/bigkaa/filegate/internal/domain/model"
	"github.com/bigkaa/filegate/internal/service"
)

// Uploader - загрузка файла.
type Uploader interface {
	Upload(ctx context.Context, p service.UploadParams) (*model.FileRecord, error)
}

// FileReader - метаданные и список файлов.
type FileReader interface {
	GetMetadata(ctx context.Context, id string) (*model.FileRecord, error)
	List(ctx context.Context, contentType string) ([]*model.FileRecord, error)
}

// Streamer - потоковая выдача содержимого.
type Streamer interface {
	Stream(ctx context.Context, w http.ResponseWriter, id string, disposition service.Disposition) error
}

// ArchiveInspector - список записей zip-архива.
type ArchiveInspector interface {
	ListEntries(ctx context.Context, id string) ([]string, error)
}

// Deleter - удаление файла.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// Services - зависимости APIHandler из сервисного слоя.
type Services struct {
	Upload    Uploader
	Files     FileReader
	Retrieval Streamer
	Archive   ArchiveInspector
	Deletion  Deleter
}

// APIHandler - основной обработчик API filegate.
type APIHandler struct {
	health        *HealthHandler
	svc           Services
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// maxUploadSize - лимит тела запроса загрузки в байтах.
func NewAPIHandler(
	health *HealthHandler,
	svc Services,
	maxUploadSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		svc:           svc,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive - liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady - readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics - Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError логирует ошибку сервиса и пишет ответ.
// 404 и 400 не логируются как ошибки: это штатные ответы клиенту.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, msg, fileID string, err error) {
	status, _ := apierrors.Classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg,
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
	apierrors.FromService(w, err)
}
