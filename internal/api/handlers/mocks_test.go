package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/filegate/internal/domain/model"
	"github.com/bigkaa/filegate/internal/service"
)

// --- Mock-сервисы ---

type mockUploader struct {
	uploadFn func(ctx context.Context, p service.UploadParams) (*model.FileRecord, error)
}

func (m *mockUploader) Upload(ctx context.Context, p service.UploadParams) (*model.FileRecord, error) {
	return m.uploadFn(ctx, p)
}

type mockFileReader struct {
	getMetadataFn func(ctx context.Context, id string) (*model.FileRecord, error)
	listFn        func(ctx context.Context, contentType string) ([]*model.FileRecord, error)
}

func (m *mockFileReader) GetMetadata(ctx context.Context, id string) (*model.FileRecord, error) {
	return m.getMetadataFn(ctx, id)
}

func (m *mockFileReader) List(ctx context.Context, contentType string) ([]*model.FileRecord, error) {
	return m.listFn(ctx, contentType)
}

type mockStreamer struct {
	streamFn func(ctx context.Context, w http.ResponseWriter, id string, d service.Disposition) error
}

func (m *mockStreamer) Stream(ctx context.Context, w http.ResponseWriter, id string, d service.Disposition) error {
	return m.streamFn(ctx, w, id, d)
}

type mockArchive struct {
	listEntriesFn func(ctx context.Context, id string) ([]string, error)
}

func (m *mockArchive) ListEntries(ctx context.Context, id string) ([]string, error) {
	return m.listEntriesFn(ctx, id)
}

type mockDeleter struct {
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockDeleter) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockChecker struct {
	status, message string
}

func (m mockChecker) CheckReady() (string, string) { return m.status, m.message }

// --- Сборка роутера ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestRouter собирает роутер с переданными сервисами.
// maxUpload == 0 - лимит загрузки 1 MiB.
func newTestRouter(svc Services, maxUpload int64) http.Handler {
	if maxUpload == 0 {
		maxUpload = 1 << 20
	}
	h := NewAPIHandler(
		NewHealthHandler(mockChecker{status: "ok"}, mockChecker{status: "ok"}, nil),
		svc,
		maxUpload,
		testLogger(),
	)
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}
