package errors //nolint:revive // имя пакета совпадает со stdlib

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bigkaa/filegate/internal/service"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("ошибка декодирования тела: %v", err)
	}
	return body
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, CodeNotFound, "Файл не найден")

	if w.Code != http.StatusNotFound {
		t.Errorf("статус = %d, ожидался 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := decodeBody(t, w)
	if body.Error.Code != CodeNotFound || body.Error.Message != "Файл не найден" {
		t.Errorf("тело = %+v", body)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", &service.Error{Kind: service.ErrNotFound}, 404, CodeNotFound},
		{"invalid archive", &service.Error{Kind: service.ErrInvalidArchive}, 400, CodeInvalidArchive},
		{"empty filename", &service.Error{Kind: service.ErrEmptyFilename}, 400, CodeValidationError},
		{"upload failed", &service.Error{Kind: service.ErrUploadFailed, Err: stderrors.Join(service.ErrStorageWriteFailed, fmt.Errorf("x"))}, 500, CodeUploadFailed},
		{"duplicate", &service.Error{Kind: service.ErrDuplicateFilename}, 500, CodeUploadFailed},
		{"storage missing", &service.Error{Kind: service.ErrStorageMissing}, 500, CodeStorageMissing},
		{"storage read", &service.Error{Kind: service.ErrStorageReadFailed}, 500, CodeStorageError},
		{"storage delete", &service.Error{Kind: service.ErrStorageDeleteFailed}, 500, CodeStorageError},
		{"archive read", &service.Error{Kind: service.ErrArchiveReadFailed}, 500, CodeArchiveReadFailed},
		{"catalog", &service.Error{Kind: service.ErrCatalogFailed}, 500, CodeInternalError},
		{"unknown", fmt.Errorf("что-то пошло не так"), 500, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Classify(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("Classify = (%d, %s), ожидалось (%d, %s)", status, code, tt.status, tt.code)
			}
		})
	}
}

// TestFromService_HidesCause проверяет, что причина не попадает в ответ.
func TestFromService_HidesCause(t *testing.T) {
	w := httptest.NewRecorder()
	FromService(w, &service.Error{
		Kind:    service.ErrStorageReadFailed,
		Message: "ошибка чтения из хранилища",
		Err:     fmt.Errorf("GET s3://files/secret-key.bin: timeout"),
	})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("статус = %d, ожидался 500", w.Code)
	}
	raw := w.Body.String()
	if strings.Contains(raw, "secret-key") {
		t.Errorf("ответ содержит внутренние детали: %s", raw)
	}
	body := decodeBody(t, w)
	if body.Error.Code != CodeStorageError {
		t.Errorf("code = %q, ожидался %q", body.Error.Code, CodeStorageError)
	}
}

func TestFromService_PlainError(t *testing.T) {
	w := httptest.NewRecorder()
	FromService(w, fmt.Errorf("паника в драйвере"))

	body := decodeBody(t, w)
	if body.Error.Code != CodeInternalError {
		t.Errorf("code = %q", body.Error.Code)
	}
	if strings.Contains(body.Error.Message, "драйвер") {
		t.Errorf("сообщение раскрывает причину: %q", body.Error.Message)
	}
}
