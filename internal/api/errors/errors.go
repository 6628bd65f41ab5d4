// Пакет errors - ответы с ошибками в едином формате filegate.
// Формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError или FromService.
package errors //nolint:revive // имя пакета совпадает со stdlib, импортируется как apierrors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/bigkaa/filegate/internal/service"
)

// Коды ошибок API.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidArchive    = "INVALID_ARCHIVE"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeUploadFailed      = "UPLOAD_FAILED"
	CodeStorageMissing    = "STORAGE_MISSING"
	CodeStorageError      = "STORAGE_ERROR"
	CodeArchiveReadFailed = "ARCHIVE_READ_FAILED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// errorBody - структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail - детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ValidationError - 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// FileTooLarge - 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// Classify возвращает HTTP-статус и код для ошибки сервисного слоя.
func Classify(err error) (status int, code string) {
	switch {
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case stderrors.Is(err, service.ErrInvalidArchive):
		return http.StatusBadRequest, CodeInvalidArchive
	case stderrors.Is(err, service.ErrEmptyFilename):
		return http.StatusBadRequest, CodeValidationError
	case stderrors.Is(err, service.ErrUploadFailed),
		stderrors.Is(err, service.ErrDuplicateFilename),
		stderrors.Is(err, service.ErrStorageWriteFailed):
		return http.StatusInternalServerError, CodeUploadFailed
	case stderrors.Is(err, service.ErrStorageMissing):
		return http.StatusInternalServerError, CodeStorageMissing
	case stderrors.Is(err, service.ErrStorageReadFailed),
		stderrors.Is(err, service.ErrStorageDeleteFailed):
		return http.StatusInternalServerError, CodeStorageError
	case stderrors.Is(err, service.ErrArchiveReadFailed):
		return http.StatusInternalServerError, CodeArchiveReadFailed
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

// FromService записывает ответ для ошибки сервисного слоя.
// Клиенту уходит только сообщение вида ошибки, причина нижнего уровня
// остаётся в логах.
func FromService(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	message := "Внутренняя ошибка сервера"
	var svcErr *service.Error
	if stderrors.As(err, &svcErr) {
		message = svcErr.Message
	}
	WriteError(w, status, code, message)
}
