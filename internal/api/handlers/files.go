// files.go - обработчики /files: загрузка, выдача, инспекция архива,
// метаданные, удаление и список.
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/filegate/internal/api/errors"
	"github.com/bigkaa/filegate/internal/service"
)

const (
	// multipartMemory - часть multipart-формы, которая держится в памяти;
	// остальное net/http сбрасывает во временные файлы.
	multipartMemory = 32 << 20
	// defaultContentType - тип содержимого, если клиент его не передал.
	defaultContentType = "application/octet-stream"
)

// zipContentsResponse - ответ GET /files/{id}/zip-contents.
type zipContentsResponse struct {
	Files []string `json:"files"`
}

// messageResponse - ответ с текстовым сообщением.
type messageResponse struct {
	Message string `json:"message"`
}

// UploadFile - POST /files/upload (multipart, поле file).
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, "Размер файла превышает допустимый лимит")
			return
		}
		apierrors.ValidationError(w, "Некорректный multipart-запрос")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле file обязательно")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	record, err := h.svc.Upload.Upload(r.Context(), service.UploadParams{
		Reader:      file,
		Filename:    header.Filename,
		ContentType: contentType,
	})
	if err != nil {
		h.writeServiceError(w, "Ошибка загрузки файла", "", err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// GetFile - GET /files/{id}, выдача для просмотра в браузере.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, service.DispositionInline)
}

// DownloadFile - GET /files/{id}/download, выдача для сохранения.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, service.DispositionAttachment)
}

func (h *APIHandler) stream(w http.ResponseWriter, r *http.Request, disposition service.Disposition) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Retrieval.Stream(r.Context(), w, id, disposition); err != nil {
		h.writeServiceError(w, "Ошибка выдачи файла", id, err)
	}
}

// GetZipContents - GET /files/{id}/zip-contents.
func (h *APIHandler) GetZipContents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	names, err := h.svc.Archive.ListEntries(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Ошибка чтения архива", id, err)
		return
	}
	writeJSON(w, http.StatusOK, zipContentsResponse{Files: names})
}

// GetFileMetadata - GET /files/{id}/metadata.
func (h *APIHandler) GetFileMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := h.svc.Files.GetMetadata(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Ошибка получения метаданных файла", id, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// DeleteFile - DELETE /files/{id}.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Deletion.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "Ошибка удаления файла", id, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "File deleted successfully"})
}

// ListFiles - GET /files?content_type=<подстрока>.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Files.List(r.Context(), r.URL.Query().Get("content_type"))
	if err != nil {
		h.writeServiceError(w, "Ошибка получения списка файлов", "", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
