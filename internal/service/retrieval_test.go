package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"github.com/bigkaa/filegate/internal/domain/model"
)

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		disp     Disposition
		filename string
		want     string
	}{
		{DispositionInline, "report.txt", "inline; filename*=utf-8''report.txt"},
		{DispositionAttachment, "my report (1).txt", "attachment; filename*=utf-8''my%20report%20%281%29.txt"},
		{DispositionInline, "отчёт.pdf", "inline; filename*=utf-8''%D0%BE%D1%82%D1%87%D1%91%D1%82.pdf"},
		{DispositionAttachment, `a"b;c.txt`, "attachment; filename*=utf-8''a%22b%3Bc.txt"},
		{DispositionInline, "tilde~_-.x", "inline; filename*=utf-8''tilde~_-.x"},
	}
	for _, tt := range tests {
		if got := ContentDisposition(tt.disp, tt.filename); got != tt.want {
			t.Errorf("ContentDisposition(%q, %q) = %q, ожидалось %q", tt.disp, tt.filename, got, tt.want)
		}
	}
}

// TestRetrievalService_Stream проверяет заголовки и тело ответа.
func TestRetrievalService_Stream(t *testing.T) {
	env := newTestEnv(t, newFileStore(t))
	content := []byte("<html>привет</html>")
	rec := mustUpload(t, env, "страница.html", "text/html; charset=utf-8", content)

	w := httptest.NewRecorder()
	if err := env.retrieval.Stream(context.Background(), w, rec.ID, DispositionAttachment); err != nil {
		t.Fatalf("Stream ошибка: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, ожидался 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cl := resp.Header.Get("Content-Length"); cl != strconv.Itoa(len(content)) {
		t.Errorf("Content-Length = %q, ожидался %d", cl, len(content))
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != ContentDisposition(DispositionAttachment, "страница.html") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(content) {
		t.Errorf("Body = %q, ожидалось %q", body, content)
	}
}

// TestRetrievalService_NotFound проверяет неизвестный и некорректный id.
func TestRetrievalService_NotFound(t *testing.T) {
	env := newTestEnv(t, newMockStore())

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		w := httptest.NewRecorder()
		err := env.retrieval.Stream(context.Background(), w, id, DispositionInline)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("id %q: ошибка = %v, ожидалась ErrNotFound", id, err)
		}
	}
}

// TestRetrievalService_StorageMissing проверяет запись без blob'а.
func TestRetrievalService_StorageMissing(t *testing.T) {
	store := newMockStore()
	env := newTestEnv(t, store)
	rec := mustUpload(t, env, "gone.txt", "text/plain", []byte("x"))

	// blob пропал в обход сервиса
	_ = store.Delete(context.Background(), rec.StorageKey)

	w := httptest.NewRecorder()
	err := env.retrieval.Stream(context.Background(), w, rec.ID, DispositionInline)
	if !errors.Is(err, ErrStorageMissing) {
		t.Fatalf("ошибка = %v, ожидалась ErrStorageMissing", err)
	}
	if w.Body.Len() != 0 {
		t.Error("тело ответа не должно записываться при ошибке")
	}
}

// TestRetrievalService_StorageReadFailed проверяет сбой хранилища.
func TestRetrievalService_StorageReadFailed(t *testing.T) {
	store := newMockStore()
	env := newTestEnv(t, store)
	rec := mustUpload(t, env, "a.txt", "text/plain", []byte("x"))

	store.getErr = errors.New("таймаут")

	_, _, err := env.retrieval.Open(context.Background(), rec.ID)
	if !errors.Is(err, ErrStorageReadFailed) {
		t.Fatalf("ошибка = %v, ожидалась ErrStorageReadFailed", err)
	}
}

// TestRetrievalService_UsesCache проверяет, что повторное чтение идёт из кэша.
func TestRetrievalService_UsesCache(t *testing.T) {
	env := newTestEnv(t, newMockStore())
	rec := mustUpload(t, env, "cached.txt", "text/plain", []byte("x"))

	env.repo.findByIDFn = func(context.Context, string) (*model.FileRecord, error) {
		t.Error("FindByID не должен вызываться при попадании в кэш")
		return nil, errors.New("unexpected")
	}

	if _, body, err := env.retrieval.Open(context.Background(), rec.ID); err != nil {
		t.Fatalf("Open ошибка: %v", err)
	} else {
		body.Close()
	}
}
