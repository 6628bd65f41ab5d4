package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/filegate/internal/domain/model"
	"github.com/bigkaa/filegate/internal/lock"
	"github.com/bigkaa/filegate/internal/repository"
	"github.com/bigkaa/filegate/internal/storage"
	"github.com/bigkaa/filegate/internal/storage/filestore"
)

// --- In-memory каталог ---

// mockFileRepo - каталог в памяти. Поля *Fn переопределяют поведение
// соответствующих методов.
type mockFileRepo struct {
	mu      sync.Mutex
	records map[string]*model.FileRecord

	findByFilenameCalls int

	findByIDFn func(ctx context.Context, id string) (*model.FileRecord, error)
	insertFn   func(ctx context.Context, record *model.FileRecord) error
	removeFn   func(ctx context.Context, id string) error
	listFn     func(ctx context.Context, substr string) ([]*model.FileRecord, error)
}

func newMockFileRepo() *mockFileRepo {
	return &mockFileRepo{records: make(map[string]*model.FileRecord)}
}

func (m *mockFileRepo) FindByFilename(_ context.Context, filename string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByFilenameCalls++
	for _, r := range m.records {
		if r.Filename == filename {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockFileRepo) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return m.findByID(id)
}

// findByID - базовый поиск по id, возвращает копию записи.
func (m *mockFileRepo) findByID(id string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockFileRepo) ListByContentType(ctx context.Context, substr string) ([]*model.FileRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, substr)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.FileRecord
	for _, r := range m.records {
		if strings.Contains(r.ContentType, substr) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockFileRepo) Insert(ctx context.Context, record *model.FileRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, record)
	}
	return m.insert(record)
}

// insert - базовая вставка с проверкой уникальности filename.
func (m *mockFileRepo) insert(record *model.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Filename == record.Filename {
			return repository.ErrDuplicateFilename
		}
	}
	record.CreatedAt = time.Now().UTC()
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *mockFileRepo) Remove(ctx context.Context, id string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockFileRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// --- Объектное хранилище ---

// mockStore - хранилище в памяти с переопределяемыми ошибками.
type mockStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	putErr    error
	getErr    error
	deleteErr error
	// plainReader - Get возвращает поток без io.ReaderAt
	plainReader bool
}

func newMockStore() *mockStore {
	return &mockStore{blobs: make(map[string][]byte)}
}

func (s *mockStore) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("размер не совпадает")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *mockStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if s.plainReader {
		return io.NopCloser(io.MultiReader(bytes.NewReader(data))), nil
	}
	return readAtCloser{bytes.NewReader(data)}, nil
}

func (s *mockStore) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *mockStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}

func (s *mockStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// readAtCloser - bytes.Reader с пустым Close.
type readAtCloser struct {
	*bytes.Reader
}

func (readAtCloser) Close() error { return nil }

// --- Блокировка ---

// mockLocker считает вызовы Lock/Unlock.
type mockLocker struct {
	mu      sync.Mutex
	locked  []string
	unlocks int
	err     error
}

func (l *mockLocker) Lock(_ context.Context, name string) (lock.Unlock, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, name)
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.unlocks++
		l.mu.Unlock()
	}, nil
}

// --- Сборка сервисов ---

// testEnv - набор сервисов поверх общих mock-зависимостей.
type testEnv struct {
	repo      *mockFileRepo
	store     ObjectStore
	cache     *CacheService
	upload    *UploadService
	files     *FileService
	retrieval *RetrievalService
	archive   *ArchiveService
	deletion  *DeletionService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestEnv собирает сервисы поверх переданного хранилища.
func newTestEnv(t *testing.T, store ObjectStore) *testEnv {
	t.Helper()
	logger := testLogger()
	repo := newMockFileRepo()
	cache := NewCacheService(100, time.Minute)
	return &testEnv{
		repo:      repo,
		store:     store,
		cache:     cache,
		upload:    NewUploadService(repo, store, NewNamingResolver(repo), lock.NopLocker{}, cache, t.TempDir(), logger),
		files:     NewFileService(repo, cache, logger),
		retrieval: NewRetrievalService(repo, store, cache, logger),
		archive:   NewArchiveService(repo, store, cache, logger),
		deletion:  NewDeletionService(repo, store, cache, logger),
	}
}

// newFileStore создаёт filestore во временной директории.
func newFileStore(t *testing.T) *filestore.FileStore {
	t.Helper()
	fs, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания filestore: %v", err)
	}
	return fs
}

// mustUpload загружает содержимое и завершает тест при ошибке.
func mustUpload(t *testing.T, env *testEnv, filename, contentType string, content []byte) *model.FileRecord {
	t.Helper()
	rec, err := env.upload.Upload(context.Background(), UploadParams{
		Reader:      bytes.NewReader(content),
		Filename:    filename,
		ContentType: contentType,
	})
	if err != nil {
		t.Fatalf("Upload(%q) ошибка: %v", filename, err)
	}
	return rec
}
