// Пакет filestore - объектное хранилище на локальном диске.
// Каждый blob - отдельный файл в корневой директории, имя файла - ключ.
// Запись атомарна: temp файл → fsync → rename.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bigkaa/filegate/internal/storage"
)

// tmpPrefix - префикс временных файлов незавершённой записи.
const tmpPrefix = ".upload-"

// FileStore - управление blob'ами на диске.
type FileStore struct {
	dataDir string
}

// New создаёт FileStore. Создаёт директорию, если она не существует.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// Put записывает blob под ключом key.
// Пока rename не выполнен, файл с именем key не виден читателям.
// Если записано не size байт, blob не сохраняется.
func (fs *FileStore) Put(_ context.Context, key string, r io.Reader, size int64, _ string) error {
	fullPath, err := fs.path(key)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(fs.dataDir, tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}
	if written != size {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("записано %d байт, ожидалось %d", written, size)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Get открывает blob для чтения. Вызывающий код обязан закрыть ReadCloser.
func (fs *FileStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := fs.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", key, err)
	}
	return f, nil
}

// Delete удаляет blob. Отсутствующий файл не считается ошибкой.
func (fs *FileStore) Delete(_ context.Context, key string) error {
	fullPath, err := fs.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", key, err)
	}
	return nil
}

// CheckReady проверяет, что директория данных доступна на запись.
func (fs *FileStore) CheckReady() (status, message string) {
	f, err := os.CreateTemp(fs.dataDir, tmpPrefix+"probe-*")
	if err != nil {
		return "fail", fmt.Sprintf("директория %s недоступна на запись: %v", fs.dataDir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return "ok", "директория доступна"
}

// path возвращает абсолютный путь blob'а. Ключ должен быть одним сегментом пути.
func (fs *FileStore) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, tmpPrefix) {
		return "", fmt.Errorf("недопустимый ключ объекта %q", key)
	}
	return filepath.Join(fs.dataDir, key), nil
}
