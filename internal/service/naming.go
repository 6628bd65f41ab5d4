// naming.go - генерация ключа хранилища и отображаемого имени файла.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/filegate/internal/repository"
)

// NamingResolver - разрешение имён для новой загрузки.
// Ключ хранилища случаен и не зависит от отображаемого имени,
// поэтому переименование никогда не затрагивает записанные байты.
type NamingResolver struct {
	repo repository.FileRepository
}

// NewNamingResolver создаёт резолвер имён поверх каталога.
func NewNamingResolver(repo repository.FileRepository) *NamingResolver {
	return &NamingResolver{repo: repo}
}

// StorageKey возвращает новый ключ хранилища: UUIDv4 + расширение исходного имени.
// Наличие ключа в хранилище не проверяется.
func (n *NamingResolver) StorageKey(filename string) string {
	_, ext := splitExt(filename)
	return uuid.NewString() + ext
}

// ResolveFilename возвращает свободное отображаемое имя.
// Если filename занято, перебирает "name (1).ext", "name (2).ext", ...
// до первого свободного. Проверка и последующая вставка не атомарны.
func (n *NamingResolver) ResolveFilename(ctx context.Context, filename string) (string, error) {
	base, ext := splitExt(filename)
	candidate := filename

	for counter := 1; ; counter++ {
		taken, err := n.exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, counter, ext)
	}
}

// exists проверяет, занято ли имя в каталоге.
func (n *NamingResolver) exists(ctx context.Context, filename string) (bool, error) {
	_, err := n.repo.FindByFilename(ctx, filename)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("проверка имени %q: %w", filename, err)
}

// splitExt делит имя на основу и расширение (с точкой).
// Ведущие точки не образуют расширение: ".bashrc" → (".bashrc", "").
func splitExt(filename string) (base, ext string) {
	i := strings.LastIndex(filename, ".")
	if i <= 0 || strings.Trim(filename[:i], ".") == "" {
		return filename, ""
	}
	return filename[:i], filename[i:]
}
