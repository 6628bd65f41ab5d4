package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/bigkaa/filegate/internal/domain/model"
)

func TestSplitExt(t *testing.T) {
	tests := []struct {
		in, base, ext string
	}{
		{"report.txt", "report", ".txt"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"README", "README", ""},
		{".bashrc", ".bashrc", ""},
		{"..hidden", "..hidden", ""},
		{"name.", "name", "."},
		{"отчёт 2024.pdf", "отчёт 2024", ".pdf"},
	}
	for _, tt := range tests {
		base, ext := splitExt(tt.in)
		if base != tt.base || ext != tt.ext {
			t.Errorf("splitExt(%q) = (%q, %q), ожидалось (%q, %q)", tt.in, base, ext, tt.base, tt.ext)
		}
	}
}

func TestNamingResolver_StorageKey(t *testing.T) {
	n := NewNamingResolver(newMockFileRepo())

	key1 := n.StorageKey("report.txt")
	key2 := n.StorageKey("report.txt")

	if key1 == key2 {
		t.Fatalf("ключи совпадают: %q", key1)
	}
	if !strings.HasSuffix(key1, ".txt") {
		t.Errorf("ключ %q должен сохранять расширение", key1)
	}
	if _, err := uuid.Parse(strings.TrimSuffix(key1, ".txt")); err != nil {
		t.Errorf("основа ключа %q не UUID: %v", key1, err)
	}

	if key := n.StorageKey("Makefile"); strings.Contains(key, ".") {
		t.Errorf("ключ без расширения содержит точку: %q", key)
	}
}

func TestNamingResolver_ResolveFilename(t *testing.T) {
	repo := newMockFileRepo()
	n := NewNamingResolver(repo)
	ctx := context.Background()

	name, err := n.ResolveFilename(ctx, "report.txt")
	if err != nil {
		t.Fatalf("ResolveFilename ошибка: %v", err)
	}
	if name != "report.txt" {
		t.Fatalf("свободное имя изменено: %q", name)
	}

	for _, taken := range []string{"report.txt", "report (1).txt", "report (2).txt"} {
		if err := repo.insert(&model.FileRecord{ID: uuid.NewString(), Filename: taken}); err != nil {
			t.Fatalf("insert ошибка: %v", err)
		}
	}

	name, err = n.ResolveFilename(ctx, "report.txt")
	if err != nil {
		t.Fatalf("ResolveFilename ошибка: %v", err)
	}
	if name != "report (3).txt" {
		t.Errorf("имя = %q, ожидалось %q", name, "report (3).txt")
	}
}

func TestNamingResolver_NoExtension(t *testing.T) {
	repo := newMockFileRepo()
	_ = repo.insert(&model.FileRecord{ID: uuid.NewString(), Filename: "Makefile"})

	name, err := NewNamingResolver(repo).ResolveFilename(context.Background(), "Makefile")
	if err != nil {
		t.Fatalf("ResolveFilename ошибка: %v", err)
	}
	if name != "Makefile (1)" {
		t.Errorf("имя = %q, ожидалось %q", name, "Makefile (1)")
	}
}

// failingFindRepo - каталог, у которого FindByFilename всегда падает.
type failingFindRepo struct {
	*mockFileRepo
}

func (failingFindRepo) FindByFilename(context.Context, string) (*model.FileRecord, error) {
	return nil, errors.New("соединение с БД потеряно")
}

func TestNamingResolver_CatalogError(t *testing.T) {
	n := NewNamingResolver(failingFindRepo{newMockFileRepo()})

	if _, err := n.ResolveFilename(context.Background(), "a.txt"); err == nil {
		t.Fatal("ожидалась ошибка каталога")
	}
}
