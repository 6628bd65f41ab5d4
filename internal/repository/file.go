package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/filegate/internal/domain/model"
)

// fileColumns - список столбцов таблицы files для SELECT-запросов.
const fileColumns = `id, filename, size, content_type, hash, storage_key, created_at`

// FileRepository - каталог метаданных файлов.
type FileRepository interface {
	// FindByFilename возвращает запись с точно совпадающим именем или ErrNotFound.
	FindByFilename(ctx context.Context, filename string) (*model.FileRecord, error)
	// FindByID возвращает запись по UUID или ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.FileRecord, error)
	// ListByContentType возвращает записи, у которых content_type содержит
	// substr. Пустой substr - все записи. Порядок не гарантируется.
	ListByContentType(ctx context.Context, substr string) ([]*model.FileRecord, error)
	// Insert добавляет запись. При занятом filename возвращает ErrDuplicateFilename.
	Insert(ctx context.Context, record *model.FileRecord) error
	// Remove удаляет запись по UUID или возвращает ErrNotFound.
	Remove(ctx context.Context, id string) error
}

// fileRepo - реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// FindByFilename возвращает запись по точному имени файла.
func (r *fileRepo) FindByFilename(ctx context.Context, filename string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE filename = $1`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, filename))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска файла по имени: %w", err)
	}
	return f, nil
}

// FindByID возвращает запись по UUID.
func (r *fileRepo) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// ListByContentType возвращает записи с фильтром по подстроке content_type.
// strpos вместо LIKE: символы % и _ в подстроке не являются шаблоном.
func (r *fileRepo) ListByContentType(ctx context.Context, substr string) ([]*model.FileRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if substr == "" {
		rows, err = r.db.Query(ctx, fmt.Sprintf(`SELECT %s FROM files`, fileColumns))
	} else {
		rows, err = r.db.Query(ctx,
			fmt.Sprintf(`SELECT %s FROM files WHERE strpos(content_type, $1) > 0`, fileColumns),
			substr)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	result := make([]*model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	return result, nil
}

// Insert добавляет запись в каталог. CreatedAt заполняется из БД.
func (r *fileRepo) Insert(ctx context.Context, record *model.FileRecord) error {
	query := `
		INSERT INTO files (id, filename, size, content_type, hash, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		record.ID, record.Filename, record.Size, record.ContentType, record.Hash, record.StorageKey,
	).Scan(&record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == "files_filename_key" {
			return ErrDuplicateFilename
		}
		return fmt.Errorf("ошибка добавления файла: %w", err)
	}
	return nil
}

// Remove удаляет запись по UUID.
func (r *fileRepo) Remove(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanFile сканирует одну строку files в FileRecord.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	if err := row.Scan(
		&f.ID, &f.Filename, &f.Size, &f.ContentType, &f.Hash, &f.StorageKey, &f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return f, nil
}
