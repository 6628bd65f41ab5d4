// Пакет s3store - объектное хранилище поверх S3-совместимого сервиса (MinIO).
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bigkaa/filegate/internal/storage"
)

// Config - параметры подключения к S3/MinIO.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// CreateBucket - создать bucket при старте, если его нет
	CreateBucket bool
}

// Store - адаптер объектного хранилища над minio-go.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// New создаёт клиент MinIO и проверяет наличие bucket'а.
// При CreateBucket отсутствующий bucket создаётся.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента S3: %w", err)
	}

	s := &Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With(slog.String("component", "s3store")),
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("bucket %s не существует", cfg.Bucket)
		}
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("ошибка создания bucket %s: %w", cfg.Bucket, err)
		}
		s.logger.Info("Bucket создан", slog.String("bucket", cfg.Bucket))
	}

	s.logger.Info("Подключение к S3 установлено",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("bucket", cfg.Bucket),
	)

	return s, nil
}

// Put загружает blob. Объект становится видимым только после успешного PUT.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("ошибка загрузки объекта %s: %w", key, err)
	}
	return nil
}

// Get возвращает поток объекта. Содержимое читается лениво.
// GetObject не обращается к серверу до первого Read, поэтому наличие
// ключа проверяется через StatObject до возврата потока.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка получения информации об объекте %s: %w", key, err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения объекта %s: %w", key, err)
	}
	return obj, nil
}

// Delete удаляет объект. Отсутствующий ключ не считается ошибкой.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}

// CheckReady проверяет доступность bucket'а для health endpoint.
func (s *Store) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return "fail", fmt.Sprintf("S3 недоступен: %v", err)
	}
	if !exists {
		return "fail", fmt.Sprintf("bucket %s не существует", s.bucket)
	}
	return "ok", "bucket доступен"
}

// isNotFound проверяет, что ошибка S3 означает отсутствие объекта.
func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
