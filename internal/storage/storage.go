// Пакет storage - общие ошибки адаптеров объектного хранилища.
// Реализации: s3store (MinIO/S3) и filestore (локальный диск).
package storage

import "errors"

// ErrNotFound - объект с указанным ключом отсутствует в хранилище.
var ErrNotFound = errors.New("объект не найден в хранилище")
