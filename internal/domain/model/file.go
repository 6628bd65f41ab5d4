// Пакет model - доменные модели filegate.
package model

import (
	"time"
)

// FileRecord - запись каталога метаданных о загруженном файле.
// Соответствует строке таблицы files.
type FileRecord struct {
	// ID - UUID записи, генерируется при создании, неизменяем
	ID string `json:"id"`

	// Filename - отображаемое имя, уникально среди существующих записей
	Filename string `json:"filename"`

	// Size - размер содержимого в байтах (равен длине записанного blob)
	Size int64 `json:"size"`

	// ContentType - MIME-тип, переданный клиентом, хранится как есть
	ContentType string `json:"content_type"`

	// Hash - SHA-256 содержимого в hex
	Hash string `json:"hash"`

	// StorageKey - ключ blob'а в объектном хранилище.
	// Никогда не отдаётся клиенту.
	StorageKey string `json:"-"`

	// CreatedAt - время создания записи (UTC)
	CreatedAt time.Time `json:"created_at"`
}
