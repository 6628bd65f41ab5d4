// errors.go - ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

// Виды ошибок. Каждая операция возвращает *Error с одним из видов,
// проверка выполняется через errors.Is.
var (
	// ErrNotFound - запись с указанным id отсутствует в каталоге.
	ErrNotFound = errors.New("файл не найден")
	// ErrEmptyFilename - имя загружаемого файла не задано.
	ErrEmptyFilename = errors.New("имя файла не задано")
	// ErrDuplicateFilename - имя занято даже после повторного разрешения.
	ErrDuplicateFilename = errors.New("имя файла уже занято")
	// ErrUploadFailed - загрузка не выполнена.
	ErrUploadFailed = errors.New("ошибка загрузки файла")
	// ErrStorageWriteFailed - объектное хранилище не приняло blob.
	ErrStorageWriteFailed = errors.New("ошибка записи в хранилище")
	// ErrStorageReadFailed - ошибка чтения из объектного хранилища.
	ErrStorageReadFailed = errors.New("ошибка чтения из хранилища")
	// ErrStorageDeleteFailed - ошибка удаления из объектного хранилища.
	ErrStorageDeleteFailed = errors.New("ошибка удаления из хранилища")
	// ErrStorageMissing - запись есть в каталоге, а blob в хранилище отсутствует.
	ErrStorageMissing = errors.New("файл отсутствует в хранилище")
	// ErrInvalidArchive - содержимое не является zip-архивом.
	ErrInvalidArchive = errors.New("некорректный zip-архив")
	// ErrArchiveReadFailed - архив не удалось прочитать по иной причине.
	ErrArchiveReadFailed = errors.New("ошибка чтения архива")
	// ErrCatalogFailed - ошибка каталога метаданных (БД).
	ErrCatalogFailed = errors.New("ошибка каталога метаданных")
)

// Error - ошибка операции: вид, сообщение для клиента и исходная причина.
type Error struct {
	// Kind - один из видов ошибок выше
	Kind error
	// Message - человекочитаемое сообщение без внутренних идентификаторов
	Message string
	// Err - исходная ошибка нижнего слоя (только для логов)
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap позволяет errors.Is находить как вид, так и причину.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// newError создаёт *Error. Сообщение по умолчанию - текст вида.
func newError(kind error, err error, message string) *Error {
	if message == "" {
		message = kind.Error()
	}
	return &Error{Kind: kind, Message: message, Err: err}
}
