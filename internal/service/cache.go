// Пакет service - бизнес-логика filegate: загрузка, выдача, инспекция
// архивов и удаление файлов с согласованием каталога и хранилища.
//
// CacheService - LRU-кэш метаданных файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/filegate/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fg_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fg_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных.",
	})
)

// cacheEntry - запись кэша. Пустой record означает удалённый файл.
type cacheEntry struct {
	record *model.FileRecord
}

// CacheService - LRU-кэш метаданных файлов с автоматическим TTL.
// Кэш локален для экземпляра: удаление на другом экземпляре
// становится видно здесь не позже TTL.
//
// После удаления файла в кэше остаётся метка удаления, которую
// не может перезаписать Fill: чтение, начатое до удаления, не вернёт
// запись в кэш.
type CacheService struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, cacheEntry]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	return &CacheService{cache: expirable.NewLRU[string, cacheEntry](maxSize, nil, ttl)}
}

// Get возвращает запись из кэша по id. Метка удаления считается промахом.
func (c *CacheService) Get(id string) (*model.FileRecord, bool) {
	entry, ok := c.cache.Get(id)
	if ok && entry.record != nil {
		cacheHitsTotal.Inc()
		return entry.record, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Deleted сообщает, помечен ли id как удалённый.
func (c *CacheService) Deleted(id string) bool {
	entry, ok := c.cache.Peek(id)
	return ok && entry.record == nil
}

// Set добавляет или обновляет запись в кэше безусловно.
// Используется для только что созданных записей.
func (c *CacheService) Set(id string, record *model.FileRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(id, cacheEntry{record: record})
}

// Fill кладёт прочитанную из БД запись, если id не помечен как удалённый.
// Возвращает false, если запись отвергнута.
func (c *CacheService) Fill(id string, record *model.FileRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.cache.Peek(id); ok && entry.record == nil {
		return false
	}
	c.cache.Add(id, cacheEntry{record: record})
	return true
}

// MarkDeleted заменяет запись меткой удаления до истечения TTL.
func (c *CacheService) MarkDeleted(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(id, cacheEntry{})
}

// Delete удаляет запись из кэша без метки удаления.
func (c *CacheService) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(id)
}
