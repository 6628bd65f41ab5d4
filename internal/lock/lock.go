// Пакет lock - блокировка отображаемых имён на время загрузки.
// RedisLocker сериализует загрузки одного имени между экземплярами
// filegate через SET NX PX; NopLocker не блокирует ничего.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyPrefix - префикс ключей блокировок в Redis.
const keyPrefix = "filegate:upload-lock:"

// retryInterval - пауза между попытками захвата занятой блокировки.
const retryInterval = 50 * time.Millisecond

// ErrLockTimeout - блокировку не удалось захватить за отведённое время.
var ErrLockTimeout = errors.New("таймаут ожидания блокировки")

// releaseScript удаляет ключ, только если он принадлежит владельцу токена.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Unlock освобождает захваченную блокировку.
type Unlock func()

// Config - параметры подключения к Redis.
type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL - время жизни блокировки; защищает от зависших владельцев
	TTL time.Duration
}

// RedisLocker - распределённая блокировка имён через Redis.
type RedisLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLocker создаёт RedisLocker и проверяет соединение через PING.
func NewRedisLocker(ctx context.Context, cfg Config, logger *slog.Logger) (*RedisLocker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis %s: %w", cfg.Addr, err)
	}

	logger.Info("Подключение к Redis установлено", slog.String("addr", cfg.Addr))

	return &RedisLocker{
		rdb:    rdb,
		ttl:    cfg.TTL,
		logger: logger.With(slog.String("component", "redis_locker")),
	}, nil
}

// Lock захватывает блокировку имени name. Ожидает освобождения не дольше TTL
// или до отмены ctx. Возвращённую Unlock необходимо вызвать после завершения.
func (l *RedisLocker) Lock(ctx context.Context, name string) (Unlock, error) {
	key := keyPrefix + name
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("ошибка захвата блокировки %q: %w", name, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%q: %w", name, ErrLockTimeout)
		}

		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		// Освобождение не должно зависеть от отмены запроса
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil {
			l.logger.Warn("Ошибка освобождения блокировки",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
		}
	}, nil
}

// CheckReady проверяет доступность Redis для health endpoint.
func (l *RedisLocker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := l.rdb.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}

// Close закрывает соединение с Redis.
func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}

// NopLocker - блокировка-заглушка для работы без Redis.
// Уникальность имён в этом режиме обеспечивает только ограничение БД.
type NopLocker struct{}

// Lock немедленно возвращает пустую Unlock.
func (NopLocker) Lock(context.Context, string) (Unlock, error) {
	return func() {}, nil
}
