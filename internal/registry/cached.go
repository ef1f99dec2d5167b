package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/radzone/internal/logging"
	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/vec"
)

// errCacheMiss промах кэша
var errCacheMiss = errors.New("cache miss")

// hotCache минимальный набор операций кэша, который нужен реестру
type hotCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// redisCache адаптер go-redis к hotCache
type redisCache struct {
	client *redis.Client
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errCacheMiss
	}
	return val, err
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCache) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCache) Close() error { return r.client.Close() }

// RedisConfig настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей
}

// CacheStats счётчики кэша
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// CachedRegistry кэширует Get в Redis поверх постоянного реестра (read-through).
// Запись идёт в реестр, затем ключ кэша удаляется. Сбой Redis не ломает чтение.
type CachedRegistry struct {
	Registry
	cache     hotCache
	keyPrefix string
	ttl       time.Duration

	hits   int64
	misses int64
	errors int64

	logger *logging.Logger
}

// NewCachedRegistry подключается к Redis и оборачивает реестр
func NewCachedRegistry(inner Registry, cfg RedisConfig) (*CachedRegistry, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := newCachedRegistry(inner, &redisCache{client: client}, cfg)
	c.logger.Info("🔴 Кэш регионов подключён к Redis %s", cfg.Addr)
	return c, nil
}

func newCachedRegistry(inner Registry, cache hotCache, cfg RedisConfig) *CachedRegistry {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "radzone:region:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &CachedRegistry{
		Registry:  inner,
		cache:     cache,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		logger:    logging.GetComponentLogger("registry"),
	}
}

func (c *CachedRegistry) key(worldID, name string) string {
	return fmt.Sprintf("%s%s/%s", c.keyPrefix, worldID, name)
}

func (c *CachedRegistry) AddPolygonalRegion(ctx context.Context, def region.Definition) error {
	if err := c.Registry.AddPolygonalRegion(ctx, def); err != nil {
		return err
	}
	c.invalidate(ctx, def.WorldID, def.Name)
	return nil
}

func (c *CachedRegistry) Get(ctx context.Context, worldID, name string) (region.Definition, error) {
	key := c.key(worldID, name)

	data, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var def region.Definition
		if jsonErr := json.Unmarshal(data, &def); jsonErr == nil {
			atomic.AddInt64(&c.hits, 1)
			return def, nil
		}
		atomic.AddInt64(&c.errors, 1)
	case errors.Is(err, errCacheMiss):
		atomic.AddInt64(&c.misses, 1)
	default:
		atomic.AddInt64(&c.errors, 1)
		c.logger.Warn("Redis Get error for key %s: %v", key, err)
	}

	def, err := c.Registry.Get(ctx, worldID, name)
	if err != nil {
		return region.Definition{}, err
	}

	if data, err := json.Marshal(def); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			atomic.AddInt64(&c.errors, 1)
			c.logger.Warn("Redis Set error for key %s: %v", key, err)
		}
	}
	return def, nil
}

func (c *CachedRegistry) Remove(ctx context.Context, worldID, name string) error {
	if err := c.Registry.Remove(ctx, worldID, name); err != nil {
		return err
	}
	c.invalidate(ctx, worldID, name)
	return nil
}

// List и RegionsAt идут напрямую в реестр
func (c *CachedRegistry) List(ctx context.Context, worldID string) ([]region.Definition, error) {
	return c.Registry.List(ctx, worldID)
}

func (c *CachedRegistry) RegionsAt(ctx context.Context, worldID string, pos vec.Vec3) ([]region.Definition, error) {
	return c.Registry.RegionsAt(ctx, worldID, pos)
}

func (c *CachedRegistry) invalidate(ctx context.Context, worldID, name string) {
	key := c.key(worldID, name)
	if err := c.cache.Del(ctx, key); err != nil {
		atomic.AddInt64(&c.errors, 1)
		c.logger.Warn("Redis Del error for key %s: %v", key, err)
	}
}

// Stats возвращает счётчики кэша
func (c *CachedRegistry) Stats() CacheStats {
	return CacheStats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Errors: atomic.LoadInt64(&c.errors),
	}
}

func (c *CachedRegistry) Close() error {
	cacheErr := c.cache.Close()
	if err := c.Registry.Close(); err != nil {
		return err
	}
	return cacheErr
}
