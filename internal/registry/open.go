package registry

import (
	"fmt"
	"time"

	"github.com/annel0/radzone/internal/config"
	"github.com/annel0/radzone/internal/logging"
)

// Open создаёт реестр по конфигурации; при заданном Redis оборачивает его кэшем
func Open(cfg *config.Config) (Registry, error) {
	var (
		reg Registry
		err error
	)

	switch cfg.Registry.Backend {
	case config.BackendMemory:
		reg = NewMemoryRegistry()
	case config.BackendBadger:
		reg, err = NewBadgerRegistry(cfg.Registry.BadgerDir)
	case config.BackendSQLite:
		reg, err = NewSQLiteRegistry(cfg.Registry.SQLitePath)
	case config.BackendMaria:
		reg, err = NewMariaRegistry(cfg.Registry.MariaDSN)
	case config.BackendMongo:
		reg, err = NewMongoRegistry(MongoConfig{URI: cfg.Registry.MongoURI, Database: cfg.Registry.MongoDatabase})
	default:
		return nil, fmt.Errorf("неизвестный backend реестра: %q", cfg.Registry.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("реестр %s: %w", cfg.Registry.Backend, err)
	}
	logging.Info("🗂️ Реестр регионов: %s", cfg.Registry.Backend)

	if cfg.Cache.RedisAddr == "" {
		return reg, nil
	}

	cached, err := NewCachedRegistry(reg, RedisConfig{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
		TTL:  time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	})
	if err != nil {
		_ = reg.Close()
		return nil, err
	}
	return cached, nil
}
