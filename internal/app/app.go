// Package app собирает компоненты сервиса из конфигурации.
// Используется cmd/server и cmd/irradiate.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/radzone/internal/config"
	"github.com/annel0/radzone/internal/eventbus"
	"github.com/annel0/radzone/internal/logging"
	"github.com/annel0/radzone/internal/storage"
	"github.com/annel0/radzone/internal/world"
	"github.com/annel0/radzone/internal/world/block"
)

// World мир вместе с хранилищем изменений
type World struct {
	*world.WorldManager
	storage *storage.WorldStorage
}

// WorldOptions переопределения при открытии мира
type WorldOptions struct {
	// Flat плоский мир с грунтом до FlatGroundY вместо perlin-ландшафта
	Flat        bool
	FlatGroundY int
	// Ephemeral мир без badger хранилища
	Ephemeral bool
}

// OpenWorld открывает мир по секции world конфигурации
func OpenWorld(cfg config.WorldConfig, opts WorldOptions) (*World, error) {
	var gen world.Generator
	if opts.Flat {
		gen = world.FlatGenerator{GroundY: opts.FlatGroundY, Ground: block.Stone}
	} else {
		gen = world.NewWorldGenerator(cfg.Seed, cfg.SeaLevel)
	}

	w := &World{}
	wopts := world.Options{
		WorldID:   cfg.ID,
		MinY:      cfg.MinY,
		MaxY:      cfg.MaxY,
		Generator: gen,
	}
	if !opts.Ephemeral {
		ws, err := storage.NewWorldStorage(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("хранилище мира %s: %w", cfg.DataDir, err)
		}
		w.storage = ws
		wopts.Store = ws
	}

	wm, err := world.NewWorldManager(wopts)
	if err != nil {
		w.closeStorage()
		return nil, err
	}
	w.WorldManager = wm
	return w, nil
}

// Close сохраняет изменённые чанки и закрывает хранилище
func (w *World) Close(ctx context.Context) error {
	defer w.closeStorage()
	if w.storage == nil {
		return nil
	}
	n, err := w.SaveDirty(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logging.Info("💾 Сохранено чанков: %d", n)
	}
	return nil
}

func (w *World) closeStorage() {
	if w.storage == nil {
		return
	}
	if err := w.storage.Close(); err != nil {
		logging.Error("❌ Закрытие хранилища мира: %v", err)
	}
	w.storage = nil
}

// NewBus шина событий: JetStream при заданном URL, иначе в памяти
func NewBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("📨 Шина событий в памяти")
		return eventbus.NewMemoryBus(1024), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, err
	}
	logging.Info("📨 Шина событий NATS JetStream: %s (stream %s)", cfg.URL, cfg.Stream)
	return bus, nil
}
