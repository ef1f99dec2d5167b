package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/radzone/internal/vec"
	"github.com/annel0/radzone/internal/world"
	"github.com/annel0/radzone/internal/world/block"
)

// ErrNotReady хранилище закрыто
var ErrNotReady = errors.New("хранилище не готово")

// WorldStorage хранит дельты чанков мира в BadgerDB
type WorldStorage struct {
	db      *badger.DB
	codec   *Codec
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

var _ world.ChunkStore = (*WorldStorage)(nil)

// OpenBadger открывает BadgerDB без собственного логгера
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}
	return db, nil
}

// NewWorldStorage создает новое хранилище мира
func NewWorldStorage(dbPath string) (*WorldStorage, error) {
	db, err := OpenBadger(dbPath)
	if err != nil {
		return nil, err
	}
	codec, err := NewCodec()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &WorldStorage{
		db:      db,
		codec:   codec,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	ws.codec.Close()
	return ws.db.Close()
}

func chunkKey(worldID string, coords vec.Vec2) []byte {
	return []byte(fmt.Sprintf("chunk:%s:%d:%d", worldID, coords.X, coords.Z))
}

// SaveChunk объединяет дельту с уже сохранённой
func (ws *WorldStorage) SaveChunk(ctx context.Context, worldID string, delta *world.ChunkDelta) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if delta == nil || len(delta.Blocks) == 0 {
		return nil
	}

	key := chunkKey(worldID, delta.Coords)

	err := ws.db.Update(func(txn *badger.Txn) error {
		merged, err := ws.read(txn, key)
		if err != nil {
			return err
		}
		if merged == nil {
			merged = &world.ChunkDelta{Coords: delta.Coords, Blocks: make(map[int]block.ID)}
		}
		for idx, id := range delta.Blocks {
			merged.Blocks[idx] = id
		}

		data, err := ws.codec.Marshal(merged)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadChunk загружает дельту чанка; nil если чанк не изменялся
func (ws *WorldStorage) LoadChunk(ctx context.Context, worldID string, coords vec.Vec2) (*world.ChunkDelta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var delta *world.ChunkDelta
	err := ws.db.View(func(txn *badger.Txn) error {
		var err error
		delta, err = ws.read(txn, chunkKey(worldID, coords))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return delta, nil
}

// read читает дельту в транзакции; nil если ключа нет
func (ws *WorldStorage) read(txn *badger.Txn, key []byte) (*world.ChunkDelta, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var delta world.ChunkDelta
	err = item.Value(func(val []byte) error {
		return ws.codec.Unmarshal(val, &delta)
	})
	if err != nil {
		return nil, err
	}
	if delta.Blocks == nil {
		delta.Blocks = make(map[int]block.ID)
	}
	return &delta, nil
}
