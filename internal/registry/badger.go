package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/storage"
	"github.com/annel0/radzone/internal/vec"
)

// BadgerRegistry хранит определения в BadgerDB, значения сжаты zstd
type BadgerRegistry struct {
	db    *badger.DB
	codec *storage.Codec
}

// NewBadgerRegistry открывает реестр в каталоге dir
func NewBadgerRegistry(dir string) (*BadgerRegistry, error) {
	db, err := storage.OpenBadger(dir)
	if err != nil {
		return nil, err
	}
	codec, err := storage.NewCodec()
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BadgerRegistry{db: db, codec: codec}, nil
}

// regionPrefix длина мира в ключе исключает пересечение префиксов разных миров
func regionPrefix(worldID string) []byte {
	return []byte(fmt.Sprintf("region:%d:%s:", len(worldID), worldID))
}

func regionKey(worldID, name string) []byte {
	return append(regionPrefix(worldID), name...)
}

func (b *BadgerRegistry) AddPolygonalRegion(ctx context.Context, def region.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := b.codec.Marshal(def)
	if err != nil {
		return err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(regionKey(def.WorldID, def.Name), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения региона %s в BadgerDB: %w", def.Key(), err)
	}
	return nil
}

func (b *BadgerRegistry) Get(ctx context.Context, worldID, name string) (region.Definition, error) {
	var def region.Definition
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(regionKey(worldID, name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return b.codec.Unmarshal(val, &def)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return region.Definition{}, notFound(worldID, name)
	}
	if err != nil {
		return region.Definition{}, fmt.Errorf("ошибка чтения региона из BadgerDB: %w", err)
	}
	return def, nil
}

func (b *BadgerRegistry) List(ctx context.Context, worldID string) ([]region.Definition, error) {
	defs := make([]region.Definition, 0)
	prefix := regionPrefix(worldID)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var def region.Definition
			err := it.Item().Value(func(val []byte) error {
				return b.codec.Unmarshal(val, &def)
			})
			if err != nil {
				return fmt.Errorf("регион %s: %w", it.Item().Key(), err)
			}
			defs = append(defs, def)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByName(defs)
	return defs, nil
}

func (b *BadgerRegistry) Remove(ctx context.Context, worldID, name string) error {
	key := regionKey(worldID, name)
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound(worldID, name)
	}
	return err
}

func (b *BadgerRegistry) RegionsAt(ctx context.Context, worldID string, pos vec.Vec3) ([]region.Definition, error) {
	defs, err := b.List(ctx, worldID)
	if err != nil {
		return nil, err
	}
	return filterAt(defs, pos), nil
}

func (b *BadgerRegistry) Close() error {
	b.codec.Close()
	return b.db.Close()
}
