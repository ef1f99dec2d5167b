package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/radzone/internal/vec"
	"github.com/annel0/radzone/internal/world"
	"github.com/annel0/radzone/internal/world/block"
)

func setupTestStorage(t *testing.T) *WorldStorage {
	t.Helper()
	storage, err := NewWorldStorage(t.TempDir())
	require.NoError(t, err, "Не удалось создать хранилище")
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec()
	require.NoError(t, err)
	defer codec.Close()

	in := map[string]int{"a": 1, "b": 2}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out map[string]int
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	assert.Error(t, codec.Unmarshal([]byte("не zstd"), &out))
}

func TestLoadMissingChunkReturnsNil(t *testing.T) {
	storage := setupTestStorage(t)

	delta, err := storage.LoadChunk(context.Background(), "world", vec.Vec2{X: 3, Z: -4})
	require.NoError(t, err)
	assert.Nil(t, delta)
}

func TestSaveMergesDeltas(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()
	coords := vec.Vec2{X: 10, Z: 20}

	require.NoError(t, storage.SaveChunk(ctx, "world", &world.ChunkDelta{
		Coords: coords,
		Blocks: map[int]block.ID{1: block.Stone, 2: block.Concrete},
	}))
	require.NoError(t, storage.SaveChunk(ctx, "world", &world.ChunkDelta{
		Coords: coords,
		Blocks: map[int]block.ID{2: block.Air, 7: block.Water},
	}))

	delta, err := storage.LoadChunk(ctx, "world", coords)
	require.NoError(t, err)
	require.NotNil(t, delta)
	assert.Equal(t, coords, delta.Coords)
	assert.Equal(t, map[int]block.ID{1: block.Stone, 2: block.Air, 7: block.Water}, delta.Blocks)

	other, err := storage.LoadChunk(ctx, "nether", coords)
	require.NoError(t, err)
	assert.Nil(t, other, "миры не должны пересекаться по ключам")
}

func TestClosedStorage(t *testing.T) {
	storage, err := NewWorldStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, storage.Close())
	require.NoError(t, storage.Close(), "повторное закрытие безопасно")

	_, err = storage.LoadChunk(context.Background(), "world", vec.Vec2{})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestWorldManagerPersistsEdits(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	pos := vec.Vec3{X: -5, Y: 12, Z: 33}

	storage, err := NewWorldStorage(dir)
	require.NoError(t, err)

	opts := world.Options{
		WorldID:   "world",
		MinY:      0,
		MaxY:      32,
		Generator: world.FlatGenerator{GroundY: 4},
		Store:     storage,
	}
	wm, err := world.NewWorldManager(opts)
	require.NoError(t, err)

	require.NoError(t, wm.SetBlock(ctx, pos, block.Concrete))
	saved, err := wm.SaveDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	saved, err = wm.SaveDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, saved, "после сохранения изменений не остаётся")
	require.NoError(t, storage.Close())

	storage, err = NewWorldStorage(dir)
	require.NoError(t, err)
	defer storage.Close()

	opts.Store = storage
	reloaded, err := world.NewWorldManager(opts)
	require.NoError(t, err)

	id, err := reloaded.GetBlock(ctx, pos)
	require.NoError(t, err)
	assert.Equal(t, block.Concrete, id)

	solid, err := reloaded.IsSolid(ctx, pos)
	require.NoError(t, err)
	assert.True(t, solid)
}
