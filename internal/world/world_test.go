package world

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/radzone/internal/vec"
	"github.com/annel0/radzone/internal/world/block"
)

func newFlatWorld(t *testing.T, store ChunkStore) *WorldManager {
	t.Helper()
	wm, err := NewWorldManager(Options{
		WorldID:   "test",
		MinY:      0,
		MaxY:      32,
		Generator: FlatGenerator{GroundY: 4},
		Store:     store,
	})
	require.NoError(t, err)
	return wm
}

func TestNewWorldManagerValidation(t *testing.T) {
	_, err := NewWorldManager(Options{MinY: 0, MaxY: 10, Generator: FlatGenerator{}})
	assert.Error(t, err, "пустой идентификатор мира")

	_, err = NewWorldManager(Options{WorldID: "w", MinY: 10, MaxY: 10, Generator: FlatGenerator{}})
	assert.Error(t, err, "пустой диапазон высот")

	_, err = NewWorldManager(Options{WorldID: "w", MinY: 0, MaxY: 10})
	assert.Error(t, err, "нет генератора")
}

func TestVerticalFallbackPolicy(t *testing.T) {
	wm := newFlatWorld(t, nil)
	ctx := context.Background()

	solid, err := wm.IsSolid(ctx, vec.Vec3{X: 0, Y: -1, Z: 0})
	require.NoError(t, err)
	assert.True(t, solid, "ниже мира - бедрок")

	solid, err = wm.IsSolid(ctx, vec.Vec3{X: 0, Y: 32, Z: 0})
	require.NoError(t, err)
	assert.False(t, solid, "выше мира - небо")

	assert.Equal(t, 0, wm.LoadedChunks(), "границы по высоте не загружают чанки")
}

func TestFlatTerrain(t *testing.T) {
	wm := newFlatWorld(t, nil)
	ctx := context.Background()

	for _, pos := range []vec.Vec3{{X: 0, Y: 4, Z: 0}, {X: -17, Y: 0, Z: 100}} {
		solid, err := wm.IsSolid(ctx, pos)
		require.NoError(t, err)
		assert.True(t, solid, "грунт в %v", pos)
	}

	solid, err := wm.IsSolid(ctx, vec.Vec3{X: -17, Y: 5, Z: 100})
	require.NoError(t, err)
	assert.False(t, solid)
	assert.Equal(t, 2, wm.LoadedChunks())
}

func TestSetBlockAndFillBox(t *testing.T) {
	wm := newFlatWorld(t, nil)
	ctx := context.Background()

	n, err := wm.FillBox(ctx, vec.Vec3{X: 1, Y: 10, Z: 1}, vec.Vec3{X: -1, Y: 8, Z: -1}, block.Concrete)
	require.NoError(t, err)
	assert.Equal(t, 27, n)

	id, err := wm.GetBlock(ctx, vec.Vec3{X: -1, Y: 9, Z: 0})
	require.NoError(t, err)
	assert.Equal(t, block.Concrete, id)

	err = wm.SetBlock(ctx, vec.Vec3{X: 0, Y: 40, Z: 0}, block.Stone)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

type failingStore struct{}

func (failingStore) LoadChunk(context.Context, string, vec.Vec2) (*ChunkDelta, error) {
	return nil, errors.New("диск недоступен")
}

func (failingStore) SaveChunk(context.Context, string, *ChunkDelta) error {
	return errors.New("диск недоступен")
}

func TestStoreFailurePropagates(t *testing.T) {
	wm := newFlatWorld(t, failingStore{})

	_, err := wm.IsSolid(context.Background(), vec.Vec3{X: 0, Y: 5, Z: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "диск недоступен")
	assert.Equal(t, 0, wm.LoadedChunks(), "неудачная загрузка не кэшируется")
}

type memStore struct {
	deltas map[vec.Vec2]*ChunkDelta
}

func (m *memStore) LoadChunk(_ context.Context, _ string, coords vec.Vec2) (*ChunkDelta, error) {
	return m.deltas[coords], nil
}

func (m *memStore) SaveChunk(_ context.Context, _ string, delta *ChunkDelta) error {
	m.deltas[delta.Coords] = delta
	return nil
}

func TestSaveDirtyAndReload(t *testing.T) {
	store := &memStore{deltas: make(map[vec.Vec2]*ChunkDelta)}
	ctx := context.Background()
	pos := vec.Vec3{X: 20, Y: 2, Z: -3}

	wm := newFlatWorld(t, store)
	require.NoError(t, wm.SetBlock(ctx, pos, block.Air))

	saved, err := wm.SaveDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	require.Contains(t, store.deltas, pos.ToChunkCoords())

	reloaded := newFlatWorld(t, store)
	solid, err := reloaded.IsSolid(ctx, pos)
	require.NoError(t, err)
	assert.False(t, solid, "вырытый блок должен остаться воздухом")
}
