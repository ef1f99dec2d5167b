package world

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/radzone/internal/logging"
	"github.com/annel0/radzone/internal/vec"
	"github.com/annel0/radzone/internal/world/block"
)

// ErrOutOfBounds позиция вне вертикальных границ мира
var ErrOutOfBounds = errors.New("позиция вне границ мира")

// ChunkStore хранит изменения чанков поверх сгенерированного ландшафта
type ChunkStore interface {
	// LoadChunk возвращает nil, nil если изменений нет
	LoadChunk(ctx context.Context, worldID string, coords vec.Vec2) (*ChunkDelta, error)
	SaveChunk(ctx context.Context, worldID string, delta *ChunkDelta) error
}

// Options параметры менеджера мира
type Options struct {
	WorldID   string
	MinY      int
	MaxY      int
	Generator Generator
	Store     ChunkStore // nil - мир без сохранения
}

// WorldManager отдаёт воксели мира: кэш чанков, затем хранилище, затем генератор.
//
// Вне вертикальных границ ответ фиксирован: ниже MinY твёрдо (бедрок),
// на MaxY и выше открыто (небо). Неизвестного состояния не бывает.
type WorldManager struct {
	worldID   string
	minY      int
	maxY      int
	generator Generator
	store     ChunkStore

	mu     sync.Mutex
	chunks map[vec.Vec2]*Chunk

	logger *logging.Logger
}

// NewWorldManager создаёт менеджер мира
func NewWorldManager(opts Options) (*WorldManager, error) {
	if opts.WorldID == "" {
		return nil, fmt.Errorf("не задан идентификатор мира")
	}
	if opts.MinY >= opts.MaxY {
		return nil, fmt.Errorf("некорректные границы высот [%d, %d)", opts.MinY, opts.MaxY)
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("не задан генератор мира")
	}

	return &WorldManager{
		worldID:   opts.WorldID,
		minY:      opts.MinY,
		maxY:      opts.MaxY,
		generator: opts.Generator,
		store:     opts.Store,
		chunks:    make(map[vec.Vec2]*Chunk),
		logger:    logging.GetComponentLogger("world"),
	}, nil
}

// WorldID возвращает идентификатор мира
func (wm *WorldManager) WorldID() string { return wm.worldID }

// Bounds возвращает вертикальные границы [minY, maxY)
func (wm *WorldManager) Bounds() (int, int) { return wm.minY, wm.maxY }

// IsSolid сообщает, является ли воксель непроницаемым для заливки
func (wm *WorldManager) IsSolid(ctx context.Context, pos vec.Vec3) (bool, error) {
	if pos.Y < wm.minY {
		return true, nil
	}
	if pos.Y >= wm.maxY {
		return false, nil
	}
	id, err := wm.GetBlock(ctx, pos)
	if err != nil {
		return false, err
	}
	return block.IsSolid(id), nil
}

// GetBlock возвращает блок в позиции
func (wm *WorldManager) GetBlock(ctx context.Context, pos vec.Vec3) (block.ID, error) {
	if pos.Y < wm.minY {
		return block.Bedrock, nil
	}
	if pos.Y >= wm.maxY {
		return block.Air, nil
	}
	chunk, err := wm.chunk(ctx, pos.ToChunkCoords())
	if err != nil {
		return block.Air, err
	}
	local := pos.XZ().LocalInChunk()
	return chunk.Get(local.X, pos.Y, local.Z), nil
}

// SetBlock устанавливает блок. Изменение сохраняется через SaveDirty.
func (wm *WorldManager) SetBlock(ctx context.Context, pos vec.Vec3, id block.ID) error {
	if pos.Y < wm.minY || pos.Y >= wm.maxY {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, pos)
	}
	chunk, err := wm.chunk(ctx, pos.ToChunkCoords())
	if err != nil {
		return err
	}
	local := pos.XZ().LocalInChunk()
	chunk.Set(local.X, pos.Y, local.Z, id)
	return nil
}

// FillBox заполняет параллелепипед между углами включительно
func (wm *WorldManager) FillBox(ctx context.Context, from, to vec.Vec3, id block.ID) (int, error) {
	lo := vec.Vec3{X: min(from.X, to.X), Y: min(from.Y, to.Y), Z: min(from.Z, to.Z)}
	hi := vec.Vec3{X: max(from.X, to.X), Y: max(from.Y, to.Y), Z: max(from.Z, to.Z)}

	count := 0
	for y := lo.Y; y <= hi.Y; y++ {
		for z := lo.Z; z <= hi.Z; z++ {
			for x := lo.X; x <= hi.X; x++ {
				if err := wm.SetBlock(ctx, vec.Vec3{X: x, Y: y, Z: z}, id); err != nil {
					return count, err
				}
				count++
			}
		}
	}
	return count, nil
}

// chunk возвращает чанк из кэша, загружая или генерируя его при необходимости
func (wm *WorldManager) chunk(ctx context.Context, coords vec.Vec2) (*Chunk, error) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if c, ok := wm.chunks[coords]; ok {
		return c, nil
	}

	c := wm.generator.GenerateChunk(coords, wm.minY, wm.maxY)

	if wm.store != nil {
		delta, err := wm.store.LoadChunk(ctx, wm.worldID, coords)
		if err != nil {
			return nil, fmt.Errorf("загрузка чанка %v: %w", coords, err)
		}
		if delta != nil {
			c.ApplyDelta(delta)
			wm.logger.Debug("📦 Чанк %v загружен из хранилища (%d изменений)", coords, len(delta.Blocks))
		}
	}

	wm.chunks[coords] = c
	return c, nil
}

// LoadedChunks возвращает количество чанков в кэше
func (wm *WorldManager) LoadedChunks() int {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return len(wm.chunks)
}

// SaveDirty сохраняет изменённые чанки. Возвращает количество сохранённых.
func (wm *WorldManager) SaveDirty(ctx context.Context) (int, error) {
	if wm.store == nil {
		return 0, nil
	}

	wm.mu.Lock()
	dirty := make([]*Chunk, 0)
	for _, c := range wm.chunks {
		if c.Dirty() {
			dirty = append(dirty, c)
		}
	}
	wm.mu.Unlock()

	saved := 0
	for _, c := range dirty {
		if err := wm.store.SaveChunk(ctx, wm.worldID, c.Delta()); err != nil {
			return saved, fmt.Errorf("сохранение чанка %v: %w", c.Coords, err)
		}
		c.ClearChanges()
		saved++
	}

	if saved > 0 {
		wm.logger.Info("💾 Сохранено чанков: %d", saved)
	}
	return saved, nil
}
