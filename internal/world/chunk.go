package world

import (
	"sync"

	"github.com/annel0/radzone/internal/vec"
	"github.com/annel0/radzone/internal/world/block"
)

// ChunkSize ширина чанка по X и Z
const ChunkSize = 16

// Chunk представляет вертикальный столб мира 16x16 блоков в диапазоне высот [MinY, MaxY)
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка в мире
	MinY   int
	MaxY   int

	blocks  []block.ID
	changes map[int]struct{} // Изменённые с последнего сохранения блоки

	Mu sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт чанк, заполненный воздухом
func NewChunk(coords vec.Vec2, minY, maxY int) *Chunk {
	height := maxY - minY
	if height < 0 {
		height = 0
	}
	return &Chunk{
		Coords:  coords,
		MinY:    minY,
		MaxY:    maxY,
		blocks:  make([]block.ID, ChunkSize*ChunkSize*height),
		changes: make(map[int]struct{}),
	}
}

// index переводит локальные координаты в индекс; -1 вне чанка
func (c *Chunk) index(x, y, z int) int {
	if x < 0 || x >= ChunkSize || z < 0 || z >= ChunkSize || y < c.MinY || y >= c.MaxY {
		return -1
	}
	return ((y-c.MinY)*ChunkSize+z)*ChunkSize + x
}

// Get возвращает блок по локальным координатам; вне чанка воздух
func (c *Chunk) Get(x, y, z int) block.ID {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	idx := c.index(x, y, z)
	if idx < 0 {
		return block.Air
	}
	return c.blocks[idx]
}

// fill записывает блок без отметки изменения. Используется генератором.
func (c *Chunk) fill(x, y, z int, id block.ID) {
	if idx := c.index(x, y, z); idx >= 0 {
		c.blocks[idx] = id
	}
}

// Set устанавливает блок и запоминает изменение. Возвращает false вне чанка.
func (c *Chunk) Set(x, y, z int, id block.ID) bool {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	idx := c.index(x, y, z)
	if idx < 0 {
		return false
	}
	c.blocks[idx] = id
	c.changes[idx] = struct{}{}
	return true
}

// Dirty сообщает, есть ли несохранённые изменения
func (c *Chunk) Dirty() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return len(c.changes) > 0
}

// ClearChanges очищает список изменений
func (c *Chunk) ClearChanges() {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	c.changes = make(map[int]struct{})
}

// ChunkDelta содержит изменения в чанке относительно сгенерированного ландшафта
type ChunkDelta struct {
	Coords vec.Vec2         `json:"coords"`
	Blocks map[int]block.ID `json:"blocks"` // Ключ - индекс блока в чанке
}

// Delta собирает изменённые блоки в дельту
func (c *Chunk) Delta() *ChunkDelta {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	delta := &ChunkDelta{
		Coords: c.Coords,
		Blocks: make(map[int]block.ID, len(c.changes)),
	}
	for idx := range c.changes {
		delta.Blocks[idx] = c.blocks[idx]
	}
	return delta
}

// ApplyDelta применяет сохранённую дельту. Индексы вне чанка игнорируются.
func (c *Chunk) ApplyDelta(delta *ChunkDelta) {
	if delta == nil {
		return
	}
	c.Mu.Lock()
	defer c.Mu.Unlock()
	for idx, id := range delta.Blocks {
		if idx < 0 || idx >= len(c.blocks) {
			continue
		}
		c.blocks[idx] = id
	}
}
