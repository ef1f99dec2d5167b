package registry

import (
	"context"
	"sync"

	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/vec"
)

// MemoryRegistry реализует Registry в памяти процесса.
// Используется для тестов и однократных запусков.
type MemoryRegistry struct {
	mu      sync.RWMutex
	regions map[string]map[string]region.Definition // world -> name -> def
	index   map[string]*SpatialIndex                // world -> индекс по чанкам
}

// NewMemoryRegistry создаёт пустой реестр
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		regions: make(map[string]map[string]region.Definition),
		index:   make(map[string]*SpatialIndex),
	}
}

func (m *MemoryRegistry) AddPolygonalRegion(ctx context.Context, def region.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	world, ok := m.regions[def.WorldID]
	if !ok {
		world = make(map[string]region.Definition)
		m.regions[def.WorldID] = world
		m.index[def.WorldID] = NewSpatialIndex()
	}
	world[def.Name] = def
	m.index[def.WorldID].Insert(def.Name, boundsOf(def))
	return nil
}

func (m *MemoryRegistry) Get(ctx context.Context, worldID, name string) (region.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	def, ok := m.regions[worldID][name]
	if !ok {
		return region.Definition{}, notFound(worldID, name)
	}
	return def, nil
}

func (m *MemoryRegistry) List(ctx context.Context, worldID string) ([]region.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	defs := make([]region.Definition, 0, len(m.regions[worldID]))
	for _, def := range m.regions[worldID] {
		defs = append(defs, def)
	}
	sortByName(defs)
	return defs, nil
}

func (m *MemoryRegistry) Remove(ctx context.Context, worldID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.regions[worldID][name]; !ok {
		return notFound(worldID, name)
	}
	delete(m.regions[worldID], name)
	m.index[worldID].Remove(name)
	return nil
}

// RegionsAt отбирает кандидатов по индексу ячеек
func (m *MemoryRegistry) RegionsAt(ctx context.Context, worldID string, pos vec.Vec3) ([]region.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.index[worldID]
	if !ok {
		return []region.Definition{}, nil
	}
	keys := idx.Query(pos.XZ())
	defs := make([]region.Definition, 0, len(keys))
	for _, name := range keys {
		defs = append(defs, m.regions[worldID][name])
	}
	return filterAt(defs, pos), nil
}

// Count возвращает общее количество регионов
func (m *MemoryRegistry) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, w := range m.regions {
		n += len(w)
	}
	return n
}

func (m *MemoryRegistry) Close() error { return nil }
