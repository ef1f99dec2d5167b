package registry

import (
	"github.com/annel0/radzone/internal/vec"
)

// SpatialIndex сетка ячеек размером с чанк: ячейка -> ключи регионов,
// чей ограничивающий прямоугольник её задевает. Не потокобезопасен,
// синхронизацию обеспечивает владелец.
type SpatialIndex struct {
	cells   map[cellKey]map[string]struct{}
	regions map[string]cellRange
}

// cellKey координаты ячейки (чанка) в плоскости XZ
type cellKey struct {
	x, z int
}

// cellRange прямоугольник ячеек, включительно
type cellRange struct {
	lo, hi cellKey
}

func (r cellRange) each(fn func(cellKey)) {
	for z := r.lo.z; z <= r.hi.z; z++ {
		for x := r.lo.x; x <= r.hi.x; x++ {
			fn(cellKey{x: x, z: z})
		}
	}
}

func rangeOf(b bbox) cellRange {
	lo := vec.Vec2{X: b.MinX, Z: b.MinZ}.ToChunkCoords()
	hi := vec.Vec2{X: b.MaxX, Z: b.MaxZ}.ToChunkCoords()
	return cellRange{lo: cellKey{x: lo.X, z: lo.Z}, hi: cellKey{x: hi.X, z: hi.Z}}
}

// NewSpatialIndex создаёт пустой индекс
func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{
		cells:   make(map[cellKey]map[string]struct{}),
		regions: make(map[string]cellRange),
	}
}

// Insert добавляет или перемещает регион
func (si *SpatialIndex) Insert(key string, b bbox) {
	si.Remove(key)

	r := rangeOf(b)
	si.regions[key] = r
	r.each(func(c cellKey) {
		set, ok := si.cells[c]
		if !ok {
			set = make(map[string]struct{})
			si.cells[c] = set
		}
		set[key] = struct{}{}
	})
}

// Remove удаляет регион из всех ячеек
func (si *SpatialIndex) Remove(key string) {
	r, ok := si.regions[key]
	if !ok {
		return
	}
	delete(si.regions, key)
	r.each(func(c cellKey) {
		set := si.cells[c]
		delete(set, key)
		if len(set) == 0 {
			delete(si.cells, c)
		}
	})
}

// Query ключи регионов в ячейке точки (кандидаты для точной проверки)
func (si *SpatialIndex) Query(pos vec.Vec2) []string {
	c := pos.ToChunkCoords()
	set := si.cells[cellKey{x: c.X, z: c.Z}]
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}

// Cells число непустых ячеек
func (si *SpatialIndex) Cells() int { return len(si.cells) }
