package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/vec"
)

// ErrRegionNotFound регион с таким именем не зарегистрирован
var ErrRegionNotFound = errors.New("регион не найден")

// Registry хранит защищённые регионы. Повторная регистрация имени в мире
// заменяет прежнее определение (last-write-wins).
type Registry interface {
	AddPolygonalRegion(ctx context.Context, def region.Definition) error
	Get(ctx context.Context, worldID, name string) (region.Definition, error)
	// List возвращает регионы мира, отсортированные по имени
	List(ctx context.Context, worldID string) ([]region.Definition, error)
	Remove(ctx context.Context, worldID, name string) error
	// RegionsAt возвращает регионы, содержащие воксель
	RegionsAt(ctx context.Context, worldID string, pos vec.Vec3) ([]region.Definition, error)
	Close() error
}

var _ region.Registrar = Registry(nil)

func notFound(worldID, name string) error {
	return fmt.Errorf("%w: %s/%s", ErrRegionNotFound, worldID, name)
}

func sortByName(defs []region.Definition) {
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
}

// filterAt оставляет регионы, содержащие pos
func filterAt(defs []region.Definition, pos vec.Vec3) []region.Definition {
	out := make([]region.Definition, 0, len(defs))
	for _, d := range defs {
		if d.Contains(pos) {
			out = append(out, d)
		}
	}
	sortByName(out)
	return out
}

// bbox габариты многоугольника в плоскости XZ для предварительного отбора в БД
type bbox struct {
	MinX, MaxX, MinZ, MaxZ int
}

func boundsOf(def region.Definition) bbox {
	lo, hi, _ := def.Polygon.Bounds()
	return bbox{MinX: lo.X, MaxX: hi.X, MinZ: lo.Z, MaxZ: hi.Z}
}
