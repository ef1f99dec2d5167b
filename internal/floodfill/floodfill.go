// Package floodfill реализует ограниченный поиск в ширину по открытым вокселям.
package floodfill

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/radzone/internal/vec"
)

// ErrNegativeRange возвращается при maxRange < 0
var ErrNegativeRange = errors.New("floodfill: maxRange не может быть отрицательным")

// ErrRangeAboveCeiling возвращается Engine, если maxRange превышает потолок
var ErrRangeAboveCeiling = errors.New("floodfill: maxRange превышает допустимый потолок")

// Sampler отвечает на вопрос «твёрдый ли воксель в позиции pos».
// Должен отвечать для любой координаты, достижимой за maxRange шагов от начала.
type Sampler interface {
	IsSolid(ctx context.Context, pos vec.Vec3) (bool, error)
}

// SamplerFunc адаптер для функций
type SamplerFunc func(ctx context.Context, pos vec.Vec3) (bool, error)

// IsSolid реализует Sampler
func (f SamplerFunc) IsSolid(ctx context.Context, pos vec.Vec3) (bool, error) {
	return f(ctx, pos)
}

// Stats содержит счётчики одного прогона
type Stats struct {
	Visited  int // размер множества посещённых (включая начало)
	Enqueued int // количество постановок соседей в очередь
	Levels   int // количество полностью обработанных уровней BFS
	Open     int // количество открытых вокселей в результате
	Sampled  int // количество обращений к Sampler
}

// Fill выполняет поуровневый BFS от origin по 6-связности.
// Твёрдые воксели не попадают в результат и не расширяются.
// Результат упорядочен строго по уровням BFS.
func Fill(ctx context.Context, origin vec.Vec3, maxRange int, sampler Sampler) ([]vec.Vec3, error) {
	open, _, err := fill(ctx, origin, maxRange, sampler)
	return open, err
}

func fill(ctx context.Context, origin vec.Vec3, maxRange int, sampler Sampler) ([]vec.Vec3, Stats, error) {
	var stats Stats
	if maxRange < 0 {
		return nil, stats, ErrNegativeRange
	}

	visited := map[vec.Vec3]struct{}{origin: {}}
	frontier := []vec.Vec3{origin}
	var open []vec.Vec3

	for r := 0; len(frontier) > 0 && r <= maxRange; r++ {
		// Отмена проверяется только между уровнями
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		levelSize := len(frontier)
		for i := 0; i < levelSize; i++ {
			pos := frontier[i]

			solid, err := sampler.IsSolid(ctx, pos)
			stats.Sampled++
			if err != nil {
				return nil, stats, fmt.Errorf("опрос вокселя %v: %w", pos, err)
			}
			if solid {
				continue
			}

			open = append(open, pos)
			for _, n := range pos.Neighbors6() {
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = struct{}{}
				frontier = append(frontier, n)
				stats.Enqueued++
			}
		}
		frontier = frontier[levelSize:]
		stats.Levels++
	}

	stats.Visited = len(visited)
	stats.Open = len(open)
	return open, stats, nil
}
