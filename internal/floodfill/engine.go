package floodfill

import (
	"context"
	"fmt"

	"github.com/annel0/radzone/internal/vec"
)

// DefaultMaxRangeCeiling потолок дальности по умолчанию.
// Худший случай обхода растёт как O(maxRange³).
const DefaultMaxRangeCeiling = 64

// HardMaxRange предел, выше которого потолок не поднимается ни при какой конфигурации
const HardMaxRange = 256

// Engine оборачивает Fill жёстким потолком дальности и собирает статистику
type Engine struct {
	sampler Sampler
	ceiling int
}

// NewEngine создаёт движок. ceiling <= 0 означает DefaultMaxRangeCeiling,
// ceiling выше HardMaxRange урезается до него.
func NewEngine(sampler Sampler, ceiling int) *Engine {
	switch {
	case ceiling <= 0:
		ceiling = DefaultMaxRangeCeiling
	case ceiling > HardMaxRange:
		ceiling = HardMaxRange
	}
	return &Engine{sampler: sampler, ceiling: ceiling}
}

// Ceiling возвращает потолок дальности
func (e *Engine) Ceiling() int {
	return e.ceiling
}

// Run выполняет заливку с проверкой потолка
func (e *Engine) Run(ctx context.Context, origin vec.Vec3, maxRange int) ([]vec.Vec3, Stats, error) {
	if maxRange > e.ceiling {
		return nil, Stats{}, fmt.Errorf("%w: %d > %d", ErrRangeAboveCeiling, maxRange, e.ceiling)
	}
	return fill(ctx, origin, maxRange, e.sampler)
}
