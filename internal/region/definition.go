package region

import (
	"fmt"
	"sort"
	"time"

	"github.com/annel0/radzone/internal/geometry"
	"github.com/annel0/radzone/internal/vec"
)

// Definition защищённый объём: выпуклый многоугольник в плоскости XZ и диапазон высот.
// После сборки не изменяется; владение передаётся реестру.
type Definition struct {
	Name    string           `json:"name" bson:"name"`
	WorldID string           `json:"world_id" bson:"world_id"`
	Polygon geometry.Polygon `json:"polygon" bson:"polygon"`
	MinY    int              `json:"min_y" bson:"min_y"`
	MaxY    int              `json:"max_y" bson:"max_y"`

	Origin    vec.Vec3   `json:"origin" bson:"origin"`
	Radius    int        `json:"radius" bson:"radius"`
	Level     float64    `json:"level" bson:"level"`
	Volume    int        `json:"volume" bson:"volume"` // Число открытых вокселей
	Chunks    []vec.Vec2 `json:"chunks" bson:"chunks"` // Затронутые чанки
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
}

// Assemble собирает определение из открытых вокселей и оболочки их проекции.
// Высоты считаются одним проходом, порядок вокселей не важен.
func Assemble(open []vec.Vec3, hull geometry.Polygon, name, worldID string) (Definition, error) {
	if len(open) == 0 {
		return Definition{}, ErrEmptyRegion
	}
	if len(hull) == 0 {
		return Definition{}, fmt.Errorf("%w: пустая оболочка при %d вокселях", ErrInvalidInput, len(open))
	}

	minY, maxY := open[0].Y, open[0].Y
	chunkSet := make(map[vec.Vec2]struct{})
	for _, v := range open {
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
		chunkSet[v.ToChunkCoords()] = struct{}{}
	}

	chunks := make([]vec.Vec2, 0, len(chunkSet))
	for c := range chunkSet {
		chunks = append(chunks, c)
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Z != chunks[j].Z {
			return chunks[i].Z < chunks[j].Z
		}
		return chunks[i].X < chunks[j].X
	})

	return Definition{
		Name:    name,
		WorldID: worldID,
		Polygon: append(geometry.Polygon(nil), hull...),
		MinY:    minY,
		MaxY:    maxY,
		Volume:  len(open),
		Chunks:  chunks,
	}, nil
}

// Degenerate многоугольник из одной или двух точек
func (d Definition) Degenerate() bool {
	return len(d.Polygon) < 3
}

// Contains проверяет попадание вокселя в объём, границы включительно
func (d Definition) Contains(pos vec.Vec3) bool {
	if pos.Y < d.MinY || pos.Y > d.MaxY {
		return false
	}
	return d.Polygon.Contains(pos.XZ())
}

// Key уникальный ключ определения в реестре
func (d Definition) Key() string {
	return d.WorldID + "/" + d.Name
}

// Validate проверяет определение перед сохранением
func (d Definition) Validate() error {
	switch {
	case d.Name == "":
		return NewInputError("name", "имя региона не задано")
	case d.WorldID == "":
		return NewInputError("world_id", "мир не задан")
	case len(d.Polygon) == 0:
		return NewInputError("polygon", "многоугольник пуст")
	case d.MinY > d.MaxY:
		return NewInputError("min_y", fmt.Sprintf("min_y (%d) больше max_y (%d)", d.MinY, d.MaxY))
	}
	return nil
}
