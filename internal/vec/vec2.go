package vec

import "fmt"

// Vec2 представляет точку на плоскости XZ
type Vec2 struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// ToChunkCoords преобразует глобальные координаты в координаты чанка
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> 4, Z: v.Z >> 4} // Деление на 16
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & 0xF, Z: v.Z & 0xF} // Модуль 16
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Z: v.Z - other.Z}
}

// DistanceSq возвращает квадрат расстояния до другой точки
func (v Vec2) DistanceSq(other Vec2) int {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return dx*dx + dz*dz
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Z)
}
