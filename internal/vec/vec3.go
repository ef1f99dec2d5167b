package vec

// Vec3 представляет трехмерный вектор с целочисленными координатами (воксель).
// Сравнимый тип: используется как ключ карты.
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Шесть соседей по граням в фиксированном порядке: +x, -x, +y, -y, +z, -z.
// Порядок влияет на порядок обхода BFS и должен оставаться стабильным.
var faceOffsets = [6]Vec3{
	{X: 1}, {X: -1},
	{Y: 1}, {Y: -1},
	{Z: 1}, {Z: -1},
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Neighbors6 возвращает шесть соседей по граням
func (v Vec3) Neighbors6() [6]Vec3 {
	var out [6]Vec3
	for i, off := range faceOffsets {
		out[i] = v.Add(off)
	}
	return out
}

// XZ проецирует воксель на горизонтальную плоскость, отбрасывая Y
func (v Vec3) XZ() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// ToChunkCoords возвращает координаты колонки-чанка 16x16, содержащей воксель
func (v Vec3) ToChunkCoords() Vec2 {
	return v.XZ().ToChunkCoords()
}

// DistanceSq возвращает квадрат евклидова расстояния
func (v Vec3) DistanceSq(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}
