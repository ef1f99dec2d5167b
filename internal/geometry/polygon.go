package geometry

import "github.com/annel0/radzone/internal/vec"

// ProjectXZ проецирует воксели на плоскость XZ.
// Дубликаты (одна колонка на разных высотах) отбрасываются,
// порядок первого появления сохраняется.
func ProjectXZ(voxels []vec.Vec3) []vec.Vec2 {
	seen := make(map[vec.Vec2]struct{}, len(voxels))
	out := make([]vec.Vec2, 0, len(voxels))
	for _, v := range voxels {
		p := v.XZ()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Contains проверяет попадание точки в выпуклый многоугольник (CCW), границы включительно.
// Вырожденные случаи: одна точка содержит только себя, две точки содержат отрезок.
func (p Polygon) Contains(pt vec.Vec2) bool {
	switch len(p) {
	case 0:
		return false
	case 1:
		return p[0] == pt
	case 2:
		return onSegment(p[0], p[1], pt)
	}
	n := len(p)
	for i := 0; i < n; i++ {
		if Cross(p[i], p[(i+1)%n], pt) < 0 {
			return false
		}
	}
	return true
}

func onSegment(a, b, pt vec.Vec2) bool {
	if Cross(a, b, pt) != 0 {
		return false
	}
	return min(a.X, b.X) <= pt.X && pt.X <= max(a.X, b.X) &&
		min(a.Z, b.Z) <= pt.Z && pt.Z <= max(a.Z, b.Z)
}

// Bounds возвращает ограничивающий прямоугольник многоугольника
func (p Polygon) Bounds() (lo, hi vec.Vec2, ok bool) {
	if len(p) == 0 {
		return lo, hi, false
	}
	lo, hi = p[0], p[0]
	for _, v := range p[1:] {
		lo.X, lo.Z = min(lo.X, v.X), min(lo.Z, v.Z)
		hi.X, hi.Z = max(hi.X, v.X), max(hi.Z, v.Z)
	}
	return lo, hi, true
}

// DoubleArea удвоенная ориентированная площадь (формула шнурков)
func (p Polygon) DoubleArea() int {
	n := len(p)
	if n < 3 {
		return 0
	}
	sum := 0
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		sum += a.X*b.Z - b.X*a.Z
	}
	return sum
}
