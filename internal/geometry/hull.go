// Package geometry содержит планарную геометрию на плоскости XZ:
// выпуклую оболочку Грэхема, проекцию вокселей и проверку попадания точки.
package geometry

import (
	"math"
	"sort"

	"github.com/annel0/radzone/internal/vec"
)

// Polygon упорядоченный список вершин без замыкающего ребра.
// Замыкание n-1 -> 0 подразумевается.
type Polygon []vec.Vec2

// Cross знак поворота p1 -> p2 -> p3.
// > 0 левый поворот (против часовой), < 0 правый, 0 коллинеарность.
func Cross(p1, p2, p3 vec.Vec2) int {
	return (p2.X-p1.X)*(p3.Z-p1.Z) - (p2.Z-p1.Z)*(p3.X-p1.X)
}

// ConvexHull строит выпуклую оболочку сканом Грэхема.
// 0, 1 и 2 точки возвращаются как есть (копия). Для 3+ точек результат
// начинается с опорной точки (минимальный Z, затем минимальный X) и идёт
// против часовой стрелки без коллинеарных троек.
// При равном полярном угле ближняя к опорной точка идёт первой.
func ConvexHull(points []vec.Vec2) Polygon {
	if len(points) < 3 {
		return append(Polygon(nil), points...)
	}

	pivotIdx := 0
	for i, p := range points {
		lo := points[pivotIdx]
		if p.Z < lo.Z || (p.Z == lo.Z && p.X < lo.X) {
			pivotIdx = i
		}
	}
	pivot := points[pivotIdx]

	rest := make([]vec.Vec2, 0, len(points)-1)
	rest = append(rest, points[:pivotIdx]...)
	rest = append(rest, points[pivotIdx+1:]...)

	angles := make(map[vec.Vec2]float64, len(rest))
	for _, p := range rest {
		angles[p] = math.Atan2(float64(p.Z-pivot.Z), float64(p.X-pivot.X))
	}

	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		// Одинаковое направление определяем точно, без плавающей точки
		if Cross(pivot, a, b) == 0 {
			return pivot.DistanceSq(a) < pivot.DistanceSq(b)
		}
		return angles[a] < angles[b]
	})

	sorted := make([]vec.Vec2, 0, len(points))
	sorted = append(sorted, pivot)
	sorted = append(sorted, rest...)

	stack := make(Polygon, 0, len(sorted))
	stack = append(stack, sorted[0], sorted[1])
	for _, p := range sorted[2:] {
		for len(stack) >= 2 && Cross(stack[len(stack)-2], stack[len(stack)-1], p) <= 0 {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, p)
	}
	return stack
}

// IsStrictlyConvex проверяет, что все тройки (с замыканием) дают левый поворот
func (p Polygon) IsStrictlyConvex() bool {
	n := len(p)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		if Cross(p[i], p[(i+1)%n], p[(i+2)%n]) <= 0 {
			return false
		}
	}
	return true
}
