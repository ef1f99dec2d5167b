package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_Neighbors6(t *testing.T) {
	n := Vec3{X: 1, Y: 2, Z: 3}.Neighbors6()

	expected := [6]Vec3{
		{X: 2, Y: 2, Z: 3}, {X: 0, Y: 2, Z: 3},
		{X: 1, Y: 3, Z: 3}, {X: 1, Y: 1, Z: 3},
		{X: 1, Y: 2, Z: 4}, {X: 1, Y: 2, Z: 2},
	}
	assert.Equal(t, expected, n, "Порядок соседей должен быть +x,-x,+y,-y,+z,-z")
}

func TestVec3_ChunkCoordsNegative(t *testing.T) {
	assert.Equal(t, Vec2{X: -1, Z: 0}, Vec3{X: -1, Y: 70, Z: 15}.ToChunkCoords())
	assert.Equal(t, Vec2{X: 2, Z: -2}, Vec3{X: 32, Y: 0, Z: -17}.ToChunkCoords())
	assert.Equal(t, Vec2{X: 15, Z: 1}, Vec2{X: -1, Z: 17}.LocalInChunk())
}

func TestVec2_DistanceSq(t *testing.T) {
	assert.Equal(t, 25, Vec2{X: 0, Z: 0}.DistanceSq(Vec2{X: 3, Z: 4}))
	assert.Equal(t, 3, Vec3{}.DistanceSq(Vec3{X: 1, Y: 1, Z: 1}))
}
