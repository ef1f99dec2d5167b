package world

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/radzone/internal/vec"
	"github.com/annel0/radzone/internal/world/block"
)

func TestWorldGeneratorDeterministic(t *testing.T) {
	a := NewWorldGenerator(7, 20)
	b := NewWorldGenerator(7, 20)

	coords := vec.Vec2{X: -2, Z: 5}
	ca := a.GenerateChunk(coords, 0, 64)
	cb := b.GenerateChunk(coords, 0, 64)

	for y := 0; y < 64; y++ {
		for z := 0; z < ChunkSize; z++ {
			for x := 0; x < ChunkSize; x++ {
				if ca.Get(x, y, z) != cb.Get(x, y, z) {
					t.Fatalf("генерация недетерминирована в (%d,%d,%d)", x, y, z)
				}
			}
		}
	}
}

func TestWorldGeneratorLayers(t *testing.T) {
	g := NewWorldGenerator(1337, 20)
	c := g.GenerateChunk(vec.Vec2{}, 0, 96)

	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			assert.Equal(t, block.Bedrock, c.Get(x, 0, z), "дно мира - бедрок")

			surface := g.SurfaceY(x, z)
			if surface+1 < 96 {
				above := c.Get(x, surface+1, z)
				assert.False(t, block.IsSolid(above), "над поверхностью воздух или вода")
			}
			if surface > 0 && surface < 96 {
				assert.True(t, block.IsSolid(c.Get(x, surface, z)), "поверхность твёрдая")
			}
		}
	}
}

func TestFlatGenerator(t *testing.T) {
	c := FlatGenerator{GroundY: 2, Ground: block.Dirt}.GenerateChunk(vec.Vec2{X: 1, Z: 1}, 0, 8)
	assert.Equal(t, block.Dirt, c.Get(0, 2, 0))
	assert.Equal(t, block.Air, c.Get(0, 3, 0))
	assert.Equal(t, block.Air, c.Get(0, 100, 0), "вне чанка воздух")

	stone := FlatGenerator{GroundY: 0}.GenerateChunk(vec.Vec2{}, 0, 4)
	assert.Equal(t, block.Stone, stone.Get(5, 0, 5), "грунт по умолчанию - камень")
}
