package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseDeterministicAndBounded(t *testing.T) {
	a := NewNoise(99)
	b := NewNoise(99)

	for i := 0; i < 50; i++ {
		x, y, z := float64(i)*0.37, float64(i)*0.11, float64(i)*0.73
		va := a.Noise2D(x, y)
		assert.Equal(t, va, b.Noise2D(x, y), "одинаковый сид даёт одинаковый шум")
		assert.GreaterOrEqual(t, va, 0.0)
		assert.LessOrEqual(t, va, 1.0)

		v3 := a.Noise3D(x, y, z)
		assert.Equal(t, v3, b.Noise3D(x, y, z))
		assert.GreaterOrEqual(t, v3, 0.0)
		assert.LessOrEqual(t, v3, 1.0)
	}
	assert.Equal(t, int64(99), a.Seed())
}
