package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolidity(t *testing.T) {
	open := []ID{Air, Water, Lava}
	solid := []ID{Stone, Grass, Sand, Dirt, Bedrock, Log, Concrete}

	for _, id := range open {
		assert.False(t, IsSolid(id), "блок %d должен пропускать заливку", id)
	}
	for _, id := range solid {
		assert.True(t, IsSolid(id), "блок %d должен быть твёрдым", id)
	}
	assert.True(t, IsSolid(ID(60000)), "неизвестный блок считается твёрдым")
}

func TestRegisterAndByName(t *testing.T) {
	const glass ID = 500
	assert.False(t, IsValid(glass))

	Register(glass, Properties{Name: "glass", Solid: true})
	t.Cleanup(func() {
		mu.Lock()
		delete(registry, glass)
		mu.Unlock()
	})

	id, ok := ByName("glass")
	assert.True(t, ok)
	assert.Equal(t, glass, id)
	assert.True(t, IsSolid(glass))

	_, ok = ByName("нет такого")
	assert.False(t, ok)
}
