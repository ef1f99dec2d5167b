package world

import (
	"math"

	"github.com/annel0/radzone/internal/util"
	"github.com/annel0/radzone/internal/vec"
	"github.com/annel0/radzone/internal/world/block"
)

// Generator строит чанк, которого ещё нет в хранилище
type Generator interface {
	GenerateChunk(coords vec.Vec2, minY, maxY int) *Chunk
}

// Константы генерации ландшафта
const (
	BaseHeightAboveSea = 4    // Средняя высота суши над уровнем моря
	HeightAmplitude    = 24   // Размах холмов
	CaveThreshold      = 0.72 // Выше - пещера
	BeachBand          = 2    // Песок вблизи уровня моря
)

// WorldGenerator генерирует ландшафт мира по шуму Перлина
type WorldGenerator struct {
	Seed       int64   // Сид для генерации шума
	SeaLevel   int     // Ниже - вода
	NoiseScale float64 // Масштаб основного шума (высота)
	CaveScale  float64 // Масштаб шума пещер, 0 отключает пещеры

	height *util.Noise
	caves  *util.Noise
}

// NewWorldGenerator создаёт новый генератор мира
func NewWorldGenerator(seed int64, seaLevel int) *WorldGenerator {
	return &WorldGenerator{
		Seed:       seed,
		SeaLevel:   seaLevel,
		NoiseScale: 0.02, // Настройка сглаженности ландшафта
		CaveScale:  0.08,
		height:     util.NewNoise(seed),
		caves:      util.NewNoise(seed + 42),
	}
}

// SurfaceY возвращает высоту поверхности в колонке
func (wg *WorldGenerator) SurfaceY(x, z int) int {
	n := wg.height.Noise2D(float64(x)*wg.NoiseScale, float64(z)*wg.NoiseScale)
	return wg.SeaLevel + BaseHeightAboveSea + int(math.Round((n-0.5)*2*HeightAmplitude))
}

// GenerateChunk генерирует чанк по его координатам
func (wg *WorldGenerator) GenerateChunk(coords vec.Vec2, minY, maxY int) *Chunk {
	chunk := NewChunk(coords, minY, maxY)

	globalStartX := coords.X * ChunkSize
	globalStartZ := coords.Z * ChunkSize

	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			gx, gz := globalStartX+x, globalStartZ+z
			surface := wg.SurfaceY(gx, gz)

			for y := minY; y < maxY; y++ {
				chunk.fill(x, y, z, wg.blockAt(gx, y, gz, minY, surface))
			}
		}
	}

	return chunk
}

// blockAt выбирает блок для точки колонки
func (wg *WorldGenerator) blockAt(x, y, z, minY, surface int) block.ID {
	switch {
	case y == minY:
		return block.Bedrock
	case y > surface:
		if y <= wg.SeaLevel {
			return block.Water
		}
		return block.Air
	case wg.isCave(x, y, z, minY, surface):
		return block.Air
	case y == surface:
		if surface <= wg.SeaLevel+BeachBand {
			return block.Sand
		}
		return block.Grass
	case y > surface-4:
		return block.Dirt
	default:
		return block.Stone
	}
}

// isCave пещеры не выходят к поверхности и не пробивают бедрок
func (wg *WorldGenerator) isCave(x, y, z, minY, surface int) bool {
	if wg.CaveScale <= 0 || y <= minY+1 || y > surface-5 {
		return false
	}
	n := wg.caves.Noise3D(float64(x)*wg.CaveScale, float64(y)*wg.CaveScale, float64(z)*wg.CaveScale)
	return n > CaveThreshold
}

// FlatGenerator плоский мир: твёрдый грунт до GroundY включительно, выше воздух
type FlatGenerator struct {
	GroundY int
	Ground  block.ID
}

// GenerateChunk генерирует плоский чанк
func (fg FlatGenerator) GenerateChunk(coords vec.Vec2, minY, maxY int) *Chunk {
	chunk := NewChunk(coords, minY, maxY)
	ground := fg.Ground
	if ground == block.Air {
		ground = block.Stone
	}
	for y := minY; y < maxY && y <= fg.GroundY; y++ {
		for z := 0; z < ChunkSize; z++ {
			for x := 0; x < ChunkSize; x++ {
				chunk.fill(x, y, z, ground)
			}
		}
	}
	return chunk
}
