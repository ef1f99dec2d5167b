// Package command разбирает текстовую команду облучения зоны:
//
//	irradiate <x> <y> <z> <radius> [level]
package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/vec"
)

// Usage строка подсказки
const Usage = "irradiate <x> <y> <z> <radius> [level]"

var (
	// ErrUsage неверное число аргументов
	ErrUsage = region.NewInputError("args", "Необходимо указать координаты и радиус: "+Usage)
	// ErrNotInteger координата или радиус не целое число
	ErrNotInteger = region.NewInputError("args", "Параметры должны быть целыми числами")
	// ErrRadiusNotPositive радиус меньше 1
	ErrRadiusNotPositive = region.NewInputError("radius", "Радиус должен быть больше 0")
	// ErrBadLevel уровень радиации не число или отрицателен
	ErrBadLevel = region.NewInputError("level", "Уровень радиации должен быть неотрицательным конечным числом")
)

// ParseIrradiate проверяет аргументы до любых вычислений.
// ceiling > 0 ограничивает радиус сверху.
func ParseIrradiate(args []string, ceiling int) (region.Request, error) {
	if len(args) < 4 || len(args) > 5 {
		return region.Request{}, ErrUsage
	}

	var ints [4]int
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(args[i]))
		if err != nil {
			return region.Request{}, ErrNotInteger
		}
		ints[i] = n
	}

	radius := ints[3]
	if radius <= 0 {
		return region.Request{}, ErrRadiusNotPositive
	}
	if ceiling > 0 && radius > ceiling {
		return region.Request{}, region.NewInputError("radius", fmt.Sprintf("Радиус не может превышать %d", ceiling))
	}

	req := region.Request{
		Origin: vec.Vec3{X: ints[0], Y: ints[1], Z: ints[2]},
		Radius: radius,
	}

	if len(args) == 5 {
		level, err := strconv.ParseFloat(strings.TrimSpace(args[4]), 64)
		if err != nil || level < 0 || math.IsNaN(level) || math.IsInf(level, 0) {
			return region.Request{}, ErrBadLevel
		}
		req.Level = level
	}

	return req, nil
}

// ParseLine разбирает строку команды; ведущее имя команды необязательно
func ParseLine(line string, ceiling int) (region.Request, error) {
	fields := strings.Fields(line)
	if len(fields) > 0 && strings.EqualFold(strings.TrimPrefix(fields[0], "/"), "irradiate") {
		fields = fields[1:]
	}
	return ParseIrradiate(fields, ceiling)
}
