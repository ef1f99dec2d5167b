package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/radzone/internal/command"
	"github.com/annel0/radzone/internal/region"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"неверные аргументы", command.ErrUsage, exitInvalidInput},
		{"обёрнутый неверный уровень", fmt.Errorf("разбор: %w", command.ErrBadLevel), exitInvalidInput},
		{"пустая зона", fmt.Errorf("%w: центр твёрдый", region.ErrEmptyRegion), exitEmptyRegion},
		{"сбой реестра", fmt.Errorf("%w: регистрация", region.ErrCollaborator), exitFailure},
		{"таймаут", context.DeadlineExceeded, exitFailure},
		{"прочее", errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
