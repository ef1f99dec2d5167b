// Команда irradiate строит радиационную зону офлайн по сохранённому миру
// и печатает определение региона в JSON.
//
//	irradiate [-config radzone.yaml] [-register] [-flat 64] <x> <y> <z> <radius> [level]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/annel0/radzone/internal/app"
	"github.com/annel0/radzone/internal/command"
	"github.com/annel0/radzone/internal/config"
	"github.com/annel0/radzone/internal/logging"
	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/registry"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML конфигурации (по умолчанию $RADZONE_CONFIG)")
		register   = flag.Bool("register", false, "зарегистрировать зону в настроенном реестре")
		flat       = flag.Int("flat", -1, "плоский мир с грунтом до указанной высоты вместо ландшафта")
		name       = flag.String("name", "", "имя региона (по умолчанию генерируется)")
		timeout    = flag.Duration("timeout", 30*time.Second, "ограничение времени построения")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Использование: %s [флаги] %s\n", os.Args[0], command.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	os.Exit(run(*configPath, *register, *flat, *name, *timeout, flag.Args()))
}

// Коды выхода
const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitEmptyRegion  = 3
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, region.ErrInvalidInput):
		return exitInvalidInput
	case errors.Is(err, region.ErrEmptyRegion):
		return exitEmptyRegion
	default:
		return exitFailure
	}
}

func run(configPath string, register bool, flat int, name string, timeout time.Duration, args []string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ошибка загрузки конфигурации: %v\n", err)
		return 1
	}
	// Вывод команды - JSON в stdout, логи только в файл
	opts := cfg.LoggingOptions()
	opts.Console = false
	if err := logging.Init(opts); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Ошибка инициализации логирования: %v\n", err)
		return 1
	}
	defer logging.CloseDefaultLogger()

	req, err := command.ParseIrradiate(args, cfg.Region.MaxRange)
	if err != nil {
		fmt.Fprintln(os.Stderr, region.UserMessage(err))
		return exitCode(err)
	}
	req.Name = name

	w, err := app.OpenWorld(cfg.World, app.WorldOptions{Flat: flat >= 0, FlatGroundY: flat, Ephemeral: flat >= 0})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	defer w.Close(context.Background())

	var reg registry.Registry = registry.NewMemoryRegistry()
	if register {
		if reg, err = registry.Open(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			return 1
		}
	}
	defer reg.Close()

	synth, err := region.NewSynthesizer(region.Options{
		WorldID:         cfg.World.ID,
		Sampler:         w,
		MaxRangeCeiling: cfg.Region.MaxRange,
		Registry:        reg,
		NamePrefix:      cfg.Region.NamePrefix,
		DefaultLevel:    cfg.Region.DefaultLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var def region.Definition
	if register {
		def, err = synth.Synthesize(ctx, req)
	} else {
		def, err = synth.Plan(ctx, req)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, region.UserMessage(err))
		logging.Error("❌ irradiate %v: %v", args, err)
		return exitCode(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(def); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}
