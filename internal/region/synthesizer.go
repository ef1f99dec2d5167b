package region

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/radzone/internal/eventbus"
	"github.com/annel0/radzone/internal/floodfill"
	"github.com/annel0/radzone/internal/geometry"
	"github.com/annel0/radzone/internal/logging"
	"github.com/annel0/radzone/internal/vec"
)

// Registrar принимает готовое определение региона
type Registrar interface {
	AddPolygonalRegion(ctx context.Context, def Definition) error
}

// RegistrarFunc адаптер функции к Registrar
type RegistrarFunc func(ctx context.Context, def Definition) error

func (f RegistrarFunc) AddPolygonalRegion(ctx context.Context, def Definition) error {
	return f(ctx, def)
}

// Request запрос на построение зоны
type Request struct {
	Origin vec.Vec3 `json:"origin"`
	Radius int      `json:"radius"`
	// Level уровень радиации; 0 - значение по умолчанию
	Level float64 `json:"level"`
	// Name имя региона; пустое - сгенерировать
	Name string `json:"name"`
}

// Options зависимости синтезатора
type Options struct {
	WorldID         string
	Sampler         floodfill.Sampler
	MaxRangeCeiling int
	Registry        Registrar
	Bus             eventbus.EventBus // nil - без событий
	Metrics         *Metrics          // nil - без метрик
	NamePrefix      string
	DefaultLevel    float64
	Now             func() time.Time
}

// Synthesizer строит радиационную зону: заливка, оболочка, сборка, регистрация.
// Запуски в одном мире выполняются последовательно.
type Synthesizer struct {
	worldID      string
	engine       *floodfill.Engine
	registry     Registrar
	bus          eventbus.EventBus
	metrics      *Metrics
	namePrefix   string
	defaultLevel float64
	now          func() time.Time

	mu     sync.Mutex
	tracer trace.Tracer
	logger *logging.Logger
}

// NewSynthesizer создаёт синтезатор
func NewSynthesizer(opts Options) (*Synthesizer, error) {
	if opts.WorldID == "" {
		return nil, errors.New("не задан мир")
	}
	if opts.Sampler == nil {
		return nil, errors.New("не задан источник вокселей")
	}
	if opts.Registry == nil {
		return nil, errors.New("не задан реестр регионов")
	}
	if opts.NamePrefix == "" {
		opts.NamePrefix = "radiation"
	}
	if opts.DefaultLevel <= 0 {
		opts.DefaultLevel = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Synthesizer{
		worldID:      opts.WorldID,
		engine:       floodfill.NewEngine(opts.Sampler, opts.MaxRangeCeiling),
		registry:     opts.Registry,
		bus:          opts.Bus,
		metrics:      opts.Metrics,
		namePrefix:   opts.NamePrefix,
		defaultLevel: opts.DefaultLevel,
		now:          opts.Now,
		tracer:       otel.Tracer("github.com/annel0/radzone/internal/region"),
		logger:       logging.GetComponentLogger("region"),
	}, nil
}

// WorldID возвращает мир синтезатора
func (s *Synthesizer) WorldID() string { return s.worldID }

// MaxRange возвращает потолок радиуса
func (s *Synthesizer) MaxRange() int { return s.engine.Ceiling() }

// Validate проверяет запрос до запуска заливки
func (s *Synthesizer) Validate(req Request) error {
	if req.Radius < 1 {
		return NewInputError("radius", "Радиус должен быть больше 0")
	}
	if req.Radius > s.engine.Ceiling() {
		return NewInputError("radius", fmt.Sprintf("Радиус не может превышать %d", s.engine.Ceiling()))
	}
	if req.Level < 0 {
		return NewInputError("level", "Уровень радиации не может быть отрицательным")
	}
	if math.IsNaN(req.Level) || math.IsInf(req.Level, 0) {
		return NewInputError("level", "Уровень радиации должен быть конечным числом")
	}
	if strings.ContainsAny(req.Name, "/ \t\n") {
		return NewInputError("name", "Имя региона не может содержать пробелы и '/'")
	}
	return nil
}

// Synthesize строит зону и регистрирует её. При любой ошибке регион не регистрируется.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Definition, error) {
	return s.run(ctx, req, true)
}

// Plan строит зону без регистрации
func (s *Synthesizer) Plan(ctx context.Context, req Request) (Definition, error) {
	return s.run(ctx, req, false)
}

func (s *Synthesizer) run(ctx context.Context, req Request, register bool) (Definition, error) {
	ctx, span := s.tracer.Start(ctx, "region.synthesize", trace.WithAttributes(
		attribute.String("world", s.worldID),
		attribute.Int("radius", req.Radius),
		attribute.Bool("register", register),
	))
	defer span.End()

	start := time.Now()
	def, err := s.build(ctx, req, register)

	result := classify(def, err)
	s.metrics.observe(result, def, time.Since(start))
	span.SetAttributes(attribute.String("result", result))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Definition{}, err
	}
	span.SetAttributes(
		attribute.Int("open_voxels", def.Volume),
		attribute.Int("hull_points", len(def.Polygon)),
	)
	return def, nil
}

func classify(def Definition, err error) string {
	switch {
	case err == nil && def.Degenerate():
		return ResultDegenerate
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrInvalidInput):
		return ResultInvalid
	case errors.Is(err, ErrEmptyRegion):
		return ResultEmpty
	default:
		return ResultError
	}
}

func (s *Synthesizer) build(ctx context.Context, req Request, register bool) (Definition, error) {
	if err := s.Validate(req); err != nil {
		return Definition{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, stats, err := s.engine.Run(ctx, req.Origin, req.Radius)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Definition{}, ctxErr
		}
		return Definition{}, fmt.Errorf("%w: заливка от %v: %w", ErrCollaborator, req.Origin, err)
	}
	if len(open) == 0 {
		return Definition{}, fmt.Errorf("%w: центр %v твёрдый", ErrEmptyRegion, req.Origin)
	}

	hull := geometry.ConvexHull(geometry.ProjectXZ(open))

	name := req.Name
	if name == "" {
		name = s.newName()
	}
	def, err := Assemble(open, hull, name, s.worldID)
	if err != nil {
		return Definition{}, err
	}
	def.Origin = req.Origin
	def.Radius = req.Radius
	def.Level = req.Level
	if def.Level == 0 {
		def.Level = s.defaultLevel
	}
	def.CreatedAt = s.now().UTC()

	s.logger.Debug("🌊 Заливка от %v: уровней=%d открыто=%d опрошено=%d", req.Origin, stats.Levels, stats.Open, stats.Sampled)

	if def.Degenerate() {
		s.logger.Warn("⚠️ Вырожденная оболочка зоны %s: %d точек", def.Name, len(def.Polygon))
	}

	if !register {
		return def, nil
	}

	if err := s.registry.AddPolygonalRegion(ctx, def); err != nil {
		return Definition{}, fmt.Errorf("%w: регистрация %s: %w", ErrCollaborator, def.Name, err)
	}

	s.logger.Info("☢️ Зона %s зарегистрирована: %d точек, y=[%d..%d], вокселей %d", def.Name, len(def.Polygon), def.MinY, def.MaxY, def.Volume)
	s.publish(ctx, eventbus.TypeRegionCreated, def)

	return def, nil
}

// publish ошибка шины не отменяет регистрацию
func (s *Synthesizer) publish(ctx context.Context, eventType string, def Definition) {
	if s.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventType, "region", def)
	if err != nil {
		s.logger.Error("❌ Событие %s для %s: %v", eventType, def.Name, err)
		return
	}
	ev.CorrelationID = def.Key()
	ev.Metadata["world"] = def.WorldID
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Error("❌ Публикация %s для %s: %v", eventType, def.Name, err)
	}
}

func (s *Synthesizer) newName() string {
	return s.namePrefix + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}
