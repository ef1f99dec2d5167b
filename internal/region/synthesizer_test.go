package region

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/radzone/internal/eventbus"
	"github.com/annel0/radzone/internal/floodfill"
	"github.com/annel0/radzone/internal/geometry"
	"github.com/annel0/radzone/internal/vec"
)

// cavity открытый параллелепипед [lo, hi], всё вокруг твёрдое
type cavity struct {
	lo, hi vec.Vec3
	calls  int
	fail   error
}

func (c *cavity) IsSolid(_ context.Context, p vec.Vec3) (bool, error) {
	c.calls++
	if c.fail != nil {
		return false, c.fail
	}
	inside := p.X >= c.lo.X && p.X <= c.hi.X &&
		p.Y >= c.lo.Y && p.Y <= c.hi.Y &&
		p.Z >= c.lo.Z && p.Z <= c.hi.Z
	return !inside, nil
}

// recorder запоминает зарегистрированные определения
type recorder struct {
	mu   sync.Mutex
	defs []Definition
	fail error
}

func (r *recorder) AddPolygonalRegion(_ context.Context, def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.defs = append(r.defs, def)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.defs)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSynth(t *testing.T, sampler floodfill.Sampler, reg Registrar, opts ...func(*Options)) *Synthesizer {
	t.Helper()
	o := Options{
		WorldID:         "world",
		Sampler:         sampler,
		MaxRangeCeiling: 8,
		Registry:        reg,
		Now:             func() time.Time { return fixedNow },
	}
	for _, f := range opts {
		f(&o)
	}
	s, err := NewSynthesizer(o)
	require.NoError(t, err)
	return s
}

func cube(center vec.Vec3, half int) *cavity {
	return &cavity{
		lo: vec.Vec3{X: center.X - half, Y: center.Y - half, Z: center.Z - half},
		hi: vec.Vec3{X: center.X + half, Y: center.Y + half, Z: center.Z + half},
	}
}

func TestNewSynthesizerValidation(t *testing.T) {
	reg := &recorder{}
	_, err := NewSynthesizer(Options{Sampler: cube(vec.Vec3{}, 1), Registry: reg})
	assert.Error(t, err)
	_, err = NewSynthesizer(Options{WorldID: "w", Registry: reg})
	assert.Error(t, err)
	_, err = NewSynthesizer(Options{WorldID: "w", Sampler: cube(vec.Vec3{}, 1)})
	assert.Error(t, err)
}

func TestSynthesizeCavityRangeOne(t *testing.T) {
	origin := vec.Vec3{X: 0, Y: 10, Z: 0}
	reg := &recorder{}
	s := newTestSynth(t, cube(origin, 1), reg)

	def, err := s.Synthesize(context.Background(), Request{Origin: origin, Radius: 1, Name: "bunker"})
	require.NoError(t, err)

	assert.Equal(t, 7, def.Volume, "центр и шесть соседей по граням")
	assert.LessOrEqual(t, len(def.Polygon), 5)
	want := geometry.Polygon{{X: 0, Z: -1}, {X: 1, Z: 0}, {X: 0, Z: 1}, {X: -1, Z: 0}}
	if diff := cmp.Diff(want, def.Polygon); diff != "" {
		t.Errorf("оболочка (-want +got):\n%s", diff)
	}
	assert.Equal(t, origin.Y-1, def.MinY)
	assert.Equal(t, origin.Y+1, def.MaxY)
	assert.Equal(t, "bunker", def.Name)
	assert.Equal(t, "world", def.WorldID)
	assert.Equal(t, origin, def.Origin)
	assert.Equal(t, 1.0, def.Level, "уровень по умолчанию")
	assert.Equal(t, fixedNow, def.CreatedAt)

	require.Equal(t, 1, reg.count(), "реестр вызывается ровно один раз")
	assert.Equal(t, def, reg.defs[0])
}

func TestSynthesizeIdempotent(t *testing.T) {
	origin := vec.Vec3{X: 5, Y: 40, Z: -3}
	reg := &recorder{}
	s := newTestSynth(t, cube(origin, 2), reg)
	req := Request{Origin: origin, Radius: 3, Level: 2.5, Name: "same"}

	first, err := s.Synthesize(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Synthesize(context.Background(), req)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("повторный запуск дал другой результат (-first +second):\n%s", diff)
	}
	assert.Equal(t, 2.5, first.Level)
	assert.True(t, first.Polygon.IsStrictlyConvex())
}

func TestSynthesizeEmptyRegion(t *testing.T) {
	reg := &recorder{}
	sampler := cube(vec.Vec3{X: 100, Y: 100, Z: 100}, 1)
	s := newTestSynth(t, sampler, reg)

	_, err := s.Synthesize(context.Background(), Request{Origin: vec.Vec3{}, Radius: 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyRegion)
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, 1, sampler.calls, "твёрдый центр опрашивается один раз")
	assert.Zero(t, reg.count())
	assert.Equal(t, UserMessage(ErrEmptyRegion), UserMessage(err))
}

func TestSynthesizeInvalidInput(t *testing.T) {
	reg := &recorder{}
	sampler := cube(vec.Vec3{}, 1)
	s := newTestSynth(t, sampler, reg)

	cases := []Request{
		{Radius: 0},
		{Radius: -3},
		{Radius: 9},
		{Radius: 1, Level: -1},
		{Radius: 1, Level: math.Inf(1)},
		{Radius: 1, Level: math.Inf(-1)},
		{Radius: 1, Level: math.NaN()},
		{Radius: 1, Name: "a b"},
	}
	for _, req := range cases {
		_, err := s.Synthesize(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", req)
		var ie *InputError
		assert.True(t, errors.As(err, &ie))
	}
	assert.Zero(t, sampler.calls, "некорректный запрос не запускает заливку")
	assert.Zero(t, reg.count())
}

func TestSynthesizeDegenerateHullStillRegistered(t *testing.T) {
	origin := vec.Vec3{X: 3, Y: 20, Z: 3}
	shaft := &cavity{lo: vec.Vec3{X: 3, Y: 0, Z: 3}, hi: vec.Vec3{X: 3, Y: 64, Z: 3}}
	reg := &recorder{}
	metricsReg := prometheus.NewRegistry()
	m, err := NewMetrics(metricsReg)
	require.NoError(t, err)

	s := newTestSynth(t, shaft, reg, func(o *Options) { o.Metrics = m })

	def, err := s.Synthesize(context.Background(), Request{Origin: origin, Radius: 4})
	require.NoError(t, err)
	assert.True(t, def.Degenerate())
	assert.Equal(t, geometry.Polygon{{X: 3, Z: 3}}, def.Polygon)
	assert.Equal(t, 16, def.MinY)
	assert.Equal(t, 24, def.MaxY)
	assert.Equal(t, 1, reg.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultDegenerate)))
}

func TestSynthesizeCollaboratorFailures(t *testing.T) {
	origin := vec.Vec3{X: 0, Y: 5, Z: 0}

	t.Run("сбой мира", func(t *testing.T) {
		worldErr := errors.New("чанк недоступен")
		sampler := cube(origin, 1)
		sampler.fail = worldErr
		reg := &recorder{}
		s := newTestSynth(t, sampler, reg)

		_, err := s.Synthesize(context.Background(), Request{Origin: origin, Radius: 2})
		assert.ErrorIs(t, err, ErrCollaborator)
		assert.ErrorIs(t, err, worldErr)
		assert.Zero(t, reg.count())
	})

	t.Run("сбой реестра", func(t *testing.T) {
		storeErr := errors.New("база недоступна")
		reg := &recorder{fail: storeErr}
		bus := eventbus.NewMemoryBus(4)
		defer bus.Close()
		s := newTestSynth(t, cube(origin, 1), reg, func(o *Options) { o.Bus = bus })

		_, err := s.Synthesize(context.Background(), Request{Origin: origin, Radius: 2})
		assert.ErrorIs(t, err, ErrCollaborator)
		assert.ErrorIs(t, err, storeErr)
		assert.Zero(t, bus.Metrics().Published, "событие не публикуется без регистрации")
	})

	t.Run("отмена контекста", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		reg := &recorder{}
		s := newTestSynth(t, cube(origin, 1), reg)

		_, err := s.Synthesize(ctx, Request{Origin: origin, Radius: 2})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, reg.count())
	})
}

func TestPlanDoesNotRegister(t *testing.T) {
	origin := vec.Vec3{X: 0, Y: 5, Z: 0}
	reg := &recorder{}
	s := newTestSynth(t, cube(origin, 1), reg)

	def, err := s.Plan(context.Background(), Request{Origin: origin, Radius: 1})
	require.NoError(t, err)
	assert.Equal(t, 7, def.Volume)
	assert.Zero(t, reg.count())
}

func TestSynthesizePublishesEventAndNames(t *testing.T) {
	origin := vec.Vec3{X: 0, Y: 5, Z: 0}
	bus := eventbus.NewMemoryBus(4)
	defer bus.Close()

	got := make(chan *eventbus.Envelope, 1)
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeRegionCreated}},
		func(ctx context.Context, ev *eventbus.Envelope) { got <- ev })
	require.NoError(t, err)

	s := newTestSynth(t, cube(origin, 1), &recorder{}, func(o *Options) {
		o.Bus = bus
		o.NamePrefix = "fallout"
	})

	def, err := s.Synthesize(context.Background(), Request{Origin: origin, Radius: 1})
	require.NoError(t, err)
	assert.Regexp(t, `^fallout-[0-9a-f]{8}$`, def.Name)

	select {
	case ev := <-got:
		var payload Definition
		require.NoError(t, json.Unmarshal(ev.Payload, &payload))
		assert.Equal(t, def.Name, payload.Name)
		assert.Equal(t, def.Key(), ev.CorrelationID)
	case <-time.After(2 * time.Second):
		t.Fatal("событие RegionCreated не получено")
	}

	other, err := s.Plan(context.Background(), Request{Origin: origin, Radius: 1})
	require.NoError(t, err)
	assert.NotEqual(t, def.Name, other.Name, "сгенерированные имена не совпадают")
}

func TestMetricsCountResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	origin := vec.Vec3{}
	s := newTestSynth(t, cube(origin, 1), &recorder{}, func(o *Options) { o.Metrics = m })

	_, _ = s.Synthesize(context.Background(), Request{Origin: origin, Radius: 1})
	_, _ = s.Synthesize(context.Background(), Request{Origin: origin, Radius: 0})
	_, _ = s.Synthesize(context.Background(), Request{Origin: vec.Vec3{X: 50}, Radius: 1})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(ResultEmpty)))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "повторная регистрация")
}
