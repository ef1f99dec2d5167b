package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	ev, err := NewEnvelope(TypeRegionCreated, "test", map[string]int{"radius": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, TypeRegionCreated, ev.EventType)
	assert.JSONEq(t, `{"radius":3}`, string(ev.Payload))

	other, err := NewEnvelope(TypeRegionCreated, "test", nil)
	require.NoError(t, err)
	assert.NotEqual(t, ev.ID, other.ID, "идентификаторы уникальны")

	_, err = NewEnvelope(TypeRegionCreated, "test", make(chan int))
	assert.Error(t, err)
}

func TestMemoryBusFilterAndOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var got []string
	received := make(chan struct{}, 8)

	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeRegionCreated}}, func(ctx context.Context, ev *Envelope) {
		var name string
		_ = json.Unmarshal(ev.Payload, &name)
		mu.Lock()
		got = append(got, name)
		mu.Unlock()
		received <- struct{}{}
	})
	require.NoError(t, err)

	for _, n := range []string{"a", "b", "c"} {
		ev, err := NewEnvelope(TypeRegionCreated, "test", n)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}
	removed, err := NewEnvelope(TypeRegionRemoved, "test", "x")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), removed))

	for i := 0; i < 3; i++ {
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatal("событие не доставлено")
		}
	}

	require.NoError(t, bus.Close())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, got, "фильтр по типу и порядок публикации")
	assert.Equal(t, uint64(4), bus.Metrics().Published)
	assert.Equal(t, uint64(3), bus.Metrics().Consumed)
}

func TestMemoryBusUnsubscribeAndClose(t *testing.T) {
	bus := NewMemoryBus(4)

	calls := 0
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) { calls++ })
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, err := NewEnvelope(TypeRegionRemoved, "test", "x")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())
	assert.Equal(t, 0, calls)

	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrClosed)
	_, err = bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, bus.Close(), "повторное закрытие безопасно")
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	me, err := NewMetricsExporter(bus, reg)
	require.NoError(t, err)

	ev, err := NewEnvelope(TypeRegionCreated, "test", 1)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Publish(context.Background(), ev))

	prev := me.Collect(Stats{})
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published))

	me.Collect(prev)
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published), "повторный сбор не удваивает счётчик")

	_, err = NewMetricsExporter(bus, reg)
	assert.Error(t, err, "повторная регистрация метрик в том же реестре")
}
