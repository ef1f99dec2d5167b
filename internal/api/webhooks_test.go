package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/radzone/internal/eventbus"
)

type received struct {
	mu        sync.Mutex
	bodies    [][]byte
	signature string
	eventType string
}

func newReceiver(t *testing.T, status *int32) (*httptest.Server, *received) {
	t.Helper()
	rec := &received{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, body)
		rec.signature = r.Header.Get(SignatureHeader)
		rec.eventType = r.Header.Get("X-Event-Type")
		rec.mu.Unlock()
		w.WriteHeader(int(atomic.LoadInt32(status)))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func (r *received) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func TestWebhookManager_DeliversSigned(t *testing.T) {
	status := int32(http.StatusOK)
	srv, rec := newReceiver(t, &status)

	m := NewWebhookManager(time.Second)
	defer m.Close()
	m.Add(OutboundWebhook{Name: "ops", URL: srv.URL, Secret: "s3cret", Events: []string{eventbus.TypeRegionCreated}})

	ev, err := eventbus.NewEnvelope(eventbus.TypeRegionCreated, "test", map[string]string{"name": "zone"})
	require.NoError(t, err)
	m.Dispatch(ev)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, Sign(rec.bodies[0], "s3cret"), rec.signature)
	assert.Equal(t, eventbus.TypeRegionCreated, rec.eventType)
}

func TestWebhookManager_FiltersEvents(t *testing.T) {
	status := int32(http.StatusOK)
	srv, rec := newReceiver(t, &status)

	m := NewWebhookManager(time.Second)
	defer m.Close()
	m.Add(OutboundWebhook{Name: "removed-only", URL: srv.URL, Events: []string{eventbus.TypeRegionRemoved}})

	created, err := eventbus.NewEnvelope(eventbus.TypeRegionCreated, "test", nil)
	require.NoError(t, err)
	removed, err := eventbus.NewEnvelope(eventbus.TypeRegionRemoved, "test", nil)
	require.NoError(t, err)
	m.Dispatch(created)
	m.Dispatch(removed)

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, eventbus.TypeRegionRemoved, rec.eventType)
}

func TestWebhookManager_RetriesAndCountsFailures(t *testing.T) {
	status := int32(http.StatusInternalServerError)
	srv, rec := newReceiver(t, &status)

	m := NewWebhookManager(time.Second)
	defer m.Close()
	m.retryDelay = time.Millisecond
	hook := m.Add(OutboundWebhook{Name: "flaky", URL: srv.URL, RetryCount: 2})

	ev, err := eventbus.NewEnvelope(eventbus.TypeRegionCreated, "test", nil)
	require.NoError(t, err)
	m.Dispatch(ev)

	require.Eventually(t, func() bool {
		hooks := m.List()
		return len(hooks) == 1 && hooks[0].FailureCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, rec.count())
	hooks := m.List()
	require.Len(t, hooks, 1)
	assert.Equal(t, hook.ID, hooks[0].ID)
	assert.Equal(t, 1, hooks[0].FailureCount)
	assert.NotNil(t, hooks[0].LastUsed)
}

func TestWebhookManager_RetryCountBounds(t *testing.T) {
	m := NewWebhookManager(time.Second)
	defer m.Close()

	assert.Equal(t, defaultWebhookRetries, m.Add(OutboundWebhook{Name: "a", URL: "http://example.invalid"}).RetryCount)
	assert.Equal(t, 5, m.Add(OutboundWebhook{Name: "b", URL: "http://example.invalid", RetryCount: 5}).RetryCount)
	assert.Equal(t, maxWebhookRetries, m.Add(OutboundWebhook{Name: "c", URL: "http://example.invalid", RetryCount: 1_000_000}).RetryCount)
}

func TestWebhookManager_CloseInterruptsRetryBackoff(t *testing.T) {
	status := int32(http.StatusServiceUnavailable)
	srv, rec := newReceiver(t, &status)

	m := NewWebhookManager(time.Second)
	m.retryDelay = time.Hour
	m.Add(OutboundWebhook{Name: "down", URL: srv.URL, RetryCount: maxWebhookRetries})

	for i := 0; i < 5; i++ {
		ev, err := eventbus.NewEnvelope(eventbus.TypeRegionCreated, "test", nil)
		require.NoError(t, err)
		m.Dispatch(ev)
	}
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close ждёт паузу между попытками")
	}
	assert.Equal(t, 1, rec.count(), "очередь после Close не доставляется")
}

func TestWebhookManager_CloseAbortsHangingRequest(t *testing.T) {
	started := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	m := NewWebhookManager(time.Minute)
	m.Add(OutboundWebhook{Name: "hang", URL: srv.URL})

	ev, err := eventbus.NewEnvelope(eventbus.TypeRegionCreated, "test", nil)
	require.NoError(t, err)
	m.Dispatch(ev)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("запрос не дошёл до приёмника")
	}

	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close ждёт зависший запрос")
	}
}

func TestWebhookManager_AttachToBus(t *testing.T) {
	status := int32(http.StatusNoContent)
	srv, rec := newReceiver(t, &status)

	bus := eventbus.NewMemoryBus(8)
	defer bus.Close()

	m := NewWebhookManager(time.Second)
	defer m.Close()
	require.NoError(t, m.Attach(context.Background(), bus))
	m.Add(OutboundWebhook{Name: "all", URL: srv.URL})

	ev, err := eventbus.NewEnvelope(eventbus.TypeRegionRemoved, "test", nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebhookManager_Delete(t *testing.T) {
	m := NewWebhookManager(time.Second)
	defer m.Close()

	hook := m.Add(OutboundWebhook{Name: "a", URL: "http://example.invalid"})
	assert.True(t, m.Delete(hook.ID))
	assert.False(t, m.Delete(hook.ID))
	assert.Empty(t, m.List())
}

func TestWebhookEndpoints(t *testing.T) {
	env := newTestEnv(t, false)

	w, resp := env.do(t, http.MethodPost, "/api/admin/webhooks", `{"name":"ops","url":"http://127.0.0.1:1/hook","secret":"x"}`, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := resp.Data.(map[string]interface{})
	assert.Nil(t, created["secret"])

	w, resp = env.do(t, http.MethodGet, "/api/admin/webhooks", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, resp.Data.(map[string]interface{})["total"])

	w, _ = env.do(t, http.MethodPost, "/api/admin/webhooks", `{"name":"bad"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/admin/webhooks/1", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/admin/webhooks/1", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodDelete, "/api/admin/webhooks/abc", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
