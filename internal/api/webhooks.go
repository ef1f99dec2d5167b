package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/radzone/internal/eventbus"
	"github.com/annel0/radzone/internal/logging"
)

// SignatureHeader заголовок с HMAC подписью тела
const SignatureHeader = "X-Webhook-Signature"

// Ограничения повторных попыток доставки
const (
	defaultWebhookRetries = 3
	maxWebhookRetries     = 10
)

// OutboundWebhook исходящий webhook, получающий события регионов
type OutboundWebhook struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name" binding:"required"`
	URL          string     `json:"url" binding:"required,url"`
	Secret       string     `json:"secret,omitempty"`
	Events       []string   `json:"events"` // пусто или "*" - все события
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	FailureCount int        `json:"failure_count"`
}

func (w *OutboundWebhook) subscribed(eventType string) bool {
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

type delivery struct {
	hook  *OutboundWebhook
	event *eventbus.Envelope
}

// WebhookManager пересылает события шины во внешние HTTP-приёмники
type WebhookManager struct {
	mu       sync.RWMutex
	webhooks map[uint64]*OutboundWebhook
	nextID   uint64

	queue      chan delivery
	ctx        context.Context // отменяется в Close, прерывает доставку и паузы
	cancel     context.CancelFunc
	httpClient *http.Client
	retryDelay time.Duration
	sub        eventbus.Subscription
	closed     bool
	wg         sync.WaitGroup
	closeOnce  sync.Once
	logger     *logging.Logger
}

// NewWebhookManager создаёт менеджер и запускает воркера доставки
func NewWebhookManager(timeout time.Duration) *WebhookManager {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &WebhookManager{
		ctx:        ctx,
		cancel:     cancel,
		webhooks:   make(map[uint64]*OutboundWebhook),
		nextID:     1,
		queue:      make(chan delivery, 256),
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: time.Second,
		logger:     logging.GetComponentLogger("webhooks"),
	}
	m.wg.Add(1)
	go m.worker()
	return m
}

// Attach подписывает менеджер на все события шины
func (m *WebhookManager) Attach(ctx context.Context, bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(ctx, eventbus.Filter{}, func(_ context.Context, ev *eventbus.Envelope) {
		m.Dispatch(ev)
	})
	if err != nil {
		return err
	}
	m.sub = sub
	return nil
}

// Add регистрирует webhook
func (m *WebhookManager) Add(hook OutboundWebhook) *OutboundWebhook {
	m.mu.Lock()
	defer m.mu.Unlock()

	hook.ID = m.nextID
	m.nextID++
	hook.CreatedAt = time.Now().UTC()
	switch {
	case hook.RetryCount <= 0:
		hook.RetryCount = defaultWebhookRetries
	case hook.RetryCount > maxWebhookRetries:
		hook.RetryCount = maxWebhookRetries
	}
	m.webhooks[hook.ID] = &hook
	cp := hook
	return &cp
}

// List возвращает копии webhook'ов, отсортированные по ID
func (m *WebhookManager) List() []OutboundWebhook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]OutboundWebhook, 0, len(m.webhooks))
	for _, h := range m.webhooks {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete удаляет webhook
func (m *WebhookManager) Delete(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.webhooks[id]; !ok {
		return false
	}
	delete(m.webhooks, id)
	return true
}

// Dispatch ставит событие в очередь для подписанных webhook'ов
func (m *WebhookManager) Dispatch(ev *eventbus.Envelope) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}

	for _, hook := range m.webhooks {
		if !hook.subscribed(ev.EventType) {
			continue
		}
		select {
		case m.queue <- delivery{hook: hook, event: ev}:
		default:
			m.logger.Warn("⚠️ Очередь webhook'ов переполнена, событие %s для %s пропущено", ev.EventType, hook.Name)
		}
	}
}

func (m *WebhookManager) worker() {
	defer m.wg.Done()
	for d := range m.queue {
		m.deliver(d)
	}
}

func (m *WebhookManager) deliver(d delivery) {
	if m.ctx.Err() != nil {
		return
	}

	m.mu.RLock()
	name, url, secret, retries := d.hook.Name, d.hook.URL, d.hook.Secret, d.hook.RetryCount
	m.mu.RUnlock()

	body, err := json.Marshal(d.event)
	if err != nil {
		m.logger.Error("❌ Ошибка маршалинга события для webhook %s: %v", name, err)
		return
	}

	var lastErr error
	success := false
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * m.retryDelay):
			case <-m.ctx.Done():
				m.logger.Warn("⚠️ Доставка %s в webhook %s прервана остановкой", d.event.EventType, name)
				return
			}
		}
		if lastErr = m.post(m.ctx, url, secret, d.event.EventType, body); lastErr == nil {
			success = true
			break
		}
		if m.ctx.Err() != nil {
			m.logger.Warn("⚠️ Доставка %s в webhook %s прервана остановкой", d.event.EventType, name)
			return
		}
		m.logger.Warn("⚠️ Попытка %d/%d для webhook %s: %v", attempt+1, retries+1, name, lastErr)
	}

	m.mu.Lock()
	now := time.Now().UTC()
	d.hook.LastUsed = &now
	if !success {
		d.hook.FailureCount++
	}
	m.mu.Unlock()

	if success {
		m.logger.Debug("✅ Событие %s отправлено в webhook %s", d.event.EventType, name)
	} else {
		m.logger.Error("❌ Webhook %s не принял событие %s: %v", name, d.event.EventType, lastErr)
	}
}

var errBadStatus = errors.New("webhook вернул неуспешный статус")

func (m *WebhookManager) post(ctx context.Context, url, secret, eventType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "radzone/"+Version)
	req.Header.Set("X-Event-Type", eventType)
	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, secret))
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Join(errBadStatus, errors.New(resp.Status))
	}
	return nil
}

// Sign HMAC-SHA256 подпись тела в формате "sha256=<hex>"
func Sign(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Close отписывается от шины, прерывает текущие доставки и отбрасывает очередь
func (m *WebhookManager) Close() {
	m.closeOnce.Do(func() {
		if m.sub != nil {
			m.sub.Unsubscribe()
		}
		m.mu.Lock()
		m.closed = true
		close(m.queue)
		m.mu.Unlock()
		m.cancel()
		m.wg.Wait()
	})
}

func (rs *RestServer) handleListWebhooks(c *gin.Context) {
	hooks := rs.webhooks.List()
	for i := range hooks {
		hooks[i].Secret = ""
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список webhook'ов",
		Data:    gin.H{"webhooks": hooks, "total": len(hooks)},
	})
}

func (rs *RestServer) handleCreateWebhook(c *gin.Context) {
	var hook OutboundWebhook
	if err := c.ShouldBindJSON(&hook); err != nil {
		respondError(c, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	created := rs.webhooks.Add(hook)
	created.Secret = ""
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Webhook создан",
		Data:    created,
	})
}

func (rs *RestServer) handleDeleteWebhook(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Неверный ID webhook'а")
		return
	}
	if !rs.webhooks.Delete(id) {
		respondError(c, http.StatusNotFound, "Webhook не найден")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Webhook удален"})
}
