package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/annel0/radzone/internal/eventbus"
)

const (
	wsSendBuffer   = 64
	wsWriteTimeout = 5 * time.Second
	wsPingPeriod   = 30 * time.Second
)

// handleEventStream транслирует события шины в WebSocket.
// ?types=RegionCreated,RegionRemoved ограничивает типы. Медленный клиент теряет события.
func (rs *RestServer) handleEventStream(c *gin.Context) {
	if rs.bus == nil {
		respondError(c, http.StatusServiceUnavailable, "Шина событий не настроена")
		return
	}

	var filter eventbus.Filter
	if types := c.Query("types"); types != "" {
		filter.Types = strings.Split(types, ",")
	}

	clientIP := c.ClientIP()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan *eventbus.Envelope, wsSendBuffer)
	sub, err := rs.bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case send <- ev:
		default:
			rs.logger.Warn("⚠️ WebSocket клиент %s не успевает, событие %s пропущено", clientIP, ev.ID)
		}
	})
	if err != nil {
		rs.logger.Error("❌ Подписка WebSocket: %v", err)
		respondError(c, http.StatusServiceUnavailable, "Шина событий недоступна")
		return
	}
	defer sub.Unsubscribe()

	// Подписка до upgrade: события после рукопожатия не теряются
	conn, err := rs.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rs.logger.Debug("WebSocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	rs.logger.Info("🔌 WebSocket клиент подключён: %s", clientIP)

	// Читатель нужен для обработки close/pong от клиента
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			rs.logger.Info("🔌 WebSocket клиент отключён: %s", clientIP)
			return
		case ev := <-send:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
