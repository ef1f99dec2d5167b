// Package api HTTP-поверхность сервиса: запуск синтеза зон, просмотр и удаление
// регионов, поток событий по WebSocket, метрики и состояние сервера.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/radzone/internal/auth"
	"github.com/annel0/radzone/internal/eventbus"
	"github.com/annel0/radzone/internal/logging"
	"github.com/annel0/radzone/internal/middleware"
	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/registry"
)

// Version версия API в /api/server
const Version = "v0.3.0"

// RestServer представляет REST API сервер
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server

	synth    *region.Synthesizer
	registry registry.Registry
	bus      eventbus.EventBus
	tokens   *auth.TokenManager
	webhooks *WebhookManager

	metrics  *ServerMetrics
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// Config зависимости REST сервера
type Config struct {
	Addr      string              // адрес для запуска сервера, ":8088"
	Synth     *region.Synthesizer // синтезатор зон
	Registry  registry.Registry   // реестр регионов
	Bus       eventbus.EventBus   // nil - без событий и /ws/events
	Tokens    *auth.TokenManager  // nil - изменяющие запросы без авторизации
	Webhooks  *WebhookManager     // nil - без исходящих webhook'ов
	Namespace string              // префикс HTTP-метрик
	// Registerer и Gatherer для метрик; nil - глобальный регистр prometheus
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRestServer создаёт REST API сервер
func NewRestServer(cfg Config) (*RestServer, error) {
	if cfg.Synth == nil || cfg.Registry == nil {
		return nil, errors.New("api: synthesizer и registry обязательны")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "radzone"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	router.Use(otelgin.Middleware("radzone_api"))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw, err := middleware.NewPrometheusMiddleware(cfg.Namespace, cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("метрики HTTP: %w", err)
	}
	router.Use(promMw.Handler())
	middleware.RegisterMetricsEndpoint(router, cfg.Gatherer)

	rs := &RestServer{
		router:   router,
		synth:    cfg.Synth,
		registry: cfg.Registry,
		bus:      cfg.Bus,
		tokens:   cfg.Tokens,
		webhooks: cfg.Webhooks,
		metrics:  NewServerMetrics(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logging.GetComponentLogger("api"),
	}
	rs.setupRoutes()

	rs.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return rs, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := rs.router.Group("/api")
	api.GET("/server", rs.handleServerInfo)

	regions := api.Group("/regions")
	{
		regions.GET("", rs.handleListRegions)
		regions.GET("/at", rs.handleRegionsAt)
		regions.GET("/:name", rs.handleGetRegion)
	}

	// Изменяющие эндпоинты требуют токен администратора, если задан секрет
	mutating := regions.Group("")
	admin := api.Group("/admin")
	if rs.tokens != nil {
		mutating.Use(rs.jwtMiddleware(), rs.adminMiddleware())
		admin.Use(rs.jwtMiddleware(), rs.adminMiddleware())
	}
	{
		mutating.POST("/irradiate", rs.handleIrradiate)
		mutating.POST("/plan", rs.handlePlan)
		mutating.DELETE("/:name", rs.handleDeleteRegion)
	}
	if rs.webhooks != nil {
		admin.GET("/webhooks", rs.handleListWebhooks)
		admin.POST("/webhooks", rs.handleCreateWebhook)
		admin.DELETE("/webhooks/:id", rs.handleDeleteWebhook)
	}

	rs.router.GET("/ws/events", rs.handleEventStream)
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{Success: false, Message: message})
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler { return rs.router }

// Start запускает REST сервер и блокируется до Shutdown
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.httpServer.Addr)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно останавливает сервер
func (rs *RestServer) Shutdown(ctx context.Context) error {
	rs.logger.Info("🛑 Остановка REST API")
	return rs.httpServer.Shutdown(ctx)
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}
