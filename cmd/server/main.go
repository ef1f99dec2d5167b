package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/radzone/internal/api"
	"github.com/annel0/radzone/internal/app"
	"github.com/annel0/radzone/internal/auth"
	"github.com/annel0/radzone/internal/config"
	"github.com/annel0/radzone/internal/eventbus"
	"github.com/annel0/radzone/internal/logging"
	"github.com/annel0/radzone/internal/observability"
	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/registry"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $RADZONE_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.Init(cfg.LoggingOptions()); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config) error {
	logging.Info("☢️ Запуск radzone: мир %s, потолок радиуса %d", cfg.World.ID, cfg.Region.MaxRange)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("телеметрия: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("⚠️ Остановка телеметрии: %v", err)
		}
	}()

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	w, err := app.OpenWorld(cfg.World, app.WorldOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(context.Background()); err != nil {
			logging.Error("❌ Сохранение мира: %v", err)
		}
	}()

	reg, err := registry.Open(cfg)
	if err != nil {
		return err
	}
	defer reg.Close()

	bus, err := app.NewBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(bus); err != nil {
		return fmt.Errorf("логирование событий: %w", err)
	}
	exporter, err := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("метрики шины: %w", err)
	}
	exporter.Start()
	defer exporter.Stop()

	synthMetrics, err := region.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("метрики синтеза: %w", err)
	}

	synth, err := region.NewSynthesizer(region.Options{
		WorldID:         cfg.World.ID,
		Sampler:         w,
		MaxRangeCeiling: cfg.Region.MaxRange,
		Registry:        reg,
		Bus:             bus,
		Metrics:         synthMetrics,
		NamePrefix:      cfg.Region.NamePrefix,
		DefaultLevel:    cfg.Region.DefaultLevel,
	})
	if err != nil {
		return err
	}

	var tokens *auth.TokenManager
	if cfg.Auth.JWTSecret != "" {
		tokens, err = auth.NewTokenManager(cfg.Auth.JWTSecret, 0)
		if err != nil {
			return fmt.Errorf("auth.jwt_secret: %w", err)
		}
		logging.Info("🔐 JWT авторизация изменяющих запросов включена")
	} else {
		logging.Warn("⚠️ auth.jwt_secret не задан: изменяющие запросы без авторизации")
	}

	webhooks := api.NewWebhookManager(10 * time.Second)
	defer webhooks.Close()
	if err := webhooks.Attach(ctx, bus); err != nil {
		return fmt.Errorf("webhooks: %w", err)
	}

	restServer, err := api.NewRestServer(api.Config{
		Addr:     fmt.Sprintf(":%d", cfg.Server.RESTPort),
		Synth:    synth,
		Registry: reg,
		Bus:      bus,
		Tokens:   tokens,
		Webhooks: webhooks,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- restServer.Start() }()

	var metricsServer *http.Server
	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort != cfg.Server.RESTPort {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logging.Info("📈 Метрики Prometheus на %s/metrics", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("сервер метрик: %w", err)
			}
		}()
	}

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost:%d", cfg.Server.RESTPort)
	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.RESTPort)
	logging.Info("💡 curl -X POST http://localhost:%d/api/regions/irradiate -d '{\"args\":\"0 70 0 16\"}'", cfg.Server.RESTPort)

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения, остановка...")
	case runErr = <-errCh:
		logging.Error("❌ Сервер остановился: %v", runErr)
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
		}
	}
	return runErr
}
