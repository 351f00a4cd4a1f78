// Dirigent Router — управляет жизненным циклом sessions.
//
// Router:
//   - Получает новые sessions из RabbitMQ (или опросом БД)
//   - Валидирует запрос и собирает реестр агентов
//   - Планирует через оракул и выполняет план по раундам
//   - Анализирует результаты, перепланирует и собирает финальный ответ
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Dirigent/internal/agent"
	"github.com/shaiso/Dirigent/internal/executor"
	"github.com/shaiso/Dirigent/internal/mq"
	"github.com/shaiso/Dirigent/internal/oracle"
	"github.com/shaiso/Dirigent/internal/registry"
	"github.com/shaiso/Dirigent/internal/repo"
	"github.com/shaiso/Dirigent/internal/router"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting dirigent-router")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	sessionRepo := repo.NewSessionRepo(pool)

	// RabbitMQ
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
	}

	// Оракул
	completer, err := oracle.NewClient(oracle.Config{
		Model: os.Getenv("ORACLE_MODEL"),
	})
	if err != nil {
		logger.Error("failed to create oracle client", "error", err)
		os.Exit(1)
	}

	// Discovery агентов
	registryURL := os.Getenv("AGENT_REGISTRY_URL")
	if registryURL == "" {
		registryURL = "http://localhost:2024"
	}
	discovery := registry.NewHTTPDiscovery(registryURL, registry.DefaultDiscoveryTimeout, logger)
	builder := registry.NewBuilder(registry.BuilderConfig{
		Discovery: discovery,
		SelfGraph: os.Getenv("SELF_GRAPH_ID"),
		Logger:    logger,
	})

	// Вызов агентов и планировщик выполнения
	invoker := agent.NewClient(agent.Config{
		BaseURL: registryURL,
		Logger:  logger,
	})
	sched := executor.New(executor.Config{
		Invoker: invoker,
		Logger:  logger,
	})

	// Создаём router
	rtr := router.New(router.Config{
		Store:     sessionRepo,
		Completer: completer,
		Executor:  sched,
		Registry:  builder,
		Conn:      mqConn,
		Scope:     os.Getenv("ROUTER_SCOPE"),
		Logger:    logger,
	})

	// Запускаем router
	if err := rtr.Start(ctx); err != nil {
		logger.Error("failed to start router", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ROUTER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем router
	rtr.Stop()
	logger.Info("dirigent-router stopped")
}
