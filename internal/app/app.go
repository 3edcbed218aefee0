package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/burgerchain/resto/internal/consistency"
	"github.com/burgerchain/resto/internal/health"
	catalogsvc "github.com/burgerchain/resto/internal/service/catalog"
	"github.com/burgerchain/resto/internal/service/idempotency"
	ordersvc "github.com/burgerchain/resto/internal/service/order"
	httpapi "github.com/burgerchain/resto/internal/transport/http"
	"github.com/burgerchain/resto/internal/version"
)

const (
	shutdownTimeout = 5 * time.Second
	pingTimeout     = 3 * time.Second
)

// Run собирает зависимости и запускает HTTP API вместе со служебным сервером
// метрик. Блокируется до отмены контекста или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	storage, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.close()

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	engine := consistency.New(logger.WithField("component", "consistency"))

	var orderEvents ordersvc.EventPublisher
	var catalogEvents catalogsvc.EventPublisher
	if kafkaProducer != nil {
		orderEvents = kafkaProducer
		catalogEvents = kafkaProducer
	}

	orders := ordersvc.NewService(
		storage.tx,
		storage.timeline,
		engine,
		orderEvents,
		logger.WithField("component", "order-service"),
	)
	catalog := catalogsvc.NewService(
		storage.tx,
		engine,
		catalogEvents,
		logger.WithField("component", "catalog-service"),
	)

	cleanup := idempotency.NewCleanupWorker(
		storage.idem,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
	)
	go cleanup.Run(ctx)

	v, _, _ := version.Info()
	healthHandler := health.NewHandler(v)
	healthHandler.RegisterChecker("storage", storage.checker)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	api := httpapi.NewServer(
		httpapi.Config{Accounts: cfg.BasicAuthAccounts},
		orders,
		catalog,
		storage.idem,
		logger.WithField("component", "http-api"),
	)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
