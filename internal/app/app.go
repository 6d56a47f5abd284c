// Package app собирает checkout proxy: HTTP-прокси, метрики и health checks,
// gRPC health service и outbox worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/proxy"
	"github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const readHeaderTimeout = 10 * time.Second

// listeners хранит уже открытые сокеты для трёх серверов.
type listeners struct {
	http    net.Listener
	metrics net.Listener
	grpc    net.Listener
}

func listen(cfg Config) (listeners, error) {
	var (
		ls  listeners
		err error
	)
	if ls.http, err = net.Listen("tcp", cfg.HTTPAddr); err != nil {
		return listeners{}, fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
	}
	if ls.metrics, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
		_ = ls.http.Close()
		return listeners{}, fmt.Errorf("listen metrics %s: %w", cfg.MetricsAddr, err)
	}
	if ls.grpc, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
		_ = ls.http.Close()
		_ = ls.metrics.Close()
		return listeners{}, fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}
	return ls, nil
}

// Run запускает checkout proxy и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ls, err := listen(cfg)
	if err != nil {
		return err
	}
	return serve(ctx, cfg, ls)
}

func serve(ctx context.Context, cfg Config, ls listeners) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		_ = ls.http.Close()
		_ = ls.metrics.Close()
		_ = ls.grpc.Close()
		return err
	}
	defer func() {
		if err := deps.closeFn(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	// ошибка уже залогирована: без брокеров события только логируются
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	storefrontMetrics := metrics.NewStorefrontMetrics()
	outboxMetrics := metrics.NewOutboxMetricsWithRegisterer(prometheus.DefaultRegisterer)

	publisher, dlqPublisher := outboxPublishers(producer, cfg, logger)
	worker := outbox.NewWorker(deps.outboxRepo, publisher,
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithMetrics(outboxMetrics),
		outbox.WithDLQPublisher(dlqPublisher),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)

	checkoutProxy := proxy.New(proxy.Config{
		TargetURL:       cfg.TargetURL,
		AllowedOrigin:   cfg.AllowedOrigin,
		UpstreamTimeout: cfg.UpstreamTimeout,
	},
		proxy.WithOutbox(deps.outboxRepo),
		proxy.WithMetrics(storefrontMetrics),
		proxy.WithLogger(logger.WithField("component", "checkout-proxy")),
	)
	httpSrv := &http.Server{Handler: checkoutProxy.Router(), ReadHeaderTimeout: readHeaderTimeout}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	healthHandler.RegisterChecker("outbox", healthcheck.NewBacklogChecker("outbox", cfg.OutboxMaxPending, outboxBacklog(deps.outboxRepo)))
	metricsSrv := newMetricsServer(healthHandler)

	grpcServer, healthServer := newGRPCServer(logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("checkout proxy слушает %s", ls.http.Addr())
		if err := httpSrv.Serve(ls.http); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("checkout proxy: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("метрики доступны по адресу %s/metrics", ls.metrics.Addr())
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", ls.metrics.Addr(), ls.metrics.Addr(), ls.metrics.Addr())
		if err := metricsSrv.Serve(ls.metrics); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("gRPC сервер слушает %s", ls.grpc.Addr())
		if err := grpcServer.Serve(ls.grpc); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		shutdownHTTP(httpSrv, cfg.ShutdownTimeout, logger)
		stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func outboxBacklog(repo domain.OutboxRepository) func() (int, error) {
	return func() (int, error) {
		stats, err := repo.Stats()
		if err != nil {
			return 0, err
		}
		return stats.PendingCount, nil
	}
}

// newMetricsServer отдаёт /metrics для Prometheus и health checks.
func newMetricsServer(healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	healthHandler.Register(mux)
	return &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
}

func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)
	return grpcServer, healthServer
}

// stopGRPC останавливает gRPC сервер, принудительно по истечении timeout.
func stopGRPC(srv *grpc.Server, timeout time.Duration, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
