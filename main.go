package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appCatalog "github.com/ventamart/orderstock/internal/application/catalog"
	appOrder "github.com/ventamart/orderstock/internal/application/order"
	domorder "github.com/ventamart/orderstock/internal/domain/order"
	domproduct "github.com/ventamart/orderstock/internal/domain/product"
	auditrec "github.com/ventamart/orderstock/internal/infrastructure/audit"
	"github.com/ventamart/orderstock/internal/infrastructure/httpapi"
	"github.com/ventamart/orderstock/internal/infrastructure/id"
	"github.com/ventamart/orderstock/internal/infrastructure/memory"
	"github.com/ventamart/orderstock/internal/infrastructure/mysqlstore"
	infraobs "github.com/ventamart/orderstock/internal/infrastructure/observability"
	"github.com/ventamart/orderstock/internal/infrastructure/observability/oteltrace"
	"github.com/ventamart/orderstock/internal/infrastructure/observability/prometrics"
	"github.com/ventamart/orderstock/internal/infrastructure/observability/zaplogger"
	"github.com/ventamart/orderstock/internal/observability"
	"github.com/ventamart/orderstock/internal/pkg/config"
)

func main() {
	cfg := config.Load()

	logger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)

	registry := prometrics.New(cfg.ServiceName, "")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: registry.Counter(
			observability.MUsecaseRequests,
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MConfirmAttempts: registry.Counter(
			observability.MConfirmAttempts,
			"Order confirmation attempts by outcome.",
			"outcome",
		),
		observability.MAuditRecordsDropped: registry.Counter(
			observability.MAuditRecordsDropped,
			"Audit records dropped because the queue was full.",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: registry.Histogram(
			observability.MUsecaseDuration,
			"Duration of use case execution in seconds.",
			nil,
			"use_case",
		),
	}
	tel := infraobs.New(oteltrace.New(cfg.ServiceName), logger, counters, histograms)

	var (
		orderRepo   domorder.Repository
		productRepo domproduct.Repository
	)
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			logger.Error("mysql_open_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()

		store := mysqlstore.New(db)
		if err := store.Migrate(context.Background()); err != nil {
			logger.Error("mysql_migrate_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		orderRepo = store
		productRepo = store.ProductRepository()
		logger.Info("storage_backend", observability.F("backend", "mysql"))
	} else {
		store := memory.NewStore(cfg.LockWait)
		orderRepo = store
		productRepo = store.ProductRepository()
		logger.Info("storage_backend", observability.F("backend", "memory"))
	}

	recorder := auditrec.NewRecorder(logger, tel.Metrics(), cfg.AuditQueueSize)
	recorder.Start(context.Background())

	idGenerator := id.NewUUIDGenerator()
	customers := memory.NewCustomerDirectory()

	orderService := appOrder.NewService(orderRepo, productRepo, customers, idGenerator, recorder, tel)
	catalogService := appCatalog.NewService(productRepo, idGenerator, recorder, logger)

	handler := httpapi.NewHandler(orderService, catalogService)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err.Error()))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		logger.Info("http_server_stopped")
	}
	recorder.Stop(shutdownCtx)
}
