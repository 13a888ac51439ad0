package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/m04kA/SMC-SaveSync/internal/api"
	"github.com/m04kA/SMC-SaveSync/internal/auth"
	"github.com/m04kA/SMC-SaveSync/internal/config"
	"github.com/m04kA/SMC-SaveSync/internal/connectivity"
	"github.com/m04kA/SMC-SaveSync/internal/infra/kvstore"
	"github.com/m04kA/SMC-SaveSync/internal/infra/storage/durablelog"
	providerRepo "github.com/m04kA/SMC-SaveSync/internal/infra/storage/provider"
	"github.com/m04kA/SMC-SaveSync/internal/integrations/healthcheck"
	gatewayService "github.com/m04kA/SMC-SaveSync/internal/service/gateway"
	"github.com/m04kA/SMC-SaveSync/internal/service/savequeue"
	"github.com/m04kA/SMC-SaveSync/pkg/dbmetrics"
	"github.com/m04kA/SMC-SaveSync/pkg/logger"
	"github.com/m04kA/SMC-SaveSync/pkg/metrics"
	"github.com/m04kA/SMC-SaveSync/pkg/tracing"
	"github.com/m04kA/SMC-SaveSync/pkg/txmanager"
)

// NewServeCommand запуск HTTP-сервиса
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Run the save queue service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Загружаем конфигурацию
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	log.Info("Starting SMC-SaveSync...")
	log.Info("Configuration loaded from %s", opts.ConfigPath)

	// Трейсинг
	shutdownTracing, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.Enabled)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("Failed to flush traces: %v", err)
		}
	}()

	// Метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})
	defer close(stopMetricsCh)

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Без базы сервис всё равно стартует: записи подождут в очереди
	if err := db.PingContext(ctx); err != nil {
		log.Warn("Database is unreachable, starting offline: %v", err)
	} else {
		log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	}

	wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
	txMgr := txmanager.NewTransactionManager(wrappedDB)

	// Сервис применения изменений
	session := auth.NewSession()
	providerRepository := providerRepo.NewRepository(wrappedDB)
	gatewaySvc := gatewayService.NewService(providerRepository, session, txMgr, log)

	// Локальный журнал очереди
	store, err := kvstore.Open(cfg.Storage, log.Slog())
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage: %v", err)
		}
	}()
	journal := durablelog.New(store, cfg.Storage.Key, log)
	log.Info("Save journal opened (driver=%s, path=%s, key=%s)", cfg.Storage.Driver, cfg.Storage.Path, journal.Key())

	// Связь с backend
	var pinger connectivity.Pinger = connectivity.PingerFunc(wrappedDB.PingContext)
	if cfg.Connectivity.HealthURL != "" {
		pinger = healthcheck.NewClient(cfg.Connectivity.HealthURL, cfg.Connectivity.HeartbeatTimeout(), log)
		log.Info("Connectivity heartbeat uses health endpoint %s", cfg.Connectivity.HealthURL)
	}
	sw := connectivity.NewSwitch(false)
	heartbeat := connectivity.NewHeartbeat(sw, pinger, cfg.Connectivity.HeartbeatInterval(), cfg.Connectivity.HeartbeatTimeout(), log)

	// Менеджер сохранений
	managerOpts := []savequeue.ManagerOption{
		savequeue.WithMaxRetries(cfg.SaveQueue.MaxRetries),
		savequeue.WithBackoff(savequeue.Backoff{
			Base:   cfg.SaveQueue.BaseDelay(),
			Max:    cfg.SaveQueue.MaxDelay(),
			Jitter: cfg.SaveQueue.Jitter,
		}),
		savequeue.WithInterRecordDelay(cfg.SaveQueue.InterRecordDelay()),
		savequeue.WithAttemptTimeout(cfg.SaveQueue.AttemptTimeout()),
		savequeue.WithDrainInterval(cfg.SaveQueue.DrainInterval()),
	}
	if metricsCollector != nil {
		managerOpts = append(managerOpts, savequeue.WithRecorder(metrics.NewSaveQueueRecorder(metricsCollector)))
	}
	manager := savequeue.NewManager(gatewaySvc, journal, sw, log, managerOpts...)

	// Первая проба до Start: стартовый проход сразу видит реальное состояние связи
	heartbeat.Check(ctx)
	manager.Start(ctx)
	heartbeat.Start(ctx)

	router := api.NewRouter(api.Deps{
		Manager:     manager,
		Switch:      sw,
		Session:     session,
		Metrics:     metricsCollector,
		MetricsPath: cfg.Metrics.Path,
	}, log)

	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Ожидаем сигнал завершения или падение сервера
	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	heartbeat.Stop()
	manager.Stop()
	log.Info("Save queue stopped, %d saves left in journal", manager.Len())

	log.Info("Server stopped gracefully")
	return runErr
}
