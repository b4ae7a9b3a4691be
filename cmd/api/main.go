package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pratik-mahalle/jobtrail/internal/api/handlers"
	"github.com/pratik-mahalle/jobtrail/internal/api/router"
	"github.com/pratik-mahalle/jobtrail/internal/archive"
	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/validator"
	"github.com/pratik-mahalle/jobtrail/internal/providers"
	"github.com/pratik-mahalle/jobtrail/internal/repository/postgres"
	"github.com/pratik-mahalle/jobtrail/internal/services"
	"github.com/pratik-mahalle/jobtrail/internal/worker"
	"github.com/pratik-mahalle/jobtrail/migrations"
)

// @title jobtrail billing API
// @version 1.0
// @description Subscription checkout, pay-what-you-want grants and entitlement reconciliation
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	if err := run(cfg, log); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	applied, err := postgres.RunMigrations(db, migrations.GetFS())
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Infof("Database ready (%s, %d migrations applied)", cfg.Database.Driver, applied)

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	eventLog := postgres.NewBillingEventRepository(db)

	archiver, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("init payload archive: %w", err)
	}

	// Services
	gateway := providers.NewGateway(cfg.Billing, log)
	userService := services.NewUserService(userRepo, log)
	reconciler := services.NewBillingService(userRepo, cfg.Billing, log)
	customers := services.NewCustomerService(userRepo, gateway, log)
	checkout := services.NewCheckoutService(userRepo, gateway, customers, reconciler, cfg.Billing, log)

	if !cfg.Billing.PaymentsEnabled {
		log.Warn("Payments are disabled: checkout endpoints answer PAYMENTS_DISABLED and webhooks are acknowledged without processing")
	}

	val := validator.New()
	h := &router.Handlers{
		Health:  handlers.NewHealthHandler(db, cfg.Billing.PaymentsEnabled, log),
		User:    handlers.NewUserHandler(userService, log, val),
		Billing: handlers.NewBillingHandler(userService, checkout, reconciler, cfg.Server.PublicBaseURL, log, val),
		Webhook: handlers.NewWebhookHandler(gateway, reconciler, eventLog, archiver, cfg.Billing, log),
		Premium: userService,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var wg sync.WaitGroup
	if cfg.Billing.PaymentsEnabled {
		syncer := worker.NewSubscriptionSyncer(userRepo, gateway, reconciler, cfg.Billing.SyncSchedule, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := syncer.Start(ctx); err != nil {
				log.ErrorWithErr(err, "Subscription sync worker failed to start")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			stop()
			wg.Wait()
			return err
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "Graceful shutdown failed")
	}
	wg.Wait()

	log.Info("Server stopped")
	return nil
}
