// Command inventoryd runs the inventory API server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/usos-inventory/server/pkg/api"
	"github.com/usos-inventory/server/pkg/auth"
	"github.com/usos-inventory/server/pkg/config"
	"github.com/usos-inventory/server/pkg/inventory"
	"github.com/usos-inventory/server/pkg/observability"
	"github.com/usos-inventory/server/pkg/storage"
	"github.com/usos-inventory/server/pkg/usos"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "inventoryd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting inventoryd")

	db, err := storage.Connect(storage.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
		Timeout:  cfg.Database.Timeout,
	})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := storage.InitSchema(db); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	usosClient := usos.NewClient(cfg.USOS.ConsumerKey, cfg.USOS.ConsumerSecret,
		cfg.USOS.BaseURL, cfg.USOS.Timeout)

	principals := auth.NewPrincipalStore(db)
	tokens := auth.NewTokenStore(db)
	sessions := auth.NewSessionManager(redisClient, cfg.Auth.SessionTTL, cfg.Auth.StateTTL)
	reconciler := auth.NewReconciler(principals)

	authMiddleware := auth.NewMiddleware(
		auth.NewSessionResolver(sessions, principals),
		auth.NewTokenResolver(tokens),
	)

	server := api.NewServer(cfg, logger, api.Dependencies{
		AuthHandlers: auth.NewHandlers(usosClient, reconciler, sessions, tokens,
			cfg.Auth.BaseURL, cfg.Auth.FrontendURL, metrics),
		UserHandlers:      auth.NewUserHandlers(principals),
		InventoryHandlers: inventory.NewHandlers(inventory.NewService(inventory.NewStore(db))),
		AuthMiddleware:    authMiddleware,
		Metrics:           metrics,
	})

	healthServer := newHealthServer(cfg, db, redisClient, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(server.Start)
	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("starting health server")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		healthServer.Shutdown(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("inventoryd stopped")
	return nil
}

// newHealthServer serves probes and metrics on a separate port so that
// cluster plumbing never competes with API traffic.
func newHealthServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics) *http.Server {
	checker := observability.NewHealthChecker(db, redisClient)

	handler := http.NewServeMux()
	handler.HandleFunc("/healthz", checker.Liveness)
	handler.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		handler.Handle("/metrics", metrics.Handler())
	}

	return &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: handler,
	}
}
