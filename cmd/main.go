package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cantina/internal/catalog"
	"cantina/internal/config"
	"cantina/internal/database"
	"cantina/internal/events"
	"cantina/internal/logger"
	"cantina/internal/order"
	"cantina/internal/receipt"
	"cantina/internal/server"
)

func main() {
	var (
		configPath     = flag.String("config", "config.yaml", "Path to configuration file")
		port           = flag.Int("port", 0, "HTTP port (overrides config)")
		migrationsPath = flag.String("migrations", "migrations", "Path to SQL migrations")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log := logger.New("table-service")
	requestID := logger.GenerateRequestID()

	log.Info("service_started", requestID, fmt.Sprintf("Starting table-service on port %d", cfg.Server.Port))

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", requestID, "Received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg, log, *migrationsPath); err != nil {
		log.Error("service_failed", requestID, "Table service failed", err)
		os.Exit(1)
	}

	log.Info("service_stopped", requestID, "Service stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, migrationsPath string) error {
	requestID := logger.GenerateRequestID()

	// Total inability to connect halts before any workflow begins.
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", requestID, "Connected to PostgreSQL database")

	if err := db.RunMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Order lifecycle events are optional; without a broker they are dropped.
	var publisher order.EventPublisher = order.NopPublisher{}
	if cfg.EventsEnabled() {
		conn, err := events.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize messaging: %w", err)
		}
		defer conn.Close()

		log.Info("rabbitmq_connected", requestID, "Connected to RabbitMQ")
		publisher = events.NewPublisher(conn, log)
	}

	renderer, err := receipt.NewRenderer(cfg.Receipt.Encoding)
	if err != nil {
		return fmt.Errorf("failed to initialize receipt renderer: %w", err)
	}

	catalogSvc := catalog.NewService(
		catalog.NewPostgresStore(db),
		time.Duration(cfg.Catalog.TTLSeconds)*time.Second,
		log,
	)
	orderSvc := order.NewService(order.NewPostgresStore(db), publisher, log)
	handler := server.NewHandler(catalogSvc, orderSvc, renderer, cfg.Receipt.Venue, db, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.SetupRoutes(),
	}

	go func() {
		log.Info("server_listening", requestID, fmt.Sprintf("Table service listening on port %d", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", requestID, "HTTP server failed", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
