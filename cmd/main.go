package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"climate_bridge/internal/broadcast"
	"climate_bridge/internal/handlers"
	"climate_bridge/internal/logger"
	"climate_bridge/internal/repository"
	"climate_bridge/internal/server"
	"climate_bridge/internal/service"
	"climate_bridge/internal/vendorapi"

	"github.com/spf13/viper"
)

func main() {
	// load config.yml first so the log level is honored
	if err := loadConfig(); err != nil {
		fallback := logger.Get(logger.InfoLevel)
		fallback.Fatalw("error reading config", "err", err)
	}

	log := logger.Get(viper.GetString("log.level"))

	// open DB
	db, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// vendor client pool: one client with one cached token per account
	pool, err := newVendorPool(log)
	if err != nil {
		log.Fatalw("invalid vendor configuration", "err", err)
	}

	// wire dependencies
	hub := broadcast.New(log)
	repos := repository.NewRepository(db)
	services := service.NewService(repos, pool, hub, log)
	apiHandler := handlers.NewHandler(services, hub, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(srv, hub, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// newVendorPool builds the shared vendor client pool from configuration.
// A malformed timeout is a startup failure, not a per-request surprise.
func newVendorPool(log *logger.Logger) (*vendorapi.Pool, error) {
	timeout := viper.GetDuration("vendor.timeout")
	if timeout == 0 {
		timeout = vendorapi.DefaultTimeout
		log.Infow("vendor.timeout not set in config; using default", "default", timeout)
	}
	return vendorapi.NewPool(vendorapi.Config{
		BaseURL: viper.GetString("vendor.base_url"),
		Timeout: timeout,
		TokenFields: map[string]any{
			"os":  "climate_bridge",
			"app": "climate_bridge/1.0",
		},
		Log: log,
	})
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return repository.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, hub *broadcast.Hub, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// drop subscribers first so their handlers unblock
	hub.CloseAll()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
