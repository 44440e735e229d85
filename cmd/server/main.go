/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the coin engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional), then YAML config with env overrides
  2. Initialize SQLite store
  3. Wire the ledger, commerce, and games coordinators
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  -config  YAML config path (default: config.yaml, optional)
  -seed    JSON catalog loaded at startup (optional; see factory package)
  Environment overrides: PORT, DB_PATH, PAYMENT_SECRET, AUTH_SECRET,
  SIGNUP_BONUS, TIMEZONE, LOG_LEVEL. Use DB_PATH=":memory:" for an
  in-memory database.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"plaza/coin-engine/api"
	"plaza/coin-engine/commerce"
	"plaza/coin-engine/config"
	"plaza/coin-engine/factory"
	"plaza/coin-engine/games"
	"plaza/coin-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "YAML config path")
	seedPath := flag.String("seed", "", "JSON catalog to load at startup (optional)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	if cfg.PaymentSecret == "" || cfg.AuthSecret == "" {
		log.Fatal("PAYMENT_SECRET and AUTH_SECRET must be set")
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if *seedPath != "" {
		data, err := os.ReadFile(*seedPath)
		if err != nil {
			log.Fatalf("Failed to read seed catalog: %v", err)
		}
		catalog, err := factory.Parse(data)
		if err != nil {
			log.Fatalf("Failed to parse seed catalog: %v", err)
		}
		if err := catalog.Load(context.Background(), store); err != nil {
			log.Fatalf("Failed to load seed catalog: %v", err)
		}
		log.WithField("path", *seedPath).Info("Seed catalog loaded")
	}

	// Wire coordinators
	verifier := &api.HMACVerifier{Secret: cfg.AuthSecret}
	handler := &api.Handler{
		Store:       store,
		Commerce:    commerce.NewCoordinator(store, cfg.PaymentSecret),
		Games:       games.NewService(store, rand.New(rand.NewSource(time.Now().UnixNano())), cfg.Location()),
		Verifier:    verifier,
		Log:         log,
		IssueToken:  verifier.IssueToken,
		SignupBonus: cfg.SignupBonus,
	}

	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped")
}
