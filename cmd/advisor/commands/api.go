package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnquant/advisor/internal/api"
	"github.com/vnquant/advisor/internal/api/handlers"
	"github.com/vnquant/advisor/internal/audit"
	"github.com/vnquant/advisor/pkg/config"
	"github.com/vnquant/advisor/pkg/database"
	"github.com/vnquant/advisor/pkg/logger"
	"github.com/vnquant/advisor/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET /health                        - Health check
  GET /api/recommendations          - Generate a recommendation plan
  GET /api/recommendations/history  - Stored runs (requires database)

Example:
  go run ./cmd/advisor api
  go run ./cmd/advisor api --port 8086`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides config)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// History store is optional: without a database the endpoint reports
	// unavailable but recommendations still work.
	var store handlers.HistoryStore
	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		store = audit.NewRepository(db.Pool)
		log.Info("Connected to database")
	} else {
		log.Warn("DATABASE_URL not set, recommendation history disabled")
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "advisor")

	eng := buildEngine(cfg, log)
	recHandler := handlers.NewRecommendationHandler(eng, store, cache, log)
	router := api.NewRouter(recHandler, log)
	server := api.New(cfg, log, router)

	// Graceful shutdown on SIGINT/SIGTERM
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
