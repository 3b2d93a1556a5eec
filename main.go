package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"earnlink/internal/config"
	"earnlink/internal/logger"
	"earnlink/internal/router"
	"earnlink/internal/store"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.InitLogger()
	log.Info().Msg("Starting earning service")

	var st store.Store
	if cfg.DBUrl != "" {
		mysql, err := store.OpenMySQL(cfg.DBUrl)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer mysql.Close()

		if err := mysql.RunMigrations(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		st = mysql
		log.Info().Msg("Using MySQL store")
	} else {
		st = store.NewMemory()
		log.Warn().Msg("DB_URL not set, using in-memory store")
	}

	r := router.SetupRouter(st, cfg, log)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
