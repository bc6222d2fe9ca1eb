package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"distripos/internal/config"
	"distripos/internal/infra"
	"distripos/internal/repository"
	"distripos/internal/router"
	"distripos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	waClient := infra.NewWhatsAppClient(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneID)
	waCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	mailer := infra.NewMailer(cfg)
	notifRepo := repository.NewNotificacionRepository(db)
	depositoRepo := repository.NewDepositoRepository(db)

	handlers := worker.Handlers{
		Notificacion: worker.NewNotificacionWorker(waClient, waCB, notifRepo, rdb),
		Reporte:      worker.NewReporteWorker(depositoRepo, mailer, cfg.ReporteEmail, cfg.PDFStoragePath),
	}
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)
	worker.StartRetryCron(ctx, worker.RetryCronConfig{
		NotificacionRepo: notifRepo,
		Client:           waClient,
		CB:               waCB,
		RDB:              rdb,
	})

	r := router.New(cfg, db, rdb, waCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("DistriPOS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
