package worker

// retry_cron.go
// Background goroutine that periodically re-attempts WhatsApp deliveries for
// notifications stuck in estado='pendiente' with a next_retry_at in the past.
// Uses the Circuit Breaker to avoid hammering a downed API.

import (
	"context"
	"fmt"
	"time"

	"distripos/internal/infra"
	"distripos/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	NotificacionRepo repository.NotificacionRepository
	Client           *infra.WhatsAppClient
	CB               *infra.CircuitBreaker
	RDB              *redis.Client
}

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries pending notifications, and re-attempts delivery through the CB.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	// If CB is open, skip entirely — don't hammer a downed API
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	notifs, err := cfg.NotificacionRepo.ListPendientesRetry(ctx, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}

	if len(notifs) == 0 {
		return
	}

	log.Info().Int("count", len(notifs)).Msg("retry_cron: processing pending notifications")

	for i := range notifs {
		notif := &notifs[i]

		// Check CB state before each call — it may have tripped mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}

		cbErr := cfg.CB.Execute(func() error {
			_, err := cfg.Client.SendText(ctx, notif.Telefono, notif.Mensaje)
			return err
		})

		if cbErr != nil {
			// Failure — schedule next attempt or give up
			attempts := notif.RetryCount + 1
			if attempts >= MaxNotificacionRetries {
				if err := cfg.NotificacionRepo.MarcarError(ctx, notif.ID, cbErr.Error()); err != nil {
					log.Error().Err(err).Str("notificacion_id", notif.ID.String()).Msg("retry_cron: failed to mark error")
				}
				log.Error().
					Str("notificacion_id", notif.ID.String()).
					Int("retries", attempts).
					Msg("retry_cron: max retries exceeded, moving to error/DLQ")

				SendToDLQ(ctx, cfg.RDB, QueueNotificacion, "notificacion", dlqPayload(notif.ID),
					fmt.Sprintf("max retries (%d) exceeded: %s", MaxNotificacionRetries, cbErr), attempts)
				continue
			}

			nextRetry := time.Now().Add(computeRetryBackoff(attempts))
			if err := cfg.NotificacionRepo.ProgramarRetry(ctx, notif.ID, nextRetry, cbErr.Error()); err != nil {
				log.Error().Err(err).Str("notificacion_id", notif.ID.String()).Msg("retry_cron: failed to schedule retry")
				continue
			}
			log.Warn().
				Str("notificacion_id", notif.ID.String()).
				Int("retry_count", attempts).
				Time("next_retry_at", nextRetry).
				Msg("retry_cron: delivery failed, scheduled next attempt")
			continue
		}

		// Success path
		if err := cfg.NotificacionRepo.MarcarEnviada(ctx, notif.ID); err != nil {
			log.Error().Err(err).Str("notificacion_id", notif.ID.String()).Msg("retry_cron: failed to mark enviada")
			continue
		}
		log.Info().
			Str("notificacion_id", notif.ID.String()).
			Int("total_retries", notif.RetryCount).
			Msg("retry_cron: delivered after retry")
	}
}
