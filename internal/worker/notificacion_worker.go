package worker

// notificacion_worker.go
// Processes WhatsApp delivery jobs from QueueNotificacion.
// Sends the confirmation message through the WhatsApp Cloud API behind a
// circuit breaker, with exponential backoff (max 3 in-process attempts).
// Deliveries that still fail are handed to the retry cron via next_retry_at.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"distripos/internal/infra"
	"distripos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// MaxNotificacionRetries is the cron-level cap: after this many scheduled
// retries the notification is marked error and moved to the DLQ.
const MaxNotificacionRetries = 5

// NotificacionJobPayload is the job envelope sent to QueueNotificacion.
type NotificacionJobPayload struct {
	NotificacionID string `json:"notificacion_id"`
}

// NotificacionWorker delivers queued WhatsApp messages.
type NotificacionWorker struct {
	client *infra.WhatsAppClient
	cb     *infra.CircuitBreaker
	repo   repository.NotificacionRepository
	rdb    *redis.Client
}

func NewNotificacionWorker(
	client *infra.WhatsAppClient,
	cb *infra.CircuitBreaker,
	repo repository.NotificacionRepository,
	rdb *redis.Client,
) *NotificacionWorker {
	return &NotificacionWorker{client: client, cb: cb, repo: repo, rdb: rdb}
}

// Process handles a single notification job:
//  1. Parse NotificacionJobPayload from the job envelope
//  2. Fetch the Notificacion; skip if already sent
//  3. Send through the circuit breaker with exponential backoff
//  4. On success mark enviada; on failure schedule a cron retry
func (w *NotificacionWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload NotificacionJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("notificacion_worker: invalid payload")
		return
	}

	notifID, err := uuid.Parse(payload.NotificacionID)
	if err != nil {
		log.Error().Str("notificacion_id", payload.NotificacionID).Msg("notificacion_worker: invalid id")
		return
	}

	notif, err := w.repo.FindByID(ctx, notifID)
	if err != nil {
		log.Error().Err(err).Str("notificacion_id", payload.NotificacionID).Msg("notificacion_worker: not found")
		return
	}
	if notif.Estado == "enviada" {
		log.Debug().Str("notificacion_id", payload.NotificacionID).Msg("notificacion_worker: already sent, skipping")
		return
	}

	sendErr := withRetry(ctx, 3, func(attempt int) error {
		return w.cb.Execute(func() error {
			msgID, err := w.client.SendText(ctx, notif.Telefono, notif.Mensaje)
			if err != nil {
				log.Warn().
					Err(err).
					Int("attempt", attempt+1).
					Str("notificacion_id", payload.NotificacionID).
					Msg("notificacion_worker: send attempt failed, retrying")
				return err
			}
			log.Info().
				Str("message_id", msgID).
				Str("notificacion_id", payload.NotificacionID).
				Msg("notificacion_worker: delivered")
			return nil
		})
	})

	if sendErr == nil {
		if err := w.repo.MarcarEnviada(ctx, notifID); err != nil {
			log.Error().Err(err).Str("notificacion_id", payload.NotificacionID).Msg("notificacion_worker: failed to mark enviada")
		}
		return
	}

	// All in-process attempts failed — hand off to the retry cron
	if notif.RetryCount+1 >= MaxNotificacionRetries {
		if err := w.repo.MarcarError(ctx, notifID, sendErr.Error()); err != nil {
			log.Error().Err(err).Str("notificacion_id", payload.NotificacionID).Msg("notificacion_worker: failed to mark error")
		}
		SendToDLQ(ctx, w.rdb, QueueNotificacion, "notificacion", dlqPayload(notifID),
			fmt.Sprintf("max retries (%d) exceeded: %s", MaxNotificacionRetries, sendErr), notif.RetryCount+1)
		return
	}
	nextRetry := time.Now().Add(computeRetryBackoff(notif.RetryCount + 1))
	if err := w.repo.ProgramarRetry(ctx, notifID, nextRetry, sendErr.Error()); err != nil {
		log.Error().Err(err).Str("notificacion_id", payload.NotificacionID).Msg("notificacion_worker: failed to schedule retry")
		return
	}
	log.Warn().
		Err(sendErr).
		Time("next_retry_at", nextRetry).
		Str("notificacion_id", payload.NotificacionID).
		Msg("notificacion_worker: delivery failed, scheduled cron retry")
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			// 1s, 2s … (exponential backoff)
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			// If the breaker is open further attempts fast-fail anyway
			if err == infra.ErrCircuitOpen {
				return lastErr
			}
			continue
		}
		return nil
	}
	return lastErr
}

// computeRetryBackoff maps a retry count to the cron wait: 1m, 2m, 4m … capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	backoff := time.Duration(1<<uint(retryCount-1)) * time.Minute
	if backoff > 30*time.Minute {
		backoff = 30 * time.Minute
	}
	return backoff
}

// dlqPayload serializes the minimal context needed to replay a notification.
func dlqPayload(notifID uuid.UUID) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"notificacion_id":"%s"}`, notifID))
}
