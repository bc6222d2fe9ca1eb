package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueNotificacion = "jobs:notificacion"
	QueueReporte      = "jobs:reporte"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueNotificacion pushes a WhatsApp delivery job to Redis.
func (d *Dispatcher) EnqueueNotificacion(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueNotificacion, "notificacion", payload)
}

// EnqueueReporte pushes a deposit report job to Redis.
func (d *Dispatcher) EnqueueReporte(ctx context.Context, payload interface{}) error {
	return d.enqueue(ctx, QueueReporte, "reporte", payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers routes each queue to its worker.
type Handlers struct {
	Notificacion *NotificacionWorker
	Reporte      *ReporteWorker
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, h Handlers) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, h)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, h Handlers) {
	queues := []string{QueueNotificacion, QueueReporte}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, h, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, h Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	switch queue {
	case QueueNotificacion:
		if h.Notificacion != nil {
			h.Notificacion.Process(ctx, job.Payload)
		}
	case QueueReporte:
		if h.Reporte != nil {
			h.Reporte.Process(ctx, job.Payload)
		}
	default:
		log.Warn().Str("queue", queue).Str("type", job.Type).Msg("no handler for queue")
	}
}
