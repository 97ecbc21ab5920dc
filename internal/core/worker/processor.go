package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bigboss00123/paymoz-MVP/internal/adapter/storage"
	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/notify"
)

const maxAttempts = 5

// StartWebhookWorker drains the webhook job queue in the background
// until ctx is canceled. Merchant endpoints that keep failing are
// retried with a growing backoff and given up after maxAttempts.
func StartWebhookWorker(ctx context.Context, store *storage.Postgres, secret string) {
	go func() {
		slog.Info("webhook worker started")
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("webhook worker stopped")
				return
			case <-ticker.C:
				processJobs(ctx, store, secret)
			}
		}
	}()
}

func processJobs(ctx context.Context, store *storage.Postgres, secret string) {
	for {
		job, err := store.ClaimWebhookJob(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return
		}
		if err != nil {
			slog.Error("worker: failed to claim webhook job", "error", err)
			return
		}

		var payload any
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			slog.Error("worker: unreadable payload", "error", err, "job_id", job.ID)
			_ = store.FinishWebhookJob(ctx, job.ID, "FAILED")
			continue
		}

		if err := notify.SendWebhook(job.URL, payload, secret); err != nil {
			slog.Warn("worker: webhook delivery failed", "error", err, "job_id", job.ID, "attempts", job.Attempts)
			if job.Attempts+1 >= maxAttempts {
				_ = store.FinishWebhookJob(ctx, job.ID, "FAILED")
				slog.Error("worker: giving up on webhook job", "job_id", job.ID)
				continue
			}
			backoff := time.Duration(job.Attempts*10+10) * time.Second
			_ = store.RetryWebhookJob(ctx, job.ID, time.Now().Add(backoff))
			continue
		}

		_ = store.FinishWebhookJob(ctx, job.ID, "COMPLETED")
		slog.Info("worker: webhook delivered", "job_id", job.ID)
	}
}
