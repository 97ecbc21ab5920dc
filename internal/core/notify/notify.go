// Package notify delivers merchant-facing notifications as a side
// effect of ledger transitions. Delivery is fire-and-forget: a failed
// notification is logged and swallowed, it never rolls back the
// financial operation that triggered it.
package notify

import (
	"context"
	"log/slog"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
)

// Notifier is the external collaborator seam the ledger calls after a
// state transition commits.
type Notifier interface {
	SaleCompleted(ctx context.Context, acct *domain.Account, txn *domain.Transaction)
	SaleFailed(ctx context.Context, acct *domain.Account, txn *domain.Transaction)
	WithdrawalRequested(ctx context.Context, acct *domain.Account, w *domain.Withdrawal)
	WithdrawalResolved(ctx context.Context, acct *domain.Account, w *domain.Withdrawal)
}

// Queue persists a webhook delivery job for the background worker.
type Queue interface {
	Enqueue(ctx context.Context, url string, payload any) error
}

// Service logs every event and, when the account has a notify URL,
// queues a signed webhook for the delivery worker.
type Service struct {
	queue Queue
}

// NewService builds a Service. A nil queue disables webhooks and keeps
// log-only delivery, which is what the tests use.
func NewService(queue Queue) *Service {
	return &Service{queue: queue}
}

func (s *Service) SaleCompleted(ctx context.Context, acct *domain.Account, txn *domain.Transaction) {
	slog.Info("sale completed",
		"account_id", acct.ID,
		"transaction_id", txn.ID,
		"external_id", txn.ExternalID,
		"amount", txn.Amount,
		"phone", txn.PaymentPhoneNumber,
	)
	s.enqueue(ctx, acct, map[string]any{
		"event": "payment.succeeded",
		"data": map[string]any{
			"transaction_id":          txn.ID,
			"external_transaction_id": txn.ExternalID,
			"amount":                  txn.Amount.String(),
			"phone_number":            txn.PaymentPhoneNumber,
			"status":                  txn.Status,
		},
	})
}

func (s *Service) SaleFailed(ctx context.Context, acct *domain.Account, txn *domain.Transaction) {
	slog.Warn("sale failed",
		"account_id", acct.ID,
		"transaction_id", txn.ID,
		"amount", txn.Amount,
		"phone", txn.PaymentPhoneNumber,
	)
	s.enqueue(ctx, acct, map[string]any{
		"event": "payment.failed",
		"data": map[string]any{
			"transaction_id": txn.ID,
			"amount":         txn.Amount.String(),
			"phone_number":   txn.PaymentPhoneNumber,
			"status":         txn.Status,
		},
	})
}

func (s *Service) WithdrawalRequested(ctx context.Context, acct *domain.Account, w *domain.Withdrawal) {
	slog.Info("withdrawal requested",
		"account_id", acct.ID,
		"withdrawal_id", w.ID,
		"amount", w.Amount,
		"net_amount", w.NetAmount,
		"phone", w.PhoneNumber,
	)
	s.enqueue(ctx, acct, map[string]any{
		"event": "withdrawal.requested",
		"data":  withdrawalPayload(w),
	})
}

func (s *Service) WithdrawalResolved(ctx context.Context, acct *domain.Account, w *domain.Withdrawal) {
	slog.Info("withdrawal resolved",
		"account_id", acct.ID,
		"withdrawal_id", w.ID,
		"status", w.Status,
	)
	event := "withdrawal.completed"
	if w.Status != domain.WithdrawalCompleted {
		event = "withdrawal." + string(w.Status)
	}
	s.enqueue(ctx, acct, map[string]any{
		"event": event,
		"data":  withdrawalPayload(w),
	})
}

func withdrawalPayload(w *domain.Withdrawal) map[string]any {
	return map[string]any{
		"withdrawal_id": w.ID,
		"amount":        w.Amount.String(),
		"fee":           w.Fee.String(),
		"net_amount":    w.NetAmount.String(),
		"phone_number":  w.PhoneNumber,
		"status":        w.Status,
	}
}

func (s *Service) enqueue(ctx context.Context, acct *domain.Account, payload map[string]any) {
	if s.queue == nil || acct.NotifyURL == "" {
		return
	}
	if err := s.queue.Enqueue(ctx, acct.NotifyURL, payload); err != nil {
		slog.Warn("failed to queue webhook", "error", err, "account_id", acct.ID)
	}
}
