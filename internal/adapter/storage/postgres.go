package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
)

// Postgres implements ledger.Store on pgx. The account critical
// section is a database transaction holding a SELECT ... FOR UPDATE
// row lock on the account for its full duration, gateway call
// included; the final balance is written back once at commit.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const accountColumns = `
	a.id, a.owner_name, a.key_hash, a.balance::text, a.subscription_status,
	a.trial_start_date, a.custom_transaction_fee_pct::text, a.custom_withdrawal_fee_pct::text,
	a.notify_url, a.created_at,
	p.id, p.name, p.price::text, p.active, p.transaction_fee_pct::text, p.withdrawal_fee_pct::text`

const accountFrom = ` FROM accounts a LEFT JOIN packages p ON p.id = a.package_id `

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		acct               domain.Account
		balance, status    string
		customTx, customWd *string
		pkgID              *uuid.UUID
		pkgName            *string
		pkgPrice           *string
		pkgActive          *bool
		pkgTxPct, pkgWdPct *string
	)
	err := row.Scan(
		&acct.ID, &acct.OwnerName, &acct.KeyHash, &balance, &status,
		&acct.TrialStartDate, &customTx, &customWd,
		&acct.NotifyURL, &acct.CreatedAt,
		&pkgID, &pkgName, &pkgPrice, &pkgActive, &pkgTxPct, &pkgWdPct,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	acct.SubscriptionStatus = domain.SubscriptionStatus(status)
	if acct.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	if acct.CustomTransactionFeePct, err = parseOptionalDecimal(customTx); err != nil {
		return nil, err
	}
	if acct.CustomWithdrawalFeePct, err = parseOptionalDecimal(customWd); err != nil {
		return nil, err
	}
	if pkgID != nil {
		pkg := domain.Package{ID: *pkgID, Name: *pkgName, Active: *pkgActive}
		if pkg.Price, err = decimal.NewFromString(*pkgPrice); err != nil {
			return nil, fmt.Errorf("parse package price: %w", err)
		}
		if pkg.TransactionFeePct, err = decimal.NewFromString(*pkgTxPct); err != nil {
			return nil, fmt.Errorf("parse package transaction fee: %w", err)
		}
		if pkg.WithdrawalFeePct, err = decimal.NewFromString(*pkgWdPct); err != nil {
			return nil, fmt.Errorf("parse package withdrawal fee: %w", err)
		}
		acct.Package = &pkg
	}
	return &acct, nil
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal: %w", err)
	}
	return &d, nil
}

func (p *Postgres) CreateAccount(ctx context.Context, acct *domain.Account) error {
	query := `
		INSERT INTO accounts (id, owner_name, key_hash, balance, subscription_status, trial_start_date, notify_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := p.pool.QueryRow(ctx, query,
		acct.ID, acct.OwnerName, acct.KeyHash, acct.Balance.String(),
		string(acct.SubscriptionStatus), acct.TrialStartDate, acct.NotifyURL,
	).Scan(&acct.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (p *Postgres) AccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := p.pool.QueryRow(ctx, `SELECT`+accountColumns+accountFrom+`WHERE a.id = $1`, id)
	return scanAccount(row)
}

func (p *Postgres) AccountByKeyHash(ctx context.Context, keyHash string) (*domain.Account, error) {
	row := p.pool.QueryRow(ctx, `SELECT`+accountColumns+accountFrom+`WHERE a.key_hash = $1`, keyHash)
	return scanAccount(row)
}

func (p *Postgres) SetAPIKeyHash(ctx context.Context, accountID uuid.UUID, keyHash string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE accounts SET key_hash = $1 WHERE id = $2`, keyHash, accountID)
	if err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *Postgres) SetSubscriptionStatus(ctx context.Context, accountID uuid.UUID, status domain.SubscriptionStatus) error {
	tag, err := p.pool.Exec(ctx, `UPDATE accounts SET subscription_status = $1 WHERE id = $2`, string(status), accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *Postgres) CreateCheckoutSession(ctx context.Context, sess *domain.CheckoutSession) error {
	fields, err := json.Marshal(sess.CustomFields)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO checkout_sessions (id, account_id, amount, callback_url, customer_name, customer_email, product_name, custom_fields, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sess.ID, sess.AccountID, sess.Amount.String(), sess.CallbackURL,
		sess.CustomerName, sess.CustomerEmail, sess.ProductName, fields,
		string(sess.Status), sess.ExpiresAt, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create checkout session: %w", err)
	}
	return nil
}

const sessionColumns = `
	id, account_id, amount::text, callback_url, customer_name, customer_email,
	product_name, custom_fields, status, expires_at, created_at`

func scanSession(row rowScanner) (*domain.CheckoutSession, error) {
	var (
		sess   domain.CheckoutSession
		amount string
		status string
		fields []byte
	)
	err := row.Scan(
		&sess.ID, &sess.AccountID, &amount, &sess.CallbackURL,
		&sess.CustomerName, &sess.CustomerEmail, &sess.ProductName,
		&fields, &status, &sess.ExpiresAt, &sess.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Status = domain.CheckoutSessionStatus(status)
	if sess.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse session amount: %w", err)
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &sess.CustomFields); err != nil {
			return nil, fmt.Errorf("parse custom fields: %w", err)
		}
	}
	return &sess, nil
}

func (p *Postgres) CheckoutSessionByID(ctx context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	row := p.pool.QueryRow(ctx, `SELECT`+sessionColumns+` FROM checkout_sessions WHERE id = $1`, id)
	return scanSession(row)
}

const withdrawalColumns = `
	id, account_id, amount::text, fee::text, net_amount::text, phone_number,
	status, requested_at, resolved_at`

func scanWithdrawal(row rowScanner) (*domain.Withdrawal, error) {
	var (
		w                domain.Withdrawal
		amount, fee, net string
		status           string
	)
	err := row.Scan(
		&w.ID, &w.AccountID, &amount, &fee, &net, &w.PhoneNumber,
		&status, &w.RequestedAt, &w.ResolvedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Status = domain.WithdrawalStatus(status)
	if w.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse withdrawal amount: %w", err)
	}
	if w.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("parse withdrawal fee: %w", err)
	}
	if w.NetAmount, err = decimal.NewFromString(net); err != nil {
		return nil, fmt.Errorf("parse withdrawal net: %w", err)
	}
	return &w, nil
}

func (p *Postgres) WithdrawalByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	row := p.pool.QueryRow(ctx, `SELECT`+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
	return scanWithdrawal(row)
}

func (p *Postgres) WithdrawalsByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Withdrawal, error) {
	rows, err := p.pool.Query(ctx, `SELECT`+withdrawalColumns+` FROM withdrawals WHERE account_id = $1 ORDER BY requested_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// WithAccountLock implements the account critical section as a single
// database transaction with an exclusive row lock on the account.
func (p *Postgres) WithAccountLock(ctx context.Context, accountID uuid.UUID, fn func(tx ledger.Tx) error) error {
	dbTx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer dbTx.Rollback(ctx)

	row := dbTx.QueryRow(ctx, `SELECT`+accountColumns+accountFrom+`WHERE a.id = $1 FOR UPDATE OF a`, accountID)
	acct, err := scanAccount(row)
	if err != nil {
		return err
	}

	lt := &pgTx{ctx: ctx, tx: dbTx, acct: acct}
	if err := fn(lt); err != nil {
		return err
	}

	if _, err := dbTx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, acct.Balance.String(), accountID); err != nil {
		return err
	}
	return dbTx.Commit(ctx)
}

// pgTx is the locked-account view handed to the critical section.
type pgTx struct {
	ctx  context.Context
	tx   pgx.Tx
	acct *domain.Account
}

func (t *pgTx) Account() *domain.Account { return t.acct }

func (t *pgTx) Credit(amount decimal.Decimal) error {
	t.acct.Balance = t.acct.Balance.Add(amount)
	return nil
}

func (t *pgTx) Debit(amount decimal.Decimal) error {
	next := t.acct.Balance.Sub(amount)
	if next.IsNegative() {
		return domain.ErrInsufficientBalance
	}
	t.acct.Balance = next
	return nil
}

func (t *pgTx) CreateTransaction(txn *domain.Transaction) error {
	_, err := t.tx.Exec(t.ctx, `
		INSERT INTO transactions (id, account_id, amount, status, external_id, payment_phone_number, checkout_session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID, txn.AccountID, txn.Amount.String(), string(txn.Status),
		txn.ExternalID, txn.PaymentPhoneNumber, txn.CheckoutSessionID, txn.CreatedAt,
	)
	return err
}

func (t *pgTx) UpdateTransaction(txn *domain.Transaction) error {
	_, err := t.tx.Exec(t.ctx,
		`UPDATE transactions SET status = $1, external_id = $2 WHERE id = $3`,
		string(txn.Status), txn.ExternalID, txn.ID,
	)
	return err
}

func (t *pgTx) CreateWithdrawal(w *domain.Withdrawal) error {
	_, err := t.tx.Exec(t.ctx, `
		INSERT INTO withdrawals (id, account_id, amount, fee, net_amount, phone_number, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.AccountID, w.Amount.String(), w.Fee.String(), w.NetAmount.String(),
		w.PhoneNumber, string(w.Status), w.RequestedAt,
	)
	return err
}

func (t *pgTx) UpdateWithdrawal(w *domain.Withdrawal) error {
	_, err := t.tx.Exec(t.ctx,
		`UPDATE withdrawals SET status = $1, resolved_at = $2 WHERE id = $3`,
		string(w.Status), w.ResolvedAt, w.ID,
	)
	return err
}

func (t *pgTx) Withdrawal(id uuid.UUID) (*domain.Withdrawal, error) {
	row := t.tx.QueryRow(t.ctx, `SELECT`+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
	return scanWithdrawal(row)
}

func (t *pgTx) CheckoutSession(id uuid.UUID) (*domain.CheckoutSession, error) {
	row := t.tx.QueryRow(t.ctx, `SELECT`+sessionColumns+` FROM checkout_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (t *pgTx) UpdateCheckoutSession(sess *domain.CheckoutSession) error {
	_, err := t.tx.Exec(t.ctx,
		`UPDATE checkout_sessions SET status = $1, customer_name = $2 WHERE id = $3`,
		string(sess.Status), sess.CustomerName, sess.ID,
	)
	return err
}

// Enqueue implements notify.Queue: webhook deliveries are queued in a
// jobs table and drained by the background worker.
func (p *Postgres) Enqueue(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `INSERT INTO webhook_jobs (url, payload) VALUES ($1, $2)`, url, body)
	return err
}

// PendingWebhookJob is one queued delivery claimed by the worker.
type PendingWebhookJob struct {
	ID       uuid.UUID
	URL      string
	Payload  []byte
	Attempts int
}

// ClaimWebhookJob atomically takes the oldest runnable job by flipping
// it to PROCESSING, skipping rows other workers hold. A claimed job
// stays invisible to other instances until it is finished or retried.
// Returns ErrNotFound when the queue is empty.
func (p *Postgres) ClaimWebhookJob(ctx context.Context) (*PendingWebhookJob, error) {
	var job PendingWebhookJob
	err := p.pool.QueryRow(ctx, `
		UPDATE webhook_jobs
		SET status = 'PROCESSING'
		WHERE id = (
			SELECT id
			FROM webhook_jobs
			WHERE status = 'PENDING' AND next_run_at <= now()
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, url, payload, attempts`,
	).Scan(&job.ID, &job.URL, &job.Payload, &job.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FinishWebhookJob records a delivery outcome.
func (p *Postgres) FinishWebhookJob(ctx context.Context, id uuid.UUID, status string) error {
	_, err := p.pool.Exec(ctx, `UPDATE webhook_jobs SET status = $1 WHERE id = $2`, status, id)
	return err
}

// RetryWebhookJob reschedules a failed delivery.
func (p *Postgres) RetryWebhookJob(ctx context.Context, id uuid.UUID, nextRun time.Time) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE webhook_jobs SET status = 'PENDING', attempts = attempts + 1, next_run_at = $2 WHERE id = $1`,
		id, nextRun,
	)
	return err
}
