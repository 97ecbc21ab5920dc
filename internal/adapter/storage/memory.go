package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bigboss00123/paymoz-MVP/internal/core/domain"
	"github.com/bigboss00123/paymoz-MVP/internal/core/ledger"
)

// Memory implements ledger.Store in process. The critical section is a
// per-account mutex; mutations are staged on copies and written back
// only when the section returns cleanly, mirroring the transactional
// behavior of the Postgres store. Used by tests and local development.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[uuid.UUID]*domain.Account
	byKeyHash    map[string]uuid.UUID
	transactions map[uuid.UUID]*domain.Transaction
	withdrawals  map[uuid.UUID]*domain.Withdrawal
	sessions     map[uuid.UUID]*domain.CheckoutSession
	webhooks     []QueuedWebhook

	locks sync.Map // account id -> *sync.Mutex
}

// QueuedWebhook is a webhook delivery captured by the in-memory queue.
type QueuedWebhook struct {
	URL     string
	Payload any
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[uuid.UUID]*domain.Account),
		byKeyHash:    make(map[string]uuid.UUID),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		withdrawals:  make(map[uuid.UUID]*domain.Withdrawal),
		sessions:     make(map[uuid.UUID]*domain.CheckoutSession),
	}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	if a.CustomTransactionFeePct != nil {
		v := *a.CustomTransactionFeePct
		c.CustomTransactionFeePct = &v
	}
	if a.CustomWithdrawalFeePct != nil {
		v := *a.CustomWithdrawalFeePct
		c.CustomWithdrawalFeePct = &v
	}
	if a.Package != nil {
		p := *a.Package
		c.Package = &p
	}
	return &c
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	c := *t
	if t.CheckoutSessionID != nil {
		v := *t.CheckoutSessionID
		c.CheckoutSessionID = &v
	}
	return &c
}

func cloneWithdrawal(w *domain.Withdrawal) *domain.Withdrawal {
	c := *w
	if w.ResolvedAt != nil {
		v := *w.ResolvedAt
		c.ResolvedAt = &v
	}
	return &c
}

func cloneSession(s *domain.CheckoutSession) *domain.CheckoutSession {
	c := *s
	if s.CustomFields != nil {
		c.CustomFields = make(map[string]string, len(s.CustomFields))
		for k, v := range s.CustomFields {
			c.CustomFields[k] = v
		}
	}
	return &c
}

func (m *Memory) CreateAccount(_ context.Context, acct *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.ID] = cloneAccount(acct)
	if acct.KeyHash != "" {
		m.byKeyHash[acct.KeyHash] = acct.ID
	}
	return nil
}

func (m *Memory) AccountByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAccount(acct), nil
}

func (m *Memory) AccountByKeyHash(_ context.Context, keyHash string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byKeyHash[keyHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAccount(m.accounts[id]), nil
}

func (m *Memory) SetAPIKeyHash(_ context.Context, accountID uuid.UUID, keyHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if acct.KeyHash != "" {
		delete(m.byKeyHash, acct.KeyHash)
	}
	acct.KeyHash = keyHash
	m.byKeyHash[keyHash] = accountID
	return nil
}

func (m *Memory) SetSubscriptionStatus(_ context.Context, accountID uuid.UUID, status domain.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	acct.SubscriptionStatus = status
	return nil
}

func (m *Memory) CreateCheckoutSession(_ context.Context, sess *domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (m *Memory) CheckoutSessionByID(_ context.Context, id uuid.UUID) (*domain.CheckoutSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

func (m *Memory) WithdrawalByID(_ context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneWithdrawal(w), nil
}

func (m *Memory) WithdrawalsByAccount(_ context.Context, accountID uuid.UUID) ([]*domain.Withdrawal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Withdrawal
	for _, w := range m.withdrawals {
		if w.AccountID == accountID {
			out = append(out, cloneWithdrawal(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

// Transaction returns a stored transaction. Test helper; the ledger
// service itself only touches transactions inside the lock.
func (m *Memory) Transaction(id uuid.UUID) (*domain.Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, false
	}
	return cloneTransaction(t), true
}

// TransactionsByAccount returns an account's charge history, newest first.
func (m *Memory) TransactionsByAccount(accountID uuid.UUID) []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range m.transactions {
		if t.AccountID == accountID {
			out = append(out, cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *Memory) WithAccountLock(_ context.Context, accountID uuid.UUID, fn func(tx ledger.Tx) error) error {
	lockAny, _ := m.locks.LoadOrStore(accountID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	stored, ok := m.accounts[accountID]
	var acct *domain.Account
	if ok {
		acct = cloneAccount(stored)
	}
	m.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}

	tx := &memTx{
		store:        m,
		acct:         acct,
		transactions: make(map[uuid.UUID]*domain.Transaction),
		withdrawals:  make(map[uuid.UUID]*domain.Withdrawal),
		sessions:     make(map[uuid.UUID]*domain.CheckoutSession),
	}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountID].Balance = acct.Balance
	for id, t := range tx.transactions {
		m.transactions[id] = t
	}
	for id, w := range tx.withdrawals {
		m.withdrawals[id] = w
	}
	for id, s := range tx.sessions {
		m.sessions[id] = s
	}
	return nil
}

// memTx stages mutations on copies until the critical section commits.
type memTx struct {
	store        *Memory
	acct         *domain.Account
	transactions map[uuid.UUID]*domain.Transaction
	withdrawals  map[uuid.UUID]*domain.Withdrawal
	sessions     map[uuid.UUID]*domain.CheckoutSession
}

func (t *memTx) Account() *domain.Account { return t.acct }

func (t *memTx) Credit(amount decimal.Decimal) error {
	t.acct.Balance = t.acct.Balance.Add(amount)
	return nil
}

func (t *memTx) Debit(amount decimal.Decimal) error {
	next := t.acct.Balance.Sub(amount)
	if next.IsNegative() {
		return domain.ErrInsufficientBalance
	}
	t.acct.Balance = next
	return nil
}

func (t *memTx) CreateTransaction(txn *domain.Transaction) error {
	t.transactions[txn.ID] = cloneTransaction(txn)
	return nil
}

func (t *memTx) UpdateTransaction(txn *domain.Transaction) error {
	t.transactions[txn.ID] = cloneTransaction(txn)
	return nil
}

func (t *memTx) CreateWithdrawal(w *domain.Withdrawal) error {
	t.withdrawals[w.ID] = cloneWithdrawal(w)
	return nil
}

func (t *memTx) UpdateWithdrawal(w *domain.Withdrawal) error {
	t.withdrawals[w.ID] = cloneWithdrawal(w)
	return nil
}

func (t *memTx) Withdrawal(id uuid.UUID) (*domain.Withdrawal, error) {
	if w, ok := t.withdrawals[id]; ok {
		return cloneWithdrawal(w), nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	w, ok := t.store.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneWithdrawal(w), nil
}

func (t *memTx) CheckoutSession(id uuid.UUID) (*domain.CheckoutSession, error) {
	if s, ok := t.sessions[id]; ok {
		return cloneSession(s), nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	s, ok := t.store.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (t *memTx) UpdateCheckoutSession(sess *domain.CheckoutSession) error {
	t.sessions[sess.ID] = cloneSession(sess)
	return nil
}

// Enqueue implements notify.Queue by recording deliveries in memory.
func (m *Memory) Enqueue(_ context.Context, url string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks = append(m.webhooks, QueuedWebhook{URL: url, Payload: payload})
	return nil
}

// Webhooks returns the deliveries captured so far. Test helper.
func (m *Memory) Webhooks() []QueuedWebhook {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]QueuedWebhook, len(m.webhooks))
	copy(out, m.webhooks)
	return out
}
