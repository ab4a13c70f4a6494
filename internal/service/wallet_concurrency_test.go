// internal/service/wallet_concurrency_test.go
package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"paynow-wallet/internal/domain"
	"paynow-wallet/internal/repository"
	"paynow-wallet/internal/util"
	"paynow-wallet/pkg/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// noopExecutor satisfies repository.DBExecutor for the in-memory store, which never queries.
type noopExecutor struct{}

func (noopExecutor) GetContext(context.Context, interface{}, string, ...interface{}) error {
	return errors.New("not supported")
}

func (noopExecutor) SelectContext(context.Context, interface{}, string, ...interface{}) error {
	return errors.New("not supported")
}

func (noopExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("not supported")
}

// memoryStore keeps wallets and transactions in maps. rows plays the part of the wallet
// row locks: a memoryTx holds it from LockWallets until it commits or rolls back.
type memoryStore struct {
	rows sync.Mutex

	mu           sync.Mutex
	wallets      map[string]*domain.Wallet
	transactions map[string]*domain.Transaction
}

func newMemoryStore() *memoryStore {
	return &memoryStore{wallets: map[string]*domain.Wallet{}, transactions: map[string]*domain.Transaction{}}
}

func (s *memoryStore) begin(context.Context, db.DBTxBeginner) (db.TxController, error) {
	return &memoryTx{store: s}, nil
}

// memoryTx undoes its balance changes on rollback.
type memoryTx struct {
	noopExecutor
	store  *memoryStore
	locked bool
	done   bool
	undo   []func()
}

func (tx *memoryTx) lock() {
	if !tx.locked {
		tx.store.rows.Lock()
		tx.locked = true
	}
}

func (tx *memoryTx) finish() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	if tx.locked {
		tx.store.rows.Unlock()
		tx.locked = false
	}
	return nil
}

func (tx *memoryTx) Commit() error { return tx.finish() }

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.store.mu.Lock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.store.mu.Unlock()
	return tx.finish()
}

func (s *memoryStore) GetOrCreateWallet(_ context.Context, _ repository.DBExecutor, userID, currency string) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		w = domain.NewWallet(userID, currency)
		s.wallets[userID] = w
	}
	snapshot := *w
	return &snapshot, nil
}

func (s *memoryStore) GetWalletByUserID(_ context.Context, _ repository.DBExecutor, userID string) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil, util.ErrWalletNotFound
	}
	snapshot := *w
	return &snapshot, nil
}

func (s *memoryStore) LockWallets(_ context.Context, q repository.DBExecutor, userIDs ...string) ([]domain.Wallet, error) {
	q.(*memoryTx).lock()

	s.mu.Lock()
	defer s.mu.Unlock()
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)
	wallets := make([]domain.Wallet, 0, len(ids))
	for _, id := range ids {
		w, ok := s.wallets[id]
		if !ok {
			return nil, util.ErrWalletNotFound
		}
		wallets = append(wallets, *w)
	}
	return wallets, nil
}

func (s *memoryStore) adjust(q repository.DBExecutor, userID string, delta decimal.Decimal) (*domain.Wallet, error) {
	tx := q.(*memoryTx)
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		return nil, util.ErrWalletNotFound
	}
	if w.Balance.Add(delta).IsNegative() {
		return nil, util.ErrInsufficientBalance
	}
	w.Balance = w.Balance.Add(delta)
	tx.undo = append(tx.undo, func() { w.Balance = w.Balance.Sub(delta) })
	snapshot := *w
	return &snapshot, nil
}

func (s *memoryStore) DebitWallet(_ context.Context, q repository.DBExecutor, userID string, amount decimal.Decimal) (*domain.Wallet, error) {
	return s.adjust(q, userID, amount.Neg())
}

func (s *memoryStore) CreditWallet(_ context.Context, q repository.DBExecutor, userID string, amount decimal.Decimal) (*domain.Wallet, error) {
	return s.adjust(q, userID, amount)
}

func (s *memoryStore) CreateTransaction(_ context.Context, _ repository.DBExecutor, transaction *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *transaction
	s.transactions[transaction.ID] = &stored
	return nil
}

func (s *memoryStore) UpdateTransactionStatus(_ context.Context, _ repository.DBExecutor, id string, status domain.TransactionStatus, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return util.ErrNotFound
	}
	if t.Status != domain.TransactionStatusPending {
		return util.ErrInvalidStateTransition
	}
	t.Status = status
	t.CompletedAt = completedAt
	return nil
}

func (s *memoryStore) GetTransactionByID(_ context.Context, _ repository.DBExecutor, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	snapshot := *t
	return &snapshot, nil
}

func (s *memoryStore) GetTransactionsByUserID(context.Context, repository.DBExecutor, string, int, int) ([]domain.Transaction, int64, error) {
	return nil, 0, errors.New("not supported")
}

func (s *memoryStore) statusCounts() map[domain.TransactionStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[domain.TransactionStatus]int{}
	for _, t := range s.transactions {
		counts[t.Status]++
	}
	return counts
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	store := newMemoryStore()
	users := new(MockUserDirectory)
	users.On("FindByEmailOrMobile", mock.Anything, "bob@example.com").Return(bob, nil)

	ctx := context.Background()
	seed, err := store.GetOrCreateWallet(ctx, nil, "alice", "INR")
	require.NoError(t, err)
	store.wallets[seed.UserID].Balance = decimal.NewFromInt(100)
	_, err = store.GetOrCreateWallet(ctx, nil, "bob", "INR")
	require.NoError(t, err)

	exec := noopExecutor{}
	svc := NewWalletService(WalletServiceDeps{
		DBExecutor: exec,
		WalletRepo: store,
		Users:      users,
		Ledger:     NewLedgerService(exec, store, users, discardLogger),
		Notifier:   &recordingNotifier{},
		Currency:   "INR",
		Logger:     discardLogger,
		BeginTx:    store.begin,
		CommitTx:   db.CommitTx,
		RollbackTx: db.RollbackTx,
	})

	amount := decimal.NewFromInt(7)
	var wg sync.WaitGroup
	errs := make([]error, 40)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			//nolint:staticcheck // drives the engine without OTPs
			_, errs[i] = svc.TransferUnverified(ctx, "alice", "bob@example.com", amount, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, util.ErrInsufficientBalance)
	}
	assert.Equal(t, 14, succeeded)

	aliceWallet, err := store.GetWalletByUserID(ctx, nil, "alice")
	require.NoError(t, err)
	bobWallet, err := store.GetWalletByUserID(ctx, nil, "bob")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(aliceWallet.Balance), "alice has %s", aliceWallet.Balance)
	assert.True(t, decimal.NewFromInt(98).Equal(bobWallet.Balance), "bob has %s", bobWallet.Balance)

	counts := store.statusCounts()
	assert.Equal(t, 14, counts[domain.TransactionStatusCompleted])
	assert.Zero(t, counts[domain.TransactionStatusPending])
	assert.Zero(t, counts[domain.TransactionStatusReconciliationRequired])
}
