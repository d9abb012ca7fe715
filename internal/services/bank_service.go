package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"bankdash/internal/cache"
	"bankdash/internal/core"
	"bankdash/internal/log"
	"bankdash/internal/seed"
	"bankdash/internal/storage"
)

// TransferPublisher announces committed transfers to other processes.
type TransferPublisher interface {
	PublishTransfer(ctx context.Context, t core.Transfer) error
	Close() error
}

// Summary is the header data of the dashboard.
type Summary struct {
	Accounts     []core.Account `json:"accounts"`
	TotalBalance core.Money     `json:"totalBalance"`
}

// BankService owns the ledger stored in a storage.KV and is the only writer of it.
type BankService struct {
	store     storage.KV
	publisher TransferPublisher
	logger    *log.Logger
	events    *log.StructuredLogger

	// serialises transfers issued through this instance
	mu sync.Mutex

	newID func() string
	now   func() time.Time

	// read-through views, purged after every write of this instance
	accountsView     *cache.LRUCache[[]core.Account]
	transactionsView *cache.LRUCache[[]core.Transaction]
}

const viewKey = "all"

type Option func(*BankService)

func WithPublisher(p TransferPublisher) Option {
	return func(s *BankService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *BankService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *BankService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *BankService) { s.newID = gen }
}

// WithViewCache keeps loaded collections for ttl. Writes through another
// process are visible only once the entry expires.
func WithViewCache(ttl time.Duration) Option {
	return func(s *BankService) {
		s.accountsView = cache.NewLRUCache[[]core.Account](1, ttl)
		s.transactionsView = cache.NewLRUCache[[]core.Transaction](1, ttl)
	}
}

func NewBankService(store storage.KV, opts ...Option) *BankService {
	s := &BankService{
		store:            store,
		newID:            uuid.NewString,
		now:              time.Now,
		accountsView:     cache.NewLRUCache[[]core.Account](1, 0),
		transactionsView: cache.NewLRUCache[[]core.Transaction](1, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentBank)
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// Seed writes the dataset if the store has never held data. It reports
// whether seeding happened. Once either collection has been non-empty a
// marker is kept, so later emptying never triggers a reseed.
func (s *BankService) Seed(ctx context.Context, d seed.Dataset) (bool, error) {
	seeded := false
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		marker, err := storage.TxLoad(tx, storage.KeySeeded, false)
		if err != nil {
			return err
		}
		if marker {
			return nil
		}
		accounts, err := storage.TxLoad(tx, storage.KeyAccounts, []core.Account{})
		if err != nil {
			return err
		}
		txs, err := storage.TxLoad(tx, storage.KeyTransactions, []core.Transaction{})
		if err != nil {
			return err
		}
		if len(accounts) > 0 || len(txs) > 0 {
			return tx.Set(storage.KeySeeded, true)
		}

		if err := tx.Set(storage.KeyAccounts, nonNil(d.Accounts)); err != nil {
			return err
		}
		if err := tx.Set(storage.KeyTransactions, nonNil(d.Transactions)); err != nil {
			return err
		}
		seeded = true
		return tx.Set(storage.KeySeeded, true)
	})
	if err != nil {
		return false, fmt.Errorf("seed store: %w", err)
	}
	s.invalidate()
	if seeded {
		s.logger.InfoContext(ctx, "Store seeded",
			log.FieldOperation, log.OpSeed,
			"accounts", len(d.Accounts),
			"transactions", len(d.Transactions))
	}
	return seeded, nil
}

func (s *BankService) Accounts(ctx context.Context) ([]core.Account, error) {
	accounts, err := s.accountsView.GetOrLoad(viewKey, func() ([]core.Account, error) {
		return storage.Load(ctx, s.store, storage.KeyAccounts, []core.Account{})
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(accounts), nil
}

func (s *BankService) Account(ctx context.Context, id string) (core.Account, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return core.Account{}, err
	}
	a, ok := core.FindAccount(accounts, id)
	if !ok {
		return core.Account{}, core.ErrAccountNotFound
	}
	return a, nil
}

// Transactions returns the history most recent first, restricted to
// accountID unless it is empty.
func (s *BankService) Transactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	txs, err := s.transactionsView.GetOrLoad(viewKey, func() ([]core.Transaction, error) {
		return storage.Load(ctx, s.store, storage.KeyTransactions, []core.Transaction{})
	})
	if err != nil {
		return nil, err
	}
	return core.FilterByAccount(slices.Clone(txs), accountID), nil
}

// Recent returns at most n transactions of Transactions(accountID).
func (s *BankService) Recent(ctx context.Context, accountID string, n int) ([]core.Transaction, error) {
	txs, err := s.Transactions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return core.Recent(txs, n), nil
}

func (s *BankService) Summary(ctx context.Context) (Summary, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Accounts: accounts, TotalBalance: core.TotalBalance(accounts)}, nil
}

// Transfer validates raw form input and moves the amount between two accounts.
// Validation failures are *core.TransferError and leave the store untouched.
func (s *BankService) Transfer(ctx context.Context, fromID, toID, amount string) (core.Transfer, error) {
	req, err := core.NewTransferRequest(fromID, toID, amount)
	if err != nil {
		s.events.LogTransferRejected(ctx, fromID, toID, err.Error())
		return core.Transfer{}, err
	}
	return s.TransferAmount(ctx, req)
}

// TransferAmount applies an already parsed request in one store update.
func (s *BankService) TransferAmount(ctx context.Context, req core.TransferRequest) (core.Transfer, error) {
	s.mu.Lock()
	var transfer core.Transfer
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		accounts, err := storage.TxLoad(tx, storage.KeyAccounts, []core.Account{})
		if err != nil {
			return err
		}
		txs, err := storage.TxLoad(tx, storage.KeyTransactions, []core.Transaction{})
		if err != nil {
			return err
		}

		next, t, err := core.Ledger{Accounts: accounts, Transactions: txs}.ApplyTransfer(req, s.newID, s.now())
		if err != nil {
			return err
		}
		if err := tx.Set(storage.KeyAccounts, next.Accounts); err != nil {
			return err
		}
		if err := tx.Set(storage.KeyTransactions, next.Transactions); err != nil {
			return err
		}
		transfer = t
		return nil
	})
	s.invalidate()
	s.mu.Unlock()

	if err != nil {
		if te, ok := core.IsTransferError(err); ok {
			s.events.LogTransferRejected(ctx, req.FromAccountID, req.ToAccountID, te.Message)
			return core.Transfer{}, err
		}
		s.events.LogError(ctx, "Transfer failed", err, log.ComponentBank, log.OpTransfer,
			log.NewFields().WithTransfer("", req.FromAccountID, req.ToAccountID, req.Amount.Cents))
		return core.Transfer{}, fmt.Errorf("apply transfer: %w", err)
	}

	s.events.LogTransferCompleted(ctx, transfer.ID, transfer.FromAccountID, transfer.ToAccountID, transfer.Amount.Cents)

	if err := s.publishTransfer(ctx, transfer); err != nil {
		// the ledger is already committed
		s.logger.ErrorContext(ctx, "Failed to publish transfer event",
			log.FieldTransferID, transfer.ID,
			log.FieldError, err)
	}
	return transfer, nil
}

func (s *BankService) publishTransfer(ctx context.Context, t core.Transfer) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No transfer publisher configured, skipping event")
		return nil
	}
	return s.publisher.PublishTransfer(ctx, t)
}

func (s *BankService) invalidate() {
	s.accountsView.Purge()
	s.transactionsView.Purge()
}

// Caches exposes the view caches for periodic expiry.
func (s *BankService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.accountsView, s.transactionsView}
}

// Ping checks the store when the backend supports it.
func (s *BankService) Ping(ctx context.Context) error {
	if p, ok := s.store.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close closes both the store and the publisher
func (s *BankService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close bank service: %w", errors.Join(errs...))
	}

	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
