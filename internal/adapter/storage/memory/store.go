// Package memory is a transactional in-memory implementation of the repository ports.
//
// Row locks are per-key semaphores held until Commit or Rollback. Writes are staged
// on the Tx and applied atomically at Commit, so a transaction never reads its own
// uncommitted writes.
package memory

import (
	"context"
	"errors"
	"sync"

	"group-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store holds committed state for every repository in this package.
type Store struct {
	mu sync.RWMutex

	vaults      map[uuid.UUID]domain.Vault
	members     map[uuid.UUID]domain.VaultMember
	memberIdx   map[string]uuid.UUID // vault_id|user_id
	memberOrder []uuid.UUID
	ledger      []domain.VaultTransaction
	wallets     map[uuid.UUID]domain.Wallet
	walletOrder []uuid.UUID
	parties     map[uuid.UUID]domain.WalletParty
	partyOrder  []uuid.UUID
	approvals   map[uuid.UUID]domain.PendingApproval
	approvalIDs []uuid.UUID
	votes       map[uuid.UUID][]domain.Vote
	idempotency map[string]domain.IdempotencyLog
	audit       []domain.AuditLog

	lockMu sync.Mutex
	locks  map[string]*rowLock
}

// rowLock is a one-slot semaphore. refs counts the holder and every waiter;
// the entry is dropped from Store.locks when it reaches zero.
type rowLock struct {
	ch   chan struct{}
	refs int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		vaults:      make(map[uuid.UUID]domain.Vault),
		members:     make(map[uuid.UUID]domain.VaultMember),
		memberIdx:   make(map[string]uuid.UUID),
		wallets:     make(map[uuid.UUID]domain.Wallet),
		parties:     make(map[uuid.UUID]domain.WalletParty),
		approvals:   make(map[uuid.UUID]domain.PendingApproval),
		votes:       make(map[uuid.UUID][]domain.Vote),
		idempotency: make(map[string]domain.IdempotencyLog),
		locks:       make(map[string]*rowLock),
	}
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: s, held: make(map[string]bool)}, nil
}

func (s *Store) acquire(ctx context.Context, key string) error {
	s.lockMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[key] = l
	}
	l.refs++
	s.lockMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.unref(key, l)
		return ctx.Err()
	}
}

func (s *Store) release(key string) {
	s.lockMu.Lock()
	l := s.locks[key]
	s.lockMu.Unlock()
	<-l.ch
	s.unref(key, l)
}

func (s *Store) unref(key string, l *rowLock) {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}

// Tx is the memory store's pgx.Tx. Only Commit and Rollback are implemented;
// the embedded interface is nil and the SQL methods must not be called.
type Tx struct {
	pgx.Tx

	store  *Store
	held   map[string]bool
	order  []string
	writes []stagedWrite
	closed bool
}

type stagedWrite struct {
	check func() error // runs under the store write lock before any apply
	apply func()
}

var errForeignTx = errors.New("memory: transaction was not started by this store")

func asTx(s *Store, tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, errForeignTx
	}
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}

func (t *Tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	if err := t.store.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = true
	t.order = append(t.order, key)
	return nil
}

func (t *Tx) stage(check func() error, apply func()) {
	t.writes = append(t.writes, stagedWrite{check: check, apply: apply})
}

// Commit validates every staged write, applies them atomically and releases row locks.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	defer t.releaseAll()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range t.writes {
		if w.check == nil {
			continue
		}
		if err := w.check(); err != nil {
			return err
		}
	}
	for _, w := range t.writes {
		w.apply()
	}
	return nil
}

// Rollback discards staged writes and releases row locks.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.releaseAll()
	return nil
}

func (t *Tx) releaseAll() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.store.release(t.order[i])
	}
	t.order = nil
	t.writes = nil
}

func lockKey(kind string, id uuid.UUID) string {
	return kind + ":" + id.String()
}

func memberKey(vaultID uuid.UUID, userID string) string {
	return vaultID.String() + "|" + userID
}

func page[T any](items []T, pageNum, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
