// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sync"
	"time"

	"plaza/coin-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	wallets     map[ledger.UserID]ledger.Wallet
	entries     map[ledger.UserID][]ledger.Entry
	idempotency map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		wallets:     make(map[ledger.UserID]ledger.Wallet),
		entries:     make(map[ledger.UserID][]ledger.Entry),
		idempotency: make(map[string]bool),
	}
}

func (m *Memory) CreateWallet(_ context.Context, userID ledger.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createWalletLocked(userID)
}

func (m *Memory) createWalletLocked(userID ledger.UserID) error {
	if _, ok := m.wallets[userID]; ok {
		return ledger.ErrDuplicateEntry
	}
	m.wallets[userID] = ledger.Wallet{UserID: userID, UpdatedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) GetWallet(_ context.Context, userID ledger.UserID) (*ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getWalletLocked(userID)
}

func (m *Memory) getWalletLocked(userID ledger.UserID) (*ledger.Wallet, error) {
	w, ok := m.wallets[userID]
	if !ok {
		return nil, ledger.ErrUserNotFound
	}
	copy := w
	return &copy, nil
}

func (m *Memory) UpdateWallet(_ context.Context, w ledger.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateWalletLocked(w)
}

func (m *Memory) updateWalletLocked(w ledger.Wallet) error {
	if _, ok := m.wallets[w.UserID]; !ok {
		return ledger.ErrUserNotFound
	}
	m.wallets[w.UserID] = w
	return nil
}

func (m *Memory) AppendEntry(_ context.Context, e ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(e)
}

func (m *Memory) appendLocked(e ledger.Entry) error {
	if e.IdempotencyKey != "" && m.idempotency[e.IdempotencyKey] {
		return ledger.ErrDuplicateEntry
	}
	m.entries[e.UserID] = append(m.entries[e.UserID], e)
	if e.IdempotencyKey != "" {
		m.idempotency[e.IdempotencyKey] = true
	}
	return nil
}

func (m *Memory) Entries(_ context.Context, userID ledger.UserID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]ledger.Entry, len(m.entries[userID]))
	copy(result, m.entries[userID])
	return result, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot restored on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	wallets     map[ledger.UserID]ledger.Wallet
	entries     map[ledger.UserID][]ledger.Entry
	idempotency map[string]bool
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		wallets:     make(map[ledger.UserID]ledger.Wallet, len(tm.wallets)),
		entries:     make(map[ledger.UserID][]ledger.Entry, len(tm.entries)),
		idempotency: make(map[string]bool, len(tm.idempotency)),
	}
	for k, v := range tm.wallets {
		s.wallets[k] = v
	}
	for k, v := range tm.entries {
		s.entries[k] = append([]ledger.Entry{}, v...)
	}
	for k, v := range tm.idempotency {
		s.idempotency[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.wallets = s.wallets
	tm.entries = s.entries
	tm.idempotency = s.idempotency
}

// txMemoryView routes calls to the locked parent without re-locking.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) CreateWallet(_ context.Context, userID ledger.UserID) error {
	return tv.parent.createWalletLocked(userID)
}

func (tv *txMemoryView) GetWallet(_ context.Context, userID ledger.UserID) (*ledger.Wallet, error) {
	return tv.parent.getWalletLocked(userID)
}

func (tv *txMemoryView) UpdateWallet(_ context.Context, w ledger.Wallet) error {
	return tv.parent.updateWalletLocked(w)
}

func (tv *txMemoryView) AppendEntry(_ context.Context, e ledger.Entry) error {
	return tv.parent.appendLocked(e)
}

func (tv *txMemoryView) Entries(_ context.Context, userID ledger.UserID) ([]ledger.Entry, error) {
	return tv.parent.entries[userID], nil
}
