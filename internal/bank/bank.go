// Package bank keeps the external account balances the escrow ledger debits
// and credits. It is the custody counterpart the ledger treats as its
// environment: deposits arrive through the API, the ledger moves value in
// and out, and a frozen account models a counterpart that refuses funds.
package bank

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

var (
	ErrInsufficientFunds = errors.New("insufficient account balance")
	ErrAccountFrozen     = errors.New("account is frozen")
	ErrUnknownAccount    = errors.New("unknown account")
)

// Store persists account balances. The database package implements it.
type Store interface {
	SaveAccountBalance(account, asset string, balance uint64) error
}

type Bank struct {
	mu       sync.Mutex
	balances map[string]map[string]uint64
	frozen   map[string]bool
	store    Store
}

func New() *Bank {
	return &Bank{
		balances: make(map[string]map[string]uint64),
		frozen:   make(map[string]bool),
	}
}

// SetStore attaches the write-through persistence backend.
func (b *Bank) SetStore(s Store) { b.store = s }

// LoadBalances seeds the bank from persisted state.
func (b *Bank) LoadBalances(balances map[string]map[string]uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for account, assets := range balances {
		if b.balances[account] == nil {
			b.balances[account] = make(map[string]uint64)
		}
		for asset, balance := range assets {
			b.balances[account][asset] = balance
		}
	}
}

func (b *Bank) persist(account, asset string) {
	if b.store == nil {
		return
	}
	if err := b.store.SaveAccountBalance(account, asset, b.balances[account][asset]); err != nil {
		log.Printf("Error persisting balance for %s/%s: %v", account, asset, err)
	}
}

// Deposit adds external funds to an account, creating it if new.
func (b *Bank) Deposit(account, asset string, amount uint64) error {
	if account == "" {
		return ErrUnknownAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balances[account] == nil {
		b.balances[account] = make(map[string]uint64)
	}
	b.balances[account][asset] += amount
	b.persist(account, asset)
	return nil
}

// Debit implements ledger.Bank: pull amount out of account.
func (b *Bank) Debit(account, asset string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	held := b.balances[account][asset]
	if held < amount {
		return fmt.Errorf("%w: account %s has %d of %s, needs %d", ErrInsufficientFunds, account, held, asset, amount)
	}
	b.balances[account][asset] = held - amount
	b.persist(account, asset)
	return nil
}

// Credit implements ledger.Bank: pay amount into account. A frozen account
// rejects the payment, which the ledger surfaces as a custody failure.
func (b *Bank) Credit(account, asset string, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen[account] {
		return fmt.Errorf("%w: %s", ErrAccountFrozen, account)
	}
	if b.balances[account] == nil {
		b.balances[account] = make(map[string]uint64)
	}
	b.balances[account][asset] += amount
	b.persist(account, asset)
	return nil
}

// BalanceOf never fails; unknown accounts and assets read as zero.
func (b *Bank) BalanceOf(account, asset string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account][asset]
}

// Freeze makes an account reject incoming credits until unfrozen.
func (b *Bank) Freeze(account string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen[account] = true
}

func (b *Bank) Unfreeze(account string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.frozen, account)
}
