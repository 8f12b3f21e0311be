package ledger

import (
	"fmt"
	"log"
)

func (l *Ledger) requireOwner(caller string) error {
	if caller != l.owner {
		return ErrNotOwner
	}
	return nil
}

// AddAsset whitelists a token for new transfers and initializes its fee
// balance.
func (l *Ledger) AddAsset(caller, asset string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if asset == "" {
		return fmt.Errorf("asset id is required")
	}
	if l.whitelisted[asset] {
		return fmt.Errorf("%w: %s", ErrAlreadyWhitelisted, asset)
	}
	l.whitelisted[asset] = true
	if _, ok := l.feeBalances[asset]; !ok {
		l.feeBalances[asset] = 0
	}
	if l.store != nil {
		if err := l.store.SaveAsset(asset, true); err != nil {
			log.Printf("Error persisting asset %s: %v", asset, err)
		}
	}
	return nil
}

// RemoveAsset blocks new transfer creation in asset. Pending transfers in
// the asset stay fully operable so no funds can strand.
func (l *Ledger) RemoveAsset(caller, asset string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if !l.whitelisted[asset] {
		return fmt.Errorf("%w: %s", ErrAssetNotWhitelisted, asset)
	}
	delete(l.whitelisted, asset)
	if l.store != nil {
		if err := l.store.SaveAsset(asset, false); err != nil {
			log.Printf("Error persisting asset %s: %v", asset, err)
		}
	}
	return nil
}

// WithdrawFees pays accumulated fees for one asset out to the owner. The
// balance decrement precedes the payout and is restored if the payout
// fails.
func (l *Ledger) WithdrawFees(caller, asset string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if amount == 0 {
		return ErrZeroAmount
	}
	if amount > l.feeBalances[asset] {
		return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFeeBalance, l.feeBalances[asset], amount)
	}

	l.feeBalances[asset] -= amount
	l.held[asset] -= amount
	if err := l.bank.Credit(l.owner, asset, amount); err != nil {
		l.feeBalances[asset] += amount
		l.held[asset] += amount
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	l.persistBalances(asset)

	l.notify(TopicFeesWithdrawn, FeeWithdrawalEvent{Asset: asset, Amount: amount, Owner: l.owner})
	return nil
}

// TransferOwnership hands the owner role to newOwner.
func (l *Ledger) TransferOwnership(caller, newOwner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if newOwner == "" {
		return fmt.Errorf("new owner address is required")
	}
	l.owner = newOwner
	if l.store != nil {
		if err := l.store.SaveOwner(newOwner); err != nil {
			log.Printf("Error persisting owner: %v", err)
		}
	}
	return nil
}

// UpdateParams applies a mutation to the configuration after validating the
// result. All the individual setters funnel through here.
func (l *Ledger) UpdateParams(caller string, mutate func(*Params)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireOwner(caller); err != nil {
		return err
	}
	next := l.params
	mutate(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	l.params = next
	if l.store != nil {
		if err := l.store.SaveParams(next); err != nil {
			log.Printf("Error persisting params: %v", err)
		}
	}
	return nil
}

func (l *Ledger) SetMinAmount(caller string, v uint64) error {
	return l.UpdateParams(caller, func(p *Params) { p.MinAmount = v })
}

func (l *Ledger) SetMinPasswordLength(caller string, v int) error {
	return l.UpdateParams(caller, func(p *Params) { p.MinPasswordLength = v })
}

func (l *Ledger) SetCooldownPeriod(caller string, v int64) error {
	return l.UpdateParams(caller, func(p *Params) { p.CooldownPeriod = secondsToDuration(v) })
}

func (l *Ledger) SetAvailabilityPeriod(caller string, v int64) error {
	return l.UpdateParams(caller, func(p *Params) { p.AvailabilityPeriod = secondsToDuration(v) })
}

func (l *Ledger) SetCleanupInterval(caller string, v int64) error {
	return l.UpdateParams(caller, func(p *Params) { p.CleanupInterval = secondsToDuration(v) })
}

func (l *Ledger) SetInactivityThreshold(caller string, v int64) error {
	return l.UpdateParams(caller, func(p *Params) { p.InactivityThreshold = secondsToDuration(v) })
}

func (l *Ledger) SetMaintenanceBatchLimit(caller string, v int) error {
	return l.UpdateParams(caller, func(p *Params) { p.MaintenanceBatchLimit = v })
}

func (l *Ledger) SetFeeTiers(caller string, tiers FeeTiers) error {
	return l.UpdateParams(caller, func(p *Params) { p.FeeTiers = tiers })
}

func (l *Ledger) SetFeeLimits(caller string, limitOne, limitTwo uint64) error {
	return l.UpdateParams(caller, func(p *Params) {
		p.FeeLimitOne = limitOne
		p.FeeLimitTwo = limitTwo
	})
}

func (l *Ledger) SetFeeScalingFactor(caller string, v uint64) error {
	return l.UpdateParams(caller, func(p *Params) { p.FeeScalingFactor = v })
}
