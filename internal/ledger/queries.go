package ledger

import (
	"sort"
	"time"
)

// TransferDetail is the read-model of a transfer. Unknown ids yield the
// zero detail with status "none"; no accessor in this file ever fails.
type TransferDetail struct {
	ID        uint64    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Asset     string    `json:"asset"`
	Amount    uint64    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Status    string    `json:"status"`
}

// GetTransfer returns the detail for id, zeroed when unknown.
func (l *Ledger) GetTransfer(id uint64) TransferDetail {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.transfers[id]
	if !ok {
		return TransferDetail{ID: id, Status: StatusNone.String()}
	}
	return TransferDetail{
		ID:        t.ID,
		Sender:    t.Sender,
		Receiver:  t.Receiver,
		Asset:     t.Asset,
		Amount:    t.Amount,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
		Status:    t.Status.String(),
	}
}

// TransferCount returns how many transfers were ever created.
func (l *Ledger) TransferCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextID
}

func (l *Ledger) PendingTransfers() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending.Members()
}

func (l *Ledger) CanceledTransfers() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canceled.Members()
}

func (l *Ledger) ClaimedTransfers() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claimed.Members()
}

func (l *Ledger) ExpiredTransfers() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expired.Members()
}

func (l *Ledger) PendingBySender(addr string) []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ai, ok := l.byAddress[addr]; ok {
		return ai.sentPending.Members()
	}
	return []uint64{}
}

func (l *Ledger) PendingByReceiver(addr string) []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ai, ok := l.byAddress[addr]; ok {
		return ai.recvPending.Members()
	}
	return []uint64{}
}

func (l *Ledger) CanceledBySender(addr string) []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ai, ok := l.byAddress[addr]; ok {
		return ai.sentCanceled.Members()
	}
	return []uint64{}
}

func (l *Ledger) ExpiredBySender(addr string) []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ai, ok := l.byAddress[addr]; ok {
		return ai.sentExpired.Members()
	}
	return []uint64{}
}

func (l *Ledger) ClaimedByReceiver(addr string) []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ai, ok := l.byAddress[addr]; ok {
		return ai.recvClaimed.Members()
	}
	return []uint64{}
}

// Params returns a copy of the current configuration.
func (l *Ledger) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// Owner returns the current owner address.
func (l *Ledger) Owner() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

// WhitelistedAssets returns the allow-list sorted for stable output.
func (l *Ledger) WhitelistedAssets() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	assets := make([]string, 0, len(l.whitelisted))
	for asset := range l.whitelisted {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// FeeBalance returns the accumulated, not yet withdrawn fees for asset.
func (l *Ledger) FeeBalance(asset string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.feeBalances[asset]
}

// HeldBalance returns the ledger's custody balance for asset: the sum of
// all pending amounts plus the fee balance.
func (l *Ledger) HeldBalance(asset string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[asset]
}

// TrackedAddresses returns every address with an active tracking record.
func (l *Ledger) TrackedAddresses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tracked.Members()
}

// CooldownRemaining returns how long until id becomes claimable. Zero for
// unknown ids, terminal transfers, or an elapsed cooldown.
func (l *Ledger) CooldownRemaining(id uint64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.transfers[id]
	if !ok || t.Status != StatusPending {
		return 0
	}
	remaining := t.CreatedAt.Add(l.params.CooldownPeriod).Sub(l.clock())
	if remaining < 0 {
		return 0
	}
	return remaining
}
