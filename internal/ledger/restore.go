package ledger

// Snapshot is the persisted slice of ledger state. The secondary indexes
// are derived, so only records, balances, activity and the allow-list are
// stored; Load rebuilds everything else.
type Snapshot struct {
	Owner        string
	Params       *Params
	Transfers    []Transfer
	FeeBalances  map[string]uint64
	HeldBalances map[string]uint64
	Activities   []AddressActivity
	Assets       map[string]bool
}

// Load replaces the ledger's state with a snapshot. Called once, between
// construction and serving.
func (l *Ledger) Load(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s.Owner != "" {
		l.owner = s.Owner
	}
	if s.Params != nil {
		l.params = *s.Params
	}
	for asset, whitelisted := range s.Assets {
		if whitelisted {
			l.whitelisted[asset] = true
		} else {
			delete(l.whitelisted, asset)
		}
	}
	for asset, balance := range s.FeeBalances {
		l.feeBalances[asset] = balance
	}
	for asset, balance := range s.HeldBalances {
		l.held[asset] = balance
	}

	for _, rec := range s.Transfers {
		t := rec
		l.transfers[t.ID] = &t
		if t.ID >= l.nextID {
			l.nextID = t.ID + 1
		}
		switch t.Status {
		case StatusPending:
			l.pending.Insert(t.ID)
			l.addrIndexes(t.Sender).sentPending.Insert(t.ID)
			l.addrIndexes(t.Receiver).recvPending.Insert(t.ID)
		case StatusCanceled:
			l.canceled.Insert(t.ID)
			l.addrIndexes(t.Sender).sentCanceled.Insert(t.ID)
		case StatusClaimed:
			l.claimed.Insert(t.ID)
			l.addrIndexes(t.Receiver).recvClaimed.Insert(t.ID)
		case StatusExpiredRefunded:
			l.expired.Insert(t.ID)
			l.addrIndexes(t.Sender).sentExpired.Insert(t.ID)
		}
	}

	for _, rec := range s.Activities {
		a := rec
		l.activity[a.Address] = &a
		l.tracked.Insert(a.Address)
	}
}
