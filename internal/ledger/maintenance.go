package ledger

import "log"

// PerformMaintenance runs the two hygiene passes: purging stale per-address
// history lists and evicting addresses with no recent interaction. Pending
// lists are never touched, they represent live obligations. Both passes are
// capped by the configured batch limit so a single call stays bounded.
func (l *Ledger) PerformMaintenance() MaintenanceEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	limit := l.params.MaintenanceBatchLimit
	report := MaintenanceEvent{}

	for _, addr := range l.tracked.Members() {
		if report.AddressesCleaned >= limit {
			break
		}
		a := l.activity[addr]
		if a == nil || now.Sub(a.LastCleanup) < l.params.CleanupInterval {
			continue
		}
		if ai, ok := l.byAddress[addr]; ok {
			ai.sentCanceled.Clear()
			ai.sentExpired.Clear()
			ai.recvClaimed.Clear()
		}
		a.LastCleanup = now
		l.persistActivity(addr)
		report.AddressesCleaned++
	}

	for _, addr := range l.tracked.Members() {
		if report.AddressesEvicted >= limit {
			break
		}
		a := l.activity[addr]
		if a == nil || now.Sub(a.LastInteraction) < l.params.InactivityThreshold {
			continue
		}
		if err := l.tracked.Remove(addr); err != nil {
			log.Printf("Error removing %s from tracked addresses: %v", addr, err)
			continue
		}
		delete(l.activity, addr)
		if l.store != nil {
			if err := l.store.DeleteActivity(addr); err != nil {
				log.Printf("Error deleting activity for %s: %v", addr, err)
			}
		}
		report.AddressesEvicted++
	}

	l.notify(TopicMaintenanceDone, report)
	return report
}

// RefundableTransfers lists the pending ids whose availability window has
// passed. Paired with RefundExpired as the poll/act contract for external
// schedulers.
func (l *Ledger) RefundableTransfers() []uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	var due []uint64
	for _, id := range l.pending.Members() {
		if t := l.transfers[id]; t != nil && !now.Before(t.ExpiresAt) {
			due = append(due, id)
		}
	}
	return due
}

// MaintenanceDue reports whether PerformMaintenance currently has work.
func (l *Ledger) MaintenanceDue() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	for _, addr := range l.tracked.Members() {
		a := l.activity[addr]
		if a == nil {
			continue
		}
		if now.Sub(a.LastCleanup) >= l.params.CleanupInterval {
			return true
		}
		if now.Sub(a.LastInteraction) >= l.params.InactivityThreshold {
			return true
		}
	}
	return false
}
