package sweeper

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

// Sweeper periodically refunds expired transfers and runs address
// maintenance. It is the daemon-side replacement for external keepers
// polling the work endpoint.
type Sweeper struct {
	ledger   *ledger.Ledger
	interval time.Duration
	stop     chan struct{}
	engaged  atomic.Bool
}

func New(l *ledger.Ledger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		ledger:   l,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. Call it in a goroutine.
func (s *Sweeper) Start() {
	sweepTicker := time.NewTicker(s.interval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-sweepTicker.C:
			s.RunOnce()
		case <-s.stop:
			return
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stop)
}

// RunOnce performs a single sweep pass and reports what it did. A pass
// already in flight, ticker-driven or manual, makes this a no-op.
func (s *Sweeper) RunOnce() (refunded int, failed int, maintenance *ledger.MaintenanceEvent) {
	if !s.engaged.CompareAndSwap(false, true) {
		log.Println("Sweep already in progress, skipping")
		return 0, 0, nil
	}
	defer s.engaged.Store(false)

	candidates := s.ledger.RefundableTransfers()
	if len(candidates) > 0 {
		log.Printf("Sweeping %d expired transfers...", len(candidates))
		for _, res := range s.ledger.RefundExpired(candidates) {
			if res.Err != nil {
				failed++
			} else {
				refunded++
			}
		}
		log.Printf("Sweep refunded %d transfers (%d failed)", refunded, failed)
	}

	if s.ledger.MaintenanceDue() {
		log.Println("Starting periodic maintenance...")
		result := s.ledger.PerformMaintenance()
		maintenance = &result
		log.Printf("Maintenance cleaned %d and evicted %d addresses",
			result.AddressesCleaned, result.AddressesEvicted)
	}

	return refunded, failed, maintenance
}
