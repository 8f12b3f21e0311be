package ledger

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Bank moves value between the ledger's custody and external accounts. The
// production implementation lives in internal/bank; tests inject failing
// stubs to exercise the rollback paths.
type Bank interface {
	// Debit pulls amount of asset out of account and into ledger custody.
	Debit(account, asset string, amount uint64) error
	// Credit pays amount of asset out of ledger custody into account.
	Credit(account, asset string, amount uint64) error
}

// Store is the write-through persistence hook. Both database backends
// implement it. Persistence failures are logged, never fatal to an
// operation: the in-memory ledger is authoritative within a process.
type Store interface {
	SaveTransfer(t Transfer) error
	SaveFeeBalance(asset string, balance uint64) error
	SaveHeldBalance(asset string, balance uint64) error
	SaveActivity(a AddressActivity) error
	DeleteActivity(address string) error
	SaveAsset(asset string, whitelisted bool) error
	SaveOwner(owner string) error
	SaveParams(p Params) error
}

// addressIndexes are the per-address id lists. Pending is kept for both
// roles; terminal lists live with the role that the transition concerns.
type addressIndexes struct {
	sentPending  *index[uint64]
	sentCanceled *index[uint64]
	sentExpired  *index[uint64]
	recvPending  *index[uint64]
	recvClaimed  *index[uint64]
}

func newAddressIndexes() *addressIndexes {
	return &addressIndexes{
		sentPending:  newIndex[uint64](),
		sentCanceled: newIndex[uint64](),
		sentExpired:  newIndex[uint64](),
		recvPending:  newIndex[uint64](),
		recvClaimed:  newIndex[uint64](),
	}
}

// Ledger is the transfer state machine and its accounting. All operations
// are serialized behind one mutex; preconditions are always re-checked
// against live state under that lock.
type Ledger struct {
	mu sync.Mutex

	owner  string
	params Params

	bank     Bank
	store    Store
	notifier Notifier
	clock    func() time.Time

	transfers map[uint64]*Transfer
	nextID    uint64

	whitelisted map[string]bool
	feeBalances map[string]uint64
	held        map[string]uint64

	pending  *index[uint64]
	canceled *index[uint64]
	claimed  *index[uint64]
	expired  *index[uint64]

	byAddress map[string]*addressIndexes
	tracked   *index[string]
	activity  map[string]*AddressActivity

	// Re-entrancy guard: a transfer id with an operation mid-flight refuses
	// any second operation until the first unwinds or completes.
	inFlight map[uint64]bool
}

// New builds an empty ledger. The native asset is whitelisted from the
// start; tokens are added by the owner.
func New(owner string, params Params, bank Bank) *Ledger {
	l := &Ledger{
		owner:       owner,
		params:      params,
		bank:        bank,
		clock:       time.Now,
		transfers:   make(map[uint64]*Transfer),
		whitelisted: map[string]bool{NativeAsset: true},
		feeBalances: make(map[string]uint64),
		held:        make(map[string]uint64),
		pending:     newIndex[uint64](),
		canceled:    newIndex[uint64](),
		claimed:     newIndex[uint64](),
		expired:     newIndex[uint64](),
		byAddress:   make(map[string]*addressIndexes),
		tracked:     newIndex[string](),
		activity:    make(map[string]*AddressActivity),
		inFlight:    make(map[uint64]bool),
	}
	return l
}

// SetStore attaches the write-through persistence backend.
func (l *Ledger) SetStore(s Store) { l.store = s }

// SetNotifier attaches the event sink.
func (l *Ledger) SetNotifier(n Notifier) { l.notifier = n }

// SetClock overrides the time source. Cooldown and expiry are evaluated
// lazily against this clock on every call; there are no internal timers.
func (l *Ledger) SetClock(clock func() time.Time) { l.clock = clock }

func (l *Ledger) notify(topic string, payload interface{}) {
	if l.notifier != nil {
		l.notifier.Publish(topic, payload)
	}
}

func (l *Ledger) persistTransfer(t *Transfer) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveTransfer(*t); err != nil {
		log.Printf("Error persisting transfer %d: %v", t.ID, err)
	}
}

func (l *Ledger) persistBalances(asset string) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveHeldBalance(asset, l.held[asset]); err != nil {
		log.Printf("Error persisting held balance for %s: %v", asset, err)
	}
	if err := l.store.SaveFeeBalance(asset, l.feeBalances[asset]); err != nil {
		log.Printf("Error persisting fee balance for %s: %v", asset, err)
	}
}

func (l *Ledger) persistActivity(addr string) {
	if l.store == nil {
		return
	}
	if a, ok := l.activity[addr]; ok {
		if err := l.store.SaveActivity(*a); err != nil {
			log.Printf("Error persisting activity for %s: %v", addr, err)
		}
	}
}

func (l *Ledger) addrIndexes(addr string) *addressIndexes {
	ai, ok := l.byAddress[addr]
	if !ok {
		ai = newAddressIndexes()
		l.byAddress[addr] = ai
	}
	return ai
}

// ensureTracked creates the tracking record on first interaction.
func (l *Ledger) ensureTracked(addr string, now time.Time) {
	if _, ok := l.activity[addr]; ok {
		return
	}
	l.activity[addr] = &AddressActivity{Address: addr, LastInteraction: now, LastCleanup: now}
	l.tracked.Insert(addr)
	l.persistActivity(addr)
}

func (l *Ledger) touch(addr string, now time.Time) {
	l.ensureTracked(addr, now)
	l.activity[addr].LastInteraction = now
	l.persistActivity(addr)
}

// Create locks amount of asset for receiver under password. provided is the
// payment supplied with the call; it must cover amount plus the tiered fee.
// For the native asset any excess above the total cost is returned to the
// sender within the same operation.
func (l *Ledger) Create(sender, receiver, asset string, amount, provided uint64, password string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == 0 {
		return 0, ErrZeroAmount
	}
	if receiver == "" {
		return 0, ErrReceiverRequired
	}
	if receiver == sender {
		return 0, ErrSelfTransfer
	}
	if !l.whitelisted[asset] {
		return 0, fmt.Errorf("%w: %s", ErrAssetNotWhitelisted, asset)
	}
	if amount < l.params.MinAmount {
		return 0, fmt.Errorf("%w: amount %d, minimum %d", ErrAmountBelowMinimum, amount, l.params.MinAmount)
	}
	if password == "" {
		return 0, ErrPasswordRequired
	}
	if len(password) < l.params.MinPasswordLength {
		return 0, fmt.Errorf("%w: length %d, minimum %d", ErrPasswordTooShort, len(password), l.params.MinPasswordLength)
	}

	total, fee := Cost(amount, l.params.FeeLimitOne, l.params.FeeLimitTwo, l.params.FeeScalingFactor, l.params.FeeTiers)
	if provided < total {
		return 0, fmt.Errorf("%w: required %d, provided %d", ErrInsufficientPayment, total, provided)
	}

	// Collect payment before any ledger mutation. Native payments arrive in
	// full and the excess goes straight back; token payments pull exactly
	// the total cost.
	if asset == NativeAsset {
		if err := l.bank.Debit(sender, asset, provided); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		if excess := provided - total; excess > 0 {
			if err := l.bank.Credit(sender, asset, excess); err != nil {
				// Hand the whole payment back; nothing was recorded yet.
				if undoErr := l.bank.Credit(sender, asset, provided); undoErr != nil {
					log.Printf("Error unwinding payment for sender %s: %v", sender, undoErr)
				}
				return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
		}
	} else {
		if err := l.bank.Debit(sender, asset, total); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	now := l.clock()
	id := l.nextID
	salt := DeriveSalt(id, sender, receiver)
	t := &Transfer{
		ID:         id,
		Sender:     sender,
		Receiver:   receiver,
		Asset:      asset,
		Amount:     amount,
		CreatedAt:  now,
		ExpiresAt:  now.Add(l.params.AvailabilityPeriod),
		Commitment: Commit(password, salt),
		Salt:       salt,
		Status:     StatusPending,
	}
	l.transfers[id] = t
	l.nextID++

	l.pending.Insert(id)
	l.addrIndexes(sender).sentPending.Insert(id)
	l.addrIndexes(receiver).recvPending.Insert(id)

	l.ensureTracked(receiver, now)
	l.touch(sender, now)

	l.held[asset] += total
	l.feeBalances[asset] += fee

	l.persistTransfer(t)
	l.persistBalances(asset)

	l.notify(TopicTransferCreated, TransferEvent{
		ID: id, Sender: sender, Receiver: receiver, Asset: asset, Amount: amount, Fee: fee,
	})
	return id, nil
}

// Cancel returns a pending transfer's amount (never the fee) to its sender.
func (l *Ledger) Cancel(caller string, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.transfers[id]
	if !ok {
		return ErrTransferNotPending
	}
	if t.Sender != caller {
		return ErrOnlySenderCanCancel
	}
	if t.Status != StatusPending {
		return ErrTransferNotPending
	}
	if t.Amount == 0 {
		return ErrNoAmountToRefund
	}
	if err := l.beginOp(id); err != nil {
		return err
	}
	defer l.endOp(id)

	amount := t.Amount
	if err := l.leavePending(t, StatusCanceled); err != nil {
		return err
	}
	l.canceled.Insert(id)
	l.addrIndexes(t.Sender).sentCanceled.Insert(id)
	l.held[t.Asset] -= amount

	// State is final before the outbound transfer; a bank failure unwinds
	// everything so no partial cancellation is ever observable.
	if err := l.bank.Credit(t.Sender, t.Asset, amount); err != nil {
		l.held[t.Asset] += amount
		l.canceled.Remove(id)
		l.addrIndexes(t.Sender).sentCanceled.Remove(id)
		l.reenterPending(t, amount)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	l.persistTransfer(t)
	l.persistBalances(t.Asset)

	l.notify(TopicTransferCanceled, TransferEvent{
		ID: id, Sender: t.Sender, Receiver: t.Receiver, Asset: t.Asset, Amount: amount,
	})
	return nil
}

// Claim pays a pending transfer out to its receiver once the cooldown since
// creation has elapsed and the password proves out. A wrong password is
// reported but not recorded; the cooldown protects the sender's cancel
// window and is never moved by failed attempts.
func (l *Ledger) Claim(caller string, id uint64, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.transfers[id]
	if !ok {
		return ErrInvalidReceiver
	}
	if t.Receiver != caller {
		return ErrInvalidReceiver
	}
	if t.Status != StatusPending {
		return ErrTransferNotPending
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < l.params.MinPasswordLength {
		return fmt.Errorf("%w: length %d, minimum %d", ErrPasswordTooShort, len(password), l.params.MinPasswordLength)
	}
	now := l.clock()
	if boundary := t.CreatedAt.Add(l.params.CooldownPeriod); now.Before(boundary) {
		return fmt.Errorf("%w: %s remaining", ErrCooldownActive, boundary.Sub(now))
	}
	if !VerifyCommitment(password, t.Commitment, t.Salt) {
		return ErrIncorrectPassword
	}
	if err := l.beginOp(id); err != nil {
		return err
	}
	defer l.endOp(id)

	amount := t.Amount
	if err := l.leavePending(t, StatusClaimed); err != nil {
		return err
	}
	l.claimed.Insert(id)
	l.addrIndexes(t.Receiver).recvClaimed.Insert(id)
	l.held[t.Asset] -= amount

	if err := l.bank.Credit(t.Receiver, t.Asset, amount); err != nil {
		l.held[t.Asset] += amount
		l.claimed.Remove(id)
		l.addrIndexes(t.Receiver).recvClaimed.Remove(id)
		l.reenterPending(t, amount)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	l.touch(t.Receiver, now)
	l.persistTransfer(t)
	l.persistBalances(t.Asset)

	l.notify(TopicTransferClaimed, TransferEvent{
		ID: id, Sender: t.Sender, Receiver: t.Receiver, Asset: t.Asset, Amount: amount,
	})
	return nil
}

// Refund returns an expired pending transfer to its sender. Anyone may call
// it; the sweeper is the usual caller.
func (l *Ledger) Refund(id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refundLocked(id)
}

func (l *Ledger) refundLocked(id uint64) error {
	t, ok := l.transfers[id]
	if !ok {
		return ErrTransferNotPending
	}
	if t.Status != StatusPending {
		return ErrTransferNotPending
	}
	if now := l.clock(); now.Before(t.ExpiresAt) {
		return fmt.Errorf("%w: expires at %s", ErrTransferNotExpired, t.ExpiresAt.Format(time.RFC3339))
	}
	if err := l.beginOp(id); err != nil {
		return err
	}
	defer l.endOp(id)

	amount := t.Amount
	if err := l.leavePending(t, StatusExpiredRefunded); err != nil {
		return err
	}
	l.expired.Insert(id)
	l.addrIndexes(t.Sender).sentExpired.Insert(id)
	l.held[t.Asset] -= amount

	if err := l.bank.Credit(t.Sender, t.Asset, amount); err != nil {
		l.held[t.Asset] += amount
		l.expired.Remove(id)
		l.addrIndexes(t.Sender).sentExpired.Remove(id)
		l.reenterPending(t, amount)
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	l.persistTransfer(t)
	l.persistBalances(t.Asset)

	l.notify(TopicTransferRefunded, TransferEvent{
		ID: id, Sender: t.Sender, Receiver: t.Receiver, Asset: t.Asset, Amount: amount,
	})
	return nil
}

// RefundResult is one entry of a batch refund outcome.
type RefundResult struct {
	ID  uint64 `json:"id"`
	Err error  `json:"-"`
}

// RefundExpired refunds each candidate independently. One failure is
// logged and skipped so the rest of the batch proceeds; this is the only
// place an error is intentionally swallowed.
func (l *Ledger) RefundExpired(ids []uint64) []RefundResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]RefundResult, 0, len(ids))
	for _, id := range ids {
		err := l.refundLocked(id)
		if err != nil {
			log.Printf("Error refunding transfer %d in batch: %v", id, err)
		}
		results = append(results, RefundResult{ID: id, Err: err})
	}
	return results
}

func (l *Ledger) beginOp(id uint64) error {
	if l.inFlight[id] {
		return ErrOperationInProgress
	}
	l.inFlight[id] = true
	return nil
}

func (l *Ledger) endOp(id uint64) {
	delete(l.inFlight, id)
}

// leavePending performs the one legal departure from Pending: zero the
// amount, flip the status, drop the id from all three pending indexes.
func (l *Ledger) leavePending(t *Transfer, to Status) error {
	if err := l.pending.Remove(t.ID); err != nil {
		return fmt.Errorf("pending index out of sync for transfer %d: %w", t.ID, err)
	}
	if err := l.addrIndexes(t.Sender).sentPending.Remove(t.ID); err != nil {
		return fmt.Errorf("sender pending index out of sync for transfer %d: %w", t.ID, err)
	}
	if err := l.addrIndexes(t.Receiver).recvPending.Remove(t.ID); err != nil {
		return fmt.Errorf("receiver pending index out of sync for transfer %d: %w", t.ID, err)
	}
	t.Amount = 0
	t.Status = to
	return nil
}

// reenterPending is the rollback half of leavePending, used only when the
// outbound value transfer of a transition fails.
func (l *Ledger) reenterPending(t *Transfer, amount uint64) {
	t.Amount = amount
	t.Status = StatusPending
	l.pending.Insert(t.ID)
	l.addrIndexes(t.Sender).sentPending.Insert(t.ID)
	l.addrIndexes(t.Receiver).recvPending.Insert(t.ID)
}
