package ledger

import "time"

// NativeAsset is the sentinel asset id for the native currency. Every other
// asset id names a fungible token and must be whitelisted before use.
const NativeAsset = "native"

// Status tracks where a transfer is in its lifecycle. A transfer starts
// Pending and moves to exactly one terminal status; there is no way back.
type Status int

const (
	StatusNone Status = iota
	StatusPending
	StatusCanceled
	StatusClaimed
	StatusExpiredRefunded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCanceled:
		return "canceled"
	case StatusClaimed:
		return "claimed"
	case StatusExpiredRefunded:
		return "expired_and_refunded"
	default:
		return "none"
	}
}

// Terminal reports whether the status is one of the three end states.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusClaimed || s == StatusExpiredRefunded
}

// Transfer is one password-locked escrow. Amount is zeroed on every terminal
// transition but the record itself is kept for id-based lookup.
type Transfer struct {
	ID         uint64    `json:"id"`
	Sender     string    `json:"sender"`
	Receiver   string    `json:"receiver"`
	Asset      string    `json:"asset"`
	Amount     uint64    `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Commitment string    `json:"commitment"`
	Salt       []byte    `json:"salt"`
	Status     Status    `json:"status"`
}

// AddressActivity is the tracking record kept per participant. It drives the
// periodic history cleanup and the inactivity eviction in the maintenance
// sweep.
type AddressActivity struct {
	Address         string    `json:"address"`
	LastInteraction time.Time `json:"last_interaction"`
	LastCleanup     time.Time `json:"last_cleanup"`
}
