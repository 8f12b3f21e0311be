package ledger

// Event topics published on every lifecycle transition. External
// collaborators (UI, automation) subscribe by topic.
const (
	TopicTransferCreated  = "transfer:created"
	TopicTransferCanceled = "transfer:canceled"
	TopicTransferClaimed  = "transfer:claimed"
	TopicTransferRefunded = "transfer:refunded"
	TopicFeesWithdrawn    = "fees:withdrawn"
	TopicMaintenanceDone  = "maintenance:performed"
)

// TransferEvent is the payload for the four lifecycle topics.
type TransferEvent struct {
	ID       uint64 `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Asset    string `json:"asset"`
	Amount   uint64 `json:"amount"`
	Fee      uint64 `json:"fee,omitempty"`
}

// FeeWithdrawalEvent is the payload for TopicFeesWithdrawn.
type FeeWithdrawalEvent struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
	Owner  string `json:"owner"`
}

// MaintenanceEvent is the payload for TopicMaintenanceDone.
type MaintenanceEvent struct {
	AddressesCleaned int `json:"addresses_cleaned"`
	AddressesEvicted int `json:"addresses_evicted"`
}

// Notifier receives every event the ledger emits. The events package
// provides the production implementation; a nil notifier is legal and
// silently drops everything.
type Notifier interface {
	Publish(topic string, payload interface{})
}
