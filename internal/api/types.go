package api

import (
	"github.com/passlock-labs/escrow-wallet.git/internal/bank"
	"github.com/passlock-labs/escrow-wallet.git/internal/events"
	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

type contextKey string

// API holds everything the HTTP handlers need.
type API struct {
	Ledger   *ledger.Ledger
	Bank     *bank.Bank
	Bus      *events.Bus
	Name     string
	HttpMode bool
}

func NewAPI(l *ledger.Ledger, b *bank.Bank, bus *events.Bus, name string, httpMode bool) *API {
	return &API{
		Ledger:   l,
		Bank:     b,
		Bus:      bus,
		Name:     name,
		HttpMode: httpMode,
	}
}

type CreateTransferRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Asset    string `json:"asset"`
	Amount   uint64 `json:"amount"`
	Provided uint64 `json:"provided"`
	Password string `json:"password"`
}

type CreateTransferResponse struct {
	TransferID uint64 `json:"transfer_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

type CancelTransferRequest struct {
	Caller     string `json:"caller"`
	TransferID uint64 `json:"transfer_id"`
}

type ClaimTransferRequest struct {
	Caller     string `json:"caller"`
	TransferID uint64 `json:"transfer_id"`
	Password   string `json:"password"`
}

type RefundTransferRequest struct {
	TransferID uint64 `json:"transfer_id"`
}

type BatchRefundRequest struct {
	TransferIDs []uint64 `json:"transfer_ids"`
}

type BatchRefundEntry struct {
	TransferID uint64 `json:"transfer_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type DepositRequest struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
}

type WithdrawFeesRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

type AssetRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
}

type OwnershipRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

type ParamUpdateRequest struct {
	Caller string  `json:"caller"`
	Name   string  `json:"name"`
	Value  uint64  `json:"value"`
	Tiers  *Tiers  `json:"tiers,omitempty"`
	Limits *Limits `json:"limits,omitempty"`
}

type Tiers struct {
	LevelOne   uint64 `json:"level_one"`
	LevelTwo   uint64 `json:"level_two"`
	LevelThree uint64 `json:"level_three"`
}

type Limits struct {
	LimitOne uint64 `json:"limit_one"`
	LimitTwo uint64 `json:"limit_two"`
}
