package api

import (
	"net/http"
	"strconv"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

func queryUint64(r *http.Request, name string) (uint64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (a *API) GetTransferHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := queryUint64(r, "id")
	if !ok {
		http.Error(w, "Missing or invalid id parameter", http.StatusBadRequest)
		return
	}
	writeJSON(w, a.Ledger.GetTransfer(id))
}

// TransferListHandler serves the global status indexes. The "status" query
// parameter selects which one; address-scoped variants additionally take
// "address".
func (a *API) TransferListHandler(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	address := r.URL.Query().Get("address")

	var ids []uint64
	switch status {
	case "pending":
		if address != "" {
			role := r.URL.Query().Get("role")
			if role == "receiver" {
				ids = a.Ledger.PendingByReceiver(address)
			} else {
				ids = a.Ledger.PendingBySender(address)
			}
		} else {
			ids = a.Ledger.PendingTransfers()
		}
	case "canceled":
		if address != "" {
			ids = a.Ledger.CanceledBySender(address)
		} else {
			ids = a.Ledger.CanceledTransfers()
		}
	case "claimed":
		if address != "" {
			ids = a.Ledger.ClaimedByReceiver(address)
		} else {
			ids = a.Ledger.ClaimedTransfers()
		}
	case "expired_and_refunded":
		if address != "" {
			ids = a.Ledger.ExpiredBySender(address)
		} else {
			ids = a.Ledger.ExpiredTransfers()
		}
	default:
		http.Error(w, "Unknown status filter", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]interface{}{"status": status, "transfer_ids": ids})
}

func (a *API) StatusHandler(w http.ResponseWriter, r *http.Request) {
	assets := a.Ledger.WhitelistedAssets()
	held := make(map[string]uint64, len(assets))
	fees := make(map[string]uint64, len(assets))
	for _, asset := range assets {
		held[asset] = a.Ledger.HeldBalance(asset)
		fees[asset] = a.Ledger.FeeBalance(asset)
	}

	writeJSON(w, map[string]interface{}{
		"owner":          a.Ledger.Owner(),
		"transfer_count": a.Ledger.TransferCount(),
		"pending":        len(a.Ledger.PendingTransfers()),
		"assets":         assets,
		"held_balances":  held,
		"fee_balances":   fees,
	})
}

func (a *API) ParamsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.Ledger.Params())
}

func (a *API) CooldownHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := queryUint64(r, "id")
	if !ok {
		http.Error(w, "Missing or invalid id parameter", http.StatusBadRequest)
		return
	}
	remaining := a.Ledger.CooldownRemaining(id)
	writeJSON(w, map[string]interface{}{
		"transfer_id":        id,
		"cooldown_remaining": remaining.Seconds(),
	})
}

func (a *API) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	asset := r.URL.Query().Get("asset")
	if account == "" {
		http.Error(w, "Missing account parameter", http.StatusBadRequest)
		return
	}
	if asset == "" {
		asset = ledger.NativeAsset
	}
	writeJSON(w, map[string]interface{}{
		"account": account,
		"asset":   asset,
		"balance": a.Bank.BalanceOf(account, asset),
	})
}

// WorkHandler reports what a sweeper run would do right now. External
// keepers poll it to decide whether to trigger a sweep.
func (a *API) WorkHandler(w http.ResponseWriter, r *http.Request) {
	refundable := a.Ledger.RefundableTransfers()
	writeJSON(w, map[string]interface{}{
		"refundable_transfers": refundable,
		"maintenance_due":      a.Ledger.MaintenanceDue(),
	})
}

func (a *API) TrackedAddressesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"addresses": a.Ledger.TrackedAddresses(),
	})
}
