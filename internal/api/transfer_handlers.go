package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/passlock-labs/escrow-wallet.git/internal/bank"
	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

// errorStatus maps a ledger error to an HTTP status code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ledger.ErrZeroAmount),
		errors.Is(err, ledger.ErrReceiverRequired),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, ledger.ErrAssetNotWhitelisted),
		errors.Is(err, ledger.ErrAmountBelowMinimum),
		errors.Is(err, ledger.ErrPasswordRequired),
		errors.Is(err, ledger.ErrPasswordTooShort),
		errors.Is(err, ledger.ErrInsufficientPayment),
		errors.Is(err, bank.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrOnlySenderCanCancel),
		errors.Is(err, ledger.ErrInvalidReceiver),
		errors.Is(err, ledger.ErrIncorrectPassword),
		errors.Is(err, ledger.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrTransferNotPending),
		errors.Is(err, ledger.ErrCooldownActive),
		errors.Is(err, ledger.ErrTransferNotExpired),
		errors.Is(err, ledger.ErrNoAmountToRefund),
		errors.Is(err, ledger.ErrAlreadyWhitelisted),
		errors.Is(err, ledger.ErrInsufficientFeeBalance),
		errors.Is(err, ledger.ErrOperationInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (a *API) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := a.Ledger.Create(req.Sender, req.Receiver, req.Asset, req.Amount, req.Provided, req.Password)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error creating transfer: %v", err), errorStatus(err))
		return
	}

	resp := CreateTransferResponse{
		TransferID: id,
		Status:     "success",
		Message:    "Transfer created",
	}

	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
	} else {
		log.Println("Response: ", string(respJson))
	}

	writeJSON(w, resp)
}

func (a *API) CancelTransferHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req CancelTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Ledger.Cancel(req.Caller, req.TransferID); err != nil {
		http.Error(w, fmt.Sprintf("Error canceling transfer: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: "Transfer canceled and refunded"})
}

func (a *API) ClaimTransferHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req ClaimTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Ledger.Claim(req.Caller, req.TransferID, req.Password); err != nil {
		http.Error(w, fmt.Sprintf("Error claiming transfer: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: "Transfer claimed"})
}

func (a *API) RefundTransferHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req RefundTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Ledger.Refund(req.TransferID); err != nil {
		http.Error(w, fmt.Sprintf("Error refunding transfer: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: "Transfer refunded to sender"})
}

func (a *API) BatchRefundHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req BatchRefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ids := req.TransferIDs
	if len(ids) == 0 {
		ids = a.Ledger.RefundableTransfers()
	}

	results := a.Ledger.RefundExpired(ids)
	entries := make([]BatchRefundEntry, 0, len(results))
	for _, res := range results {
		entry := BatchRefundEntry{TransferID: res.ID, Status: "success"}
		if res.Err != nil {
			entry.Status = "failed"
			entry.Message = res.Err.Error()
		}
		entries = append(entries, entry)
	}

	writeJSON(w, map[string]interface{}{"results": entries})
}
