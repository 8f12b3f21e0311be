package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/passlock-labs/escrow-wallet.git/internal/ledger"
)

func (a *API) WithdrawFeesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req WithdrawFeesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Ledger.WithdrawFees(req.Caller, req.Asset, req.Amount); err != nil {
		http.Error(w, fmt.Sprintf("Error withdrawing fees: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: "Fees withdrawn"})
}

func (a *API) AddAssetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req AssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Ledger.AddAsset(req.Caller, req.Asset); err != nil {
		http.Error(w, fmt.Sprintf("Error whitelisting asset: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: "Asset whitelisted"})
}

func (a *API) RemoveAssetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req AssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Ledger.RemoveAsset(req.Caller, req.Asset); err != nil {
		http.Error(w, fmt.Sprintf("Error delisting asset: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: "Asset delisted"})
}

func (a *API) TransferOwnershipHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req OwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.Ledger.TransferOwnership(req.Caller, req.NewOwner); err != nil {
		http.Error(w, fmt.Sprintf("Error transferring ownership: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: "Ownership transferred"})
}

func (a *API) DepositHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Asset == "" {
		req.Asset = ledger.NativeAsset
	}

	if err := a.Bank.Deposit(req.Account, req.Asset, req.Amount); err != nil {
		http.Error(w, fmt.Sprintf("Error depositing funds: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: "Funds deposited"})
}

// UpdateParamHandler dispatches a single parameter change by name. Tier and
// limit updates carry their own payload shapes.
func (a *API) UpdateParamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req ParamUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	switch req.Name {
	case "min_amount":
		err = a.Ledger.SetMinAmount(req.Caller, req.Value)
	case "min_password_length":
		err = a.Ledger.SetMinPasswordLength(req.Caller, int(req.Value))
	case "cooldown_period":
		err = a.Ledger.SetCooldownPeriod(req.Caller, int64(req.Value))
	case "availability_period":
		err = a.Ledger.SetAvailabilityPeriod(req.Caller, int64(req.Value))
	case "cleanup_interval":
		err = a.Ledger.SetCleanupInterval(req.Caller, int64(req.Value))
	case "inactivity_threshold":
		err = a.Ledger.SetInactivityThreshold(req.Caller, int64(req.Value))
	case "maintenance_batch_limit":
		err = a.Ledger.SetMaintenanceBatchLimit(req.Caller, int(req.Value))
	case "fee_scaling_factor":
		err = a.Ledger.SetFeeScalingFactor(req.Caller, req.Value)
	case "fee_tiers":
		if req.Tiers == nil {
			http.Error(w, "Missing tiers payload", http.StatusBadRequest)
			return
		}
		err = a.Ledger.SetFeeTiers(req.Caller, ledger.FeeTiers{
			LevelOne:   req.Tiers.LevelOne,
			LevelTwo:   req.Tiers.LevelTwo,
			LevelThree: req.Tiers.LevelThree,
		})
	case "fee_limits":
		if req.Limits == nil {
			http.Error(w, "Missing limits payload", http.StatusBadRequest)
			return
		}
		err = a.Ledger.SetFeeLimits(req.Caller, req.Limits.LimitOne, req.Limits.LimitTwo)
	default:
		http.Error(w, fmt.Sprintf("Unknown parameter: %s", req.Name), http.StatusBadRequest)
		return
	}

	if err != nil {
		http.Error(w, fmt.Sprintf("Error updating parameter: %v", err), errorStatus(err))
		return
	}

	writeJSON(w, ActionResponse{Status: "success", Message: fmt.Sprintf("Parameter %s updated", req.Name)})
}

// MaintenanceHandler runs one maintenance pass immediately.
func (a *API) MaintenanceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	result := a.Ledger.PerformMaintenance()
	writeJSON(w, result)
}
