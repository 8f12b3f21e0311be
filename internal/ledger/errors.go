package ledger

import "errors"

// Validation errors, checked before any state is touched.
var (
	ErrZeroAmount          = errors.New("amount must be greater than zero")
	ErrReceiverRequired    = errors.New("receiver address is required")
	ErrSelfTransfer        = errors.New("sender and receiver must differ")
	ErrAssetNotWhitelisted = errors.New("asset is not whitelisted")
	ErrAmountBelowMinimum  = errors.New("amount is below the configured minimum")
	ErrPasswordRequired    = errors.New("password is required")
	ErrPasswordTooShort    = errors.New("password is shorter than the configured minimum")
)

// Authorization errors.
var (
	ErrOnlySenderCanCancel = errors.New("only the original sender can cancel")
	ErrInvalidReceiver     = errors.New("caller is not the receiver of this transfer")
	ErrNotOwner            = errors.New("caller is not the contract owner")
)

// State-conflict errors, always evaluated against live stored state.
var (
	ErrTransferNotPending     = errors.New("transfer is not pending")
	ErrCooldownActive         = errors.New("claim cooldown has not elapsed")
	ErrTransferNotExpired     = errors.New("transfer has not expired yet")
	ErrNoAmountToRefund       = errors.New("no amount left to refund")
	ErrIncorrectPassword      = errors.New("incorrect password")
	ErrAlreadyWhitelisted     = errors.New("asset is already whitelisted")
	ErrInsufficientFeeBalance = errors.New("withdrawal exceeds accumulated fee balance")
	ErrOperationInProgress    = errors.New("another operation on this transfer is in progress")
	ErrNotIndexed             = errors.New("id is not present in the index")
)

// Custody errors. ErrInsufficientPayment is wrapped with the required and
// provided amounts; ErrTransferFailed wraps the bank error so callers can
// tell a retryable custody failure from a state conflict.
var (
	ErrInsufficientPayment = errors.New("insufficient payment for amount plus fee")
	ErrTransferFailed      = errors.New("value transfer failed")
)
