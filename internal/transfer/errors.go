package transfer

import "errors"

// Error taxonomy for the transfer protocol. Handlers map these onto
// structured {success:false, message} payloads, they are never swallowed.
var (
	// ErrValidation means the amount was malformed or not positive.
	ErrValidation = errors.New("amount must be a positive number")
	// ErrNotFound means a wallet or user involved in the transfer is missing.
	ErrNotFound = errors.New("wallet not found")
	// ErrInsufficientFunds means the sender's balance is below the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNoPendingTransfer means confirm/cancel was called without a stage.
	ErrNoPendingTransfer = errors.New("no pending transfer for this session")
	// ErrCommitFailed means the commit transaction rolled back; nothing was
	// applied and the caller must re-stage.
	ErrCommitFailed = errors.New("transfer commit failed")
	// ErrHighRisk means the fraud heuristic rated the transfer high and the
	// stage was refused.
	ErrHighRisk = errors.New("transfer blocked: high fraud risk")
)
