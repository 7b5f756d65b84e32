package economy

import "errors"

var (
	ErrBadAmount         = errors.New("amount must be a positive integer")
	ErrSameHolder        = errors.New("source and destination are the same holder")
	ErrUnknownKind       = errors.New("unknown holder kind")
	ErrHolderNotFound    = errors.New("holder not found")
	ErrNotAuthorized     = errors.New("not authorized to move funds from this holder")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInternalInconsistency marks the residual window where the storage
	// driver reported a commit failure after possibly applying it. It is
	// routed to operators and never auto-corrected.
	ErrInternalInconsistency = errors.New("transfer outcome uncertain, operator attention required")
)
