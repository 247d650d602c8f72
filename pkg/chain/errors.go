package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agroledger/agroledger/pkg/models"
)

// ErrWalletNotConnected is returned by write operations when no signer is bound.
var ErrWalletNotConnected = errors.New("wallet not connected")

// ErrInvalidAddress is returned when a wallet or contract address is malformed.
var ErrInvalidAddress = errors.New("invalid address")

// ErrUnknownInterface is returned when a binding is requested for an interface
// kind this layer does not know.
var ErrUnknownInterface = errors.New("unknown contract interface")

// ErrNetworkUnavailable is returned after bounded retries of a read against an
// unreachable node.
var ErrNetworkUnavailable = errors.New("network unavailable")

// ErrTransactionRejected is returned when the signing environment refuses to
// sign a submitted transaction.
var ErrTransactionRejected = errors.New("transaction rejected by user")

// ErrConfirmationPending reports that a broadcast transaction has not reached
// the requested finality depth yet. It is a retryable state, not a failure:
// the transaction may still be included later.
var ErrConfirmationPending = errors.New("transaction confirmation pending")

// ErrListingNotFound is returned when a listing id does not exist on-chain.
var ErrListingNotFound = errors.New("listing not found")

// ErrListingInactive is returned for any mutation of a Sold or Cancelled
// listing. Those states are terminal.
var ErrListingInactive = errors.New("listing not active")

// ErrInsufficientQuantity is returned when a buy requests more units than the
// listing has left. No partial decrement happens.
var ErrInsufficientQuantity = errors.New("insufficient listing quantity")

// ErrNotAuthorized is returned when the caller is neither the listing's
// seller nor an administrative capability.
var ErrNotAuthorized = errors.New("not authorized")

// ErrPlantationNotFound is returned when a plantation token id does not exist.
var ErrPlantationNotFound = errors.New("plantation not found")

// InsufficientAvailableBalanceError reports a spend that exceeds the wallet's
// available balance. Available and Total are carried separately so callers can
// tell a genuinely empty wallet from one whose funds are frozen pending
// verification.
type InsufficientAvailableBalanceError struct {
	Requested models.Amount
	Available models.Amount
	Total     models.Amount
}

func (e *InsufficientAvailableBalanceError) Error() string {
	if e.Requested.Cmp(e.Total) <= 0 {
		return fmt.Sprintf("insufficient available balance: requested %s, available %s (total %s includes frozen funds)",
			e.Requested, e.Available, e.Total)
	}
	return fmt.Sprintf("insufficient available balance: requested %s, available %s, total %s",
		e.Requested, e.Available, e.Total)
}

// FrozenShortfall reports whether the spend would have been covered by the
// total balance, i.e. it was blocked only by frozen funds.
func (e *InsufficientAvailableBalanceError) FrozenShortfall() bool {
	return e.Requested.Cmp(e.Total) <= 0
}

// TransactionRevertedError reports a transaction whose execution faulted
// on-chain after inclusion. The payment did not happen.
type TransactionRevertedError struct {
	TxHash string
	Reason string
}

func (e *TransactionRevertedError) Error() string {
	return fmt.Sprintf("transaction %s reverted: %s", e.TxHash, e.Reason)
}

// normalizeFault maps a FAULT exception message onto the error taxonomy,
// keeping the original message attached.
func normalizeFault(txHash, exception string) error {
	lower := strings.ToLower(exception)
	switch {
	case strings.Contains(lower, "listing not found"):
		return fmt.Errorf("%w: %s", ErrListingNotFound, exception)
	case strings.Contains(lower, "listing not active"), strings.Contains(lower, "listing closed"):
		return fmt.Errorf("%w: %s", ErrListingInactive, exception)
	case strings.Contains(lower, "insufficient quantity"):
		return fmt.Errorf("%w: %s", ErrInsufficientQuantity, exception)
	case strings.Contains(lower, "not authorized"), strings.Contains(lower, "unauthorized"):
		return fmt.Errorf("%w: %s", ErrNotAuthorized, exception)
	case strings.Contains(lower, "plantation not found"), strings.Contains(lower, "token not found"):
		return fmt.Errorf("%w: %s", ErrPlantationNotFound, exception)
	case strings.Contains(lower, "rejected by user"):
		return fmt.Errorf("%w: %s", ErrTransactionRejected, exception)
	default:
		return &TransactionRevertedError{TxHash: txHash, Reason: exception}
	}
}
