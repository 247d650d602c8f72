package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agroledger/agroledger/pkg/api"
	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/storage"
)

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// writeError maps a domain error onto an HTTP status and writes the error body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), api.Error{Error: err.Error()})
}

func statusFromError(err error) int {
	var insufficientBalance *chain.InsufficientAvailableBalanceError
	var reverted *chain.TransactionRevertedError

	switch {
	case errors.Is(err, chain.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, chain.ErrWalletNotConnected):
		return http.StatusUnauthorized
	case errors.Is(err, chain.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, chain.ErrListingNotFound),
		errors.Is(err, chain.ErrPlantationNotFound),
		errors.Is(err, storage.ErrReceiptNotFound),
		errors.Is(err, storage.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, chain.ErrListingInactive):
		return http.StatusConflict
	case errors.Is(err, chain.ErrInsufficientQuantity),
		errors.Is(err, storage.ErrInsufficientInventory),
		errors.As(err, &insufficientBalance),
		errors.As(err, &reverted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chain.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
