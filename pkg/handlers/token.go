package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agroledger/agroledger/pkg/api"
	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/mapping"
	"github.com/agroledger/agroledger/pkg/models"
	"github.com/agroledger/agroledger/pkg/tokenapi"
	"github.com/go-chi/chi/v5"
)

// TokenHandler holds the dependencies for token-related handlers.
type TokenHandler struct {
	Ledger       *chain.TokenLedgerClient
	TokenService *tokenapi.Client
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(ledger *chain.TokenLedgerClient, tokenService *tokenapi.Client) *TokenHandler {
	return &TokenHandler{Ledger: ledger, TokenService: tokenService}
}

// GetBalance handles the logic for retrieving a wallet's balance split.
func (h *TokenHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	wallet, err := models.ParseWalletAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", chain.ErrInvalidAddress, err))
		return
	}

	balance, err := h.Ledger.GetBalance(r.Context(), wallet)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping.ToApiBalance(balance))
}

// GetTokenInfo handles the logic for retrieving token metadata.
func (h *TokenHandler) GetTokenInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.Ledger.GetTokenInfo(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping.ToApiTokenInfo(info))
}

// Transfer handles the logic for moving tokens between wallets.
func (h *TokenHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req api.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	signer, err := chain.NewSigner(req.FromAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := models.ParseWalletAddress(req.ToAddress)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", chain.ErrInvalidAddress, err))
		return
	}
	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	tx, err := h.Ledger.WithSigner(signer).Transfer(r.Context(), to, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapping.ToApiTransaction(tx))
}

// Approve handles the logic for authorizing a spender allowance.
func (h *TokenHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req api.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	signer, err := chain.NewSigner(req.OwnerAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	spender, err := models.ParseWalletAddress(req.SpenderAddress)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", chain.ErrInvalidAddress, err))
		return
	}
	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	tx, err := h.Ledger.WithSigner(signer).Approve(r.Context(), spender, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapping.ToApiTransaction(tx))
}

// Faucet handles the logic for requesting test tokens from the token service.
func (h *TokenHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	var req api.FaucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	to, err := models.ParseWalletAddress(req.ToAddress)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", chain.ErrInvalidAddress, err))
		return
	}

	tx, err := h.TokenService.RequestFaucet(r.Context(), to)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapping.ToApiTransaction(tx))
}

// BuyTokens handles the logic for buying tokens through the token service.
func (h *TokenHandler) BuyTokens(w http.ResponseWriter, r *http.Request) {
	var req api.BuyTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	to, err := models.ParseWalletAddress(req.ToAddress)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", chain.ErrInvalidAddress, err))
		return
	}
	amount, err := models.ParseAmount(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	tx, err := h.TokenService.BuyTokens(r.Context(), to, amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapping.ToApiTransaction(tx))
}
