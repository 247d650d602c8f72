package handlers

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/agroledger/agroledger/pkg/api"
	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/mapping"
	"github.com/agroledger/agroledger/pkg/models"
	"github.com/go-chi/chi/v5"
)

// RegistryHandler holds the dependencies for land registry handlers.
type RegistryHandler struct {
	Registry *chain.LandRegistryClient
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(registry *chain.LandRegistryClient) *RegistryHandler {
	return &RegistryHandler{Registry: registry}
}

// RegisterPlantation handles the logic for registering a land parcel.
func (h *RegistryHandler) RegisterPlantation(w http.ResponseWriter, r *http.Request) {
	var req api.NewPlantation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	signer, err := chain.NewSigner(req.OwnerAddress)
	if err != nil {
		writeError(w, err)
		return
	}

	tokenID, tx, err := h.Registry.WithSigner(signer).RegisterPlantation(r.Context(), req.Name, req.Location, req.LandSize, req.CropType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, api.CreatedPlantation{
		TokenId:         tokenID.String(),
		TransactionHash: tx.Hash,
	})
}

// GetPlantation handles the logic for retrieving one plantation by token id.
func (h *RegistryHandler) GetPlantation(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "tokenId")
	tokenID, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid token id %q", raw)})
		return
	}

	record, err := h.Registry.GetPlantation(r.Context(), tokenID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping.ToApiPlantation(record))
}

// ListOwnerPlantations handles the logic for retrieving a wallet's plantations.
func (h *RegistryHandler) ListOwnerPlantations(w http.ResponseWriter, r *http.Request) {
	owner, err := models.ParseWalletAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", chain.ErrInvalidAddress, err))
		return
	}

	records, err := h.Registry.GetPlantationsByWallet(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	apiRecords := make([]*api.Plantation, len(records))
	for i, record := range records {
		apiRecords[i] = mapping.ToApiPlantation(&record)
	}
	writeJSON(w, http.StatusOK, apiRecords)
}

// GetStats handles the logic for retrieving registry-wide counters.
func (h *RegistryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Registry.GetPlantationStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping.ToApiPlantationStats(stats))
}
