package handlers

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/agroledger/agroledger/pkg/api"
	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/mapping"
	"github.com/agroledger/agroledger/pkg/models"
	"github.com/go-chi/chi/v5"
)

// MarketplaceHandler holds the dependencies for marketplace-related handlers.
type MarketplaceHandler struct {
	Marketplace *chain.MarketplaceClient
}

// NewMarketplaceHandler creates a new MarketplaceHandler.
func NewMarketplaceHandler(marketplace *chain.MarketplaceClient) *MarketplaceHandler {
	return &MarketplaceHandler{Marketplace: marketplace}
}

func listingIDParam(r *http.Request) (*big.Int, error) {
	raw := chi.URLParam(r, "listingId")
	id, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid listing id %q", raw)
	}
	return id, nil
}

// CreateListing handles the logic for publishing a new listing.
func (h *MarketplaceHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req api.NewListing
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	signer, err := chain.NewSigner(req.SellerAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	price, err := models.ParseAmount(req.PricePerUnit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	listingID, tx, err := h.Marketplace.WithSigner(signer).CreateListing(r.Context(), req.ProductName, req.Quantity, price)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, api.CreatedListing{
		ListingId:       listingID.String(),
		TransactionHash: tx.Hash,
	})
}

// GetListing handles the logic for retrieving one listing by id.
func (h *MarketplaceHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := listingIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	listing, err := h.Marketplace.GetListing(r.Context(), listingID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping.ToApiListing(listing))
}

// ListActiveListings handles the logic for retrieving all open listings.
func (h *MarketplaceHandler) ListActiveListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.Marketplace.GetActiveListings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	apiListings := make([]*api.Listing, len(listings))
	for i, listing := range listings {
		apiListings[i] = mapping.ToApiListing(&listing)
	}
	writeJSON(w, http.StatusOK, apiListings)
}

// ListSellerListings handles the logic for retrieving a seller's listings.
func (h *MarketplaceHandler) ListSellerListings(w http.ResponseWriter, r *http.Request) {
	seller, err := models.ParseWalletAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", chain.ErrInvalidAddress, err))
		return
	}

	listings, err := h.Marketplace.GetSellerListings(r.Context(), seller)
	if err != nil {
		writeError(w, err)
		return
	}

	apiListings := make([]*api.Listing, len(listings))
	for i, listing := range listings {
		apiListings[i] = mapping.ToApiListing(&listing)
	}
	writeJSON(w, http.StatusOK, apiListings)
}

// QuotePurchase handles the logic for computing the fee split of a
// prospective purchase without broadcasting anything.
func (h *MarketplaceHandler) QuotePurchase(w http.ResponseWriter, r *http.Request) {
	listingID, err := listingIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}
	quantity, err := strconv.ParseInt(r.URL.Query().Get("quantity"), 10, 64)
	if err != nil || quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: "quantity must be a positive integer"})
		return
	}

	listing, err := h.Marketplace.GetListing(r.Context(), listingID)
	if err != nil {
		writeError(w, err)
		return
	}

	cost, err := h.Marketplace.CalculatePurchaseCost(r.Context(), listing.PricePerUnit, quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	feeBps, err := h.Marketplace.PlatformFeeBps(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping.ToApiPurchaseQuote(cost, feeBps))
}

// BuyListing handles the logic for purchasing from a listing.
func (h *MarketplaceHandler) BuyListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := listingIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	var req api.BuyListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	signer, err := chain.NewSigner(req.BuyerAddress)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.Marketplace.WithSigner(signer).BuyFromListing(r.Context(), listingID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapping.ToApiTransaction(tx))
}

// CancelListing handles the logic for cancelling an active listing.
func (h *MarketplaceHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := listingIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	var req struct {
		SellerAddress string `json:"sellerAddress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	signer, err := chain.NewSigner(req.SellerAddress)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.Marketplace.WithSigner(signer).CancelListing(r.Context(), listingID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping.ToApiTransaction(tx))
}
