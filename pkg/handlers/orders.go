package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/agroledger/agroledger/pkg/api"
	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/mapping"
	"github.com/agroledger/agroledger/pkg/models"
	"github.com/agroledger/agroledger/pkg/reconcile"
	"github.com/agroledger/agroledger/pkg/scheduler"
	"github.com/agroledger/agroledger/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// Reconciler turns a submitted purchase transaction into a receipt.
// *reconcile.Engine satisfies it.
type Reconciler interface {
	Reconcile(ctx context.Context, sub *models.PurchaseSubmission) (*models.PurchaseReceipt, error)
}

// OrdersHandler holds the dependencies for purchase and receipt handlers.
type OrdersHandler struct {
	Engine  Reconciler
	Orders  storage.OrderReader
	Catalog storage.ProductCatalog
	Retries scheduler.Scheduler

	// ConfirmWindow bounds how long a synchronous purchase submission waits
	// for finality before falling back to the queue.
	ConfirmWindow time.Duration
}

// NewOrdersHandler creates a new OrdersHandler.
func NewOrdersHandler(engine Reconciler, orders storage.OrderReader, catalog storage.ProductCatalog, retries scheduler.Scheduler) *OrdersHandler {
	return &OrdersHandler{
		Engine:        engine,
		Orders:        orders,
		Catalog:       catalog,
		Retries:       retries,
		ConfirmWindow: 25 * time.Second,
	}
}

// SubmitPurchase handles the logic for reconciling a broadcast purchase
// transaction. It waits for finality within ConfirmWindow; if the chain is
// slower than that, the submission is queued and the client gets 202 with
// the order number to poll.
func (h *OrdersHandler) SubmitPurchase(w http.ResponseWriter, r *http.Request) {
	var req api.NewPurchase
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	sub, err := toSubmission(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, api.Error{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.ConfirmWindow)
	defer cancel()

	receipt, err := h.Engine.Reconcile(ctx, sub)
	if err != nil {
		if errors.Is(err, chain.ErrConfirmationPending) {
			// Not final yet. Hand the submission to the queue and let the
			// client poll the receipt.
			if h.Retries != nil {
				if qerr := h.Retries.ScheduleReconciliation(r.Context(), sub, 0); qerr != nil {
					writeError(w, qerr)
					return
				}
			}
			writeJSON(w, http.StatusAccepted, api.Receipt{
				OrderNumber:     reconcile.OrderNumberForTx(sub.TxHash),
				TransactionHash: sub.TxHash,
				Status:          string(models.ReceiptPending),
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapping.ToApiReceipt(receipt))
}

func toSubmission(req *api.NewPurchase) (*models.PurchaseSubmission, error) {
	if req.TransactionHash == "" {
		return nil, fmt.Errorf("transactionHash required")
	}
	buyer, err := models.ParseWalletAddress(req.BuyerAddress)
	if err != nil {
		return nil, err
	}
	listingID, ok := new(big.Int).SetString(req.ListingId, 10)
	if !ok {
		return nil, fmt.Errorf("invalid listing id %q", req.ListingId)
	}
	if req.FarmId == "" {
		return nil, fmt.Errorf("farmId required")
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	return &models.PurchaseSubmission{
		TxHash:    req.TransactionHash,
		Buyer:     buyer,
		ListingID: listingID,
		FarmID:    req.FarmId,
		Quantity:  req.Quantity,
	}, nil
}

// GetReceipt handles the logic for retrieving a receipt by order number.
func (h *OrdersHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.Orders.GetReceipt(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapping.ToApiReceipt(receipt))
}

// ListStuckReceipts handles the logic for listing receipts parked in the
// reconciliation-pending state.
func (h *OrdersHandler) ListStuckReceipts(w http.ResponseWriter, r *http.Request) {
	maxAge := time.Duration(0)
	if raw := r.URL.Query().Get("olderThanSeconds"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs < 0 {
			writeJSON(w, http.StatusBadRequest, api.Error{Error: "olderThanSeconds must be a non-negative integer"})
			return
		}
		maxAge = time.Duration(secs) * time.Second
	}

	receipts, err := h.Orders.ListReconciliationPending(r.Context(), maxAge)
	if err != nil {
		writeError(w, err)
		return
	}

	apiReceipts := make([]*api.Receipt, len(receipts))
	for i, receipt := range receipts {
		apiReceipts[i] = mapping.ToApiReceipt(&receipt)
	}
	writeJSON(w, http.StatusOK, apiReceipts)
}

// ListFarmProducts handles the logic for retrieving one farm's catalog.
func (h *OrdersHandler) ListFarmProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.GetByFarm(r.Context(), chi.URLParam(r, "farmId"))
	if err != nil {
		writeError(w, err)
		return
	}

	apiProducts := make([]*api.Product, len(products))
	for i, product := range products {
		apiProducts[i] = mapping.ToApiProduct(&product)
	}
	writeJSON(w, http.StatusOK, apiProducts)
}
