// Package reconcile bridges confirmed on-chain purchases into consistent
// off-chain order records, exactly once, even under retries and partial
// failures.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/models"
	"github.com/agroledger/agroledger/pkg/scheduler"
	"github.com/agroledger/agroledger/pkg/storage"
)

// Confirmer waits for a transaction to reach finality depth.
// *chain.Client satisfies it.
type Confirmer interface {
	WaitForConfirmation(ctx context.Context, handle models.TxHandle, finalityDepth uint64) (*models.TxConfirmation, error)
}

// ListingReader provides the authoritative listing and fee data for a
// purchase. *chain.MarketplaceClient satisfies it.
type ListingReader interface {
	GetListing(ctx context.Context, listingID *big.Int) (*models.Listing, error)
	CalculatePurchaseCost(ctx context.Context, pricePerUnit models.Amount, quantity int64) (*models.PurchaseCost, error)
}

// Engine turns submitted purchase transactions into purchase receipts.
//
// The order number is derived from the transaction hash, so reconciling the
// same transaction any number of times yields exactly one receipt. The
// payment itself is final on the chain and is never rolled back here; any
// failure after confirmation parks the receipt in reconciliation-pending and
// schedules a retry.
type Engine struct {
	confirmer     Confirmer
	marketplace   ListingReader
	orders        storage.OrderStore
	catalog       storage.ProductCatalog
	retries       scheduler.Scheduler
	finalityDepth uint64
	retryDelay    time.Duration
	logger        *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	Confirmer     Confirmer
	Marketplace   ListingReader
	Orders        storage.OrderStore
	Catalog       storage.ProductCatalog
	Retries       scheduler.Scheduler
	FinalityDepth uint64        // minimum confirmations; defaults to 1
	RetryDelay    time.Duration // delay before a reconciliation retry
	Logger        *slog.Logger
}

// New creates a reconciliation engine.
func New(cfg Config) *Engine {
	depth := cfg.FinalityDepth
	if depth == 0 {
		depth = chain.DefaultFinalityDepth
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		confirmer:     cfg.Confirmer,
		marketplace:   cfg.Marketplace,
		orders:        cfg.Orders,
		catalog:       cfg.Catalog,
		retries:       cfg.Retries,
		finalityDepth: depth,
		retryDelay:    retryDelay,
		logger:        logger,
	}
}

// OrderNumberForTx derives the receipt order number from the transaction
// hash. Deterministic, so it doubles as the reconciliation idempotence key.
func OrderNumberForTx(txHash string) string {
	h := strings.TrimPrefix(strings.TrimPrefix(txHash, "0x"), "0X")
	if len(h) > 8 {
		h = h[len(h)-8:]
	}
	return "ORD-" + strings.ToUpper(h)
}

// SubmissionFromReceipt rebuilds the queue message for a parked receipt so
// the retry sweep can re-enqueue it.
func SubmissionFromReceipt(r *models.PurchaseReceipt) (*models.PurchaseSubmission, error) {
	if r.ListingID == nil || r.FarmID == "" || len(r.Products) == 0 {
		return nil, fmt.Errorf("receipt %s is missing reconciliation context", r.OrderNumber)
	}
	return &models.PurchaseSubmission{
		TxHash:    r.TxHash,
		Buyer:     r.Buyer,
		ListingID: r.ListingID,
		FarmID:    r.FarmID,
		Quantity:  r.Products[0].Quantity,
	}, nil
}

// Reconcile processes one submitted purchase transaction.
//
// Outcomes:
//   - the receipt, fully paid, on success;
//   - the existing receipt, unchanged, when the transaction was already
//     reconciled;
//   - the receipt in reconciliation-pending with a retry scheduled, when a
//     step after payment confirmation failed;
//   - chain.ErrConfirmationPending when the transaction has not reached
//     finality within the caller's deadline — a retryable state, not a
//     failure;
//   - an error when the payment itself reverted or was never valid.
func (e *Engine) Reconcile(ctx context.Context, sub *models.PurchaseSubmission) (*models.PurchaseReceipt, error) {
	if sub == nil || sub.TxHash == "" {
		return nil, fmt.Errorf("submission missing transaction hash")
	}
	orderNumber := OrderNumberForTx(sub.TxHash)
	log := e.logger.With(slog.String("order_number", orderNumber), slog.String("tx_hash", sub.TxHash))

	// Idempotence path: a receipt for this transaction may already exist.
	existing, err := e.orders.GetReceipt(ctx, orderNumber)
	switch {
	case err == nil:
		if existing.Status == models.ReceiptPaid {
			log.Info("transaction already reconciled")
			return existing, nil
		}
		// Receipt exists but reconciliation did not finish; resume after
		// the recording step.
		log.Info("resuming reconciliation", slog.String("status", string(existing.Status)))
		return e.finish(ctx, sub, existing, log)
	case errors.Is(err, storage.ErrReceiptNotFound):
		// First reconciliation of this transaction.
	default:
		return nil, fmt.Errorf("failed to check for existing receipt: %w", err)
	}

	// Step 1: the payment must be final before anything off-chain moves.
	if _, err := e.confirmer.WaitForConfirmation(ctx, models.TxHandle{Hash: sub.TxHash}, e.finalityDepth); err != nil {
		if errors.Is(err, chain.ErrConfirmationPending) {
			log.Info("transaction not yet final")
			return nil, err
		}
		return nil, fmt.Errorf("purchase transaction did not confirm: %w", err)
	}

	// Steps 2-3: build the receipt with the catalog snapshot and record it
	// under the deterministic order number.
	receipt, err := e.buildReceipt(ctx, sub, orderNumber)
	if err != nil {
		return nil, err
	}

	stored, created, err := e.orders.RecordReceipt(ctx, receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to record receipt: %w", err)
	}
	if !created {
		// A concurrent reconciliation got here first.
		if stored.Status == models.ReceiptPaid {
			return stored, nil
		}
		return e.finish(ctx, sub, stored, log)
	}
	log.Info("receipt recorded",
		slog.String("buyer", stored.Buyer.String()),
		slog.String("total", stored.Total.String()))

	return e.finish(ctx, sub, stored, log)
}

// finish runs the post-recording steps: inventory decrement, then paid.
func (e *Engine) finish(ctx context.Context, sub *models.PurchaseSubmission, receipt *models.PurchaseReceipt, log *slog.Logger) (*models.PurchaseReceipt, error) {
	// Step 4: decrement inventory exactly once per transaction.
	if err := e.decrementInventory(ctx, sub, receipt); err != nil {
		// The payment already happened and is never rolled back. Park the
		// receipt where an operator can see it and schedule a retry.
		log.Error("inventory adjustment failed, parking receipt", slog.Any("error", err))
		return e.park(ctx, sub, receipt, log)
	}

	// Step 5: paid, only now that confirmation and inventory both held.
	if err := e.orders.UpdateReceiptStatus(ctx, receipt.OrderNumber, models.ReceiptPaid); err != nil {
		log.Error("failed to mark receipt paid", slog.Any("error", err))
		return e.park(ctx, sub, receipt, log)
	}

	receipt.Status = models.ReceiptPaid
	log.Info("purchase reconciled")
	return receipt, nil
}

func (e *Engine) decrementInventory(ctx context.Context, sub *models.PurchaseSubmission, receipt *models.PurchaseReceipt) error {
	productID := ""
	for _, p := range receipt.Products {
		if p.ProductID != "" {
			productID = p.ProductID
			break
		}
	}
	if productID == "" {
		// The snapshot could not resolve the catalog product earlier;
		// try again now.
		var err error
		productID, err = e.lookupProductID(ctx, sub.FarmID, receipt)
		if err != nil {
			return err
		}
	}

	err := e.catalog.DecrementInventory(ctx, sub.FarmID, productID, sub.Quantity, receipt.OrderNumber)
	if err != nil && !errors.Is(err, storage.ErrInventoryAlreadyAdjusted) {
		return err
	}
	return nil
}

func (e *Engine) lookupProductID(ctx context.Context, farmID string, receipt *models.PurchaseReceipt) (string, error) {
	if len(receipt.Products) == 0 {
		return "", fmt.Errorf("receipt %s has no product lines", receipt.OrderNumber)
	}
	products, err := e.catalog.GetByFarm(ctx, farmID)
	if err != nil {
		return "", fmt.Errorf("failed to load farm catalog: %w", err)
	}
	for _, p := range products {
		if p.Name == receipt.Products[0].Name {
			return p.ProductID, nil
		}
	}
	return "", fmt.Errorf("%w: %q on farm %s", storage.ErrProductNotFound, receipt.Products[0].Name, farmID)
}

// park marks the receipt reconciliation-pending and enqueues a retry. The
// receipt stays visible to operators; nothing is dropped.
func (e *Engine) park(ctx context.Context, sub *models.PurchaseSubmission, receipt *models.PurchaseReceipt, log *slog.Logger) (*models.PurchaseReceipt, error) {
	if err := e.orders.UpdateReceiptStatus(ctx, receipt.OrderNumber, models.ReceiptReconciliationPending); err != nil {
		return nil, fmt.Errorf("failed to park receipt %s: %w", receipt.OrderNumber, err)
	}
	receipt.Status = models.ReceiptReconciliationPending

	if e.retries != nil {
		if err := e.retries.ScheduleReconciliation(ctx, sub, e.retryDelay); err != nil {
			// The retry lambda sweeps parked receipts, so losing this
			// enqueue delays the retry but does not lose the receipt.
			log.Error("failed to schedule reconciliation retry", slog.Any("error", err))
		}
	}
	return receipt, nil
}

// buildReceipt snapshots listing, fee and catalog data into a new receipt.
// Catalog data is mutable; copying it now keeps historical receipts stable.
func (e *Engine) buildReceipt(ctx context.Context, sub *models.PurchaseSubmission, orderNumber string) (*models.PurchaseReceipt, error) {
	listing, err := e.marketplace.GetListing(ctx, sub.ListingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing %s: %w", sub.ListingID, err)
	}

	cost, err := e.marketplace.CalculatePurchaseCost(ctx, listing.PricePerUnit, sub.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to compute purchase cost: %w", err)
	}

	line := models.ReceiptProduct{
		Name:         listing.ProductName,
		Quantity:     sub.Quantity,
		PricePerUnit: listing.PricePerUnit,
	}
	// Enrich the line from the catalog when it is reachable; the listing
	// data above is enough to keep reconciliation moving when it is not.
	if products, err := e.catalog.GetByFarm(ctx, sub.FarmID); err == nil {
		for _, p := range products {
			if p.Name == listing.ProductName {
				line.ProductID = p.ProductID
				line.FarmName = p.FarmName
				break
			}
		}
	}

	now := time.Now().UTC()
	return &models.PurchaseReceipt{
		OrderNumber: orderNumber,
		TxHash:      sub.TxHash,
		Buyer:       sub.Buyer,
		Seller:      listing.Seller,
		ListingID:   sub.ListingID,
		FarmID:      sub.FarmID,
		Products:    []models.ReceiptProduct{line},
		Subtotal:    cost.TotalCost.Sub(cost.PlatformFee),
		Fee:         cost.PlatformFee,
		Total:       cost.TotalCost,
		Status:      models.ReceiptPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
