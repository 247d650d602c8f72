package storage

import (
	"context"
	"time"

	"github.com/agroledger/agroledger/pkg/models"
)

// OrderReader defines the interface for reading purchase receipts.
type OrderReader interface {
	// GetReceipt retrieves a receipt by its order number.
	GetReceipt(ctx context.Context, orderNumber string) (*models.PurchaseReceipt, error)

	// ListReconciliationPending retrieves receipts stuck in the
	// reconciliation-pending state for longer than maxAge, for operator
	// visibility and retry.
	ListReconciliationPending(ctx context.Context, maxAge time.Duration) ([]models.PurchaseReceipt, error)
}

// OrderWriter defines the interface for recording and advancing receipts.
type OrderWriter interface {
	// RecordReceipt persists a receipt exactly once per order number. It is
	// safe to call twice with the same order number: the second call leaves
	// the stored receipt untouched and returns it with created == false.
	RecordReceipt(ctx context.Context, receipt *models.PurchaseReceipt) (stored *models.PurchaseReceipt, created bool, err error)

	// UpdateReceiptStatus advances a receipt's status. Paid is terminal;
	// the store rejects regressions from paid.
	UpdateReceiptStatus(ctx context.Context, orderNumber string, status models.ReceiptStatus) error
}

// OrderStore combines the reader and writer interfaces. It is the contract
// the reconciliation engine depends on.
type OrderStore interface {
	OrderReader
	OrderWriter
}
