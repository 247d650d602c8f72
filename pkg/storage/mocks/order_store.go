package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/agroledger/agroledger/pkg/models"
)

// OrderStore is a mock of the storage.OrderStore interface.
type OrderStore struct {
	mock.Mock
}

func (m *OrderStore) GetReceipt(ctx context.Context, orderNumber string) (*models.PurchaseReceipt, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseReceipt), args.Error(1)
}

func (m *OrderStore) ListReconciliationPending(ctx context.Context, maxAge time.Duration) ([]models.PurchaseReceipt, error) {
	args := m.Called(ctx, maxAge)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PurchaseReceipt), args.Error(1)
}

func (m *OrderStore) RecordReceipt(ctx context.Context, receipt *models.PurchaseReceipt) (*models.PurchaseReceipt, bool, error) {
	args := m.Called(ctx, receipt)

	var stored *models.PurchaseReceipt
	if rf, ok := args.Get(0).(func(context.Context, *models.PurchaseReceipt) *models.PurchaseReceipt); ok {
		stored = rf(ctx, receipt)
	} else if args.Get(0) != nil {
		stored = args.Get(0).(*models.PurchaseReceipt)
	}
	return stored, args.Bool(1), args.Error(2)
}

func (m *OrderStore) UpdateReceiptStatus(ctx context.Context, orderNumber string, status models.ReceiptStatus) error {
	args := m.Called(ctx, orderNumber, status)
	return args.Error(0)
}
