package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/agroledger/agroledger/pkg/models"
)

// ProductCatalog is a mock of the storage.ProductCatalog interface.
type ProductCatalog struct {
	mock.Mock
}

func (m *ProductCatalog) GetByFarm(ctx context.Context, farmID string) ([]models.Product, error) {
	args := m.Called(ctx, farmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *ProductCatalog) DecrementInventory(ctx context.Context, farmID, productID string, quantity int64, orderNumber string) error {
	args := m.Called(ctx, farmID, productID, quantity, orderNumber)
	return args.Error(0)
}
