package storage

import (
	"context"

	"github.com/agroledger/agroledger/pkg/models"
)

// ProductCatalog defines the interface for the off-chain product inventory.
type ProductCatalog interface {
	// GetByFarm retrieves all products of one farm.
	GetByFarm(ctx context.Context, farmID string) ([]models.Product, error)

	// DecrementInventory reduces a product's quantity exactly once per order
	// number. A repeat call for the same order number fails with
	// ErrInventoryAlreadyAdjusted and changes nothing.
	DecrementInventory(ctx context.Context, farmID, productID string, quantity int64, orderNumber string) error
}
