package dynamodb

import (
	"github.com/agroledger/agroledger/pkg/storage"
)

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client               DynamoDBAPI
	ReceiptsTableName    string
	ProductsTableName    string
	AdjustmentsTableName string
}

// New creates a new Store.
func New(client DynamoDBAPI, receiptsTable, productsTable, adjustmentsTable string) *Store {
	return &Store{
		Client:               client,
		ReceiptsTableName:    receiptsTable,
		ProductsTableName:    productsTable,
		AdjustmentsTableName: adjustmentsTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)
