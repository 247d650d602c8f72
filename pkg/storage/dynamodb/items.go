package dynamodb

import (
	"fmt"
	"math/big"
	"time"

	"github.com/agroledger/agroledger/pkg/models"
)

// Storage item shapes. Amounts cross the DynamoDB boundary as base-10
// strings of integer minor units so no numeric precision is lost.

type receiptItem struct {
	OrderNumber string               `dynamodbav:"order_number"`
	TxHash      string               `dynamodbav:"tx_hash"`
	Buyer       string               `dynamodbav:"buyer"`
	Seller      string               `dynamodbav:"seller"`
	ListingID   string               `dynamodbav:"listing_id"`
	FarmID      string               `dynamodbav:"farm_id"`
	Products    []receiptProductItem `dynamodbav:"products"`
	Subtotal    string               `dynamodbav:"subtotal"`
	Fee         string               `dynamodbav:"fee"`
	Total       string               `dynamodbav:"total"`
	Status      string               `dynamodbav:"status"`
	CreatedAt   time.Time            `dynamodbav:"created_at"`
	UpdatedAt   time.Time            `dynamodbav:"updated_at"`
	GSI1PK      string               `dynamodbav:"gsi1pk"`
}

type receiptProductItem struct {
	ProductID    string `dynamodbav:"product_id"`
	Name         string `dynamodbav:"name"`
	FarmName     string `dynamodbav:"farm_name"`
	Quantity     int64  `dynamodbav:"quantity"`
	PricePerUnit string `dynamodbav:"price_per_unit"`
}

type productItem struct {
	FarmID       string    `dynamodbav:"farm_id"`
	ProductID    string    `dynamodbav:"product_id"`
	FarmName     string    `dynamodbav:"farm_name"`
	Name         string    `dynamodbav:"name"`
	Quantity     int64     `dynamodbav:"quantity"`
	PricePerUnit string    `dynamodbav:"price_per_unit"`
	UpdatedAt    time.Time `dynamodbav:"updated_at"`
}

// adjustmentItem marks one inventory decrement per order number. Its
// conditional put is what makes the decrement exactly-once.
type adjustmentItem struct {
	OrderNumber string    `dynamodbav:"order_number"`
	FarmID      string    `dynamodbav:"farm_id"`
	ProductID   string    `dynamodbav:"product_id"`
	Quantity    int64     `dynamodbav:"quantity"`
	EntryID     string    `dynamodbav:"entry_id"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
}

const receiptStatusGSI = "status-updated_at-index"

func toReceiptItem(r *models.PurchaseReceipt) receiptItem {
	products := make([]receiptProductItem, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, receiptProductItem{
			ProductID:    p.ProductID,
			Name:         p.Name,
			FarmName:     p.FarmName,
			Quantity:     p.Quantity,
			PricePerUnit: p.PricePerUnit.MinorString(),
		})
	}
	listingID := ""
	if r.ListingID != nil {
		listingID = r.ListingID.String()
	}
	return receiptItem{
		OrderNumber: r.OrderNumber,
		TxHash:      r.TxHash,
		Buyer:       r.Buyer.String(),
		Seller:      r.Seller.String(),
		ListingID:   listingID,
		FarmID:      r.FarmID,
		Products:    products,
		Subtotal:    r.Subtotal.MinorString(),
		Fee:         r.Fee.MinorString(),
		Total:       r.Total.MinorString(),
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		GSI1PK:      "RECEIPTS",
	}
}

func fromReceiptItem(item receiptItem) (*models.PurchaseReceipt, error) {
	subtotal, err := models.ParseAmountMinor(item.Subtotal)
	if err != nil {
		return nil, fmt.Errorf("parse subtotal: %w", err)
	}
	fee, err := models.ParseAmountMinor(item.Fee)
	if err != nil {
		return nil, fmt.Errorf("parse fee: %w", err)
	}
	total, err := models.ParseAmountMinor(item.Total)
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	products := make([]models.ReceiptProduct, 0, len(item.Products))
	for _, p := range item.Products {
		price, err := models.ParseAmountMinor(p.PricePerUnit)
		if err != nil {
			return nil, fmt.Errorf("parse product price: %w", err)
		}
		products = append(products, models.ReceiptProduct{
			ProductID:    p.ProductID,
			Name:         p.Name,
			FarmName:     p.FarmName,
			Quantity:     p.Quantity,
			PricePerUnit: price,
		})
	}

	var listingID *big.Int
	if item.ListingID != "" {
		var ok bool
		listingID, ok = new(big.Int).SetString(item.ListingID, 10)
		if !ok {
			return nil, fmt.Errorf("parse listing id %q", item.ListingID)
		}
	}

	return &models.PurchaseReceipt{
		OrderNumber: item.OrderNumber,
		TxHash:      item.TxHash,
		Buyer:       models.WalletAddress(item.Buyer),
		Seller:      models.WalletAddress(item.Seller),
		ListingID:   listingID,
		FarmID:      item.FarmID,
		Products:    products,
		Subtotal:    subtotal,
		Fee:         fee,
		Total:       total,
		Status:      models.ReceiptStatus(item.Status),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}, nil
}

func fromProductItem(item productItem) (*models.Product, error) {
	price, err := models.ParseAmountMinor(item.PricePerUnit)
	if err != nil {
		return nil, fmt.Errorf("parse product price: %w", err)
	}
	return &models.Product{
		ProductID:    item.ProductID,
		FarmID:       item.FarmID,
		FarmName:     item.FarmName,
		Name:         item.Name,
		Quantity:     item.Quantity,
		PricePerUnit: price,
		UpdatedAt:    item.UpdatedAt,
	}, nil
}
