package models

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// WalletAddress is a 20-byte account identifier in 0x-prefixed hex form.
// Addresses are supplied by the signing environment; the core never owns keys.
type WalletAddress string

// ParseWalletAddress validates and normalizes an address string.
func ParseWalletAddress(s string) (WalletAddress, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", fmt.Errorf("address %q missing 0x prefix", s)
	}
	hexPart := s[2:]
	if len(hexPart) != 40 {
		return "", fmt.Errorf("address %q is not 20 bytes", s)
	}
	for _, c := range hexPart {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			continue
		}
		return "", fmt.Errorf("address %q contains non-hex characters", s)
	}
	return WalletAddress("0x" + strings.ToLower(hexPart)), nil
}

func (w WalletAddress) String() string { return string(w) }

// TxHandle identifies a broadcast transaction. Once broadcast, the
// transaction cannot be cancelled by this layer; the handle is used to wait
// for inclusion and to derive the reconciliation idempotence key.
type TxHandle struct {
	Hash string `json:"hash"`
}

// TxConfirmation describes an included transaction that has reached the
// requested finality depth.
type TxConfirmation struct {
	Hash          string `json:"hash"`
	IncludedAt    uint64 `json:"included_at"`
	Confirmations uint64 `json:"confirmations"`
}

// TokenBalance is a wallet's balance split into spendable and frozen
// portions. Total == Available + Frozen at every observable point; only
// Available may be spent or transferred.
type TokenBalance struct {
	Wallet    WalletAddress `json:"wallet"`
	Total     Amount        `json:"total"`
	Available Amount        `json:"available"`
	Frozen    Amount        `json:"frozen"`
}

// TokenInfo describes the fungible platform token.
type TokenInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int64  `json:"decimals"`
	TotalSupply Amount `json:"total_supply"`
}

// ListingStatus defines the possible states of a marketplace listing.
type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingSold      ListingStatus = "SOLD"
	ListingCancelled ListingStatus = "CANCELLED"
)

// Listing is a seller's open offer to sell a fixed quantity of a named
// product at a fixed unit price, tracked as on-chain state. Sold and
// Cancelled are terminal.
type Listing struct {
	ID           *big.Int      `json:"id"`
	Seller       WalletAddress `json:"seller"`
	ProductName  string        `json:"product_name"`
	Quantity     int64         `json:"quantity"`
	PricePerUnit Amount        `json:"price_per_unit"`
	Status       ListingStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// PurchaseCost is the authoritative fee split for a purchase.
// TotalCost == PlatformFee + SellerReceives exactly for every integer input.
type PurchaseCost struct {
	TotalCost      Amount `json:"total_cost"`
	PlatformFee    Amount `json:"platform_fee"`
	SellerReceives Amount `json:"seller_receives"`
}

// ReceiptStatus defines the possible states of a purchase receipt.
// A receipt may advance pending -> paid but never regress.
type ReceiptStatus string

const (
	ReceiptPending               ReceiptStatus = "pending"
	ReceiptPaid                  ReceiptStatus = "paid"
	ReceiptReconciliationPending ReceiptStatus = "reconciliation-pending"
)

// ReceiptProduct is a product line snapshotted into a receipt at
// reconciliation time. Catalog data is mutable and must not silently alter
// historical receipts, so the snapshot is copied by value.
type ReceiptProduct struct {
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	FarmName     string `json:"farm_name"`
	Quantity     int64  `json:"quantity"`
	PricePerUnit Amount `json:"price_per_unit"`
}

// PurchaseReceipt is the off-chain projection of one successful on-chain
// purchase. Exactly one receipt exists per purchase transaction; the order
// number is derived from the transaction hash and acts as the idempotence key.
type PurchaseReceipt struct {
	OrderNumber string           `json:"order_number"`
	TxHash      string           `json:"tx_hash"`
	Buyer       WalletAddress    `json:"buyer"`
	Seller      WalletAddress    `json:"seller"`
	ListingID   *big.Int         `json:"listing_id"`
	FarmID      string           `json:"farm_id"`
	Products    []ReceiptProduct `json:"products"`
	Subtotal    Amount           `json:"subtotal"`
	Fee         Amount           `json:"fee"`
	Total       Amount           `json:"total"`
	Status      ReceiptStatus    `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// PlantationRecord is a non-fungible record of a registered land parcel.
// Records are created once via registration and never locally mutated;
// ownership transfer is handled elsewhere.
type PlantationRecord struct {
	TokenID      *big.Int      `json:"token_id"`
	Owner        WalletAddress `json:"owner"`
	Name         string        `json:"name"`
	Location     string        `json:"location"`
	LandSize     int64         `json:"land_size"`
	CropType     string        `json:"crop_type"`
	RegisteredAt time.Time     `json:"registered_at"`
	IsActive     bool          `json:"is_active"`
}

// PlantationStats aggregates registry-wide counters.
type PlantationStats struct {
	TotalPlantations  int64 `json:"total_plantations"`
	ActivePlantations int64 `json:"active_plantations"`
	TotalLandSize     int64 `json:"total_land_size"`
}

// Product is a catalog product as stored off-chain. Mutable; receipts
// snapshot the fields they need instead of referencing it.
type Product struct {
	ProductID    string    `json:"product_id"`
	FarmID       string    `json:"farm_id"`
	FarmName     string    `json:"farm_name"`
	Name         string    `json:"name"`
	Quantity     int64     `json:"quantity"`
	PricePerUnit Amount    `json:"price_per_unit"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PurchaseSubmission carries everything the reconciliation engine needs to
// turn a submitted purchase transaction into a receipt. It is the message
// body of the reconciliation queue.
type PurchaseSubmission struct {
	TxHash    string        `json:"tx_hash"`
	Buyer     WalletAddress `json:"buyer"`
	ListingID *big.Int      `json:"listing_id"`
	FarmID    string        `json:"farm_id"`
	Quantity  int64         `json:"quantity"`
}
