// Package api defines the request and response types of the HTTP API.
// These are wire types; domain models live in pkg/models and are translated
// by pkg/mapping.
package api

import "time"

// Balance is a wallet balance split into spendable and frozen portions.
// Amounts are decimal token strings.
type Balance struct {
	Wallet    string `json:"wallet"`
	Total     string `json:"total"`
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
}

// TokenInfo describes the platform token.
type TokenInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int64  `json:"decimals"`
	TotalSupply string `json:"totalSupply"`
}

// TransferRequest moves tokens from the caller's wallet to another.
type TransferRequest struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Amount      string `json:"amount"`
}

// ApproveRequest authorizes a spender for an allowance.
type ApproveRequest struct {
	OwnerAddress   string `json:"ownerAddress"`
	SpenderAddress string `json:"spenderAddress"`
	Amount         string `json:"amount"`
}

// FaucetRequest asks the token service to drip test tokens.
type FaucetRequest struct {
	ToAddress string `json:"toAddress"`
}

// BuyTokensRequest asks the token service to mint purchased tokens.
type BuyTokensRequest struct {
	ToAddress string `json:"toAddress"`
	Amount    string `json:"amount"`
}

// Transaction is the handle returned for any broadcast transaction.
type Transaction struct {
	TransactionHash string `json:"transactionHash"`
}

// NewListing creates a marketplace listing.
type NewListing struct {
	SellerAddress string `json:"sellerAddress"`
	ProductName   string `json:"productName"`
	Quantity      int64  `json:"quantity"`
	PricePerUnit  string `json:"pricePerUnit"`
}

// Listing is a marketplace listing.
type Listing struct {
	Id           string    `json:"id"`
	Seller       string    `json:"seller"`
	ProductName  string    `json:"productName"`
	Quantity     int64     `json:"quantity"`
	PricePerUnit string    `json:"pricePerUnit"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreatedListing is the response to a listing creation.
type CreatedListing struct {
	ListingId       string `json:"listingId"`
	TransactionHash string `json:"transactionHash"`
}

// PurchaseQuote is the fee split for a prospective purchase.
type PurchaseQuote struct {
	TotalCost      string `json:"totalCost"`
	PlatformFee    string `json:"platformFee"`
	SellerReceives string `json:"sellerReceives"`
	FeeBps         int64  `json:"feeBps"`
}

// BuyListingRequest buys from a listing on behalf of the caller's wallet.
type BuyListingRequest struct {
	BuyerAddress string `json:"buyerAddress"`
	Quantity     int64  `json:"quantity"`
}

// NewPurchase submits a broadcast purchase transaction for reconciliation.
type NewPurchase struct {
	TransactionHash string `json:"transactionHash"`
	BuyerAddress    string `json:"buyerAddress"`
	ListingId       string `json:"listingId"`
	FarmId          string `json:"farmId"`
	Quantity        int64  `json:"quantity"`
}

// ReceiptProduct is a product line on a receipt.
type ReceiptProduct struct {
	ProductId    string `json:"productId"`
	Name         string `json:"name"`
	FarmName     string `json:"farmName"`
	Quantity     int64  `json:"quantity"`
	PricePerUnit string `json:"pricePerUnit"`
}

// Receipt is a reconciled purchase.
type Receipt struct {
	OrderNumber     string           `json:"orderNumber"`
	TransactionHash string           `json:"transactionHash"`
	Buyer           string           `json:"buyer"`
	Seller          string           `json:"seller"`
	ListingId       string           `json:"listingId"`
	FarmId          string           `json:"farmId"`
	Products        []ReceiptProduct `json:"products"`
	Subtotal        string           `json:"subtotal"`
	Fee             string           `json:"fee"`
	Total           string           `json:"total"`
	Status          string           `json:"status"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// NewPlantation registers a land parcel.
type NewPlantation struct {
	OwnerAddress string `json:"ownerAddress"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	LandSize     int64  `json:"landSize"`
	CropType     string `json:"cropType"`
}

// Plantation is a registered land parcel.
type Plantation struct {
	TokenId      string    `json:"tokenId"`
	Owner        string    `json:"owner"`
	Name         string    `json:"name"`
	Location     string    `json:"location"`
	LandSize     int64     `json:"landSize"`
	CropType     string    `json:"cropType"`
	RegisteredAt time.Time `json:"registeredAt"`
	IsActive     bool      `json:"isActive"`
}

// CreatedPlantation is the response to a plantation registration.
type CreatedPlantation struct {
	TokenId         string `json:"tokenId"`
	TransactionHash string `json:"transactionHash"`
}

// PlantationStats aggregates registry-wide counters.
type PlantationStats struct {
	TotalPlantations  int64 `json:"totalPlantations"`
	ActivePlantations int64 `json:"activePlantations"`
	TotalLandSize     int64 `json:"totalLandSize"`
}

// Product is a catalog product.
type Product struct {
	ProductId    string    `json:"productId"`
	FarmId       string    `json:"farmId"`
	FarmName     string    `json:"farmName"`
	Name         string    `json:"name"`
	Quantity     int64     `json:"quantity"`
	PricePerUnit string    `json:"pricePerUnit"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Error is the error body returned for non-2xx responses.
type Error struct {
	Error string `json:"error"`
}
