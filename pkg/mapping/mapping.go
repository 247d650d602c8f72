// Package mapping translates between domain models and API wire types.
package mapping

import (
	"github.com/agroledger/agroledger/pkg/api"
	"github.com/agroledger/agroledger/pkg/models"
)

// ToApiBalance converts a domain TokenBalance to an API Balance.
func ToApiBalance(b *models.TokenBalance) *api.Balance {
	return &api.Balance{
		Wallet:    b.Wallet.String(),
		Total:     b.Total.String(),
		Available: b.Available.String(),
		Frozen:    b.Frozen.String(),
	}
}

// ToApiTokenInfo converts a domain TokenInfo to its API counterpart.
func ToApiTokenInfo(info *models.TokenInfo) *api.TokenInfo {
	return &api.TokenInfo{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: info.TotalSupply.String(),
	}
}

// ToApiTransaction converts a transaction handle to its API counterpart.
func ToApiTransaction(tx models.TxHandle) *api.Transaction {
	return &api.Transaction{TransactionHash: tx.Hash}
}

// ToApiListing converts a domain Listing to an API Listing.
func ToApiListing(l *models.Listing) *api.Listing {
	return &api.Listing{
		Id:           l.ID.String(),
		Seller:       l.Seller.String(),
		ProductName:  l.ProductName,
		Quantity:     l.Quantity,
		PricePerUnit: l.PricePerUnit.String(),
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt,
	}
}

// ToApiPurchaseQuote converts a domain PurchaseCost to an API PurchaseQuote.
func ToApiPurchaseQuote(cost *models.PurchaseCost, feeBps int64) *api.PurchaseQuote {
	return &api.PurchaseQuote{
		TotalCost:      cost.TotalCost.String(),
		PlatformFee:    cost.PlatformFee.String(),
		SellerReceives: cost.SellerReceives.String(),
		FeeBps:         feeBps,
	}
}

// ToApiReceipt converts a domain PurchaseReceipt to an API Receipt.
func ToApiReceipt(r *models.PurchaseReceipt) *api.Receipt {
	products := make([]api.ReceiptProduct, len(r.Products))
	for i, p := range r.Products {
		products[i] = api.ReceiptProduct{
			ProductId:    p.ProductID,
			Name:         p.Name,
			FarmName:     p.FarmName,
			Quantity:     p.Quantity,
			PricePerUnit: p.PricePerUnit.String(),
		}
	}
	listingID := ""
	if r.ListingID != nil {
		listingID = r.ListingID.String()
	}
	return &api.Receipt{
		OrderNumber:     r.OrderNumber,
		TransactionHash: r.TxHash,
		Buyer:           r.Buyer.String(),
		Seller:          r.Seller.String(),
		ListingId:       listingID,
		FarmId:          r.FarmID,
		Products:        products,
		Subtotal:        r.Subtotal.String(),
		Fee:             r.Fee.String(),
		Total:           r.Total.String(),
		Status:          string(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// ToApiPlantation converts a domain PlantationRecord to an API Plantation.
func ToApiPlantation(p *models.PlantationRecord) *api.Plantation {
	return &api.Plantation{
		TokenId:      p.TokenID.String(),
		Owner:        p.Owner.String(),
		Name:         p.Name,
		Location:     p.Location,
		LandSize:     p.LandSize,
		CropType:     p.CropType,
		RegisteredAt: p.RegisteredAt,
		IsActive:     p.IsActive,
	}
}

// ToApiPlantationStats converts domain PlantationStats to the API type.
func ToApiPlantationStats(s *models.PlantationStats) *api.PlantationStats {
	return &api.PlantationStats{
		TotalPlantations:  s.TotalPlantations,
		ActivePlantations: s.ActivePlantations,
		TotalLandSize:     s.TotalLandSize,
	}
}

// ToApiProduct converts a domain Product to an API Product.
func ToApiProduct(p *models.Product) *api.Product {
	return &api.Product{
		ProductId:    p.ProductID,
		FarmId:       p.FarmID,
		FarmName:     p.FarmName,
		Name:         p.Name,
		Quantity:     p.Quantity,
		PricePerUnit: p.PricePerUnit.String(),
		UpdatedAt:    p.UpdatedAt,
	}
}
