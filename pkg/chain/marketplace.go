package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/agroledger/agroledger/pkg/models"
)

// feeCache holds the contract's fee rate, fetched once per process and
// shared by every signer-bound copy of the client.
type feeCache struct {
	mu     sync.Mutex
	bps    int64
	loaded bool
}

// MarketplaceClient provides the listing lifecycle against the marketplace
// contract: create, buy, cancel and query.
type MarketplaceClient struct {
	client  *Client
	binding Binding
	signer  *Signer
	fee     *feeCache
}

// NewMarketplaceClient creates a marketplace client. The signer may be nil
// for read-only use.
func NewMarketplaceClient(client *Client, binding Binding, signer *Signer) (*MarketplaceClient, error) {
	if binding.Kind != Marketplace {
		return nil, fmt.Errorf("%w: marketplace client needs a %s binding, got %s", ErrUnknownInterface, Marketplace, binding.Kind)
	}
	return &MarketplaceClient{client: client, binding: binding, signer: signer, fee: &feeCache{}}, nil
}

// WithSigner returns a copy of the client acting for the given signer. The
// underlying connection and fee cache are shared.
func (m *MarketplaceClient) WithSigner(signer *Signer) *MarketplaceClient {
	return &MarketplaceClient{client: m.client, binding: m.binding, signer: signer, fee: m.fee}
}

// PlatformFeeBps returns the platform fee in basis points. The value is read
// from the contract once and cached for the process lifetime; it is the only
// fee source in this layer.
func (m *MarketplaceClient) PlatformFeeBps(ctx context.Context) (int64, error) {
	m.fee.mu.Lock()
	defer m.fee.mu.Unlock()
	if m.fee.loaded {
		return m.fee.bps, nil
	}

	stack, err := m.client.InvokeRead(ctx, m.binding, "getPlatformFeeBps")
	if err != nil {
		return 0, err
	}
	if len(stack) == 0 {
		return 0, fmt.Errorf("getPlatformFeeBps returned empty stack")
	}
	bps, err := ParseInt64(stack[0])
	if err != nil {
		return 0, fmt.Errorf("parse fee bps: %w", err)
	}
	if bps < 0 || bps > models.FeeDenominator {
		return 0, fmt.Errorf("contract reported fee %d bps out of range", bps)
	}

	m.fee.bps = bps
	m.fee.loaded = true
	return bps, nil
}

// CalculatePurchaseCost computes the fee split for a purchase with truncating
// integer division. TotalCost == PlatformFee + SellerReceives exactly for
// every input. The result is advisory until re-fetched after confirmation;
// the contract recomputes the same split at the point of sale.
func (m *MarketplaceClient) CalculatePurchaseCost(ctx context.Context, pricePerUnit models.Amount, quantity int64) (*models.PurchaseCost, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	feeBps, err := m.PlatformFeeBps(ctx)
	if err != nil {
		return nil, err
	}

	totalCost := pricePerUnit.MulQuantity(quantity)
	platformFee, sellerReceives := totalCost.SplitFee(feeBps)
	return &models.PurchaseCost{
		TotalCost:      totalCost,
		PlatformFee:    platformFee,
		SellerReceives: sellerReceives,
	}, nil
}

// CreateListing publishes a new Active listing and returns its id together
// with the transaction handle.
func (m *MarketplaceClient) CreateListing(ctx context.Context, productName string, quantity int64, pricePerUnit models.Amount) (*big.Int, models.TxHandle, error) {
	if m.signer == nil {
		return nil, models.TxHandle{}, ErrWalletNotConnected
	}
	if productName == "" {
		return nil, models.TxHandle{}, fmt.Errorf("product name required")
	}
	if quantity <= 0 {
		return nil, models.TxHandle{}, fmt.Errorf("quantity must be positive")
	}
	if !pricePerUnit.IsPositive() {
		return nil, models.TxHandle{}, fmt.Errorf("price per unit must be positive")
	}

	result, err := m.client.Submit(ctx, m.binding, "createListing", m.signer,
		NewHash160Param(m.signer.Address().String()),
		NewStringParam(productName),
		NewIntegerParam(big.NewInt(quantity)),
		NewAmountParam(pricePerUnit),
	)
	if err != nil {
		return nil, models.TxHandle{}, err
	}

	if len(result.Stack) == 0 {
		return nil, models.TxHandle{}, fmt.Errorf("createListing returned no listing id")
	}
	listingID, err := ParseInteger(result.Stack[0])
	if err != nil {
		return nil, models.TxHandle{}, fmt.Errorf("parse listing id: %w", err)
	}

	return listingID, models.TxHandle{Hash: result.TxHash}, nil
}

// BuyFromListing purchases quantity units from an Active listing, paying
// exactly the authoritative total cost. The returned handle feeds the
// reconciliation engine; the purchase is not reflected off-chain until the
// transaction confirms and reconciliation runs.
func (m *MarketplaceClient) BuyFromListing(ctx context.Context, listingID *big.Int, quantity int64) (models.TxHandle, error) {
	if m.signer == nil {
		return models.TxHandle{}, ErrWalletNotConnected
	}
	if quantity <= 0 {
		return models.TxHandle{}, fmt.Errorf("quantity must be positive")
	}

	listing, err := m.GetListing(ctx, listingID)
	if err != nil {
		return models.TxHandle{}, err
	}
	if listing.Status != models.ListingActive {
		return models.TxHandle{}, fmt.Errorf("%w: listing %s is %s", ErrListingInactive, listingID, listing.Status)
	}
	if quantity > listing.Quantity {
		return models.TxHandle{}, fmt.Errorf("%w: requested %d, listing has %d", ErrInsufficientQuantity, quantity, listing.Quantity)
	}

	cost, err := m.CalculatePurchaseCost(ctx, listing.PricePerUnit, quantity)
	if err != nil {
		return models.TxHandle{}, err
	}

	result, err := m.client.Submit(ctx, m.binding, "buyFromListing", m.signer,
		NewHash160Param(m.signer.Address().String()),
		NewIntegerParam(listingID),
		NewIntegerParam(big.NewInt(quantity)),
		NewAmountParam(cost.TotalCost),
	)
	if err != nil {
		return models.TxHandle{}, err
	}
	return models.TxHandle{Hash: result.TxHash}, nil
}

// CancelListing cancels an Active listing. Only the listing's seller or an
// administrative capability may cancel; the contract enforces the same rule.
func (m *MarketplaceClient) CancelListing(ctx context.Context, listingID *big.Int) (models.TxHandle, error) {
	if m.signer == nil {
		return models.TxHandle{}, ErrWalletNotConnected
	}

	listing, err := m.GetListing(ctx, listingID)
	if err != nil {
		return models.TxHandle{}, err
	}
	if listing.Status != models.ListingActive {
		return models.TxHandle{}, fmt.Errorf("%w: listing %s is %s", ErrListingInactive, listingID, listing.Status)
	}
	if listing.Seller != m.signer.Address() && !m.signer.IsAdmin() {
		return models.TxHandle{}, fmt.Errorf("%w: %s is not the seller of listing %s", ErrNotAuthorized, m.signer.Address(), listingID)
	}

	result, err := m.client.Submit(ctx, m.binding, "cancelListing", m.signer,
		NewHash160Param(m.signer.Address().String()),
		NewIntegerParam(listingID),
	)
	if err != nil {
		return models.TxHandle{}, err
	}
	return models.TxHandle{Hash: result.TxHash}, nil
}

// GetListing fetches one listing by id.
func (m *MarketplaceClient) GetListing(ctx context.Context, listingID *big.Int) (*models.Listing, error) {
	stack, err := m.client.InvokeRead(ctx, m.binding, "getListing", NewIntegerParam(listingID))
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 || IsNull(stack[0]) {
		return nil, fmt.Errorf("%w: id %s", ErrListingNotFound, listingID)
	}
	return parseListing(stack[0])
}

// GetActiveListings returns all listings currently open for purchase.
func (m *MarketplaceClient) GetActiveListings(ctx context.Context) ([]models.Listing, error) {
	return m.listingQuery(ctx, "getActiveListings")
}

// GetSellerListings returns every listing owned by a wallet, in any state.
func (m *MarketplaceClient) GetSellerListings(ctx context.Context, seller models.WalletAddress) ([]models.Listing, error) {
	return m.listingQuery(ctx, "getSellerListings", NewHash160Param(seller.String()))
}

func (m *MarketplaceClient) listingQuery(ctx context.Context, method string, params ...ContractParam) ([]models.Listing, error) {
	stack, err := m.client.InvokeRead(ctx, m.binding, method, params...)
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 || IsNull(stack[0]) {
		return nil, nil
	}

	items, err := ParseArray(stack[0])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", method, err)
	}

	listings := make([]models.Listing, 0, len(items))
	for i, item := range items {
		listing, err := parseListing(item)
		if err != nil {
			return nil, fmt.Errorf("parse %s[%d]: %w", method, i, err)
		}
		listings = append(listings, *listing)
	}
	return listings, nil
}

// listingStatusFromCode maps the contract's status enum onto the domain type.
func listingStatusFromCode(code int64) (models.ListingStatus, error) {
	switch code {
	case 0:
		return models.ListingActive, nil
	case 1:
		return models.ListingSold, nil
	case 2:
		return models.ListingCancelled, nil
	default:
		return "", fmt.Errorf("unknown listing status code %d", code)
	}
}

func parseListing(item StackItem) (*models.Listing, error) {
	fields, err := ParseArray(item)
	if err != nil {
		return nil, err
	}
	if len(fields) < 7 {
		return nil, fmt.Errorf("expected 7 listing fields, got %d", len(fields))
	}

	id, err := ParseInteger(fields[0])
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	seller, err := ParseAddress(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parse seller: %w", err)
	}
	productName, err := ParseString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("parse product name: %w", err)
	}
	quantity, err := ParseInt64(fields[3])
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	pricePerUnit, err := ParseAmount(fields[4])
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	statusCode, err := ParseInt64(fields[5])
	if err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	status, err := listingStatusFromCode(statusCode)
	if err != nil {
		return nil, err
	}
	createdAt, err := ParseInt64(fields[6])
	if err != nil {
		return nil, fmt.Errorf("parse created at: %w", err)
	}

	return &models.Listing{
		ID:           id,
		Seller:       seller,
		ProductName:  productName,
		Quantity:     quantity,
		PricePerUnit: pricePerUnit,
		Status:       status,
		CreatedAt:    time.Unix(createdAt, 0).UTC(),
	}, nil
}
