package chain

import (
	"context"
	"encoding/json"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroledger/agroledger/pkg/models"
)

const sellerAddr = "0x1111111111111111111111111111111111111111"

// listingFixture renders a listing as the contract would return it.
func listingFixture(t *testing.T, id int64, quantity int64, priceMinor string, statusCode int64) map[string]any {
	t.Helper()
	return arrayItem(
		intItem(big.NewInt(id).String()),
		addressItem(t, sellerAddr),
		stringItem("Arabica Beans"),
		intItem(big.NewInt(quantity).String()),
		intItem(priceMinor),
		intItem(big.NewInt(statusCode).String()),
		intItem("1700000000"),
	)
}

func newMarketplace(t *testing.T, signer *Signer, handler rpcHandler) *MarketplaceClient {
	t.Helper()
	_, client := newTestNode(t, handler)
	m, err := NewMarketplaceClient(client, testBinding(t, Marketplace), signer)
	require.NoError(t, err)
	return m
}

func contractMethodOf(t *testing.T, params []json.RawMessage) string {
	t.Helper()
	var method string
	require.NoError(t, json.Unmarshal(params[1], &method))
	return method
}

func TestPlatformFeeBps(t *testing.T) {
	t.Run("Fetched Once And Cached", func(t *testing.T) {
		var calls atomic.Int64
		m := newMarketplace(t, nil, func(method string, params []json.RawMessage) (any, *RPCError) {
			calls.Add(1)
			return haltResult(intItem("250")), nil
		})

		for i := 0; i < 3; i++ {
			bps, err := m.PlatformFeeBps(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(250), bps)
		}
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("Cache Shared Across Signer Copies", func(t *testing.T) {
		var calls atomic.Int64
		m := newMarketplace(t, nil, func(method string, params []json.RawMessage) (any, *RPCError) {
			calls.Add(1)
			return haltResult(intItem("250")), nil
		})

		_, err := m.PlatformFeeBps(context.Background())
		require.NoError(t, err)
		_, err = m.WithSigner(testSigner(t)).PlatformFeeBps(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("Out Of Range Rejected", func(t *testing.T) {
		m := newMarketplace(t, nil, func(method string, params []json.RawMessage) (any, *RPCError) {
			return haltResult(intItem("10001")), nil
		})

		_, err := m.PlatformFeeBps(context.Background())
		assert.Error(t, err)
	})
}

func TestCalculatePurchaseCost(t *testing.T) {
	m := newMarketplace(t, nil, func(method string, params []json.RawMessage) (any, *RPCError) {
		return haltResult(intItem("200")), nil // 2%
	})

	price, _ := models.ParseAmount("5")
	cost, err := m.CalculatePurchaseCost(context.Background(), price, 10)
	require.NoError(t, err)

	assert.Equal(t, "50", cost.TotalCost.String())
	assert.Equal(t, "1", cost.PlatformFee.String())
	assert.Equal(t, "49", cost.SellerReceives.String())
	assert.Equal(t, 0, cost.PlatformFee.Add(cost.SellerReceives).Cmp(cost.TotalCost))

	_, err = m.CalculatePurchaseCost(context.Background(), price, 0)
	assert.Error(t, err)
}

func TestGetListing(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		m := newMarketplace(t, nil, func(method string, params []json.RawMessage) (any, *RPCError) {
			return haltResult(listingFixture(t, 7, 40, "5000000000000000000", 0)), nil
		})

		listing, err := m.GetListing(context.Background(), big.NewInt(7))
		require.NoError(t, err)
		assert.Equal(t, "7", listing.ID.String())
		assert.Equal(t, models.WalletAddress(sellerAddr), listing.Seller)
		assert.Equal(t, "Arabica Beans", listing.ProductName)
		assert.Equal(t, int64(40), listing.Quantity)
		assert.Equal(t, "5", listing.PricePerUnit.String())
		assert.Equal(t, models.ListingActive, listing.Status)
	})

	t.Run("Not Found", func(t *testing.T) {
		m := newMarketplace(t, nil, func(method string, params []json.RawMessage) (any, *RPCError) {
			return haltResult(nullItem()), nil
		})

		_, err := m.GetListing(context.Background(), big.NewInt(404))
		assert.ErrorIs(t, err, ErrListingNotFound)
	})
}

func TestBuyFromListing(t *testing.T) {
	buyListing := func(statusCode int64, quantity int64) rpcHandler {
		return func(method string, params []json.RawMessage) (any, *RPCError) {
			switch contractMethodOf(t, params) {
			case "getListing":
				return haltResult(listingFixture(t, 7, quantity, "5000000000000000000", statusCode)), nil
			case "getPlatformFeeBps":
				return haltResult(intItem("200")), nil
			case "buyFromListing":
				return haltTxResult("0xbuy1"), nil
			}
			return nil, &RPCError{Code: -1, Message: "unexpected method"}
		}
	}

	t.Run("Success", func(t *testing.T) {
		m := newMarketplace(t, testSigner(t), buyListing(0, 40))

		tx, err := m.BuyFromListing(context.Background(), big.NewInt(7), 10)
		require.NoError(t, err)
		assert.Equal(t, "0xbuy1", tx.Hash)
	})

	t.Run("Sold Listing Is Terminal", func(t *testing.T) {
		m := newMarketplace(t, testSigner(t), buyListing(1, 40))

		_, err := m.BuyFromListing(context.Background(), big.NewInt(7), 10)
		assert.ErrorIs(t, err, ErrListingInactive)
	})

	t.Run("Cancelled Listing Is Terminal", func(t *testing.T) {
		m := newMarketplace(t, testSigner(t), buyListing(2, 40))

		_, err := m.BuyFromListing(context.Background(), big.NewInt(7), 10)
		assert.ErrorIs(t, err, ErrListingInactive)
	})

	t.Run("Quantity Exceeds Listing", func(t *testing.T) {
		m := newMarketplace(t, testSigner(t), buyListing(0, 5))

		_, err := m.BuyFromListing(context.Background(), big.NewInt(7), 10)
		assert.ErrorIs(t, err, ErrInsufficientQuantity)
	})

	t.Run("No Signer", func(t *testing.T) {
		m := newMarketplace(t, nil, buyListing(0, 40))

		_, err := m.BuyFromListing(context.Background(), big.NewInt(7), 10)
		assert.ErrorIs(t, err, ErrWalletNotConnected)
	})
}

func TestCancelListing(t *testing.T) {
	cancelHandler := func(statusCode int64) rpcHandler {
		return func(method string, params []json.RawMessage) (any, *RPCError) {
			switch contractMethodOf(t, params) {
			case "getListing":
				return haltResult(listingFixture(t, 7, 40, "5000000000000000000", statusCode)), nil
			case "cancelListing":
				return haltTxResult("0xcancel1"), nil
			}
			return nil, &RPCError{Code: -1, Message: "unexpected method"}
		}
	}

	t.Run("Seller Cancels", func(t *testing.T) {
		seller, err := NewSigner(sellerAddr)
		require.NoError(t, err)
		m := newMarketplace(t, seller, cancelHandler(0))

		tx, err := m.CancelListing(context.Background(), big.NewInt(7))
		require.NoError(t, err)
		assert.Equal(t, "0xcancel1", tx.Hash)
	})

	t.Run("Stranger Cannot Cancel", func(t *testing.T) {
		stranger, err := NewSigner("0x9999999999999999999999999999999999999999")
		require.NoError(t, err)
		m := newMarketplace(t, stranger, cancelHandler(0))

		_, err = m.CancelListing(context.Background(), big.NewInt(7))
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("Admin Can Cancel", func(t *testing.T) {
		admin, err := NewAdminSigner("0x9999999999999999999999999999999999999999")
		require.NoError(t, err)
		m := newMarketplace(t, admin, cancelHandler(0))

		_, err = m.CancelListing(context.Background(), big.NewInt(7))
		assert.NoError(t, err)
	})

	t.Run("Inactive Listing", func(t *testing.T) {
		seller, err := NewSigner(sellerAddr)
		require.NoError(t, err)
		m := newMarketplace(t, seller, cancelHandler(2))

		_, err = m.CancelListing(context.Background(), big.NewInt(7))
		assert.ErrorIs(t, err, ErrListingInactive)
	})
}

func TestCreateListing(t *testing.T) {
	t.Run("Returns Listing Id", func(t *testing.T) {
		m := newMarketplace(t, testSigner(t), func(method string, params []json.RawMessage) (any, *RPCError) {
			return haltTxResult("0xcreate1", intItem("12")), nil
		})

		price, _ := models.ParseAmount("5")
		id, tx, err := m.CreateListing(context.Background(), "Arabica Beans", 40, price)
		require.NoError(t, err)
		assert.Equal(t, "12", id.String())
		assert.Equal(t, "0xcreate1", tx.Hash)
	})

	t.Run("Validates Input", func(t *testing.T) {
		m := newMarketplace(t, testSigner(t), func(method string, params []json.RawMessage) (any, *RPCError) {
			t.Fatal("no call expected for invalid input")
			return nil, nil
		})

		price, _ := models.ParseAmount("5")
		_, _, err := m.CreateListing(context.Background(), "", 40, price)
		assert.Error(t, err)
		_, _, err = m.CreateListing(context.Background(), "Beans", 0, price)
		assert.Error(t, err)
		_, _, err = m.CreateListing(context.Background(), "Beans", 40, models.ZeroAmount())
		assert.Error(t, err)
	})
}

func TestGetActiveListings(t *testing.T) {
	t.Run("Multiple", func(t *testing.T) {
		m := newMarketplace(t, nil, func(method string, params []json.RawMessage) (any, *RPCError) {
			return haltResult(arrayItem(
				listingFixture(t, 1, 10, "5000000000000000000", 0),
				listingFixture(t, 2, 20, "3000000000000000000", 0),
			)), nil
		})

		listings, err := m.GetActiveListings(context.Background())
		require.NoError(t, err)
		require.Len(t, listings, 2)
		assert.Equal(t, "1", listings[0].ID.String())
		assert.Equal(t, "2", listings[1].ID.String())
	})

	t.Run("Empty", func(t *testing.T) {
		m := newMarketplace(t, nil, func(method string, params []json.RawMessage) (any, *RPCError) {
			return haltResult(nullItem()), nil
		})

		listings, err := m.GetActiveListings(context.Background())
		require.NoError(t, err)
		assert.Empty(t, listings)
	})
}
