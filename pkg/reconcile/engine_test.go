package reconcile

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agroledger/agroledger/pkg/chain"
	"github.com/agroledger/agroledger/pkg/models"
	schedulermocks "github.com/agroledger/agroledger/pkg/scheduler/mocks"
	"github.com/agroledger/agroledger/pkg/storage"
	storagemocks "github.com/agroledger/agroledger/pkg/storage/mocks"
)

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) WaitForConfirmation(ctx context.Context, handle models.TxHandle, finalityDepth uint64) (*models.TxConfirmation, error) {
	args := m.Called(ctx, handle, finalityDepth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TxConfirmation), args.Error(1)
}

type mockListingReader struct {
	mock.Mock
}

func (m *mockListingReader) GetListing(ctx context.Context, listingID *big.Int) (*models.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *mockListingReader) CalculatePurchaseCost(ctx context.Context, pricePerUnit models.Amount, quantity int64) (*models.PurchaseCost, error) {
	args := m.Called(ctx, pricePerUnit, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PurchaseCost), args.Error(1)
}

type engineDeps struct {
	confirmer   *mockConfirmer
	marketplace *mockListingReader
	orders      *storagemocks.OrderStore
	catalog     *storagemocks.ProductCatalog
	retries     *schedulermocks.Scheduler
}

func newTestEngine(t *testing.T) (*Engine, *engineDeps) {
	t.Helper()
	deps := &engineDeps{
		confirmer:   new(mockConfirmer),
		marketplace: new(mockListingReader),
		orders:      new(storagemocks.OrderStore),
		catalog:     new(storagemocks.ProductCatalog),
		retries:     new(schedulermocks.Scheduler),
	}
	engine := New(Config{
		Confirmer:   deps.confirmer,
		Marketplace: deps.marketplace,
		Orders:      deps.orders,
		Catalog:     deps.catalog,
		Retries:     deps.retries,
	})
	return engine, deps
}

const (
	testTxHash = "0x9f2c4e8a1b3d5f7091827364a5b6c7d8e9f0aa2597b1c3d5"
	buyerAddr  = "0x2222222222222222222222222222222222222222"
	sellerAddr = "0x1111111111111111111111111111111111111111"
)

func testSubmission() *models.PurchaseSubmission {
	return &models.PurchaseSubmission{
		TxHash:    testTxHash,
		Buyer:     models.WalletAddress(buyerAddr),
		ListingID: big.NewInt(7),
		FarmID:    "farm-1",
		Quantity:  10,
	}
}

func testListing() *models.Listing {
	price, _ := models.ParseAmount("5")
	return &models.Listing{
		ID:           big.NewInt(7),
		Seller:       models.WalletAddress(sellerAddr),
		ProductName:  "Arabica Beans",
		Quantity:     40,
		PricePerUnit: price,
		Status:       models.ListingActive,
		CreatedAt:    time.Now().UTC(),
	}
}

func testCost() *models.PurchaseCost {
	total := models.AmountFromTokens(50)
	fee, seller := total.SplitFee(200)
	return &models.PurchaseCost{TotalCost: total, PlatformFee: fee, SellerReceives: seller}
}

func testProducts() []models.Product {
	price, _ := models.ParseAmount("5")
	return []models.Product{{
		ProductID:    "prod-9",
		FarmID:       "farm-1",
		FarmName:     "Finca La Esperanza",
		Name:         "Arabica Beans",
		Quantity:     100,
		PricePerUnit: price,
	}}
}

func TestOrderNumberForTx(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		assert.Equal(t, OrderNumberForTx(testTxHash), OrderNumberForTx(testTxHash))
	})

	t.Run("Last Eight Hex Uppercased", func(t *testing.T) {
		assert.Equal(t, "ORD-97B1C3D5", OrderNumberForTx(testTxHash))
	})

	t.Run("Prefix Stripped", func(t *testing.T) {
		assert.Equal(t, OrderNumberForTx("0xabcdef12"), OrderNumberForTx("abcdef12"))
	})

	t.Run("Short Hash", func(t *testing.T) {
		assert.Equal(t, "ORD-ABC1", OrderNumberForTx("0xabc1"))
	})
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	orderNumber := OrderNumberForTx(testTxHash)

	t.Run("Happy Path Ends Paid", func(t *testing.T) {
		engine, deps := newTestEngine(t)
		sub := testSubmission()

		deps.orders.On("GetReceipt", mock.Anything, orderNumber).Return(nil, storage.ErrReceiptNotFound)
		deps.confirmer.On("WaitForConfirmation", mock.Anything, models.TxHandle{Hash: testTxHash}, uint64(1)).
			Return(&models.TxConfirmation{Hash: testTxHash, IncludedAt: 100, Confirmations: 1}, nil)
		deps.marketplace.On("GetListing", mock.Anything, sub.ListingID).Return(testListing(), nil)
		deps.marketplace.On("CalculatePurchaseCost", mock.Anything, mock.Anything, int64(10)).Return(testCost(), nil)
		deps.catalog.On("GetByFarm", mock.Anything, "farm-1").Return(testProducts(), nil)
		var recorded *models.PurchaseReceipt
		deps.orders.On("RecordReceipt", mock.Anything, mock.MatchedBy(func(r *models.PurchaseReceipt) bool {
			recorded = r
			return r.OrderNumber == orderNumber &&
				r.Status == models.ReceiptPending &&
				r.Total.String() == "50" &&
				r.Fee.String() == "1" &&
				r.Subtotal.String() == "49" &&
				len(r.Products) == 1 &&
				r.Products[0].ProductID == "prod-9" &&
				r.Products[0].FarmName == "Finca La Esperanza"
		})).Return(func(ctx context.Context, r *models.PurchaseReceipt) *models.PurchaseReceipt { return r }, true, nil)
		deps.catalog.On("DecrementInventory", mock.Anything, "farm-1", "prod-9", int64(10), orderNumber).Return(nil)
		deps.orders.On("UpdateReceiptStatus", mock.Anything, orderNumber, models.ReceiptPaid).Return(nil)

		receipt, err := engine.Reconcile(ctx, sub)
		require.NoError(t, err)

		assert.Equal(t, models.ReceiptPaid, receipt.Status)
		require.NotNil(t, recorded)
		assert.Equal(t, orderNumber, recorded.OrderNumber)

		deps.orders.AssertExpectations(t)
		deps.catalog.AssertExpectations(t)
		deps.retries.AssertNotCalled(t, "ScheduleReconciliation")
	})

	t.Run("Already Paid Is A NoOp", func(t *testing.T) {
		engine, deps := newTestEngine(t)

		existing := &models.PurchaseReceipt{OrderNumber: orderNumber, TxHash: testTxHash, Status: models.ReceiptPaid}
		deps.orders.On("GetReceipt", mock.Anything, orderNumber).Return(existing, nil)

		receipt, err := engine.Reconcile(ctx, testSubmission())
		require.NoError(t, err)
		assert.Same(t, existing, receipt)

		deps.confirmer.AssertNotCalled(t, "WaitForConfirmation")
		deps.catalog.AssertNotCalled(t, "DecrementInventory")
	})

	t.Run("Same Transaction Twice Yields One Receipt", func(t *testing.T) {
		engine, deps := newTestEngine(t)
		sub := testSubmission()

		stored := &models.PurchaseReceipt{
			OrderNumber: orderNumber,
			TxHash:      testTxHash,
			ListingID:   sub.ListingID,
			FarmID:      sub.FarmID,
			Products:    []models.ReceiptProduct{{ProductID: "prod-9", Name: "Arabica Beans", Quantity: 10}},
			Status:      models.ReceiptPaid,
		}

		// The concurrent run recorded the receipt first.
		deps.orders.On("GetReceipt", mock.Anything, orderNumber).Return(nil, storage.ErrReceiptNotFound)
		deps.confirmer.On("WaitForConfirmation", mock.Anything, mock.Anything, mock.Anything).
			Return(&models.TxConfirmation{Hash: testTxHash}, nil)
		deps.marketplace.On("GetListing", mock.Anything, sub.ListingID).Return(testListing(), nil)
		deps.marketplace.On("CalculatePurchaseCost", mock.Anything, mock.Anything, int64(10)).Return(testCost(), nil)
		deps.catalog.On("GetByFarm", mock.Anything, "farm-1").Return(testProducts(), nil)
		deps.orders.On("RecordReceipt", mock.Anything, mock.Anything).Return(stored, false, nil)

		receipt, err := engine.Reconcile(ctx, sub)
		require.NoError(t, err)
		assert.Same(t, stored, receipt)

		deps.catalog.AssertNotCalled(t, "DecrementInventory")
	})

	t.Run("Confirmation Pending Passes Through", func(t *testing.T) {
		engine, deps := newTestEngine(t)

		deps.orders.On("GetReceipt", mock.Anything, orderNumber).Return(nil, storage.ErrReceiptNotFound)
		deps.confirmer.On("WaitForConfirmation", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, chain.ErrConfirmationPending)

		_, err := engine.Reconcile(ctx, testSubmission())
		assert.ErrorIs(t, err, chain.ErrConfirmationPending)

		deps.orders.AssertNotCalled(t, "RecordReceipt")
	})

	t.Run("Reverted Transaction Produces No Receipt", func(t *testing.T) {
		engine, deps := newTestEngine(t)

		deps.orders.On("GetReceipt", mock.Anything, orderNumber).Return(nil, storage.ErrReceiptNotFound)
		deps.confirmer.On("WaitForConfirmation", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &chain.TransactionRevertedError{TxHash: testTxHash, Reason: "insufficient balance"})

		_, err := engine.Reconcile(ctx, testSubmission())

		var reverted *chain.TransactionRevertedError
		assert.ErrorAs(t, err, &reverted)
		deps.orders.AssertNotCalled(t, "RecordReceipt")
	})

	t.Run("Inventory Failure Parks Receipt And Schedules Retry", func(t *testing.T) {
		engine, deps := newTestEngine(t)
		sub := testSubmission()

		deps.orders.On("GetReceipt", mock.Anything, orderNumber).Return(nil, storage.ErrReceiptNotFound)
		deps.confirmer.On("WaitForConfirmation", mock.Anything, mock.Anything, mock.Anything).
			Return(&models.TxConfirmation{Hash: testTxHash}, nil)
		deps.marketplace.On("GetListing", mock.Anything, sub.ListingID).Return(testListing(), nil)
		deps.marketplace.On("CalculatePurchaseCost", mock.Anything, mock.Anything, int64(10)).Return(testCost(), nil)
		deps.catalog.On("GetByFarm", mock.Anything, "farm-1").Return(testProducts(), nil)
		deps.orders.On("RecordReceipt", mock.Anything, mock.Anything).
			Return(func(ctx context.Context, r *models.PurchaseReceipt) *models.PurchaseReceipt { return r }, true, nil)
		deps.catalog.On("DecrementInventory", mock.Anything, "farm-1", "prod-9", int64(10), orderNumber).
			Return(errors.New("dynamodb on fire"))
		deps.orders.On("UpdateReceiptStatus", mock.Anything, orderNumber, models.ReceiptReconciliationPending).Return(nil)
		deps.retries.On("ScheduleReconciliation", mock.Anything, sub, mock.Anything).Return(nil)

		receipt, err := engine.Reconcile(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, models.ReceiptReconciliationPending, receipt.Status)

		deps.orders.AssertNotCalled(t, "UpdateReceiptStatus", mock.Anything, orderNumber, models.ReceiptPaid)
		deps.retries.AssertExpectations(t)
	})

	t.Run("Duplicate Inventory Adjustment Counts As Done", func(t *testing.T) {
		engine, deps := newTestEngine(t)
		sub := testSubmission()

		deps.orders.On("GetReceipt", mock.Anything, orderNumber).Return(nil, storage.ErrReceiptNotFound)
		deps.confirmer.On("WaitForConfirmation", mock.Anything, mock.Anything, mock.Anything).
			Return(&models.TxConfirmation{Hash: testTxHash}, nil)
		deps.marketplace.On("GetListing", mock.Anything, sub.ListingID).Return(testListing(), nil)
		deps.marketplace.On("CalculatePurchaseCost", mock.Anything, mock.Anything, int64(10)).Return(testCost(), nil)
		deps.catalog.On("GetByFarm", mock.Anything, "farm-1").Return(testProducts(), nil)
		deps.orders.On("RecordReceipt", mock.Anything, mock.Anything).
			Return(func(ctx context.Context, r *models.PurchaseReceipt) *models.PurchaseReceipt { return r }, true, nil)
		deps.catalog.On("DecrementInventory", mock.Anything, "farm-1", "prod-9", int64(10), orderNumber).
			Return(storage.ErrInventoryAlreadyAdjusted)
		deps.orders.On("UpdateReceiptStatus", mock.Anything, orderNumber, models.ReceiptPaid).Return(nil)

		receipt, err := engine.Reconcile(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, models.ReceiptPaid, receipt.Status)
	})

	t.Run("Resumes Parked Receipt", func(t *testing.T) {
		engine, deps := newTestEngine(t)
		sub := testSubmission()

		parked := &models.PurchaseReceipt{
			OrderNumber: orderNumber,
			TxHash:      testTxHash,
			ListingID:   sub.ListingID,
			FarmID:      sub.FarmID,
			Products:    []models.ReceiptProduct{{ProductID: "prod-9", Name: "Arabica Beans", Quantity: 10}},
			Status:      models.ReceiptReconciliationPending,
		}

		deps.orders.On("GetReceipt", mock.Anything, orderNumber).Return(parked, nil)
		deps.catalog.On("DecrementInventory", mock.Anything, "farm-1", "prod-9", int64(10), orderNumber).Return(nil)
		deps.orders.On("UpdateReceiptStatus", mock.Anything, orderNumber, models.ReceiptPaid).Return(nil)

		receipt, err := engine.Reconcile(ctx, sub)
		require.NoError(t, err)
		assert.Equal(t, models.ReceiptPaid, receipt.Status)

		// Resume skips confirmation and recording; those already happened.
		deps.confirmer.AssertNotCalled(t, "WaitForConfirmation")
		deps.orders.AssertNotCalled(t, "RecordReceipt")
	})

	t.Run("Missing Transaction Hash", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		_, err := engine.Reconcile(ctx, &models.PurchaseSubmission{})
		assert.Error(t, err)
		_, err = engine.Reconcile(ctx, nil)
		assert.Error(t, err)
	})
}

func TestSubmissionFromReceipt(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		receipt := &models.PurchaseReceipt{
			OrderNumber: "ORD-97B1C3D5",
			TxHash:      testTxHash,
			Buyer:       models.WalletAddress(buyerAddr),
			ListingID:   big.NewInt(7),
			FarmID:      "farm-1",
			Products:    []models.ReceiptProduct{{ProductID: "prod-9", Quantity: 10}},
		}

		sub, err := SubmissionFromReceipt(receipt)
		require.NoError(t, err)
		assert.Equal(t, testTxHash, sub.TxHash)
		assert.Equal(t, "farm-1", sub.FarmID)
		assert.Equal(t, int64(10), sub.Quantity)
	})

	t.Run("Missing Context", func(t *testing.T) {
		_, err := SubmissionFromReceipt(&models.PurchaseReceipt{OrderNumber: "ORD-1"})
		assert.Error(t, err)
	})
}
