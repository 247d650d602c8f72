// Package handlers implements the HTTP API over the chain clients, the
// order store and the reconciliation engine.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Router mounts every handler on a chi router with the given middleware.
func Router(token *TokenHandler, marketplace *MarketplaceHandler, registry *RegistryHandler, orders *OrdersHandler, mws ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	for _, mw := range mws {
		r.Use(mw)
	}

	r.Route("/token", func(r chi.Router) {
		r.Get("/info", token.GetTokenInfo)
		r.Get("/balance/{address}", token.GetBalance)
		r.Post("/transfer", token.Transfer)
		r.Post("/approve", token.Approve)
		r.Post("/faucet", token.Faucet)
		r.Post("/buy", token.BuyTokens)
	})

	r.Route("/marketplace", func(r chi.Router) {
		r.Get("/listings", marketplace.ListActiveListings)
		r.Post("/listings", marketplace.CreateListing)
		r.Get("/listings/{listingId}", marketplace.GetListing)
		r.Get("/listings/{listingId}/quote", marketplace.QuotePurchase)
		r.Post("/listings/{listingId}/buy", marketplace.BuyListing)
		r.Post("/listings/{listingId}/cancel", marketplace.CancelListing)
		r.Get("/sellers/{address}/listings", marketplace.ListSellerListings)
	})

	r.Route("/registry", func(r chi.Router) {
		r.Post("/plantations", registry.RegisterPlantation)
		r.Get("/plantations/{tokenId}", registry.GetPlantation)
		r.Get("/owners/{address}/plantations", registry.ListOwnerPlantations)
		r.Get("/stats", registry.GetStats)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/purchases", orders.SubmitPurchase)
		r.Get("/receipts/{orderNumber}", orders.GetReceipt)
		r.Get("/receipts/stuck", orders.ListStuckReceipts)
	})

	r.Get("/farms/{farmId}/products", orders.ListFarmProducts)

	return r
}
