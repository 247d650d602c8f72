package storage

// Storage defines the root interface for the entire off-chain data layer.
// It composes all available storage operations. Components should depend on
// the more granular interfaces (OrderStore, ProductCatalog) instead of this one.
type Storage interface {
	OrderStore
	ProductCatalog
}
