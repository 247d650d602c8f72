package storage

import "errors"

// ErrReceiptNotFound is returned when no receipt exists for an order number.
var ErrReceiptNotFound = errors.New("receipt not found")

// ErrProductNotFound is returned when a catalog product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrInsufficientInventory is returned when a decrement would take a
// product's quantity below zero.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrInventoryAlreadyAdjusted is returned when the inventory for an order
// number has already been decremented. Callers treat it as the idempotent
// no-op path, not a failure.
var ErrInventoryAlreadyAdjusted = errors.New("inventory already adjusted for order")
