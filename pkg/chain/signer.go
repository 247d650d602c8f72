package chain

import (
	"github.com/agroledger/agroledger/pkg/models"
)

// Signer is an opaque handle to the connected signing environment. Key
// custody and gas strategy belong to the wallet behind the node; this layer
// only knows the account that signs and whether it carries the
// administrative capability.
type Signer struct {
	address models.WalletAddress
	admin   bool
}

// NewSigner creates a signer for the given wallet address.
func NewSigner(address string) (*Signer, error) {
	addr, err := models.ParseWalletAddress(address)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	return &Signer{address: addr}, nil
}

// NewAdminSigner creates a signer carrying the administrative capability.
func NewAdminSigner(address string) (*Signer, error) {
	s, err := NewSigner(address)
	if err != nil {
		return nil, err
	}
	s.admin = true
	return s, nil
}

// Address returns the signing wallet address.
func (s *Signer) Address() models.WalletAddress {
	return s.address
}

// IsAdmin reports whether the signer carries the administrative capability.
func (s *Signer) IsAdmin() bool {
	return s.admin
}
