package chain

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// InterfaceKind identifies which contract interface a binding speaks.
type InterfaceKind string

const (
	// TokenLedger is the fungible platform token contract.
	TokenLedger InterfaceKind = "token-ledger"
	// Marketplace is the produce listing contract.
	Marketplace InterfaceKind = "marketplace"
	// LandRegistry is the plantation token contract.
	LandRegistry InterfaceKind = "land-registry"
)

// Binding is a stateless capability handle for a (network, address,
// interface) triple. Every client call carries one.
type Binding struct {
	Network string
	Address string
	Kind    InterfaceKind
}

// BindingProvider resolves and caches capability handles. Binding performs no
// I/O; the cache only avoids re-validating addresses on hot paths.
type BindingProvider struct {
	mu    sync.RWMutex
	cache map[string]Binding
}

// NewBindingProvider creates an empty provider.
func NewBindingProvider() *BindingProvider {
	return &BindingProvider{cache: make(map[string]Binding)}
}

// Bind resolves a capability handle for the given triple. It fails with
// ErrUnknownInterface for an unrecognized kind and ErrInvalidAddress for a
// malformed contract address. No side effects.
func (p *BindingProvider) Bind(network, address string, kind InterfaceKind) (Binding, error) {
	switch kind {
	case TokenLedger, Marketplace, LandRegistry:
	default:
		return Binding{}, fmt.Errorf("%w: %q", ErrUnknownInterface, kind)
	}

	normalized, err := normalizeContractAddress(address)
	if err != nil {
		return Binding{}, err
	}

	key := network + "|" + normalized + "|" + string(kind)

	p.mu.RLock()
	if b, ok := p.cache[key]; ok {
		p.mu.RUnlock()
		return b, nil
	}
	p.mu.RUnlock()

	b := Binding{Network: network, Address: normalized, Kind: kind}

	p.mu.Lock()
	p.cache[key] = b
	p.mu.Unlock()

	return b, nil
}

func normalizeContractAddress(address string) (string, error) {
	s := strings.TrimSpace(address)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", fmt.Errorf("%w: %q missing 0x prefix", ErrInvalidAddress, address)
	}
	hexPart := s[2:]
	if len(hexPart) != 40 {
		return "", fmt.Errorf("%w: %q is not 20 bytes", ErrInvalidAddress, address)
	}
	for _, c := range hexPart {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			continue
		}
		return "", fmt.Errorf("%w: %q contains non-hex characters", ErrInvalidAddress, address)
	}
	return "0x" + strings.ToLower(hexPart), nil
}

// ContractAddresses holds the deployed contract addresses for one network.
type ContractAddresses struct {
	Network      string `json:"network"`
	TokenLedger  string `json:"token_ledger"`
	Marketplace  string `json:"marketplace"`
	LandRegistry string `json:"land_registry"`
}

// ContractAddressesFromEnv loads contract addresses from environment variables.
func ContractAddressesFromEnv() ContractAddresses {
	c := ContractAddresses{}
	if v := os.Getenv("CHAIN_NETWORK"); v != "" {
		c.Network = v
	}
	if v := os.Getenv("CONTRACT_TOKEN_LEDGER_ADDRESS"); v != "" {
		c.TokenLedger = v
	}
	if v := os.Getenv("CONTRACT_MARKETPLACE_ADDRESS"); v != "" {
		c.Marketplace = v
	}
	if v := os.Getenv("CONTRACT_LAND_REGISTRY_ADDRESS"); v != "" {
		c.LandRegistry = v
	}
	return c
}
