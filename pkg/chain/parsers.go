package chain

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/agroledger/agroledger/pkg/models"
)

func decodeStackBytes(value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		return hex.DecodeString(trimmed[2:])
	}

	// The RPC layer encodes ByteString/Buffer stack items as base64.
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return decoded, nil
	}

	// Fallback for endpoints returning raw hex without a prefix.
	if len(trimmed)%2 != 0 {
		return nil, fmt.Errorf("invalid byte string")
	}
	return hex.DecodeString(trimmed)
}

// ParseArray extracts the child items of an Array or Struct stack item.
func ParseArray(item StackItem) ([]StackItem, error) {
	if item.Type != "Array" && item.Type != "Struct" {
		return nil, fmt.Errorf("expected Array or Struct, got %s", item.Type)
	}

	var items []StackItem
	if err := json.Unmarshal(item.Value, &items); err != nil {
		return nil, fmt.Errorf("unmarshal array: %w", err)
	}
	return items, nil
}

// ParseInteger parses an Integer stack item.
func ParseInteger(item StackItem) (*big.Int, error) {
	if item.Type != "Integer" {
		return nil, fmt.Errorf("unexpected type: %s", item.Type)
	}
	var value string
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return n, nil
}

// ParseInt64 parses an Integer stack item that is known to fit in an int64.
func ParseInt64(item StackItem) (int64, error) {
	n, err := ParseInteger(item)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("integer %s overflows int64", n)
	}
	return n.Int64(), nil
}

// ParseAmount parses an Integer stack item into a fixed-point amount.
func ParseAmount(item StackItem) (models.Amount, error) {
	n, err := ParseInteger(item)
	if err != nil {
		return models.Amount{}, err
	}
	return models.AmountFromMinorUnits(n), nil
}

// ParseBoolean parses a Boolean stack item.
func ParseBoolean(item StackItem) (bool, error) {
	if item.Type != "Boolean" {
		return false, fmt.Errorf("unexpected type: %s", item.Type)
	}
	var value bool
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return false, err
	}
	return value, nil
}

// ParseString parses a ByteString/Buffer stack item as UTF-8 text.
func ParseString(item StackItem) (string, error) {
	if item.Type == "Null" {
		return "", nil
	}
	if item.Type != "ByteString" && item.Type != "Buffer" {
		return "", fmt.Errorf("unexpected type for string: %s", item.Type)
	}
	var value string
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return "", err
	}
	bytes, err := decodeStackBytes(value)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ParseAddress parses a 20-byte ByteString stack item into a wallet address.
func ParseAddress(item StackItem) (models.WalletAddress, error) {
	if item.Type != "ByteString" && item.Type != "Buffer" {
		return "", fmt.Errorf("unexpected type for address: %s", item.Type)
	}
	var value string
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return "", err
	}
	bytes, err := decodeStackBytes(value)
	if err != nil {
		return "", err
	}
	if len(bytes) != 20 {
		return "", fmt.Errorf("unexpected address length: %d", len(bytes))
	}
	return models.ParseWalletAddress("0x" + hex.EncodeToString(bytes))
}

// IsNull reports whether a stack item is the Null item.
func IsNull(item StackItem) bool {
	return item.Type == "Null" || item.Type == "Any"
}
