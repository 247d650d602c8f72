// Package chain provides the on-chain ledger, marketplace and land registry
// clients used by the platform. All remote state lives on the chain; this
// package only normalizes it into typed domain values.
package chain

import (
	"encoding/json"
	"math/big"

	"github.com/agroledger/agroledger/pkg/models"
)

// RPCRequest is a JSON-RPC request.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

// RPCResponse is a JSON-RPC response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error body.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// ContractParam is a typed parameter for a contract invocation.
type ContractParam struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// NewIntegerParam creates an Integer contract parameter.
func NewIntegerParam(v *big.Int) ContractParam {
	return ContractParam{Type: "Integer", Value: v.String()}
}

// NewAmountParam creates an Integer contract parameter from a fixed-point amount.
func NewAmountParam(a models.Amount) ContractParam {
	return ContractParam{Type: "Integer", Value: a.MinorString()}
}

// NewStringParam creates a String contract parameter.
func NewStringParam(v string) ContractParam {
	return ContractParam{Type: "String", Value: v}
}

// NewHash160Param creates a Hash160 contract parameter from a wallet or
// contract address.
func NewHash160Param(addr string) ContractParam {
	return ContractParam{Type: "Hash160", Value: addr}
}

// NewBoolParam creates a Boolean contract parameter.
func NewBoolParam(v bool) ContractParam {
	return ContractParam{Type: "Boolean", Value: v}
}

// TxSigner is the signer entry attached to a write invocation.
type TxSigner struct {
	Account string `json:"account"`
	Scopes  string `json:"scopes"`
}

// InvokeResult is the node's response to an invokefunction call.
// For write invocations the node signs and relays the transaction through its
// bound wallet and reports the transaction hash in Tx.
type InvokeResult struct {
	State       string      `json:"state"`
	GasConsumed string      `json:"gasconsumed"`
	Exception   string      `json:"exception,omitempty"`
	Tx          string      `json:"tx,omitempty"`
	Stack       []StackItem `json:"stack"`
}

// StackItem is a single VM stack item from an invocation result.
type StackItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ApplicationLog is the execution record of an included transaction.
type ApplicationLog struct {
	TxID       string      `json:"txid"`
	Executions []Execution `json:"executions"`
}

// Execution is one VM execution within an application log.
type Execution struct {
	Trigger     string      `json:"trigger"`
	VMState     string      `json:"vmstate"`
	Exception   string      `json:"exception,omitempty"`
	GasConsumed string      `json:"gasconsumed"`
	Stack       []StackItem `json:"stack"`
}

// VM halt states reported by the node.
const (
	VMStateHalt  = "HALT"
	VMStateFault = "FAULT"
)
