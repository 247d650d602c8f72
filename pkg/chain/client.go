package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a JSON-RPC client for the chain node.
//
// Reads may be retried with backoff on transient network failure. Writes are
// submitted exactly once: a broadcast transaction can never be safely
// resubmitted with identical parameters, so submission failures surface to
// the caller instead of being retried here.
type Client struct {
	rpcURL      string
	httpClient  *http.Client
	networkID   uint32
	maxRetries  int
	retryDelay  time.Duration
	pollEvery   time.Duration
}

// Config holds client configuration.
type Config struct {
	RPCURL     string
	NetworkID  uint32
	Timeout    time.Duration // per-request HTTP timeout
	MaxRetries int           // bounded retry count for reads
	RetryDelay time.Duration // base backoff between read retries
	PollEvery  time.Duration // confirmation poll interval
}

// NewClient creates a new chain client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = 500 * time.Millisecond
	}
	pollEvery := cfg.PollEvery
	if pollEvery == 0 {
		pollEvery = 2 * time.Second
	}

	return &Client{
		rpcURL:     cfg.RPCURL,
		httpClient: &http.Client{Timeout: timeout},
		networkID:  cfg.NetworkID,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		pollEvery:  pollEvery,
	}, nil
}

// Call makes a single JSON-RPC call with no retries.
func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// callRead makes an idempotent read call, retrying transient transport
// failures up to the configured bound before surfacing ErrNetworkUnavailable.
func (c *Client) callRead(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		result, err := c.Call(ctx, method, params)
		if err == nil {
			return result, nil
		}
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			// The node answered; this is not a transport failure.
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, lastErr)
}

// GetBlockCount returns the current block height.
func (c *Client) GetBlockCount(ctx context.Context) (uint64, error) {
	result, err := c.callRead(ctx, "getblockcount", nil)
	if err != nil {
		return 0, err
	}

	var count uint64
	if err := json.Unmarshal(result, &count); err != nil {
		return 0, fmt.Errorf("unmarshal block count: %w", err)
	}
	return count, nil
}

// GetTransactionHeight returns the block height a transaction was included
// at, or errNotIncluded while the transaction is still unconfirmed.
func (c *Client) GetTransactionHeight(ctx context.Context, txHash string) (uint64, error) {
	result, err := c.callRead(ctx, "gettransactionheight", []any{txHash})
	if err != nil {
		if isUnknownTransaction(err) {
			return 0, errNotIncluded
		}
		return 0, err
	}

	var height uint64
	if err := json.Unmarshal(result, &height); err != nil {
		return 0, fmt.Errorf("unmarshal transaction height: %w", err)
	}
	return height, nil
}

// GetApplicationLog returns the execution record of an included transaction.
func (c *Client) GetApplicationLog(ctx context.Context, txHash string) (*ApplicationLog, error) {
	result, err := c.callRead(ctx, "getapplicationlog", []any{txHash})
	if err != nil {
		return nil, err
	}

	var log ApplicationLog
	if err := json.Unmarshal(result, &log); err != nil {
		return nil, fmt.Errorf("unmarshal application log: %w", err)
	}
	return &log, nil
}

// InvokeRead performs a read-only contract invocation against a binding and
// returns the VM stack. A FAULT state is normalized onto the error taxonomy.
func (c *Client) InvokeRead(ctx context.Context, b Binding, method string, params ...ContractParam) ([]StackItem, error) {
	if params == nil {
		params = []ContractParam{}
	}
	result, err := c.callRead(ctx, "invokefunction", []any{b.Address, method, params})
	if err != nil {
		return nil, err
	}

	var invokeResult InvokeResult
	if err := json.Unmarshal(result, &invokeResult); err != nil {
		return nil, fmt.Errorf("unmarshal invoke result: %w", err)
	}
	if invokeResult.State != VMStateHalt {
		return nil, normalizeFault("", invokeResult.Exception)
	}
	return invokeResult.Stack, nil
}

// Submit performs a write invocation signed by the given signer. The node's
// bound wallet signs and relays the transaction; the returned handle carries
// the transaction hash together with the pre-execution stack for callers
// that need the contract's return value.
//
// Submit broadcasts at most once. After a transport failure the caller must
// check whether the previous attempt landed before trying again.
func (c *Client) Submit(ctx context.Context, b Binding, method string, signer *Signer, params ...ContractParam) (*SubmitResult, error) {
	if signer == nil {
		return nil, ErrWalletNotConnected
	}
	if params == nil {
		params = []ContractParam{}
	}
	signers := []TxSigner{{Account: signer.Address().String(), Scopes: "CalledByEntry"}}

	result, err := c.Call(ctx, "invokefunction", []any{b.Address, method, params, signers})
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			if strings.Contains(strings.ToLower(rpcErr.Message), "rejected by user") {
				return nil, fmt.Errorf("%w: %s", ErrTransactionRejected, rpcErr.Message)
			}
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	var invokeResult InvokeResult
	if err := json.Unmarshal(result, &invokeResult); err != nil {
		return nil, fmt.Errorf("unmarshal invoke result: %w", err)
	}
	if invokeResult.State != VMStateHalt {
		return nil, normalizeFault(invokeResult.Tx, invokeResult.Exception)
	}
	if invokeResult.Tx == "" {
		return nil, fmt.Errorf("node did not relay transaction for %s", method)
	}

	return &SubmitResult{
		TxHash: invokeResult.Tx,
		Stack:  invokeResult.Stack,
	}, nil
}

// SubmitResult is the outcome of a broadcast write invocation.
type SubmitResult struct {
	TxHash string
	Stack  []StackItem
}

// errNotIncluded marks a transaction the node does not know about yet.
var errNotIncluded = errors.New("transaction not yet included")

func isUnknownTransaction(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "unknown transaction") || strings.Contains(msg, "not found")
}
