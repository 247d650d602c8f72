package chain

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Test helpers: a fake JSON-RPC node and stack item builders.

type rpcHandler func(method string, params []json.RawMessage) (any, *RPCError)

func newTestNode(t *testing.T, handler rpcHandler) (*httptest.Server, *Client) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int               `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		RPCURL:     srv.URL,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		PollEvery:  5 * time.Millisecond,
	})
	require.NoError(t, err)

	return srv, client
}

func intItem(v string) map[string]any {
	return map[string]any{"type": "Integer", "value": v}
}

func boolItem(v bool) map[string]any {
	return map[string]any{"type": "Boolean", "value": v}
}

func stringItem(s string) map[string]any {
	return map[string]any{"type": "ByteString", "value": base64.StdEncoding.EncodeToString([]byte(s))}
}

func addressItem(t *testing.T, addr string) map[string]any {
	t.Helper()
	require.Len(t, addr, 42)
	raw, err := hex.DecodeString(addr[2:])
	require.NoError(t, err)
	return map[string]any{"type": "ByteString", "value": base64.StdEncoding.EncodeToString(raw)}
}

func arrayItem(items ...map[string]any) map[string]any {
	return map[string]any{"type": "Array", "value": items}
}

func nullItem() map[string]any {
	return map[string]any{"type": "Null"}
}

func haltResult(stack ...map[string]any) map[string]any {
	if stack == nil {
		stack = []map[string]any{}
	}
	return map[string]any{"state": VMStateHalt, "gasconsumed": "100", "stack": stack}
}

func haltTxResult(txHash string, stack ...map[string]any) map[string]any {
	result := haltResult(stack...)
	result["tx"] = txHash
	return result
}

func faultResult(exception string) map[string]any {
	return map[string]any{"state": VMStateFault, "gasconsumed": "100", "exception": exception, "stack": []any{}}
}

func testBinding(t *testing.T, kind InterfaceKind) Binding {
	t.Helper()
	b, err := NewBindingProvider().Bind("testnet", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", kind)
	require.NoError(t, err)
	return b
}

func testSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	return s
}
