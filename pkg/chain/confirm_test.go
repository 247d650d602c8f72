package chain

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroledger/agroledger/pkg/models"
)

func TestWaitForConfirmation(t *testing.T) {
	handle := models.TxHandle{Hash: "0xdeadbeef"}

	t.Run("Confirmed At Depth", func(t *testing.T) {
		_, client := newTestNode(t, func(method string, params []json.RawMessage) (any, *RPCError) {
			switch method {
			case "gettransactionheight":
				return 100, nil
			case "getapplicationlog":
				return map[string]any{
					"txid": handle.Hash,
					"executions": []map[string]any{
						{"trigger": "Application", "vmstate": VMStateHalt, "gasconsumed": "100", "stack": []any{}},
					},
				}, nil
			case "getblockcount":
				return 103, nil
			}
			return nil, &RPCError{Code: -1, Message: "unexpected method " + method}
		})

		conf, err := client.WaitForConfirmation(context.Background(), handle, 2)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), conf.IncludedAt)
		assert.Equal(t, uint64(3), conf.Confirmations)
	})

	t.Run("Inclusion Polls Until Found", func(t *testing.T) {
		var heightCalls atomic.Int64
		_, client := newTestNode(t, func(method string, params []json.RawMessage) (any, *RPCError) {
			switch method {
			case "gettransactionheight":
				if heightCalls.Add(1) < 3 {
					return nil, &RPCError{Code: -100, Message: "Unknown transaction"}
				}
				return 50, nil
			case "getapplicationlog":
				return map[string]any{
					"txid": handle.Hash,
					"executions": []map[string]any{
						{"trigger": "Application", "vmstate": VMStateHalt, "gasconsumed": "100", "stack": []any{}},
					},
				}, nil
			case "getblockcount":
				return 60, nil
			}
			return nil, &RPCError{Code: -1, Message: "unexpected method " + method}
		})

		conf, err := client.WaitForConfirmation(context.Background(), handle, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(50), conf.IncludedAt)
		assert.GreaterOrEqual(t, heightCalls.Load(), int64(3))
	})

	t.Run("Deadline Surfaces As Pending", func(t *testing.T) {
		_, client := newTestNode(t, func(method string, params []json.RawMessage) (any, *RPCError) {
			// Never included.
			return nil, &RPCError{Code: -100, Message: "Unknown transaction"}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		_, err := client.WaitForConfirmation(ctx, handle, 1)
		assert.ErrorIs(t, err, ErrConfirmationPending)
	})

	t.Run("Fault After Inclusion Is A Revert", func(t *testing.T) {
		_, client := newTestNode(t, func(method string, params []json.RawMessage) (any, *RPCError) {
			switch method {
			case "gettransactionheight":
				return 100, nil
			case "getapplicationlog":
				return map[string]any{
					"txid": handle.Hash,
					"executions": []map[string]any{
						{"trigger": "Application", "vmstate": VMStateFault, "exception": "insufficient balance", "gasconsumed": "100", "stack": []any{}},
					},
				}, nil
			}
			return nil, &RPCError{Code: -1, Message: "unexpected method " + method}
		})

		_, err := client.WaitForConfirmation(context.Background(), handle, 1)

		var reverted *TransactionRevertedError
		require.ErrorAs(t, err, &reverted)
		assert.Equal(t, handle.Hash, reverted.TxHash)
		assert.Contains(t, reverted.Reason, "insufficient balance")
	})

	t.Run("Waits For Depth", func(t *testing.T) {
		var blockCalls atomic.Int64
		_, client := newTestNode(t, func(method string, params []json.RawMessage) (any, *RPCError) {
			switch method {
			case "gettransactionheight":
				return 100, nil
			case "getapplicationlog":
				return map[string]any{
					"txid": handle.Hash,
					"executions": []map[string]any{
						{"trigger": "Application", "vmstate": VMStateHalt, "gasconsumed": "100", "stack": []any{}},
					},
				}, nil
			case "getblockcount":
				// The chain advances one block per poll.
				return 100 + blockCalls.Add(1), nil
			}
			return nil, &RPCError{Code: -1, Message: "unexpected method " + method}
		})

		conf, err := client.WaitForConfirmation(context.Background(), handle, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), conf.Confirmations)
	})
}
