package tokenapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agroledger/agroledger/pkg/models"
)

const walletAddr = "0x2222222222222222222222222222222222222222"

func TestRequestFaucet(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/token/faucet", r.URL.Path)

			var req struct {
				ToAddress string `json:"toAddress"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, walletAddr, req.ToAddress)

			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]string{"transactionHash": "0xfaucet1"},
			})
		}))
		defer server.Close()

		tx, err := NewClient(server.URL).RequestFaucet(context.Background(), models.WalletAddress(walletAddr))
		require.NoError(t, err)
		assert.Equal(t, "0xfaucet1", tx.Hash)
	})

	t.Run("Service Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   "faucet cooldown active",
			})
		}))
		defer server.Close()

		_, err := NewClient(server.URL).RequestFaucet(context.Background(), models.WalletAddress(walletAddr))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "faucet cooldown active")
	})

	t.Run("Malformed Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>bad gateway</html>"))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).RequestFaucet(context.Background(), models.WalletAddress(walletAddr))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "malformed response")
	})

	t.Run("Missing Transaction Hash", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]string{},
			})
		}))
		defer server.Close()

		_, err := NewClient(server.URL).RequestFaucet(context.Background(), models.WalletAddress(walletAddr))
		assert.Error(t, err)
	})
}

func TestBuyTokens(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/token/buy", r.URL.Path)

			var req struct {
				ToAddress string `json:"toAddress"`
				Amount    string `json:"amount"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "100", req.Amount)

			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]string{"transactionHash": "0xbuy1"},
			})
		}))
		defer server.Close()

		tx, err := NewClient(server.URL).BuyTokens(context.Background(), models.WalletAddress(walletAddr), models.AmountFromTokens(100))
		require.NoError(t, err)
		assert.Equal(t, "0xbuy1", tx.Hash)
	})

	t.Run("Rejects Non Positive Amount", func(t *testing.T) {
		_, err := NewClient("http://unreachable.test").BuyTokens(context.Background(), models.WalletAddress(walletAddr), models.ZeroAmount())
		assert.Error(t, err)
	})
}
