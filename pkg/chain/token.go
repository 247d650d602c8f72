package chain

import (
	"context"
	"fmt"

	"github.com/agroledger/agroledger/pkg/models"
)

// TokenLedgerClient provides balance queries and value movement against the
// fungible token contract.
type TokenLedgerClient struct {
	client  *Client
	binding Binding
	signer  *Signer
}

// NewTokenLedgerClient creates a token ledger client. The signer may be nil
// for read-only use; write operations then fail with ErrWalletNotConnected.
func NewTokenLedgerClient(client *Client, binding Binding, signer *Signer) (*TokenLedgerClient, error) {
	if binding.Kind != TokenLedger {
		return nil, fmt.Errorf("%w: token ledger client needs a %s binding, got %s", ErrUnknownInterface, TokenLedger, binding.Kind)
	}
	return &TokenLedgerClient{client: client, binding: binding, signer: signer}, nil
}

// WithSigner returns a copy of the client acting for the given signer. The
// underlying connection is shared.
func (t *TokenLedgerClient) WithSigner(signer *Signer) *TokenLedgerClient {
	return &TokenLedgerClient{client: t.client, binding: t.binding, signer: signer}
}

// GetBalance returns the wallet's full balance split. Available is derived
// from total and frozen in one place so total == available + frozen holds at
// every observable point.
func (t *TokenLedgerClient) GetBalance(ctx context.Context, wallet models.WalletAddress) (*models.TokenBalance, error) {
	total, err := t.balanceQuery(ctx, "balanceOf", wallet)
	if err != nil {
		return nil, err
	}
	frozen, err := t.balanceQuery(ctx, "frozenBalanceOf", wallet)
	if err != nil {
		return nil, err
	}

	return &models.TokenBalance{
		Wallet:    wallet,
		Total:     total,
		Available: total.Sub(frozen),
		Frozen:    frozen,
	}, nil
}

// GetAvailableBalance returns only the spendable portion of the balance.
func (t *TokenLedgerClient) GetAvailableBalance(ctx context.Context, wallet models.WalletAddress) (models.Amount, error) {
	balance, err := t.GetBalance(ctx, wallet)
	if err != nil {
		return models.Amount{}, err
	}
	return balance.Available, nil
}

// GetFrozenBalance returns only the frozen portion of the balance.
func (t *TokenLedgerClient) GetFrozenBalance(ctx context.Context, wallet models.WalletAddress) (models.Amount, error) {
	return t.balanceQuery(ctx, "frozenBalanceOf", wallet)
}

func (t *TokenLedgerClient) balanceQuery(ctx context.Context, method string, wallet models.WalletAddress) (models.Amount, error) {
	stack, err := t.client.InvokeRead(ctx, t.binding, method, NewHash160Param(wallet.String()))
	if err != nil {
		return models.Amount{}, err
	}
	if len(stack) == 0 {
		return models.Amount{}, fmt.Errorf("%s returned empty stack", method)
	}
	return ParseAmount(stack[0])
}

// Transfer moves amount from the signer's wallet to another wallet. It fails
// with InsufficientAvailableBalanceError when the amount exceeds the
// spendable balance, even if the total balance would cover it: frozen funds
// cannot be spent while verification is pending.
func (t *TokenLedgerClient) Transfer(ctx context.Context, to models.WalletAddress, amount models.Amount) (models.TxHandle, error) {
	if t.signer == nil {
		return models.TxHandle{}, ErrWalletNotConnected
	}
	if _, err := models.ParseWalletAddress(to.String()); err != nil {
		return models.TxHandle{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !amount.IsPositive() {
		return models.TxHandle{}, fmt.Errorf("transfer amount must be positive")
	}

	balance, err := t.GetBalance(ctx, t.signer.Address())
	if err != nil {
		return models.TxHandle{}, err
	}
	if amount.Cmp(balance.Available) > 0 {
		return models.TxHandle{}, &InsufficientAvailableBalanceError{
			Requested: amount,
			Available: balance.Available,
			Total:     balance.Total,
		}
	}

	result, err := t.client.Submit(ctx, t.binding, "transfer", t.signer,
		NewHash160Param(t.signer.Address().String()),
		NewHash160Param(to.String()),
		NewAmountParam(amount),
	)
	if err != nil {
		return models.TxHandle{}, err
	}
	return models.TxHandle{Hash: result.TxHash}, nil
}

// Approve authorizes a spender to move up to amount from the signer's wallet.
func (t *TokenLedgerClient) Approve(ctx context.Context, spender models.WalletAddress, amount models.Amount) (models.TxHandle, error) {
	if t.signer == nil {
		return models.TxHandle{}, ErrWalletNotConnected
	}
	if _, err := models.ParseWalletAddress(spender.String()); err != nil {
		return models.TxHandle{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	result, err := t.client.Submit(ctx, t.binding, "approve", t.signer,
		NewHash160Param(t.signer.Address().String()),
		NewHash160Param(spender.String()),
		NewAmountParam(amount),
	)
	if err != nil {
		return models.TxHandle{}, err
	}
	return models.TxHandle{Hash: result.TxHash}, nil
}

// GetTokenInfo returns the token's descriptive metadata. Read-only, no
// signer required.
func (t *TokenLedgerClient) GetTokenInfo(ctx context.Context) (*models.TokenInfo, error) {
	stack, err := t.client.InvokeRead(ctx, t.binding, "tokenInfo")
	if err != nil {
		return nil, err
	}
	if len(stack) == 0 {
		return nil, fmt.Errorf("tokenInfo returned empty stack")
	}

	items, err := ParseArray(stack[0])
	if err != nil {
		return nil, fmt.Errorf("parse token info: %w", err)
	}
	if len(items) < 4 {
		return nil, fmt.Errorf("token info: expected 4 fields, got %d", len(items))
	}

	name, err := ParseString(items[0])
	if err != nil {
		return nil, fmt.Errorf("parse name: %w", err)
	}
	symbol, err := ParseString(items[1])
	if err != nil {
		return nil, fmt.Errorf("parse symbol: %w", err)
	}
	decimals, err := ParseInt64(items[2])
	if err != nil {
		return nil, fmt.Errorf("parse decimals: %w", err)
	}
	totalSupply, err := ParseAmount(items[3])
	if err != nil {
		return nil, fmt.Errorf("parse total supply: %w", err)
	}

	return &models.TokenInfo{
		Name:        name,
		Symbol:      symbol,
		Decimals:    decimals,
		TotalSupply: totalSupply,
	}, nil
}
