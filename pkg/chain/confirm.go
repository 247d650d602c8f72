package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agroledger/agroledger/pkg/models"
)

// DefaultFinalityDepth is the minimum number of confirmations after which a
// transaction is treated as final.
const DefaultFinalityDepth = 1

// WaitForConfirmation polls until the transaction is included and has reached
// the requested finality depth, then verifies that its execution halted.
//
// The wait is unbounded unless the caller's context carries a deadline.
// Deadline expiry surfaces as ErrConfirmationPending: the transaction may
// still land, so "timed out waiting" is never reported as a rejection or a
// revert. A FAULT execution after inclusion surfaces as
// TransactionRevertedError.
func (c *Client) WaitForConfirmation(ctx context.Context, handle models.TxHandle, finalityDepth uint64) (*models.TxConfirmation, error) {
	if finalityDepth == 0 {
		finalityDepth = DefaultFinalityDepth
	}

	includedAt, err := c.waitForInclusion(ctx, handle.Hash)
	if err != nil {
		return nil, err
	}

	// The transaction executed at inclusion; a fault there is permanent.
	appLog, err := c.GetApplicationLog(ctx, handle.Hash)
	if err != nil {
		return nil, err
	}
	for _, exec := range appLog.Executions {
		if exec.VMState == VMStateFault {
			return nil, &TransactionRevertedError{TxHash: handle.Hash, Reason: exec.Exception}
		}
	}

	confirmations, err := c.waitForDepth(ctx, includedAt, finalityDepth)
	if err != nil {
		return nil, err
	}

	return &models.TxConfirmation{
		Hash:          handle.Hash,
		IncludedAt:    includedAt,
		Confirmations: confirmations,
	}, nil
}

func (c *Client) waitForInclusion(ctx context.Context, txHash string) (uint64, error) {
	for {
		height, err := c.GetTransactionHeight(ctx, txHash)
		if err == nil {
			return height, nil
		}
		if !errors.Is(err, errNotIncluded) {
			return 0, err
		}

		if err := c.sleepPoll(ctx); err != nil {
			return 0, err
		}
	}
}

func (c *Client) waitForDepth(ctx context.Context, includedAt, finalityDepth uint64) (uint64, error) {
	for {
		count, err := c.GetBlockCount(ctx)
		if err != nil {
			return 0, err
		}
		// Block count is the next height; confirmations counts the
		// inclusion block itself.
		if count > includedAt {
			confirmations := count - includedAt
			if confirmations >= finalityDepth {
				return confirmations, nil
			}
		}

		if err := c.sleepPoll(ctx); err != nil {
			return 0, err
		}
	}
}

func (c *Client) sleepPoll(ctx context.Context) error {
	timer := time.NewTimer(c.pollEvery)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrConfirmationPending, ctx.Err())
	case <-timer.C:
		return nil
	}
}
