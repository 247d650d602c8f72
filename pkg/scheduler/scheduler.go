package scheduler

import (
	"context"
	"time"

	"github.com/agroledger/agroledger/pkg/models"
)

// Scheduler defines the interface for enqueueing a purchase submission for
// asynchronous reconciliation, optionally after a delay.
type Scheduler interface {
	// ScheduleReconciliation enqueues a submission for reconciliation after
	// the given delay.
	ScheduleReconciliation(ctx context.Context, sub *models.PurchaseSubmission, delay time.Duration) error
}
