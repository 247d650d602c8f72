package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/agroledger/agroledger/pkg/models"
)

// Scheduler is a mock of the scheduler.Scheduler interface.
type Scheduler struct {
	mock.Mock
}

func (m *Scheduler) ScheduleReconciliation(ctx context.Context, sub *models.PurchaseSubmission, delay time.Duration) error {
	args := m.Called(ctx, sub, delay)
	return args.Error(0)
}
