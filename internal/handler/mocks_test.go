package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/osse101/MinerSync_Go/internal/domain"
)

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSessionService) Stop(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSessionService) Acknowledge(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSessionService) FullSync(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSessionService) Status(now time.Time) domain.SessionStatus {
	return m.Called(now).Get(0).(domain.SessionStatus)
}

type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) OnAppForeground(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockLifecycle) OnAppBackground(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockBoostService struct {
	mock.Mock
}

func (m *MockBoostService) Grant(ctx context.Context, entry domain.BoostEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockBoostService) Withdraw(ctx context.Context, kind domain.BoostKind) error {
	return m.Called(ctx, kind).Error(0)
}

func (m *MockBoostService) Active() []domain.BoostEntry {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.BoostEntry)
}

type MockRewarder struct {
	mock.Mock
}

func (m *MockRewarder) Reward(ctx context.Context, amount decimal.Decimal, source, key string) (decimal.Decimal, error) {
	args := m.Called(ctx, amount, source, key)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
