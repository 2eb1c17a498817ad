package service

import (
	"context"

	"inspiranet/internal/lifecycle"

	"github.com/stretchr/testify/mock"
)

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) ProcessAutoDelete(ctx context.Context) (*lifecycle.SweepResult, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(*lifecycle.SweepResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSweeper) ServerCleanup(ctx context.Context, opts lifecycle.CleanupOptions) (*lifecycle.CleanupResult, error) {
	args := m.Called(ctx, opts)
	if res := args.Get(0); res != nil {
		return res.(*lifecycle.CleanupResult), args.Error(1)
	}
	return nil, args.Error(1)
}
