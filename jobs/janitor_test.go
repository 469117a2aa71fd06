package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCleaner struct {
	mock.Mock
}

func (m *mockCleaner) CleanupAbandonedUploads(ctx context.Context, maxAge time.Duration) (int, error) {
	args := m.Called(ctx, maxAge)
	return args.Int(0), args.Error(1)
}

func TestJanitor_SweepUsesMaxAge(t *testing.T) {
	cleaner := &mockCleaner{}
	cleaner.On("CleanupAbandonedUploads", mock.Anything, time.Hour).Return(2, nil).Once()
	cleaner.On("CleanupAbandonedUploads", mock.Anything, time.Hour).Return(0, errors.New("db down")).Once()

	j, err := NewJanitor(cleaner, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	j.Start()
	defer j.Stop()

	j.sweep(context.Background())
	j.sweep(context.Background())

	cleaner.AssertExpectations(t)
}

func TestJanitor_RunsOnSchedule(t *testing.T) {
	cleaner := &mockCleaner{}
	ran := make(chan struct{}, 10)
	cleaner.On("CleanupAbandonedUploads", mock.Anything, time.Minute).
		Run(func(mock.Arguments) { ran <- struct{}{} }).
		Return(0, nil)

	j, err := NewJanitor(cleaner, 20*time.Millisecond, time.Minute)
	require.NoError(t, err)
	j.Start()
	defer j.Stop()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor never ran")
	}
}
