package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"database is locked", errors.New("database is locked"), true},
		{"table locked", errors.New("database table is locked"), true},
		{"SQLITE_BUSY", errors.New("SQLITE_BUSY"), true},
		{"error code 5", errors.New("error (5): database busy"), true},
		{"unrelated error", errors.New("connection refused"), false},
		{"constraint violation", errors.New("UNIQUE constraint failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isBusyError(tt.err))
		})
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	for n := 0; n < 64; n++ {
		d := backoff(n)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, retryMaxDelay)
	}
	assert.GreaterOrEqual(t, backoff(0), retryBaseDelay)
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds on first attempt", func(t *testing.T) {
		attempts := 0
		v, err := retry(context.Background(), 5, func() (int, error) {
			attempts++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 1, attempts)
	})

	t.Run("retries busy errors", func(t *testing.T) {
		attempts := 0
		_, err := retry(context.Background(), 5, func() (struct{}, error) {
			attempts++
			if attempts < 3 {
				return struct{}{}, errors.New("database is locked")
			}
			return struct{}{}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up on other errors immediately", func(t *testing.T) {
		attempts := 0
		_, err := retry(context.Background(), 5, func() (int, error) {
			attempts++
			return 0, errors.New("connection refused")
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("stops after max retries", func(t *testing.T) {
		attempts := 0
		_, err := retry(context.Background(), 2, func() (int, error) {
			attempts++
			return 0, errors.New("SQLITE_BUSY")
		})
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("respects cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		_, err := retry(ctx, 100, func() (int, error) {
			return 0, errors.New("database is locked")
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}
