package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrCapacityExceeded,
		ErrInvalidTransition,
		ErrConflict,
		ErrForbidden,
		ErrInvalidInput,
	}

	t.Run("survive wrapping", func(t *testing.T) {
		for _, sentinel := range sentinels {
			wrapped := fmt.Errorf("join event abc: %w", sentinel)
			require.True(t, errors.Is(wrapped, sentinel), "wrapped %v should match", sentinel)
		}
	})

	t.Run("pairwise distinct", func(t *testing.T) {
		for i, a := range sentinels {
			for j, b := range sentinels {
				if i == j {
					continue
				}
				require.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	})
}
