package vault

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
)

func TestIsWithinStepChange(t *testing.T) {
	testCases := []struct {
		name         string
		before       int64
		after        int64
		thresholdBps int64
		expected     bool
	}{
		{
			name:         "zero baseline always passes",
			before:       0,
			after:        1_000_000,
			thresholdBps: 100,
			expected:     true,
		},
		{
			name:         "unchanged value",
			before:       10_000,
			after:        10_000,
			thresholdBps: 100,
			expected:     true,
		},
		{
			name:         "at upper edge",
			before:       10_000,
			after:        10_500,
			thresholdBps: 500,
			expected:     true,
		},
		{
			name:         "at lower edge",
			before:       10_000,
			after:        9_500,
			thresholdBps: 500,
			expected:     true,
		},
		{
			name:         "above upper edge",
			before:       10_000,
			after:        10_501,
			thresholdBps: 500,
			expected:     false,
		},
		{
			name:         "below lower edge",
			before:       10_000,
			after:        9_499,
			thresholdBps: 500,
			expected:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := isWithinStepChange(
				sdkmath.NewInt(tc.before), sdkmath.NewInt(tc.after), tc.thresholdBps)
			assert.Equal(t, tc.expected, got)
		})
	}
}
