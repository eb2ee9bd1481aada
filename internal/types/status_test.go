package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("paused")
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, s)

	s, err = ParseStatus("DEPOSIT_FAILED")
	require.NoError(t, err)
	assert.Equal(t, StatusDepositFailed, s)

	_, err = ParseStatus("LIQUIDATED")
	assert.Error(t, err)

	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestIsQualified(t *testing.T) {
	assert.True(t, StatusOpen.IsQualified(QualifiedSourceStatesForDeposit()))
	assert.False(t, StatusPaused.IsQualified(QualifiedSourceStatesForDeposit()))
	assert.True(t, StatusClosed.IsQualified(QualifiedSourceStatesForEmergencyWithdraw()))
	assert.False(t, StatusOpen.IsQualified(QualifiedSourceStatesForEmergencyWithdraw()))
	assert.True(t, StatusOpen.IsQualified(QualifiedSourceStatesForCompound()))
	assert.False(t, StatusCompound.IsQualified(QualifiedSourceStatesForCompound()))
}
