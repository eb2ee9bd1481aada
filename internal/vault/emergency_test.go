package vault

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kepfinance/kep-vault/internal/types"
)

func TestEmergencyUnwindLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	ctx := context.Background()

	ev, err := env.vault.EmergencyPause(ctx, keeperAccount)
	require.NoError(t, err)
	assert.Equal(t, types.EventEmergencyPaused, ev.EventType)
	assert.Equal(t, types.StatusPaused, env.store.Status)

	// Pausing twice is rejected.
	_, err = env.vault.EmergencyPause(ctx, keeperAccount)
	requireErrorCode(t, err, types.PreconditionFailed)

	// Exact-out repay clears the full 200 USDB debt with 200 rsETH.
	ev, err = env.vault.EmergencyRepay(ctx, keeperAccount, 100, env.deadline())
	require.NoError(t, err)
	assert.Equal(t, types.EventEmergencyRepaid, ev.EventType)
	assert.Equal(t, types.StatusRepaid, env.store.Status)
	assert.True(t, env.debtAmt(t).IsZero())
	assert.Equal(t, e18(100), env.store.LrtAmt)

	// Re-borrow puts the vault back to Paused with a rebuilt position.
	ev, err = env.vault.EmergencyBorrow(ctx, keeperAccount, e6(100), 100, env.deadline())
	require.NoError(t, err)
	assert.Equal(t, types.EventEmergencyBorrowed, ev.EventType)
	assert.Equal(t, types.StatusPaused, env.store.Status)
	assert.Equal(t, e6(100), env.debtAmt(t))
	assert.Equal(t, e18(200), env.store.LrtAmt)

	_, err = env.vault.EmergencyRepay(ctx, keeperAccount, 100, env.deadline())
	require.NoError(t, err)

	// Close folds the remaining rsETH into WETH held at the vault.
	ev, err = env.vault.EmergencyClose(ctx, keeperAccount, 100, env.deadline())
	require.NoError(t, err)
	assert.Equal(t, types.EventEmergencyClosed, ev.EventType)
	assert.Equal(t, types.StatusClosed, env.store.Status)
	assert.True(t, env.store.LrtAmt.IsZero())
	assert.Equal(t, e18(100), env.tokenBalance(t, wntSymbol, vaultAccount))

	// Pro-rata withdraw of the full supply pays everything out.
	aliceBefore := env.tokenBalance(t, wntSymbol, aliceAccount)
	ev, err = env.vault.EmergencyWithdraw(ctx, aliceAccount, e18(100))
	require.NoError(t, err)
	assert.Equal(t, types.EventEmergencyWithdrawCompleted, ev.EventType)
	assert.Equal(t, e18(100), ev.SharesBurned)
	assert.Equal(t, e18(100), ev.AssetsOut)
	assert.Equal(t, aliceBefore.Add(e18(100)), env.tokenBalance(t, wntSymbol, aliceAccount))
	assert.True(t, env.shareSupply(t).IsZero())
}

func TestEmergencyResumeReopensVault(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	ctx := context.Background()

	_, err := env.vault.EmergencyPause(ctx, keeperAccount)
	require.NoError(t, err)

	ev, err := env.vault.EmergencyResume(ctx, keeperAccount)
	require.NoError(t, err)
	assert.Equal(t, types.EventEmergencyResumed, ev.EventType)
	assert.Equal(t, types.StatusOpen, env.store.Status)

	// The vault accepts deposits again.
	_, err = env.vault.Deposit(ctx, aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(10),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)
}

func TestEmergencyWithdrawOnlyWhenClosed(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	_, err := env.vault.EmergencyWithdraw(context.Background(), aliceAccount, e18(10))
	requireErrorCode(t, err, types.PreconditionFailed)
}

func TestEmergencyRepayRejectedWhenCollateralShort(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	ctx := context.Background()

	_, err := env.vault.EmergencyPause(ctx, keeperAccount)
	require.NoError(t, err)

	// Debt grows to 400 USDB; the slippage-padded repay needs up to
	// 402 rsETH against holdings of 300.
	env.world.AccrueDebt(vaultAccount, e6(200))

	_, err = env.vault.EmergencyRepay(ctx, keeperAccount, 100, env.deadline())
	requireErrorCode(t, err, types.PreconditionFailed)

	assert.Equal(t, types.StatusPaused, env.store.Status)
	assert.Equal(t, e18(300), env.store.LrtAmt)
	assert.Equal(t, e6(400), env.debtAmt(t))
}

func TestStatusOverride(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	ctx := context.Background()

	// Blocked while the vault operates normally.
	_, err := env.vault.EmergencyStatusChange(ctx, keeperAccount, types.StatusDepositFailed)
	requireErrorCode(t, err, types.PreconditionFailed)

	_, err = env.vault.EmergencyPause(ctx, keeperAccount)
	require.NoError(t, err)

	ev, err := env.vault.EmergencyStatusChange(ctx, keeperAccount, types.StatusDepositFailed)
	require.NoError(t, err)
	assert.Equal(t, types.EventStatusOverridden, ev.EventType)
	assert.Equal(t, types.StatusDepositFailed, env.store.Status)

	// The overridden state rejects user flows.
	_, err = env.vault.Deposit(ctx, aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(10),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.PreconditionFailed)
}

func TestEmergencyOpsRequireKeeper(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	ctx := context.Background()

	_, err := env.vault.EmergencyPause(ctx, aliceAccount)
	requireErrorCode(t, err, types.Unauthorized)

	_, err = env.vault.EmergencyRepay(ctx, aliceAccount, 100, env.deadline())
	requireErrorCode(t, err, types.Unauthorized)

	_, err = env.vault.EmergencyBorrow(ctx, aliceAccount, sdkmath.NewInt(1), 100, env.deadline())
	requireErrorCode(t, err, types.Unauthorized)
}
