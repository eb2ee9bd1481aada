package vault

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kepfinance/kep-vault/internal/types"
)

func TestReentrantOperationRejected(t *testing.T) {
	env := newTestEnv(t)

	// Simulate an operation already in flight holding the guard.
	require.True(t, env.vault.opMu.TryLock())
	defer env.vault.opMu.Unlock()

	_, err := env.vault.Deposit(context.Background(), aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(100),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.ReentrantCall)
}

func TestRestrictedCallWithPendingDelayRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	env.world.SetExecutionDelay(time.Hour)

	_, err := env.vault.EmergencyPause(context.Background(), keeperAccount)
	requireErrorCode(t, err, types.Unauthorized)
	assert.Equal(t, types.StatusOpen, env.store.Status)
}

func TestSettersRestrictedToAuthorizedCallers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.vault.SetLeverage(ctx, aliceAccount, e18(4))
	requireErrorCode(t, err, types.Unauthorized)
	assert.Equal(t, e18(3), env.store.Params.Leverage)

	require.NoError(t, env.vault.SetLeverage(ctx, keeperAccount, e18(4)))
	assert.Equal(t, e18(4), env.store.Params.Leverage)

	require.NoError(t, env.vault.SetFeePerSecond(ctx, keeperAccount, sdkmath.NewInt(1_000_000)))
	assert.Equal(t, sdkmath.NewInt(1_000_000), env.store.Params.FeePerSecond)

	require.NoError(t, env.vault.SetTreasury(ctx, keeperAccount, "treasury-2"))
	assert.Equal(t, "treasury-2", env.store.Treasury)

	require.NoError(t, env.vault.SetDebtRatioLimits(ctx, keeperAccount,
		sdkmath.NewInt(500_000_000_000_000_000), sdkmath.NewInt(800_000_000_000_000_000)))
	assert.Equal(t, sdkmath.NewInt(500_000_000_000_000_000), env.store.Params.DebtRatioLowerLimit)
	assert.Equal(t, sdkmath.NewInt(800_000_000_000_000_000), env.store.Params.DebtRatioUpperLimit)

	require.NoError(t, env.vault.SetSlippageBounds(ctx, keeperAccount, 20, 80))
	assert.Equal(t, int64(20), env.store.Params.MinVaultSlippage)
	assert.Equal(t, int64(80), env.store.Params.SwapSlippage)
}

func TestFailedSetterLeavesStoreUntouched(t *testing.T) {
	env := newTestEnv(t)

	before := env.store.Params
	err := env.vault.SetMinMaxAssetValue(context.Background(), aliceAccount, e18(2), e18(500))
	requireErrorCode(t, err, types.Unauthorized)
	assert.Equal(t, before, env.store.Params)
}

func TestOperationsRunSequentially(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	ctx := context.Background()

	// Back-to-back operations each take and release the guard.
	for range 3 {
		_, err := env.vault.Deposit(ctx, aliceAccount, DepositParams{
			Token:       wntSymbol,
			Amt:         e18(10),
			SlippageBps: 100,
			Deadline:    env.deadline(),
		})
		require.NoError(t, err)
	}
	assert.Equal(t, e18(130), env.shareSupply(t))
}

func TestHealthReadsSafeDuringOperations(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	ctx := context.Background()

	// Hammer the read-only accessors from another goroutine while deposits
	// commit; the race detector flags any unguarded store access.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = env.vault.Status()
			_ = env.vault.Store().LrtAmt
		}
	}()

	for range 20 {
		_, err := env.vault.Deposit(ctx, aliceAccount, DepositParams{
			Token:       wntSymbol,
			Amt:         e18(1),
			SlippageBps: 100,
			Deadline:    env.deadline(),
		})
		require.NoError(t, err)
	}
	close(done)
	wg.Wait()

	assert.Equal(t, e18(120), env.shareSupply(t))
}

func TestStoreAccessorReturnsCopy(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	view := env.vault.Store()
	view.LrtAmt = sdkmath.ZeroInt()
	view.Status = types.StatusPaused

	assert.Equal(t, e18(300), env.store.LrtAmt)
	assert.Equal(t, types.StatusOpen, env.vault.Status())
}
