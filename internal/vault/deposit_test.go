package vault

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kepfinance/kep-vault/internal/types"
)

func TestDepositLeveredFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ev, err := env.vault.Deposit(ctx, aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(100),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)

	// $100 at 3x leverage: borrow $200 of USDB, end with $300 of rsETH.
	assert.Equal(t, e18(300), env.store.LrtAmt)
	assert.Equal(t, e6(200), env.debtAmt(t))
	assert.Equal(t, types.StatusOpen, env.store.Status)

	// Bootstrap mint is 1:1 with deposited value.
	assert.Equal(t, e18(100), env.shareBalance(t, aliceAccount))
	assert.Equal(t, e18(100), env.shareSupply(t))
	assert.Equal(t, e18(900), env.tokenBalance(t, wntSymbol, aliceAccount))

	require.NotNil(t, ev)
	assert.Equal(t, types.EventDepositCompleted, ev.EventType)
	assert.Equal(t, e18(100), ev.SharesMinted)
	require.NotNil(t, ev.AfterHealth)
	assert.Equal(t, e18(100), ev.AfterHealth.EquityValue)
	assert.Equal(t, safeMultiplier, ev.AfterHealth.SvTokenValue)
	// 200/300 debt ratio, floored at 1e18 scale.
	assert.Equal(t, sdkmath.NewInt(666_666_666_666_666_666), ev.AfterHealth.DebtRatio)
}

func TestDepositSecondMintsAtSharePrice(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	ev, err := env.vault.Deposit(context.Background(), aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(100),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)

	assert.Equal(t, e18(600), env.store.LrtAmt)
	assert.Equal(t, e6(400), env.debtAmt(t))
	assert.Equal(t, e18(100), ev.SharesMinted)
	assert.Equal(t, e18(200), env.shareSupply(t))
}

func TestDepositNativeWrapsOnTheWayIn(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.vault.DepositNative(context.Background(), aliceAccount, DepositParams{
		Amt:         e18(50),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)

	assert.Equal(t, e18(150), env.store.LrtAmt)
	assert.Equal(t, e18(950), env.nativeBalance(t, aliceAccount))
	assert.Equal(t, e18(50), env.shareBalance(t, aliceAccount))
}

func TestDepositLstSwappedToWrappedNativeFirst(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.vault.Deposit(context.Background(), aliceAccount, DepositParams{
		Token:       lstSymbol,
		Amt:         e18(100),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)

	assert.Equal(t, e18(300), env.store.LrtAmt)
	assert.Equal(t, e18(900), env.tokenBalance(t, lstSymbol, aliceAccount))
	assert.Equal(t, e18(100), env.shareBalance(t, aliceAccount))
}

func TestDepositRejectsNonWhitelistedToken(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.world.FundToken(tokenBSymbol, aliceAccount, e6(500)))

	_, err := env.vault.Deposit(context.Background(), aliceAccount, DepositParams{
		Token:       tokenBSymbol,
		Amt:         e6(100),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.PreconditionFailed)

	// The funds pulled before the guard fired must come back on rollback.
	assert.Equal(t, e6(500), env.tokenBalance(t, tokenBSymbol, aliceAccount))
	assert.Equal(t, types.StatusOpen, env.store.Status)
}

func TestDepositBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("zero amount", func(t *testing.T) {
		_, err := env.vault.Deposit(ctx, aliceAccount, DepositParams{
			Token:       wntSymbol,
			Amt:         sdkmath.ZeroInt(),
			SlippageBps: 100,
			Deadline:    env.deadline(),
		})
		requireErrorCode(t, err, types.PreconditionFailed)
	})

	t.Run("slippage below vault minimum", func(t *testing.T) {
		_, err := env.vault.Deposit(ctx, aliceAccount, DepositParams{
			Token:       wntSymbol,
			Amt:         e18(100),
			SlippageBps: 5,
			Deadline:    env.deadline(),
		})
		requireErrorCode(t, err, types.PreconditionFailed)
	})

	t.Run("below minimum value", func(t *testing.T) {
		_, err := env.vault.Deposit(ctx, aliceAccount, DepositParams{
			Token:       wntSymbol,
			Amt:         sdkmath.NewInt(1_000), // far below $1
			SlippageBps: 100,
			Deadline:    env.deadline(),
		})
		requireErrorCode(t, err, types.PreconditionFailed)
	})

	t.Run("above additional capacity", func(t *testing.T) {
		// Pool headroom is $500k at 3x leverage; a $600k deposit cannot fit.
		require.NoError(t, env.world.FundToken(wntSymbol, aliceAccount, e18(600_000)))
		_, err := env.vault.Deposit(ctx, aliceAccount, DepositParams{
			Token:       wntSymbol,
			Amt:         e18(600_000),
			SlippageBps: 100,
			Deadline:    env.deadline(),
		})
		requireErrorCode(t, err, types.PreconditionFailed)
	})
}

func TestDepositRejectedWhenPaused(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	_, err := env.vault.EmergencyPause(context.Background(), keeperAccount)
	require.NoError(t, err)

	_, err = env.vault.Deposit(context.Background(), aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(10),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.PreconditionFailed)
}

func TestDepositRolledBackOnExcessiveImpact(t *testing.T) {
	env := newTestEnv(t)
	env.world.SetMarketImpactBps(200)

	_, err := env.vault.Deposit(context.Background(), aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(100),
		SlippageBps: 100, // tighter than the 200bps impact
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.ExternalCallError)

	// Everything must be exactly as before the call.
	assert.Equal(t, e18(1_000), env.tokenBalance(t, wntSymbol, aliceAccount))
	assert.True(t, env.store.LrtAmt.IsZero())
	assert.True(t, env.debtAmt(t).IsZero())
	assert.True(t, env.shareSupply(t).IsZero())
	assert.Equal(t, types.StatusOpen, env.store.Status)
}

func TestDepositRejectedWhenEquityWipedWithSharesOutstanding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedDeposit(t)

	// Halve the LRT price: $150 of assets against $200 of debt clamps
	// equity to zero while 100 shares remain outstanding.
	env.world.SetPrice(lrtSymbol, sdkmath.NewInt(500_000_000_000_000_000))

	equity, err := EquityValue(ctx, env.store)
	require.NoError(t, err)
	require.True(t, equity.IsZero())
	require.Equal(t, e18(100), env.shareSupply(t))

	_, err = env.vault.Deposit(ctx, aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(10),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.PreconditionFailed)

	// The rejected deposit leaves no trace.
	assert.Equal(t, e18(900), env.tokenBalance(t, wntSymbol, aliceAccount))
	assert.Equal(t, e18(100), env.shareSupply(t))
	assert.Equal(t, types.StatusOpen, env.store.Status)
}
