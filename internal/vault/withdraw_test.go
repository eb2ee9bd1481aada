package vault

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kepfinance/kep-vault/internal/types"
)

func TestWithdrawProportionalUnwind(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	nativeBefore := env.nativeBalance(t, aliceAccount)

	ev, err := env.vault.Withdraw(context.Background(), aliceAccount, WithdrawParams{
		ShareAmt:    e18(10), // 10% of supply
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)

	// 10% of the position unwinds: 30 rsETH out, 20 USDB of debt repaid,
	// 10 WETH worth of value back to the caller, natively.
	assert.Equal(t, e18(270), env.store.LrtAmt)
	assert.Equal(t, e6(180), env.debtAmt(t))
	assert.Equal(t, e18(90), env.shareSupply(t))
	assert.Equal(t, e18(90), env.shareBalance(t, aliceAccount))
	assert.Equal(t, nativeBefore.Add(e18(10)), env.nativeBalance(t, aliceAccount))
	assert.Equal(t, types.StatusOpen, env.store.Status)

	require.NotNil(t, ev)
	assert.Equal(t, types.EventWithdrawCompleted, ev.EventType)
	assert.Equal(t, e18(10), ev.SharesBurned)
	assert.Equal(t, e18(10), ev.AssetsOut)
	require.NotNil(t, ev.AfterHealth)
	assert.Equal(t, e18(90), ev.AfterHealth.EquityValue)
}

func TestWithdrawFallsBackToTokenTransfer(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	env.world.BlockNativeSends(aliceAccount)
	wntBefore := env.tokenBalance(t, wntSymbol, aliceAccount)
	nativeBefore := env.nativeBalance(t, aliceAccount)

	_, err := env.vault.Withdraw(context.Background(), aliceAccount, WithdrawParams{
		ShareAmt:    e18(10),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)

	assert.Equal(t, nativeBefore, env.nativeBalance(t, aliceAccount))
	assert.Equal(t, wntBefore.Add(e18(10)), env.tokenBalance(t, wntSymbol, aliceAccount))
}

func TestWithdrawRejectsExcessShares(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	_, err := env.vault.Withdraw(context.Background(), aliceAccount, WithdrawParams{
		ShareAmt:    e18(200),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.PreconditionFailed)
}

func TestWithdrawEmptyVault(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.vault.Withdraw(context.Background(), aliceAccount, WithdrawParams{
		ShareAmt:    e18(1),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.PreconditionFailed)
}

func TestWithdrawRolledBackOnExcessiveImpact(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	env.world.SetMarketImpactBps(200)

	_, err := env.vault.Withdraw(context.Background(), aliceAccount, WithdrawParams{
		ShareAmt:    e18(10),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.ExternalCallError)

	// Burned shares must be restored along with the rest of the world.
	assert.Equal(t, e18(100), env.shareSupply(t))
	assert.Equal(t, e18(300), env.store.LrtAmt)
	assert.Equal(t, e6(200), env.debtAmt(t))
	assert.Equal(t, types.StatusOpen, env.store.Status)
}

func TestManagementFeeMintedToTreasury(t *testing.T) {
	env := newTestEnv(t)
	// 1e12 per second of 1e18 is a 1e-6 supply fraction each second.
	env.store.Params.FeePerSecond = sdkmath.NewInt(1_000_000_000_000)
	env.store.LastFeeCollected = env.clock.Now()
	env.seedDeposit(t)

	env.clock.Advance(1000 * time.Second)

	_, err := env.vault.Withdraw(context.Background(), aliceAccount, WithdrawParams{
		ShareAmt:    e18(10),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)

	// supply * 1e-6 * 1000s = 0.1 shares of fee.
	assert.Equal(t, sdkmath.NewInt(100_000_000_000_000_000), env.shareBalance(t, treasuryAccount))
}
