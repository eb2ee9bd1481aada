package vault

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kepfinance/kep-vault/internal/types"
)

func TestRebalanceRequiresKeeper(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	_, err := env.vault.RebalanceAdd(context.Background(), aliceAccount, RebalanceAddParams{
		RebalanceType:   types.RebalanceDebt,
		BorrowTokenBAmt: e6(10),
		SlippageBps:     100,
		Deadline:        env.deadline(),
	})
	requireErrorCode(t, err, types.Unauthorized)
}

func TestRebalanceNoOpWhenWithinLimits(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	ctx := context.Background()

	// Debt ratio sits at 2/3, inside the [0.60, 0.70] band.
	_, err := env.vault.RebalanceRemove(ctx, keeperAccount, RebalanceRemoveParams{
		RebalanceType:  types.RebalanceDebt,
		LrtAmtToRemove: e18(10),
		SlippageBps:    100,
		Deadline:       env.deadline(),
	})
	requireErrorCode(t, err, types.PreconditionFailed)

	// Delta sits at 1.0, inside the permissive delta band.
	_, err = env.vault.RebalanceAdd(ctx, keeperAccount, RebalanceAddParams{
		RebalanceType:   types.RebalanceDelta,
		BorrowTokenBAmt: e6(10),
		SlippageBps:     100,
		Deadline:        env.deadline(),
	})
	requireErrorCode(t, err, types.PreconditionFailed)
}

func TestRebalanceRemoveRestoresDebtRatio(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	// Accrued interest pushes the ratio to 250/300 = 0.83, above the band.
	env.world.AccrueDebt(vaultAccount, e6(50))

	ev, err := env.vault.RebalanceRemove(context.Background(), keeperAccount, RebalanceRemoveParams{
		RebalanceType:  types.RebalanceDebt,
		LrtAmtToRemove: e18(150),
		SlippageBps:    100,
		Deadline:       env.deadline(),
	})
	require.NoError(t, err)

	assert.Equal(t, e18(150), env.store.LrtAmt)
	assert.Equal(t, e6(100), env.debtAmt(t))
	assert.Equal(t, types.StatusOpen, env.store.Status)
	require.NotNil(t, ev)
	assert.Equal(t, types.EventRebalanceRemoveCompleted, ev.EventType)
	// Back to 100/150 = 2/3 inside the band.
	assert.Equal(t, sdkmath.NewInt(666_666_666_666_666_666), ev.AfterHealth.DebtRatio)
}

func TestRebalanceAddRestoresDebtRatio(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	// A rising collateral price dilutes the ratio below the band:
	// 200 / (300 * 1.2) = 0.55.
	env.world.SetPrice(lrtSymbol, sdkmath.NewInt(1_200_000_000_000_000_000))

	_, err := env.vault.RebalanceAdd(context.Background(), keeperAccount, RebalanceAddParams{
		RebalanceType:   types.RebalanceDebt,
		BorrowTokenBAmt: e6(60),
		SlippageBps:     100,
		Deadline:        env.deadline(),
	})
	require.NoError(t, err)

	// 60 USDB borrowed buys 50 rsETH at the new price.
	assert.Equal(t, e18(350), env.store.LrtAmt)
	assert.Equal(t, e6(260), env.debtAmt(t))

	// 260 / 420 back inside the band.
	ratio, err := DebtRatio(context.Background(), env.store)
	require.NoError(t, err)
	assert.True(t, ratio.GTE(env.store.Params.DebtRatioLowerLimit))
	assert.True(t, ratio.LTE(env.store.Params.DebtRatioUpperLimit))
}

func TestRebalanceRolledBackWhenResultOutOfBounds(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	env.world.AccrueDebt(vaultAccount, e6(50))

	// Removing 200 rsETH overshoots: 50/100 = 0.5 below the band.
	_, err := env.vault.RebalanceRemove(context.Background(), keeperAccount, RebalanceRemoveParams{
		RebalanceType:  types.RebalanceDebt,
		LrtAmtToRemove: e18(200),
		SlippageBps:    100,
		Deadline:       env.deadline(),
	})
	requireErrorCode(t, err, types.PostconditionFailed)

	assert.Equal(t, e18(300), env.store.LrtAmt)
	assert.Equal(t, e6(250), env.debtAmt(t))
	assert.Equal(t, types.StatusOpen, env.store.Status)
}

func TestCompoundFoldsRewardsIntoPosition(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)
	require.NoError(t, env.world.FundToken(rewardSymbol, vaultAccount, e18(10)))

	ev, err := env.vault.Compound(context.Background(), keeperAccount, CompoundParams{
		TokenIn:     rewardSymbol,
		TokenOut:    lrtSymbol,
		AmtIn:       e18(10),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	require.NoError(t, err)

	assert.Equal(t, e18(310), env.store.LrtAmt)
	assert.Equal(t, types.StatusOpen, env.store.Status)
	require.NotNil(t, ev)
	assert.Equal(t, types.EventCompoundCompleted, ev.EventType)
	// Harvested value accrues to existing shares, no new mint.
	assert.Equal(t, e18(100), env.shareSupply(t))
}

func TestCompoundRequiresKeeper(t *testing.T) {
	env := newTestEnv(t)
	env.seedDeposit(t)

	_, err := env.vault.Compound(context.Background(), aliceAccount, CompoundParams{
		TokenIn:     rewardSymbol,
		TokenOut:    lrtSymbol,
		AmtIn:       e18(1),
		SlippageBps: 100,
		Deadline:    env.deadline(),
	})
	requireErrorCode(t, err, types.Unauthorized)
}
