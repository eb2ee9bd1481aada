package vault

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/kepfinance/kep-vault/internal/clients/chain/sim"
	"github.com/kepfinance/kep-vault/internal/types"
)

const (
	lrtSymbol    = "rsETH"
	wntSymbol    = "WETH"
	lstSymbol    = "stETH"
	tokenBSymbol = "USDB"
	rewardSymbol = "RWD"
	shareSymbol  = "svKEP"

	vaultAccount    = "vault"
	treasuryAccount = "treasury"
	aliceAccount    = "alice"
	keeperAccount   = "keeper"
)

// testClock is a controllable clock shared by the world and the store.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	world *sim.World
	store *Store
	vault *Vault
	clock *testClock
}

func e18(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(safeMultiplier)
}

func e6(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).MulRaw(1_000_000)
}

// newTestEnv builds a deterministic world: every token priced at $1,
// lossless swaps, a 3x-levered neutral vault with permissive delta bounds
// and a [0.60, 0.70] debt-ratio band. Alice holds WETH, stETH and native
// value; the keeper holds every restricted capability.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newTestClock()
	world := sim.NewWorld(clock.Now)

	for symbol, decimals := range map[string]uint8{
		lrtSymbol:    18,
		wntSymbol:    18,
		lstSymbol:    18,
		rewardSymbol: 18,
		shareSymbol:  18,
		tokenBSymbol: 6,
	} {
		require.NoError(t, world.CreateToken(symbol, decimals))
		world.SetPrice(symbol, safeMultiplier)
	}

	require.NoError(t, world.InitLending(tokenBSymbol, e6(1_000_000)))
	require.NoError(t, world.FundToken(wntSymbol, aliceAccount, e18(1_000)))
	require.NoError(t, world.FundToken(lstSymbol, aliceAccount, e18(1_000)))
	world.FundNative(aliceAccount, e18(1_000))
	world.GrantRole(keeperAccount, "*")

	params := Params{
		Leverage:               e18(3),
		Delta:                  types.DeltaNeutral,
		FeePerSecond:           sdkmath.ZeroInt(),
		DebtRatioStepThreshold: 500,
		DebtRatioLowerLimit:    sdkmath.NewInt(600_000_000_000_000_000),
		DebtRatioUpperLimit:    sdkmath.NewInt(700_000_000_000_000_000),
		DeltaLowerLimit:        sdkmath.ZeroInt(),
		DeltaUpperLimit:        e18(2),
		MinVaultSlippage:       10,
		SwapSlippage:           50,
		MinAssetValue:          e18(1),
		MaxAssetValue:          e18(1_000_000),
	}

	collab := Collaborators{
		Tokens: Tokens{
			Lrt:    world.Token(lrtSymbol),
			Wnt:    world.WrappedNative(wntSymbol),
			Lst:    world.Token(lstSymbol),
			TokenB: world.Token(tokenBSymbol),
			Reward: world.Token(rewardSymbol),
		},
		Lending: world.Lending(),
		Oracle:  world.Oracle(),
		Router:  world.Router(),
		Shares:  world.ShareToken(shareSymbol),
		Native:  world.NativeBank(),
	}

	store := NewStore(vaultAccount, treasuryAccount, collab, params, clock.Now)
	return &testEnv{
		world: world,
		store: store,
		vault: New(store, world.Authority(), world),
		clock: clock,
	}
}

func (e *testEnv) deadline() time.Time {
	return e.clock.Now().Add(time.Hour)
}

// seedDeposit levers up a fresh vault with a $100 WETH deposit from alice:
// 300 rsETH of assets against 200 USDB of debt, 100 shares outstanding.
func (e *testEnv) seedDeposit(t *testing.T) {
	t.Helper()
	_, err := e.vault.Deposit(context.Background(), aliceAccount, DepositParams{
		Token:       wntSymbol,
		Amt:         e18(100),
		SlippageBps: 100,
		Deadline:    e.deadline(),
	})
	require.NoError(t, err)
}

func (e *testEnv) tokenBalance(t *testing.T, symbol, account string) sdkmath.Int {
	t.Helper()
	bal, err := e.world.Token(symbol).BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return bal
}

func (e *testEnv) shareBalance(t *testing.T, account string) sdkmath.Int {
	t.Helper()
	bal, err := e.store.Collaborators.Shares.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return bal
}

func (e *testEnv) shareSupply(t *testing.T) sdkmath.Int {
	t.Helper()
	supply, err := e.store.Collaborators.Shares.TotalSupply(context.Background())
	require.NoError(t, err)
	return supply
}

func (e *testEnv) debtAmt(t *testing.T) sdkmath.Int {
	t.Helper()
	debt, err := DebtAmt(context.Background(), e.store)
	require.NoError(t, err)
	return debt
}

func (e *testEnv) nativeBalance(t *testing.T, account string) sdkmath.Int {
	t.Helper()
	bal, err := e.store.Collaborators.Native.NativeBalanceOf(context.Background(), account)
	require.NoError(t, err)
	return bal
}

func requireErrorCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.True(t, types.HasErrorCode(err, code), "expected %s, got %v", code, err)
}
