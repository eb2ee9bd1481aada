// Package vault implements the leveraged yield-vault engine: the ledger
// (Store), the derived health views (reader), the guard predicates
// (checks), the borrow/repay/swap primitives (manager) and the operation
// workflows orchestrating them.
package vault

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
	"github.com/kepfinance/kep-vault/internal/types"
)

// safeMultiplier is the fixed-point scale for ratios, prices and USD values.
var safeMultiplier = sdkmath.NewInt(1_000_000_000_000_000_000)

// Tokens holds the collaborator token handles.
type Tokens struct {
	Lrt    chain.Token         // the yield-bearing restaking token the vault accumulates
	Wnt    chain.WrappedNative // wrapped native token
	Lst    chain.Token         // liquid staking token, accepted on deposit and swapped to WNT
	TokenB chain.Token         // the borrowed debt asset
	Reward chain.Token         // reward token paid out on emergency withdraw
}

// Collaborators are the external contracts the vault calls into. The engine
// depends only on these interfaces; tests and the sim mode inject
// deterministic implementations.
type Collaborators struct {
	Tokens
	Lending chain.LendingMarket
	Oracle  chain.PriceOracle
	Router  chain.SwapRouter
	Shares  chain.ShareToken
	Native  chain.NativeBank
}

// Params are the vault's tunable guard thresholds and strategy settings.
type Params struct {
	Leverage     sdkmath.Int         // target asset/equity ratio, 1e18
	Delta        types.DeltaStrategy // Neutral | Long | Short
	FeePerSecond sdkmath.Int         // management fee accrual rate, 1e18 fraction of supply per second

	DebtRatioStepThreshold int64       // max debt-ratio drift per deposit/withdraw, bps
	DebtRatioUpperLimit    sdkmath.Int // post-rebalance bound, 1e18
	DebtRatioLowerLimit    sdkmath.Int // post-rebalance bound, 1e18
	DeltaUpperLimit        sdkmath.Int // post-rebalance bound, signed 1e18
	DeltaLowerLimit        sdkmath.Int // post-rebalance bound, signed 1e18

	MinVaultSlippage int64 // minimum slippage tolerance callers may pass, bps
	SwapSlippage     int64 // slippage buffer for vault-initiated exact-output swaps, bps

	MinAssetValue sdkmath.Int // minimum USD value per deposit, 1e18
	MaxAssetValue sdkmath.Int // maximum USD value per deposit/withdraw, 1e18
}

// BorrowParams carries the borrow leg of a deposit or rebalance-add.
type BorrowParams struct {
	BorrowTokenBAmt sdkmath.Int
}

// RepayParams carries the repay leg of a withdraw or rebalance-remove.
type RepayParams struct {
	RepayTokenBAmt sdkmath.Int
}

// DepositCache is the scratch state of one deposit operation.
type DepositCache struct {
	Depositor    string
	TokenIn      string
	AmountIn     sdkmath.Int
	Native       bool
	SlippageBps  int64
	Deadline     time.Time
	DepositValue sdkmath.Int // USD 1e18
	MinSharesAmt sdkmath.Int // computed for observability, not asserted (see DESIGN.md)
	SharesToUser sdkmath.Int
	BorrowParams BorrowParams
	HealthParams types.HealthParams
}

// WithdrawCache is the scratch state of one withdraw operation.
type WithdrawCache struct {
	Withdrawer    string
	ShareAmt      sdkmath.Int
	ShareRatio    sdkmath.Int // 1e18
	LrtAmtRemoved sdkmath.Int
	WithdrawValue sdkmath.Int // USD 1e18
	MinAssetsAmt  sdkmath.Int // computed for observability, not asserted (see DESIGN.md)
	AssetsToUser  sdkmath.Int // WNT amount returned
	SlippageBps   int64
	Deadline      time.Time
	RepayParams   RepayParams
	HealthParams  types.HealthParams
}

// RebalanceCache is the scratch state of one rebalance operation.
type RebalanceCache struct {
	RebalanceType  types.RebalanceType
	BorrowParams   BorrowParams
	LrtAmtToRemove sdkmath.Int
	HealthParams   types.HealthParams
}

// CompoundCache is the scratch state of one compound operation.
type CompoundCache struct {
	TokenIn      string
	TokenOut     string
	AmtIn        sdkmath.Int
	Deadline     time.Time
	DepositValue sdkmath.Int // USD 1e18
	HealthParams types.HealthParams
}

// Store is the vault's persistent ledger. It is exclusively owned by one
// Vault instance; workflows receive it by pointer and must not retain it
// beyond their call. All mutating entry points run one at a time under the
// facade's guard.
type Store struct {
	Status types.Status

	// LrtAmt is the vault's accounted LRT holding, the ledger of what the
	// vault owns for valuation purposes. It can differ from the raw token
	// balance while an operation is in flight.
	LrtAmt sdkmath.Int

	LastFeeCollected time.Time
	Treasury         string

	Params Params

	// VaultAccount is the vault's own account on the chain: the borrower at
	// the lending market, the trader at the router, the holder of
	// collateral balances.
	VaultAccount string

	Collaborators Collaborators

	DepositCache   DepositCache
	WithdrawCache  WithdrawCache
	RebalanceCache RebalanceCache
	CompoundCache  CompoundCache

	// now is the injected clock; fee accrual and swap deadlines depend on it.
	now func() time.Time
}

// NewStore creates the ledger for a fresh vault: status Open, zero LRT.
func NewStore(vaultAccount, treasury string, collab Collaborators, params Params, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		Status:           types.StatusOpen,
		LrtAmt:           sdkmath.ZeroInt(),
		LastFeeCollected: clock(),
		Treasury:         treasury,
		Params:           params,
		VaultAccount:     vaultAccount,
		Collaborators:    collab,
		now:              clock,
	}
}

// clone returns a working copy of the ledger. Collaborator handles are
// shared; all ledger fields are value types, so a shallow copy is a full
// copy of the mutable state. Workflows run against the clone and the facade
// commits it back only after post-checks pass.
func (s *Store) clone() *Store {
	c := *s
	return &c
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) tokenBySymbol(symbol string) (chain.Token, bool) {
	for _, t := range []chain.Token{
		s.Collaborators.Lrt,
		s.Collaborators.Wnt,
		s.Collaborators.Lst,
		s.Collaborators.TokenB,
		s.Collaborators.Reward,
	} {
		if t != nil && t.Symbol() == symbol {
			return t, true
		}
	}
	return nil, false
}
