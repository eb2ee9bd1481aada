package chain

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
)

// Token is the ERC20-style surface the vault needs from an asset token.
// Amounts are in the token's native decimals.
type Token interface {
	Symbol() string
	Decimals() uint8
	BalanceOf(ctx context.Context, account string) (sdkmath.Int, error)
	Transfer(ctx context.Context, from, to string, amt sdkmath.Int) error
	Approve(ctx context.Context, owner, spender string, amt sdkmath.Int) error
	Allowance(ctx context.Context, owner, spender string) (sdkmath.Int, error)
}

// WrappedNative is the wrapped native token: wrap on Deposit, unwrap on
// Withdraw.
type WrappedNative interface {
	Token
	Deposit(ctx context.Context, account string, amt sdkmath.Int) error
	Withdraw(ctx context.Context, account string, amt sdkmath.Int) error
}

// NativeBank moves unwrapped native balance. The withdraw workflow pays the
// user natively and falls back to an ERC20 transfer of WNT if the native
// send fails.
type NativeBank interface {
	NativeBalanceOf(ctx context.Context, account string) (sdkmath.Int, error)
	SendNative(ctx context.Context, from, to string, amt sdkmath.Int) error
}

// ShareToken is the vault's own share token.
type ShareToken interface {
	Mint(ctx context.Context, to string, amt sdkmath.Int) error
	Burn(ctx context.Context, from string, amt sdkmath.Int) error
	TotalSupply(ctx context.Context) (sdkmath.Int, error)
	BalanceOf(ctx context.Context, account string) (sdkmath.Int, error)
}

// LendingMarket is the external borrow market. Debt is defined by the
// market, not tracked locally, so accrued interest is always reflected in
// MaxRepay.
type LendingMarket interface {
	Borrow(ctx context.Context, borrower string, amt sdkmath.Int) error
	Repay(ctx context.Context, borrower string, amt sdkmath.Int) error
	MaxRepay(ctx context.Context, borrower string) (sdkmath.Int, error)
	TotalAvailableAsset(ctx context.Context) (sdkmath.Int, error)
}

// PriceOracle quotes token prices in USD, always 1e18-scaled regardless of
// token decimals.
type PriceOracle interface {
	ConsultIn18Decimals(ctx context.Context, tokenSymbol string) (sdkmath.Int, error)
}

// SwapParams mirrors the router's exact-in/exact-out call shape. For
// exact-in swaps AmountOut is ignored; for exact-out swaps AmountIn is the
// input ceiling from the slippage calculation.
type SwapParams struct {
	TokenIn     string
	TokenOut    string
	AmountIn    sdkmath.Int
	AmountOut   sdkmath.Int
	SlippageBps int64
	Deadline    time.Time
}

// SwapRouter executes swaps on behalf of caller. The caller must have
// approved Account() for the input amount beforehand.
type SwapRouter interface {
	Account() string
	SwapExactTokensForTokens(ctx context.Context, caller string, params SwapParams) (sdkmath.Int, error)
	SwapTokensForExactTokens(ctx context.Context, caller string, params SwapParams) (sdkmath.Int, error)
}

// Authority is the external access layer consulted before every restricted
// entry point. A non-zero delay means the call is allowed but only as a
// scheduled operation.
type Authority interface {
	CanCall(ctx context.Context, caller, target, selector string) (allowed bool, delay time.Duration, err error)
}

// StateSnapshotter captures and restores the whole collaborator world. On a
// real chain every failed transaction reverts external effects for free;
// off-chain the simulation provides the same guarantee through this
// interface.
type StateSnapshotter interface {
	Snapshot() uint64
	RevertTo(id uint64) error
	Release(id uint64)
}
