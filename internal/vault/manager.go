package vault

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
)

// The manager holds the low-level borrow/repay/swap primitives. Every
// external effect of a workflow funnels through here.

var bpsDenominator = sdkmath.NewInt(10000)

// calcBorrow converts a USD deposit value into the tokenB amount to borrow
// for the target leverage: borrowValue = depositValue * (leverage - 1).
func calcBorrow(ctx context.Context, s *Store, depositValueUsd sdkmath.Int) (sdkmath.Int, error) {
	positionValue := depositValueUsd.Mul(s.Params.Leverage).Quo(safeMultiplier)
	borrowValue := positionValue.Sub(depositValueUsd)
	if !borrowValue.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	return TokenAmtFromUsd(ctx, s, s.Collaborators.TokenB, borrowValue)
}

// calcRepay returns the tokenB amount owed for a 1e18-scaled share ratio of
// the current debt.
func calcRepay(ctx context.Context, s *Store, shareRatio sdkmath.Int) (sdkmath.Int, error) {
	debtAmt, err := DebtAmt(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return shareRatio.Mul(debtAmt).Quo(safeMultiplier), nil
}

// calcAmountInMaximum bounds an exact-output swap: the wanted output amount
// converted to input units at oracle prices, inflated by the vault's swap
// slippage buffer. This is the ceiling the router may consume.
func calcAmountInMaximum(ctx context.Context, s *Store, tokenIn, tokenOut chain.Token, amountOut sdkmath.Int) (sdkmath.Int, error) {
	outValue, err := UsdValue(ctx, s, tokenOut, amountOut)
	if err != nil {
		return sdkmath.Int{}, err
	}
	amountIn, err := TokenAmtFromUsd(ctx, s, tokenIn, outValue)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return amountIn.Mul(bpsDenominator.AddRaw(s.Params.SwapSlippage)).Quo(bpsDenominator), nil
}

// borrow draws tokenB from the lending market. A zero amount is a
// successful no-op.
func borrow(ctx context.Context, s *Store, amt sdkmath.Int) error {
	if amt.IsZero() {
		return nil
	}
	if err := s.Collaborators.Lending.Borrow(ctx, s.VaultAccount, amt); err != nil {
		return fmt.Errorf("borrow %s %s: %w", amt, s.Collaborators.TokenB.Symbol(), err)
	}
	return nil
}

// repay returns tokenB to the lending market. A zero amount is a successful
// no-op.
func repay(ctx context.Context, s *Store, amt sdkmath.Int) error {
	if amt.IsZero() {
		return nil
	}
	if err := s.Collaborators.Lending.Repay(ctx, s.VaultAccount, amt); err != nil {
		return fmt.Errorf("repay %s %s: %w", amt, s.Collaborators.TokenB.Symbol(), err)
	}
	return nil
}

// swapExactTokensForTokens swaps a fixed input for whatever output the
// router delivers within the slippage tolerance. The router is approved for
// exactly the input amount immediately before the call.
func swapExactTokensForTokens(ctx context.Context, s *Store, params chain.SwapParams) (sdkmath.Int, error) {
	tokenIn, ok := s.tokenBySymbol(params.TokenIn)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("unknown token %s", params.TokenIn)
	}
	if err := tokenIn.Approve(ctx, s.VaultAccount, s.Collaborators.Router.Account(), params.AmountIn); err != nil {
		return sdkmath.Int{}, fmt.Errorf("approve %s for router: %w", params.TokenIn, err)
	}
	amountOut, err := s.Collaborators.Router.SwapExactTokensForTokens(ctx, s.VaultAccount, params)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("swap %s->%s: %w", params.TokenIn, params.TokenOut, err)
	}
	return amountOut, nil
}

// swapTokensForExactTokens swaps up to AmountIn for exactly AmountOut and
// returns the input actually consumed.
func swapTokensForExactTokens(ctx context.Context, s *Store, params chain.SwapParams) (sdkmath.Int, error) {
	tokenIn, ok := s.tokenBySymbol(params.TokenIn)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("unknown token %s", params.TokenIn)
	}
	if err := tokenIn.Approve(ctx, s.VaultAccount, s.Collaborators.Router.Account(), params.AmountIn); err != nil {
		return sdkmath.Int{}, fmt.Errorf("approve %s for router: %w", params.TokenIn, err)
	}
	amountIn, err := s.Collaborators.Router.SwapTokensForExactTokens(ctx, s.VaultAccount, params)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("swap %s->%s: %w", params.TokenIn, params.TokenOut, err)
	}
	return amountIn, nil
}

// mintFee mints the pending management fee to the treasury and resets the
// accrual clock. It must run before any operation that depends on total
// supply so the share price never uses a stale share count.
func mintFee(ctx context.Context, s *Store) (sdkmath.Int, error) {
	pendingFee, err := PendingFee(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if pendingFee.IsPositive() {
		if err := s.Collaborators.Shares.Mint(ctx, s.Treasury, pendingFee); err != nil {
			return sdkmath.Int{}, fmt.Errorf("mint fee to treasury: %w", err)
		}
	}
	s.LastFeeCollected = s.Now()
	return pendingFee, nil
}
