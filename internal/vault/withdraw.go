package vault

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
	"github.com/kepfinance/kep-vault/internal/types"
)

// WithdrawParams are the caller-supplied arguments of a withdraw.
type WithdrawParams struct {
	ShareAmt    sdkmath.Int
	SlippageBps int64
	Deadline    time.Time
}

// withdraw runs the full withdraw workflow: mint the pending fee, burn the
// caller's shares, unwind the proportional LRT position, repay the
// proportional debt and return the remaining WNT to the caller. Shares are
// burned before any swap executes so the share ratio is fixed before the
// withdrawal's own price impact.
func withdraw(ctx context.Context, s *Store, caller string, p WithdrawParams) (*types.OperationEvent, error) {
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}

	// Fee first: the share ratio below must see an up-to-date total supply.
	if _, err := mintFee(ctx, s); err != nil {
		return nil, types.NewExternalCallError(err)
	}

	collab := &s.Collaborators
	supply, err := collab.Shares.TotalSupply(ctx)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	if supply.IsZero() {
		return nil, types.NewPreconditionError("no shares outstanding")
	}
	shareRatio := p.ShareAmt.Mul(safeMultiplier).Quo(supply)
	lrtToRemove := s.LrtAmt.Mul(shareRatio).Quo(safeMultiplier)
	withdrawValue, err := UsdValue(ctx, s, collab.Lrt, lrtToRemove)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}

	s.WithdrawCache = WithdrawCache{
		Withdrawer:    caller,
		ShareAmt:      p.ShareAmt,
		ShareRatio:    shareRatio,
		LrtAmtRemoved: lrtToRemove,
		WithdrawValue: withdrawValue,
		SlippageBps:   p.SlippageBps,
		Deadline:      p.Deadline,
		HealthParams:  healthBefore,
	}

	if err := beforeWithdrawChecks(ctx, s); err != nil {
		return nil, err
	}
	s.Status = types.StatusWithdraw

	// Validated slippage bound: the minimum-assets figure is meaningful from
	// here on.
	svTokenValue, err := SvTokenValue(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	wntPrice, err := collab.Oracle.ConsultIn18Decimals(ctx, collab.Wnt.Symbol())
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	withdrawUsd := p.ShareAmt.Mul(svTokenValue).Quo(safeMultiplier)
	minAssets := withdrawUsd.Mul(decimalsFactor(collab.Wnt.Decimals())).Quo(wntPrice)
	s.WithdrawCache.MinAssetsAmt = minAssets.
		Mul(bpsDenominator.SubRaw(p.SlippageBps)).Quo(bpsDenominator)

	// Burn before the swaps execute.
	if err := collab.Shares.Burn(ctx, caller, p.ShareAmt); err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.LrtAmt = s.LrtAmt.Sub(lrtToRemove)

	wntReceived, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
		TokenIn:     collab.Lrt.Symbol(),
		TokenOut:    collab.Wnt.Symbol(),
		AmountIn:    lrtToRemove,
		SlippageBps: p.SlippageBps,
		Deadline:    p.Deadline,
	})
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}

	// Repay the proportional debt with an exact-output swap bounded by the
	// vault's swap slippage buffer.
	repayAmt, err := calcRepay(ctx, s, shareRatio)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.WithdrawCache.RepayParams = RepayParams{RepayTokenBAmt: repayAmt}

	wntSpent := sdkmath.ZeroInt()
	if repayAmt.IsPositive() {
		amountInMax, err := calcAmountInMaximum(ctx, s, collab.Wnt, collab.TokenB, repayAmt)
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
		wntSpent, err = swapTokensForExactTokens(ctx, s, chain.SwapParams{
			TokenIn:     collab.Wnt.Symbol(),
			TokenOut:    collab.TokenB.Symbol(),
			AmountIn:    amountInMax,
			AmountOut:   repayAmt,
			SlippageBps: p.SlippageBps,
			Deadline:    p.Deadline,
		})
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
		if err := repay(ctx, s, repayAmt); err != nil {
			return nil, types.NewExternalCallError(err)
		}
	}

	if wntSpent.GT(wntReceived) {
		return nil, types.NewPostconditionError("repay swap consumed %s WNT, more than the %s removed",
			wntSpent, wntReceived)
	}
	assetsToUser := wntReceived.Sub(wntSpent)
	s.WithdrawCache.AssetsToUser = assetsToUser

	if err := payOutNative(ctx, s, caller, assetsToUser); err != nil {
		return nil, types.NewExternalCallError(err)
	}

	if err := afterWithdrawChecks(ctx, s); err != nil {
		return nil, err
	}
	s.Status = types.StatusOpen

	healthAfter, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	ev := newOperationEvent(s, types.EventWithdrawCompleted, caller, &healthBefore, &healthAfter)
	ev.SharesBurned = p.ShareAmt
	ev.AssetsOut = assetsToUser
	return ev, nil
}

// payOutNative unwraps the WNT owed and sends it natively, falling back to
// an ERC20 transfer of WNT when the native send is rejected.
func payOutNative(ctx context.Context, s *Store, to string, amt sdkmath.Int) error {
	if amt.IsZero() {
		return nil
	}
	collab := &s.Collaborators
	if err := collab.Wnt.Withdraw(ctx, s.VaultAccount, amt); err != nil {
		return err
	}
	if err := collab.Native.SendNative(ctx, s.VaultAccount, to, amt); err != nil {
		// Re-wrap and fall back to a token transfer.
		if wrapErr := collab.Wnt.Deposit(ctx, s.VaultAccount, amt); wrapErr != nil {
			return wrapErr
		}
		return collab.Wnt.Transfer(ctx, s.VaultAccount, to, amt)
	}
	return nil
}
