package vault

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
	"github.com/kepfinance/kep-vault/internal/types"
)

// The emergency workflows implement the halt/unwind path:
// Open -> Paused -> Repaid -> (Resume -> Open) | Closed. Repaid -> Paused
// via re-borrow lets the keeper iterate before committing either way.
// Closed is terminal; only the pro-rata emergency withdraw runs after it.

func emergencyPause(ctx context.Context, s *Store, caller string) (*types.OperationEvent, error) {
	if err := beforeEmergencyPauseChecks(s); err != nil {
		return nil, err
	}
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.Status = types.StatusPaused
	return newOperationEvent(s, types.EventEmergencyPaused, caller, &healthBefore, nil), nil
}

// emergencyRepay clears the entire debt by swapping LRT collateral into
// tokenB with an exact-output swap.
func emergencyRepay(ctx context.Context, s *Store, caller string, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	if err := beforeEmergencyRepayChecks(s); err != nil {
		return nil, err
	}
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.Status = types.StatusRepay

	collab := &s.Collaborators
	debtAmt, err := DebtAmt(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	if debtAmt.IsPositive() {
		amountInMax, err := calcAmountInMaximum(ctx, s, collab.Lrt, collab.TokenB, debtAmt)
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
		if amountInMax.GT(s.LrtAmt) {
			return nil, types.NewPreconditionError("repay requires up to %s LRT, holdings are %s",
				amountInMax, s.LrtAmt)
		}
		lrtSpent, err := swapTokensForExactTokens(ctx, s, chain.SwapParams{
			TokenIn:     collab.Lrt.Symbol(),
			TokenOut:    collab.TokenB.Symbol(),
			AmountIn:    amountInMax,
			AmountOut:   debtAmt,
			SlippageBps: slippageBps,
			Deadline:    deadline,
		})
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
		s.LrtAmt = s.LrtAmt.Sub(lrtSpent)
		if err := repay(ctx, s, debtAmt); err != nil {
			return nil, types.NewExternalCallError(err)
		}
	}

	s.Status = types.StatusRepaid

	healthAfter, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	return newOperationEvent(s, types.EventEmergencyRepaid, caller, &healthBefore, &healthAfter), nil
}

// emergencyBorrow re-opens the borrowed position after an emergency repay,
// returning the vault to Paused so the keeper can iterate or resume.
func emergencyBorrow(ctx context.Context, s *Store, caller string, borrowTokenBAmt sdkmath.Int, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	if err := beforeEmergencyBorrowChecks(s); err != nil {
		return nil, err
	}
	if !borrowTokenBAmt.IsPositive() {
		return nil, types.NewPreconditionError("borrow amount must be positive")
	}
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}

	if err := borrow(ctx, s, borrowTokenBAmt); err != nil {
		return nil, types.NewExternalCallError(err)
	}
	collab := &s.Collaborators
	lrtOut, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
		TokenIn:     collab.TokenB.Symbol(),
		TokenOut:    collab.Lrt.Symbol(),
		AmountIn:    borrowTokenBAmt,
		SlippageBps: slippageBps,
		Deadline:    deadline,
	})
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.LrtAmt = s.LrtAmt.Add(lrtOut)

	s.Status = types.StatusPaused

	healthAfter, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	return newOperationEvent(s, types.EventEmergencyBorrowed, caller, &healthBefore, &healthAfter), nil
}

func emergencyResume(ctx context.Context, s *Store, caller string) (*types.OperationEvent, error) {
	if err := beforeEmergencyResumeChecks(s); err != nil {
		return nil, err
	}
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	// Resume is transient within the call; observers only ever see Open.
	s.Status = types.StatusResume
	s.Status = types.StatusOpen
	return newOperationEvent(s, types.EventEmergencyResumed, caller, &healthBefore, nil), nil
}

// emergencyClose converts the remaining LRT into WNT and terminates the
// vault. After Closed only emergencyWithdraw is possible, irreversibly.
func emergencyClose(ctx context.Context, s *Store, caller string, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	if err := beforeEmergencyCloseChecks(s); err != nil {
		return nil, err
	}
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}

	collab := &s.Collaborators
	if s.LrtAmt.IsPositive() {
		if _, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
			TokenIn:     collab.Lrt.Symbol(),
			TokenOut:    collab.Wnt.Symbol(),
			AmountIn:    s.LrtAmt,
			SlippageBps: slippageBps,
			Deadline:    deadline,
		}); err != nil {
			return nil, types.NewExternalCallError(err)
		}
		s.LrtAmt = sdkmath.ZeroInt()
	}

	s.Status = types.StatusClosed
	return newOperationEvent(s, types.EventEmergencyClosed, caller, &healthBefore, nil), nil
}

// emergencyWithdraw burns the caller's shares and pays out the pro-rata
// WNT and reward token balances of the closed vault.
func emergencyWithdraw(ctx context.Context, s *Store, caller string, shareAmt sdkmath.Int) (*types.OperationEvent, error) {
	// Fee first so the pro-rata ratio sees an up-to-date supply.
	if _, err := mintFee(ctx, s); err != nil {
		return nil, types.NewExternalCallError(err)
	}
	if err := beforeEmergencyWithdrawChecks(ctx, s, caller, shareAmt); err != nil {
		return nil, err
	}

	collab := &s.Collaborators
	supply, err := collab.Shares.TotalSupply(ctx)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	shareRatio := shareAmt.Mul(safeMultiplier).Quo(supply)

	if err := collab.Shares.Burn(ctx, caller, shareAmt); err != nil {
		return nil, types.NewExternalCallError(err)
	}

	wntBal, err := collab.Wnt.BalanceOf(ctx, s.VaultAccount)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	wntOut := wntBal.Mul(shareRatio).Quo(safeMultiplier)
	if wntOut.IsPositive() {
		if err := collab.Wnt.Transfer(ctx, s.VaultAccount, caller, wntOut); err != nil {
			return nil, types.NewExternalCallError(err)
		}
	}

	rewardBal, err := collab.Reward.BalanceOf(ctx, s.VaultAccount)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	rewardOut := rewardBal.Mul(shareRatio).Quo(safeMultiplier)
	if rewardOut.IsPositive() {
		if err := collab.Reward.Transfer(ctx, s.VaultAccount, caller, rewardOut); err != nil {
			return nil, types.NewExternalCallError(err)
		}
	}

	ev := newOperationEvent(s, types.EventEmergencyWithdrawCompleted, caller, nil, nil)
	ev.SharesBurned = shareAmt
	ev.AssetsOut = wntOut
	return ev, nil
}

// emergencyStatusOverride is the administrative escape hatch: it may jump
// to any status, including DepositFailed/WithdrawFailed which no normal
// workflow produces, as long as the vault is not in the normal operating
// set.
func emergencyStatusOverride(ctx context.Context, s *Store, caller string, newStatus types.Status) (*types.OperationEvent, error) {
	if err := beforeStatusOverrideChecks(s); err != nil {
		return nil, err
	}
	s.Status = newStatus
	return newOperationEvent(s, types.EventStatusOverridden, caller, nil, nil), nil
}
