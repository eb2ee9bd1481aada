package vault

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
	"github.com/kepfinance/kep-vault/internal/types"
)

// RebalanceAddParams increases borrowed exposure: the keeper names the
// tokenB amount to borrow, the vault enforces the resulting bounds.
type RebalanceAddParams struct {
	RebalanceType   types.RebalanceType
	BorrowTokenBAmt sdkmath.Int
	SlippageBps     int64
	Deadline        time.Time
}

// RebalanceRemoveParams decreases borrowed exposure by unwinding the named
// LRT amount into debt repayment.
type RebalanceRemoveParams struct {
	RebalanceType  types.RebalanceType
	LrtAmtToRemove sdkmath.Int
	SlippageBps    int64
	Deadline       time.Time
}

// rebalanceAdd borrows more tokenB and swaps it into LRT. Unlike
// deposit/withdraw there is no step-threshold bound: a rebalance is meant
// to move the ratio, only the absolute limits apply afterwards.
func rebalanceAdd(ctx context.Context, s *Store, caller string, p RebalanceAddParams) (*types.OperationEvent, error) {
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.RebalanceCache = RebalanceCache{
		RebalanceType: p.RebalanceType,
		BorrowParams:  BorrowParams{BorrowTokenBAmt: p.BorrowTokenBAmt},
		HealthParams:  healthBefore,
	}

	if err := beforeRebalanceChecks(s); err != nil {
		return nil, err
	}
	s.Status = types.StatusRebalanceAdd

	if err := borrow(ctx, s, p.BorrowTokenBAmt); err != nil {
		return nil, types.NewExternalCallError(err)
	}

	collab := &s.Collaborators
	if p.BorrowTokenBAmt.IsPositive() {
		wntOut, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
			TokenIn:     collab.TokenB.Symbol(),
			TokenOut:    collab.Wnt.Symbol(),
			AmountIn:    p.BorrowTokenBAmt,
			SlippageBps: p.SlippageBps,
			Deadline:    p.Deadline,
		})
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
		lrtOut, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
			TokenIn:     collab.Wnt.Symbol(),
			TokenOut:    collab.Lrt.Symbol(),
			AmountIn:    wntOut,
			SlippageBps: p.SlippageBps,
			Deadline:    p.Deadline,
		})
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
		s.LrtAmt = s.LrtAmt.Add(lrtOut)
	}

	if err := afterRebalanceChecks(ctx, s); err != nil {
		return nil, err
	}
	s.Status = types.StatusOpen

	healthAfter, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	return newOperationEvent(s, types.EventRebalanceAddCompleted, caller, &healthBefore, &healthAfter), nil
}

// rebalanceRemove unwinds LRT into tokenB and repays it.
func rebalanceRemove(ctx context.Context, s *Store, caller string, p RebalanceRemoveParams) (*types.OperationEvent, error) {
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.RebalanceCache = RebalanceCache{
		RebalanceType:  p.RebalanceType,
		LrtAmtToRemove: p.LrtAmtToRemove,
		HealthParams:   healthBefore,
	}

	if err := beforeRebalanceChecks(s); err != nil {
		return nil, err
	}
	if p.LrtAmtToRemove.GT(s.LrtAmt) {
		return nil, types.NewPreconditionError("remove amount %s exceeds LRT holdings %s",
			p.LrtAmtToRemove, s.LrtAmt)
	}
	s.Status = types.StatusRebalanceRemove

	s.LrtAmt = s.LrtAmt.Sub(p.LrtAmtToRemove)

	collab := &s.Collaborators
	tokenBOut, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
		TokenIn:     collab.Lrt.Symbol(),
		TokenOut:    collab.TokenB.Symbol(),
		AmountIn:    p.LrtAmtToRemove,
		SlippageBps: p.SlippageBps,
		Deadline:    p.Deadline,
	})
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}

	// Repay no more than what is owed; surplus tokenB stays at the vault.
	debtAmt, err := DebtAmt(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	repayAmt := sdkmath.MinInt(tokenBOut, debtAmt)
	if err := repay(ctx, s, repayAmt); err != nil {
		return nil, types.NewExternalCallError(err)
	}

	if err := afterRebalanceChecks(ctx, s); err != nil {
		return nil, err
	}
	s.Status = types.StatusOpen

	healthAfter, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	return newOperationEvent(s, types.EventRebalanceRemoveCompleted, caller, &healthBefore, &healthAfter), nil
}
