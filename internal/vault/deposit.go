package vault

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
	"github.com/kepfinance/kep-vault/internal/types"
)

// DepositParams are the caller-supplied arguments of a deposit.
type DepositParams struct {
	Token       string // symbol of the deposited token
	Amt         sdkmath.Int
	SlippageBps int64
	Deadline    time.Time
	Native      bool // true when the caller sends unwrapped native value
}

// deposit runs the full deposit workflow against the working store: pull
// funds, lever up via the lending market, swap into LRT, mint shares. Any
// failure aborts the whole operation; the facade rolls back both the ledger
// and the external world.
func deposit(ctx context.Context, s *Store, caller string, p DepositParams) (*types.OperationEvent, error) {
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.DepositCache = DepositCache{
		Depositor:    caller,
		TokenIn:      p.Token,
		AmountIn:     p.Amt,
		Native:       p.Native,
		SlippageBps:  p.SlippageBps,
		Deadline:     p.Deadline,
		HealthParams: healthBefore,
	}

	lrtDirect := sdkmath.ZeroInt()
	wntIn := sdkmath.ZeroInt()

	collab := &s.Collaborators
	switch {
	case p.Native:
		if p.Token != collab.Wnt.Symbol() {
			return nil, types.NewPreconditionError("native deposit must use %s", collab.Wnt.Symbol())
		}
		if err := collab.Wnt.Deposit(ctx, caller, p.Amt); err != nil {
			return nil, types.NewExternalCallError(err)
		}
		if err := collab.Wnt.Transfer(ctx, caller, s.VaultAccount, p.Amt); err != nil {
			return nil, types.NewExternalCallError(err)
		}
		wntIn = p.Amt
	default:
		token, ok := s.tokenBySymbol(p.Token)
		if !ok {
			return nil, types.NewPreconditionError("token %s not accepted for deposit", p.Token)
		}
		if err := token.Transfer(ctx, caller, s.VaultAccount, p.Amt); err != nil {
			return nil, types.NewExternalCallError(err)
		}
		switch p.Token {
		case collab.Lrt.Symbol():
			lrtDirect = p.Amt
		case collab.Wnt.Symbol():
			wntIn = p.Amt
		default:
			// Any other whitelisted token is swapped to WNT first.
			out, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
				TokenIn:     p.Token,
				TokenOut:    collab.Wnt.Symbol(),
				AmountIn:    p.Amt,
				SlippageBps: p.SlippageBps,
				Deadline:    p.Deadline,
			})
			if err != nil {
				return nil, types.NewExternalCallError(err)
			}
			wntIn = out
		}
	}

	depositValue := sdkmath.ZeroInt()
	if lrtDirect.IsPositive() {
		depositValue, err = UsdValue(ctx, s, collab.Lrt, lrtDirect)
	} else {
		depositValue, err = UsdValue(ctx, s, collab.Wnt, wntIn)
	}
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.DepositCache.DepositValue = depositValue

	if err := beforeDepositChecks(ctx, s); err != nil {
		return nil, err
	}
	s.Status = types.StatusDeposit

	// The slippage bound has been validated above, so the minimum-shares
	// figure derived from it is meaningful from here on.
	expectedShares, err := ValueToShares(ctx, s, depositValue, healthBefore.EquityValue)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.DepositCache.MinSharesAmt = expectedShares.
		Mul(bpsDenominator.SubRaw(p.SlippageBps)).Quo(bpsDenominator)

	borrowAmt, err := calcBorrow(ctx, s, depositValue)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.DepositCache.BorrowParams = BorrowParams{BorrowTokenBAmt: borrowAmt}
	if err := borrow(ctx, s, borrowAmt); err != nil {
		return nil, types.NewExternalCallError(err)
	}

	// Borrowed tokenB goes tokenB -> WNT -> LRT; the user's WNT contribution
	// joins the second hop.
	if borrowAmt.IsPositive() {
		borrowedWnt, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
			TokenIn:     collab.TokenB.Symbol(),
			TokenOut:    collab.Wnt.Symbol(),
			AmountIn:    borrowAmt,
			SlippageBps: p.SlippageBps,
			Deadline:    p.Deadline,
		})
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
		wntIn = wntIn.Add(borrowedWnt)
	}

	lrtSwapped := sdkmath.ZeroInt()
	if wntIn.IsPositive() {
		lrtSwapped, err = swapExactTokensForTokens(ctx, s, chain.SwapParams{
			TokenIn:     collab.Wnt.Symbol(),
			TokenOut:    collab.Lrt.Symbol(),
			AmountIn:    wntIn,
			SlippageBps: p.SlippageBps,
			Deadline:    p.Deadline,
		})
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
	}

	s.LrtAmt = s.LrtAmt.Add(lrtDirect).Add(lrtSwapped)

	equityAfter, err := EquityValue(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	if !equityAfter.GT(healthBefore.EquityValue) {
		return nil, types.NewPostconditionError("deposit did not increase equity (%s -> %s)",
			healthBefore.EquityValue, equityAfter)
	}
	sharesToUser, err := ValueToShares(ctx, s, equityAfter.Sub(healthBefore.EquityValue), healthBefore.EquityValue)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	s.DepositCache.SharesToUser = sharesToUser

	if err := afterDepositChecks(ctx, s); err != nil {
		return nil, err
	}

	if _, err := mintFee(ctx, s); err != nil {
		return nil, types.NewExternalCallError(err)
	}
	if err := collab.Shares.Mint(ctx, caller, sharesToUser); err != nil {
		return nil, types.NewExternalCallError(err)
	}

	s.Status = types.StatusOpen

	healthAfter, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	ev := newOperationEvent(s, types.EventDepositCompleted, caller, &healthBefore, &healthAfter)
	ev.SharesMinted = sharesToUser
	return ev, nil
}

func newOperationEvent(s *Store, eventType types.EventType, caller string, before, after *types.HealthParams) *types.OperationEvent {
	return &types.OperationEvent{
		EventID:      uuid.New().String(),
		EventType:    eventType,
		Caller:       caller,
		Status:       s.Status,
		BeforeHealth: before,
		AfterHealth:  after,
		SharesMinted: sdkmath.ZeroInt(),
		SharesBurned: sdkmath.ZeroInt(),
		AssetsOut:    sdkmath.ZeroInt(),
		Timestamp:    s.Now(),
	}
}
