package vault

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
	"github.com/kepfinance/kep-vault/internal/types"
)

// CompoundParams describes a reward-harvest swap: tokenIn (typically the
// reward token sitting at the vault) converted into tokenOut (typically
// LRT) and folded into the position.
type CompoundParams struct {
	TokenIn     string
	TokenOut    string
	AmtIn       sdkmath.Int
	SlippageBps int64
	Deadline    time.Time
}

func compound(ctx context.Context, s *Store, caller string, p CompoundParams) (*types.OperationEvent, error) {
	healthBefore, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}

	tokenIn, ok := s.tokenBySymbol(p.TokenIn)
	if !ok {
		return nil, types.NewPreconditionError("unknown token %s", p.TokenIn)
	}
	depositValue, err := UsdValue(ctx, s, tokenIn, p.AmtIn)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}

	s.CompoundCache = CompoundCache{
		TokenIn:      p.TokenIn,
		TokenOut:     p.TokenOut,
		AmtIn:        p.AmtIn,
		Deadline:     p.Deadline,
		DepositValue: depositValue,
		HealthParams: healthBefore,
	}

	if err := beforeCompoundChecks(s); err != nil {
		return nil, err
	}
	s.Status = types.StatusCompound

	out, err := swapExactTokensForTokens(ctx, s, chain.SwapParams{
		TokenIn:     p.TokenIn,
		TokenOut:    p.TokenOut,
		AmountIn:    p.AmtIn,
		SlippageBps: p.SlippageBps,
		Deadline:    p.Deadline,
	})
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	if p.TokenOut == s.Collaborators.Lrt.Symbol() {
		s.LrtAmt = s.LrtAmt.Add(out)
	}

	s.Status = types.StatusOpen

	healthAfter, err := CaptureHealth(ctx, s)
	if err != nil {
		return nil, types.NewExternalCallError(err)
	}
	return newOperationEvent(s, types.EventCompoundCompleted, caller, &healthBefore, &healthAfter), nil
}
