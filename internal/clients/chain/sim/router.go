package sim

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
)

const routerAccount = "sim-router"

var bpsDenominator = sdkmath.NewInt(10000)

// routerView implements chain.SwapRouter. Execution price is the oracle
// price worsened by the world's market impact; a swap whose slippage
// tolerance is tighter than the impact fails, mirroring a router revert.
type routerView struct {
	w *World
}

func (w *World) Router() chain.SwapRouter {
	return &routerView{w: w}
}

func (r *routerView) Account() string {
	return routerAccount
}

func (r *routerView) SwapExactTokensForTokens(_ context.Context, caller string, params chain.SwapParams) (sdkmath.Int, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()

	if err := r.checkDeadlineLocked(params); err != nil {
		return sdkmath.Int{}, err
	}
	if r.w.marketImpactBps > params.SlippageBps {
		return sdkmath.Int{}, fmt.Errorf("swap %s->%s: execution slippage %dbps exceeds tolerance %dbps",
			params.TokenIn, params.TokenOut, r.w.marketImpactBps, params.SlippageBps)
	}

	quote, err := r.quoteLocked(params.TokenIn, params.TokenOut, params.AmountIn)
	if err != nil {
		return sdkmath.Int{}, err
	}
	amountOut := quote.Mul(bpsDenominator.SubRaw(r.w.marketImpactBps)).Quo(bpsDenominator)

	if err := r.w.spendAllowanceLocked(params.TokenIn, caller, routerAccount, routerAccount, params.AmountIn); err != nil {
		return sdkmath.Int{}, err
	}
	if err := r.creditLocked(params.TokenOut, caller, amountOut); err != nil {
		return sdkmath.Int{}, err
	}
	return amountOut, nil
}

func (r *routerView) SwapTokensForExactTokens(_ context.Context, caller string, params chain.SwapParams) (sdkmath.Int, error) {
	r.w.mu.Lock()
	defer r.w.mu.Unlock()

	if err := r.checkDeadlineLocked(params); err != nil {
		return sdkmath.Int{}, err
	}

	// Invert the quote: how much input buys exactly AmountOut at the
	// impact-adjusted price, rounded up against the trader.
	quote, err := r.quoteLocked(params.TokenOut, params.TokenIn, params.AmountOut)
	if err != nil {
		return sdkmath.Int{}, err
	}
	amountIn := quote.Mul(bpsDenominator.AddRaw(r.w.marketImpactBps)).
		Add(bpsDenominator).SubRaw(1).Quo(bpsDenominator)

	if amountIn.GT(params.AmountIn) {
		return sdkmath.Int{}, fmt.Errorf("swap %s->%s: required input %s exceeds maximum %s",
			params.TokenIn, params.TokenOut, amountIn, params.AmountIn)
	}

	if err := r.w.spendAllowanceLocked(params.TokenIn, caller, routerAccount, routerAccount, amountIn); err != nil {
		return sdkmath.Int{}, err
	}
	if err := r.creditLocked(params.TokenOut, caller, params.AmountOut); err != nil {
		return sdkmath.Int{}, err
	}
	return amountIn, nil
}

// quoteLocked converts amt of tokenIn into tokenOut units at oracle prices,
// normalizing across token decimals.
func (r *routerView) quoteLocked(tokenIn, tokenOut string, amt sdkmath.Int) (sdkmath.Int, error) {
	tsIn, err := r.w.tokenOrErr(tokenIn)
	if err != nil {
		return sdkmath.Int{}, err
	}
	tsOut, err := r.w.tokenOrErr(tokenOut)
	if err != nil {
		return sdkmath.Int{}, err
	}
	priceIn, ok := r.w.prices[tokenIn]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("no price for %s", tokenIn)
	}
	priceOut, ok := r.w.prices[tokenOut]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("no price for %s", tokenOut)
	}
	num := amt.Mul(priceIn).Mul(pow10(tsOut.decimals))
	den := priceOut.Mul(pow10(tsIn.decimals))
	return num.Quo(den), nil
}

// creditLocked mints output to the trader. The sim router is an infinite
// counterparty; only prices and impact matter.
func (r *routerView) creditLocked(symbol, to string, amt sdkmath.Int) error {
	ts, err := r.w.tokenOrErr(symbol)
	if err != nil {
		return err
	}
	ts.balances[to] = ts.balanceOf(to).Add(amt)
	ts.totalSupply = ts.totalSupply.Add(amt)
	return nil
}

func (r *routerView) checkDeadlineLocked(params chain.SwapParams) error {
	if !params.Deadline.IsZero() && r.w.clock().After(params.Deadline) {
		return fmt.Errorf("swap %s->%s: deadline exceeded", params.TokenIn, params.TokenOut)
	}
	return nil
}

func pow10(decimals uint8) sdkmath.Int {
	out := sdkmath.OneInt()
	ten := sdkmath.NewInt(10)
	for i := uint8(0); i < decimals; i++ {
		out = out.Mul(ten)
	}
	return out
}
