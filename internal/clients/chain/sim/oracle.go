package sim

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
)

// oracleView implements chain.PriceOracle over the world's price table.
type oracleView struct {
	w *World
}

func (w *World) Oracle() chain.PriceOracle {
	return &oracleView{w: w}
}

func (o *oracleView) ConsultIn18Decimals(_ context.Context, tokenSymbol string) (sdkmath.Int, error) {
	o.w.mu.Lock()
	defer o.w.mu.Unlock()
	price, ok := o.w.prices[tokenSymbol]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("no price for %s", tokenSymbol)
	}
	if !price.IsPositive() {
		return sdkmath.Int{}, fmt.Errorf("non-positive price for %s", tokenSymbol)
	}
	return price, nil
}
