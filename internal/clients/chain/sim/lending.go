package sim

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
)

// lendingView implements chain.LendingMarket over the world's single pool.
type lendingView struct {
	w *World
}

func (w *World) Lending() chain.LendingMarket {
	return &lendingView{w: w}
}

func (l *lendingView) Borrow(_ context.Context, borrower string, amt sdkmath.Int) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	ls := l.w.lending
	if ls == nil {
		return fmt.Errorf("lending pool not initialized")
	}
	if amt.IsNegative() {
		return fmt.Errorf("negative borrow")
	}
	if ls.available.LT(amt) {
		return fmt.Errorf("insufficient pool liquidity: have %s, need %s", ls.available, amt)
	}
	ls.available = ls.available.Sub(amt)
	ls.debts[borrower] = ls.debtOf(borrower).Add(amt)
	ts := l.w.tokens[ls.assetSymbol]
	ts.balances[borrower] = ts.balanceOf(borrower).Add(amt)
	return nil
}

func (l *lendingView) Repay(_ context.Context, borrower string, amt sdkmath.Int) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	ls := l.w.lending
	if ls == nil {
		return fmt.Errorf("lending pool not initialized")
	}
	debt := ls.debtOf(borrower)
	if debt.LT(amt) {
		return fmt.Errorf("repay %s exceeds debt %s", amt, debt)
	}
	ts := l.w.tokens[ls.assetSymbol]
	bal := ts.balanceOf(borrower)
	if bal.LT(amt) {
		return fmt.Errorf("insufficient %s balance to repay: have %s, need %s", ls.assetSymbol, bal, amt)
	}
	ts.balances[borrower] = bal.Sub(amt)
	ls.debts[borrower] = debt.Sub(amt)
	ls.available = ls.available.Add(amt)
	return nil
}

func (l *lendingView) MaxRepay(_ context.Context, borrower string) (sdkmath.Int, error) {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if l.w.lending == nil {
		return sdkmath.ZeroInt(), nil
	}
	return l.w.lending.debtOf(borrower), nil
}

func (l *lendingView) TotalAvailableAsset(_ context.Context) (sdkmath.Int, error) {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if l.w.lending == nil {
		return sdkmath.ZeroInt(), nil
	}
	return l.w.lending.available, nil
}
