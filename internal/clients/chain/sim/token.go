package sim

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
)

// tokenView implements chain.Token over the shared world state.
type tokenView struct {
	w      *World
	symbol string
}

// Token returns the chain.Token view for symbol. It panics on unknown
// symbols since wiring happens once at startup.
func (w *World) Token(symbol string) chain.Token {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tokens[symbol]; !ok {
		panic(fmt.Sprintf("sim: unknown token %s", symbol))
	}
	return &tokenView{w: w, symbol: symbol}
}

func (t *tokenView) Symbol() string {
	return t.symbol
}

func (t *tokenView) Decimals() uint8 {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	return t.w.tokens[t.symbol].decimals
}

func (t *tokenView) BalanceOf(_ context.Context, account string) (sdkmath.Int, error) {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	return t.w.tokens[t.symbol].balanceOf(account), nil
}

func (t *tokenView) Transfer(_ context.Context, from, to string, amt sdkmath.Int) error {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	return t.w.transferLocked(t.symbol, from, to, amt)
}

func (t *tokenView) Approve(_ context.Context, owner, spender string, amt sdkmath.Int) error {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	ts := t.w.tokens[t.symbol]
	if ts.allowances[owner] == nil {
		ts.allowances[owner] = make(map[string]sdkmath.Int)
	}
	ts.allowances[owner][spender] = amt
	return nil
}

func (t *tokenView) Allowance(_ context.Context, owner, spender string) (sdkmath.Int, error) {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	return t.w.tokens[t.symbol].allowanceOf(owner, spender), nil
}

func (w *World) transferLocked(symbol, from, to string, amt sdkmath.Int) error {
	ts, err := w.tokenOrErr(symbol)
	if err != nil {
		return err
	}
	if amt.IsNegative() {
		return fmt.Errorf("negative transfer of %s", symbol)
	}
	bal := ts.balanceOf(from)
	if bal.LT(amt) {
		return fmt.Errorf("insufficient %s balance: have %s, need %s", symbol, bal, amt)
	}
	ts.balances[from] = bal.Sub(amt)
	ts.balances[to] = ts.balanceOf(to).Add(amt)
	return nil
}

// spendAllowanceLocked consumes spender's allowance from owner and moves the
// tokens. Used by the router and the lending pool.
func (w *World) spendAllowanceLocked(symbol, owner, spender, to string, amt sdkmath.Int) error {
	ts, err := w.tokenOrErr(symbol)
	if err != nil {
		return err
	}
	allowed := ts.allowanceOf(owner, spender)
	if allowed.LT(amt) {
		return fmt.Errorf("insufficient %s allowance: have %s, need %s", symbol, allowed, amt)
	}
	if err := w.transferLocked(symbol, owner, to, amt); err != nil {
		return err
	}
	ts.allowances[owner][spender] = allowed.Sub(amt)
	return nil
}

// wrappedNativeView additionally wraps/unwraps the native balance.
type wrappedNativeView struct {
	tokenView
}

func (w *World) WrappedNative(symbol string) chain.WrappedNative {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tokens[symbol]; !ok {
		panic(fmt.Sprintf("sim: unknown token %s", symbol))
	}
	return &wrappedNativeView{tokenView{w: w, symbol: symbol}}
}

func (t *wrappedNativeView) Deposit(_ context.Context, account string, amt sdkmath.Int) error {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	bal := t.w.nativeBalanceOf(account)
	if bal.LT(amt) {
		return fmt.Errorf("insufficient native balance: have %s, need %s", bal, amt)
	}
	ts := t.w.tokens[t.symbol]
	t.w.native[account] = bal.Sub(amt)
	ts.balances[account] = ts.balanceOf(account).Add(amt)
	ts.totalSupply = ts.totalSupply.Add(amt)
	return nil
}

func (t *wrappedNativeView) Withdraw(_ context.Context, account string, amt sdkmath.Int) error {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	ts := t.w.tokens[t.symbol]
	bal := ts.balanceOf(account)
	if bal.LT(amt) {
		return fmt.Errorf("insufficient %s balance: have %s, need %s", t.symbol, bal, amt)
	}
	ts.balances[account] = bal.Sub(amt)
	ts.totalSupply = ts.totalSupply.Sub(amt)
	t.w.native[account] = t.w.nativeBalanceOf(account).Add(amt)
	return nil
}

// nativeBankView implements chain.NativeBank.
type nativeBankView struct {
	w *World
}

func (w *World) NativeBank() chain.NativeBank {
	return &nativeBankView{w: w}
}

func (n *nativeBankView) NativeBalanceOf(_ context.Context, account string) (sdkmath.Int, error) {
	n.w.mu.Lock()
	defer n.w.mu.Unlock()
	return n.w.nativeBalanceOf(account), nil
}

func (n *nativeBankView) SendNative(_ context.Context, from, to string, amt sdkmath.Int) error {
	n.w.mu.Lock()
	defer n.w.mu.Unlock()
	if n.w.nativeSendBlocked[to] {
		return fmt.Errorf("native send to %s rejected", to)
	}
	bal := n.w.nativeBalanceOf(from)
	if bal.LT(amt) {
		return fmt.Errorf("insufficient native balance: have %s, need %s", bal, amt)
	}
	n.w.native[from] = bal.Sub(amt)
	n.w.native[to] = n.w.nativeBalanceOf(to).Add(amt)
	return nil
}

// shareTokenView implements chain.ShareToken.
type shareTokenView struct {
	tokenView
}

func (w *World) ShareToken(symbol string) chain.ShareToken {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tokens[symbol]; !ok {
		panic(fmt.Sprintf("sim: unknown token %s", symbol))
	}
	return &shareTokenView{tokenView{w: w, symbol: symbol}}
}

func (t *shareTokenView) Mint(_ context.Context, to string, amt sdkmath.Int) error {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	ts := t.w.tokens[t.symbol]
	ts.balances[to] = ts.balanceOf(to).Add(amt)
	ts.totalSupply = ts.totalSupply.Add(amt)
	return nil
}

func (t *shareTokenView) Burn(_ context.Context, from string, amt sdkmath.Int) error {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	ts := t.w.tokens[t.symbol]
	bal := ts.balanceOf(from)
	if bal.LT(amt) {
		return fmt.Errorf("insufficient %s balance to burn: have %s, need %s", t.symbol, bal, amt)
	}
	ts.balances[from] = bal.Sub(amt)
	ts.totalSupply = ts.totalSupply.Sub(amt)
	return nil
}

func (t *shareTokenView) TotalSupply(_ context.Context) (sdkmath.Int, error) {
	t.w.mu.Lock()
	defer t.w.mu.Unlock()
	return t.w.tokens[t.symbol].totalSupply, nil
}
