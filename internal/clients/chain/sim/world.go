// Package sim is a deterministic in-process implementation of the chain
// collaborators the vault depends on. It stands in for the real lending
// market, oracle, router and token contracts in tests and in the server's
// simulation mode, and reproduces transaction-revert semantics through
// whole-world snapshots.
package sim

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
)

type tokenState struct {
	symbol      string
	decimals    uint8
	totalSupply sdkmath.Int
	balances    map[string]sdkmath.Int
	allowances  map[string]map[string]sdkmath.Int
}

type lendingState struct {
	assetSymbol string
	available   sdkmath.Int
	debts       map[string]sdkmath.Int
}

// World holds the entire simulated chain state. All views handed out by a
// World share its single mutex, so collaborator calls are atomic with
// respect to each other.
type World struct {
	mu sync.Mutex

	clock  func() time.Time
	tokens map[string]*tokenState
	native map[string]sdkmath.Int
	prices map[string]sdkmath.Int

	lending *lendingState

	// marketImpactBps is the execution penalty the router applies to every
	// swap, simulating price impact. A swap whose slippage tolerance is
	// tighter than the impact fails.
	marketImpactBps int64

	roles map[string]map[string]bool
	delay time.Duration

	snapshots  map[uint64]*worldSnapshot
	nextSnapID uint64

	// nativeSendBlocked simulates an account that rejects native transfers,
	// forcing the withdraw workflow onto its ERC20 fallback path.
	nativeSendBlocked map[string]bool
}

func NewWorld(clock func() time.Time) *World {
	if clock == nil {
		clock = time.Now
	}
	return &World{
		clock:             clock,
		tokens:            make(map[string]*tokenState),
		native:            make(map[string]sdkmath.Int),
		prices:            make(map[string]sdkmath.Int),
		roles:             make(map[string]map[string]bool),
		snapshots:         make(map[uint64]*worldSnapshot),
		nativeSendBlocked: make(map[string]bool),
	}
}

// CreateToken registers a token with the given decimals. It is an error to
// register the same symbol twice.
func (w *World) CreateToken(symbol string, decimals uint8) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tokens[symbol]; ok {
		return fmt.Errorf("token %s already exists", symbol)
	}
	w.tokens[symbol] = &tokenState{
		symbol:      symbol,
		decimals:    decimals,
		totalSupply: sdkmath.ZeroInt(),
		balances:    make(map[string]sdkmath.Int),
		allowances:  make(map[string]map[string]sdkmath.Int),
	}
	return nil
}

// SetPrice sets the oracle's 1e18-scaled USD price for a token.
func (w *World) SetPrice(symbol string, price sdkmath.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prices[symbol] = price
}

// SetMarketImpactBps sets the router's execution penalty.
func (w *World) SetMarketImpactBps(bps int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.marketImpactBps = bps
}

// FundToken credits balance out of thin air (genesis / faucet).
func (w *World) FundToken(symbol, account string, amt sdkmath.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ts, ok := w.tokens[symbol]
	if !ok {
		return fmt.Errorf("unknown token %s", symbol)
	}
	ts.balances[account] = ts.balanceOf(account).Add(amt)
	ts.totalSupply = ts.totalSupply.Add(amt)
	return nil
}

// FundNative credits native balance.
func (w *World) FundNative(account string, amt sdkmath.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.native[account] = w.nativeBalanceOf(account).Add(amt)
}

// InitLending sets up the lending pool for the given debt asset with the
// given available liquidity.
func (w *World) InitLending(assetSymbol string, available sdkmath.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tokens[assetSymbol]; !ok {
		return fmt.Errorf("unknown token %s", assetSymbol)
	}
	w.lending = &lendingState{
		assetSymbol: assetSymbol,
		available:   available,
		debts:       make(map[string]sdkmath.Int),
	}
	return nil
}

// AccrueDebt bumps a borrower's debt without moving balances, the way
// interest accrual on the real market would.
func (w *World) AccrueDebt(borrower string, amt sdkmath.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lending == nil {
		return
	}
	w.lending.debts[borrower] = w.lending.debtOf(borrower).Add(amt)
}

// GrantRole allows caller to invoke selector ("*" for all) via the
// authority.
func (w *World) GrantRole(caller, selector string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.roles[caller] == nil {
		w.roles[caller] = make(map[string]bool)
	}
	w.roles[caller][selector] = true
}

// SetExecutionDelay sets the delay the authority reports for allowed calls.
func (w *World) SetExecutionDelay(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delay = d
}

// BlockNativeSends makes native transfers to account fail.
func (w *World) BlockNativeSends(account string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nativeSendBlocked[account] = true
}

func (ts *tokenState) balanceOf(account string) sdkmath.Int {
	if b, ok := ts.balances[account]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (ts *tokenState) allowanceOf(owner, spender string) sdkmath.Int {
	if m, ok := ts.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a
		}
	}
	return sdkmath.ZeroInt()
}

func (ls *lendingState) debtOf(borrower string) sdkmath.Int {
	if d, ok := ls.debts[borrower]; ok {
		return d
	}
	return sdkmath.ZeroInt()
}

func (w *World) nativeBalanceOf(account string) sdkmath.Int {
	if b, ok := w.native[account]; ok {
		return b
	}
	return sdkmath.ZeroInt()
}

func (w *World) tokenOrErr(symbol string) (*tokenState, error) {
	ts, ok := w.tokens[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown token %s", symbol)
	}
	return ts, nil
}
