package sim

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

type worldSnapshot struct {
	tokens  map[string]*tokenState
	native  map[string]sdkmath.Int
	prices  map[string]sdkmath.Int
	lending *lendingState
}

// Snapshot deep-copies the whole world and returns a handle. The vault
// facade takes one before every mutating operation so a failed operation
// can be rolled back the way a reverted transaction would be on-chain.
func (w *World) Snapshot() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextSnapID++
	id := w.nextSnapID

	snap := &worldSnapshot{
		tokens: make(map[string]*tokenState, len(w.tokens)),
		native: cloneIntMap(w.native),
		prices: cloneIntMap(w.prices),
	}
	for sym, ts := range w.tokens {
		snap.tokens[sym] = ts.clone()
	}
	if w.lending != nil {
		snap.lending = &lendingState{
			assetSymbol: w.lending.assetSymbol,
			available:   w.lending.available,
			debts:       cloneIntMap(w.lending.debts),
		}
	}
	w.snapshots[id] = snap
	return id
}

// RevertTo restores the state captured by Snapshot and discards the handle.
func (w *World) RevertTo(id uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap, ok := w.snapshots[id]
	if !ok {
		return fmt.Errorf("unknown snapshot %d", id)
	}
	w.tokens = snap.tokens
	w.native = snap.native
	w.prices = snap.prices
	w.lending = snap.lending
	delete(w.snapshots, id)
	return nil
}

// Release discards a snapshot handle after a successful operation.
func (w *World) Release(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.snapshots, id)
}

func (ts *tokenState) clone() *tokenState {
	c := &tokenState{
		symbol:      ts.symbol,
		decimals:    ts.decimals,
		totalSupply: ts.totalSupply,
		balances:    cloneIntMap(ts.balances),
		allowances:  make(map[string]map[string]sdkmath.Int, len(ts.allowances)),
	}
	for owner, m := range ts.allowances {
		c.allowances[owner] = cloneIntMap(m)
	}
	return c
}

func cloneIntMap(m map[string]sdkmath.Int) map[string]sdkmath.Int {
	c := make(map[string]sdkmath.Int, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
