package sim

import (
	"context"
	"time"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
)

// authorityView implements chain.Authority over the world's role table.
// Selectors are matched exactly, with "*" as a wildcard grant.
type authorityView struct {
	w *World
}

func (w *World) Authority() chain.Authority {
	return &authorityView{w: w}
}

func (a *authorityView) CanCall(_ context.Context, caller, _, selector string) (bool, time.Duration, error) {
	a.w.mu.Lock()
	defer a.w.mu.Unlock()
	grants, ok := a.w.roles[caller]
	if !ok {
		return false, 0, nil
	}
	if grants["*"] || grants[selector] {
		return true, a.w.delay, nil
	}
	return false, 0, nil
}
