package vault

import (
	"context"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
	"github.com/kepfinance/kep-vault/internal/types"
)

// Selector names for the authority's capability check.
const (
	SelectorDeposit           = "deposit"
	SelectorWithdraw          = "withdraw"
	SelectorRebalanceAdd      = "rebalanceAdd"
	SelectorRebalanceRemove   = "rebalanceRemove"
	SelectorCompound          = "compound"
	SelectorEmergencyPause    = "emergencyPause"
	SelectorEmergencyRepay    = "emergencyRepay"
	SelectorEmergencyBorrow   = "emergencyBorrow"
	SelectorEmergencyResume   = "emergencyResume"
	SelectorEmergencyClose    = "emergencyClose"
	SelectorEmergencyWithdraw = "emergencyWithdraw"
	SelectorStatusOverride    = "emergencyStatusChange"
	SelectorSetter            = "setter"
)

// Vault is the entry-point facade: it owns the Store, enforces the
// at-most-one-operation guard, consults the authority for restricted entry
// points, and gives every operation all-or-nothing semantics by running it
// against a working copy of the ledger inside a world snapshot.
type Vault struct {
	store       *Store
	authority   chain.Authority
	snapshotter chain.StateSnapshotter

	// storeMu guards the committed store against concurrent health reads.
	// Writers hold opMu for the whole operation and storeMu only for the
	// commit itself.
	storeMu sync.RWMutex

	// opMu is the reentrancy guard. TryLock, not Lock: a nested or
	// concurrent mutating call must fail immediately, never queue, because
	// workflows leave the Store half-updated between external calls.
	opMu sync.Mutex
}

func New(store *Store, authority chain.Authority, snapshotter chain.StateSnapshotter) *Vault {
	return &Vault{
		store:       store,
		authority:   authority,
		snapshotter: snapshotter,
	}
}

// Status returns the current lifecycle status.
func (v *Vault) Status() types.Status {
	v.storeMu.RLock()
	defer v.storeMu.RUnlock()
	return v.store.Status
}

// Store returns a copy of the ledger for read-only views. Mutations must go
// through the operation entry points.
func (v *Vault) Store() *Store {
	v.storeMu.RLock()
	defer v.storeMu.RUnlock()
	return v.store.clone()
}

// execute wraps one mutating operation: reentrancy guard, optional
// authority check, world snapshot, working-copy run, commit-or-rollback.
func (v *Vault) execute(
	ctx context.Context,
	caller, selector string,
	restricted bool,
	op func(ctx context.Context, s *Store) (*types.OperationEvent, error),
) (*types.OperationEvent, error) {
	if !v.opMu.TryLock() {
		return nil, types.NewErrorWithMsg(409, types.ReentrantCall,
			"another operation is already in flight")
	}
	defer v.opMu.Unlock()

	if restricted {
		allowed, delay, err := v.authority.CanCall(ctx, caller, v.store.VaultAccount, selector)
		if err != nil {
			return nil, types.NewExternalCallError(err)
		}
		if !allowed {
			return nil, types.NewErrorWithMsg(403, types.Unauthorized,
				"caller "+caller+" lacks capability "+selector)
		}
		if delay > 0 {
			return nil, types.NewErrorWithMsg(403, types.Unauthorized,
				"capability "+selector+" requires a scheduled operation")
		}
	}

	var snapID uint64
	if v.snapshotter != nil {
		snapID = v.snapshotter.Snapshot()
	}

	working := v.store.clone()
	ev, err := op(ctx, working)
	if err != nil {
		if v.snapshotter != nil {
			if revertErr := v.snapshotter.RevertTo(snapID); revertErr != nil {
				log.Ctx(ctx).Error().Err(revertErr).Msg("failed to revert world snapshot")
			}
		}
		log.Ctx(ctx).Warn().Err(err).Str("selector", selector).Str("caller", caller).
			Msg("vault operation rolled back")
		return nil, err
	}
	if v.snapshotter != nil {
		v.snapshotter.Release(snapID)
	}
	v.storeMu.Lock()
	*v.store = *working
	v.storeMu.Unlock()

	log.Ctx(ctx).Info().Str("selector", selector).Str("caller", caller).
		Str("status", v.store.Status.String()).Msg("vault operation completed")
	return ev, nil
}

// Deposit enters the vault with a whitelisted ERC20 token.
func (v *Vault) Deposit(ctx context.Context, caller string, p DepositParams) (*types.OperationEvent, error) {
	p.Native = false
	return v.execute(ctx, caller, SelectorDeposit, false, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return deposit(ctx, s, caller, p)
	})
}

// DepositNative enters the vault with unwrapped native value; it is wrapped
// into WNT on the way in.
func (v *Vault) DepositNative(ctx context.Context, caller string, p DepositParams) (*types.OperationEvent, error) {
	p.Native = true
	p.Token = v.store.Collaborators.Wnt.Symbol()
	return v.execute(ctx, caller, SelectorDeposit, false, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return deposit(ctx, s, caller, p)
	})
}

// Withdraw burns shares and returns the proportional assets.
func (v *Vault) Withdraw(ctx context.Context, caller string, p WithdrawParams) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorWithdraw, false, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return withdraw(ctx, s, caller, p)
	})
}

// RebalanceAdd is keeper-restricted.
func (v *Vault) RebalanceAdd(ctx context.Context, caller string, p RebalanceAddParams) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorRebalanceAdd, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return rebalanceAdd(ctx, s, caller, p)
	})
}

// RebalanceRemove is keeper-restricted.
func (v *Vault) RebalanceRemove(ctx context.Context, caller string, p RebalanceRemoveParams) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorRebalanceRemove, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return rebalanceRemove(ctx, s, caller, p)
	})
}

// Compound is keeper-restricted.
func (v *Vault) Compound(ctx context.Context, caller string, p CompoundParams) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorCompound, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return compound(ctx, s, caller, p)
	})
}

func (v *Vault) EmergencyPause(ctx context.Context, caller string) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorEmergencyPause, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return emergencyPause(ctx, s, caller)
	})
}

func (v *Vault) EmergencyRepay(ctx context.Context, caller string, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorEmergencyRepay, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return emergencyRepay(ctx, s, caller, slippageBps, deadline)
	})
}

func (v *Vault) EmergencyBorrow(ctx context.Context, caller string, borrowTokenBAmt sdkmath.Int, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorEmergencyBorrow, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return emergencyBorrow(ctx, s, caller, borrowTokenBAmt, slippageBps, deadline)
	})
}

func (v *Vault) EmergencyResume(ctx context.Context, caller string) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorEmergencyResume, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return emergencyResume(ctx, s, caller)
	})
}

func (v *Vault) EmergencyClose(ctx context.Context, caller string, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorEmergencyClose, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return emergencyClose(ctx, s, caller, slippageBps, deadline)
	})
}

// EmergencyWithdraw is open to any shareholder once the vault is Closed.
func (v *Vault) EmergencyWithdraw(ctx context.Context, caller string, shareAmt sdkmath.Int) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorEmergencyWithdraw, false, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return emergencyWithdraw(ctx, s, caller, shareAmt)
	})
}

// EmergencyStatusChange is the administrative status override.
func (v *Vault) EmergencyStatusChange(ctx context.Context, caller string, newStatus types.Status) (*types.OperationEvent, error) {
	return v.execute(ctx, caller, SelectorStatusOverride, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		return emergencyStatusOverride(ctx, s, caller, newStatus)
	})
}

// updateParams runs a restricted administrative mutation under the same
// one-at-a-time guarantee as the operations.
func (v *Vault) updateParams(ctx context.Context, caller string, mutate func(s *Store)) error {
	_, err := v.execute(ctx, caller, SelectorSetter, true, func(ctx context.Context, s *Store) (*types.OperationEvent, error) {
		mutate(s)
		return nil, nil
	})
	return err
}

func (v *Vault) SetTreasury(ctx context.Context, caller, treasury string) error {
	return v.updateParams(ctx, caller, func(s *Store) { s.Treasury = treasury })
}

func (v *Vault) SetSwapRouter(ctx context.Context, caller string, router chain.SwapRouter) error {
	return v.updateParams(ctx, caller, func(s *Store) { s.Collaborators.Router = router })
}

func (v *Vault) SetLendingMarket(ctx context.Context, caller string, lending chain.LendingMarket) error {
	return v.updateParams(ctx, caller, func(s *Store) { s.Collaborators.Lending = lending })
}

func (v *Vault) SetOracle(ctx context.Context, caller string, oracle chain.PriceOracle) error {
	return v.updateParams(ctx, caller, func(s *Store) { s.Collaborators.Oracle = oracle })
}

func (v *Vault) SetFeePerSecond(ctx context.Context, caller string, feePerSecond sdkmath.Int) error {
	return v.updateParams(ctx, caller, func(s *Store) { s.Params.FeePerSecond = feePerSecond })
}

func (v *Vault) SetLeverage(ctx context.Context, caller string, leverage sdkmath.Int) error {
	return v.updateParams(ctx, caller, func(s *Store) { s.Params.Leverage = leverage })
}

func (v *Vault) SetDebtRatioStepThreshold(ctx context.Context, caller string, bps int64) error {
	return v.updateParams(ctx, caller, func(s *Store) { s.Params.DebtRatioStepThreshold = bps })
}

func (v *Vault) SetDebtRatioLimits(ctx context.Context, caller string, lower, upper sdkmath.Int) error {
	return v.updateParams(ctx, caller, func(s *Store) {
		s.Params.DebtRatioLowerLimit = lower
		s.Params.DebtRatioUpperLimit = upper
	})
}

func (v *Vault) SetDeltaLimits(ctx context.Context, caller string, lower, upper sdkmath.Int) error {
	return v.updateParams(ctx, caller, func(s *Store) {
		s.Params.DeltaLowerLimit = lower
		s.Params.DeltaUpperLimit = upper
	})
}

func (v *Vault) SetSlippageBounds(ctx context.Context, caller string, minVaultSlippage, swapSlippage int64) error {
	return v.updateParams(ctx, caller, func(s *Store) {
		s.Params.MinVaultSlippage = minVaultSlippage
		s.Params.SwapSlippage = swapSlippage
	})
}

func (v *Vault) SetMinMaxAssetValue(ctx context.Context, caller string, minValue, maxValue sdkmath.Int) error {
	return v.updateParams(ctx, caller, func(s *Store) {
		s.Params.MinAssetValue = minValue
		s.Params.MaxAssetValue = maxValue
	})
}
