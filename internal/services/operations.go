package services

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/kepfinance/kep-vault/internal/db"
	"github.com/kepfinance/kep-vault/internal/db/model"
	"github.com/kepfinance/kep-vault/internal/observability/metrics"
	"github.com/kepfinance/kep-vault/internal/types"
	"github.com/kepfinance/kep-vault/internal/vault"
)

// ExecuteDeposit runs a deposit and records its outcome.
func (s *Service) ExecuteDeposit(ctx context.Context, caller string, p vault.DepositParams) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorDeposit, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.Deposit(ctx, caller, p)
	})
}

// ExecuteDepositNative runs a native-value deposit and records its outcome.
func (s *Service) ExecuteDepositNative(ctx context.Context, caller string, p vault.DepositParams) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorDeposit, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.DepositNative(ctx, caller, p)
	})
}

// ExecuteWithdraw runs a withdrawal and records its outcome.
func (s *Service) ExecuteWithdraw(ctx context.Context, caller string, p vault.WithdrawParams) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorWithdraw, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.Withdraw(ctx, caller, p)
	})
}

func (s *Service) ExecuteRebalanceAdd(ctx context.Context, caller string, p vault.RebalanceAddParams) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorRebalanceAdd, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.RebalanceAdd(ctx, caller, p)
	})
}

func (s *Service) ExecuteRebalanceRemove(ctx context.Context, caller string, p vault.RebalanceRemoveParams) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorRebalanceRemove, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.RebalanceRemove(ctx, caller, p)
	})
}

func (s *Service) ExecuteCompound(ctx context.Context, caller string, p vault.CompoundParams) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorCompound, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.Compound(ctx, caller, p)
	})
}

func (s *Service) ExecuteEmergencyPause(ctx context.Context, caller string) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorEmergencyPause, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.EmergencyPause(ctx, caller)
	})
}

func (s *Service) ExecuteEmergencyRepay(ctx context.Context, caller string, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorEmergencyRepay, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.EmergencyRepay(ctx, caller, slippageBps, deadline)
	})
}

func (s *Service) ExecuteEmergencyBorrow(ctx context.Context, caller string, borrowTokenBAmt sdkmath.Int, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorEmergencyBorrow, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.EmergencyBorrow(ctx, caller, borrowTokenBAmt, slippageBps, deadline)
	})
}

func (s *Service) ExecuteEmergencyResume(ctx context.Context, caller string) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorEmergencyResume, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.EmergencyResume(ctx, caller)
	})
}

func (s *Service) ExecuteEmergencyClose(ctx context.Context, caller string, slippageBps int64, deadline time.Time) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorEmergencyClose, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.EmergencyClose(ctx, caller, slippageBps, deadline)
	})
}

func (s *Service) ExecuteEmergencyWithdraw(ctx context.Context, caller string, shareAmt sdkmath.Int) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorEmergencyWithdraw, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.EmergencyWithdraw(ctx, caller, shareAmt)
	})
}

func (s *Service) ExecuteEmergencyStatusChange(ctx context.Context, caller string, newStatus types.Status) (*types.OperationEvent, error) {
	return s.run(ctx, vault.SelectorStatusOverride, func(ctx context.Context) (*types.OperationEvent, error) {
		return s.vault.EmergencyStatusChange(ctx, caller, newStatus)
	})
}

// run executes one vault operation and handles the common aftermath:
// operation metrics, event persistence and queue publication. Persistence
// and publication failures are logged, not surfaced, because the operation
// itself already committed.
func (s *Service) run(
	ctx context.Context,
	selector string,
	op func(ctx context.Context) (*types.OperationEvent, error),
) (*types.OperationEvent, error) {
	startTime := time.Now()
	ev, err := op(ctx)
	metrics.RecordVaultOperationDuration(time.Since(startTime), selector, err != nil)
	if err != nil {
		return nil, err
	}
	if ev != nil {
		s.recordOperationEvent(ctx, ev)
	}
	return ev, nil
}

func (s *Service) recordOperationEvent(ctx context.Context, ev *types.OperationEvent) {
	if ev.AfterHealth != nil {
		metrics.RecordVaultHealth(
			ev.AfterHealth.EquityValue,
			ev.AfterHealth.DebtRatio,
			ev.AfterHealth.Delta,
			ev.AfterHealth.SvTokenValue,
		)
	}

	if s.db != nil {
		if err := s.db.SaveOperationEvent(ctx, model.FromOperationEvent(ev)); err != nil {
			if db.IsDuplicateKeyError(err) {
				log.Ctx(ctx).Debug().Str("eventId", ev.EventID).
					Msg("operation event already recorded")
			} else {
				log.Ctx(ctx).Error().Err(err).Str("eventId", ev.EventID).
					Msg("failed to persist operation event")
			}
		}
	}

	if s.queueManager != nil {
		if err := s.queueManager.PushOperationEvent(ctx, ev); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("eventId", ev.EventID).
				Msg("failed to publish operation event")
		}
	}
}
