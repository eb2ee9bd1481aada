package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/types"
)

// Checks are the guard predicates bounding every mutating operation. Before
// guards run ahead of any external effect; after guards run once the
// effects have executed and, on failure, the whole operation is rolled
// back.

// isWithinStepChange reports whether after stayed within threshold (bps of
// 10000) of before. A zero before-value bypasses the check: the bootstrap
// case has no meaningful baseline.
func isWithinStepChange(before, after sdkmath.Int, thresholdBps int64) bool {
	if before.IsZero() {
		return true
	}
	lower := before.Mul(bpsDenominator.SubRaw(thresholdBps)).Quo(bpsDenominator)
	upper := before.Mul(bpsDenominator.AddRaw(thresholdBps)).Quo(bpsDenominator)
	return after.GTE(lower) && after.LTE(upper)
}

func beforeDepositChecks(ctx context.Context, s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForDeposit()) {
		return types.NewPreconditionError("deposit not allowed in status %s", s.Status)
	}

	cache := &s.DepositCache
	if _, ok := s.tokenBySymbol(cache.TokenIn); !ok ||
		(cache.TokenIn != s.Collaborators.Lrt.Symbol() &&
			cache.TokenIn != s.Collaborators.Wnt.Symbol() &&
			cache.TokenIn != s.Collaborators.Lst.Symbol()) {
		return types.NewPreconditionError("token %s not accepted for deposit", cache.TokenIn)
	}
	if !cache.AmountIn.IsPositive() {
		return types.NewPreconditionError("deposit amount must be positive")
	}
	if cache.SlippageBps < s.Params.MinVaultSlippage {
		return types.NewPreconditionError("slippage %dbps below vault minimum %dbps",
			cache.SlippageBps, s.Params.MinVaultSlippage)
	}
	if cache.DepositValue.LT(s.Params.MinAssetValue) {
		return types.NewPreconditionError("deposit value %s below minimum %s",
			cache.DepositValue, s.Params.MinAssetValue)
	}
	if cache.DepositValue.GT(s.Params.MaxAssetValue) {
		return types.NewPreconditionError("deposit value %s above maximum %s",
			cache.DepositValue, s.Params.MaxAssetValue)
	}

	capacity, err := AdditionalCapacity(ctx, s)
	if err != nil {
		return types.NewExternalCallError(err)
	}
	if cache.DepositValue.GT(capacity) {
		return types.NewPreconditionError("deposit value %s exceeds additional capacity %s",
			cache.DepositValue, capacity)
	}

	// A vault whose equity was wiped but whose shares still exist has no
	// defined share price; minting against it would be arbitrary.
	if cache.HealthParams.EquityValue.IsZero() {
		supply, err := s.Collaborators.Shares.TotalSupply(ctx)
		if err != nil {
			return types.NewExternalCallError(err)
		}
		if supply.IsPositive() {
			return types.NewPreconditionError("deposit not allowed when equity is zero and shares exist")
		}
	}
	return nil
}

func afterDepositChecks(ctx context.Context, s *Store) error {
	cache := &s.DepositCache
	if !s.LrtAmt.GT(cache.HealthParams.LrtAmt) {
		return types.NewPostconditionError("deposit did not increase LRT holdings (%s -> %s)",
			cache.HealthParams.LrtAmt, s.LrtAmt)
	}

	debtRatio, err := DebtRatio(ctx, s)
	if err != nil {
		return types.NewExternalCallError(err)
	}
	if !isWithinStepChange(cache.HealthParams.DebtRatio, debtRatio, s.Params.DebtRatioStepThreshold) {
		return types.NewPostconditionError("debt ratio drifted beyond step threshold (%s -> %s, limit %dbps)",
			cache.HealthParams.DebtRatio, debtRatio, s.Params.DebtRatioStepThreshold)
	}
	return nil
}

func beforeWithdrawChecks(ctx context.Context, s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForWithdraw()) {
		return types.NewPreconditionError("withdraw not allowed in status %s", s.Status)
	}

	cache := &s.WithdrawCache
	if !cache.ShareAmt.IsPositive() {
		return types.NewPreconditionError("share amount must be positive")
	}
	balance, err := s.Collaborators.Shares.BalanceOf(ctx, cache.Withdrawer)
	if err != nil {
		return types.NewExternalCallError(err)
	}
	if cache.ShareAmt.GT(balance) {
		return types.NewPreconditionError("share amount %s exceeds balance %s", cache.ShareAmt, balance)
	}
	if cache.WithdrawValue.GT(s.Params.MaxAssetValue) {
		return types.NewPreconditionError("withdraw value %s above maximum %s",
			cache.WithdrawValue, s.Params.MaxAssetValue)
	}
	if cache.SlippageBps < s.Params.MinVaultSlippage {
		return types.NewPreconditionError("slippage %dbps below vault minimum %dbps",
			cache.SlippageBps, s.Params.MinVaultSlippage)
	}
	return nil
}

func afterWithdrawChecks(ctx context.Context, s *Store) error {
	cache := &s.WithdrawCache
	if !s.LrtAmt.LT(cache.HealthParams.LrtAmt) {
		return types.NewPostconditionError("withdraw did not decrease LRT holdings (%s -> %s)",
			cache.HealthParams.LrtAmt, s.LrtAmt)
	}

	equityValue, err := EquityValue(ctx, s)
	if err != nil {
		return types.NewExternalCallError(err)
	}
	if !equityValue.LT(cache.HealthParams.EquityValue) {
		return types.NewPostconditionError("withdraw did not decrease equity (%s -> %s)",
			cache.HealthParams.EquityValue, equityValue)
	}

	debtRatio, err := DebtRatio(ctx, s)
	if err != nil {
		return types.NewExternalCallError(err)
	}
	if !isWithinStepChange(cache.HealthParams.DebtRatio, debtRatio, s.Params.DebtRatioStepThreshold) {
		return types.NewPostconditionError("debt ratio drifted beyond step threshold (%s -> %s, limit %dbps)",
			cache.HealthParams.DebtRatio, debtRatio, s.Params.DebtRatioStepThreshold)
	}
	return nil
}

func beforeRebalanceChecks(s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForRebalance()) {
		return types.NewPreconditionError("rebalance not allowed in status %s", s.Status)
	}

	cache := &s.RebalanceCache
	switch cache.RebalanceType {
	case types.RebalanceDelta:
		if s.Params.Delta != types.DeltaNeutral {
			return types.NewPreconditionError("delta rebalance only valid for a neutral strategy")
		}
		delta := cache.HealthParams.Delta
		if delta.GTE(s.Params.DeltaLowerLimit) && delta.LTE(s.Params.DeltaUpperLimit) {
			return types.NewPreconditionError("delta %s already within limits, no rebalance needed", delta)
		}
	case types.RebalanceDebt:
		ratio := cache.HealthParams.DebtRatio
		if ratio.GTE(s.Params.DebtRatioLowerLimit) && ratio.LTE(s.Params.DebtRatioUpperLimit) {
			return types.NewPreconditionError("debt ratio %s already within limits, no rebalance needed", ratio)
		}
	default:
		return types.NewPreconditionError("unknown rebalance type %s", cache.RebalanceType)
	}
	return nil
}

func afterRebalanceChecks(ctx context.Context, s *Store) error {
	if s.Params.Delta == types.DeltaNeutral {
		delta, err := Delta(ctx, s)
		if err != nil {
			return types.NewExternalCallError(err)
		}
		if delta.LT(s.Params.DeltaLowerLimit) || delta.GT(s.Params.DeltaUpperLimit) {
			return types.NewPostconditionError("delta %s outside limits [%s, %s] after rebalance",
				delta, s.Params.DeltaLowerLimit, s.Params.DeltaUpperLimit)
		}
	}

	debtRatio, err := DebtRatio(ctx, s)
	if err != nil {
		return types.NewExternalCallError(err)
	}
	if debtRatio.LT(s.Params.DebtRatioLowerLimit) || debtRatio.GT(s.Params.DebtRatioUpperLimit) {
		return types.NewPostconditionError("debt ratio %s outside limits [%s, %s] after rebalance",
			debtRatio, s.Params.DebtRatioLowerLimit, s.Params.DebtRatioUpperLimit)
	}
	return nil
}

func beforeCompoundChecks(s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForCompound()) {
		return types.NewPreconditionError("compound not allowed in status %s", s.Status)
	}
	if !s.CompoundCache.DepositValue.IsPositive() {
		return types.NewPreconditionError("compound deposit value must be positive")
	}
	return nil
}

func beforeEmergencyPauseChecks(s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForEmergencyPause()) {
		return types.NewPreconditionError("emergency pause not allowed in status %s", s.Status)
	}
	return nil
}

func beforeEmergencyRepayChecks(s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForEmergencyRepay()) {
		return types.NewPreconditionError("emergency repay not allowed in status %s", s.Status)
	}
	return nil
}

func beforeEmergencyBorrowChecks(s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForEmergencyBorrow()) {
		return types.NewPreconditionError("emergency borrow not allowed in status %s", s.Status)
	}
	return nil
}

func beforeEmergencyResumeChecks(s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForEmergencyResume()) {
		return types.NewPreconditionError("emergency resume not allowed in status %s", s.Status)
	}
	return nil
}

func beforeEmergencyCloseChecks(s *Store) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForEmergencyClose()) {
		return types.NewPreconditionError("emergency close not allowed in status %s", s.Status)
	}
	return nil
}

func beforeEmergencyWithdrawChecks(ctx context.Context, s *Store, caller string, shareAmt sdkmath.Int) error {
	if !s.Status.IsQualified(types.QualifiedSourceStatesForEmergencyWithdraw()) {
		return types.NewPreconditionError("emergency withdraw not allowed in status %s", s.Status)
	}
	if !shareAmt.IsPositive() {
		return types.NewPreconditionError("share amount must be positive")
	}
	balance, err := s.Collaborators.Shares.BalanceOf(ctx, caller)
	if err != nil {
		return types.NewExternalCallError(err)
	}
	if shareAmt.GT(balance) {
		return types.NewPreconditionError("share amount %s exceeds balance %s", shareAmt, balance)
	}
	return nil
}

func beforeStatusOverrideChecks(s *Store) error {
	if s.Status.IsQualified(types.BlockedSourceStatesForStatusOverride()) {
		return types.NewPreconditionError("status override not allowed in status %s", s.Status)
	}
	return nil
}
