package vault

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/kepfinance/kep-vault/internal/clients/chain"
	"github.com/kepfinance/kep-vault/internal/types"
)

// The reader is the valuation layer: pure views over the Store, recomputed
// on demand. All USD values are 1e18-scaled; token amounts stay in native
// decimals and are normalized here and nowhere else.

// UsdValue converts a native-decimal token amount into a 1e18 USD value via
// the oracle.
func UsdValue(ctx context.Context, s *Store, token chain.Token, amt sdkmath.Int) (sdkmath.Int, error) {
	price, err := s.Collaborators.Oracle.ConsultIn18Decimals(ctx, token.Symbol())
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("consult %s price: %w", token.Symbol(), err)
	}
	return amt.Mul(price).Quo(decimalsFactor(token.Decimals())), nil
}

// TokenAmtFromUsd converts a 1e18 USD value into a native-decimal token
// amount, floored.
func TokenAmtFromUsd(ctx context.Context, s *Store, token chain.Token, usd sdkmath.Int) (sdkmath.Int, error) {
	price, err := s.Collaborators.Oracle.ConsultIn18Decimals(ctx, token.Symbol())
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("consult %s price: %w", token.Symbol(), err)
	}
	return usd.Mul(decimalsFactor(token.Decimals())).Quo(price), nil
}

// AssetValue is the USD value of the vault's accounted LRT holding.
func AssetValue(ctx context.Context, s *Store) (sdkmath.Int, error) {
	return UsdValue(ctx, s, s.Collaborators.Lrt, s.LrtAmt)
}

// DebtAmt is the vault's current tokenB debt. It delegates to the lending
// market's max-repay view so accrued interest is always included.
func DebtAmt(ctx context.Context, s *Store) (sdkmath.Int, error) {
	return s.Collaborators.Lending.MaxRepay(ctx, s.VaultAccount)
}

// DebtValue is the USD value of the vault's debt.
func DebtValue(ctx context.Context, s *Store) (sdkmath.Int, error) {
	debtAmt, err := DebtAmt(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return UsdValue(ctx, s, s.Collaborators.TokenB, debtAmt)
}

// EquityValue is assetValue - debtValue, clamped at zero. Debt can
// transiently exceed assets under adverse prices; equity never goes
// negative.
func EquityValue(ctx context.Context, s *Store) (sdkmath.Int, error) {
	assetValue, err := AssetValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	debtValue, err := DebtValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if debtValue.GT(assetValue) {
		return sdkmath.ZeroInt(), nil
	}
	return assetValue.Sub(debtValue), nil
}

// Leverage is assetValue / equityValue, 1e18-scaled; zero if either is zero.
func Leverage(ctx context.Context, s *Store) (sdkmath.Int, error) {
	assetValue, err := AssetValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	equityValue, err := EquityValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if assetValue.IsZero() || equityValue.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return assetValue.Mul(safeMultiplier).Quo(equityValue), nil
}

// DebtRatio is debtValue / assetValue, 1e18-scaled; zero if assetValue is
// zero.
func DebtRatio(ctx context.Context, s *Store) (sdkmath.Int, error) {
	assetValue, err := AssetValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if assetValue.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	debtValue, err := DebtValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return debtValue.Mul(safeMultiplier).Quo(assetValue), nil
}

// Delta is the vault's signed net exposure: the USD value of the
// asset-minus-debt gap priced in tokenB, over equity, 1e18-scaled. Positive
// when assets cover debt, negative otherwise; zero when equity is zero or
// both amounts are zero.
func Delta(ctx context.Context, s *Store) (sdkmath.Int, error) {
	debtAmt, err := DebtAmt(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if s.LrtAmt.IsZero() && debtAmt.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	equityValue, err := EquityValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if equityValue.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	priceB, err := s.Collaborators.Oracle.ConsultIn18Decimals(ctx, s.Collaborators.TokenB.Symbol())
	if err != nil {
		return sdkmath.Int{}, err
	}

	lrt18 := normalizeTo18(s.LrtAmt, s.Collaborators.Lrt.Decimals())
	debt18 := normalizeTo18(debtAmt, s.Collaborators.TokenB.Decimals())

	gap := lrt18.Sub(debt18)
	negative := gap.IsNegative()
	gapValue := gap.Abs().Mul(priceB).Quo(safeMultiplier)
	delta := gapValue.Mul(safeMultiplier).Quo(equityValue)
	if negative {
		delta = delta.Neg()
	}
	return delta, nil
}

// PendingFee is the management fee accrued since the last collection,
// denominated in shares: supply * feePerSecond * elapsed / 1e18.
func PendingFee(ctx context.Context, s *Store) (sdkmath.Int, error) {
	supply, err := s.Collaborators.Shares.TotalSupply(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	elapsed := int64(s.Now().Sub(s.LastFeeCollected).Seconds())
	if elapsed <= 0 {
		return sdkmath.ZeroInt(), nil
	}
	return supply.Mul(s.Params.FeePerSecond).MulRaw(elapsed).Quo(safeMultiplier), nil
}

// SvTokenValue is the share price: equity / (supply + pendingFee),
// 1e18-scaled. An empty vault quotes par.
func SvTokenValue(ctx context.Context, s *Store) (sdkmath.Int, error) {
	equityValue, err := EquityValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	supply, err := s.Collaborators.Shares.TotalSupply(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	pendingFee, err := PendingFee(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	denom := supply.Add(pendingFee)
	if denom.IsZero() {
		return safeMultiplier, nil
	}
	return equityValue.Mul(safeMultiplier).Quo(denom), nil
}

// ValueToShares converts a USD value into shares at the current share
// price. The bootstrap case (no supply or no equity) mints 1:1.
func ValueToShares(ctx context.Context, s *Store, value, currentEquity sdkmath.Int) (sdkmath.Int, error) {
	supply, err := s.Collaborators.Shares.TotalSupply(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	pendingFee, err := PendingFee(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	total := supply.Add(pendingFee)
	if total.IsZero() || currentEquity.IsZero() {
		return value, nil
	}
	return value.Mul(total).Quo(currentEquity), nil
}

// AdditionalCapacity is the USD headroom for new deposits, derived from the
// lending market's remaining liquidity scaled by target leverage. A Short
// strategy reports zero capacity; see DESIGN.md.
func AdditionalCapacity(ctx context.Context, s *Store) (sdkmath.Int, error) {
	if s.Params.Delta == types.DeltaShort {
		return sdkmath.ZeroInt(), nil
	}
	if !s.Params.Leverage.GT(safeMultiplier) {
		return sdkmath.ZeroInt(), nil
	}
	available, err := s.Collaborators.Lending.TotalAvailableAsset(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	availableValue, err := UsdValue(ctx, s, s.Collaborators.TokenB, available)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return availableValue.Mul(safeMultiplier).Quo(s.Params.Leverage.Sub(safeMultiplier)), nil
}

// Capacity is the vault's total USD capacity: current equity plus the
// additional borrowable headroom.
func Capacity(ctx context.Context, s *Store) (sdkmath.Int, error) {
	additional, err := AdditionalCapacity(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	equityValue, err := EquityValue(ctx, s)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return additional.Add(equityValue), nil
}

// CaptureHealth snapshots the metrics every workflow records before and
// after its external effects.
func CaptureHealth(ctx context.Context, s *Store) (types.HealthParams, error) {
	equityValue, err := EquityValue(ctx, s)
	if err != nil {
		return types.HealthParams{}, err
	}
	debtRatio, err := DebtRatio(ctx, s)
	if err != nil {
		return types.HealthParams{}, err
	}
	delta, err := Delta(ctx, s)
	if err != nil {
		return types.HealthParams{}, err
	}
	svTokenValue, err := SvTokenValue(ctx, s)
	if err != nil {
		return types.HealthParams{}, err
	}
	return types.HealthParams{
		EquityValue:  equityValue,
		DebtRatio:    debtRatio,
		Delta:        delta,
		LrtAmt:       s.LrtAmt,
		SvTokenValue: svTokenValue,
	}, nil
}

func decimalsFactor(decimals uint8) sdkmath.Int {
	out := sdkmath.OneInt()
	ten := sdkmath.NewInt(10)
	for i := uint8(0); i < decimals; i++ {
		out = out.Mul(ten)
	}
	return out
}

func normalizeTo18(amt sdkmath.Int, decimals uint8) sdkmath.Int {
	if decimals == 18 {
		return amt
	}
	if decimals < 18 {
		return amt.Mul(decimalsFactor(18 - decimals))
	}
	return amt.Quo(decimalsFactor(decimals - 18))
}
