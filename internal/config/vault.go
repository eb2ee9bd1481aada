package config

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// VaultConfig carries the vault's identity, token wiring and guard
// thresholds. Fixed-point values are decimal strings ("3.0" for 3x
// leverage) converted to 1e18 scale at load time.
type VaultConfig struct {
	VaultAccount string `mapstructure:"vault-account"`
	Treasury     string `mapstructure:"treasury"`

	LrtSymbol    string `mapstructure:"lrt-symbol"`
	WntSymbol    string `mapstructure:"wnt-symbol"`
	LstSymbol    string `mapstructure:"lst-symbol"`
	TokenBSymbol string `mapstructure:"token-b-symbol"`
	RewardSymbol string `mapstructure:"reward-symbol"`
	ShareSymbol  string `mapstructure:"share-symbol"`

	Leverage     string `mapstructure:"leverage"`
	Delta        string `mapstructure:"delta"`
	FeePerSecond string `mapstructure:"fee-per-second"`

	DebtRatioStepThreshold int64  `mapstructure:"debt-ratio-step-threshold-bps"`
	DebtRatioLowerLimit    string `mapstructure:"debt-ratio-lower-limit"`
	DebtRatioUpperLimit    string `mapstructure:"debt-ratio-upper-limit"`
	DeltaLowerLimit        string `mapstructure:"delta-lower-limit"`
	DeltaUpperLimit        string `mapstructure:"delta-upper-limit"`

	MinVaultSlippageBps int64 `mapstructure:"min-vault-slippage-bps"`
	SwapSlippageBps     int64 `mapstructure:"swap-slippage-bps"`

	MinAssetValue string `mapstructure:"min-asset-value"`
	MaxAssetValue string `mapstructure:"max-asset-value"`
}

func (cfg *VaultConfig) Validate() error {
	if cfg.VaultAccount == "" {
		return errors.New("vault-account must be set")
	}
	if cfg.Treasury == "" {
		return errors.New("treasury must be set")
	}
	for name, sym := range map[string]string{
		"lrt-symbol":     cfg.LrtSymbol,
		"wnt-symbol":     cfg.WntSymbol,
		"lst-symbol":     cfg.LstSymbol,
		"token-b-symbol": cfg.TokenBSymbol,
		"reward-symbol":  cfg.RewardSymbol,
		"share-symbol":   cfg.ShareSymbol,
	} {
		if sym == "" {
			return fmt.Errorf("%s must be set", name)
		}
	}
	switch cfg.Delta {
	case "NEUTRAL", "LONG", "SHORT":
	default:
		return fmt.Errorf("delta must be one of NEUTRAL, LONG, SHORT, got %q", cfg.Delta)
	}
	if cfg.DebtRatioStepThreshold <= 0 {
		return errors.New("debt-ratio-step-threshold-bps must be positive")
	}
	if cfg.MinVaultSlippageBps < 0 || cfg.SwapSlippageBps < 0 {
		return errors.New("slippage bounds must not be negative")
	}
	for name, val := range map[string]string{
		"leverage":               cfg.Leverage,
		"fee-per-second":         cfg.FeePerSecond,
		"debt-ratio-lower-limit": cfg.DebtRatioLowerLimit,
		"debt-ratio-upper-limit": cfg.DebtRatioUpperLimit,
		"delta-lower-limit":      cfg.DeltaLowerLimit,
		"delta-upper-limit":      cfg.DeltaUpperLimit,
		"min-asset-value":        cfg.MinAssetValue,
		"max-asset-value":        cfg.MaxAssetValue,
	} {
		if _, err := ParseFixedPoint(val); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ParseFixedPoint converts a decimal string into a 1e18-scaled Int.
// Negative values are allowed (delta limits are signed).
func ParseFixedPoint(s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.Int{}, errors.New("value must be set")
	}
	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("invalid fixed-point value %q: %w", s, err)
	}
	return dec.MulInt64(1_000_000_000_000_000_000).TruncateInt(), nil
}
