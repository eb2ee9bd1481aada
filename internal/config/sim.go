package config

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// SimConfig seeds the in-process chain simulation the server runs against.
type SimConfig struct {
	Tokens           []SimTokenConfig   `mapstructure:"tokens"`
	LendingLiquidity string             `mapstructure:"lending-liquidity"`
	MarketImpactBps  int64              `mapstructure:"market-impact-bps"`
	Accounts         []SimAccountConfig `mapstructure:"accounts"`
	Keepers          []string           `mapstructure:"keepers"`
}

type SimTokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
	PriceUsd string `mapstructure:"price-usd"`
}

type SimAccountConfig struct {
	Account string `mapstructure:"account"`
	Token   string `mapstructure:"token"` // empty for native balance
	Amount  string `mapstructure:"amount"`
}

func (cfg *SimConfig) Validate() error {
	if len(cfg.Tokens) == 0 {
		return errors.New("sim requires at least one token")
	}
	for _, t := range cfg.Tokens {
		if t.Symbol == "" {
			return errors.New("sim token symbol must be set")
		}
		if t.PriceUsd != "" {
			if _, err := ParseFixedPoint(t.PriceUsd); err != nil {
				return fmt.Errorf("sim token %s: %w", t.Symbol, err)
			}
		}
	}
	if cfg.LendingLiquidity != "" {
		if _, ok := sdkmath.NewIntFromString(cfg.LendingLiquidity); !ok {
			return fmt.Errorf("invalid lending-liquidity %q", cfg.LendingLiquidity)
		}
	}
	if cfg.MarketImpactBps < 0 {
		return errors.New("market-impact-bps must not be negative")
	}
	for _, a := range cfg.Accounts {
		if a.Account == "" {
			return errors.New("sim account must be set")
		}
		if _, ok := sdkmath.NewIntFromString(a.Amount); !ok {
			return fmt.Errorf("invalid amount %q for account %s", a.Amount, a.Account)
		}
	}
	return nil
}
