package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kepfinance/kep-vault/internal/api"
	"github.com/kepfinance/kep-vault/internal/clients/chain/sim"
	"github.com/kepfinance/kep-vault/internal/config"
	"github.com/kepfinance/kep-vault/internal/db"
	dbmodel "github.com/kepfinance/kep-vault/internal/db/model"
	"github.com/kepfinance/kep-vault/internal/observability/metrics"
	"github.com/kepfinance/kep-vault/internal/observability/tracing"
	"github.com/kepfinance/kep-vault/internal/queue"
	"github.com/kepfinance/kep-vault/internal/services"
	"github.com/kepfinance/kep-vault/internal/types"
	"github.com/kepfinance/kep-vault/internal/vault"
)

const healthSnapshotInterval = time.Minute

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the vault API server against the simulated chain",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	err = dbmodel.Setup(ctx, &cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up vault db model")
	}

	// create new db client
	var dbClient db.DbInterface
	dbClient, err = db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	dbClient = db.NewDbWithMetrics(dbClient)

	qm, err := queue.NewQueueManager(&cfg.Queue)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating queue manager")
	}

	world, store, err := buildSimVault(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error while building simulated chain")
	}

	v := vault.New(store, world.Authority(), world)
	service := services.NewService(cfg, v, dbClient, qm)

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	service.StartHealthSnapshotPoller(ctx, healthSnapshotInterval)

	server := api.New(&cfg.API, service)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("error while shutting down api server")
		}
		service.Shutdown(shutdownCtx)
	}()

	return server.Start()
}

// buildSimVault creates the deterministic chain world from the sim section
// of the config and wires the vault's store against it.
func buildSimVault(cfg *config.Config) (*sim.World, *vault.Store, error) {
	world := sim.NewWorld(time.Now)

	for _, t := range cfg.Sim.Tokens {
		if err := world.CreateToken(t.Symbol, t.Decimals); err != nil {
			return nil, nil, err
		}
		if t.PriceUsd != "" {
			price, err := config.ParseFixedPoint(t.PriceUsd)
			if err != nil {
				return nil, nil, err
			}
			world.SetPrice(t.Symbol, price)
		}
	}
	if err := world.CreateToken(cfg.Vault.ShareSymbol, 18); err != nil {
		return nil, nil, err
	}
	world.SetMarketImpactBps(cfg.Sim.MarketImpactBps)

	for _, a := range cfg.Sim.Accounts {
		amt, ok := sdkmath.NewIntFromString(a.Amount)
		if !ok {
			return nil, nil, fmt.Errorf("invalid sim account amount %q", a.Amount)
		}
		if a.Token == "" {
			world.FundNative(a.Account, amt)
			continue
		}
		if err := world.FundToken(a.Token, a.Account, amt); err != nil {
			return nil, nil, err
		}
	}

	if cfg.Sim.LendingLiquidity != "" {
		liquidity, _ := sdkmath.NewIntFromString(cfg.Sim.LendingLiquidity)
		if err := world.InitLending(cfg.Vault.TokenBSymbol, liquidity); err != nil {
			return nil, nil, err
		}
	}

	keeperSelectors := []string{
		vault.SelectorRebalanceAdd,
		vault.SelectorRebalanceRemove,
		vault.SelectorCompound,
		vault.SelectorEmergencyPause,
		vault.SelectorEmergencyRepay,
		vault.SelectorEmergencyBorrow,
		vault.SelectorEmergencyResume,
		vault.SelectorEmergencyClose,
		vault.SelectorStatusOverride,
		vault.SelectorSetter,
	}
	for _, keeper := range cfg.Sim.Keepers {
		for _, selector := range keeperSelectors {
			world.GrantRole(keeper, selector)
		}
	}

	params, err := vaultParamsFromConfig(&cfg.Vault)
	if err != nil {
		return nil, nil, err
	}

	collab := vault.Collaborators{
		Tokens: vault.Tokens{
			Lrt:    world.Token(cfg.Vault.LrtSymbol),
			Wnt:    world.WrappedNative(cfg.Vault.WntSymbol),
			Lst:    world.Token(cfg.Vault.LstSymbol),
			TokenB: world.Token(cfg.Vault.TokenBSymbol),
			Reward: world.Token(cfg.Vault.RewardSymbol),
		},
		Lending: world.Lending(),
		Oracle:  world.Oracle(),
		Router:  world.Router(),
		Shares:  world.ShareToken(cfg.Vault.ShareSymbol),
		Native:  world.NativeBank(),
	}

	store := vault.NewStore(cfg.Vault.VaultAccount, cfg.Vault.Treasury, collab, params, time.Now)
	return world, store, nil
}

func vaultParamsFromConfig(cfg *config.VaultConfig) (vault.Params, error) {
	var firstErr error
	parse := func(name, raw string) sdkmath.Int {
		val, err := config.ParseFixedPoint(raw)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", name, err)
		}
		return val
	}

	params := vault.Params{
		Leverage:               parse("leverage", cfg.Leverage),
		Delta:                  types.DeltaStrategy(cfg.Delta),
		FeePerSecond:           parse("fee-per-second", cfg.FeePerSecond),
		DebtRatioStepThreshold: cfg.DebtRatioStepThreshold,
		DebtRatioLowerLimit:    parse("debt-ratio-lower-limit", cfg.DebtRatioLowerLimit),
		DebtRatioUpperLimit:    parse("debt-ratio-upper-limit", cfg.DebtRatioUpperLimit),
		DeltaLowerLimit:        parse("delta-lower-limit", cfg.DeltaLowerLimit),
		DeltaUpperLimit:        parse("delta-upper-limit", cfg.DeltaUpperLimit),
		MinVaultSlippage:       cfg.MinVaultSlippageBps,
		SwapSlippage:           cfg.SwapSlippageBps,
		MinAssetValue:          parse("min-asset-value", cfg.MinAssetValue),
		MaxAssetValue:          parse("max-asset-value", cfg.MaxAssetValue),
	}
	return params, firstErr
}
