package cli

import (
	"fmt"

	"github.com/kepfinance/kep-vault/internal/config"
	"github.com/kepfinance/kep-vault/internal/db"
	"github.com/spf13/cobra"
)

// ShowHealthCmd prints the latest persisted vault health snapshot and the
// most recent operation events.
// Usage: ./kep-vault show-health --config config.yml
func ShowHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-health",
		Short: "Show the latest persisted vault health snapshot",
		Args:  cobra.ExactArgs(0),
		RunE:  showHealth,
	}

	cmd.Flags().Int64("events", 10, "Number of recent operation events to print")

	return cmd
}

func showHealth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	eventLimit, err := cmd.Flags().GetInt64("events")
	if err != nil {
		return err
	}

	var dbClient db.DbInterface
	dbClient, err = db.New(ctx, cfg.Db)
	if err != nil {
		return err
	}

	snapshot, err := dbClient.GetLatestVaultSnapshot(ctx)
	if db.IsNotFoundError(err) {
		fmt.Println("No vault snapshot recorded yet")
	} else if err != nil {
		return err
	} else {
		fmt.Printf("Snapshot at %s status=%s\n", snapshot.Timestamp, snapshot.Status)
		fmt.Printf("  equity_value:   %s\n", snapshot.Health.EquityValue)
		fmt.Printf("  debt_ratio:     %s\n", snapshot.Health.DebtRatio)
		fmt.Printf("  delta:          %s\n", snapshot.Health.Delta)
		fmt.Printf("  lrt_amt:        %s\n", snapshot.Health.LrtAmt)
		fmt.Printf("  sv_token_value: %s\n", snapshot.Health.SvTokenValue)
	}

	events, err := dbClient.GetRecentOperationEvents(ctx, eventLimit)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Printf("%s %s caller=%s status=%s\n", ev.Timestamp, ev.EventType, ev.Caller, ev.Status)
	}

	return nil
}
