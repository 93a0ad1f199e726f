package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/curiahq/curia/internal/config"
	"github.com/curiahq/curia/internal/policy"
	"github.com/curiahq/curia/internal/printer"
	"github.com/curiahq/curia/internal/render"
	"github.com/curiahq/curia/pkg/ledger"
)

var cooldownCmd = &cobra.Command{
	Use:   "cooldown <member>",
	Short: "Show a member's resubmission cooldown",
	Args:  cobra.ExactArgs(1),
	RunE:  runCooldown,
}

func init() {
	rootCmd.AddCommand(cooldownCmd)
}

func runCooldown(cmd *cobra.Command, args []string) error {
	memberID := args[0]

	store, err := newStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.Error("Failed to load configuration", err.Error(),
			[]string{"pass --config <path>", "export CURIA_CONFIG_PATH=<path>"})
	}

	p, err := store.GetPortfolio(context.Background(), memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			printer.Println(render.CooldownStatus(0, 0))
			return nil
		}
		return err
	}

	if p.RejectedAtMs == 0 {
		printer.Println(render.CooldownStatus(0, 0))
		return nil
	}

	rejectedAt := time.UnixMilli(p.RejectedAtMs)
	days, hours := policy.Remaining(rejectedAt, time.Now(), cfg.Cooldown())
	printer.Println(render.CooldownStatus(days, hours))
	return nil
}
