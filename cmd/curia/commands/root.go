// Package commands implements the curia CLI: operator tooling for
// inspecting and unsticking community promotion governance.
package commands

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/curiahq/curia/internal/collab"
	"github.com/curiahq/curia/internal/config"
	"github.com/curiahq/curia/internal/governance"
	"github.com/curiahq/curia/internal/printer"
	"github.com/curiahq/curia/pkg/ledger"
)

var (
	version string
	commit  string
	date    string

	communityName string
	configPath    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "curia",
	Short: "Curia - community promotion governance",
	Long: `Curia runs role-promotion governance for chat communities: members
submit portfolios, reviewers triage them, and the community votes.

The CLI talks directly to the Redis ledger the curiad daemon uses, so it
works even while a promotion is stuck mid-flight.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&communityName, "community", os.Getenv("CURIA_COMMUNITY"),
		"Target community (defaults to CURIA_COMMUNITY)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(),
		"Path to curia.yml (defaults to CURIA_CONFIG_PATH)")
}

func defaultConfigPath() string {
	if p := os.Getenv("CURIA_CONFIG_PATH"); p != "" {
		return p
	}
	return "/etc/curia/curia.yml"
}

// newStore connects to the ledger for the selected community.
func newStore() (*ledger.Client, error) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, printer.Error("REDIS_URL not set",
			"The CLI needs the same Redis the curiad daemon uses.",
			[]string{"export REDIS_URL=redis://localhost:6379"})
	}
	if communityName == "" {
		return nil, printer.Error("No community selected",
			"Every curia command operates on one community's ledger.",
			[]string{"pass --community <name>", "export CURIA_COMMUNITY=<name>"})
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, printer.Error("Invalid REDIS_URL", err.Error(), nil)
	}

	return ledger.NewClient(redisOpts, communityName)
}

// newService builds a full governance service for commands that perform
// transitions (retry-promotion, close).
func newService(store *ledger.Client) (*governance.Service, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error("Failed to load configuration", err.Error(),
			[]string{"pass --config <path>", "export CURIA_CONFIG_PATH=<path>"})
	}

	gatewayURL := os.Getenv("BOT_GATEWAY_URL")
	if gatewayURL == "" {
		return nil, printer.Error("BOT_GATEWAY_URL not set",
			"Role grants go through the bot gateway.",
			[]string{"export BOT_GATEWAY_URL=http://localhost:9090"})
	}

	return governance.NewService(
		store,
		cfg,
		collab.NewRedisMessenger(store),
		collab.NewHTTPRoleGranter(gatewayURL),
		collab.NewRedisNotifier(store),
	), nil
}
