// Package aidmcmder
package aidmcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/aidm5e/aidm/cmd/aidm/config"
	initcmder "github.com/aidm5e/aidm/cmd/aidm/init"
	routescmder "github.com/aidm5e/aidm/cmd/aidm/routes"
	servecmder "github.com/aidm5e/aidm/cmd/aidm/serve"
	versioncmder "github.com/aidm5e/aidm/cmd/version"
)

const aidmLongDesc string = `aidm is a Discord dungeon-master bot backed by a hosted assistant.

It routes messages and slash commands to per-category conversation
memories, keeping the routing document in sync with live Discord state.

Common commands:
  aidm init       Scaffold the .aidm/ directory and config
  aidm serve      Run the bot and the status API
  aidm routes     Inspect the routing document
  aidm config     Manage persistent configuration`

const aidmShortDesc string = "aidm - Discord DM bot with routed memories"

func NewAidmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aidm",
		Short: aidmShortDesc,
		Long:  aidmLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Path to the .aidm/ directory (default: ./.aidm or ~/.aidm)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(routescmder.NewRoutesCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
