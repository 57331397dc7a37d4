// Package routescmder provides the routes command for inspecting the
// routing document without running the bot.
package routescmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aidm5e/aidm/pkg/config"
	"github.com/aidm5e/aidm/pkg/dotdir"
	"github.com/aidm5e/aidm/pkg/logger"
	"github.com/aidm5e/aidm/pkg/routing"
)

const routesLongDesc string = `Inspect the routing document.

The routing document maps Discord categories, channels and threads to
assistant conversation memories. Use subcommands to list categories or
show one category's full routing state:
  aidm routes list               List all routed categories
  aidm routes show <category>    Show one category in detail`

const routesShortDesc string = "Inspect the routing document"

func NewRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: routesShortDesc,
		Long:  routesLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

// openStore resolves the routing document path the same way serve does
// and opens a read-only store over it.
func openStore(configDir string) (*routing.Store, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	cfg := config.FromViper(v)

	path := cfg.Storage.RoutesPath
	if path == "" {
		path, err = dotdir.NewManager().RoutesPath(configDir)
		if err != nil {
			return nil, fmt.Errorf("resolving routes path: %w", err)
		}
	}

	return routing.NewStore(path, logger.Nop()), nil
}
