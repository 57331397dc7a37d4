// Package configcmder provides the config command for managing
// persistent aidm configuration stored in the .aidm/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent aidm configuration.

Configuration is stored as config.toml in the .aidm/ directory and
provides default values for the bot. Environment variables with the
AIDM_ prefix always take precedence over config file values, and the
two secrets (AIDM_BOT_TOKEN, AIDM_ASSISTANT_API_KEY) can only come from
the environment.

Keys use dotted notation matching the TOML section structure:
  bot.guild_id, bot.out_of_game_channel,
  assistant.base_url, assistant.assistant_id,
  assistant.poll_interval_seconds, assistant.run_timeout_seconds,
  api.enabled, api.listen,
  storage.routes_path, storage.transcripts_path

Use subcommands to get, set, or list configuration values:
  aidm config set <key> <value>    Set a configuration value
  aidm config get <key>            Get a configuration value
  aidm config list                 List all configuration values

Examples:
  aidm config set bot.out_of_game_channel telldm
  aidm config set assistant.assistant_id asst_abc123
  aidm config get api.listen
  aidm config list`

const configShortDesc string = "Manage persistent aidm configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
