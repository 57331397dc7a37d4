package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidm5e/aidm/pkg/config"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file stored
in the .aidm/ directory. Keys use dotted notation matching the TOML
section structure. The secrets (bot token, assistant API key) cannot be
set here; they only come from the environment.

Valid keys:
  bot.guild_id, bot.out_of_game_channel, bot.summary_channel,
  assistant.base_url, assistant.assistant_id,
  assistant.poll_interval_seconds, assistant.run_timeout_seconds,
  api.enabled, api.listen,
  storage.routes_path, storage.transcripts_path

Examples:
  aidm config set bot.out_of_game_channel telldm
  aidm config set assistant.run_timeout_seconds 180`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(args[0], args[1], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runSet(key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Printf("Set %s = %q in %s\n", key, value, cfger.GetTarget())
	return nil
}
