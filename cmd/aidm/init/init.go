// Package initcmder provides the init command for initializing a local
// .aidm directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aidm5e/aidm/pkg/config"
)

const (
	dirName = ".aidm"
)

const initLongDesc string = `Initialize a new .aidm/ directory in the current working directory.

Creates a local .aidm/ directory with a default config.toml. The local
directory takes precedence over ~/.aidm/ for configuration, the routing
document and the transcript database.

Secrets (AIDM_BOT_TOKEN, AIDM_ASSISTANT_API_KEY) are never written to
config.toml; set them in the environment.

Examples:
  aidm init`

const initShortDesc string = "Initialize a local .aidm/ directory"

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit()
		},
	}

	return cmd
}

func runInit() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .aidm directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("preparing config: %w", err)
	}
	if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}

	fmt.Printf("Initialized .aidm directory: %s\n", dir)
	fmt.Printf("Wrote default config: %s\n", filepath.Join(dir, "config.toml"))
	return nil
}
