package routescmder

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aidm5e/aidm/pkg/routing"
)

const showLongDesc string = `Show one category's full routing state.

Displays the category's memory slots with their conversation ids and
every channel and thread record with its assignment.

Examples:
  aidm routes show 123456789012345678`

const showShortDesc string = "Show one category in detail"

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <category-id>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runShow(args[0], configDir)
		},
	}

	return cmd
}

func runShow(categoryID, configDir string) error {
	store, err := openStore(configDir)
	if err != nil {
		return err
	}

	doc := store.Load()
	cat, ok := doc[routing.NormalizeID(categoryID)]
	if !ok {
		return fmt.Errorf("category %s not found in %s", categoryID, store.Path())
	}

	fmt.Printf("Category %s (%s)\n", categoryID, cat.Name)
	fmt.Printf("Default memory: %s\n\nMemories:\n", cat.DefaultMemory)

	slotNames := make([]string, 0, len(cat.MemoryThreads))
	for name := range cat.MemoryThreads {
		slotNames = append(slotNames, name)
	}
	sort.Strings(slotNames)
	for _, name := range slotNames {
		fmt.Printf("  %-20s -> %s\n", name, cat.MemoryThreads[name])
	}

	chIDs := make([]string, 0, len(cat.Channels))
	for id := range cat.Channels {
		chIDs = append(chIDs, id)
	}
	sort.Strings(chIDs)

	fmt.Printf("\nChannels:\n")
	for _, id := range chIDs {
		ch := cat.Channels[id]
		flag := ""
		if ch.AlwaysOn {
			flag = "  [always-on]"
		}
		fmt.Printf("  %-20s  #%-20s  memory=%s%s\n", id, ch.Name, orUnset(ch.MemoryName), flag)

		thIDs := make([]string, 0, len(ch.Threads))
		for tid := range ch.Threads {
			thIDs = append(thIDs, tid)
		}
		sort.Strings(thIDs)
		for _, tid := range thIDs {
			th := ch.Threads[tid]
			fmt.Printf("    %-18s  %-21s  memory=%s\n", tid, th.Name, orUnset(th.MemoryName))
		}
	}

	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "<unset>"
	}
	return s
}
