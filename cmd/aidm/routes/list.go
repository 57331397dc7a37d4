package routescmder

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

const listLongDesc string = `List all routed categories.

Shows each category's id, name, memory slot count and channel count,
plus document-wide totals.

Examples:
  aidm routes list`

const listShortDesc string = "List all routed categories"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(configDir)
		},
	}

	return cmd
}

func runList(configDir string) error {
	store, err := openStore(configDir)
	if err != nil {
		return err
	}

	doc := store.Load()
	if len(doc) == 0 {
		fmt.Printf("No categories routed yet (%s).\n", store.Path())
		return nil
	}

	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("Routing document: %s\n\n", store.Path())
	for _, id := range ids {
		cat := doc[id]
		fmt.Printf("%-20s  %-24s  %d memories, %d channels\n",
			id, cat.Name, len(cat.MemoryThreads), len(cat.Channels))
	}

	stats := doc.Stats()
	fmt.Printf("\n%d categories, %d channels, %d threads, %d always-on, %d unassigned\n",
		stats.Categories, stats.Channels, stats.Threads, stats.AlwaysOn, stats.UnassignedRefs)
	return nil
}
