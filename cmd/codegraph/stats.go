package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/pipeline"
)

var statsCmd = &cobra.Command{
	Use:   "stats [path]",
	Short: "Show node and edge counts for an indexed repository",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	repoPath, err := resolveRepoPath(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(repoPath)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database not found: %s (run 'codegraph index' first)", dbPath)
	}

	sink, err := graph.Open(dbPath, pipeline.ProjectNameFromPath(repoPath))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sink.Close()

	nodeCounts, err := sink.NodeCountsByLabel()
	if err != nil {
		return err
	}
	edgeCounts, err := sink.EdgeCountsByType()
	if err != nil {
		return err
	}

	fmt.Println("Nodes:")
	printCounts(nodeCounts)
	fmt.Println("Edges:")
	printCounts(edgeCounts)
	return nil
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		keys = append(keys, k)
		total += n
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, counts[k])
	}
	fmt.Printf("  %-24s %d\n", "total", total)
}
