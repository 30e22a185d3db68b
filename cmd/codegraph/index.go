package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/pipeline"
)

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository into the code graph",
	Long:  "Parses source files with tree-sitter, extracts definitions, imports, dependencies and inheritance, and writes the graph to the SQLite database. Reruns skip files whose content hash is unchanged.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	repoPath, err := resolveRepoPath(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(repoPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
	}

	sink, err := graph.Open(dbPath, pipeline.ProjectNameFromPath(repoPath))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sink.Close()

	p := pipeline.New(cmd.Context(), sink, repoPath)
	if err := p.Run(); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	nodes, _ := sink.CountNodes()
	edges, _ := sink.CountEdges()
	fmt.Printf("Indexed %s: %d nodes, %d edges in %s\n", repoPath, nodes, edges, time.Since(start).Round(time.Millisecond))
	return nil
}
