package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/pipeline"
	"github.com/codegraph-dev/codegraph/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a repository and re-index on changes",
	Long:  "Indexes the repository, then polls for file changes and re-indexes incrementally. Unchanged files are skipped via content hashes.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	repoPath, err := resolveRepoPath(args)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(repoPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}

	sink, err := graph.Open(dbPath, pipeline.ProjectNameFromPath(repoPath))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer sink.Close()

	reindex := func(ctx context.Context) error {
		return pipeline.New(ctx, sink, repoPath).Run()
	}
	if err := reindex(cmd.Context()); err != nil {
		return fmt.Errorf("initial index: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Watching %s for changes\n", repoPath)

	watcher.New(repoPath, reindex).Run(cmd.Context())
	return nil
}
