package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

var astCmd = &cobra.Command{
	Use:   "ast <file>",
	Short: "Print the tree-sitter syntax tree of a source file",
	Long:  "Debugging aid for language support: parses one file and dumps its named syntax tree with node kinds, fields and source snippets.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAST,
}

func runAST(cmd *cobra.Command, args []string) error {
	path := args[0]
	language, ok := lang.LanguageForExtension(filepath.Ext(path))
	if !ok {
		return fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tree, err := parser.Parse(language, source)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	printTree(tree.RootNode(), source, 0)
	return nil
}

func printTree(node *tree_sitter.Node, source []byte, depth int) {
	snippet := parser.NodeText(node, source)
	if idx := strings.IndexByte(snippet, '\n'); idx >= 0 {
		snippet = snippet[:idx]
	}
	if len(snippet) > 60 {
		snippet = snippet[:60] + "..."
	}
	row, col := parser.Position(node)
	fmt.Printf("%s%s [%d:%d] %q\n", strings.Repeat("  ", depth), node.Kind(), row, col, snippet)

	for _, child := range parser.NamedChildren(node) {
		printTree(child, source, depth+1)
	}
}
