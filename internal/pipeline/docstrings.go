package pipeline

import (
	"bytes"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

// linePrefixes maps a language to its doc-comment line prefix.
var linePrefixes = map[lang.Language]string{
	lang.Rust:       "///",
	lang.CSharp:     "///",
	lang.Lua:        "---",
	lang.Go:         "//",
	lang.CPP:        "//",
	lang.JavaScript: "//",
	lang.TypeScript: "//",
	lang.TSX:        "//",
	lang.Java:       "//",
	lang.Scala:      "//",
	lang.Kotlin:     "//",
	lang.PHP:        "//",
}

// blockDelims holds a language family's block-comment markers.
type blockDelims struct {
	open, close string
}

// extractDocstring returns the documentation attached to a definition.
// Python reads the PEP 257 body string; every other language scans the
// lines directly above the definition.
func extractDocstring(node *tree_sitter.Node, source []byte, language lang.Language) string {
	if language == lang.Python {
		return pythonDocstring(node, source)
	}
	return precedingComment(source, int(node.StartPosition().Row), language)
}

// pythonDocstring reads the first body statement when it is a bare
// string literal.
func pythonDocstring(node *tree_sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return cleanPythonDocstring(parser.NodeText(str, source))
}

// cleanPythonDocstring strips triple-quote delimiters and dedents
// continuation lines.
func cleanPythonDocstring(s string) string {
	for _, delim := range []string{`"""`, `'''`} {
		if strings.HasPrefix(s, delim) && strings.HasSuffix(s, delim) && len(s) >= 2*len(delim) {
			s = s[len(delim) : len(s)-len(delim)]
			break
		}
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= 1 {
		return strings.TrimSpace(s)
	}

	minIndent := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		if indent := len(line) - len(trimmed); minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= minIndent {
				lines[i] = lines[i][minIndent:]
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// precedingComment reads the comment block ending on the line directly
// above startLine.
func precedingComment(source []byte, startLine int, language lang.Language) string {
	lines := bytes.Split(source, []byte("\n"))
	if startLine <= 0 || startLine > len(lines) {
		return ""
	}

	lineIdx := startLine - 1
	trimmed := strings.TrimSpace(string(lines[lineIdx]))
	switch {
	case trimmed == "":
		return ""
	case strings.HasSuffix(trimmed, "*/"):
		return blockComment(lines, lineIdx, blockDelims{open: "/*", close: "*/"})
	case language == lang.Lua && strings.HasSuffix(trimmed, "]]"):
		return blockComment(lines, lineIdx, blockDelims{open: "--[[", close: "]]"})
	}
	if prefix := linePrefixes[language]; prefix != "" && strings.HasPrefix(trimmed, prefix) {
		return lineComments(lines, lineIdx, prefix)
	}
	return ""
}

// blockComment scans backwards from the closing line to the opening
// delimiter and strips the block's decoration.
func blockComment(lines [][]byte, endIdx int, delims blockDelims) string {
	startIdx := endIdx
	for startIdx >= 0 && !strings.Contains(string(lines[startIdx]), delims.open) {
		startIdx--
	}
	if startIdx < 0 {
		return ""
	}

	var block []string
	for i := startIdx; i <= endIdx; i++ {
		block = append(block, string(lines[i]))
	}
	text := strings.TrimSpace(strings.Join(block, "\n"))

	if idx := strings.Index(text, delims.open); idx >= 0 {
		text = text[idx+len(delims.open):]
		// Javadoc-style openers add a second star.
		text = strings.TrimPrefix(text, "*")
	}
	if idx := strings.LastIndex(text, delims.close); idx >= 0 {
		text = text[:idx]
	}

	cleaned := strings.Split(text, "\n")
	for i, line := range cleaned {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "* ")
		cleaned[i] = strings.TrimPrefix(line, "*")
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// lineComments collects the consecutive prefixed lines ending at endIdx.
func lineComments(lines [][]byte, endIdx int, prefix string) string {
	var collected []string
	for idx := endIdx; idx >= 0; idx-- {
		trimmed := strings.TrimSpace(string(lines[idx]))
		if !strings.HasPrefix(trimmed, prefix) {
			break
		}
		content := strings.TrimPrefix(strings.TrimPrefix(trimmed, prefix), " ")
		collected = append(collected, content)
	}
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return strings.TrimSpace(strings.Join(collected, "\n"))
}
