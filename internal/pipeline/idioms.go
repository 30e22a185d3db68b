package pipeline

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/lang"
	"github.com/codegraph-dev/codegraph/internal/parser"
)

// JavaScript predates class syntax, so a lot of real code builds types
// out of prototypes, object literals and assignment expressions. These
// extractors surface those shapes as first-class graph nodes.

func jsFamily(l lang.Language) bool {
	return l == lang.JavaScript || l == lang.TypeScript || l == lang.TSX
}

// idiomOwnedFunction reports whether a function node is named by an
// enclosing assignment or object literal rather than by itself.
func idiomOwnedFunction(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	switch parent.Kind() {
	case "assignment_expression":
		left := parent.ChildByFieldName("left")
		return left != nil && left.Kind() == "member_expression"
	case "pair":
		return true
	case "method_definition":
		return false
	}
	if node.Kind() == "method_definition" && parent.Kind() == "object" {
		return true
	}
	return false
}

func extractJSIdioms(ex *Extraction, root *tree_sitter.Node, source []byte) {
	extractPrototypeInheritance(ex, root, source)
	extractPrototypeMethods(ex, root, source)
	extractObjectLiteralMethods(ex, root, source)
	extractCommonJSExports(ex, root, source)
	extractES6Exports(ex, root, source)
	extractAssignmentFunctions(ex, root, source)
}

// extractPrototypeInheritance handles
//
//	Child.prototype = Object.create(Parent.prototype)
//	Child.prototype = new Parent()
//	Child.prototype.__proto__ = Parent.prototype
//
// recording Parent as a declared base of Child.
func extractPrototypeInheritance(ex *Extraction, root *tree_sitter.Node, source []byte) {
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() != "assignment_expression" {
			return true
		}
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left == nil || right == nil || left.Kind() != "member_expression" {
			return true
		}
		if parser.FieldText(left, "property", source) == "__proto__" {
			if child, parent := protoChild(left, source), prototypeOwner(right, source); child != "" && parent != "" {
				childQN := ex.ModuleQN + "." + child
				ex.Inherits[childQN] = append(ex.Inherits[childQN], parent)
			}
			return true
		}
		if parser.FieldText(left, "property", source) != "prototype" {
			return true
		}
		child := parser.FieldText(left, "object", source)
		if child == "" || strings.ContainsRune(child, '.') {
			return true
		}

		parent := ""
		switch right.Kind() {
		case "call_expression":
			if parser.FieldText(right, "function", source) == "Object.create" {
				if args := right.ChildByFieldName("arguments"); args != nil {
					for _, arg := range parser.NamedChildren(args) {
						parent = prototypeOwner(arg, source)
						break
					}
				}
			}
		case "new_expression":
			parent = parser.FieldText(right, "constructor", source)
		}
		if parent != "" {
			childQN := ex.ModuleQN + "." + child
			ex.Inherits[childQN] = append(ex.Inherits[childQN], parent)
		}
		return true
	})
}

// prototypeOwner returns X for an `X.prototype` member expression.
func prototypeOwner(node *tree_sitter.Node, source []byte) string {
	if node == nil || node.Kind() != "member_expression" {
		return ""
	}
	if parser.FieldText(node, "property", source) != "prototype" {
		return ""
	}
	return parser.FieldText(node, "object", source)
}

// protoChild returns X for the left side `X.prototype.__proto__`.
func protoChild(left *tree_sitter.Node, source []byte) string {
	owner := prototypeOwner(left.ChildByFieldName("object"), source)
	if strings.ContainsRune(owner, '.') {
		return ""
	}
	return owner
}

// extractPrototypeMethods handles X.prototype.m = function (...) {...},
// emitting a Method on class X.
func extractPrototypeMethods(ex *Extraction, root *tree_sitter.Node, source []byte) {
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() != "assignment_expression" {
			return true
		}
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left == nil || right == nil || left.Kind() != "member_expression" || !isFunctionValue(right) {
			return true
		}
		inner := left.ChildByFieldName("object")
		if inner == nil || inner.Kind() != "member_expression" {
			return true
		}
		if parser.FieldText(inner, "property", source) != "prototype" {
			return true
		}
		className := parser.FieldText(inner, "object", source)
		methodName := parser.FieldText(left, "property", source)
		if className == "" || methodName == "" {
			return true
		}

		classQN := ex.ModuleQN + "." + className
		qn := classQN + "." + methodName
		ex.addNode(graph.LabelMethod, map[string]any{
			"qualified_name": qn,
			"name":           methodName,
			"start_line":     safeRowToLine(node.StartPosition().Row),
			"end_line":       safeRowToLine(node.EndPosition().Row),
		})
		ex.addSymbol(qn, graph.LabelMethod)
		ex.addRel(graph.Ref(graph.LabelClass, classQN), graph.RelDefinesMethod, graph.Ref(graph.LabelMethod, qn), nil)
		return true
	})
}

// extractObjectLiteralMethods handles function-valued properties and
// shorthand methods of objects bound to a declared name:
//
//	const api = { list: function () {...}, create() {...} }
func extractObjectLiteralMethods(ex *Extraction, root *tree_sitter.Node, source []byte) {
	moduleRef := graph.Ref(graph.LabelModule, ex.ModuleQN)
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() != "variable_declarator" {
			return true
		}
		value := node.ChildByFieldName("value")
		objName := parser.FieldText(node, "name", source)
		if value == nil || value.Kind() != "object" || objName == "" {
			return true
		}

		for _, entry := range parser.NamedChildren(value) {
			var fnName string
			var fn *tree_sitter.Node
			switch entry.Kind() {
			case "pair":
				v := entry.ChildByFieldName("value")
				if v == nil || !isFunctionValue(v) {
					continue
				}
				fnName = parser.FieldText(entry, "key", source)
				fn = v
			case "method_definition":
				fnName = parser.FieldText(entry, "name", source)
				fn = entry
			default:
				continue
			}
			if fnName == "" {
				continue
			}
			qn := ex.ModuleQN + "." + objName + "." + fnName
			ex.addNode(graph.LabelFunction, map[string]any{
				"qualified_name": qn,
				"name":           fnName,
				"start_line":     safeRowToLine(fn.StartPosition().Row),
				"end_line":       safeRowToLine(fn.EndPosition().Row),
			})
			ex.addSymbol(qn, graph.LabelFunction)
			ex.addRel(moduleRef, graph.RelDefines, graph.Ref(graph.LabelFunction, qn), nil)
		}
		return true
	})
}

// extractCommonJSExports handles module.exports and exports assignments,
// emitting EXPORTS edges to symbols defined in this file.
func extractCommonJSExports(ex *Extraction, root *tree_sitter.Node, source []byte) {
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() != "assignment_expression" {
			return true
		}
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left == nil || right == nil || left.Kind() != "member_expression" {
			return true
		}
		leftText := parser.NodeText(left, source)

		switch {
		case leftText == "module.exports" || leftText == "exports":
			switch right.Kind() {
			case "identifier":
				ex.markExport(parser.NodeText(right, source))
			case "object":
				for _, entry := range parser.NamedChildren(right) {
					switch entry.Kind() {
					case "pair":
						ex.markExport(parser.FieldText(entry, "key", source))
					case "shorthand_property_identifier":
						ex.markExport(parser.NodeText(entry, source))
					}
				}
			}
		case strings.HasPrefix(leftText, "module.exports.") || strings.HasPrefix(leftText, "exports."):
			name := parser.FieldText(left, "property", source)
			if name == "" {
				return true
			}
			if isFunctionValue(right) {
				qn := ex.ModuleQN + "." + name
				ex.addNode(graph.LabelFunction, map[string]any{
					"qualified_name": qn,
					"name":           name,
					"start_line":     safeRowToLine(node.StartPosition().Row),
					"end_line":       safeRowToLine(node.EndPosition().Row),
				})
				ex.addSymbol(qn, graph.LabelFunction)
				ex.addRel(graph.Ref(graph.LabelModule, ex.ModuleQN), graph.RelDefines, graph.Ref(graph.LabelFunction, qn), nil)
			}
			ex.markExport(name)
		}
		return true
	})
}

// extractES6Exports handles export clauses and export default.
func extractES6Exports(ex *Extraction, root *tree_sitter.Node, source []byte) {
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() != "export_statement" {
			return true
		}
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			name := parser.FieldText(decl, "name", source)
			if name == "" {
				// Lexical declarations hold the name on declarators.
				for _, child := range parser.NamedChildren(decl) {
					if child.Kind() == "variable_declarator" {
						name = parser.FieldText(child, "name", source)
						break
					}
				}
			}
			ex.markExport(name)
			return true
		}
		for _, child := range parser.NamedChildren(node) {
			switch child.Kind() {
			case "export_clause":
				for _, spec := range parser.NamedChildren(child) {
					if spec.Kind() == "export_specifier" {
						ex.markExport(parser.FieldText(spec, "name", source))
					}
				}
			case "identifier":
				// export default X
				ex.markExport(parser.NodeText(child, source))
			}
		}
		return true
	})
}

// extractAssignmentFunctions handles obj.handler = () => {...} where the
// receiver is not a prototype, emitting a named Function.
func extractAssignmentFunctions(ex *Extraction, root *tree_sitter.Node, source []byte) {
	moduleRef := graph.Ref(graph.LabelModule, ex.ModuleQN)
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() != "assignment_expression" {
			return true
		}
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left == nil || right == nil || left.Kind() != "member_expression" || !isFunctionValue(right) {
			return true
		}
		leftText := parser.NodeText(left, source)
		if strings.Contains(leftText, "prototype") ||
			strings.HasPrefix(leftText, "module.exports") || strings.HasPrefix(leftText, "exports.") {
			return true
		}
		name := parser.FieldText(left, "property", source)
		if name == "" {
			return true
		}

		qn := ex.ModuleQN + "." + strings.ReplaceAll(leftText, ".", "_")
		ex.addNode(graph.LabelFunction, map[string]any{
			"qualified_name": qn,
			"name":           name,
			"start_line":     safeRowToLine(node.StartPosition().Row),
			"end_line":       safeRowToLine(node.EndPosition().Row),
		})
		ex.addSymbol(qn, graph.LabelFunction)
		ex.addRel(moduleRef, graph.RelDefines, graph.Ref(graph.LabelFunction, qn), nil)
		return true
	})
}

func isFunctionValue(node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "function_expression", "function", "arrow_function", "generator_function":
		return true
	}
	return false
}

// markExport emits an EXPORTS edge when the exported name resolves to a
// symbol extracted from this file.
func (ex *Extraction) markExport(name string) {
	if name == "" {
		return
	}
	qn := ex.ModuleQN + "." + name
	for _, sym := range ex.Symbols {
		if sym.QualifiedName == qn {
			ex.addRel(graph.Ref(graph.LabelModule, ex.ModuleQN),
				graph.RelExports, graph.Ref(sym.Kind, qn), nil)
			return
		}
	}
}
