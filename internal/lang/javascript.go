package lang

func init() {
	Register(&LanguageSpec{
		Language:       JavaScript,
		FileExtensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"arrow_function",
			"method_definition",
		},
		ClassNodeTypes:    []string{"class_declaration", "class"},
		ModuleNodeTypes:   []string{"program"},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"import_statement", "lexical_declaration", "variable_declaration", "export_statement"},
		ImportFromTypes:   []string{"import_statement", "export_statement"},
		PackageIndicators: []string{"package.json"},

		ScopeNodeTypes: []string{"class_declaration", "class"},
		IndexBasenames: []string{"index"},
	})
}
