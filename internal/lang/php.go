package lang

func init() {
	Register(&LanguageSpec{
		Language:       PHP,
		FileExtensions: []string{".php"},
		FunctionNodeTypes: []string{
			"function_definition",
			"method_declaration",
			"anonymous_function",
			"arrow_function",
			"function_static_declaration",
		},
		ClassNodeTypes: []string{
			"class_declaration",
			"interface_declaration",
			"trait_declaration",
			"enum_declaration",
		},
		ModuleNodeTypes: []string{"program"},
		CallNodeTypes: []string{
			"function_call_expression",
			"member_call_expression",
			"scoped_call_expression",
			"nullsafe_member_call_expression",
		},
		ImportNodeTypes:   []string{"namespace_use_declaration"},
		ImportFromTypes:   []string{"namespace_use_declaration"},
		PackageIndicators: []string{"composer.json"},

		ScopeNodeTypes: []string{
			"class_declaration",
			"interface_declaration",
			"trait_declaration",
			"enum_declaration",
			"namespace_definition",
		},
		DecoratorNodeTypes: []string{"attribute_group"},
	})
}
