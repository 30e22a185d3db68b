package lang

func init() {
	Register(&LanguageSpec{
		Language:       CSharp,
		FileExtensions: []string{".cs"},
		FunctionNodeTypes: []string{
			"method_declaration",
			"constructor_declaration",
			"destructor_declaration",
			"local_function_statement",
			"anonymous_method_expression",
			"lambda_expression",
		},
		ClassNodeTypes: []string{
			"class_declaration",
			"struct_declaration",
			"enum_declaration",
			"interface_declaration",
			"record_declaration",
		},
		ModuleNodeTypes:   []string{"compilation_unit"},
		CallNodeTypes:     []string{"invocation_expression"},
		ImportNodeTypes:   []string{"using_directive"},
		ImportFromTypes:   []string{"using_directive"},
		PackageIndicators: []string{"*.csproj", "*.sln"},

		ScopeNodeTypes: []string{
			"class_declaration",
			"struct_declaration",
			"enum_declaration",
			"interface_declaration",
			"record_declaration",
			"namespace_declaration",
		},
		DecoratorNodeTypes: []string{"attribute_list"},
	})
}
