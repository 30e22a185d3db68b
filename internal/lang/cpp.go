package lang

func init() {
	Register(&LanguageSpec{
		Language:       CPP,
		FileExtensions: []string{".cpp", ".h", ".hpp", ".cc", ".cxx", ".hxx", ".hh", ".ixx", ".cppm", ".ccm"},
		FunctionNodeTypes: []string{
			"function_definition",
			"template_declaration",
			"lambda_expression",
		},
		ClassNodeTypes: []string{
			"class_specifier",
			"struct_specifier",
			"union_specifier",
			"enum_specifier",
		},
		ModuleNodeTypes: []string{"translation_unit"},
		CallNodeTypes: []string{
			"call_expression",
			"new_expression",
			"delete_expression",
		},
		ImportNodeTypes:   []string{"preproc_include", "template_function", "declaration"},
		ImportFromTypes:   []string{"preproc_include", "template_function", "declaration"},
		PackageIndicators: []string{"CMakeLists.txt", "Makefile", "conanfile.txt"},

		ScopeNodeTypes: []string{
			"class_specifier",
			"struct_specifier",
			"union_specifier",
			"enum_specifier",
			"namespace_definition",
		},
	})
}
