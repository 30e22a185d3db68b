package graph

// Node labels form a closed set; each label has exactly one unique key.
const (
	LabelProject              = "Project"
	LabelPackage              = "Package"
	LabelFolder               = "Folder"
	LabelFile                 = "File"
	LabelModule               = "Module"
	LabelClass                = "Class"
	LabelInterface            = "Interface"
	LabelEnum                 = "Enum"
	LabelType                 = "Type"
	LabelUnion                = "Union"
	LabelFunction             = "Function"
	LabelMethod               = "Method"
	LabelExternalPackage      = "ExternalPackage"
	LabelModuleInterface      = "ModuleInterface"
	LabelModuleImplementation = "ModuleImplementation"
)

// Relationship types.
const (
	RelContainsPackage    = "CONTAINS_PACKAGE"
	RelContainsFolder     = "CONTAINS_FOLDER"
	RelContainsFile       = "CONTAINS_FILE"
	RelContainsModule     = "CONTAINS_MODULE"
	RelDefines            = "DEFINES"
	RelDefinesMethod      = "DEFINES_METHOD"
	RelImports            = "IMPORTS"
	RelExports            = "EXPORTS"
	RelInherits           = "INHERITS"
	RelOverrides          = "OVERRIDES"
	RelDependsOnExternal  = "DEPENDS_ON_EXTERNAL"
	RelImplementsModule   = "IMPLEMENTS_MODULE"
	RelExportsModule      = "EXPORTS_MODULE"
)

// Property keys shared across the pipeline and sink.
const (
	KeyQualifiedName = "qualified_name"
	KeyPath          = "path"
	KeyName          = "name"
	KeyPackageName   = "package_name"
)

// KeyForLabel returns the unique property key for a node label.
// Code entities are keyed by qualified name, filesystem nodes by path,
// the project root by name. External packages get their own key so a
// package named after the project stays a separate node.
func KeyForLabel(label string) string {
	switch label {
	case LabelProject:
		return KeyName
	case LabelExternalPackage:
		return KeyPackageName
	case LabelFile, LabelFolder:
		return KeyPath
	default:
		return KeyQualifiedName
	}
}
