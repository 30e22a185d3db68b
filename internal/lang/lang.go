package lang

// Language represents a supported programming language.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Go         Language = "go"
	Rust       Language = "rust"
	Java       Language = "java"
	CPP        Language = "cpp"
	CSharp     Language = "c-sharp"
	PHP        Language = "php"
	Lua        Language = "lua"
	Scala      Language = "scala"
	Kotlin     Language = "kotlin"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{Python, JavaScript, TypeScript, TSX, Go, Rust, Java, CPP, CSharp, PHP, Lua, Scala, Kotlin}
}

// LanguageSpec defines the tree-sitter node types and naming rules for a
// language. Specs are constant configuration, loaded once at process start.
type LanguageSpec struct {
	Language          Language
	FileExtensions    []string
	FunctionNodeTypes []string
	ClassNodeTypes    []string
	ModuleNodeTypes   []string
	CallNodeTypes     []string
	ImportNodeTypes   []string
	ImportFromTypes   []string
	PackageIndicators []string

	// ScopeNodeTypes are ancestor node kinds that contribute a name segment
	// when building a nested qualified name (classes, inline modules, impl
	// blocks). Module-root kinds are excluded; the module QN covers them.
	ScopeNodeTypes []string

	// NameField is the tree-sitter field holding a definition's identifier.
	// Almost always "name"; languages that deviate set it explicitly.
	NameField string

	// DecoratorNodeTypes lists decorator/annotation node kinds.
	DecoratorNodeTypes []string

	// IndexBasenames are file stems that collapse to their containing
	// directory when deriving a module qualified name (__init__, index, mod).
	IndexBasenames []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	if spec.NameField == "" {
		spec.NameField = "name"
	}
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".py"),
// or nil if the extension is not recognized.
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language, or nil.
func ForLanguage(l Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == l {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// Extensions returns every registered file extension.
func Extensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	return exts
}

// IsFunctionNode reports whether kind is a function construct in this spec.
func (s *LanguageSpec) IsFunctionNode(kind string) bool {
	return contains(s.FunctionNodeTypes, kind)
}

// IsClassNode reports whether kind is a class-like construct in this spec.
func (s *LanguageSpec) IsClassNode(kind string) bool {
	return contains(s.ClassNodeTypes, kind)
}

// IsModuleNode reports whether kind is a module root in this spec.
func (s *LanguageSpec) IsModuleNode(kind string) bool {
	return contains(s.ModuleNodeTypes, kind)
}

// IsScopeNode reports whether kind contributes a qualified-name segment.
func (s *LanguageSpec) IsScopeNode(kind string) bool {
	return contains(s.ScopeNodeTypes, kind)
}

// IsImportNode reports whether kind is an import construct in this spec.
func (s *LanguageSpec) IsImportNode(kind string) bool {
	return contains(s.ImportNodeTypes, kind) || contains(s.ImportFromTypes, kind)
}

// IsIndexBasename reports whether a file stem collapses to its directory
// when deriving the module qualified name.
func (s *LanguageSpec) IsIndexBasename(stem string) bool {
	return contains(s.IndexBasenames, stem)
}

func contains(set []string, kind string) bool {
	for _, t := range set {
		if t == kind {
			return true
		}
	}
	return false
}
