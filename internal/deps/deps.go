// Package deps parses dependency manifests into (name, version spec)
// lists. Parsers are best-effort: a malformed manifest returns an error
// and the pipeline logs and moves on.
package deps

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Dependency is one external package requirement.
type Dependency struct {
	Name       string
	Spec       string
	Properties map[string]string
}

// IsManifest reports whether a file basename is a recognized dependency
// manifest.
func IsManifest(name string) bool {
	switch strings.ToLower(name) {
	case "pyproject.toml", "requirements.txt", "package.json", "cargo.toml", "go.mod", "gemfile", "composer.json":
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".csproj")
}

// ParseFile dispatches on the manifest's basename. Unrecognized files
// return nil without error.
func ParseFile(path string) ([]Dependency, error) {
	switch strings.ToLower(filepath.Base(path)) {
	case "pyproject.toml":
		return parsePyProject(path)
	case "requirements.txt":
		return parseRequirements(path)
	case "package.json":
		return parsePackageJSON(path)
	case "cargo.toml":
		return parseCargo(path)
	case "go.mod":
		return parseGoMod(path)
	case "gemfile":
		return parseGemfile(path)
	case "composer.json":
		return parseComposer(path)
	}
	if strings.EqualFold(filepath.Ext(path), ".csproj") {
		return parseCsproj(path)
	}
	return nil, nil
}

// pep508Name matches the leading package name (optionally with extras)
// in a PEP 508 requirement line.
var pep508Name = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)(\[[^\]]*\])?`)

func splitPEP508(line string) (name, spec string) {
	m := pep508Name.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", ""
	}
	return m[1], strings.TrimSpace(strings.TrimSpace(line)[len(m[0]):])
}

func parsePyProject(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Tool struct {
			Poetry struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
		Project struct {
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		} `toml:"project"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pyproject.toml: %w", err)
	}

	var out []Dependency
	for name, spec := range doc.Tool.Poetry.Dependencies {
		// The python entry pins the interpreter, not a package.
		if strings.EqualFold(name, "python") {
			continue
		}
		out = append(out, Dependency{Name: name, Spec: tomlSpec(spec)})
	}
	for _, line := range doc.Project.Dependencies {
		if name, _ := splitPEP508(line); name != "" {
			out = append(out, Dependency{Name: name, Spec: line})
		}
	}
	for group, lines := range doc.Project.OptionalDependencies {
		for _, line := range lines {
			if name, _ := splitPEP508(line); name != "" {
				out = append(out, Dependency{
					Name:       name,
					Spec:       line,
					Properties: map[string]string{"group": group},
				})
			}
		}
	}
	return out, nil
}

// tomlSpec renders a dependency value that is either a bare version
// string or an inline table with a version key.
func tomlSpec(v any) string {
	switch spec := v.(type) {
	case string:
		return spec
	case map[string]any:
		if version, ok := spec["version"].(string); ok {
			return version
		}
	}
	return ""
}

func parseRequirements(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if name, spec := splitPEP508(line); name != "" {
			out = append(out, Dependency{Name: name, Spec: spec})
		}
	}
	return out, scanner.Err()
}

func parsePackageJSON(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Dependencies     map[string]string `json:"dependencies"`
		DevDependencies  map[string]string `json:"devDependencies"`
		PeerDependencies map[string]string `json:"peerDependencies"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("package.json: %w", err)
	}

	var out []Dependency
	for _, group := range []map[string]string{doc.Dependencies, doc.DevDependencies, doc.PeerDependencies} {
		for name, spec := range group {
			out = append(out, Dependency{Name: name, Spec: spec})
		}
	}
	return out, nil
}

func parseCargo(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Dependencies    map[string]any `toml:"dependencies"`
		DevDependencies map[string]any `toml:"dev-dependencies"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("Cargo.toml: %w", err)
	}

	var out []Dependency
	for _, group := range []map[string]any{doc.Dependencies, doc.DevDependencies} {
		for name, spec := range group {
			out = append(out, Dependency{Name: name, Spec: tomlSpec(spec)})
		}
	}
	return out, nil
}

func parseGoMod(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Dependency
	inBlock := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "require ("):
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case strings.HasPrefix(line, "require "):
			fields := strings.Fields(line)[1:]
			if len(fields) >= 2 {
				out = append(out, Dependency{Name: fields[0], Spec: fields[1]})
			}
		case inBlock && line != "" && !strings.HasPrefix(line, "//"):
			fields := strings.Fields(line)
			if len(fields) >= 2 && !strings.HasPrefix(fields[1], "//") {
				out = append(out, Dependency{Name: fields[0], Spec: fields[1]})
			}
		}
	}
	return out, scanner.Err()
}

var gemLine = regexp.MustCompile(`^gem\s+["']([^"']+)["'](?:\s*,\s*["']([^"']+)["'])?`)

func parseGemfile(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := gemLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m != nil {
			out = append(out, Dependency{Name: m[1], Spec: m[2]})
		}
	}
	return out, scanner.Err()
}

func parseComposer(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Require    map[string]string `json:"require"`
		RequireDev map[string]string `json:"require-dev"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("composer.json: %w", err)
	}

	var out []Dependency
	for name, spec := range doc.Require {
		// php itself and ext-* entries pin the platform, not packages.
		if name == "php" || strings.HasPrefix(name, "ext-") {
			continue
		}
		out = append(out, Dependency{Name: name, Spec: spec})
	}
	for name, spec := range doc.RequireDev {
		out = append(out, Dependency{Name: name, Spec: spec})
	}
	return out, nil
}

func parseCsproj(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		ItemGroups []struct {
			PackageReferences []struct {
				Include string `xml:"Include,attr"`
				Version string `xml:"Version,attr"`
			} `xml:"PackageReference"`
		} `xml:"ItemGroup"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("csproj: %w", err)
	}

	var out []Dependency
	for _, group := range doc.ItemGroups {
		for _, ref := range group.PackageReferences {
			if ref.Include != "" {
				out = append(out, Dependency{Name: ref.Include, Spec: ref.Version})
			}
		}
	}
	return out, nil
}
