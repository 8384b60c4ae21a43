package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the project manifest looked up by the CLI.
const ManifestFileName = "tscript.yml"

// Manifest represents the parsed contents of tscript.yml.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Entry        string
	SearchPaths  []string
	Dependencies map[string]*DependencySpec
	Interpreter  InterpreterSettings
}

// InterpreterSettings carries interpreter options a project may pin.
type InterpreterSettings struct {
	MaxCallDepth int
	LogLevel     string
}

// DependencySpec describes a dependency descriptor in the manifest: either
// a git source pinned by rev, tag or branch, or a local path.
type DependencySpec struct {
	Git    string
	Rev    string
	Tag    string
	Branch string
	Path   string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// LoadManifest parses tscript.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// Dir is the directory holding the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// EntryPath resolves the entry document relative to the manifest.
func (m *Manifest) EntryPath() (string, error) {
	if m == nil || m.Entry == "" {
		return "", fmt.Errorf("manifest: no entry configured")
	}
	return m.resolve(m.Entry), nil
}

func (m *Manifest) resolve(path string) string {
	path = filepath.FromSlash(path)
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(m.Dir(), path)
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Entry != "" {
		if _, err := FormatForPath(m.Entry); err != nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("entry %q must be a .yml, .yaml or .json document", m.Entry))
		}
	}
	for i, path := range m.SearchPaths {
		if path == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("search_paths[%d] must be a non-empty string", i))
		}
	}
	for depName, dep := range m.Dependencies {
		if dep == nil {
			continue
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", depName, issue))
		}
	}
	if m.Interpreter.MaxCallDepth < 0 {
		errs.Issues = append(errs.Issues, "interpreter.max_call_depth must not be negative")
	}
	if level := m.Interpreter.LogLevel; level != "" && !logLevels[level] {
		errs.Issues = append(errs.Issues, fmt.Sprintf("interpreter.log_level %q is not a known level", level))
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (d *DependencySpec) validate() []string {
	var errs []string
	if d == nil {
		return errs
	}
	if d.Path != "" && d.Git != "" {
		errs = append(errs, "path dependencies cannot also specify git")
	}
	if d.Path == "" && d.Git == "" {
		errs = append(errs, "must specify git or path")
	}
	if d.Git != "" {
		pins := 0
		for _, pin := range []string{d.Rev, d.Tag, d.Branch} {
			if pin != "" {
				pins++
			}
		}
		if pins == 0 {
			errs = append(errs, "git dependencies require rev, tag, or branch")
		} else if pins > 1 {
			errs = append(errs, "git dependencies take only one of rev, tag, or branch")
		}
	}
	if d.Path != "" && (d.Rev != "" || d.Tag != "" || d.Branch != "") {
		errs = append(errs, "rev, tag and branch apply only to git dependencies")
	}
	return errs
}

// IsGit reports whether the dependency is fetched from a git repository.
func (d *DependencySpec) IsGit() bool {
	return d != nil && d.Git != ""
}

type manifestFile struct {
	Name         string          `yaml:"name"`
	Version      string          `yaml:"version"`
	Entry        string          `yaml:"entry"`
	SearchPaths  stringList      `yaml:"search_paths"`
	Dependencies dependencyMap   `yaml:"dependencies"`
	Interpreter  interpreterYAML `yaml:"interpreter"`
}

type interpreterYAML struct {
	MaxCallDepth int    `yaml:"max_call_depth"`
	LogLevel     string `yaml:"log_level"`
}

type dependencyMap map[string]*DependencySpec

type stringList []string

func (mf manifestFile) toManifest(path string) *Manifest {
	return &Manifest{
		Path:         path,
		Name:         sanitizeSegment(mf.Name),
		Version:      strings.TrimSpace(mf.Version),
		Entry:        strings.TrimSpace(mf.Entry),
		SearchPaths:  mf.SearchPaths.Clone(),
		Dependencies: cloneDependencyMap(mf.Dependencies),
		Interpreter: InterpreterSettings{
			MaxCallDepth: mf.Interpreter.MaxCallDepth,
			LogLevel:     strings.ToLower(strings.TrimSpace(mf.Interpreter.LogLevel)),
		},
	}
}

func cloneDependencyMap(src dependencyMap) map[string]*DependencySpec {
	if len(src) == 0 {
		return map[string]*DependencySpec{}
	}
	out := make(map[string]*DependencySpec, len(src))
	for name, dep := range src {
		if dep == nil {
			continue
		}
		copy := *dep
		out[sanitizeSegment(name)] = &copy
	}
	return out
}

func (l stringList) Clone() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			items = append(items, strings.TrimSpace(str))
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("manifest: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (dm *dependencyMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		*dm = make(dependencyMap)
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: dependencies must be a mapping")
	}
	result := make(dependencyMap, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: dependency names must be non-empty")
		}
		var dep DependencySpec
		if err := dep.unmarshalYAML(valNode); err != nil {
			return fmt.Errorf("manifest: dependency %q: %w", key, err)
		}
		result[key] = &dep
	}
	*dm = result
	return nil
}

// unmarshalYAML accepts a mapping, or a scalar shorthand for a local path.
func (d *DependencySpec) unmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*d = DependencySpec{}
			return nil
		}
		*d = DependencySpec{Path: strings.TrimSpace(value.Value)}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Git    string `yaml:"git"`
			Rev    string `yaml:"rev"`
			Tag    string `yaml:"tag"`
			Branch string `yaml:"branch"`
			Path   string `yaml:"path"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*d = DependencySpec{
			Git:    strings.TrimSpace(raw.Git),
			Rev:    strings.TrimSpace(raw.Rev),
			Tag:    strings.TrimSpace(raw.Tag),
			Branch: strings.TrimSpace(raw.Branch),
			Path:   strings.TrimSpace(raw.Path),
		}
		return nil
	case yaml.AliasNode:
		return d.unmarshalYAML(value.Alias)
	default:
		return fmt.Errorf("expected string or mapping, found %s", value.ShortTag())
	}
}

func sanitizeSegment(seg string) string {
	seg = strings.TrimSpace(seg)
	seg = strings.ReplaceAll(seg, "-", "_")
	return seg
}
