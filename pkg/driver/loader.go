package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/michaelmacinnis/adapted"

	"tscript/interpreter-go/pkg/ast"
)

// ErrModuleNotFound is wrapped by Resolve when no search root holds the
// requested module.
var ErrModuleNotFound = errors.New("module not found")

var moduleExtensions = []string{".yml", ".yaml", ".json"}

// Loader maps `use` source paths onto AST documents below a list of search
// roots. The first root holding a matching document wins.
type Loader struct {
	roots []string
}

// NewLoader expands the given search roots. The last element of a root may
// be a shell pattern, e.g. "deps/*", matched against directory names.
func NewLoader(roots []string) (*Loader, error) {
	seen := make(map[string]struct{}, len(roots))
	var unique []string
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		expanded, err := expandRoot(root)
		if err != nil {
			return nil, err
		}
		for _, dir := range expanded {
			if _, ok := seen[dir]; ok {
				continue
			}
			seen[dir] = struct{}{}
			unique = append(unique, dir)
		}
	}
	return &Loader{roots: unique}, nil
}

// Roots returns the expanded search roots in lookup order.
func (l *Loader) Roots() []string {
	return append([]string(nil), l.roots...)
}

// Resolve decodes the module document for path, e.g. [lib, util] maps to
// <root>/lib/util.yml, .yaml or .json.
func (l *Loader) Resolve(path []string) (*ast.Block, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("loader: empty module path")
	}
	for _, seg := range path {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, `/\`) {
			return nil, fmt.Errorf("loader: invalid module path segment %q", seg)
		}
	}
	rel := filepath.Join(path...)
	for _, root := range l.roots {
		for _, ext := range moduleExtensions {
			candidate := filepath.Join(root, rel+ext)
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				continue
			}
			return DecodeFile(candidate)
		}
	}
	return nil, fmt.Errorf("%w: %s (searched %s)", ErrModuleNotFound, strings.Join(path, "::"), strings.Join(l.roots, ", "))
}

func expandRoot(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve search path %q: %w", root, err)
	}
	pattern := filepath.Base(abs)
	if !strings.ContainsAny(pattern, "*?[") {
		return []string{abs}, nil
	}
	parent := filepath.Dir(abs)
	entries, err := os.ReadDir(parent)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("loader: read %s: %w", parent, err)
	}
	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ok, err := adapted.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("loader: search path %q: %w", root, err)
		}
		if ok {
			dirs = append(dirs, filepath.Join(parent, entry.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
