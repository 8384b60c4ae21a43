package runtime

import (
	"sort"
)

// Binding is a mutable variable cell. Closures and imports share cells.
type Binding struct {
	Value Value
}

// DeclScope holds hoisted declarations (functions, classes, namespaces).
type DeclScope map[string]Value

// VarScope holds variables in the order execution reaches them.
type VarScope map[string]*Binding

// Stack is the pair of declaration and variable scope stacks. Both always
// have the same depth.
type Stack struct {
	decls []DeclScope
	vars  []VarScope
}

// NewStack creates a stack holding a single, empty outermost scope pair.
func NewStack() *Stack {
	s := &Stack{}
	s.Push()
	return s
}

// Depth reports the number of scope pairs.
func (s *Stack) Depth() int { return len(s.vars) }

// Push opens a fresh scope pair.
func (s *Stack) Push() {
	s.PushScope(make(DeclScope), make(VarScope))
}

// PushScope opens a scope pair backed by existing maps.
func (s *Stack) PushScope(decls DeclScope, vars VarScope) {
	s.decls = append(s.decls, decls)
	s.vars = append(s.vars, vars)
}

// Pop drops the innermost scope pair.
func (s *Stack) Pop() {
	if len(s.vars) == 0 {
		return
	}
	s.decls = s.decls[:len(s.decls)-1]
	s.vars = s.vars[:len(s.vars)-1]
}

// Top returns the innermost scope pair.
func (s *Stack) Top() (DeclScope, VarScope) {
	if len(s.vars) == 0 {
		return nil, nil
	}
	return s.decls[len(s.decls)-1], s.vars[len(s.vars)-1]
}

// Fork returns a stack sharing the current scope maps. Pushing onto the
// fork never affects s.
func (s *Stack) Fork() *Stack {
	out := &Stack{
		decls: make([]DeclScope, len(s.decls)),
		vars:  make([]VarScope, len(s.vars)),
	}
	copy(out.decls, s.decls)
	copy(out.vars, s.vars)
	return out
}

// Bound reports whether name is present in either map of the innermost pair.
func (s *Stack) Bound(name string) bool {
	decls, vars := s.Top()
	if _, ok := decls[name]; ok {
		return true
	}
	_, ok := vars[name]
	return ok
}

// Declare inserts a hoisted declaration into the innermost scope.
func (s *Stack) Declare(name string, value Value) error {
	if s.Bound(name) {
		return Errorf(ConflictWithPreviousDeclaration, "'%s' is already declared in this scope", name)
	}
	decls, _ := s.Top()
	decls[name] = value
	return nil
}

// Define inserts a variable into the innermost scope.
func (s *Stack) Define(name string, value Value) error {
	return s.DefineBinding(name, &Binding{Value: value})
}

// DefineBinding inserts an existing cell into the innermost scope.
func (s *Stack) DefineBinding(name string, binding *Binding) error {
	if s.Bound(name) {
		return Errorf(ConflictWithPreviousDeclaration, "'%s' is already declared in this scope", name)
	}
	_, vars := s.Top()
	vars[name] = binding
	return nil
}

// Lookup resolves name from the innermost scope outwards. Within one scope
// the variable map is consulted before the declaration map.
func (s *Stack) Lookup(name string) (Value, bool) {
	for i := len(s.vars) - 1; i >= 0; i-- {
		if binding, ok := s.vars[i][name]; ok {
			return binding.Value, true
		}
		if decl, ok := s.decls[i][name]; ok {
			return decl, true
		}
	}
	return nil, false
}

// LookupBinding finds the nearest variable cell named name. A declaration
// in a nearer scope hides outer variables.
func (s *Stack) LookupBinding(name string) (*Binding, bool) {
	for i := len(s.vars) - 1; i >= 0; i-- {
		if binding, ok := s.vars[i][name]; ok {
			return binding, true
		}
		if _, ok := s.decls[i][name]; ok {
			return nil, false
		}
	}
	return nil, false
}

// Names returns every name bound in the innermost pair in sorted order.
func (s *Stack) Names() []string {
	decls, vars := s.Top()
	names := make([]string, 0, len(decls)+len(vars))
	for name := range decls {
		names = append(names, name)
	}
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
