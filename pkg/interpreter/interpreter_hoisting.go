package interpreter

import (
	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

// hoist registers the functions, classes and namespaces of items (and,
// recursively, of nested namespace bodies) into the innermost scope of env,
// then links every class it registered. Any failure is structural and
// happens before a statement of the block runs.
func (i *Interpreter) hoist(items []ast.BlockItem, env *environment) error {
	var classes []*runtime.ClassValue
	if err := i.registerDeclarations(items, env, &classes); err != nil {
		return err
	}
	linking := make(map[*runtime.ClassValue]bool)
	for _, cls := range classes {
		if err := i.linkClass(cls, linking); err != nil {
			return err
		}
	}
	if len(classes) > 0 {
		i.logger.Debug().Int("classes", len(classes)).Msg("hoisted classes")
	}
	return nil
}

func (i *Interpreter) registerDeclarations(items []ast.BlockItem, env *environment, classes *[]*runtime.ClassValue) error {
	for _, item := range items {
		switch decl := item.(type) {
		case *ast.FunctionDeclaration:
			name, err := declarationName(decl.ID, "function")
			if err != nil {
				return err
			}
			fn := &runtime.FunctionValue{
				Name:    name,
				Params:  decl.Params,
				Body:    decl.Body,
				Closure: env.stack.Fork(),
				Owner:   env.class,
			}
			if err := env.stack.Declare(name, fn); err != nil {
				return structural(err)
			}
		case *ast.ClassDeclaration:
			name, err := declarationName(decl.ID, "class")
			if err != nil {
				return err
			}
			cls := runtime.NewClass(name, decl, env.stack.Fork())
			if err := env.stack.Declare(name, cls); err != nil {
				return structural(err)
			}
			*classes = append(*classes, cls)
		case *ast.NamespaceDeclaration:
			ns, err := i.newNamespace(decl, env, classes)
			if err != nil {
				return err
			}
			if err := env.stack.Declare(ns.Name, ns); err != nil {
				return structural(err)
			}
		}
	}
	return nil
}

// newNamespace builds a namespace whose persistent scope pair sits on top of
// env, and hoists its body into that pair.
func (i *Interpreter) newNamespace(decl *ast.NamespaceDeclaration, env *environment, classes *[]*runtime.ClassValue) (*runtime.NamespaceValue, error) {
	name, err := declarationName(decl.ID, "namespace")
	if err != nil {
		return nil, err
	}
	ns := &runtime.NamespaceValue{
		Name:  name,
		Node:  decl,
		Decls: make(runtime.DeclScope),
		Vars:  make(runtime.VarScope),
	}
	ns.Scope = env.stack.Fork()
	ns.Scope.PushScope(ns.Decls, ns.Vars)
	if decl.Body != nil {
		if err := i.registerDeclarations(decl.Body.Items, env.with(ns.Scope, env.class), classes); err != nil {
			return nil, err
		}
	}
	return ns, nil
}

func declarationName(id *ast.Identifier, what string) (string, error) {
	if id == nil || id.Name == "" {
		return "", structuralf(runtime.InvalidDefinition, "%s declaration without a name", what)
	}
	return id.Name, nil
}

// linkClass resolves the base of cls and builds its member table. Classes
// currently being linked are tracked in linking to detect cycles.
func (i *Interpreter) linkClass(cls *runtime.ClassValue, linking map[*runtime.ClassValue]bool) error {
	if cls.Linked {
		return nil
	}
	if linking[cls] {
		return structuralf(runtime.InvalidDefinition, "class '%s' inherits from itself", cls.Name)
	}
	linking[cls] = true
	defer delete(linking, cls)

	node := cls.Node
	if node.Extends != nil {
		base, err := i.resolveBaseClass(cls, node.Extends, linking)
		if err != nil {
			return err
		}
		if err := i.linkClass(base, linking); err != nil {
			return err
		}
		if base.Constructor != nil && base.ConstructorVisibility == runtime.Private {
			return structuralf(runtime.AccessViolation, "class '%s' cannot extend '%s': its constructor is private", cls.Name, base.Name)
		}
		cls.Base = base
	}

	var nested []*runtime.ClassValue
	for _, part := range classPartitions(node) {
		for _, item := range part.items {
			switch it := item.(type) {
			case *ast.Constructor:
				if cls.Constructor != nil {
					return structuralf(runtime.InvalidDefinition, "class '%s' declares more than one constructor", cls.Name)
				}
				cls.Constructor = it
				cls.ConstructorVisibility = part.visibility
			case *ast.StaticDeclaration:
				if err := i.addClassMember(cls, it.Declaration, part.visibility, true, &nested); err != nil {
					return err
				}
			case *ast.MemberDeclaration:
				if err := i.addClassMember(cls, it.Declaration, part.visibility, false, &nested); err != nil {
					return err
				}
			case *ast.UseDirective:
				// Runs with the static initializers.
			default:
				return structuralf(runtime.InvalidDefinition, "unsupported item %T in class '%s'", item, cls.Name)
			}
		}
	}

	if cls.Base != nil {
		for name, member := range cls.Members {
			inherited, ok := cls.Base.FindMember(name)
			if !ok || inherited.Visibility == runtime.Private {
				continue
			}
			if member.Visibility > inherited.Visibility {
				return structuralf(runtime.AccessViolation, "'%s::%s' is %s but overrides a %s member of '%s'",
					cls.Name, name, member.Visibility, inherited.Visibility, inherited.Owner.Name)
			}
		}
	}

	cls.Linked = true
	for _, inner := range nested {
		if err := i.linkClass(inner, linking); err != nil {
			return err
		}
	}
	return nil
}

// addClassMember records one declaration of a class body. Classes and
// namespaces are always bound once per class, whichever partition they
// appear in.
func (i *Interpreter) addClassMember(cls *runtime.ClassValue, decl ast.Declaration, visibility runtime.Visibility, static bool, nested *[]*runtime.ClassValue) error {
	add := func(member *runtime.ClassMember) error {
		if _, exists := cls.Members[member.Name]; exists {
			return structuralf(runtime.ConflictWithPreviousDeclaration, "'%s' is already declared in class '%s'", member.Name, cls.Name)
		}
		member.Owner = cls
		member.Visibility = visibility
		cls.Members[member.Name] = member
		return nil
	}
	switch d := decl.(type) {
	case *ast.VariableDeclaration:
		for _, binding := range d.Bindings {
			name, err := declarationName(binding.ID, "field")
			if err != nil {
				return err
			}
			member := &runtime.ClassMember{Name: name, Static: static, Field: binding}
			if err := add(member); err != nil {
				return err
			}
			if !static {
				cls.Fields = append(cls.Fields, member)
			}
		}
	case *ast.FunctionDeclaration:
		name, err := declarationName(d.ID, "method")
		if err != nil {
			return err
		}
		fn := &runtime.FunctionValue{
			Name:    name,
			Params:  d.Params,
			Body:    d.Body,
			Closure: cls.Closure,
			Owner:   cls,
			Member:  true,
		}
		member := &runtime.ClassMember{Name: name, Static: static, Decl: d, Function: fn}
		if err := add(member); err != nil {
			return err
		}
		if static {
			cls.StaticDecls[name] = fn
		}
	case *ast.ClassDeclaration:
		name, err := declarationName(d.ID, "class")
		if err != nil {
			return err
		}
		inner := runtime.NewClass(name, d, staticClosure(cls))
		if err := add(&runtime.ClassMember{Name: name, Static: true, Decl: d}); err != nil {
			return err
		}
		cls.StaticDecls[name] = inner
		*nested = append(*nested, inner)
	case *ast.NamespaceDeclaration:
		env := &environment{stack: staticClosure(cls), class: cls}
		ns, err := i.newNamespace(d, env, nested)
		if err != nil {
			return err
		}
		if err := add(&runtime.ClassMember{Name: ns.Name, Static: true, Decl: d}); err != nil {
			return err
		}
		cls.StaticDecls[ns.Name] = ns
	default:
		return structuralf(runtime.InvalidDefinition, "unsupported declaration %T in class '%s'", decl, cls.Name)
	}
	return nil
}

// staticClosure is the stack nested declarations of cls close over: the
// class's declaring scopes plus its live static scope pair.
func staticClosure(cls *runtime.ClassValue) *runtime.Stack {
	stack := cls.Closure.Fork()
	stack.PushScope(cls.StaticDecls, cls.StaticVars)
	return stack
}

func (i *Interpreter) resolveBaseClass(cls *runtime.ClassValue, name *ast.Name, linking map[*runtime.ClassValue]bool) (*runtime.ClassValue, error) {
	parts := name.Strings()
	if len(parts) == 0 {
		return nil, structuralf(runtime.InvalidDefinition, "class '%s' has an empty base name", cls.Name)
	}
	current, ok := cls.Closure.Lookup(parts[0])
	if !ok {
		return nil, structuralf(runtime.InvalidDefinition, "base class '%s' of '%s' is not declared", joinName(parts), cls.Name)
	}
	for _, part := range parts[1:] {
		var next runtime.Value
		switch holder := current.(type) {
		case *runtime.NamespaceValue:
			next, ok = holder.Lookup(part)
		case *runtime.ClassValue:
			if err := i.linkClass(holder, linking); err != nil {
				return nil, err
			}
			next, ok = holder.StaticDecls[part]
		default:
			ok = false
		}
		if !ok {
			return nil, structuralf(runtime.InvalidDefinition, "base class '%s' of '%s' is not declared", joinName(parts), cls.Name)
		}
		current = next
	}
	base, ok := current.(*runtime.ClassValue)
	if !ok {
		return nil, structuralf(runtime.InvalidDefinition, "base '%s' of '%s' is a %s, not a class", joinName(parts), cls.Name, current.Kind())
	}
	return base, nil
}
