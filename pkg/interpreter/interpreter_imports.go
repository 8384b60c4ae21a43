package interpreter

import (
	"sort"

	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

type moduleState struct {
	ns      *runtime.NamespaceValue
	loading bool
}

// evaluateUseDirective binds imports into the innermost scope of env. With
// a source, imported names resolve against the module's top-level scope.
func (i *Interpreter) evaluateUseDirective(use *ast.UseDirective, env *environment) (Completion, error) {
	var module *runtime.NamespaceValue
	if use.Source != nil {
		path := use.Source.Strings()
		if len(path) == 0 {
			return Completion{}, structuralf(runtime.InvalidDefinition, "use directive with an empty source")
		}
		ns, err := i.loadModule(path, env)
		if err != nil {
			return completionFromError(err)
		}
		module = ns
		if len(use.Imports) == 0 {
			if err := env.stack.Declare(path[len(path)-1], ns); err != nil {
				return Completion{}, structural(err)
			}
			return normal(nil), nil
		}
	}
	for _, imp := range use.Imports {
		var err error
		switch it := imp.(type) {
		case *ast.NamespaceImport:
			err = i.importNamespace(it, module, env)
		case *ast.NameImport:
			err = i.importName(it, module, env)
		default:
			return Completion{}, structuralf(runtime.InvalidDefinition, "unsupported import %s", imp.NodeType())
		}
		if err != nil {
			return completionFromError(err)
		}
	}
	return normal(nil), nil
}

func (i *Interpreter) resolveImport(name *ast.Name, module *runtime.NamespaceValue, env *environment) (runtime.Value, error) {
	parts := name.Strings()
	if len(parts) == 0 {
		return nil, runtime.Errorf(runtime.UndefinedReference, "empty import name")
	}
	var val runtime.Value
	var ok bool
	if module != nil {
		val, ok = module.Lookup(parts[0])
	} else {
		val, ok = env.stack.Lookup(parts[0])
	}
	if !ok {
		return nil, runtime.Errorf(runtime.UndefinedReference, "cannot import '%s': not defined", joinName(parts))
	}
	for _, part := range parts[1:] {
		next, err := i.memberValue(val, part, env)
		if err != nil {
			return nil, err
		}
		val = next
	}
	return val, nil
}

func (i *Interpreter) importNamespace(imp *ast.NamespaceImport, module *runtime.NamespaceValue, env *environment) error {
	val, err := i.resolveImport(imp.Name, module, env)
	if err != nil {
		return err
	}
	ns, ok := val.(*runtime.NamespaceValue)
	if !ok {
		return runtime.Errorf(runtime.OperationNotPossible, "cannot import the members of %s '%s'", val.Kind(), joinName(imp.Name.Strings()))
	}
	if err := i.runNamespaceIfPending(ns, env); err != nil {
		return err
	}
	names := ns.Names()
	sort.Strings(names)
	for _, name := range names {
		if binding, ok := ns.Vars[name]; ok {
			if err := env.stack.Define(name, runtime.Copy(binding.Value)); err != nil {
				return structural(err)
			}
			continue
		}
		if err := env.stack.Declare(name, ns.Decls[name]); err != nil {
			return structural(err)
		}
	}
	return nil
}

func (i *Interpreter) importName(imp *ast.NameImport, module *runtime.NamespaceValue, env *environment) error {
	val, err := i.resolveImport(imp.Name, module, env)
	if err != nil {
		return err
	}
	name := ""
	if imp.Alias != nil && imp.Alias.Name != "" {
		name = imp.Alias.Name
	} else if last := imp.Name.Last(); last != nil {
		name = last.Name
	}
	if name == "" {
		return structuralf(runtime.InvalidDefinition, "import without a name")
	}
	if isDeclarationValue(val) {
		err = env.stack.Declare(name, val)
	} else {
		err = env.stack.Define(name, runtime.Copy(val))
	}
	if err != nil {
		return structural(err)
	}
	return nil
}

// runNamespaceIfPending runs a namespace body that has been hoisted but not
// reached yet, so importing its members sees initialized variables.
func (i *Interpreter) runNamespaceIfPending(ns *runtime.NamespaceValue, env *environment) error {
	if ns.Executed {
		return nil
	}
	c, err := i.runNamespaceBody(ns, env)
	if err != nil {
		return err
	}
	if c.Kind == CompletionThrow {
		return errorFromCompletion(c)
	}
	return nil
}

func isDeclarationValue(v runtime.Value) bool {
	switch v.(type) {
	case *runtime.FunctionValue, *runtime.ClassValue, *runtime.NamespaceValue, runtime.NativeFunctionValue:
		return true
	default:
		return false
	}
}

// loadModule returns the top-level scope of the module at path, running it
// the first time on an independent stack over the built-ins.
func (i *Interpreter) loadModule(path []string, env *environment) (*runtime.NamespaceValue, error) {
	key := joinName(path)
	if state, ok := i.modules[key]; ok {
		if state.loading {
			return nil, structuralf(runtime.ImportCycle, "module '%s' imports itself", key)
		}
		return state.ns, nil
	}
	if i.resolver == nil {
		return nil, runtime.Errorf(runtime.HostFailure, "cannot load module '%s': no module resolver configured", key)
	}
	block, err := i.resolver.Resolve(path)
	if err != nil {
		return nil, runtime.Errorf(runtime.HostFailure, "cannot load module '%s': %v", key, err)
	}

	state := &moduleState{loading: true}
	i.modules[key] = state
	i.logger.Debug().Str("module", key).Msg("loading module")

	stack := i.global.Fork()
	stack.Push()
	c, err := i.executeBlockIn(block, env.with(stack, nil))
	if err != nil {
		delete(i.modules, key)
		return nil, err
	}
	switch c.Kind {
	case CompletionThrow:
		delete(i.modules, key)
		return nil, errorFromCompletion(c)
	case CompletionBreak, CompletionContinue:
		delete(i.modules, key)
		return nil, structuralf(runtime.InvalidControlFlow, "%s escapes module '%s'", c.Kind, key)
	}

	decls, vars := stack.Top()
	state.ns = &runtime.NamespaceValue{
		Name:     path[len(path)-1],
		Decls:    decls,
		Vars:     vars,
		Scope:    stack,
		Executed: true,
	}
	state.loading = false
	return state.ns, nil
}
