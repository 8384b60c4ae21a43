package interpreter

import (
	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

type classPartition struct {
	visibility runtime.Visibility
	items      []ast.ClassItem
}

func classPartitions(node *ast.ClassDeclaration) []classPartition {
	return []classPartition{
		{runtime.Public, node.Public},
		{runtime.Protected, node.Protected},
		{runtime.Private, node.Private},
	}
}

// construct creates an instance of cls. The base chain is initialized root
// first; each level binds its constructor parameters, evaluates the super
// arguments, initializes its own fields and then runs its constructor body.
func (i *Interpreter) construct(cls *runtime.ClassValue, args []callArgument, env *environment) (runtime.Value, error) {
	if err := i.enterCall(env, cls.Name); err != nil {
		return nil, err
	}
	defer i.leaveCall(env)

	if cls.Constructor != nil && !canAccess(cls.ConstructorVisibility, cls, env.class) {
		return nil, runtime.Errorf(runtime.AccessViolation, "constructor of '%s' is %s", cls.Name, cls.ConstructorVisibility)
	}
	if err := i.ensureStatics(cls, env); err != nil {
		return nil, err
	}
	obj := runtime.NewObject(cls)
	if err := i.initializeObject(obj, cls, args, env); err != nil {
		return nil, err
	}
	i.logger.Debug().Str("class", cls.Name).Msg("constructed")
	return obj, nil
}

func (i *Interpreter) initializeObject(obj *runtime.ObjectValue, cls *runtime.ClassValue, args []callArgument, env *environment) error {
	ctor := cls.Constructor
	callee := cls.Name + "::constructor"

	params := cls.Closure.Fork()
	i.pushStaticFrames(params, cls)
	params.Push()
	paramEnv := env.with(params, cls)
	if ctor != nil {
		if err := i.bindParameters(ctor.Params, args, paramEnv, callee); err != nil {
			return err
		}
	} else if len(args) > 0 {
		return runtime.Errorf(runtime.OperationNotPossible, "class '%s' has no constructor but was given %d arguments", cls.Name, len(args))
	}

	var superArgs []callArgument
	if ctor != nil {
		for _, arg := range ctor.SuperArgs {
			val, err := i.evaluateExpression(arg.Value, paramEnv)
			if err != nil {
				return err
			}
			name := ""
			if arg.Name != nil {
				name = arg.Name.Name
			}
			superArgs = append(superArgs, callArgument{name: name, value: val})
		}
	}
	if cls.Base != nil {
		if err := i.initializeObject(obj, cls.Base, superArgs, env); err != nil {
			return err
		}
	} else if len(superArgs) > 0 {
		return runtime.Errorf(runtime.OperationNotPossible, "class '%s' has no base class to pass arguments to", cls.Name)
	}

	layer := obj.Layer(cls)
	fieldStack := cls.Closure.Fork()
	i.pushStaticFrames(fieldStack, cls)
	frame := i.pushInstanceFrame(fieldStack, obj, cls)
	fieldEnv := env.with(fieldStack, cls)
	for _, member := range cls.Fields {
		var val runtime.Value = runtime.NullValue{}
		if member.Field.Value != nil {
			v, err := i.evaluateExpression(member.Field.Value, fieldEnv)
			if err != nil {
				return err
			}
			val = v
		}
		binding := &runtime.Binding{Value: runtime.Copy(val)}
		layer[member.Name] = binding
		frame[member.Name] = binding
	}

	if ctor == nil {
		return nil
	}
	body := cls.Closure.Fork()
	i.pushStaticFrames(body, cls)
	i.pushInstanceFrame(body, obj, cls)
	body.PushScope(params.Top())
	c, err := i.executeBlockIn(ctor.Body, env.with(body, cls))
	if err != nil {
		return err
	}
	switch c.Kind {
	case CompletionThrow:
		return errorFromCompletion(c)
	case CompletionBreak, CompletionContinue:
		return structuralf(runtime.InvalidControlFlow, "%s escapes the constructor of '%s'", c.Kind, cls.Name)
	}
	return nil
}

// pushStaticFrames pushes the static members of cls's bases that cls may
// use, then the live static scope pair of cls itself.
func (i *Interpreter) pushStaticFrames(stack *runtime.Stack, cls *runtime.ClassValue) {
	if cls.Base != nil {
		decls := make(runtime.DeclScope)
		vars := make(runtime.VarScope)
		for _, base := range cls.Base.Chain() {
			for name, member := range base.Members {
				if !member.Static || !canAccess(member.Visibility, base, cls) {
					continue
				}
				if member.Field != nil {
					if binding, ok := base.StaticVars[name]; ok {
						vars[name] = binding
						delete(decls, name)
					}
					continue
				}
				if val, ok := base.StaticDecls[name]; ok {
					decls[name] = val
					delete(vars, name)
				}
			}
		}
		stack.PushScope(decls, vars)
	}
	stack.PushScope(cls.StaticDecls, cls.StaticVars)
}

// pushInstanceFrame pushes the instance members of obj visible to code of
// class from, plus this. Fields share the object's cells; methods are bound
// to obj and resolved from its dynamic class. The frame's variables are
// returned so fields initialized later can be added.
func (i *Interpreter) pushInstanceFrame(stack *runtime.Stack, obj *runtime.ObjectValue, from *runtime.ClassValue) runtime.VarScope {
	decls := make(runtime.DeclScope)
	vars := make(runtime.VarScope)
	seen := make(map[string]bool)
	for _, cls := range obj.Class.Chain() {
		for name, member := range cls.Members {
			if member.Static || seen[name] {
				continue
			}
			seen[name] = true
			resolved, err := findMember(obj.Class, name, from)
			if err != nil || resolved.Static {
				continue
			}
			if resolved.Field != nil {
				if binding, ok := obj.Layers[resolved.Owner][name]; ok {
					vars[name] = binding
				}
				continue
			}
			decls[name] = runtime.BoundMethodValue{Receiver: obj, Method: resolved.Function}
		}
	}
	vars["this"] = &runtime.Binding{Value: obj}
	stack.PushScope(decls, vars)
	return vars
}

// ensureStatics initializes the statics of cls on first use: bases first,
// then class-level use directives, static variables and namespace bodies in
// declaration order. Uses during initialization see the partial state.
func (i *Interpreter) ensureStatics(cls *runtime.ClassValue, env *environment) error {
	if cls.StaticState != runtime.StaticPending {
		return nil
	}
	cls.StaticState = runtime.StaticInitializing
	defer func() { cls.StaticState = runtime.StaticReady }()

	if cls.Base != nil {
		if err := i.ensureStatics(cls.Base, env); err != nil {
			return err
		}
	}
	stack := cls.Closure.Fork()
	i.pushStaticFrames(stack, cls)
	staticEnv := env.with(stack, cls)
	for _, part := range classPartitions(cls.Node) {
		for _, item := range part.items {
			var decl ast.Declaration
			switch it := item.(type) {
			case *ast.UseDirective:
				c, err := i.evaluateUseDirective(it, staticEnv)
				if err != nil {
					return err
				}
				if c.Kind == CompletionThrow {
					return errorFromCompletion(c)
				}
				continue
			case *ast.StaticDeclaration:
				decl = it.Declaration
			case *ast.MemberDeclaration:
				decl = it.Declaration
				if _, ok := decl.(*ast.NamespaceDeclaration); !ok {
					continue
				}
			default:
				continue
			}
			if err := i.initializeStatic(cls, decl, staticEnv); err != nil {
				return err
			}
		}
	}
	i.logger.Debug().Str("class", cls.Name).Msg("statics initialized")
	return nil
}

func (i *Interpreter) initializeStatic(cls *runtime.ClassValue, decl ast.Declaration, env *environment) error {
	switch d := decl.(type) {
	case *ast.VariableDeclaration:
		for _, binding := range d.Bindings {
			var val runtime.Value = runtime.NullValue{}
			if binding.Value != nil {
				v, err := i.evaluateExpression(binding.Value, env)
				if err != nil {
					return err
				}
				val = v
			}
			if err := env.stack.Define(binding.ID.Name, runtime.Copy(val)); err != nil {
				return structural(err)
			}
		}
	case *ast.NamespaceDeclaration:
		ns, ok := cls.StaticDecls[d.ID.Name].(*runtime.NamespaceValue)
		if !ok {
			return structuralf(runtime.InvalidDefinition, "namespace '%s::%s' was not linked", cls.Name, d.ID.Name)
		}
		c, err := i.runNamespaceBody(ns, env)
		if err != nil {
			return err
		}
		if c.Kind == CompletionThrow {
			return errorFromCompletion(c)
		}
	}
	return nil
}
