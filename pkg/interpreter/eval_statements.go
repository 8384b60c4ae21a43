package interpreter

import (
	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

// executeBlock runs block in a fresh scope pair that is dropped however the
// block ends.
func (i *Interpreter) executeBlock(block *ast.Block, env *environment) (Completion, error) {
	env.stack.Push()
	defer env.stack.Pop()
	return i.executeBlockIn(block, env)
}

// executeBlockIn hoists and runs block in the innermost scope of env.
func (i *Interpreter) executeBlockIn(block *ast.Block, env *environment) (Completion, error) {
	if block == nil {
		return normal(nil), nil
	}
	if err := i.hoist(block.Items, env); err != nil {
		return Completion{}, err
	}
	return i.executeItems(block.Items, env)
}

// executeItems runs already hoisted items in order. The result is the first
// abrupt completion, or the completion of the last item.
func (i *Interpreter) executeItems(items []ast.BlockItem, env *environment) (Completion, error) {
	last := normal(nil)
	for _, item := range items {
		if err := env.state.checkAbort(); err != nil {
			return Completion{}, err
		}
		i.logger.Trace().Str("node", string(item.NodeType())).Int("depth", env.stack.Depth()).Msg("dispatch")
		c, err := i.evaluateBlockItem(item, env)
		if err != nil {
			return Completion{}, err
		}
		if c.Kind != CompletionNormal {
			return c, nil
		}
		last = c
	}
	return last, nil
}

func (i *Interpreter) evaluateBlockItem(item ast.BlockItem, env *environment) (Completion, error) {
	switch n := item.(type) {
	case *ast.VariableDeclaration:
		return i.evaluateVariableDeclaration(n, env)
	case *ast.FunctionDeclaration, *ast.ClassDeclaration:
		return normal(nil), nil
	case *ast.NamespaceDeclaration:
		return i.evaluateNamespaceDeclaration(n, env)
	case *ast.UseDirective:
		return i.evaluateUseDirective(n, env)
	case ast.Statement:
		return i.evaluateStatement(n, env)
	default:
		return Completion{}, structuralf(runtime.InvalidDefinition, "unsupported block item %s", item.NodeType())
	}
}

func (i *Interpreter) evaluateStatement(node ast.Statement, env *environment) (Completion, error) {
	switch n := node.(type) {
	case *ast.BlockStatement:
		return i.executeBlock(n.Block, env)
	case *ast.ExpressionStatement:
		val, err := i.evaluateExpression(n.Expression, env)
		if err != nil {
			return completionFromError(err)
		}
		return normal(val), nil
	case *ast.Assignment:
		return i.evaluateAssignment(n, env)
	case *ast.Condition:
		return i.evaluateCondition(n, env)
	case *ast.ForLoop:
		return i.evaluateForLoop(n, env)
	case *ast.WhileDoLoop:
		return i.evaluateWhileLoop(n.Guard, n.Body, false, env)
	case *ast.DoWhileLoop:
		return i.evaluateWhileLoop(n.Guard, n.Body, true, env)
	case *ast.BreakStatement:
		return Completion{Kind: CompletionBreak}, nil
	case *ast.ContinueStatement:
		return Completion{Kind: CompletionContinue}, nil
	case *ast.ReturnStatement:
		return i.evaluateReturnStatement(n, env)
	case *ast.ThrowStatement:
		val, err := i.evaluateExpression(n.Value, env)
		if err != nil {
			return completionFromError(err)
		}
		return throwCompletion(runtime.Copy(val), nil), nil
	case *ast.TryCatch:
		return i.evaluateTryCatch(n, env)
	default:
		return Completion{}, structuralf(runtime.InvalidDefinition, "unsupported statement type: %s", node.NodeType())
	}
}

func (i *Interpreter) evaluateVariableDeclaration(decl *ast.VariableDeclaration, env *environment) (Completion, error) {
	for _, binding := range decl.Bindings {
		name, err := declarationName(binding.ID, "variable")
		if err != nil {
			return Completion{}, err
		}
		var val runtime.Value = runtime.NullValue{}
		if binding.Value != nil {
			val, err = i.evaluateExpression(binding.Value, env)
			if err != nil {
				return completionFromError(err)
			}
		}
		if err := env.stack.Define(name, runtime.Copy(val)); err != nil {
			return Completion{}, structural(err)
		}
	}
	return normal(nil), nil
}

// evaluateNamespaceDeclaration runs the variables and statements of a
// namespace body once, in the namespace's own scope pair.
func (i *Interpreter) evaluateNamespaceDeclaration(decl *ast.NamespaceDeclaration, env *environment) (Completion, error) {
	decls, _ := env.stack.Top()
	ns, ok := decls[decl.ID.Name].(*runtime.NamespaceValue)
	if !ok || ns.Node != decl {
		return Completion{}, structuralf(runtime.InvalidDefinition, "namespace '%s' was not hoisted", decl.ID.Name)
	}
	return i.runNamespaceBody(ns, env)
}

func (i *Interpreter) runNamespaceBody(ns *runtime.NamespaceValue, env *environment) (Completion, error) {
	if ns.Executed || ns.Node == nil || ns.Node.Body == nil {
		return normal(nil), nil
	}
	ns.Executed = true
	c, err := i.executeItems(ns.Node.Body.Items, env.with(ns.Scope, env.class))
	if err != nil {
		return Completion{}, err
	}
	switch c.Kind {
	case CompletionBreak, CompletionContinue, CompletionReturn:
		return Completion{}, structuralf(runtime.InvalidControlFlow, "%s escapes the body of namespace '%s'", c.Kind, ns.Name)
	case CompletionThrow:
		return c, nil
	}
	return normal(nil), nil
}

func (i *Interpreter) evaluateCondition(cond *ast.Condition, env *environment) (Completion, error) {
	guard, err := i.evaluateGuard(cond.Guard, "condition", env)
	if err != nil {
		return completionFromError(err)
	}
	if guard {
		return i.evaluateStatement(cond.Then, env)
	}
	if cond.Else != nil {
		return i.evaluateStatement(cond.Else, env)
	}
	return normal(nil), nil
}

func (i *Interpreter) evaluateGuard(expr ast.Expression, what string, env *environment) (bool, error) {
	val, err := i.evaluateExpression(expr, env)
	if err != nil {
		return false, err
	}
	b, ok := runtime.Truthy(val)
	if !ok {
		return false, runtime.Errorf(runtime.TypeMismatch, "%s guard must be a boolean, got %s", what, val.Kind())
	}
	return b, nil
}

func (i *Interpreter) evaluateWhileLoop(guard ast.Expression, body ast.Statement, bodyFirst bool, env *environment) (Completion, error) {
	first := bodyFirst
	for {
		if err := env.state.checkAbort(); err != nil {
			return Completion{}, err
		}
		if !first {
			ok, err := i.evaluateGuard(guard, "loop", env)
			if err != nil {
				return completionFromError(err)
			}
			if !ok {
				return normal(nil), nil
			}
		}
		first = false
		c, err := i.evaluateStatement(body, env)
		if err != nil {
			return Completion{}, err
		}
		switch c.Kind {
		case CompletionBreak:
			return normal(nil), nil
		case CompletionReturn, CompletionThrow:
			return c, nil
		}
	}
}

func (i *Interpreter) evaluateForLoop(loop *ast.ForLoop, env *environment) (Completion, error) {
	iterable, err := i.evaluateExpression(loop.Iterable, env)
	if err != nil {
		return completionFromError(err)
	}
	arr, ok := iterable.(*runtime.ArrayValue)
	if !ok {
		return completionFromError(runtime.Errorf(runtime.TypeMismatch, "for-loop iterable must be an array, got %s", iterable.Kind()))
	}
	elements := append([]runtime.Value(nil), arr.Elements...)
	for _, el := range elements {
		if err := env.state.checkAbort(); err != nil {
			return Completion{}, err
		}
		c, err := i.runForIteration(loop, el, env)
		if err != nil {
			return Completion{}, err
		}
		switch c.Kind {
		case CompletionBreak:
			return normal(nil), nil
		case CompletionReturn, CompletionThrow:
			return c, nil
		}
	}
	return normal(nil), nil
}

func (i *Interpreter) runForIteration(loop *ast.ForLoop, el runtime.Value, env *environment) (Completion, error) {
	env.stack.Push()
	defer env.stack.Pop()
	switch v := loop.Variable.(type) {
	case *ast.Identifier:
		if err := env.stack.Define(v.Name, runtime.Copy(el)); err != nil {
			return Completion{}, structural(err)
		}
	case *ast.Name:
		if err := i.assignName(v, runtime.Copy(el), env); err != nil {
			return completionFromError(err)
		}
	}
	return i.evaluateStatement(loop.Body, env)
}

func (i *Interpreter) evaluateReturnStatement(stmt *ast.ReturnStatement, env *environment) (Completion, error) {
	var result runtime.Value = runtime.NullValue{}
	if stmt.Value != nil {
		val, err := i.evaluateExpression(stmt.Value, env)
		if err != nil {
			return completionFromError(err)
		}
		result = val
	}
	return Completion{Kind: CompletionReturn, Value: result}, nil
}

// evaluateTryCatch binds a Throw from the try branch in a fresh scope and
// runs the catch branch there. A throw from the catch branch propagates.
func (i *Interpreter) evaluateTryCatch(stmt *ast.TryCatch, env *environment) (Completion, error) {
	c, err := i.evaluateStatement(stmt.Try, env)
	if err != nil || c.Kind != CompletionThrow {
		return c, err
	}
	i.logger.Debug().Str("value", runtime.Inspect(valueOrNull(c.Value))).Msg("caught throw")
	env.stack.Push()
	defer env.stack.Pop()
	if stmt.Error != nil && stmt.Error.Name != "" {
		if err := env.stack.Define(stmt.Error.Name, valueOrNull(c.Value)); err != nil {
			return Completion{}, structural(err)
		}
	}
	return i.evaluateStatement(stmt.Catch, env)
}
