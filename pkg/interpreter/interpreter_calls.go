package interpreter

import (
	"errors"

	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

// callArgument is an evaluated argument; name is empty for positional ones.
type callArgument struct {
	name  string
	value runtime.Value
}

func positional(values []runtime.Value) []callArgument {
	args := make([]callArgument, 0, len(values))
	for _, v := range values {
		args = append(args, callArgument{value: v})
	}
	return args
}

func (i *Interpreter) evaluateFunctionCall(call *ast.FunctionCall, env *environment) (runtime.Value, error) {
	callee, err := i.evaluateExpression(call.Callee, env)
	if err != nil {
		return nil, err
	}
	args := make([]callArgument, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		val, err := i.evaluateExpression(arg.Value, env)
		if err != nil {
			return nil, err
		}
		name := ""
		if arg.Name != nil {
			name = arg.Name.Name
		}
		args = append(args, callArgument{name: name, value: val})
	}
	return i.callValue(callee, args, env)
}

func (i *Interpreter) callValue(callee runtime.Value, args []callArgument, env *environment) (runtime.Value, error) {
	switch fn := callee.(type) {
	case *runtime.FunctionValue:
		return i.invokeFunction(fn, nil, args, env)
	case runtime.BoundMethodValue:
		return i.invokeFunction(fn.Method, fn.Receiver, args, env)
	case runtime.NativeFunctionValue:
		return i.invokeNative(fn, args, env)
	case *runtime.ClassValue:
		return i.construct(fn, args, env)
	default:
		return nil, runtime.Errorf(runtime.OperationNotPossible, "%s is not callable", runtime.Inspect(valueOrNull(callee)))
	}
}

func (i *Interpreter) enterCall(env *environment, name string) error {
	env.state.depth++
	if env.state.depth > i.maxDepth {
		env.state.depth--
		return runtime.Errorf(runtime.OperationNotPossible, "maximum call depth of %d exceeded calling '%s'", i.maxDepth, name)
	}
	i.logger.Debug().Str("function", name).Int("depth", env.state.depth).Msg("call")
	return nil
}

func (i *Interpreter) leaveCall(env *environment) {
	env.state.depth--
}

// invokeFunction runs fn on a fresh scope pair layered on its closure. Class
// members also see their class frames; receiver is set for instance methods.
func (i *Interpreter) invokeFunction(fn *runtime.FunctionValue, receiver *runtime.ObjectValue, args []callArgument, env *environment) (runtime.Value, error) {
	name := functionName(fn)
	if err := i.enterCall(env, name); err != nil {
		return nil, err
	}
	defer i.leaveCall(env)

	stack := fn.Closure.Fork()
	if fn.Member && fn.Owner != nil {
		if err := i.ensureStatics(fn.Owner, env); err != nil {
			return nil, err
		}
		i.pushStaticFrames(stack, fn.Owner)
		if receiver != nil {
			i.pushInstanceFrame(stack, receiver, fn.Owner)
		}
	}
	stack.Push()
	callEnv := env.with(stack, fn.Owner)
	if err := i.bindParameters(fn.Params, args, callEnv, name); err != nil {
		return nil, err
	}
	c, err := i.executeBlockIn(fn.Body, callEnv)
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case CompletionReturn:
		return valueOrNull(c.Value), nil
	case CompletionThrow:
		return nil, errorFromCompletion(c)
	case CompletionBreak, CompletionContinue:
		return nil, structuralf(runtime.InvalidControlFlow, "%s escapes function '%s'", c.Kind, name)
	default:
		return runtime.NullValue{}, nil
	}
}

func functionName(fn *runtime.FunctionValue) string {
	switch {
	case fn.Name == "":
		return "<lambda>"
	case fn.Member && fn.Owner != nil:
		return fn.Owner.Name + "::" + fn.Name
	default:
		return fn.Name
	}
}

// bindParameters defines params in the innermost scope of env: positional
// arguments first, then named arguments, then defaults. Defaults evaluate
// in the parameter scope and may refer to earlier parameters.
func (i *Interpreter) bindParameters(params []*ast.Parameter, args []callArgument, env *environment, callee string) error {
	values := make([]runtime.Value, len(params))
	set := make([]bool, len(params))
	next := 0
	for _, arg := range args {
		if arg.name != "" {
			continue
		}
		if next >= len(params) {
			return runtime.Errorf(runtime.OperationNotPossible, "too many arguments for '%s': expected at most %d", callee, len(params))
		}
		values[next] = arg.value
		set[next] = true
		next++
	}
	for _, arg := range args {
		if arg.name == "" {
			continue
		}
		idx := -1
		for pi, param := range params {
			if param.ID != nil && param.ID.Name == arg.name {
				idx = pi
				break
			}
		}
		if idx < 0 {
			return runtime.Errorf(runtime.OperationNotPossible, "'%s' has no parameter named '%s'", callee, arg.name)
		}
		values[idx] = arg.value
		set[idx] = true
	}
	for idx, param := range params {
		name, err := declarationName(param.ID, "parameter")
		if err != nil {
			return err
		}
		val := values[idx]
		if !set[idx] {
			if param.Default == nil {
				return runtime.Errorf(runtime.OperationNotPossible, "missing argument '%s' for '%s'", name, callee)
			}
			val, err = i.evaluateExpression(param.Default, env)
			if err != nil {
				return err
			}
		}
		if err := env.stack.Define(name, runtime.Copy(val)); err != nil {
			return structural(err)
		}
	}
	return nil
}

func (i *Interpreter) invokeNative(fn runtime.NativeFunctionValue, args []callArgument, env *environment) (runtime.Value, error) {
	values := make([]runtime.Value, 0, len(args))
	for _, arg := range args {
		if arg.name != "" {
			return nil, runtime.Errorf(runtime.OperationNotPossible, "built-in '%s' does not accept named arguments", fn.Name)
		}
		values = append(values, runtime.Copy(arg.value))
	}
	if fn.Arity >= 0 && len(values) != fn.Arity {
		return nil, runtime.Errorf(runtime.OperationNotPossible, "built-in '%s' expects %d arguments, got %d", fn.Name, fn.Arity, len(values))
	}
	ctx := &runtime.NativeCallContext{
		Out: i.stdout,
		In:  i.stdin,
		Invoke: func(callee runtime.Value, vals []runtime.Value) (runtime.Value, error) {
			return i.callValue(callee, positional(vals), env.with(i.global.Fork(), nil))
		},
	}
	result, err := fn.Impl(ctx, values)
	if err != nil {
		var rerr *runtime.Error
		var thrown *thrownError
		var serr *StructuralError
		if errors.As(err, &rerr) || errors.As(err, &thrown) || errors.As(err, &serr) {
			return nil, err
		}
		return nil, runtime.Errorf(runtime.HostFailure, "%s: %v", fn.Name, err)
	}
	return valueOrNull(result), nil
}
