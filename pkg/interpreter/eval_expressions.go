package interpreter

import (
	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(node ast.Expression, env *environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.NullLiteral:
		return runtime.NullValue{}, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.IntegerLiteral:
		return runtime.NumberValue{Val: n.Value}, nil
	case *ast.RealLiteral:
		return runtime.RealValue{Val: n.Value}, nil
	case *ast.StringLiteral:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.ArrayLiteral:
		return i.evaluateArrayLiteral(n, env)
	case *ast.DictionaryLiteral:
		return i.evaluateDictionaryLiteral(n, env)
	case *ast.LambdaLiteral:
		return &runtime.FunctionValue{
			Params:  n.Params,
			Body:    n.Body,
			Closure: env.stack.Fork(),
			Owner:   env.class,
		}, nil
	case *ast.Group:
		return i.evaluateExpression(n.Inner, env)
	case *ast.Name:
		return i.evaluateName(n, env)
	case *ast.UnaryOperation:
		operand, err := i.evaluateExpression(n.Operand, env)
		if err != nil {
			return nil, err
		}
		return runtime.UnaryOperate(n.Operator, operand)
	case *ast.BinaryOperation:
		return i.evaluateBinaryOperation(n, env)
	case *ast.FunctionCall:
		return i.evaluateFunctionCall(n, env)
	case *ast.ItemAccess:
		container, err := i.evaluateExpression(n.Container, env)
		if err != nil {
			return nil, err
		}
		index, err := i.evaluateExpression(n.Index, env)
		if err != nil {
			return nil, err
		}
		return itemValue(container, index)
	case *ast.MemberAccess:
		object, err := i.evaluateExpression(n.Object, env)
		if err != nil {
			return nil, err
		}
		if n.Member == nil {
			return nil, runtime.Errorf(runtime.UndefinedReference, "member access without a member name")
		}
		return i.memberValue(object, n.Member.Name, env)
	case nil:
		return nil, runtime.Errorf(runtime.OperationNotPossible, "missing expression")
	default:
		return nil, runtime.Errorf(runtime.OperationNotPossible, "unsupported expression type: %s", node.NodeType())
	}
}

func (i *Interpreter) evaluateArrayLiteral(lit *ast.ArrayLiteral, env *environment) (runtime.Value, error) {
	elements := make([]runtime.Value, 0, len(lit.Elements))
	for _, el := range lit.Elements {
		val, err := i.evaluateExpression(el, env)
		if err != nil {
			return nil, err
		}
		elements = append(elements, runtime.Copy(val))
	}
	return runtime.NewArray(elements), nil
}

func (i *Interpreter) evaluateDictionaryLiteral(lit *ast.DictionaryLiteral, env *environment) (runtime.Value, error) {
	dict := runtime.NewDictionary()
	for _, entry := range lit.Entries {
		val, err := i.evaluateExpression(entry.Value, env)
		if err != nil {
			return nil, err
		}
		dict.Entries[entry.Key] = runtime.Copy(val)
	}
	return dict, nil
}

// evaluateName resolves the first segment lexically and every later segment
// as a member of the value before it.
func (i *Interpreter) evaluateName(name *ast.Name, env *environment) (runtime.Value, error) {
	parts := name.Strings()
	if len(parts) == 0 {
		return nil, runtime.Errorf(runtime.UndefinedReference, "empty name")
	}
	val, ok := env.stack.Lookup(parts[0])
	if !ok {
		return nil, runtime.Errorf(runtime.UndefinedReference, "'%s' is not defined", parts[0])
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

func (i *Interpreter) evaluateBinaryOperation(expr *ast.BinaryOperation, env *environment) (runtime.Value, error) {
	left, err := i.evaluateExpression(expr.Left, env)
	if err != nil {
		return nil, err
	}
	if expr.Operator == ast.BinaryAnd || expr.Operator == ast.BinaryOr {
		lb, ok := left.(runtime.BoolValue)
		if !ok {
			return nil, runtime.Errorf(runtime.OperationNotPossible, "'%s' requires boolean operands, got %s", expr.Operator, left.Kind())
		}
		if expr.Operator == ast.BinaryAnd && !lb.Val {
			return runtime.BoolValue{Val: false}, nil
		}
		if expr.Operator == ast.BinaryOr && lb.Val {
			return runtime.BoolValue{Val: true}, nil
		}
	}
	right, err := i.evaluateExpression(expr.Right, env)
	if err != nil {
		return nil, err
	}
	return runtime.BinaryOperate(expr.Operator, left, right)
}

// place is an assignable location.
type place struct {
	get func() (runtime.Value, error)
	set func(runtime.Value) error
}

func bindingPlace(binding *runtime.Binding) place {
	return place{
		get: func() (runtime.Value, error) { return valueOrNull(binding.Value), nil },
		set: func(v runtime.Value) error {
			binding.Value = v
			return nil
		},
	}
}

func (i *Interpreter) evaluateAssignment(assign *ast.Assignment, env *environment) (Completion, error) {
	value, err := i.evaluateExpression(assign.Value, env)
	if err != nil {
		return completionFromError(err)
	}
	target, err := i.resolvePlace(assign.Target, env)
	if err != nil {
		return completionFromError(err)
	}
	if assign.Operator != ast.AssignEquals {
		op, ok := binaryOpForAssignment(assign.Operator)
		if !ok {
			return completionFromError(runtime.Errorf(runtime.OperationNotPossible, "unsupported assignment operator %q", assign.Operator))
		}
		current, err := target.get()
		if err != nil {
			return completionFromError(err)
		}
		value, err = runtime.BinaryOperate(op, current, value)
		if err != nil {
			return completionFromError(err)
		}
	}
	value = runtime.Copy(value)
	if err := target.set(value); err != nil {
		return completionFromError(err)
	}
	return normal(value), nil
}

func binaryOpForAssignment(op ast.AssignmentOperator) (ast.BinaryOperator, bool) {
	switch op {
	case ast.AssignAdd:
		return ast.BinaryAdd, true
	case ast.AssignSub:
		return ast.BinarySub, true
	case ast.AssignMul:
		return ast.BinaryMul, true
	case ast.AssignDiv:
		return ast.BinaryRDiv, true
	case ast.AssignMod:
		return ast.BinaryMod, true
	case ast.AssignExp:
		return ast.BinaryPow, true
	default:
		return "", false
	}
}

func (i *Interpreter) resolvePlace(target ast.AssignmentTarget, env *environment) (place, error) {
	switch t := target.(type) {
	case *ast.Name:
		return i.namePlace(t, env)
	case *ast.ItemAccess:
		container, err := i.evaluateExpression(t.Container, env)
		if err != nil {
			return place{}, err
		}
		index, err := i.evaluateExpression(t.Index, env)
		if err != nil {
			return place{}, err
		}
		return itemPlace(container, index)
	case *ast.MemberAccess:
		object, err := i.evaluateExpression(t.Object, env)
		if err != nil {
			return place{}, err
		}
		if t.Member == nil {
			return place{}, runtime.Errorf(runtime.UndefinedReference, "member access without a member name")
		}
		return i.memberPlace(object, t.Member.Name, env)
	default:
		return place{}, runtime.Errorf(runtime.OperationNotPossible, "cannot assign to %T", target)
	}
}

func (i *Interpreter) namePlace(name *ast.Name, env *environment) (place, error) {
	parts := name.Strings()
	switch len(parts) {
	case 0:
		return place{}, runtime.Errorf(runtime.UndefinedReference, "empty name")
	case 1:
		if binding, ok := env.stack.LookupBinding(parts[0]); ok {
			return bindingPlace(binding), nil
		}
		if _, ok := env.stack.Lookup(parts[0]); ok {
			return place{}, runtime.Errorf(runtime.OperationNotPossible, "cannot assign to declaration '%s'", parts[0])
		}
		return place{}, runtime.Errorf(runtime.UndefinedReference, "'%s' is not defined", parts[0])
	}
	holder, err := i.evaluateName(ast.NewName(name.Parts[:len(name.Parts)-1]), env)
	if err != nil {
		return place{}, err
	}
	return i.memberPlace(holder, parts[len(parts)-1], env)
}

// assignName stores v into the existing target named by name.
func (i *Interpreter) assignName(name *ast.Name, v runtime.Value, env *environment) error {
	target, err := i.namePlace(name, env)
	if err != nil {
		return err
	}
	return target.set(v)
}
