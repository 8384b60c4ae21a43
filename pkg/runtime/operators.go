package runtime

import (
	"math"

	"tscript/interpreter-go/pkg/ast"
)

// UnaryOperate applies a prefix operator.
func UnaryOperate(op ast.UnaryOperator, operand Value) (Value, error) {
	switch op {
	case ast.UnaryNot:
		b, ok := operand.(BoolValue)
		if !ok {
			return nil, Errorf(OperationNotPossible, "'Not' requires a boolean, got %s", operand.Kind())
		}
		return BoolValue{Val: !b.Val}, nil
	case ast.UnaryAdd:
		switch v := operand.(type) {
		case NumberValue, RealValue:
			return v, nil
		}
		return nil, Errorf(OperationNotPossible, "unary 'Add' requires a number, got %s", operand.Kind())
	case ast.UnarySub:
		switch v := operand.(type) {
		case NumberValue:
			if v.Val == math.MinInt32 {
				return nil, Errorf(OperationNotPossible, "negation of %d overflows", v.Val)
			}
			return NumberValue{Val: -v.Val}, nil
		case RealValue:
			return RealValue{Val: -v.Val}, nil
		}
		return nil, Errorf(OperationNotPossible, "unary 'Sub' requires a number, got %s", operand.Kind())
	default:
		return nil, Errorf(OperationNotPossible, "unsupported unary operator %q", op)
	}
}

// BinaryOperate applies an infix operator to two evaluated operands. And and
// Or are accepted here too; callers that need short-circuiting handle them
// before evaluating the right side.
func BinaryOperate(op ast.BinaryOperator, left, right Value) (Value, error) {
	switch op {
	case ast.BinaryEq:
		return BoolValue{Val: Equal(left, right)}, nil
	case ast.BinaryNeq:
		return BoolValue{Val: !Equal(left, right)}, nil
	case ast.BinaryLt, ast.BinaryGt, ast.BinaryLeq, ast.BinaryGeq:
		return compare(op, left, right)
	case ast.BinaryAnd, ast.BinaryOr, ast.BinaryXor:
		return logical(op, left, right)
	case ast.BinaryRange:
		return rangeOf(left, right)
	case ast.BinaryAdd:
		if ls, ok := left.(StringValue); ok {
			if rs, ok := right.(StringValue); ok {
				return StringValue{Val: ls.Val + rs.Val}, nil
			}
		}
		return arithmetic(op, left, right)
	case ast.BinarySub, ast.BinaryMul, ast.BinaryRDiv, ast.BinaryIDiv, ast.BinaryMod, ast.BinaryPow:
		return arithmetic(op, left, right)
	default:
		return nil, Errorf(OperationNotPossible, "unsupported binary operator %q", op)
	}
}

func numericOperands(op ast.BinaryOperator, left, right Value) (int32, int32, float64, float64, bool, error) {
	var li, ri int32
	var lf, rf float64
	bothInt := true
	switch v := left.(type) {
	case NumberValue:
		li, lf = v.Val, float64(v.Val)
	case RealValue:
		lf, bothInt = v.Val, false
	default:
		return 0, 0, 0, 0, false, Errorf(OperationNotPossible, "'%s' requires numeric operands, got %s and %s", op, left.Kind(), right.Kind())
	}
	switch v := right.(type) {
	case NumberValue:
		ri, rf = v.Val, float64(v.Val)
	case RealValue:
		rf, bothInt = v.Val, false
	default:
		return 0, 0, 0, 0, false, Errorf(OperationNotPossible, "'%s' requires numeric operands, got %s and %s", op, left.Kind(), right.Kind())
	}
	return li, ri, lf, rf, bothInt, nil
}

func checkedNumber(op ast.BinaryOperator, result int64) (Value, error) {
	if result > math.MaxInt32 || result < math.MinInt32 {
		return nil, Errorf(OperationNotPossible, "'%s' overflows a 32-bit number", op)
	}
	return NumberValue{Val: int32(result)}, nil
}

func arithmetic(op ast.BinaryOperator, left, right Value) (Value, error) {
	li, ri, lf, rf, bothInt, err := numericOperands(op, left, right)
	if err != nil {
		return nil, err
	}
	switch op {
	case ast.BinaryAdd:
		if bothInt {
			return checkedNumber(op, int64(li)+int64(ri))
		}
		return RealValue{Val: lf + rf}, nil
	case ast.BinarySub:
		if bothInt {
			return checkedNumber(op, int64(li)-int64(ri))
		}
		return RealValue{Val: lf - rf}, nil
	case ast.BinaryMul:
		if bothInt {
			return checkedNumber(op, int64(li)*int64(ri))
		}
		return RealValue{Val: lf * rf}, nil
	case ast.BinaryRDiv:
		if rf == 0 {
			return nil, Errorf(OperationNotPossible, "division by zero")
		}
		return RealValue{Val: lf / rf}, nil
	case ast.BinaryIDiv:
		if rf == 0 {
			return nil, Errorf(OperationNotPossible, "division by zero")
		}
		if bothInt {
			return checkedNumber(op, int64(li)/int64(ri))
		}
		return RealValue{Val: math.Trunc(lf / rf)}, nil
	case ast.BinaryMod:
		if rf == 0 {
			return nil, Errorf(OperationNotPossible, "modulo by zero")
		}
		if bothInt {
			return NumberValue{Val: int32(int64(li) % int64(ri))}, nil
		}
		return RealValue{Val: math.Mod(lf, rf)}, nil
	case ast.BinaryPow:
		if bothInt && ri >= 0 {
			return integerPow(li, ri)
		}
		return RealValue{Val: math.Pow(lf, rf)}, nil
	}
	return nil, Errorf(OperationNotPossible, "unsupported arithmetic operator %q", op)
}

func integerPow(base, exp int32) (Value, error) {
	switch base {
	case 0:
		if exp == 0 {
			return NumberValue{Val: 1}, nil
		}
		return NumberValue{Val: 0}, nil
	case 1:
		return NumberValue{Val: 1}, nil
	case -1:
		if exp%2 == 0 {
			return NumberValue{Val: 1}, nil
		}
		return NumberValue{Val: -1}, nil
	}
	// |base| >= 2 overflows within 32 steps.
	result := int64(1)
	for i := int32(0); i < exp; i++ {
		result *= int64(base)
		if result > math.MaxInt32 || result < math.MinInt32 {
			return nil, Errorf(OperationNotPossible, "'%s' overflows a 32-bit number", ast.BinaryPow)
		}
	}
	return NumberValue{Val: int32(result)}, nil
}

func compare(op ast.BinaryOperator, left, right Value) (Value, error) {
	var cmp int
	ls, lok := left.(StringValue)
	rs, rok := right.(StringValue)
	switch {
	case lok && rok:
		switch {
		case ls.Val < rs.Val:
			cmp = -1
		case ls.Val > rs.Val:
			cmp = 1
		}
	case left.Kind() == KindNumber && right.Kind() == KindNumber:
		ln, rn := left.(NumberValue).Val, right.(NumberValue).Val
		switch {
		case ln < rn:
			cmp = -1
		case ln > rn:
			cmp = 1
		}
	case left.Kind() == KindReal && right.Kind() == KindReal:
		lf, rf := left.(RealValue).Val, right.(RealValue).Val
		if math.IsNaN(lf) || math.IsNaN(rf) {
			return BoolValue{Val: false}, nil
		}
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	default:
		return nil, Errorf(OperationNotPossible, "cannot order %s and %s", left.Kind(), right.Kind())
	}
	switch op {
	case ast.BinaryLt:
		return BoolValue{Val: cmp < 0}, nil
	case ast.BinaryGt:
		return BoolValue{Val: cmp > 0}, nil
	case ast.BinaryLeq:
		return BoolValue{Val: cmp <= 0}, nil
	default:
		return BoolValue{Val: cmp >= 0}, nil
	}
}

func logical(op ast.BinaryOperator, left, right Value) (Value, error) {
	lb, lok := left.(BoolValue)
	rb, rok := right.(BoolValue)
	if !lok || !rok {
		return nil, Errorf(OperationNotPossible, "'%s' requires boolean operands, got %s and %s", op, left.Kind(), right.Kind())
	}
	switch op {
	case ast.BinaryAnd:
		return BoolValue{Val: lb.Val && rb.Val}, nil
	case ast.BinaryOr:
		return BoolValue{Val: lb.Val || rb.Val}, nil
	default:
		return BoolValue{Val: lb.Val != rb.Val}, nil
	}
}

// MaxRangeLength bounds the array built by the Range operator.
const MaxRangeLength = 1 << 24

func rangeOf(left, right Value) (Value, error) {
	start, lok := left.(NumberValue)
	end, rok := right.(NumberValue)
	if !lok || !rok {
		return nil, Errorf(OperationNotPossible, "'Range' requires number operands, got %s and %s", left.Kind(), right.Kind())
	}
	if start.Val > end.Val {
		return NewArray([]Value{}), nil
	}
	length := int64(end.Val) - int64(start.Val) + 1
	if length > MaxRangeLength {
		return nil, Errorf(OperationNotPossible, "'Range' of %d elements exceeds the limit of %d", length, MaxRangeLength)
	}
	elements := make([]Value, 0, length)
	for i := int64(start.Val); i <= int64(end.Val); i++ {
		elements = append(elements, NumberValue{Val: int32(i)})
	}
	return NewArray(elements), nil
}
