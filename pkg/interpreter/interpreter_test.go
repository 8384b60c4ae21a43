package interpreter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

func TestExecuteReturnsLastValue(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Var("x", ast.Int(2)),
		ast.Expr(ast.Bin(ast.BinaryAdd, ast.N("x"), ast.Int(3))),
	)
	expectNumber(t, val, 5)
}

func TestExecuteNilProgram(t *testing.T) {
	interp, _ := newTestInterpreter()
	val, err := interp.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := val.(runtime.NullValue); !ok {
		t.Fatalf("expected null, got %#v", val)
	}
}

func TestTopLevelReturnStopsProgram(t *testing.T) {
	interp, out := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Ret(ast.Int(1)),
		printN(ast.Str("unreachable")),
	)
	expectNumber(t, val, 1)
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestFunctionsAreHoisted(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Var("r", ast.CallN("twice", ast.Int(4))),
		ast.Fn("twice", ast.Params("n"), ast.Ret(ast.Bin(ast.BinaryMul, ast.N("n"), ast.Int(2)))),
		ast.Expr(ast.N("r")),
	)
	expectNumber(t, val, 8)
}

func TestVariablesAreNotHoisted(t *testing.T) {
	interp, _ := newTestInterpreter()
	uncaught := expectUncaught(t, interp, runtime.UndefinedReference,
		printN(ast.N("later")),
		ast.Var("later", ast.Int(1)),
	)
	if uncaught.Cause.Message != "'later' is not defined" {
		t.Fatalf("unexpected message %q", uncaught.Cause.Message)
	}
}

func TestBlockScopesVariables(t *testing.T) {
	out := mustOutput(t,
		ast.Var("x", ast.Str("outer")),
		ast.Do(
			ast.Var("x", ast.Str("inner")),
			printN(ast.N("x")),
		),
		printN(ast.N("x")),
	)
	if out != "inner\nouter\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestConflictingDeclarationsAreStructural(t *testing.T) {
	interp, _ := newTestInterpreter()
	expectStructural(t, interp, runtime.ConflictWithPreviousDeclaration,
		ast.Var("x", ast.Int(1)),
		ast.Var("x", ast.Int(2)),
	)

	// The variable collides with the hoisted function once it is reached.
	interp, out := newTestInterpreter()
	expectStructural(t, interp, runtime.ConflictWithPreviousDeclaration,
		printN(ast.Str("before")),
		ast.Fn("f", nil),
		ast.Var("f", ast.Int(1)),
	)
	if out.String() != "before\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestHoistingConflictFailsBeforeExecution(t *testing.T) {
	interp, out := newTestInterpreter()
	expectStructural(t, interp, runtime.ConflictWithPreviousDeclaration,
		printN(ast.Str("never")),
		ast.Fn("f", nil),
		ast.Class("f", nil),
	)
	if out.Len() != 0 {
		t.Fatalf("expected no output, got %q", out.String())
	}
}

func TestClosuresShareBindings(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Fn("counter", nil,
			ast.Var("n", ast.Int(0)),
			ast.Ret(ast.Lambda(nil,
				ast.AssignOp(ast.N("n"), ast.AssignAdd, ast.Int(1)),
				ast.Ret(ast.N("n")),
			)),
		),
		ast.Var("next", ast.CallN("counter")),
		ast.Expr(ast.CallN("next")),
		ast.Expr(ast.CallN("next")),
	)
	expectNumber(t, val, 2)
}

func TestContainersCopyOnAssignment(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Var("a", ast.Arr(ast.Int(1), ast.Int(2))),
		ast.Var("b", ast.N("a")),
		ast.Assign(ast.Item(ast.N("b"), ast.Int(0)), ast.Int(9)),
		ast.Expr(ast.Arr(ast.N("a"), ast.N("b"))),
	)
	expectInspect(t, val, "[[1, 2], [9, 2]]")

	interp, _ = newTestInterpreter()
	val = mustExecute(t, interp,
		ast.Fn("mutate", ast.Params("d"), ast.Assign(ast.Item(ast.N("d"), ast.Str("k")), ast.Int(2))),
		ast.Var("d", ast.Dict(ast.Entry("k", ast.Int(1)))),
		ast.Expr(ast.CallN("mutate", ast.N("d"))),
		ast.Expr(ast.Item(ast.N("d"), ast.Str("k"))),
	)
	expectNumber(t, val, 1)
}

func TestCompoundAssignment(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Var("x", ast.Int(10)),
		ast.AssignOp(ast.N("x"), ast.AssignSub, ast.Int(4)),
		ast.AssignOp(ast.N("x"), ast.AssignMul, ast.Int(3)),
		ast.AssignOp(ast.N("x"), ast.AssignMod, ast.Int(7)),
		ast.Expr(ast.N("x")),
	)
	expectNumber(t, val, 4)

	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.OperationNotPossible,
		ast.Fn("f", nil),
		ast.Assign(ast.N("f"), ast.Int(1)),
	)
}

func TestForLoopBreakAndContinue(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Var("sum", ast.Int(0)),
		ast.For(ast.ID("i"), ast.Bin(ast.BinaryRange, ast.Int(1), ast.Int(10)), ast.Do(
			ast.If(ast.Bin(ast.BinaryEq, ast.Bin(ast.BinaryMod, ast.N("i"), ast.Int(2)), ast.Int(0)), ast.Cont(), nil),
			ast.If(ast.Bin(ast.BinaryGt, ast.N("i"), ast.Int(7)), ast.Brk(), nil),
			ast.AssignOp(ast.N("sum"), ast.AssignAdd, ast.N("i")),
		)),
		ast.Expr(ast.N("sum")),
	)
	expectNumber(t, val, 16)
}

func TestReturnInsideLoopEndsCall(t *testing.T) {
	interp, out := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Fn("firstOver", ast.Params("limit"),
			ast.For(ast.ID("i"), ast.Bin(ast.BinaryRange, ast.Int(1), ast.Int(5)), ast.Do(
				printN(ast.N("i")),
				ast.If(ast.Bin(ast.BinaryGt, ast.N("i"), ast.N("limit")), ast.Ret(ast.N("i")), nil),
			)),
			ast.Ret(ast.Int(-1)),
		),
		ast.Expr(ast.CallN("firstOver", ast.Int(1))),
	)
	expectNumber(t, val, 2)
	if out.String() != "1\n2\n" {
		t.Fatalf("loop kept running after return: %q", out.String())
	}
}

func TestBreakInNestedBlockEndsInnerLoopOnly(t *testing.T) {
	out := mustOutput(t,
		ast.For(ast.ID("i"), ast.Arr(ast.Int(1), ast.Int(2)), ast.Do(
			ast.For(ast.ID("j"), ast.Arr(ast.Int(1), ast.Int(2), ast.Int(3)), ast.Do(
				printN(ast.N("i"), ast.N("j")),
				ast.Do(ast.Do(ast.Brk())),
				printN(ast.Str("unreachable")),
			)),
		)),
	)
	if out != "1 1\n2 1\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestForLoopAssignsExistingName(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Var("last", ast.Null()),
		ast.For(ast.N("last"), ast.Arr(ast.Str("a"), ast.Str("b")), ast.Do()),
		ast.Expr(ast.N("last")),
	)
	expectString(t, val, "b")
}

func TestForLoopRequiresArray(t *testing.T) {
	interp, _ := newTestInterpreter()
	expectUncaught(t, interp, runtime.TypeMismatch,
		ast.For(ast.ID("c"), ast.Str("abc"), ast.Do()),
	)
}

func TestWhileAndDoWhileLoops(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Var("n", ast.Int(3)),
		ast.Var("acc", ast.Str("")),
		ast.While(ast.Bin(ast.BinaryGt, ast.N("n"), ast.Int(0)), ast.Do(
			ast.AssignOp(ast.N("acc"), ast.AssignAdd, ast.CallN("str", ast.N("n"))),
			ast.AssignOp(ast.N("n"), ast.AssignSub, ast.Int(1)),
		)),
		ast.Expr(ast.N("acc")),
	)
	expectString(t, val, "321")

	interp, _ = newTestInterpreter()
	val = mustExecute(t, interp,
		ast.Var("runs", ast.Int(0)),
		ast.DoWhile(ast.AssignOp(ast.N("runs"), ast.AssignAdd, ast.Int(1)), ast.Bool(false)),
		ast.Expr(ast.N("runs")),
	)
	expectNumber(t, val, 1)
}

func TestGuardsMustBeBoolean(t *testing.T) {
	interp, _ := newTestInterpreter()
	expectUncaught(t, interp, runtime.TypeMismatch,
		ast.If(ast.Int(1), ast.Do(), nil),
	)
	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.TypeMismatch,
		ast.While(ast.Null(), ast.Do()),
	)
}

func TestLogicalOperatorsShortCircuit(t *testing.T) {
	out := mustOutput(t,
		ast.Fn("loud", nil, printN(ast.Str("evaluated")), ast.Ret(ast.Bool(true))),
		printN(ast.Bin(ast.BinaryAnd, ast.Bool(false), ast.CallN("loud"))),
		printN(ast.Bin(ast.BinaryOr, ast.Bool(true), ast.CallN("loud"))),
	)
	if out != "false\ntrue\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestBreakOutsideLoopIsStructural(t *testing.T) {
	interp, _ := newTestInterpreter()
	expectStructural(t, interp, runtime.InvalidControlFlow, ast.Brk())

	interp, _ = newTestInterpreter()
	expectStructural(t, interp, runtime.InvalidControlFlow,
		ast.Fn("f", nil, ast.Cont()),
		ast.While(ast.Bool(true), ast.Do(ast.Expr(ast.CallN("f")))),
	)
}

func TestStructuralErrorsAreNotCatchable(t *testing.T) {
	interp, out := newTestInterpreter()
	expectStructural(t, interp, runtime.InvalidControlFlow,
		ast.Fn("f", nil, ast.Brk()),
		ast.Try(ast.Do(ast.Expr(ast.CallN("f"))), "e", ast.Do(printN(ast.Str("caught")))),
	)
	if out.Len() != 0 {
		t.Fatalf("catch branch must not run, got %q", out.String())
	}
}

func TestTryCatchBindsThrownValue(t *testing.T) {
	out := mustOutput(t,
		ast.Try(
			ast.Do(ast.Throw(ast.Str("boom")), printN(ast.Str("unreachable"))),
			"e",
			ast.Do(printN(ast.N("e"))),
		),
		ast.Try(
			ast.Do(ast.Expr(ast.N("missing"))),
			"e",
			ast.Do(printN(ast.Item(ast.N("e"), ast.Str("kind")))),
		),
	)
	if out != "boom\nUndefinedReference\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestThrowCrossesFunctionBoundaries(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Fn("fail", nil, ast.Throw(ast.Dict(ast.Entry("code", ast.Int(7))))),
		ast.Fn("middle", nil, ast.Expr(ast.CallN("fail")), ast.Ret(ast.Int(0))),
		ast.Try(
			ast.Do(ast.Expr(ast.CallN("middle"))),
			"e",
			ast.Do(ast.Ret(ast.Dot(ast.N("e"), "code"))),
		),
	)
	expectNumber(t, val, 7)
}

func TestThrowFromCatchEscapesSameTry(t *testing.T) {
	interp, _ := newTestInterpreter()
	_, err := interp.Execute(context.Background(), ast.Prog(
		ast.Try(ast.Throw(ast.Int(1)), "e", ast.Throw(ast.Bin(ast.BinaryAdd, ast.N("e"), ast.Int(1)))),
	))
	var uncaught *UncaughtError
	if !errors.As(err, &uncaught) {
		t.Fatalf("expected uncaught error, got %v", err)
	}
	expectNumber(t, uncaught.Value, 2)

	// An enclosing TryCatch still sees the rethrown value.
	interp, _ = newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Try(
			ast.Try(ast.Throw(ast.Int(1)), "e", ast.Throw(ast.Bin(ast.BinaryAdd, ast.N("e"), ast.Int(1)))),
			"outer",
			ast.Ret(ast.N("outer")),
		),
	)
	expectNumber(t, val, 2)
}

func TestCatchVariableIsScoped(t *testing.T) {
	interp, _ := newTestInterpreter()
	expectUncaught(t, interp, runtime.UndefinedReference,
		ast.Try(ast.Throw(ast.Int(1)), "e", ast.Do()),
		ast.Expr(ast.N("e")),
	)
}

func TestUncaughtThrowReachesHost(t *testing.T) {
	interp, _ := newTestInterpreter()
	_, err := interp.Execute(context.Background(), ast.Prog(ast.Throw(ast.Int(3))))
	var uncaught *UncaughtError
	if !errors.As(err, &uncaught) {
		t.Fatalf("expected uncaught error, got %v", err)
	}
	expectNumber(t, uncaught.Value, 3)
	if uncaught.Cause != nil {
		t.Fatalf("user throws carry no cause, got %v", uncaught.Cause)
	}
	if err.Error() != "uncaught throw: 3" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestRuntimeErrorValueShape(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Try(
			ast.Expr(ast.Bin(ast.BinaryAdd, ast.Int(1), ast.Str("a"))),
			"e",
			ast.Ret(ast.CallN("keys", ast.N("e"))),
		),
	)
	expectInspect(t, val, `["kind", "message"]`)
}

func TestNamedAndDefaultArguments(t *testing.T) {
	greet := ast.Fn("greet",
		[]*ast.Parameter{ast.Param("name", nil), ast.Param("greeting", ast.Str("hello"))},
		ast.Ret(ast.Bin(ast.BinaryAdd, ast.Bin(ast.BinaryAdd, ast.N("greeting"), ast.Str(" ")), ast.N("name"))),
	)
	out := mustOutput(t,
		greet,
		printN(ast.Call(ast.N("greet"), ast.Arg(ast.Str("ann")))),
		printN(ast.Call(ast.N("greet"), ast.NamedArg("greeting", ast.Str("hi")), ast.Arg(ast.Str("bo")))),
	)
	if out != "hello ann\nhi bo\n" {
		t.Fatalf("unexpected output %q", out)
	}

	interp, _ := newTestInterpreter()
	expectUncaught(t, interp, runtime.OperationNotPossible, greet, ast.Expr(ast.CallN("greet")))
	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.OperationNotPossible, greet,
		ast.Expr(ast.CallN("greet", ast.Str("a"), ast.Str("b"), ast.Str("c"))))
	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.OperationNotPossible, greet,
		ast.Expr(ast.Call(ast.N("greet"), ast.NamedArg("nobody", ast.Int(1)))))
}

func TestDefaultsSeeEarlierParameters(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.Fn("pair",
			[]*ast.Parameter{ast.Param("a", nil), ast.Param("b", ast.Bin(ast.BinaryMul, ast.N("a"), ast.Int(2)))},
			ast.Ret(ast.Arr(ast.N("a"), ast.N("b"))),
		),
		ast.Expr(ast.CallN("pair", ast.Int(3))),
	)
	expectInspect(t, val, "[3, 6]")
}

func TestCallingNonCallableThrows(t *testing.T) {
	interp, _ := newTestInterpreter()
	uncaught := expectUncaught(t, interp, runtime.OperationNotPossible,
		ast.Var("x", ast.Int(1)),
		ast.Expr(ast.CallN("x")),
	)
	if !strings.Contains(uncaught.Cause.Message, "not callable") {
		t.Fatalf("unexpected message %q", uncaught.Cause.Message)
	}
}

func TestMaxCallDepth(t *testing.T) {
	down := ast.Fn("down", ast.Params("n"), ast.Ret(ast.CallN("down", ast.Bin(ast.BinaryAdd, ast.N("n"), ast.Int(1)))))

	interp, _ := newTestInterpreter(WithMaxCallDepth(8))
	uncaught := expectUncaught(t, interp, runtime.OperationNotPossible, down, ast.Expr(ast.CallN("down", ast.Int(0))))
	if !strings.Contains(uncaught.Cause.Message, "maximum call depth of 8") {
		t.Fatalf("unexpected message %q", uncaught.Cause.Message)
	}

	// The program recovers once the stack unwinds.
	interp, _ = newTestInterpreter(WithMaxCallDepth(8))
	val := mustExecute(t, interp,
		down,
		ast.Try(ast.Expr(ast.CallN("down", ast.Int(0))), "e", ast.Do()),
		ast.Fn("id", ast.Params("v"), ast.Ret(ast.N("v"))),
		ast.Expr(ast.CallN("id", ast.Str("ok"))),
	)
	expectString(t, val, "ok")
}

func TestExecuteHonorsCancellation(t *testing.T) {
	interp, _ := newTestInterpreter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := interp.Execute(ctx, ast.Prog(ast.While(ast.Bool(true), ast.Do())))
	var serr *StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if !runtime.IsKind(err, runtime.Aborted) {
		t.Fatalf("expected Aborted, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestStringIndexing(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp, ast.Expr(ast.Item(ast.Str("héllo"), ast.Int(1))))
	expectString(t, val, "é")

	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.OperationNotPossible,
		ast.Var("s", ast.Str("abc")),
		ast.Assign(ast.Item(ast.N("s"), ast.Int(0)), ast.Str("z")),
	)
	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.UndefinedReference,
		ast.Expr(ast.Item(ast.Arr(ast.Int(1)), ast.Int(5))),
	)
}
