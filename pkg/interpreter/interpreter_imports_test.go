package interpreter

import (
	"testing"

	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

func textModule() *ast.Block {
	return ast.Prog(
		printN(ast.Str("loading text")),
		ast.Var("suffix", ast.Str("!")),
		ast.Fn("shout", ast.Params("s"), ast.Ret(ast.Bin(ast.BinaryAdd, ast.N("s"), ast.N("suffix")))),
	)
}

func TestUseModuleBindsNamespace(t *testing.T) {
	resolver := newMapResolver(map[string]*ast.Block{"util::text": textModule()})
	interp, out := newTestInterpreter(WithModuleResolver(resolver))
	val := mustExecute(t, interp,
		ast.Use(ast.N("util::text")),
		ast.Expr(ast.Arr(ast.CallN("text::shout", ast.Str("hi")), ast.N("text::suffix"))),
	)
	expectInspect(t, val, `["hi!", "!"]`)
	if out.String() != "loading text\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestUseModuleImportsNamesOnce(t *testing.T) {
	resolver := newMapResolver(map[string]*ast.Block{"util::text": textModule()})
	interp, out := newTestInterpreter(WithModuleResolver(resolver))
	val := mustExecute(t, interp,
		ast.Use(ast.N("util::text"), ast.ImportName("shout", "yell")),
		ast.Var("first", ast.CallN("yell", ast.Str("a"))),
		ast.Do(
			ast.Use(ast.N("util::text"), ast.ImportName("shout", "")),
			ast.Ret(ast.Arr(ast.N("first"), ast.CallN("shout", ast.Str("b")))),
		),
	)
	expectInspect(t, val, `["a!", "b!"]`)
	if resolver.loads["util::text"] != 1 {
		t.Fatalf("expected one load, got %d", resolver.loads["util::text"])
	}
	if out.String() != "loading text\n" {
		t.Fatalf("module body must run once, got %q", out.String())
	}
}

func TestModulesDoNotSeeImporterScope(t *testing.T) {
	resolver := newMapResolver(map[string]*ast.Block{
		"peek": ast.Prog(ast.Var("seen", ast.N("secret"))),
	})
	interp, _ := newTestInterpreter(WithModuleResolver(resolver))
	expectUncaught(t, interp, runtime.UndefinedReference,
		ast.Var("secret", ast.Int(1)),
		ast.Use(ast.N("peek")),
	)
}

func TestModuleImportCycle(t *testing.T) {
	resolver := newMapResolver(map[string]*ast.Block{
		"a": ast.Prog(ast.Use(ast.N("b"))),
		"b": ast.Prog(ast.Use(ast.N("a"))),
	})
	interp, _ := newTestInterpreter(WithModuleResolver(resolver))
	expectStructural(t, interp, runtime.ImportCycle, ast.Use(ast.N("a")))
}

func TestMissingModuleIsCatchable(t *testing.T) {
	interp, _ := newTestInterpreter(WithModuleResolver(newMapResolver(nil)))
	val := mustExecute(t, interp,
		ast.Try(
			ast.Do(ast.Use(ast.N("nowhere"))),
			"e",
			ast.Ret(ast.Item(ast.N("e"), ast.Str("kind"))),
		),
	)
	expectString(t, val, string(runtime.HostFailure))

	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.HostFailure, ast.Use(ast.N("nowhere")))
}

func TestImportUnknownNameFails(t *testing.T) {
	resolver := newMapResolver(map[string]*ast.Block{"util::text": textModule()})
	interp, _ := newTestInterpreter(WithModuleResolver(resolver))
	expectUncaught(t, interp, runtime.UndefinedReference,
		ast.Use(ast.N("util::text"), ast.ImportName("whisper", "")),
	)
}

func TestNamespaceImportWithoutSource(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.NS("geo",
			ast.Var("unit", ast.Int(10)),
			ast.Fn("scale", ast.Params("x"), ast.Ret(ast.Bin(ast.BinaryMul, ast.N("x"), ast.N("unit")))),
		),
		ast.Use(nil, ast.ImportNS("geo")),
		ast.Expr(ast.Arr(ast.CallN("scale", ast.Int(3)), ast.N("unit"))),
	)
	expectInspect(t, val, "[30, 10]")
}

func TestNamespaceImportRunsPendingBody(t *testing.T) {
	out := mustOutput(t,
		ast.Use(nil, ast.ImportNS("cfg")),
		printN(ast.N("mode")),
		ast.NS("cfg",
			printN(ast.Str("cfg body")),
			ast.Var("mode", ast.Str("fast")),
		),
		printN(ast.N("cfg::mode")),
	)
	if out != "cfg body\nfast\nfast\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNameImportWithAlias(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.NS("math",
			ast.NS("consts", ast.Var("answer", ast.Int(42))),
		),
		ast.Use(nil, ast.ImportName("math::consts::answer", "a")),
		ast.Expr(ast.N("a")),
	)
	expectNumber(t, val, 42)
}

func TestImportConflictIsStructural(t *testing.T) {
	interp, _ := newTestInterpreter()
	expectStructural(t, interp, runtime.ConflictWithPreviousDeclaration,
		ast.NS("a", ast.Fn("f", nil)),
		ast.Fn("f", nil),
		ast.Use(nil, ast.ImportName("a::f", "")),
	)
}

func TestNamespaceVariablesAreAssignable(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.NS("stats", ast.Var("hits", ast.Int(0))),
		ast.AssignOp(ast.N("stats::hits"), ast.AssignAdd, ast.Int(2)),
		ast.Expr(ast.N("stats::hits")),
	)
	expectNumber(t, val, 2)

	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.OperationNotPossible,
		ast.NS("m", ast.Fn("f", nil)),
		ast.Assign(ast.N("m::f"), ast.Int(1)),
	)
	interp, _ = newTestInterpreter()
	expectUncaught(t, interp, runtime.UndefinedReference,
		ast.NS("m"),
		ast.Expr(ast.N("m::missing")),
	)
}

func TestNamespaceFunctionsSeeEachOther(t *testing.T) {
	interp, _ := newTestInterpreter()
	val := mustExecute(t, interp,
		ast.NS("parity",
			ast.Fn("even", ast.Params("n"), ast.If(
				ast.Bin(ast.BinaryEq, ast.N("n"), ast.Int(0)),
				ast.Ret(ast.Bool(true)),
				ast.Ret(ast.CallN("odd", ast.Bin(ast.BinarySub, ast.N("n"), ast.Int(1)))),
			)),
			ast.Fn("odd", ast.Params("n"), ast.If(
				ast.Bin(ast.BinaryEq, ast.N("n"), ast.Int(0)),
				ast.Ret(ast.Bool(false)),
				ast.Ret(ast.CallN("even", ast.Bin(ast.BinarySub, ast.N("n"), ast.Int(1)))),
			)),
		),
		ast.Expr(ast.CallN("parity::even", ast.Int(6))),
	)
	if b, ok := val.(runtime.BoolValue); !ok || !b.Val {
		t.Fatalf("expected true, got %#v", val)
	}
}
