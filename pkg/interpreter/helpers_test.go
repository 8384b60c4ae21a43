package interpreter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

// newTestInterpreter returns an interpreter writing to the returned buffer.
func newTestInterpreter(opts ...Option) (*Interpreter, *bytes.Buffer) {
	var out bytes.Buffer
	all := append([]Option{WithStdout(&out)}, opts...)
	return New(all...), &out
}

func mustExecute(t *testing.T, interp *Interpreter, items ...ast.BlockItem) runtime.Value {
	t.Helper()
	val, err := interp.Execute(context.Background(), ast.Prog(items...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return val
}

func mustOutput(t *testing.T, items ...ast.BlockItem) string {
	t.Helper()
	interp, out := newTestInterpreter()
	mustExecute(t, interp, items...)
	return out.String()
}

// expectUncaught runs items and requires an uncaught run-time error of kind.
func expectUncaught(t *testing.T, interp *Interpreter, kind runtime.ErrorKind, items ...ast.BlockItem) *UncaughtError {
	t.Helper()
	_, err := interp.Execute(context.Background(), ast.Prog(items...))
	var uncaught *UncaughtError
	if !errors.As(err, &uncaught) {
		t.Fatalf("expected uncaught error, got %v", err)
	}
	if uncaught.Cause == nil || uncaught.Cause.Kind != kind {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	return uncaught
}

// expectStructural runs items and requires a structural error of kind.
func expectStructural(t *testing.T, interp *Interpreter, kind runtime.ErrorKind, items ...ast.BlockItem) *StructuralError {
	t.Helper()
	_, err := interp.Execute(context.Background(), ast.Prog(items...))
	var serr *StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if !runtime.IsKind(err, kind) {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	return serr
}

func expectNumber(t *testing.T, val runtime.Value, want int32) {
	t.Helper()
	num, ok := val.(runtime.NumberValue)
	if !ok || num.Val != want {
		t.Fatalf("expected number %d, got %#v", want, val)
	}
}

func expectString(t *testing.T, val runtime.Value, want string) {
	t.Helper()
	str, ok := val.(runtime.StringValue)
	if !ok || str.Val != want {
		t.Fatalf("expected string %q, got %#v", want, val)
	}
}

func expectInspect(t *testing.T, val runtime.Value, want string) {
	t.Helper()
	if got := runtime.Inspect(val); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func printN(args ...ast.Expression) *ast.ExpressionStatement {
	return ast.Expr(ast.CallN("print", args...))
}

// mapResolver serves modules from memory and counts loads.
type mapResolver struct {
	modules map[string]*ast.Block
	loads   map[string]int
}

func newMapResolver(modules map[string]*ast.Block) *mapResolver {
	return &mapResolver{modules: modules, loads: make(map[string]int)}
}

func (r *mapResolver) Resolve(path []string) (*ast.Block, error) {
	key := strings.Join(path, "::")
	block, ok := r.modules[key]
	if !ok {
		return nil, fmt.Errorf("module %s not found", key)
	}
	r.loads[key]++
	return block, nil
}
