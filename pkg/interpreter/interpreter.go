package interpreter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"tscript/interpreter-go/pkg/ast"
	"tscript/interpreter-go/pkg/runtime"
)

// DefaultMaxCallDepth bounds nested calls and constructions.
const DefaultMaxCallDepth = 1024

// ModuleResolver loads the program named by a `use` source path.
type ModuleResolver interface {
	Resolve(path []string) (*ast.Block, error)
}

// Interpreter drives evaluation of tscript AST nodes.
type Interpreter struct {
	global   *runtime.Stack
	stdout   io.Writer
	stdin    io.Reader
	logger   zerolog.Logger
	resolver ModuleResolver
	maxDepth int

	modules map[string]*moduleState
	input   *lineInput
}

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithStdout(w io.Writer) Option {
	return func(i *Interpreter) {
		if w != nil {
			i.stdout = w
		}
	}
}

func WithStdin(r io.Reader) Option {
	return func(i *Interpreter) {
		if r != nil {
			i.stdin = r
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(i *Interpreter) {
		i.logger = logger
	}
}

func WithModuleResolver(resolver ModuleResolver) Option {
	return func(i *Interpreter) {
		i.resolver = resolver
	}
}

// WithMaxCallDepth overrides DefaultMaxCallDepth; non-positive values are
// ignored.
func WithMaxCallDepth(depth int) Option {
	return func(i *Interpreter) {
		if depth > 0 {
			i.maxDepth = depth
		}
	}
}

// New returns an interpreter whose outermost scope holds the built-ins.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		global:   runtime.NewStack(),
		stdout:   os.Stdout,
		stdin:    os.Stdin,
		logger:   zerolog.Nop(),
		maxDepth: DefaultMaxCallDepth,
		modules:  make(map[string]*moduleState),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.input = newLineInput(i.stdin, i.stdout)
	i.registerBuiltins()
	return i
}

// RegisterBuiltin binds a host function in the outermost scope. Arity < 0
// accepts any number of arguments.
func (i *Interpreter) RegisterBuiltin(name string, arity int, impl runtime.NativeFunc) error {
	if impl == nil {
		return fmt.Errorf("builtin %s: nil implementation", name)
	}
	fn := runtime.NativeFunctionValue{Name: name, Arity: arity, Impl: impl}
	if err := i.global.Declare(name, fn); err != nil {
		return fmt.Errorf("builtin %s: %w", name, err)
	}
	return nil
}

// Execute runs a program block. The result is the value of a top-level
// return, otherwise the value of the last top-level item, otherwise null.
//
// Structural failures are returned as *StructuralError; a throw that is
// never caught is returned as *UncaughtError.
func (i *Interpreter) Execute(ctx context.Context, program *ast.Block) (runtime.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if program == nil {
		return runtime.NullValue{}, nil
	}
	env := &environment{stack: i.global.Fork(), state: &evalState{ctx: ctx}}
	completion, err := i.executeBlock(program, env)
	if err != nil {
		i.logger.Debug().Err(err).Msg("execution aborted")
		return nil, err
	}
	return i.programResult(completion)
}

func (i *Interpreter) programResult(c Completion) (runtime.Value, error) {
	switch c.Kind {
	case CompletionThrow:
		i.logger.Debug().Str("value", runtime.Inspect(c.Value)).Msg("uncaught throw")
		return nil, &UncaughtError{Value: c.Value, Cause: c.Cause}
	case CompletionBreak, CompletionContinue:
		return nil, structuralf(runtime.InvalidControlFlow, "%s outside of a loop", c.Kind)
	default:
		return valueOrNull(c.Value), nil
	}
}

// evalState is the per-Execute evaluation state.
type evalState struct {
	ctx   context.Context
	depth int
}

func (s *evalState) checkAbort() error {
	if err := s.ctx.Err(); err != nil {
		return &StructuralError{Err: fmt.Errorf("%w: %w", runtime.Errorf(runtime.Aborted, "execution aborted"), err)}
	}
	return nil
}

// environment is the context code runs in: its scope stack, the class whose
// code is executing (if any) and the shared evaluation state.
type environment struct {
	stack *runtime.Stack
	class *runtime.ClassValue
	state *evalState
}

func (e *environment) with(stack *runtime.Stack, class *runtime.ClassValue) *environment {
	return &environment{stack: stack, class: class, state: e.state}
}

func valueOrNull(v runtime.Value) runtime.Value {
	if v == nil {
		return runtime.NullValue{}
	}
	return v
}
