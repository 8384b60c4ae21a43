package interpreter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	metro "github.com/dgryski/go-metro"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"tscript/interpreter-go/pkg/runtime"
)

func (i *Interpreter) registerBuiltins() {
	builtins := []struct {
		name  string
		arity int
		impl  runtime.NativeFunc
	}{
		{"print", -1, builtinPrint},
		{"len", 1, builtinLen},
		{"str", 1, builtinStr},
		{"type", 1, builtinType},
		{"keys", 1, builtinKeys},
		{"append", -1, builtinAppend},
		{"hash", 1, builtinHash},
		{"input", -1, i.builtinInput},
	}
	for _, b := range builtins {
		if err := i.RegisterBuiltin(b.name, b.arity, b.impl); err != nil {
			panic(err)
		}
	}
}

func builtinPrint(ctx *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	parts := make([]string, len(args))
	for idx, arg := range args {
		parts[idx] = runtime.ValueToString(arg)
	}
	if _, err := fmt.Fprintln(ctx.Out, strings.Join(parts, " ")); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return runtime.NullValue{}, nil
}

func builtinLen(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	switch v := args[0].(type) {
	case *runtime.ArrayValue:
		return runtime.NumberValue{Val: int32(len(v.Elements))}, nil
	case *runtime.DictionaryValue:
		return runtime.NumberValue{Val: int32(len(v.Entries))}, nil
	case runtime.StringValue:
		return runtime.NumberValue{Val: int32(utf8.RuneCountInString(v.Val))}, nil
	default:
		return nil, runtime.Errorf(runtime.TypeMismatch, "len expects an array, dictionary or string, got %s", args[0].Kind())
	}
}

func builtinStr(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	return runtime.StringValue{Val: runtime.ValueToString(args[0])}, nil
}

func builtinType(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	if obj, ok := args[0].(*runtime.ObjectValue); ok {
		return runtime.StringValue{Val: obj.Class.Name}, nil
	}
	return runtime.StringValue{Val: args[0].Kind().String()}, nil
}

func builtinKeys(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	dict, ok := args[0].(*runtime.DictionaryValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "keys expects a dictionary, got %s", args[0].Kind())
	}
	names := make([]string, 0, len(dict.Entries))
	for key := range dict.Entries {
		names = append(names, key)
	}
	sort.Strings(names)
	out := make([]runtime.Value, len(names))
	for idx, name := range names {
		out[idx] = runtime.StringValue{Val: name}
	}
	return runtime.NewArray(out), nil
}

func builtinAppend(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	if len(args) == 0 {
		return nil, runtime.Errorf(runtime.OperationNotPossible, "append expects an array")
	}
	arr, ok := args[0].(*runtime.ArrayValue)
	if !ok {
		return nil, runtime.Errorf(runtime.TypeMismatch, "append expects an array, got %s", args[0].Kind())
	}
	out := make([]runtime.Value, 0, len(arr.Elements)+len(args)-1)
	out = append(out, arr.Elements...)
	out = append(out, args[1:]...)
	return runtime.NewArray(out), nil
}

// builtinHash hashes the canonical text of a value, so equal containers
// hash alike.
func builtinHash(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	sum := metro.Hash64([]byte(runtime.Inspect(args[0])), 0)
	return runtime.NumberValue{Val: int32(uint32(sum))}, nil
}

func (i *Interpreter) builtinInput(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
	if len(args) > 1 {
		return nil, runtime.Errorf(runtime.OperationNotPossible, "input expects at most 1 argument, got %d", len(args))
	}
	prompt := ""
	if len(args) == 1 {
		prompt = runtime.ValueToString(args[0])
	}
	line, ok, err := i.input.readLine(prompt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return runtime.NullValue{}, nil
	}
	return runtime.StringValue{Val: line}, nil
}

// lineInput reads lines for the input built-in. Terminals get line editing
// and history.
type lineInput struct {
	in          io.Reader
	out         io.Writer
	interactive bool
	reader      *bufio.Reader
	history     []string
}

func newLineInput(in io.Reader, out io.Writer) *lineInput {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &lineInput{in: in, out: out, interactive: interactive}
}

// readLine returns false once the input is exhausted.
func (l *lineInput) readLine(prompt string) (string, bool, error) {
	if l.interactive {
		return l.prompt(prompt)
	}
	if l.reader == nil {
		l.reader = bufio.NewReader(l.in)
	}
	if prompt != "" {
		fmt.Fprint(l.out, prompt)
	}
	line, err := l.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", false, runtime.Errorf(runtime.HostFailure, "input: %v", err)
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", false, nil
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), true, nil
}

func (l *lineInput) prompt(prompt string) (string, bool, error) {
	state := liner.NewLiner()
	defer state.Close()
	state.SetCtrlCAborts(true)
	for _, item := range l.history {
		state.AppendHistory(item)
	}
	line, err := state.Prompt(prompt)
	switch {
	case err == nil:
		state.AppendHistory(line)
		l.history = append(l.history, line)
		return line, true, nil
	case errors.Is(err, liner.ErrPromptAborted):
		return "", false, runtime.Errorf(runtime.HostFailure, "input aborted")
	case errors.Is(err, io.EOF):
		return "", false, nil
	default:
		return "", false, runtime.Errorf(runtime.HostFailure, "input: %v", err)
	}
}
