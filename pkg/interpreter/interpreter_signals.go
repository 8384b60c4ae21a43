package interpreter

import (
	"errors"
	"fmt"

	"tscript/interpreter-go/pkg/runtime"
)

// CompletionKind tags how a statement finished.
type CompletionKind int

const (
	CompletionNormal CompletionKind = iota
	CompletionBreak
	CompletionContinue
	CompletionReturn
	CompletionThrow
)

func (k CompletionKind) String() string {
	switch k {
	case CompletionNormal:
		return "normal"
	case CompletionBreak:
		return "break"
	case CompletionContinue:
		return "continue"
	case CompletionReturn:
		return "return"
	case CompletionThrow:
		return "throw"
	default:
		return fmt.Sprintf("completion_%d", int(k))
	}
}

// Completion is the outcome of one statement. Value is set for Normal
// results that produce a value, Return and Throw. Cause records the runtime
// failure behind a Throw raised by the interpreter itself.
type Completion struct {
	Kind  CompletionKind
	Value runtime.Value
	Cause *runtime.Error
}

func normal(v runtime.Value) Completion { return Completion{Kind: CompletionNormal, Value: v} }

func throwCompletion(v runtime.Value, cause *runtime.Error) Completion {
	return Completion{Kind: CompletionThrow, Value: v, Cause: cause}
}

// StructuralError aborts execution and cannot be caught by programs:
// declaration conflicts, invalid class definitions, misplaced break or
// continue, import cycles and host cancellation.
type StructuralError struct {
	Err error
}

func (e *StructuralError) Error() string {
	if e == nil || e.Err == nil {
		return "structural error"
	}
	return e.Err.Error()
}

func (e *StructuralError) Unwrap() error { return e.Err }

func structuralf(kind runtime.ErrorKind, format string, args ...any) *StructuralError {
	return &StructuralError{Err: runtime.Errorf(kind, format, args...)}
}

// structural marks err as non-catchable.
func structural(err error) error {
	if err == nil {
		return nil
	}
	var serr *StructuralError
	if errors.As(err, &serr) {
		return err
	}
	return &StructuralError{Err: err}
}

// UncaughtError reports a throw that reached the host. Cause is set when the
// thrown value came from a runtime failure.
type UncaughtError struct {
	Value runtime.Value
	Cause *runtime.Error
}

func (e *UncaughtError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("uncaught %s", e.Cause.Error())
	}
	return fmt.Sprintf("uncaught throw: %s", runtime.Inspect(valueOrNull(e.Value)))
}

func (e *UncaughtError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// thrownError carries a Throw completion out of a call so the calling
// statement can turn it back into a completion.
type thrownError struct {
	value runtime.Value
	cause *runtime.Error
}

func (e *thrownError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("throw %s", runtime.Inspect(valueOrNull(e.value)))
}

// completionFromError converts an expression failure into a Throw
// completion. Structural errors stay on the error channel.
func completionFromError(err error) (Completion, error) {
	var serr *StructuralError
	if errors.As(err, &serr) {
		return Completion{}, err
	}
	var thrown *thrownError
	if errors.As(err, &thrown) {
		return throwCompletion(thrown.value, thrown.cause), nil
	}
	var rerr *runtime.Error
	if !errors.As(err, &rerr) {
		rerr = runtime.Errorf(runtime.HostFailure, "%v", err)
	}
	return throwCompletion(rerr.Value(), rerr), nil
}

// errorFromCompletion is the inverse of completionFromError for a Throw
// leaving a call boundary.
func errorFromCompletion(c Completion) error {
	return &thrownError{value: c.Value, cause: c.Cause}
}
