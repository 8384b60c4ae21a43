package runtime

import (
	"errors"
	"fmt"
)

// ErrorKind names a failure category visible to programs and hosts.
type ErrorKind string

const (
	ConflictWithPreviousDeclaration ErrorKind = "ConflictWithPreviousDeclaration"
	InvalidDefinition               ErrorKind = "InvalidDefinition"
	InvalidControlFlow              ErrorKind = "InvalidControlFlow"
	ImportCycle                     ErrorKind = "ImportCycle"
	Aborted                         ErrorKind = "Aborted"

	UndefinedReference   ErrorKind = "UndefinedReference"
	OperationNotPossible ErrorKind = "OperationNotPossible"
	TypeMismatch         ErrorKind = "TypeMismatch"
	AccessViolation      ErrorKind = "AccessViolation"
	HostFailure          ErrorKind = "HostFailure"
)

// Error is a categorized interpreter failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Value renders the error as the dictionary programs observe in a catch
// branch.
func (e *Error) Value() Value {
	dict := NewDictionary()
	dict.Entries["kind"] = StringValue{Val: string(e.Kind)}
	dict.Entries["message"] = StringValue{Val: e.Message}
	return dict
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var rerr *Error
	if !errors.As(err, &rerr) {
		return false
	}
	return rerr.Kind == kind
}

// KindOf extracts the kind of a wrapped *Error.
func KindOf(err error) (ErrorKind, bool) {
	var rerr *Error
	if !errors.As(err, &rerr) {
		return "", false
	}
	return rerr.Kind, true
}
