package runtime

import (
	"fmt"
	"io"

	"tscript/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindReal
	KindString
	KindArray
	KindDictionary
	KindObject
	KindFunction
	KindBoundMethod
	KindNativeFunction
	KindClass
	KindNamespace
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDictionary:
		return "dictionary"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindBoundMethod:
		return "bound_method"
	case KindNativeFunction:
		return "native_function"
	case KindClass:
		return "class"
	case KindNamespace:
		return "namespace"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NullValue struct{}

func (NullValue) Kind() Kind { return KindNull }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

// NumberValue is the language's 32-bit integer.
type NumberValue struct {
	Val int32
}

func (v NumberValue) Kind() Kind { return KindNumber }

type RealValue struct {
	Val float64
}

func (v RealValue) Kind() Kind { return KindReal }

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

//-----------------------------------------------------------------------------
// Containers
//-----------------------------------------------------------------------------

type ArrayValue struct {
	Elements []Value
}

func NewArray(elements []Value) *ArrayValue {
	return &ArrayValue{Elements: elements}
}

func (v *ArrayValue) Kind() Kind { return KindArray }

type DictionaryValue struct {
	Entries map[string]Value
}

func NewDictionary() *DictionaryValue {
	return &DictionaryValue{Entries: make(map[string]Value)}
}

func (v *DictionaryValue) Kind() Kind { return KindDictionary }

//-----------------------------------------------------------------------------
// Callables
//-----------------------------------------------------------------------------

// FunctionValue is a user function, method or lambda. Closure is the scope
// stack the body runs on top of.
type FunctionValue struct {
	Name    string
	Params  []*ast.Parameter
	Body    *ast.Block
	Closure *Stack
	// Owner is the class whose code this is; it governs member access.
	Owner *ClassValue
	// Member marks functions declared directly in a class body. Their class
	// frames are pushed when they are called.
	Member bool
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

// BoundMethodValue pairs an instance method with its receiver.
type BoundMethodValue struct {
	Receiver *ObjectValue
	Method   *FunctionValue
}

func (v BoundMethodValue) Kind() Kind { return KindBoundMethod }

// NativeCallContext is handed to built-ins. Invoke calls back into the
// interpreter on an independent stack.
type NativeCallContext struct {
	Out    io.Writer
	In     io.Reader
	Invoke func(callee Value, args []Value) (Value, error)
}

type NativeFunc func(*NativeCallContext, []Value) (Value, error)

// NativeFunctionValue is a host built-in. Arity < 0 accepts any count.
type NativeFunctionValue struct {
	Name  string
	Arity int
	Impl  NativeFunc
}

func (v NativeFunctionValue) Kind() Kind { return KindNativeFunction }

//-----------------------------------------------------------------------------
// Classes, objects and namespaces
//-----------------------------------------------------------------------------

type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return fmt.Sprintf("visibility_%d", int(v))
	}
}

// ClassMember is one named item of a class body. Exactly one of Field or
// Decl is set.
type ClassMember struct {
	Name       string
	Owner      *ClassValue
	Visibility Visibility
	Static     bool
	Field      *ast.VariableBinding
	Decl       ast.Declaration
	// Function is the callable built for a function member.
	Function *FunctionValue
}

// IsMethod reports whether the member is an instance function.
func (m *ClassMember) IsMethod() bool {
	if m.Static {
		return false
	}
	_, ok := m.Decl.(*ast.FunctionDeclaration)
	return ok
}

type StaticState int

const (
	StaticPending StaticState = iota
	StaticInitializing
	StaticReady
)

type ClassValue struct {
	Name    string
	Node    *ast.ClassDeclaration
	Closure *Stack
	Base    *ClassValue

	Members map[string]*ClassMember
	// Fields lists instance fields in declaration order.
	Fields []*ClassMember

	Constructor           *ast.Constructor
	ConstructorVisibility Visibility

	StaticDecls DeclScope
	StaticVars  VarScope
	StaticState StaticState

	Linked bool
}

func NewClass(name string, node *ast.ClassDeclaration, closure *Stack) *ClassValue {
	return &ClassValue{
		Name:        name,
		Node:        node,
		Closure:     closure,
		Members:     make(map[string]*ClassMember),
		StaticDecls: make(DeclScope),
		StaticVars:  make(VarScope),
	}
}

func (v *ClassValue) Kind() Kind { return KindClass }

// FindMember walks from v towards the root and returns the first member
// named name.
func (v *ClassValue) FindMember(name string) (*ClassMember, bool) {
	for cls := v; cls != nil; cls = cls.Base {
		if member, ok := cls.Members[name]; ok {
			return member, true
		}
	}
	return nil, false
}

// IsSubclassOf reports whether v is other or one of its descendants.
func (v *ClassValue) IsSubclassOf(other *ClassValue) bool {
	for cls := v; cls != nil; cls = cls.Base {
		if cls == other {
			return true
		}
	}
	return false
}

// Chain returns the inheritance chain from the root down to v.
func (v *ClassValue) Chain() []*ClassValue {
	var chain []*ClassValue
	for cls := v; cls != nil; cls = cls.Base {
		chain = append([]*ClassValue{cls}, chain...)
	}
	return chain
}

// ObjectValue is a class instance. Fields are kept per declaring class so a
// private field of a base never collides with a subclass field.
type ObjectValue struct {
	Class  *ClassValue
	Layers map[*ClassValue]VarScope
}

func NewObject(class *ClassValue) *ObjectValue {
	return &ObjectValue{Class: class, Layers: make(map[*ClassValue]VarScope)}
}

func (v *ObjectValue) Kind() Kind { return KindObject }

// Layer returns the field scope of the given class, creating it on demand.
func (v *ObjectValue) Layer(class *ClassValue) VarScope {
	layer, ok := v.Layers[class]
	if !ok {
		layer = make(VarScope)
		v.Layers[class] = layer
	}
	return layer
}

// NamespaceValue owns a persistent scope pair. Scope is the stack its body
// runs on; its top pair is Decls/Vars.
type NamespaceValue struct {
	Name  string
	Node  *ast.NamespaceDeclaration
	Decls DeclScope
	Vars  VarScope
	Scope *Stack

	Executed bool
}

func (v *NamespaceValue) Kind() Kind { return KindNamespace }

// Lookup resolves a member, variables first.
func (v *NamespaceValue) Lookup(name string) (Value, bool) {
	if binding, ok := v.Vars[name]; ok {
		return binding.Value, true
	}
	if decl, ok := v.Decls[name]; ok {
		return decl, true
	}
	return nil, false
}

// Names lists every member of the namespace.
func (v *NamespaceValue) Names() []string {
	out := make([]string, 0, len(v.Decls)+len(v.Vars))
	for name := range v.Decls {
		out = append(out, name)
	}
	for name := range v.Vars {
		out = append(out, name)
	}
	return out
}

//-----------------------------------------------------------------------------
// Helpers
//-----------------------------------------------------------------------------

// Copy returns a value suitable for storing in a new binding or container.
// Arrays and dictionaries are copied deeply; objects and callables are
// shared.
func Copy(v Value) Value {
	switch val := v.(type) {
	case *ArrayValue:
		out := make([]Value, len(val.Elements))
		for i, el := range val.Elements {
			out[i] = Copy(el)
		}
		return &ArrayValue{Elements: out}
	case *DictionaryValue:
		out := make(map[string]Value, len(val.Entries))
		for key, el := range val.Entries {
			out[key] = Copy(el)
		}
		return &DictionaryValue{Entries: out}
	case nil:
		return NullValue{}
	default:
		return v
	}
}

// Truthy returns the boolean payload; only BoolValue coerces.
func Truthy(v Value) (bool, bool) {
	b, ok := v.(BoolValue)
	return b.Val, ok
}

// Equal is total over all value pairs. Values of different shapes are never
// equal, so Number(1) and Real(1.0) differ. Objects, classes and namespaces
// compare by identity.
func Equal(a, b Value) bool {
	switch left := a.(type) {
	case NullValue:
		_, ok := b.(NullValue)
		return ok
	case BoolValue:
		right, ok := b.(BoolValue)
		return ok && left.Val == right.Val
	case NumberValue:
		right, ok := b.(NumberValue)
		return ok && left.Val == right.Val
	case RealValue:
		right, ok := b.(RealValue)
		return ok && left.Val == right.Val
	case StringValue:
		right, ok := b.(StringValue)
		return ok && left.Val == right.Val
	case *ArrayValue:
		right, ok := b.(*ArrayValue)
		if !ok || len(left.Elements) != len(right.Elements) {
			return false
		}
		for i := range left.Elements {
			if !Equal(left.Elements[i], right.Elements[i]) {
				return false
			}
		}
		return true
	case *DictionaryValue:
		right, ok := b.(*DictionaryValue)
		if !ok || len(left.Entries) != len(right.Entries) {
			return false
		}
		for key, el := range left.Entries {
			other, ok := right.Entries[key]
			if !ok || !Equal(el, other) {
				return false
			}
		}
		return true
	case *ObjectValue:
		right, ok := b.(*ObjectValue)
		return ok && left == right
	case *ClassValue:
		right, ok := b.(*ClassValue)
		return ok && left == right
	case *NamespaceValue:
		right, ok := b.(*NamespaceValue)
		return ok && left == right
	case *FunctionValue:
		right, ok := b.(*FunctionValue)
		return ok && left == right
	case BoundMethodValue:
		right, ok := b.(BoundMethodValue)
		return ok && left.Receiver == right.Receiver && left.Method == right.Method
	case NativeFunctionValue:
		right, ok := b.(NativeFunctionValue)
		return ok && left.Name == right.Name
	}
	return false
}
