package ast

import "strings"

// Compact builders for hand-written trees. Tests and embedding hosts use
// these in place of the New* constructors.

func ID(name string) *Identifier { return NewIdentifier(name) }

// N builds a Name from segments; a single "a::b" argument is split.
func N(parts ...string) *Name {
	if len(parts) == 1 && strings.Contains(parts[0], "::") {
		parts = strings.Split(parts[0], "::")
	}
	ids := make([]*Identifier, 0, len(parts))
	for _, part := range parts {
		ids = append(ids, NewIdentifier(part))
	}
	return NewName(ids)
}

func Null() *NullLiteral          { return NewNullLiteral() }
func Bool(v bool) *BooleanLiteral { return NewBooleanLiteral(v) }
func Int(v int32) *IntegerLiteral { return NewIntegerLiteral(v) }
func Real(v float64) *RealLiteral { return NewRealLiteral(v) }
func Str(v string) *StringLiteral { return NewStringLiteral(v) }

func Arr(elems ...Expression) *ArrayLiteral {
	return NewArrayLiteral(elems)
}

func Entry(key string, value Expression) *DictionaryEntry {
	return NewDictionaryEntry(key, value)
}

func Dict(entries ...*DictionaryEntry) *DictionaryLiteral {
	return NewDictionaryLiteral(entries)
}

func Lambda(params []*Parameter, body ...BlockItem) *LambdaLiteral {
	return NewLambdaLiteral(params, NewBlock(body))
}

func Paren(inner Expression) *Group { return NewGroup(GroupRounded, inner) }

func Un(op UnaryOperator, operand Expression) *UnaryOperation {
	return NewUnaryOperation(op, operand)
}

func Bin(op BinaryOperator, left, right Expression) *BinaryOperation {
	return NewBinaryOperation(op, left, right)
}

func Arg(value Expression) *Argument { return NewArgument(nil, value) }

func NamedArg(name string, value Expression) *Argument {
	return NewArgument(NewIdentifier(name), value)
}

func Call(callee Expression, args ...*Argument) *FunctionCall {
	return NewFunctionCall(callee, args)
}

// CallN calls a named callee with positional arguments.
func CallN(name string, args ...Expression) *FunctionCall {
	wrapped := make([]*Argument, 0, len(args))
	for _, arg := range args {
		wrapped = append(wrapped, NewArgument(nil, arg))
	}
	return NewFunctionCall(N(name), wrapped)
}

func Item(container, index Expression) *ItemAccess { return NewItemAccess(container, index) }

func Dot(object Expression, member string) *MemberAccess {
	return NewMemberAccess(object, NewIdentifier(member))
}

// Statements

func Prog(items ...BlockItem) *Block { return NewBlock(items) }

func Do(items ...BlockItem) *BlockStatement { return NewBlockStatement(NewBlock(items)) }

func Expr(expr Expression) *ExpressionStatement { return NewExpressionStatement(expr) }

func Assign(target AssignmentTarget, value Expression) *Assignment {
	return NewAssignment(target, AssignEquals, value)
}

func AssignOp(target AssignmentTarget, op AssignmentOperator, value Expression) *Assignment {
	return NewAssignment(target, op, value)
}

func If(guard Expression, then Statement, els Statement) *Condition {
	return NewCondition(guard, then, els)
}

func While(guard Expression, body Statement) *WhileDoLoop { return NewWhileDoLoop(guard, body) }

func DoWhile(body Statement, guard Expression) *DoWhileLoop { return NewDoWhileLoop(guard, body) }

func For(variable LoopVariable, iterable Expression, body Statement) *ForLoop {
	return NewForLoop(variable, iterable, body)
}

func Brk() *BreakStatement     { return NewBreakStatement() }
func Cont() *ContinueStatement { return NewContinueStatement() }

func Ret(value Expression) *ReturnStatement { return NewReturnStatement(value) }

func Throw(value Expression) *ThrowStatement { return NewThrowStatement(value) }

func Try(try Statement, errName string, catch Statement) *TryCatch {
	return NewTryCatch(try, NewIdentifier(errName), catch)
}

// Declarations

func Var(name string, value Expression) *VariableDeclaration {
	return NewVariableDeclaration([]*VariableBinding{NewVariableBinding(NewIdentifier(name), value)})
}

func Param(name string, def Expression) *Parameter {
	return NewParameter(NewIdentifier(name), def)
}

// Params builds parameters without defaults.
func Params(names ...string) []*Parameter {
	out := make([]*Parameter, 0, len(names))
	for _, name := range names {
		out = append(out, NewParameter(NewIdentifier(name), nil))
	}
	return out
}

func Fn(name string, params []*Parameter, body ...BlockItem) *FunctionDeclaration {
	return NewFunctionDeclaration(NewIdentifier(name), params, NewBlock(body))
}

func NS(name string, body ...BlockItem) *NamespaceDeclaration {
	return NewNamespaceDeclaration(NewIdentifier(name), NewBlock(body))
}

func Items(items ...ClassItem) []ClassItem { return items }

// Class builds a class whose items are all public.
func Class(name string, extends *Name, public ...ClassItem) *ClassDeclaration {
	return NewClassDeclaration(NewIdentifier(name), extends, public, nil, nil)
}

func Ctor(params []*Parameter, superArgs []*Argument, body ...BlockItem) *Constructor {
	return NewConstructor(params, superArgs, NewBlock(body))
}

func Static(decl Declaration) *StaticDeclaration { return NewStaticDeclaration(decl) }

func Inst(decl Declaration) *MemberDeclaration { return NewMemberDeclaration(decl) }

// Directives

func Use(source *Name, imports ...Import) *UseDirective { return NewUseDirective(source, imports) }

func ImportNS(name string) *NamespaceImport { return NewNamespaceImport(N(name)) }

// ImportName imports one entity; an empty alias keeps the last segment.
func ImportName(name string, alias string) *NameImport {
	var id *Identifier
	if alias != "" {
		id = NewIdentifier(alias)
	}
	return NewNameImport(N(name), id)
}
