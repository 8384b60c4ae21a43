package ast

// Definitions

type VariableBinding struct {
	nodeImpl

	ID    *Identifier `json:"id"`
	Value Expression  `json:"value,omitempty"`
}

func NewVariableBinding(id *Identifier, value Expression) *VariableBinding {
	return &VariableBinding{nodeImpl: newNodeImpl(NodeVariableBinding), ID: id, Value: value}
}

// VariableDeclaration introduces one or more variables. Unlike functions,
// classes and namespaces it is not hoisted.
type VariableDeclaration struct {
	nodeImpl
	blockItemMarker
	declarationMarker

	Bindings []*VariableBinding `json:"bindings"`
}

func NewVariableDeclaration(bindings []*VariableBinding) *VariableDeclaration {
	return &VariableDeclaration{nodeImpl: newNodeImpl(NodeVariableDeclaration), Bindings: bindings}
}

type Parameter struct {
	nodeImpl

	ID      *Identifier `json:"id"`
	Default Expression  `json:"default,omitempty"`
}

func NewParameter(id *Identifier, def Expression) *Parameter {
	return &Parameter{nodeImpl: newNodeImpl(NodeParameter), ID: id, Default: def}
}

type FunctionDeclaration struct {
	nodeImpl
	blockItemMarker
	declarationMarker

	ID     *Identifier  `json:"id"`
	Params []*Parameter `json:"params"`
	Body   *Block       `json:"body"`
}

func NewFunctionDeclaration(id *Identifier, params []*Parameter, body *Block) *FunctionDeclaration {
	return &FunctionDeclaration{nodeImpl: newNodeImpl(NodeFunctionDeclaration), ID: id, Params: params, Body: body}
}

// ClassDeclaration groups its items by visibility.
type ClassDeclaration struct {
	nodeImpl
	blockItemMarker
	declarationMarker

	ID        *Identifier `json:"id"`
	Extends   *Name       `json:"extends,omitempty"`
	Public    []ClassItem `json:"public,omitempty"`
	Private   []ClassItem `json:"private,omitempty"`
	Protected []ClassItem `json:"protected,omitempty"`
}

func NewClassDeclaration(id *Identifier, extends *Name, public, private, protected []ClassItem) *ClassDeclaration {
	return &ClassDeclaration{
		nodeImpl:  newNodeImpl(NodeClassDeclaration),
		ID:        id,
		Extends:   extends,
		Public:    public,
		Private:   private,
		Protected: protected,
	}
}

// Constructor runs after the base class has been constructed with SuperArgs.
type Constructor struct {
	nodeImpl
	classItemMarker

	Params    []*Parameter `json:"params"`
	SuperArgs []*Argument  `json:"superArgs,omitempty"`
	Body      *Block       `json:"body"`
}

func NewConstructor(params []*Parameter, superArgs []*Argument, body *Block) *Constructor {
	return &Constructor{nodeImpl: newNodeImpl(NodeConstructor), Params: params, SuperArgs: superArgs, Body: body}
}

type StaticDeclaration struct {
	nodeImpl
	classItemMarker

	Declaration Declaration `json:"declaration"`
}

func NewStaticDeclaration(decl Declaration) *StaticDeclaration {
	return &StaticDeclaration{nodeImpl: newNodeImpl(NodeStaticDeclaration), Declaration: decl}
}

// MemberDeclaration is an instance field or method.
type MemberDeclaration struct {
	nodeImpl
	classItemMarker

	Declaration Declaration `json:"declaration"`
}

func NewMemberDeclaration(decl Declaration) *MemberDeclaration {
	return &MemberDeclaration{nodeImpl: newNodeImpl(NodeMemberDeclaration), Declaration: decl}
}

type NamespaceDeclaration struct {
	nodeImpl
	blockItemMarker
	declarationMarker

	ID   *Identifier `json:"id"`
	Body *Block      `json:"body"`
}

func NewNamespaceDeclaration(id *Identifier, body *Block) *NamespaceDeclaration {
	return &NamespaceDeclaration{nodeImpl: newNodeImpl(NodeNamespaceDeclaration), ID: id, Body: body}
}
