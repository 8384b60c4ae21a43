package ast

type NodeType string

const (
	NodeBlock                NodeType = "Block"
	NodeIdentifier           NodeType = "Identifier"
	NodeName                 NodeType = "Name"
	NodeNullLiteral          NodeType = "NullLiteral"
	NodeBooleanLiteral       NodeType = "BooleanLiteral"
	NodeIntegerLiteral       NodeType = "IntegerLiteral"
	NodeRealLiteral          NodeType = "RealLiteral"
	NodeStringLiteral        NodeType = "StringLiteral"
	NodeArrayLiteral         NodeType = "ArrayLiteral"
	NodeDictionaryEntry      NodeType = "DictionaryEntry"
	NodeDictionaryLiteral    NodeType = "DictionaryLiteral"
	NodeLambdaLiteral        NodeType = "LambdaLiteral"
	NodeGroup                NodeType = "Group"
	NodeUnaryOperation       NodeType = "UnaryOperation"
	NodeBinaryOperation      NodeType = "BinaryOperation"
	NodeFunctionCall         NodeType = "FunctionCall"
	NodeArgument             NodeType = "Argument"
	NodeItemAccess           NodeType = "ItemAccess"
	NodeMemberAccess         NodeType = "MemberAccess"
	NodeBlockStatement       NodeType = "BlockStatement"
	NodeExpressionStatement  NodeType = "ExpressionStatement"
	NodeAssignment           NodeType = "Assignment"
	NodeCondition            NodeType = "Condition"
	NodeForLoop              NodeType = "ForLoop"
	NodeWhileDoLoop          NodeType = "WhileDoLoop"
	NodeDoWhileLoop          NodeType = "DoWhileLoop"
	NodeBreakStatement       NodeType = "BreakStatement"
	NodeContinueStatement    NodeType = "ContinueStatement"
	NodeReturnStatement      NodeType = "ReturnStatement"
	NodeThrowStatement       NodeType = "ThrowStatement"
	NodeTryCatch             NodeType = "TryCatch"
	NodeUseDirective         NodeType = "UseDirective"
	NodeNamespaceImport      NodeType = "NamespaceImport"
	NodeNameImport           NodeType = "NameImport"
	NodeVariableDeclaration  NodeType = "VariableDeclaration"
	NodeVariableBinding      NodeType = "VariableBinding"
	NodeFunctionDeclaration  NodeType = "FunctionDeclaration"
	NodeParameter            NodeType = "Parameter"
	NodeClassDeclaration     NodeType = "ClassDeclaration"
	NodeConstructor          NodeType = "Constructor"
	NodeStaticDeclaration    NodeType = "StaticDeclaration"
	NodeMemberDeclaration    NodeType = "MemberDeclaration"
	NodeNamespaceDeclaration NodeType = "NamespaceDeclaration"
)

type Node interface {
	NodeType() NodeType
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (nodeImpl) isNode()              {}

// Marker interfaces. The variant sets are closed; evaluators switch on the
// concrete type.

// BlockItem is one entry of a Block: a Declaration, a Statement or a Directive.
type BlockItem interface {
	Node
	blockItemNode()
}

type blockItemMarker struct{}

func (blockItemMarker) blockItemNode() {}

type Declaration interface {
	BlockItem
	declarationNode()
}

type declarationMarker struct{}

func (declarationMarker) declarationNode() {}

type Statement interface {
	BlockItem
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Directive may appear in blocks and in class bodies.
type Directive interface {
	BlockItem
	ClassItem
	directiveNode()
}

type directiveMarker struct{}

func (directiveMarker) directiveNode() {}

type ClassItem interface {
	Node
	classItemNode()
}

type classItemMarker struct{}

func (classItemMarker) classItemNode() {}

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// AssignmentTarget is a Name, an ItemAccess or a MemberAccess.
type AssignmentTarget interface {
	Node
	assignmentTargetNode()
}

type assignmentTargetMarker struct{}

func (assignmentTargetMarker) assignmentTargetNode() {}

// LoopVariable is an Identifier (declares) or a Name (assigns).
type LoopVariable interface {
	Node
	loopVariableNode()
}

type loopVariableMarker struct{}

func (loopVariableMarker) loopVariableNode() {}

type Import interface {
	Node
	importNode()
}

type importMarker struct{}

func (importMarker) importNode() {}

// Block

type Block struct {
	nodeImpl

	Items []BlockItem `json:"items"`
}

func NewBlock(items []BlockItem) *Block {
	return &Block{nodeImpl: newNodeImpl(NodeBlock), Items: items}
}

// Identifiers and names

type Identifier struct {
	nodeImpl
	loopVariableMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Name is a qualified path such as ns::Class::member.
type Name struct {
	nodeImpl
	expressionMarker
	assignmentTargetMarker
	loopVariableMarker

	Parts []*Identifier `json:"parts"`
}

func NewName(parts []*Identifier) *Name {
	return &Name{nodeImpl: newNodeImpl(NodeName), Parts: parts}
}

// Last returns the final segment of the path.
func (n *Name) Last() *Identifier {
	if n == nil || len(n.Parts) == 0 {
		return nil
	}
	return n.Parts[len(n.Parts)-1]
}

// Strings returns the segment names in order.
func (n *Name) Strings() []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Parts))
	for _, part := range n.Parts {
		if part == nil {
			continue
		}
		out = append(out, part.Name)
	}
	return out
}

// Literals

type NullLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker
}

func NewNullLiteral() *NullLiteral {
	return &NullLiteral{nodeImpl: newNodeImpl(NodeNullLiteral)}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

type IntegerLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value int32 `json:"value"`
}

func NewIntegerLiteral(value int32) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(NodeIntegerLiteral), Value: value}
}

type RealLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value float64 `json:"value"`
}

func NewRealLiteral(value float64) *RealLiteral {
	return &RealLiteral{nodeImpl: newNodeImpl(NodeRealLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

type ArrayLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Elements []Expression `json:"elements"`
}

func NewArrayLiteral(elements []Expression) *ArrayLiteral {
	return &ArrayLiteral{nodeImpl: newNodeImpl(NodeArrayLiteral), Elements: elements}
}

type DictionaryEntry struct {
	nodeImpl

	Key   string     `json:"key"`
	Value Expression `json:"value"`
}

func NewDictionaryEntry(key string, value Expression) *DictionaryEntry {
	return &DictionaryEntry{nodeImpl: newNodeImpl(NodeDictionaryEntry), Key: key, Value: value}
}

type DictionaryLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Entries []*DictionaryEntry `json:"entries"`
}

func NewDictionaryLiteral(entries []*DictionaryEntry) *DictionaryLiteral {
	return &DictionaryLiteral{nodeImpl: newNodeImpl(NodeDictionaryLiteral), Entries: entries}
}

// LambdaLiteral is an anonymous function closing over the scopes it is
// evaluated in.
type LambdaLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Params []*Parameter `json:"params"`
	Body   *Block       `json:"body"`
}

func NewLambdaLiteral(params []*Parameter, body *Block) *LambdaLiteral {
	return &LambdaLiteral{nodeImpl: newNodeImpl(NodeLambdaLiteral), Params: params, Body: body}
}

// Operators and compound expressions

type GroupKind string

const (
	GroupRounded GroupKind = "rounded"
	GroupSquare  GroupKind = "square"
	GroupCurly   GroupKind = "curly"
)

type Group struct {
	nodeImpl
	expressionMarker

	Kind  GroupKind  `json:"kind"`
	Inner Expression `json:"inner"`
}

func NewGroup(kind GroupKind, inner Expression) *Group {
	return &Group{nodeImpl: newNodeImpl(NodeGroup), Kind: kind, Inner: inner}
}

type UnaryOperator string

const (
	UnaryNot UnaryOperator = "Not"
	UnaryAdd UnaryOperator = "Add"
	UnarySub UnaryOperator = "Sub"
)

type UnaryOperation struct {
	nodeImpl
	expressionMarker

	Operator UnaryOperator `json:"operator"`
	Operand  Expression    `json:"operand"`
}

func NewUnaryOperation(operator UnaryOperator, operand Expression) *UnaryOperation {
	return &UnaryOperation{nodeImpl: newNodeImpl(NodeUnaryOperation), Operator: operator, Operand: operand}
}

type BinaryOperator string

const (
	BinaryAdd   BinaryOperator = "Add"
	BinarySub   BinaryOperator = "Sub"
	BinaryMul   BinaryOperator = "Mul"
	BinaryRDiv  BinaryOperator = "RDiv"
	BinaryIDiv  BinaryOperator = "IDiv"
	BinaryMod   BinaryOperator = "Mod"
	BinaryPow   BinaryOperator = "Pow"
	BinaryEq    BinaryOperator = "Eq"
	BinaryNeq   BinaryOperator = "Neq"
	BinaryLt    BinaryOperator = "Lt"
	BinaryGt    BinaryOperator = "Gt"
	BinaryLeq   BinaryOperator = "Leq"
	BinaryGeq   BinaryOperator = "Geq"
	BinaryAnd   BinaryOperator = "And"
	BinaryOr    BinaryOperator = "Or"
	BinaryXor   BinaryOperator = "Xor"
	BinaryRange BinaryOperator = "Range"
)

type BinaryOperation struct {
	nodeImpl
	expressionMarker

	Operator BinaryOperator `json:"operator"`
	Left     Expression     `json:"left"`
	Right    Expression     `json:"right"`
}

func NewBinaryOperation(operator BinaryOperator, left, right Expression) *BinaryOperation {
	return &BinaryOperation{nodeImpl: newNodeImpl(NodeBinaryOperation), Operator: operator, Left: left, Right: right}
}

// Argument is a call argument; Name is set for named arguments.
type Argument struct {
	nodeImpl

	Name  *Identifier `json:"name,omitempty"`
	Value Expression  `json:"value"`
}

func NewArgument(name *Identifier, value Expression) *Argument {
	return &Argument{nodeImpl: newNodeImpl(NodeArgument), Name: name, Value: value}
}

type FunctionCall struct {
	nodeImpl
	expressionMarker

	Callee    Expression  `json:"callee"`
	Arguments []*Argument `json:"arguments"`
}

func NewFunctionCall(callee Expression, args []*Argument) *FunctionCall {
	return &FunctionCall{nodeImpl: newNodeImpl(NodeFunctionCall), Callee: callee, Arguments: args}
}

type ItemAccess struct {
	nodeImpl
	expressionMarker
	assignmentTargetMarker

	Container Expression `json:"container"`
	Index     Expression `json:"index"`
}

func NewItemAccess(container, index Expression) *ItemAccess {
	return &ItemAccess{nodeImpl: newNodeImpl(NodeItemAccess), Container: container, Index: index}
}

type MemberAccess struct {
	nodeImpl
	expressionMarker
	assignmentTargetMarker

	Object Expression  `json:"object"`
	Member *Identifier `json:"member"`
}

func NewMemberAccess(object Expression, member *Identifier) *MemberAccess {
	return &MemberAccess{nodeImpl: newNodeImpl(NodeMemberAccess), Object: object, Member: member}
}

// Statements

type BlockStatement struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Block *Block `json:"block"`
}

func NewBlockStatement(block *Block) *BlockStatement {
	return &BlockStatement{nodeImpl: newNodeImpl(NodeBlockStatement), Block: block}
}

type ExpressionStatement struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Expression Expression `json:"expression"`
}

func NewExpressionStatement(expr Expression) *ExpressionStatement {
	return &ExpressionStatement{nodeImpl: newNodeImpl(NodeExpressionStatement), Expression: expr}
}

type AssignmentOperator string

const (
	AssignEquals AssignmentOperator = "Equals"
	AssignAdd    AssignmentOperator = "Add"
	AssignSub    AssignmentOperator = "Sub"
	AssignMul    AssignmentOperator = "Mul"
	AssignDiv    AssignmentOperator = "Div"
	AssignMod    AssignmentOperator = "Mod"
	AssignExp    AssignmentOperator = "Exp"
)

type Assignment struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Target   AssignmentTarget   `json:"target"`
	Operator AssignmentOperator `json:"operator"`
	Value    Expression         `json:"value"`
}

func NewAssignment(target AssignmentTarget, operator AssignmentOperator, value Expression) *Assignment {
	return &Assignment{nodeImpl: newNodeImpl(NodeAssignment), Target: target, Operator: operator, Value: value}
}

type Condition struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Guard Expression `json:"guard"`
	Then  Statement  `json:"then"`
	Else  Statement  `json:"else,omitempty"`
}

func NewCondition(guard Expression, then, els Statement) *Condition {
	return &Condition{nodeImpl: newNodeImpl(NodeCondition), Guard: guard, Then: then, Else: els}
}

type ForLoop struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Variable LoopVariable `json:"variable,omitempty"`
	Iterable Expression   `json:"iterable"`
	Body     Statement    `json:"body"`
}

func NewForLoop(variable LoopVariable, iterable Expression, body Statement) *ForLoop {
	return &ForLoop{nodeImpl: newNodeImpl(NodeForLoop), Variable: variable, Iterable: iterable, Body: body}
}

type WhileDoLoop struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Guard Expression `json:"guard"`
	Body  Statement  `json:"body"`
}

func NewWhileDoLoop(guard Expression, body Statement) *WhileDoLoop {
	return &WhileDoLoop{nodeImpl: newNodeImpl(NodeWhileDoLoop), Guard: guard, Body: body}
}

type DoWhileLoop struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Guard Expression `json:"guard"`
	Body  Statement  `json:"body"`
}

func NewDoWhileLoop(guard Expression, body Statement) *DoWhileLoop {
	return &DoWhileLoop{nodeImpl: newNodeImpl(NodeDoWhileLoop), Guard: guard, Body: body}
}

type BreakStatement struct {
	nodeImpl
	blockItemMarker
	statementMarker
}

func NewBreakStatement() *BreakStatement {
	return &BreakStatement{nodeImpl: newNodeImpl(NodeBreakStatement)}
}

type ContinueStatement struct {
	nodeImpl
	blockItemMarker
	statementMarker
}

func NewContinueStatement() *ContinueStatement {
	return &ContinueStatement{nodeImpl: newNodeImpl(NodeContinueStatement)}
}

type ReturnStatement struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Value Expression `json:"value,omitempty"`
}

func NewReturnStatement(value Expression) *ReturnStatement {
	return &ReturnStatement{nodeImpl: newNodeImpl(NodeReturnStatement), Value: value}
}

type ThrowStatement struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Value Expression `json:"value"`
}

func NewThrowStatement(value Expression) *ThrowStatement {
	return &ThrowStatement{nodeImpl: newNodeImpl(NodeThrowStatement), Value: value}
}

type TryCatch struct {
	nodeImpl
	blockItemMarker
	statementMarker

	Try   Statement   `json:"try"`
	Error *Identifier `json:"error"`
	Catch Statement   `json:"catch"`
}

func NewTryCatch(try Statement, errID *Identifier, catch Statement) *TryCatch {
	return &TryCatch{nodeImpl: newNodeImpl(NodeTryCatch), Try: try, Error: errID, Catch: catch}
}

// Directives

type UseDirective struct {
	nodeImpl
	blockItemMarker
	classItemMarker
	directiveMarker

	Source  *Name    `json:"source,omitempty"`
	Imports []Import `json:"imports"`
}

func NewUseDirective(source *Name, imports []Import) *UseDirective {
	return &UseDirective{nodeImpl: newNodeImpl(NodeUseDirective), Source: source, Imports: imports}
}

// NamespaceImport brings every member of a namespace into scope.
type NamespaceImport struct {
	nodeImpl
	importMarker

	Name *Name `json:"name"`
}

func NewNamespaceImport(name *Name) *NamespaceImport {
	return &NamespaceImport{nodeImpl: newNodeImpl(NodeNamespaceImport), Name: name}
}

// NameImport binds one entity under its last segment or Alias.
type NameImport struct {
	nodeImpl
	importMarker

	Name  *Name       `json:"name"`
	Alias *Identifier `json:"alias,omitempty"`
}

func NewNameImport(name *Name, alias *Identifier) *NameImport {
	return &NameImport{nodeImpl: newNodeImpl(NodeNameImport), Name: name, Alias: alias}
}
