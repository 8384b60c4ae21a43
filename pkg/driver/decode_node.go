package driver

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"tscript/interpreter-go/pkg/ast"
)

// jsonAPI keeps number literals as json.Number so whole numbers can become
// Integer literals, matching YAML documents.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Format selects the encoding of an AST document.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatForPath picks the document format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("ast document %s: unsupported extension %q", path, filepath.Ext(path))
	}
}

// DecodeFile reads and decodes the AST document at path.
func DecodeFile(path string) (*ast.Block, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ast document: read %s: %w", path, err)
	}
	block, err := DecodeDocument(data, format)
	if err != nil {
		return nil, fmt.Errorf("ast document %s: %w", path, err)
	}
	return block, nil
}

// DecodeDocument decodes a program. The root is either a Block node or a
// bare list of block items.
func DecodeDocument(data []byte, format Format) (*ast.Block, error) {
	var raw any
	switch format {
	case FormatJSON:
		if err := jsonAPI.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		var err error
		if raw, err = normalizeJSONNumbers(raw); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown document format %d", format)
	}
	if list, ok := raw.([]any); ok {
		items, err := decodeItems(list)
		if err != nil {
			return nil, err
		}
		return ast.NewBlock(items), nil
	}
	return decodeBlock(raw)
}

func decodeNode(raw any) (ast.Node, error) {
	node, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected node mapping, found %T", raw)
	}
	typ, _ := node["type"].(string)
	switch ast.NodeType(typ) {
	case ast.NodeBlock:
		return decodeBlock(node)
	case ast.NodeIdentifier:
		return decodeIdentifier(node)
	case ast.NodeName:
		return decodeName(node)
	case ast.NodeNullLiteral:
		return ast.NewNullLiteral(), nil
	case ast.NodeBooleanLiteral:
		val, _ := node["value"].(bool)
		return ast.NewBooleanLiteral(val), nil
	case ast.NodeIntegerLiteral:
		val, err := intValue(node["value"])
		if err != nil {
			return nil, err
		}
		return ast.NewIntegerLiteral(val), nil
	case ast.NodeRealLiteral:
		val, err := realValue(node["value"])
		if err != nil {
			return nil, err
		}
		return ast.NewRealLiteral(val), nil
	case ast.NodeStringLiteral:
		val, _ := node["value"].(string)
		return ast.NewStringLiteral(val), nil
	case ast.NodeArrayLiteral:
		elements, err := decodeExpressions(node["elements"])
		if err != nil {
			return nil, err
		}
		return ast.NewArrayLiteral(elements), nil
	case ast.NodeDictionaryLiteral:
		list, _ := node["entries"].([]any)
		entries := make([]*ast.DictionaryEntry, 0, len(list))
		for _, rawEntry := range list {
			entry, ok := rawEntry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid dictionary entry %T", rawEntry)
			}
			key, ok := entry["key"].(string)
			if !ok {
				return nil, fmt.Errorf("dictionary entry without a string key")
			}
			value, err := decodeExpression(entry["value"])
			if err != nil {
				return nil, err
			}
			entries = append(entries, ast.NewDictionaryEntry(key, value))
		}
		return ast.NewDictionaryLiteral(entries), nil
	case ast.NodeLambdaLiteral:
		params, err := decodeParameters(node["params"])
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(node["body"])
		if err != nil {
			return nil, err
		}
		return ast.NewLambdaLiteral(params, body), nil
	case ast.NodeGroup:
		inner, err := decodeExpression(node["inner"])
		if err != nil {
			return nil, err
		}
		kind, _ := node["kind"].(string)
		if kind == "" {
			kind = string(ast.GroupRounded)
		}
		return ast.NewGroup(ast.GroupKind(kind), inner), nil
	case ast.NodeUnaryOperation:
		op, _ := node["operator"].(string)
		operand, err := decodeExpression(node["operand"])
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOperation(ast.UnaryOperator(op), operand), nil
	case ast.NodeBinaryOperation:
		op, _ := node["operator"].(string)
		left, err := decodeExpression(node["left"])
		if err != nil {
			return nil, err
		}
		right, err := decodeExpression(node["right"])
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryOperation(ast.BinaryOperator(op), left, right), nil
	case ast.NodeFunctionCall:
		callee, err := decodeExpression(node["callee"])
		if err != nil {
			return nil, err
		}
		args, err := decodeArguments(node["arguments"])
		if err != nil {
			return nil, err
		}
		return ast.NewFunctionCall(callee, args), nil
	case ast.NodeItemAccess:
		container, err := decodeExpression(node["container"])
		if err != nil {
			return nil, err
		}
		index, err := decodeExpression(node["index"])
		if err != nil {
			return nil, err
		}
		return ast.NewItemAccess(container, index), nil
	case ast.NodeMemberAccess:
		object, err := decodeExpression(node["object"])
		if err != nil {
			return nil, err
		}
		member, err := decodeIdentifier(node["member"])
		if err != nil {
			return nil, err
		}
		return ast.NewMemberAccess(object, member), nil
	case ast.NodeBlockStatement:
		block, err := decodeBlock(node["block"])
		if err != nil {
			return nil, err
		}
		return ast.NewBlockStatement(block), nil
	case ast.NodeExpressionStatement:
		expr, err := decodeExpression(node["expression"])
		if err != nil {
			return nil, err
		}
		return ast.NewExpressionStatement(expr), nil
	case ast.NodeAssignment:
		target, err := decodeAssignmentTarget(node["target"])
		if err != nil {
			return nil, err
		}
		op, _ := node["operator"].(string)
		if op == "" {
			op = string(ast.AssignEquals)
		}
		value, err := decodeExpression(node["value"])
		if err != nil {
			return nil, err
		}
		return ast.NewAssignment(target, ast.AssignmentOperator(op), value), nil
	case ast.NodeCondition:
		guard, err := decodeExpression(node["guard"])
		if err != nil {
			return nil, err
		}
		then, err := decodeStatement(node["then"])
		if err != nil {
			return nil, err
		}
		var els ast.Statement
		if node["else"] != nil {
			els, err = decodeStatement(node["else"])
			if err != nil {
				return nil, err
			}
		}
		return ast.NewCondition(guard, then, els), nil
	case ast.NodeForLoop:
		var variable ast.LoopVariable
		switch v := node["variable"].(type) {
		case nil:
		case string:
			if strings.Contains(v, "::") {
				variable = nameFromString(v)
			} else {
				variable = ast.NewIdentifier(v)
			}
		default:
			decoded, err := decodeNode(v)
			if err != nil {
				return nil, err
			}
			lv, ok := decoded.(ast.LoopVariable)
			if !ok {
				return nil, fmt.Errorf("invalid loop variable %T", decoded)
			}
			variable = lv
		}
		iterable, err := decodeExpression(node["iterable"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStatement(node["body"])
		if err != nil {
			return nil, err
		}
		return ast.NewForLoop(variable, iterable, body), nil
	case ast.NodeWhileDoLoop, ast.NodeDoWhileLoop:
		guard, err := decodeExpression(node["guard"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStatement(node["body"])
		if err != nil {
			return nil, err
		}
		if ast.NodeType(typ) == ast.NodeDoWhileLoop {
			return ast.NewDoWhileLoop(guard, body), nil
		}
		return ast.NewWhileDoLoop(guard, body), nil
	case ast.NodeBreakStatement:
		return ast.NewBreakStatement(), nil
	case ast.NodeContinueStatement:
		return ast.NewContinueStatement(), nil
	case ast.NodeReturnStatement:
		var value ast.Expression
		if node["value"] != nil {
			expr, err := decodeExpression(node["value"])
			if err != nil {
				return nil, err
			}
			value = expr
		}
		return ast.NewReturnStatement(value), nil
	case ast.NodeThrowStatement:
		value, err := decodeExpression(node["value"])
		if err != nil {
			return nil, err
		}
		return ast.NewThrowStatement(value), nil
	case ast.NodeTryCatch:
		try, err := decodeStatement(node["try"])
		if err != nil {
			return nil, err
		}
		errID, err := decodeIdentifier(node["error"])
		if err != nil {
			return nil, err
		}
		catch, err := decodeStatement(node["catch"])
		if err != nil {
			return nil, err
		}
		return ast.NewTryCatch(try, errID, catch), nil
	case ast.NodeUseDirective:
		var source *ast.Name
		if node["source"] != nil {
			name, err := decodeName(node["source"])
			if err != nil {
				return nil, err
			}
			source = name
		}
		imports, err := decodeImports(node["imports"])
		if err != nil {
			return nil, err
		}
		return ast.NewUseDirective(source, imports), nil
	case ast.NodeNamespaceImport:
		name, err := decodeName(node["name"])
		if err != nil {
			return nil, err
		}
		return ast.NewNamespaceImport(name), nil
	case ast.NodeNameImport:
		name, err := decodeName(node["name"])
		if err != nil {
			return nil, err
		}
		var alias *ast.Identifier
		if node["alias"] != nil {
			alias, err = decodeIdentifier(node["alias"])
			if err != nil {
				return nil, err
			}
		}
		return ast.NewNameImport(name, alias), nil
	case ast.NodeVariableDeclaration:
		list, _ := node["bindings"].([]any)
		bindings := make([]*ast.VariableBinding, 0, len(list))
		for _, rawBinding := range list {
			binding, ok := rawBinding.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid variable binding %T", rawBinding)
			}
			id, err := decodeIdentifier(binding["id"])
			if err != nil {
				return nil, err
			}
			var value ast.Expression
			if binding["value"] != nil {
				value, err = decodeExpression(binding["value"])
				if err != nil {
					return nil, err
				}
			}
			bindings = append(bindings, ast.NewVariableBinding(id, value))
		}
		return ast.NewVariableDeclaration(bindings), nil
	case ast.NodeFunctionDeclaration:
		id, err := decodeIdentifier(node["id"])
		if err != nil {
			return nil, err
		}
		params, err := decodeParameters(node["params"])
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(node["body"])
		if err != nil {
			return nil, err
		}
		return ast.NewFunctionDeclaration(id, params, body), nil
	case ast.NodeClassDeclaration:
		id, err := decodeIdentifier(node["id"])
		if err != nil {
			return nil, err
		}
		var extends *ast.Name
		if node["extends"] != nil {
			extends, err = decodeName(node["extends"])
			if err != nil {
				return nil, err
			}
		}
		public, err := decodeClassItems(node["public"])
		if err != nil {
			return nil, err
		}
		private, err := decodeClassItems(node["private"])
		if err != nil {
			return nil, err
		}
		protected, err := decodeClassItems(node["protected"])
		if err != nil {
			return nil, err
		}
		return ast.NewClassDeclaration(id, extends, public, private, protected), nil
	case ast.NodeConstructor:
		params, err := decodeParameters(node["params"])
		if err != nil {
			return nil, err
		}
		superArgs, err := decodeArguments(node["superArgs"])
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(node["body"])
		if err != nil {
			return nil, err
		}
		return ast.NewConstructor(params, superArgs, body), nil
	case ast.NodeStaticDeclaration, ast.NodeMemberDeclaration:
		decl, err := decodeDeclaration(node["declaration"])
		if err != nil {
			return nil, err
		}
		if ast.NodeType(typ) == ast.NodeStaticDeclaration {
			return ast.NewStaticDeclaration(decl), nil
		}
		return ast.NewMemberDeclaration(decl), nil
	case ast.NodeNamespaceDeclaration:
		id, err := decodeIdentifier(node["id"])
		if err != nil {
			return nil, err
		}
		body, err := decodeBlock(node["body"])
		if err != nil {
			return nil, err
		}
		return ast.NewNamespaceDeclaration(id, body), nil
	case "":
		return nil, fmt.Errorf("node without a type field")
	default:
		return nil, fmt.Errorf("unsupported node type %q", typ)
	}
}

func decodeBlock(raw any) (*ast.Block, error) {
	switch v := raw.(type) {
	case nil:
		return ast.NewBlock(nil), nil
	case []any:
		items, err := decodeItems(v)
		if err != nil {
			return nil, err
		}
		return ast.NewBlock(items), nil
	case map[string]any:
		if typ, _ := v["type"].(string); typ != string(ast.NodeBlock) {
			return nil, fmt.Errorf("expected Block, found %q", typ)
		}
		list, _ := v["items"].([]any)
		items, err := decodeItems(list)
		if err != nil {
			return nil, err
		}
		return ast.NewBlock(items), nil
	default:
		return nil, fmt.Errorf("invalid block %T", raw)
	}
}

func decodeItems(list []any) ([]ast.BlockItem, error) {
	items := make([]ast.BlockItem, 0, len(list))
	for _, raw := range list {
		node, err := decodeNode(raw)
		if err != nil {
			return nil, err
		}
		// Bare expressions are accepted as expression statements.
		if expr, ok := node.(ast.Expression); ok {
			items = append(items, ast.NewExpressionStatement(expr))
			continue
		}
		item, ok := node.(ast.BlockItem)
		if !ok {
			return nil, fmt.Errorf("%s cannot appear in a block", node.NodeType())
		}
		items = append(items, item)
	}
	return items, nil
}

// normalizeJSONNumbers rewrites json.Number leaves in place: numbers without
// a fraction or exponent become int, the rest float64.
func normalizeJSONNumbers(raw any) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		text := v.String()
		if !strings.ContainsAny(text, ".eE") {
			if n, err := v.Int64(); err == nil {
				return int(n), nil
			}
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", text, err)
		}
		return f, nil
	case []any:
		for i, elem := range v {
			norm, err := normalizeJSONNumbers(elem)
			if err != nil {
				return nil, err
			}
			v[i] = norm
		}
	case map[string]any:
		for key, elem := range v {
			norm, err := normalizeJSONNumbers(elem)
			if err != nil {
				return nil, err
			}
			v[key] = norm
		}
	}
	return raw, nil
}

func decodeExpression(raw any) (ast.Expression, error) {
	if raw == nil {
		return nil, fmt.Errorf("missing expression")
	}
	// Scalar shorthand: strings are names, whole numbers are Integer
	// literals, other numbers are Real literals.
	switch v := raw.(type) {
	case string:
		return nameFromString(v), nil
	case bool:
		return ast.NewBooleanLiteral(v), nil
	case int:
		n, err := intValue(v)
		if err != nil {
			return nil, err
		}
		return ast.NewIntegerLiteral(n), nil
	case float64:
		return ast.NewRealLiteral(v), nil
	}
	node, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	expr, ok := node.(ast.Expression)
	if !ok {
		return nil, fmt.Errorf("%s is not an expression", node.NodeType())
	}
	return expr, nil
}

func decodeExpressions(raw any) ([]ast.Expression, error) {
	list, _ := raw.([]any)
	out := make([]ast.Expression, 0, len(list))
	for _, el := range list {
		expr, err := decodeExpression(el)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

func decodeStatement(raw any) (ast.Statement, error) {
	if list, ok := raw.([]any); ok {
		block, err := decodeBlock(list)
		if err != nil {
			return nil, err
		}
		return ast.NewBlockStatement(block), nil
	}
	node, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	if expr, ok := node.(ast.Expression); ok {
		return ast.NewExpressionStatement(expr), nil
	}
	stmt, ok := node.(ast.Statement)
	if !ok {
		return nil, fmt.Errorf("%s is not a statement", node.NodeType())
	}
	return stmt, nil
}

func decodeDeclaration(raw any) (ast.Declaration, error) {
	node, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	decl, ok := node.(ast.Declaration)
	if !ok {
		return nil, fmt.Errorf("%s is not a declaration", node.NodeType())
	}
	return decl, nil
}

func decodeAssignmentTarget(raw any) (ast.AssignmentTarget, error) {
	if s, ok := raw.(string); ok {
		return nameFromString(s), nil
	}
	node, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	target, ok := node.(ast.AssignmentTarget)
	if !ok {
		return nil, fmt.Errorf("%s is not an assignment target", node.NodeType())
	}
	return target, nil
}

// decodeIdentifier accepts an Identifier node or a plain string.
func decodeIdentifier(raw any) (*ast.Identifier, error) {
	switch v := raw.(type) {
	case string:
		return ast.NewIdentifier(v), nil
	case map[string]any:
		name, _ := v["name"].(string)
		return ast.NewIdentifier(name), nil
	case nil:
		return nil, fmt.Errorf("missing identifier")
	default:
		return nil, fmt.Errorf("invalid identifier %T", raw)
	}
}

// decodeName accepts a Name node, a list of segments or a "a::b" string.
func decodeName(raw any) (*ast.Name, error) {
	switch v := raw.(type) {
	case string:
		return nameFromString(v), nil
	case []any:
		parts := make([]*ast.Identifier, 0, len(v))
		for _, part := range v {
			id, err := decodeIdentifier(part)
			if err != nil {
				return nil, err
			}
			parts = append(parts, id)
		}
		return ast.NewName(parts), nil
	case map[string]any:
		if typ, _ := v["type"].(string); typ == string(ast.NodeIdentifier) {
			id, err := decodeIdentifier(v)
			if err != nil {
				return nil, err
			}
			return ast.NewName([]*ast.Identifier{id}), nil
		}
		return decodeName(v["parts"])
	default:
		return nil, fmt.Errorf("invalid name %T", raw)
	}
}

func nameFromString(s string) *ast.Name {
	return ast.N(strings.Split(s, "::")...)
}

func decodeParameters(raw any) ([]*ast.Parameter, error) {
	list, _ := raw.([]any)
	params := make([]*ast.Parameter, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok {
			params = append(params, ast.NewParameter(ast.NewIdentifier(s), nil))
			continue
		}
		node, ok := el.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid parameter %T", el)
		}
		id, err := decodeIdentifier(node["id"])
		if err != nil {
			return nil, err
		}
		var def ast.Expression
		if node["default"] != nil {
			def, err = decodeExpression(node["default"])
			if err != nil {
				return nil, err
			}
		}
		params = append(params, ast.NewParameter(id, def))
	}
	return params, nil
}

func decodeArguments(raw any) ([]*ast.Argument, error) {
	list, _ := raw.([]any)
	args := make([]*ast.Argument, 0, len(list))
	for _, el := range list {
		node, ok := el.(map[string]any)
		if ok && node["type"] == string(ast.NodeArgument) {
			var name *ast.Identifier
			if node["name"] != nil {
				id, err := decodeIdentifier(node["name"])
				if err != nil {
					return nil, err
				}
				name = id
			}
			value, err := decodeExpression(node["value"])
			if err != nil {
				return nil, err
			}
			args = append(args, ast.NewArgument(name, value))
			continue
		}
		value, err := decodeExpression(el)
		if err != nil {
			return nil, err
		}
		args = append(args, ast.NewArgument(nil, value))
	}
	return args, nil
}

func decodeClassItems(raw any) ([]ast.ClassItem, error) {
	list, _ := raw.([]any)
	items := make([]ast.ClassItem, 0, len(list))
	for _, el := range list {
		node, err := decodeNode(el)
		if err != nil {
			return nil, err
		}
		// A bare declaration is an instance member.
		if decl, ok := node.(ast.Declaration); ok {
			items = append(items, ast.NewMemberDeclaration(decl))
			continue
		}
		item, ok := node.(ast.ClassItem)
		if !ok {
			return nil, fmt.Errorf("%s cannot appear in a class body", node.NodeType())
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeImports(raw any) ([]ast.Import, error) {
	list, _ := raw.([]any)
	imports := make([]ast.Import, 0, len(list))
	for _, el := range list {
		if s, ok := el.(string); ok {
			imports = append(imports, ast.NewNameImport(nameFromString(s), nil))
			continue
		}
		node, err := decodeNode(el)
		if err != nil {
			return nil, err
		}
		imp, ok := node.(ast.Import)
		if !ok {
			return nil, fmt.Errorf("%s is not an import", node.NodeType())
		}
		imports = append(imports, imp)
	}
	return imports, nil
}

func intValue(raw any) (int32, error) {
	switch v := raw.(type) {
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("integer literal %d out of range", v)
		}
		return int32(v), nil
	case int64:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("integer literal %d out of range", v)
		}
		return int32(v), nil
	case uint64:
		if v > math.MaxInt32 {
			return 0, fmt.Errorf("integer literal %d out of range", v)
		}
		return int32(v), nil
	case float64:
		if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("integer literal %v is not a 32-bit integer", v)
		}
		return int32(v), nil
	default:
		return 0, fmt.Errorf("invalid integer literal %T", raw)
	}
}

func realValue(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		switch strings.ToLower(v) {
		case "inf", "+inf", ".inf":
			return math.Inf(1), nil
		case "-inf", "-.inf":
			return math.Inf(-1), nil
		case "nan", ".nan":
			return math.NaN(), nil
		}
	}
	return 0, fmt.Errorf("invalid real literal %v", raw)
}
