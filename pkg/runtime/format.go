package runtime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueToString renders a value the way print shows it. Top-level strings
// are unquoted; strings nested in containers are quoted.
func ValueToString(val Value) string {
	if s, ok := val.(StringValue); ok {
		return s.Val
	}
	return inspect(val)
}

// Inspect renders a value with strings quoted.
func Inspect(val Value) string {
	return inspect(val)
}

func inspect(val Value) string {
	switch v := val.(type) {
	case NullValue:
		return "null"
	case BoolValue:
		if v.Val {
			return "true"
		}
		return "false"
	case NumberValue:
		return strconv.FormatInt(int64(v.Val), 10)
	case RealValue:
		return formatReal(v.Val)
	case StringValue:
		return strconv.Quote(v.Val)
	case *ArrayValue:
		parts := make([]string, 0, len(v.Elements))
		for _, el := range v.Elements {
			parts = append(parts, inspect(el))
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	case *DictionaryValue:
		keys := make([]string, 0, len(v.Entries))
		for k := range v.Entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", strconv.Quote(k), inspect(v.Entries[k])))
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	case *ObjectValue:
		return fmt.Sprintf("<%s instance>", className(v.Class))
	case *ClassValue:
		return fmt.Sprintf("<class %s>", className(v))
	case *NamespaceValue:
		return fmt.Sprintf("<namespace %s>", v.Name)
	case *FunctionValue:
		if v.Name == "" {
			return "<lambda>"
		}
		return fmt.Sprintf("<function %s>", v.Name)
	case BoundMethodValue:
		name := ""
		if v.Method != nil {
			name = v.Method.Name
		}
		return fmt.Sprintf("<bound method %s>", name)
	case NativeFunctionValue:
		return fmt.Sprintf("<native %s>", v.Name)
	default:
		if val == nil {
			return "null"
		}
		return fmt.Sprintf("[%s]", val.Kind())
	}
}

func className(c *ClassValue) string {
	if c == nil {
		return "object"
	}
	return c.Name
}

func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEIN") {
		return s
	}
	return s + ".0"
}
