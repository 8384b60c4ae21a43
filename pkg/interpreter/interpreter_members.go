package interpreter

import (
	"strings"

	"tscript/interpreter-go/pkg/runtime"
)

func joinName(parts []string) string {
	return strings.Join(parts, "::")
}

// memberValue resolves object.name for code running in env.
func (i *Interpreter) memberValue(object runtime.Value, name string, env *environment) (runtime.Value, error) {
	switch obj := object.(type) {
	case *runtime.ObjectValue:
		member, err := findMember(obj.Class, name, env.class)
		if err != nil {
			return nil, err
		}
		if member.Static {
			return i.staticMemberValue(member, env)
		}
		if member.Field != nil {
			binding, ok := obj.Layers[member.Owner][name]
			if !ok {
				return nil, runtime.Errorf(runtime.UndefinedReference, "field '%s' of %s is not initialized yet", name, obj.Class.Name)
			}
			return valueOrNull(binding.Value), nil
		}
		return runtime.BoundMethodValue{Receiver: obj, Method: member.Function}, nil
	case *runtime.ClassValue:
		member, err := findMember(obj, name, env.class)
		if err != nil {
			return nil, err
		}
		if !member.Static {
			return nil, runtime.Errorf(runtime.OperationNotPossible, "'%s::%s' is an instance member", member.Owner.Name, name)
		}
		return i.staticMemberValue(member, env)
	case *runtime.NamespaceValue:
		val, ok := obj.Lookup(name)
		if !ok {
			return nil, runtime.Errorf(runtime.UndefinedReference, "namespace '%s' has no member '%s'", obj.Name, name)
		}
		return valueOrNull(val), nil
	case *runtime.DictionaryValue:
		val, ok := obj.Entries[name]
		if !ok {
			return nil, runtime.Errorf(runtime.UndefinedReference, "dictionary has no key %q", name)
		}
		return val, nil
	default:
		return nil, runtime.Errorf(runtime.OperationNotPossible, "cannot access member '%s' of %s", name, valueOrNull(object).Kind())
	}
}

func (i *Interpreter) staticMemberValue(member *runtime.ClassMember, env *environment) (runtime.Value, error) {
	owner := member.Owner
	if err := i.ensureStatics(owner, env); err != nil {
		return nil, err
	}
	if member.Field != nil {
		binding, ok := owner.StaticVars[member.Name]
		if !ok {
			return nil, runtime.Errorf(runtime.UndefinedReference, "static '%s::%s' is not initialized yet", owner.Name, member.Name)
		}
		return valueOrNull(binding.Value), nil
	}
	val, ok := owner.StaticDecls[member.Name]
	if !ok {
		return nil, runtime.Errorf(runtime.UndefinedReference, "'%s::%s' is not defined", owner.Name, member.Name)
	}
	return val, nil
}

// memberPlace resolves object.name as an assignment target.
func (i *Interpreter) memberPlace(object runtime.Value, name string, env *environment) (place, error) {
	switch obj := object.(type) {
	case *runtime.ObjectValue:
		member, err := findMember(obj.Class, name, env.class)
		if err != nil {
			return place{}, err
		}
		if member.Field == nil {
			return place{}, runtime.Errorf(runtime.OperationNotPossible, "cannot assign to method '%s::%s'", member.Owner.Name, name)
		}
		if member.Static {
			return i.staticPlace(member, env)
		}
		binding, ok := obj.Layers[member.Owner][name]
		if !ok {
			return place{}, runtime.Errorf(runtime.UndefinedReference, "field '%s' of %s is not initialized yet", name, obj.Class.Name)
		}
		return bindingPlace(binding), nil
	case *runtime.ClassValue:
		member, err := findMember(obj, name, env.class)
		if err != nil {
			return place{}, err
		}
		if !member.Static || member.Field == nil {
			return place{}, runtime.Errorf(runtime.OperationNotPossible, "'%s::%s' is not a static variable", member.Owner.Name, name)
		}
		return i.staticPlace(member, env)
	case *runtime.NamespaceValue:
		if binding, ok := obj.Vars[name]; ok {
			return bindingPlace(binding), nil
		}
		if _, ok := obj.Decls[name]; ok {
			return place{}, runtime.Errorf(runtime.OperationNotPossible, "cannot assign to declaration '%s::%s'", obj.Name, name)
		}
		return place{}, runtime.Errorf(runtime.UndefinedReference, "namespace '%s' has no member '%s'", obj.Name, name)
	case *runtime.DictionaryValue:
		return place{
			get: func() (runtime.Value, error) {
				val, ok := obj.Entries[name]
				if !ok {
					return nil, runtime.Errorf(runtime.UndefinedReference, "dictionary has no key %q", name)
				}
				return val, nil
			},
			set: func(v runtime.Value) error {
				obj.Entries[name] = v
				return nil
			},
		}, nil
	default:
		return place{}, runtime.Errorf(runtime.OperationNotPossible, "cannot assign member '%s' of %s", name, valueOrNull(object).Kind())
	}
}

func (i *Interpreter) staticPlace(member *runtime.ClassMember, env *environment) (place, error) {
	if err := i.ensureStatics(member.Owner, env); err != nil {
		return place{}, err
	}
	binding, ok := member.Owner.StaticVars[member.Name]
	if !ok {
		return place{}, runtime.Errorf(runtime.UndefinedReference, "static '%s::%s' is not initialized yet", member.Owner.Name, member.Name)
	}
	return bindingPlace(binding), nil
}

// findMember looks name up from start towards the root for code of class
// from. Private members of from win over overrides further down, and
// inaccessible private members of other classes are stepped over.
func findMember(start *runtime.ClassValue, name string, from *runtime.ClassValue) (*runtime.ClassMember, error) {
	if from != nil && start.IsSubclassOf(from) {
		if member, ok := from.Members[name]; ok && member.Visibility == runtime.Private {
			return member, nil
		}
	}
	var hidden *runtime.ClassMember
	for cls := start; cls != nil; cls = cls.Base {
		member, ok := cls.Members[name]
		if !ok {
			continue
		}
		if canAccess(member.Visibility, member.Owner, from) {
			return member, nil
		}
		if member.Visibility == runtime.Private {
			if hidden == nil {
				hidden = member
			}
			continue
		}
		return nil, accessError(member)
	}
	if hidden != nil {
		return nil, accessError(hidden)
	}
	return nil, runtime.Errorf(runtime.UndefinedReference, "class '%s' has no member '%s'", start.Name, name)
}

func accessError(member *runtime.ClassMember) error {
	return runtime.Errorf(runtime.AccessViolation, "'%s::%s' is %s", member.Owner.Name, member.Name, member.Visibility)
}

// canAccess reports whether code of class from may use a member of owner
// with the given visibility. from is nil outside of class code.
func canAccess(visibility runtime.Visibility, owner, from *runtime.ClassValue) bool {
	switch visibility {
	case runtime.Public:
		return true
	case runtime.Protected:
		return from != nil && from.IsSubclassOf(owner)
	default:
		return from == owner
	}
}

func itemValue(container, index runtime.Value) (runtime.Value, error) {
	switch c := container.(type) {
	case *runtime.ArrayValue:
		idx, err := arrayIndex(c, index)
		if err != nil {
			return nil, err
		}
		return c.Elements[idx], nil
	case *runtime.DictionaryValue:
		key, ok := index.(runtime.StringValue)
		if !ok {
			return nil, runtime.Errorf(runtime.OperationNotPossible, "dictionary keys must be strings, got %s", valueOrNull(index).Kind())
		}
		val, ok := c.Entries[key.Val]
		if !ok {
			return nil, runtime.Errorf(runtime.UndefinedReference, "dictionary has no key %q", key.Val)
		}
		return val, nil
	case runtime.StringValue:
		n, ok := index.(runtime.NumberValue)
		if !ok {
			return nil, runtime.Errorf(runtime.OperationNotPossible, "string index must be a number, got %s", valueOrNull(index).Kind())
		}
		runes := []rune(c.Val)
		if n.Val < 0 || int(n.Val) >= len(runes) {
			return nil, runtime.Errorf(runtime.UndefinedReference, "string index %d out of range [0, %d)", n.Val, len(runes))
		}
		return runtime.StringValue{Val: string(runes[n.Val])}, nil
	default:
		return nil, runtime.Errorf(runtime.OperationNotPossible, "cannot index %s", valueOrNull(container).Kind())
	}
}

func itemPlace(container, index runtime.Value) (place, error) {
	switch c := container.(type) {
	case *runtime.ArrayValue:
		idx, err := arrayIndex(c, index)
		if err != nil {
			return place{}, err
		}
		return place{
			get: func() (runtime.Value, error) { return c.Elements[idx], nil },
			set: func(v runtime.Value) error {
				c.Elements[idx] = v
				return nil
			},
		}, nil
	case *runtime.DictionaryValue:
		key, ok := index.(runtime.StringValue)
		if !ok {
			return place{}, runtime.Errorf(runtime.OperationNotPossible, "dictionary keys must be strings, got %s", valueOrNull(index).Kind())
		}
		return place{
			get: func() (runtime.Value, error) { return itemValue(c, key) },
			set: func(v runtime.Value) error {
				c.Entries[key.Val] = v
				return nil
			},
		}, nil
	case runtime.StringValue:
		return place{}, runtime.Errorf(runtime.OperationNotPossible, "strings are immutable")
	default:
		return place{}, runtime.Errorf(runtime.OperationNotPossible, "cannot index %s", valueOrNull(container).Kind())
	}
}

func arrayIndex(arr *runtime.ArrayValue, index runtime.Value) (int, error) {
	n, ok := index.(runtime.NumberValue)
	if !ok {
		return 0, runtime.Errorf(runtime.OperationNotPossible, "array index must be a number, got %s", valueOrNull(index).Kind())
	}
	if n.Val < 0 || int(n.Val) >= len(arr.Elements) {
		return 0, runtime.Errorf(runtime.UndefinedReference, "array index %d out of range [0, %d)", n.Val, len(arr.Elements))
	}
	return int(n.Val), nil
}
