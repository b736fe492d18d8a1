package checker

import (
	"fmt"

	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// resolveTypeAnnotation converts a parsed type annotation into a types.Type.
// A nil annotation resolves to nil so callers can fall back to inference.
func (c *Checker) resolveTypeAnnotation(node parser.Expression) types.Type {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *parser.TypeReference:
		return c.resolveTypeReference(n)

	case *parser.ArrayTypeExpression:
		elem := c.resolveTypeAnnotation(n.ElementType)
		return &types.ArrayType{ElementType: elem}

	case *parser.TupleTypeExpression:
		tuple := &types.TupleType{}
		for _, e := range n.ElementTypes {
			tuple.ElementTypes = append(tuple.ElementTypes, c.resolveTypeAnnotation(e))
		}
		if n.RestType != nil {
			tuple.RestElementType = types.ElementType(c.resolveTypeAnnotation(n.RestType), -1)
		}
		return tuple

	case *parser.FunctionTypeExpression:
		return c.resolveFunctionType(n, false)

	case *parser.ObjectTypeExpression:
		obj := types.NewObjectType()
		for _, m := range n.Members {
			var t types.Type
			if ft, ok := m.Type.(*parser.FunctionTypeExpression); ok && m.IsMethod {
				t = c.resolveFunctionType(ft, true)
			} else {
				t = c.resolveTypeAnnotation(m.Type)
			}
			if m.Optional {
				t = types.NewUnionType(t, types.Undefined)
			}
			obj.Add(m.Name, t, m.IsMethod)
		}
		return obj

	case *parser.UnionTypeExpression:
		members := make([]types.Type, 0, len(n.Types))
		for _, t := range n.Types {
			members = append(members, c.resolveTypeAnnotation(t))
		}
		return types.NewUnionType(members...)
	}

	c.addError(node, fmt.Sprintf("unsupported type annotation: %s", node.String()))
	return types.Any
}

func (c *Checker) resolveFunctionType(n *parser.FunctionTypeExpression, method bool) *types.FunctionType {
	ft := &types.FunctionType{IsMethod: method}
	for _, p := range n.Parameters {
		pt := c.resolveTypeAnnotation(p.TypeAnnotation)
		if pt == nil {
			pt = types.Any
		}
		if p.IsRest {
			ft.RestParameterType = types.ElementType(pt, -1)
			continue
		}
		ft.ParameterTypes = append(ft.ParameterTypes, pt)
		ft.OptionalParams = append(ft.OptionalParams, p.Optional || p.DefaultValue != nil)
	}
	ft.ReturnType = c.resolveTypeAnnotation(n.ReturnType)
	return ft
}

func (c *Checker) resolveTypeReference(n *parser.TypeReference) types.Type {
	if prim, ok := types.Primitives[n.Name]; ok {
		if len(n.TypeArguments) > 0 {
			c.addError(n, fmt.Sprintf("type '%s' is not generic", n.Name))
		}
		return prim
	}

	switch n.Name {
	case "null":
		return types.Undefined
	case "object", "Object", "Function", "LuaTable", "LuaFunction":
		return types.Any
	case "Array", "ReadonlyArray":
		if len(n.TypeArguments) != 1 {
			c.addError(n, fmt.Sprintf("type '%s' requires exactly one type argument", n.Name))
			return types.Any
		}
		return &types.ArrayType{ElementType: c.resolveTypeAnnotation(n.TypeArguments[0])}
	case "LuaTuple":
		if len(n.TypeArguments) != 1 {
			c.addError(n, "LuaTuple requires exactly one tuple type argument")
			return types.Any
		}
		tuple, ok := c.resolveTypeAnnotation(n.TypeArguments[0]).(*types.TupleType)
		if !ok {
			c.addError(n, "LuaTuple requires a tuple type argument")
			return types.Any
		}
		return &types.TupleType{ElementTypes: tuple.ElementTypes, RestElementType: tuple.RestElementType, LuaTuple: true}
	}

	if len(n.TypeArguments) > 0 {
		c.addError(n, fmt.Sprintf("generic type '%s' is not supported", n.Name))
		return types.Any
	}
	if t := c.resolveTypeAlias(n.Name, n); t != nil {
		return t
	}
	c.addError(n, fmt.Sprintf("cannot find name '%s'", n.Name))
	return types.Any
}

// resolveTypeAlias resolves aliases lazily so that declarations may refer to
// aliases declared later in the same block. Self-referencing aliases resolve
// to any.
func (c *Checker) resolveTypeAlias(name string, at parser.Node) types.Type {
	t, decl, env := c.env.ResolveTypeAlias(name)
	if t != nil {
		return t
	}
	if decl == nil {
		return nil
	}
	if c.resolvingAliases[decl] {
		return types.Any
	}
	c.resolvingAliases[decl] = true
	saved := c.env
	c.env = env
	resolved := c.resolveTypeAnnotation(decl.Type)
	c.env = saved
	delete(c.resolvingAliases, decl)
	env.DefineTypeAlias(name, resolved)
	return resolved
}
