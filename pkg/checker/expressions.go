package checker

import (
	"fmt"

	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// visit computes the static type of an expression, records it on the node
// and resolves every identifier inside it.
func (c *Checker) visit(expr parser.Expression) types.Type {
	if expr == nil {
		return types.Any
	}
	t := c.typeOf(expr)
	if t == nil {
		t = types.Any
	}
	expr.SetComputedType(t)
	return t
}

func (c *Checker) typeOf(expr parser.Expression) types.Type {
	switch e := expr.(type) {
	case *parser.NumberLiteral:
		return types.Number
	case *parser.StringLiteral:
		return types.String
	case *parser.BooleanLiteral:
		return types.Boolean
	case *parser.UndefinedLiteral, *parser.NullLiteral:
		return types.Undefined
	case *parser.ThisExpression:
		if n := len(c.thisTypes); n > 0 {
			return c.thisTypes[n-1]
		}
		return types.Any

	case *parser.Identifier:
		sym := c.resolveIdentifier(e)
		if sym.Type == nil {
			return types.Any
		}
		return sym.Type

	case *parser.ArrayLiteral:
		var elems []types.Type
		for _, el := range e.Elements {
			if el == nil {
				elems = append(elems, types.Undefined)
				continue
			}
			t := c.visit(el)
			if _, ok := el.(*parser.SpreadElement); ok {
				t = types.ElementType(t, -1)
			}
			elems = append(elems, t)
		}
		if len(elems) == 0 {
			return &types.ArrayType{ElementType: types.Any}
		}
		return &types.ArrayType{ElementType: types.NewUnionType(elems...)}

	case *parser.SpreadElement:
		t := c.visit(e.Argument)
		if types.IsString(t) {
			return &types.ArrayType{ElementType: types.String}
		}
		return t

	case *parser.ObjectLiteral:
		// Function-valued properties are methods. Their signatures go in
		// first so bodies can call each other through `this`.
		obj := types.NewObjectType()
		var methods []*parser.ObjectProperty
		for _, prop := range e.Properties {
			if fn, ok := prop.Value.(*parser.FunctionLiteral); ok {
				sig := c.signatureOf(fn)
				sig.IsMethod = true
				obj.Add(prop.Key, sig, true)
				methods = append(methods, prop)
				continue
			}
			obj.Add(prop.Key, c.visit(prop.Value), false)
		}
		for _, prop := range methods {
			ft := c.checkMethod(prop.Value.(*parser.FunctionLiteral), obj)
			if ft.ReturnType != nil && !types.IsDynamic(ft.ReturnType) {
				obj.Add(prop.Key, ft, true)
			}
		}
		return obj

	case *parser.FunctionLiteral:
		return c.checkFunction(e, e.Name)

	case *parser.ArrowFunctionLiteral:
		return c.checkArrowFunction(e)

	case *parser.PrefixExpression:
		c.visit(e.Right)
		switch e.Operator {
		case "!":
			return types.Boolean
		case "typeof":
			return types.String
		}
		return types.Number

	case *parser.UpdateExpression:
		c.visit(e.Argument)
		return types.Number

	case *parser.InfixExpression:
		return c.typeOfInfix(e)

	case *parser.AssignmentExpression:
		valueType := c.visit(e.Value)
		if e.Operator == "=" {
			c.assignTarget(e.Left, valueType)
			return valueType
		}
		leftType := c.visit(e.Left)
		switch e.Operator {
		case "+=":
			return additionType(leftType, valueType)
		case "&&=", "||=", "??=":
			return types.NewUnionType(leftType, valueType)
		}
		return types.Number

	case *parser.TernaryExpression:
		c.visit(e.Condition)
		return types.NewUnionType(c.visit(e.Consequence), c.visit(e.Alternative))

	case *parser.CallExpression:
		return c.typeOfCall(e)

	case *parser.TemplateLiteral:
		for _, part := range e.Expressions {
			c.visit(part)
		}
		return types.String

	case *parser.TaggedTemplateExpression:
		tagType := c.visit(e.Tag)
		c.visit(e.Template)
		if ft, ok := tagType.(*types.FunctionType); ok && ft.ReturnType != nil {
			return ft.ReturnType
		}
		return types.Any

	case *parser.MemberExpression:
		objType := c.visit(e.Object)
		t, _ := c.memberType(objType, e.Property.Value)
		e.Property.SetComputedType(t)
		return t

	case *parser.IndexExpression:
		leftType := c.visit(e.Left)
		c.visit(e.Index)
		if types.IsString(leftType) {
			return types.String
		}
		if types.IsArray(leftType) {
			index := -1
			if lit, ok := e.Index.(*parser.NumberLiteral); ok && lit.Value == float64(int(lit.Value)) {
				index = int(lit.Value)
			}
			return types.ElementType(leftType, index)
		}
		if lit, ok := e.Index.(*parser.StringLiteral); ok {
			t, _ := c.memberType(leftType, lit.Value)
			return t
		}
		return types.Any

	case *parser.TypeAssertionExpression:
		c.visit(e.Expression)
		return c.resolveTypeAnnotation(e.Type)

	case *parser.ImportCallExpression:
		c.visit(e.Argument)
		return types.Any

	case *parser.NewExpression:
		c.visit(e.Callee)
		for _, arg := range e.Arguments {
			c.visit(arg)
		}
		return types.Any

	case *parser.ArrayPattern, *parser.ObjectPattern:
		c.assignTarget(e, types.Any)
		return types.Any
	}

	c.addError(expr, fmt.Sprintf("unexpected expression %T", expr))
	return types.Any
}

// resolveIdentifier binds a reference to its symbol. Unknown names become
// globals of type any, shared per name.
func (c *Checker) resolveIdentifier(id *parser.Identifier) *Symbol {
	sym, qualified := c.env.Resolve(id.Value)
	if sym == nil {
		sym = &Symbol{Name: id.Value, Kind: SymbolGlobal, Type: types.Any, declared: true}
		c.global.Define(sym)
	}
	if !sym.declared {
		debugPrintf("// [Checker] %s referenced before declaration, hoisting\n", id.Value)
		sym.Hoisted = true
	}
	sym.References++
	c.info.symbols[id] = sym
	if qualified {
		c.info.qualified[id] = true
	}
	return sym
}

// additionType types `+`: concatenation when either side is a string,
// numeric addition when both sides are numbers, any otherwise.
func additionType(left, right types.Type) types.Type {
	switch {
	case types.IsString(left) || types.IsString(right):
		return types.String
	case types.IsNumber(left) && types.IsNumber(right):
		return types.Number
	}
	return types.Any
}

func (c *Checker) typeOfInfix(e *parser.InfixExpression) types.Type {
	left := c.visit(e.Left)
	right := c.visit(e.Right)
	switch e.Operator {
	case "+":
		return additionType(left, right)
	case "===", "!==", "==", "!=", "<", ">", "<=", ">=", "in", "instanceof":
		return types.Boolean
	case "&&":
		return types.NewUnionType(left, right)
	case "||", "??":
		return types.NewUnionType(left, right)
	}
	return types.Number
}

func (c *Checker) typeOfCall(e *parser.CallExpression) types.Type {
	calleeType := c.visit(e.Function)
	var argTypes []types.Type
	for _, arg := range e.Arguments {
		argTypes = append(argTypes, c.visit(arg))
	}

	// xs.map(f) yields an array of f's return type.
	if member, ok := e.Function.(*parser.MemberExpression); ok && member.Property.Value == "map" &&
		types.IsArray(member.Object.GetComputedType()) && len(argTypes) > 0 {
		if ft, ok := argTypes[0].(*types.FunctionType); ok && ft.ReturnType != nil {
			return &types.ArrayType{ElementType: ft.ReturnType}
		}
	}

	switch ct := calleeType.(type) {
	case *types.FunctionType:
		if ct.ReturnType == nil {
			return types.Any
		}
		return ct.ReturnType
	case *types.Primitive:
		if ct == types.Number || ct == types.String || ct == types.Boolean || ct == types.Undefined {
			c.addError(e, fmt.Sprintf("value of type '%s' is not callable", ct))
		}
	case *types.ArrayType, *types.TupleType:
		c.addError(e, fmt.Sprintf("value of type '%s' is not callable", ct))
	}
	return types.Any
}

// memberType returns the type of reading name from a value of type t and
// whether the member is declared as a method.
func (c *Checker) memberType(t types.Type, name string) (types.Type, bool) {
	switch {
	case t == nil || types.IsDynamic(t):
		return types.Any, false
	case types.IsString(t):
		if mt := stringMemberType(name); mt != nil {
			return mt, false
		}
	case types.IsArray(t):
		if mt := arrayMemberType(name, types.ElementType(t, -1)); mt != nil {
			return mt, false
		}
	}
	if u, ok := t.(*types.UnionType); ok {
		var members []types.Type
		for _, m := range u.Types {
			if m == types.Undefined || m == types.Void {
				continue
			}
			mt, _ := c.memberType(m, name)
			members = append(members, mt)
		}
		return types.NewUnionType(members...), false
	}
	return types.PropertyType(t, name)
}
