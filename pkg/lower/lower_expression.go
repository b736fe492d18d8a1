package lower

import (
	"strconv"

	"github.com/nooga/tslua/pkg/checker"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// expression lowers expr for use as a value. Statements the value depends on
// are pushed to the innermost preceding buffer.
func (l *Lowerer) expression(expr parser.Expression) (string, error) {
	debugPrintf("// [Lower] expression %T\n", expr)
	switch e := expr.(type) {
	case *parser.NumberLiteral, *parser.StringLiteral, *parser.BooleanLiteral,
		*parser.UndefinedLiteral, *parser.NullLiteral:
		return l.literal(e)
	case *parser.Identifier:
		return l.identifier(e)
	case *parser.ThisExpression:
		return l.this(e)
	case *parser.ArrayLiteral:
		return l.arrayLiteral(e)
	case *parser.ObjectLiteral:
		return l.objectLiteral(e)
	case *parser.FunctionLiteral:
		return l.functionExpression(e, false)
	case *parser.ArrowFunctionLiteral:
		return l.arrowFunction(e)
	case *parser.TernaryExpression:
		return l.conditional(e)
	case *parser.InfixExpression:
		return l.binary(e)
	case *parser.PrefixExpression:
		return l.unary(e)
	case *parser.UpdateExpression:
		return l.update(e, false)
	case *parser.AssignmentExpression:
		return l.assignment(e, false)
	case *parser.CallExpression:
		res, err := l.call(e, callOptions{})
		return res.text, err
	case *parser.TemplateLiteral:
		return l.template(e)
	case *parser.TaggedTemplateExpression:
		return l.taggedTemplate(e)
	case *parser.MemberExpression:
		return l.member(e)
	case *parser.IndexExpression:
		return l.index(e)
	case *parser.TypeAssertionExpression:
		return l.expression(e.Expression)
	case *parser.ImportCallExpression:
		return "", l.errorf(e, errors.CodeNoDynamicImport, "dynamic import is not supported")
	case *parser.NewExpression:
		return "", l.errorf(e, errors.CodeUnsupportedNode, "'new' is not supported")
	case *parser.SpreadElement:
		return "", l.errorf(e, errors.CodeUnexpectedNode, "spread is only allowed in array literals and call arguments")
	case *parser.ArrayPattern, *parser.ObjectPattern:
		return "", l.errorf(e, errors.CodeUnexpectedNode, "binding pattern used as a value")
	}
	return "", l.errorf(expr, errors.CodeUnexpectedNode, "unexpected expression %T", expr)
}

// listItem is one operand of an ordered list. expr is used for error
// positions and may be nil.
type listItem struct {
	expr  parser.Expression
	lower func() (string, error)
}

func exprItems(l *Lowerer, exprs []parser.Expression) []listItem {
	items := make([]listItem, len(exprs))
	for i, e := range exprs {
		e := e
		items[i] = listItem{expr: e, lower: func() (string, error) { return l.expression(e) }}
	}
	return items
}

// orderedList lowers operands left to right. When an operand needs
// statements, the values of the operands before it are saved to temporaries
// first, so their side effects stay ahead of its own.
func (l *Lowerer) orderedList(items []listItem) ([]string, error) {
	values := make([]string, len(items))
	for i, item := range items {
		v, stmts, err := l.captured(item.lower)
		if err != nil {
			return nil, err
		}
		if len(stmts) > 0 {
			for j := 0; j < i; j++ {
				if !isStableValue(values[j]) && !l.isImmutableName(items[j].expr) {
					values[j] = l.ctx.PushToNewID(values[j], isPureValue(values[j]))
				}
			}
			l.ctx.Push(stmts...)
		}
		values[i] = v
	}
	return values, nil
}

// isImmutableName reports whether expr names a binding that nothing can
// reassign, so reading it later yields the same value.
func (l *Lowerer) isImmutableName(expr parser.Expression) bool {
	if expr == nil {
		return false
	}
	id, ok := skipAssertions(expr).(*parser.Identifier)
	if !ok {
		return false
	}
	sym := l.info.SymbolOf(id)
	if sym == nil {
		return true
	}
	switch sym.Kind {
	case checker.SymbolConst, checker.SymbolFunction, checker.SymbolNamespace, checker.SymbolGlobal, checker.SymbolSelfFunction:
		return !readsThroughTable(sym)
	}
	return false
}

func isStringType(e parser.Expression) bool {
	return types.IsString(e.GetComputedType())
}

// isArrayType reports whether e is a 1-based Lua array at runtime. A
// LuaTuple used as a value has been packed into one.
func isArrayType(e parser.Expression) bool {
	t := e.GetComputedType()
	return types.IsArray(t) || types.IsLuaTuple(t)
}

// member lowers `obj.name`.
func (l *Lowerer) member(e *parser.MemberExpression) (string, error) {
	obj, err := l.expression(e.Object)
	if err != nil {
		return "", err
	}
	name := e.Property.Value
	if name == "length" && (isStringType(e.Object) || isArrayType(e.Object)) {
		return "#" + prefix(obj), nil
	}
	return fieldAccess(obj, name), nil
}

// index lowers `obj[key]`. Array indices shift to Lua's 1-based tables and
// string indices read one character.
func (l *Lowerer) index(e *parser.IndexExpression) (string, error) {
	values, err := l.orderedList(exprItems(l, []parser.Expression{e.Left, e.Index}))
	if err != nil {
		return "", err
	}
	obj, key := values[0], values[1]
	switch {
	case isStringType(e.Left):
		// The key is read twice; a temporary for it must not run ahead of
		// the receiver.
		if !isPureValue(key) {
			if !isStableValue(obj) && !l.isImmutableName(e.Left) {
				obj = l.ctx.PushToNewID(obj, isPureValue(obj))
			}
			key = l.ctx.PushToNewID(key, false)
		}
		pos := offsetIndex(key)
		return "string.sub(" + obj + ", " + pos + ", " + pos + ")", nil
	case isArrayType(e.Left):
		return prefix(obj) + "[" + offsetIndex(key) + "]", nil
	}
	if lit, ok := e.Index.(*parser.StringLiteral); ok {
		return fieldAccess(obj, lit.Value), nil
	}
	return prefix(obj) + "[" + key + "]", nil
}

// offsetIndex turns a 0-based index into a 1-based one, folding literals.
func offsetIndex(key string) string {
	if n, err := strconv.Atoi(key); err == nil {
		return strconv.Itoa(n + 1)
	}
	return paren(key) + " + 1"
}
