package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/checker"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// callForm says where a lowered call may appear.
type callForm int

const (
	formCall      callForm = iota // a Lua call, valid as a statement and as a value
	formValue                     // a value that cannot stand alone as a statement
	formStatement                 // a complete statement, only valid in statement position
)

type callResult struct {
	text string
	form callForm
}

// callOptions carry what the consumer of a call accepts.
type callOptions struct {
	doNotWrap bool // the consumer takes every value of a LuaTuple call
	statement bool // the call is an expression statement
}

// call lowers a call expression. Calls returning a LuaTuple are wrapped in
// a table unless the consumer accepts multiple values.
func (l *Lowerer) call(e *parser.CallExpression, opts callOptions) (callResult, error) {
	callee := skipAssertions(e.Function)
	if member, ok := callee.(*parser.MemberExpression); ok {
		return l.memberCall(e, member, opts)
	}
	if _, ok := callee.(*parser.ImportCallExpression); ok {
		return callResult{}, l.errorf(callee, errors.CodeNoDynamicImport, "dynamic import is not supported")
	}

	if id, ok := callee.(*parser.Identifier); ok {
		if sym := l.info.SymbolOf(id); sym != nil && sym.Kind == checker.SymbolGlobal {
			if strategy, ok := methodRegistry[methodKey{categoryGlobal, id.Value}]; ok {
				values, err := l.orderedList(l.argumentItems(e.Arguments))
				if err != nil {
					return callResult{}, err
				}
				mc := &methodCall{args: values, argExprs: e.Arguments, statement: opts.statement, hasSpread: hasSpread(e.Arguments)}
				if res, ok := strategy(l, mc); ok {
					return res, nil
				}
				return l.wrapTuple(e, id.Value+"("+l.joinArguments(values, e.Arguments)+")", opts), nil
			}
		}
	}

	items := append([]listItem{{expr: callee, lower: func() (string, error) { return l.expression(callee) }}},
		l.argumentItems(e.Arguments)...)
	values, err := l.orderedList(items)
	if err != nil {
		return callResult{}, err
	}
	return l.wrapTuple(e, prefix(values[0])+"("+l.joinArguments(values[1:], e.Arguments)+")", opts), nil
}

// memberCall lowers `obj.name(args)`: rewrites for strings, arrays and
// globals first, then `obj:name(...)` for methods and `obj.name(...)` for
// function-valued properties.
func (l *Lowerer) memberCall(e *parser.CallExpression, member *parser.MemberExpression, opts callOptions) (callResult, error) {
	objType := member.Object.GetComputedType()
	name := member.Property.Value

	items := append([]listItem{{expr: member.Object, lower: func() (string, error) { return l.expression(member.Object) }}},
		l.argumentItems(e.Arguments)...)

	if category, ok := receiverCategoryOf(objType); ok {
		values, err := l.orderedList(items)
		if err != nil {
			return callResult{}, err
		}
		recv, args := values[0], values[1:]
		if strategy, ok := methodRegistry[methodKey{category, name}]; ok {
			mc := &methodCall{
				receiver:     recv,
				receiverType: objType,
				args:         args,
				argExprs:     e.Arguments,
				statement:    opts.statement,
				hasSpread:    hasSpread(e.Arguments),
			}
			if res, ok := strategy(l, mc); ok {
				return res, nil
			}
		}
		argText := l.joinArguments(args, e.Arguments)
		if category == categoryString && luaStringMethods[name] {
			return l.wrapTuple(e, prefix(recv)+":"+name+"("+argText+")", opts), nil
		}
		l.ctx.UsesRuntime = true
		return l.wrapTuple(e, "TS."+category.String()+"_"+name+"("+joinNonEmpty(recv, argText)+")", opts), nil
	}

	isMethod, err := l.isMethodCall(objType, name, e)
	if err != nil {
		return callResult{}, err
	}
	values, err := l.orderedList(items)
	if err != nil {
		return callResult{}, err
	}
	recv, argText := values[0], l.joinArguments(values[1:], e.Arguments)
	if !isMethod {
		return l.wrapTuple(e, fieldAccess(recv, name)+"("+argText+")", opts), nil
	}
	if isLuaName(name) {
		return l.wrapTuple(e, prefix(recv)+":"+name+"("+argText+")", opts), nil
	}
	// Keywords cannot follow `:`, so pass the receiver explicitly.
	recv = l.stableBase(recv)
	return l.wrapTuple(e, fieldAccess(recv, name)+"("+joinNonEmpty(recv, argText)+")", opts), nil
}

// isMethodCall reports whether name is declared as a method on every member
// of t that declares it. Mixed declarations cannot be called uniformly.
func (l *Lowerer) isMethodCall(t types.Type, name string, node parser.Node) (bool, error) {
	u, ok := t.(*types.UnionType)
	if !ok {
		pt, method := types.PropertyType(t, name)
		if ft, ok := pt.(*types.FunctionType); ok && ft.IsMethod {
			method = true
		}
		return method, nil
	}
	seen, method := false, false
	for _, m := range u.Types {
		if m == types.Undefined || m == types.Void || types.IsDynamic(m) {
			continue
		}
		mm, err := l.isMethodCall(m, name, node)
		if err != nil {
			return false, err
		}
		if seen && mm != method {
			return false, l.errorf(node, errors.CodeMixedMethodCall, "'%s' is a method on some members of '%s' and a function on others", name, t)
		}
		seen, method = true, mm
	}
	return method, nil
}

// argumentItems prepares call arguments. A trailing LuaTuple call passes all
// of its values through.
func (l *Lowerer) argumentItems(args []parser.Expression) []listItem {
	items := make([]listItem, len(args))
	for i, arg := range args {
		arg := arg
		switch a := skipAssertions(arg).(type) {
		case *parser.SpreadElement:
			items[i] = listItem{expr: a, lower: func() (string, error) { return l.spreadSource(a) }}
			continue
		case *parser.CallExpression:
			if i == len(args)-1 && types.IsLuaTuple(a.GetComputedType()) {
				items[i] = listItem{expr: a, lower: func() (string, error) {
					res, err := l.call(a, callOptions{doNotWrap: true})
					return res.text, err
				}}
				continue
			}
		}
		items[i] = listItem{expr: arg, lower: func() (string, error) { return l.expression(arg) }}
	}
	return items
}

func hasSpread(args []parser.Expression) bool {
	for _, a := range args {
		if _, ok := skipAssertions(a).(*parser.SpreadElement); ok {
			return true
		}
	}
	return false
}

// joinArguments renders lowered arguments. A spread in last position
// unpacks directly; spreads elsewhere concatenate into one array first.
func (l *Lowerer) joinArguments(values []string, args []parser.Expression) string {
	spreadAt := func(i int) bool {
		_, ok := skipAssertions(args[i]).(*parser.SpreadElement)
		return ok
	}
	last := len(values) - 1
	onlyLast := true
	for i := range values {
		if spreadAt(i) && i != last {
			onlyLast = false
		}
	}
	if onlyLast {
		if last >= 0 && spreadAt(last) {
			return joinNonEmpty(strings.Join(values[:last], ", "), "unpack("+values[last]+")")
		}
		return strings.Join(values, ", ")
	}

	var parts, run []string
	for i, v := range values {
		if spreadAt(i) {
			if len(run) > 0 {
				parts = append(parts, "{ "+strings.Join(run, ", ")+" }")
				run = nil
			}
			parts = append(parts, v)
			continue
		}
		run = append(run, v)
	}
	if len(run) > 0 {
		parts = append(parts, "{ "+strings.Join(run, ", ")+" }")
	}
	l.ctx.UsesRuntime = true
	return "unpack(TS.array_concat(" + strings.Join(parts, ", ") + "))"
}

// wrapTuple packs the values of a LuaTuple call into a table unless the
// consumer takes them all.
func (l *Lowerer) wrapTuple(e *parser.CallExpression, text string, opts callOptions) callResult {
	if types.IsLuaTuple(e.GetComputedType()) && !opts.doNotWrap {
		return callResult{text: "{ " + text + " }", form: formValue}
	}
	return callResult{text: text, form: formCall}
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
