package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/checker"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

func returnsTuple(t types.Type) bool {
	ft, ok := t.(*types.FunctionType)
	return ok && types.IsLuaTuple(ft.ReturnType)
}

// functionText renders `function(params) ... end` with the closing `end` at
// the current indentation. Break and continue targets and the conditional
// chain do not reach into the body.
func (l *Lowerer) functionText(params []*parser.Parameter, body []parser.Statement, state *functionState) (string, error) {
	closing := l.ctx.Indent() + "end"

	l.functions = append(l.functions, state)
	savedJumps := l.jumps
	l.jumps = nil
	savedConditional := l.ctx.ConditionalContext()
	l.ctx.setConditionalContext("")
	l.ctx.PushIndent()
	l.ctx.PushIDScope()
	defer func() {
		l.ctx.PopIDScope()
		l.ctx.PopIndent()
		l.ctx.setConditionalContext(savedConditional)
		l.jumps = savedJumps
		l.functions = l.functions[:len(l.functions)-1]
	}()

	var names []string
	if state.selfParam {
		names = append(names, "self")
	}
	var prologue strings.Builder
	for _, p := range params {
		if err := l.checkName(p.Name); err != nil {
			return "", err
		}
		if p.IsRest {
			names = append(names, "...")
			prologue.WriteString(l.line("local " + p.Name.Value + " = { ... };"))
			continue
		}
		names = append(names, p.Name.Value)
		if p.DefaultValue != nil {
			stmt, err := l.defaultValue(p.Name.Value, p.DefaultValue)
			if err != nil {
				return "", err
			}
			prologue.WriteString(stmt)
		}
	}

	bodyText, err := l.block(body)
	if err != nil {
		return "", err
	}
	return "function(" + strings.Join(names, ", ") + ")\n" + prologue.String() + bodyText + closing, nil
}

// defaultValue emits `if target == nil then target = value; end;`. The
// value is evaluated only when it is used.
func (l *Lowerer) defaultValue(target string, value parser.Expression) (string, error) {
	var assign string
	_, err := l.indented(func() (string, error) {
		v, stmts, err := l.captured(func() (string, error) { return l.expression(value) })
		if err != nil {
			return "", err
		}
		assign = strings.Join(stmts, "") + l.line(target+" = "+v+";")
		return "", nil
	})
	if err != nil {
		return "", err
	}
	return l.line("if "+target+" == nil then") + assign + l.line("end;"), nil
}

// functionExpression lowers a function literal. Functions stored in object
// literals are methods and receive `self`. A named function expression that
// refers to itself is bound to its name inside a `do` block.
func (l *Lowerer) functionExpression(fn *parser.FunctionLiteral, method bool) (string, error) {
	state := &functionState{method: method, selfParam: method, returnsTuple: returnsTuple(fn.GetComputedType())}

	var self *checker.Symbol
	if !method && fn.Name != nil {
		if sym := l.info.SymbolOf(fn.Name); sym != nil && sym.Kind == checker.SymbolSelfFunction && sym.References > 0 {
			if err := l.checkName(fn.Name); err != nil {
				return "", err
			}
			self = sym
		}
	}
	if self == nil {
		return l.functionText(fn.Parameters, fn.Body.Statements, state)
	}

	name := fn.Name.Value
	result := l.ctx.NewID()
	var inner string
	_, err := l.indented(func() (string, error) {
		text, err := l.functionText(fn.Parameters, fn.Body.Statements, state)
		if err != nil {
			return "", err
		}
		inner = l.line("local "+name+";") + l.line(name+" = "+text+";") + l.line(result+" = "+name+";")
		return "", nil
	})
	if err != nil {
		return "", err
	}
	l.ctx.Push(l.line("local "+result+";"), l.line("do")+inner+l.line("end;"))
	return result, nil
}

// arrowFunction lowers an arrow function. Arrows keep the `self` of the
// enclosing method.
func (l *Lowerer) arrowFunction(fn *parser.ArrowFunctionLiteral) (string, error) {
	state := &functionState{returnsTuple: returnsTuple(fn.GetComputedType())}
	if cur := l.currentFunction(); cur != nil {
		state.method = cur.method
	}
	var body []parser.Statement
	switch b := fn.Body.(type) {
	case *parser.BlockStatement:
		body = b.Statements
	case parser.Expression:
		body = []parser.Statement{&parser.ReturnStatement{Token: b.GetToken(), ReturnValue: b}}
	default:
		return "", l.errorf(fn, errors.CodeUnexpectedNode, "unexpected arrow function body %T", fn.Body)
	}
	return l.functionText(fn.Parameters, body, state)
}

// functionDeclaration lowers `function f() {}` to a local function, or to an
// assignment to a forward-declared name when f is used before it.
func (l *Lowerer) functionDeclaration(s *parser.FunctionDeclaration) (string, error) {
	fn := s.Function
	name, sym, err := l.bindingName(fn.Name)
	if err != nil {
		return "", err
	}
	state := &functionState{returnsTuple: returnsTuple(fn.GetComputedType())}
	if sym != nil {
		state.returnsTuple = state.returnsTuple || returnsTuple(sym.Type)
	}
	text, err := l.functionText(fn.Parameters, fn.Body.Statements, state)
	if err != nil {
		return "", err
	}
	l.exportBinding(fn.Name, sym)
	if l.info.Hoisted(sym) {
		l.ctx.Hoist(name)
		return l.line(name + " = " + text + ";"), nil
	}
	return l.line("local function " + name + strings.TrimPrefix(text, "function") + ";"), nil
}

// returnStatement lowers `return`. LuaTuple functions return several values.
func (l *Lowerer) returnStatement(s *parser.ReturnStatement) (string, error) {
	if s.ReturnValue == nil {
		return l.line("return;"), nil
	}
	if fn := l.currentFunction(); fn != nil && fn.returnsTuple {
		return l.tupleReturn(s.ReturnValue)
	}
	value, claimed, err := l.withIntent(s.ReturnValue, Intent{Target: returnTarget})
	if err != nil || claimed {
		return "", err
	}
	return l.line("return " + value + ";"), nil
}

func (l *Lowerer) tupleReturn(expr parser.Expression) (string, error) {
	switch v := skipAssertions(expr).(type) {
	case *parser.ArrayLiteral:
		if !hasSpread(v.Elements) {
			items := make([]listItem, len(v.Elements))
			for i, el := range v.Elements {
				el := el
				if el == nil {
					items[i] = listItem{lower: func() (string, error) { return "nil", nil }}
					continue
				}
				items[i] = listItem{expr: el, lower: func() (string, error) { return l.expression(el) }}
			}
			values, err := l.orderedList(items)
			if err != nil {
				return "", err
			}
			return l.line("return " + strings.Join(values, ", ") + ";"), nil
		}
	case *parser.CallExpression:
		if types.IsLuaTuple(v.GetComputedType()) {
			res, err := l.call(v, callOptions{doNotWrap: true})
			if err != nil {
				return "", err
			}
			return l.line("return " + res.text + ";"), nil
		}
	}
	t := expr.GetComputedType()
	if !types.IsDynamic(t) && !types.IsArray(t) {
		return "", l.errorf(expr, errors.CodeBadLuaTupleUsage, "a LuaTuple function must return an array, not '%s'", typeName(t))
	}
	value, err := l.expression(expr)
	if err != nil {
		return "", err
	}
	return l.line("return unpack(" + value + ");"), nil
}
