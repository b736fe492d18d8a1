package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
)

// lowerStatement dispatches on the statement kind. Statements that produce
// no Lua return "".
func (l *Lowerer) lowerStatement(stmt parser.Statement) (string, error) {
	debugPrintf("// [Lower] statement %T\n", stmt)
	switch s := stmt.(type) {
	case *parser.VariableStatement:
		return l.variableStatement(s)
	case *parser.FunctionDeclaration:
		return l.functionDeclaration(s)
	case *parser.ExpressionStatement:
		return l.expressionStatement(s)
	case *parser.ReturnStatement:
		return l.returnStatement(s)
	case *parser.BlockStatement:
		body, err := l.indentedBlock(s.Statements)
		if err != nil {
			return "", err
		}
		return l.line("do") + body + l.line("end;"), nil
	case *parser.IfStatement:
		return l.ifStatement(s)
	case *parser.WhileStatement:
		return l.whileStatement(s)
	case *parser.DoWhileStatement:
		return l.doWhileStatement(s)
	case *parser.ForStatement:
		return l.forStatement(s)
	case *parser.ForOfStatement:
		return l.forOfStatement(s)
	case *parser.ForInStatement:
		return "", l.errorf(s, errors.CodeNoForInStatement, "'for...in' is not supported, iterate with pairs() or for...of")
	case *parser.BreakStatement:
		return l.breakStatement(s)
	case *parser.ContinueStatement:
		return l.continueStatement(s)
	case *parser.ThrowStatement:
		v, err := l.expression(s.Value)
		if err != nil {
			return "", err
		}
		return l.line("error(" + v + ");"), nil
	case *parser.SwitchStatement:
		return l.switchStatement(s)
	case *parser.ExportDeclaration:
		return l.exportDeclaration(s)
	case *parser.NamespaceDeclaration:
		return l.namespaceDeclaration(s)
	case *parser.TypeAliasStatement:
		return "", nil
	case *parser.LabeledStatement:
		return "", l.errorf(s, errors.CodeNoLabeledStatement, "labeled statements are not supported")
	case *parser.ClassDeclaration:
		return "", l.errorf(s, errors.CodeNoClasses, "classes are not supported")
	}
	return "", l.errorf(stmt, errors.CodeUnsupportedNode, "unsupported statement %T", stmt)
}

// --- Declarations ---

func (l *Lowerer) variableStatement(s *parser.VariableStatement) (string, error) {
	if s.Kind == "var" {
		return "", l.errorf(s, errors.CodeNoVarKeyword, "'var' is not supported, use 'let' or 'const'")
	}
	var sb strings.Builder
	for _, d := range s.Declarations {
		// Each declarator's statements go right in front of it.
		text, stmts, err := l.captured(func() (string, error) { return l.declarator(d) })
		if err != nil {
			return "", err
		}
		sb.WriteString(strings.Join(stmts, ""))
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (l *Lowerer) declarator(d *parser.VariableDeclarator) (string, error) {
	switch target := d.Target.(type) {
	case *parser.Identifier:
		return l.variableDeclarator(target, d.Value)
	case *parser.ArrayPattern, *parser.ObjectPattern:
		if d.Value == nil {
			return "", l.errorf(d.Target, errors.CodeUnexpectedNode, "a destructuring declaration needs an initializer")
		}
		return l.destructuringDeclaration(target, d.Value)
	}
	return "", l.errorf(d.Target, errors.CodeUnexpectedNode, "unexpected declaration target %T", d.Target)
}

// variableDeclarator binds one name. The value may write itself to the name
// directly, in which case only the export is left to register.
func (l *Lowerer) variableDeclarator(id *parser.Identifier, value parser.Expression) (string, error) {
	if value == nil {
		return l.declareName(id, "")
	}
	target, sym, err := l.bindingName(id)
	if err != nil {
		return "", err
	}
	tableRead := readsThroughTable(sym)
	hoisted := l.info.Hoisted(sym)
	if hoisted && !tableRead {
		l.ctx.Hoist(target)
	}
	v, claimed, err := l.withIntent(value, Intent{
		IsIdentifier:    !tableRead,
		Target:          target,
		NeedsLocalizing: !tableRead && !hoisted,
	})
	if err != nil {
		return "", err
	}
	if claimed {
		l.exportBinding(id, sym)
		return "", nil
	}
	return l.declareName(id, v)
}

// exportDeclaration lowers `export <declaration>` (the checker already marked
// the names exported) and `export default <value>`.
func (l *Lowerer) exportDeclaration(s *parser.ExportDeclaration) (string, error) {
	if s.Default == nil {
		return l.lowerStatement(s.Declaration)
	}
	v, err := l.expression(s.Default)
	if err != nil {
		return "", err
	}
	l.ctx.IsModule = true
	return l.line("_exports.default = " + v + ";"), nil
}

// namespaceDeclaration lowers a namespace to a table. Merged declarations
// after the first reuse it.
func (l *Lowerer) namespaceDeclaration(s *parser.NamespaceDeclaration) (string, error) {
	if err := l.checkName(s.Name); err != nil {
		return "", err
	}
	sym := l.info.NamespaceOf(s)
	name := s.Name.Value

	var sb strings.Builder
	if l.info.NamespaceFirst(s) {
		if l.info.Hoisted(sym) {
			l.ctx.Hoist(name)
			sb.WriteString(l.line(name + " = {};"))
		} else {
			sb.WriteString(l.line("local " + name + " = {};"))
		}
		l.exportBinding(s.Name, sym)
	}
	body, err := l.indentedBlock(s.Body.Statements)
	if err != nil {
		return "", err
	}
	sb.WriteString(l.line("do"))
	sb.WriteString(body)
	sb.WriteString(l.line("end;"))
	return sb.String(), nil
}

// --- Expression statements ---

func (l *Lowerer) expressionStatement(s *parser.ExpressionStatement) (string, error) {
	switch e := skipAssertions(s.Expression).(type) {
	case *parser.CallExpression:
		res, err := l.call(e, callOptions{statement: true})
		if err != nil {
			return "", err
		}
		if res.form == formValue {
			return l.line("local _ = " + res.text + ";"), nil
		}
		return l.line(res.text + ";"), nil
	case *parser.TaggedTemplateExpression:
		text, err := l.taggedTemplate(e)
		if err != nil {
			return "", err
		}
		return l.line(text + ";"), nil
	case *parser.AssignmentExpression:
		return l.assignment(e, true)
	case *parser.UpdateExpression:
		return l.update(e, true)
	}
	v, err := l.expression(s.Expression)
	if err != nil {
		return "", err
	}
	if v == "" || isPureValue(v) {
		return "", nil
	}
	return l.line("local _ = " + v + ";"), nil
}

// --- If ---

// condition lowers a test to a Lua condition with JavaScript truthiness.
func (l *Lowerer) condition(e parser.Expression) (string, error) {
	v, err := l.expression(e)
	if err != nil {
		return "", err
	}
	return l.truthy(v, e.GetComputedType()), nil
}

func (l *Lowerer) ifStatement(s *parser.IfStatement) (string, error) {
	cond, err := l.condition(s.Condition)
	if err != nil {
		return "", err
	}
	return l.ifChain(cond, s)
}

// ifChain renders s with its condition already lowered. An else-if whose
// condition needs statements cannot be an `elseif`, so it nests in the else
// branch instead.
func (l *Lowerer) ifChain(cond string, s *parser.IfStatement) (string, error) {
	var sb strings.Builder
	sb.WriteString(l.line("if " + cond + " then"))
	for {
		then, err := l.body(s.Consequence)
		if err != nil {
			return "", err
		}
		sb.WriteString(then)

		switch alt := s.Alternative.(type) {
		case nil:
			sb.WriteString(l.line("end;"))
			return sb.String(), nil

		case *parser.IfStatement:
			var next string
			var stmts []string
			_, err := l.indented(func() (string, error) {
				var err error
				next, stmts, err = l.captured(func() (string, error) { return l.condition(alt.Condition) })
				return "", err
			})
			if err != nil {
				return "", err
			}
			if len(stmts) == 0 {
				sb.WriteString(l.line("elseif " + next + " then"))
				s = alt
				continue
			}
			nested, err := l.indented(func() (string, error) { return l.ifChain(next, alt) })
			if err != nil {
				return "", err
			}
			sb.WriteString(l.line("else"))
			sb.WriteString(strings.Join(stmts, ""))
			sb.WriteString(nested)
			sb.WriteString(l.line("end;"))
			return sb.String(), nil

		default:
			els, err := l.body(alt)
			if err != nil {
				return "", err
			}
			sb.WriteString(l.line("else"))
			sb.WriteString(els)
			sb.WriteString(l.line("end;"))
			return sb.String(), nil
		}
	}
}
