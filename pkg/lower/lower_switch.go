package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
)

// switchStatement lowers a switch to a `repeat ... until true` block so
// `break` leaves it:
//
//	local _0 = subject;
//	repeat
//		local _1 = false;
//		if _1 or _0 == (a) then
//			...
//			_1 = true;
//		end;
//		do
//			-- default
//		end;
//	until true;
//
// _1 records that a clause fell through into the next one. It is only
// declared when some clause can fall through.
func (l *Lowerer) switchStatement(s *parser.SwitchStatement) (string, error) {
	for i, c := range s.Cases {
		if c.Condition == nil && i != len(s.Cases)-1 {
			return "", l.errorf(s, errors.CodeBadSwitchDefaultPosition, "the default clause must be the last clause of a switch")
		}
	}

	subject, err := l.expression(s.Expression)
	if err != nil {
		return "", err
	}
	if !isStableValue(subject) {
		subject = l.ctx.PushToNewID(subject, false)
	}

	l.jumps = append(l.jumps, &jumpTarget{isSwitch: true})
	defer func() { l.jumps = l.jumps[:len(l.jumps)-1] }()

	clauses := groupClauses(s.Cases)
	body, err := l.indented(func() (string, error) {
		l.ctx.PushIDScope()
		defer l.ctx.PopIDScope()

		var fallFlag string
		for i, c := range clauses {
			if i < len(clauses)-1 && fallsThrough(c.body) {
				fallFlag = l.ctx.NewID()
				break
			}
		}

		var sb strings.Builder
		if fallFlag != "" {
			sb.WriteString(l.line("local " + fallFlag + " = false;"))
		}
		for i, c := range clauses {
			text, err := l.switchClause(c, subject, fallFlag, i == len(clauses)-1)
			if err != nil {
				return "", err
			}
			sb.WriteString(text)
		}
		return sb.String(), nil
	})
	if err != nil {
		return "", err
	}

	out := l.line("repeat") + body + l.line("until true;")
	if containsContinue(s) {
		if loop := l.enclosingLoop(); loop != nil && loop.continueFlag != "" {
			out += l.line("if " + loop.continueFlag + " then break; end;")
		}
	}
	return out, nil
}

// switchClause is one or more case labels sharing a body. Empty cases that
// fall straight into the next one are merged into its test.
type switchClause struct {
	conditions []parser.Expression
	isDefault  bool
	body       []parser.Statement
}

func groupClauses(cases []*parser.SwitchCase) []*switchClause {
	var clauses []*switchClause
	var pending []parser.Expression
	for i, c := range cases {
		if c.Condition == nil {
			clauses = append(clauses, &switchClause{isDefault: true, body: c.Body})
			pending = nil
			continue
		}
		pending = append(pending, c.Condition)
		if len(c.Body) == 0 && i < len(cases)-1 && cases[i+1].Condition != nil {
			continue
		}
		clauses = append(clauses, &switchClause{conditions: pending, body: c.Body})
		pending = nil
	}
	return clauses
}

func (l *Lowerer) switchClause(c *switchClause, subject, fallFlag string, last bool) (string, error) {
	setFlag := fallFlag != "" && !last && fallsThrough(c.body)

	if c.isDefault {
		body, err := l.indentedBlock(c.body)
		if err != nil {
			return "", err
		}
		return l.line("do") + body + l.line("end;"), nil
	}

	test, pre, err := l.caseTest(c, subject, fallFlag)
	if err != nil {
		return "", err
	}

	body, err := l.indentedBlock(c.body)
	if err != nil {
		return "", err
	}
	if setFlag {
		body += l.ctx.Indent() + "\t" + fallFlag + " = true;\n"
	}
	return pre + l.line("if "+test+" then") + body + l.line("end;"), nil
}

// caseTest lowers the test of a clause. When a case value needs statements,
// the match is computed into a local and each value is only evaluated while
// nothing has matched yet, so falling into the clause runs none of them:
//
//	local _2 = _1 or n == 1;
//	if not _2 then
//		...
//		_2 = n == _3;
//	end;
func (l *Lowerer) caseTest(c *switchClause, subject, fallFlag string) (test, pre string, err error) {
	tests := make([]string, len(c.conditions))
	stmts := make([][]string, len(c.conditions))
	guarded := false
	for i, cond := range c.conditions {
		v, s, err := l.captured(func() (string, error) { return l.expression(cond) })
		if err != nil {
			return "", "", err
		}
		tests[i] = subject + " == " + paren(v)
		stmts[i] = s
		guarded = guarded || len(s) > 0
	}

	var head []string
	if fallFlag != "" {
		head = append(head, fallFlag)
	}
	if !guarded {
		return strings.Join(append(head, tests...), " or "), "", nil
	}

	var sb strings.Builder
	i := 0
	if len(head) == 0 {
		// Nothing can have matched before the first value.
		sb.WriteString(strings.Join(stmts[0], ""))
		if len(tests) == 1 {
			return tests[0], sb.String(), nil
		}
		head = append(head, tests[0])
		i = 1
	}
	for ; i < len(tests) && len(stmts[i]) == 0; i++ {
		head = append(head, tests[i])
	}
	match := l.ctx.NewID()
	sb.WriteString(l.line("local " + match + " = " + strings.Join(head, " or ") + ";"))
	for ; i < len(tests); i++ {
		sb.WriteString(l.line("if not " + match + " then"))
		sb.WriteString(indentLines(strings.Join(stmts[i], "")))
		sb.WriteString(l.ctx.Indent() + "\t" + match + " = " + tests[i] + ";\n")
		sb.WriteString(l.line("end;"))
	}
	return match, sb.String(), nil
}

// fallsThrough reports whether control can reach the end of a clause body.
func fallsThrough(body []parser.Statement) bool {
	return !isTerminated(body)
}

func isTerminated(body []parser.Statement) bool {
	for _, s := range body {
		switch st := s.(type) {
		case *parser.ReturnStatement, *parser.BreakStatement, *parser.ContinueStatement, *parser.ThrowStatement:
			return true
		case *parser.BlockStatement:
			if isTerminated(st.Statements) {
				return true
			}
		}
	}
	return false
}
