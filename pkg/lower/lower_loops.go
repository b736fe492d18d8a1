package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// Lua 5.1 has no continue. A loop body containing one runs inside
// `repeat ... until true`, so `break` leaves the current iteration:
//
//	while c do
//		local _1 = false;
//		repeat
//			local _2 = false;
//			...
//		until true;
//		if _1 then break; end;
//	end;
//
// _1 turns a break of the loop into a break of the wrapper followed by a
// break of the loop. _2 carries a continue out of an enclosing switch, which
// is itself a `repeat` block.

// jumpScan summarizes the break and continue statements that target one loop.
type jumpScan struct {
	continues         bool // any continue, including inside switches
	continuesInSwitch bool
	breaks            bool // breaks of the loop itself, not of a switch
}

func scanJumps(stmts []parser.Statement) jumpScan {
	var scan jumpScan
	for _, s := range stmts {
		scan.visit(s, false)
	}
	return scan
}

func (js *jumpScan) visit(stmt parser.Statement, inSwitch bool) {
	switch s := stmt.(type) {
	case *parser.ContinueStatement:
		js.continues = true
		if inSwitch {
			js.continuesInSwitch = true
		}
	case *parser.BreakStatement:
		if !inSwitch {
			js.breaks = true
		}
	case *parser.BlockStatement:
		for _, b := range s.Statements {
			js.visit(b, inSwitch)
		}
	case *parser.IfStatement:
		js.visit(s.Consequence, inSwitch)
		if s.Alternative != nil {
			js.visit(s.Alternative, inSwitch)
		}
	case *parser.SwitchStatement:
		for _, c := range s.Cases {
			for _, b := range c.Body {
				js.visit(b, true)
			}
		}
	case *parser.LabeledStatement:
		js.visit(s.Body, inSwitch)
	}
}

// containsContinue reports whether a switch holds a continue of the loop
// around it.
func containsContinue(s *parser.SwitchStatement) bool {
	var scan jumpScan
	scan.visit(s, false)
	return scan.continues
}

func statementsOf(body parser.Statement) []parser.Statement {
	if b, ok := body.(*parser.BlockStatement); ok {
		return b.Statements
	}
	return []parser.Statement{body}
}

// loopBody lowers a loop body one level deeper than the loop header.
// prologue, when set, binds the loop variables at the start of the body.
func (l *Lowerer) loopBody(body parser.Statement, prologue func() (string, error)) (string, error) {
	stmts := statementsOf(body)
	scan := scanJumps(stmts)

	target := &jumpTarget{}
	l.jumps = append(l.jumps, target)
	l.ctx.PushIndent()
	l.ctx.PushIDScope()
	defer func() {
		l.ctx.PopIDScope()
		l.ctx.PopIndent()
		l.jumps = l.jumps[:len(l.jumps)-1]
	}()

	var out string
	if prologue != nil {
		p, err := prologue()
		if err != nil {
			return "", err
		}
		out = p
	}
	if !scan.continues {
		text, err := l.block(stmts)
		if err != nil {
			return "", err
		}
		return out + text, nil
	}

	target.wrapped = true
	if scan.breaks {
		target.breakFlag = l.ctx.NewID()
		out += l.line("local " + target.breakFlag + " = false;")
	}
	if scan.continuesInSwitch {
		target.continueFlag = l.ctx.NewID()
	}
	inner, err := l.indented(func() (string, error) {
		var flag string
		if target.continueFlag != "" {
			flag = l.line("local " + target.continueFlag + " = false;")
		}
		text, err := l.block(stmts)
		return flag + text, err
	})
	if err != nil {
		return "", err
	}
	out += l.line("repeat") + inner + l.line("until true;")
	if target.breakFlag != "" {
		out += l.line("if " + target.breakFlag + " then break; end;")
	}
	return out, nil
}

func (l *Lowerer) breakStatement(s *parser.BreakStatement) (string, error) {
	if len(l.jumps) == 0 {
		return "", l.errorf(s, errors.CodeUnexpectedNode, "'break' outside of a loop or switch")
	}
	target := l.jumps[len(l.jumps)-1]
	if !target.isSwitch && target.breakFlag != "" {
		return l.line(target.breakFlag+" = true;") + l.line("break;"), nil
	}
	return l.line("break;"), nil
}

func (l *Lowerer) continueStatement(s *parser.ContinueStatement) (string, error) {
	for i := len(l.jumps) - 1; i >= 0; i-- {
		target := l.jumps[i]
		if target.isSwitch {
			continue
		}
		if i == len(l.jumps)-1 {
			return l.line("break;"), nil
		}
		return l.line(target.continueFlag+" = true;") + l.line("break;"), nil
	}
	return "", l.errorf(s, errors.CodeUnexpectedNode, "'continue' outside of a loop")
}

// enclosingLoop returns the innermost loop, skipping switches.
func (l *Lowerer) enclosingLoop() *jumpTarget {
	for i := len(l.jumps) - 1; i >= 0; i-- {
		if !l.jumps[i].isSwitch {
			return l.jumps[i]
		}
	}
	return nil
}

// loopCondition lowers a loop test. When the test needs statements they
// must run on every iteration, so the loop becomes `while true do` with an
// explicit exit at the top of the body.
func (l *Lowerer) loopCondition(test parser.Expression) (header string, exit string, err error) {
	if test == nil {
		return "true", "", nil
	}
	var cond string
	var stmts []string
	_, err = l.indented(func() (string, error) {
		var err error
		cond, stmts, err = l.loopTest(test)
		return "", err
	})
	if err != nil {
		return "", "", err
	}
	if stmts == nil {
		return cond, "", nil
	}
	exit = joinStrings(stmts) + l.ctx.Indent() + "\tif not " + paren(cond) + " then break; end;\n"
	return "true", exit, nil
}

// loopTest lowers a loop condition in its own buffer. stmts is nil when the
// condition needs none and can simply be evaluated again on each iteration.
func (l *Lowerer) loopTest(test parser.Expression) (cond string, stmts []string, err error) {
	l.ctx.EnterPreceding()
	defer func() {
		pending := l.ctx.HasPending()
		s := l.ctx.ExitPreceding()
		if err == nil && pending {
			stmts = s
		}
	}()
	cond, err = l.condition(test)
	return cond, nil, err
}

func (l *Lowerer) whileStatement(s *parser.WhileStatement) (string, error) {
	cond, exit, err := l.loopCondition(s.Condition)
	if err != nil {
		return "", err
	}
	body, err := l.loopBody(s.Body, nil)
	if err != nil {
		return "", err
	}
	return l.line("while "+cond+" do") + exit + body + l.line("end;"), nil
}

// doWhileStatement lowers to `repeat ... until not c`. The body is closed in
// its own block first, since Lua lets `until` see the body's locals.
func (l *Lowerer) doWhileStatement(s *parser.DoWhileStatement) (string, error) {
	body, err := l.indented(func() (string, error) {
		return l.loopBody(s.Body, nil)
	})
	if err != nil {
		return "", err
	}
	var cond string
	var stmts []string
	_, err = l.indented(func() (string, error) {
		var err error
		cond, stmts, err = l.loopTest(s.Condition)
		return "", err
	})
	if err != nil {
		return "", err
	}
	inner := l.ctx.Indent() + "\tdo\n" + body + l.ctx.Indent() + "\tend;\n" + joinStrings(stmts)
	return l.line("repeat") + inner + l.line("until not "+paren(cond)+";"), nil
}

// forStatement lowers `for (init; test; update)` to a while loop inside a
// `do` block that scopes the initializer.
func (l *Lowerer) forStatement(s *parser.ForStatement) (string, error) {
	out, err := l.indented(func() (result string, err error) {
		l.ctx.PushIDScope()
		l.ctx.PushHoistScope()
		l.ctx.PushExportScope()
		defer func() {
			l.ctx.PopExportScope()
			hoists := l.ctx.PopHoistScope()
			l.ctx.PopIDScope()
			if err == nil {
				result = hoists + result
			}
		}()

		var init string
		if s.Initializer != nil {
			var err error
			if init, err = l.statement(s.Initializer); err != nil {
				return "", err
			}
		}
		cond, exit, err := l.loopCondition(s.Condition)
		if err != nil {
			return "", err
		}
		body, err := l.loopBody(s.Body, nil)
		if err != nil {
			return "", err
		}
		var update string
		if s.Update != nil {
			update, err = l.indented(func() (string, error) {
				return l.statement(&parser.ExpressionStatement{Token: s.Update.GetToken(), Expression: s.Update})
			})
			if err != nil {
				return "", err
			}
		}
		return init + l.line("while "+cond+" do") + exit + body + update + l.line("end;"), nil
	})
	if err != nil {
		return "", err
	}
	return l.line("do") + out + l.line("end;"), nil
}

// forOfStatement iterates arrays with ipairs and strings by character.
func (l *Lowerer) forOfStatement(s *parser.ForOfStatement) (string, error) {
	iterable, err := l.expression(s.Iterable)
	if err != nil {
		return "", err
	}
	t := s.Iterable.GetComputedType()

	var loopVar string
	var prologue func() (string, error)
	target := skipAssertions(s.Target)
	switch tgt := target.(type) {
	case *parser.Identifier:
		if s.Kind != "" {
			name, _, err := l.bindingName(tgt)
			if err != nil {
				return "", err
			}
			loopVar = name
			break
		}
		loopVar = l.ctx.NewID()
		prologue = func() (string, error) {
			dest, err := l.assignableIdentifier(tgt)
			if err != nil {
				return "", err
			}
			return l.line(dest + " = " + loopVar + ";"), nil
		}
	case *parser.ArrayPattern, *parser.ObjectPattern:
		loopVar = l.ctx.NewID()
		prologue = func() (string, error) {
			return l.statementBuffer(func() error { return l.destructure(tgt, loopVar, s.Kind != "") })
		}
	case *parser.MemberExpression, *parser.IndexExpression:
		if s.Kind != "" {
			return "", l.errorf(target, errors.CodeBadForOfTarget, "invalid for...of binding")
		}
		loopVar = l.ctx.NewID()
		prologue = func() (string, error) {
			return l.statementBuffer(func() error {
				dest, err := l.assignable(tgt)
				if err != nil {
					return err
				}
				l.ctx.Push(l.line(dest + " = " + loopVar + ";"))
				return nil
			})
		}
	default:
		return "", l.errorf(target, errors.CodeBadForOfTarget, "invalid for...of target")
	}

	var header string
	if types.IsString(t) {
		header = "for " + loopVar + " in string.gmatch(" + iterable + ", \".\") do"
	} else {
		header = "for _, " + loopVar + " in ipairs(" + iterable + ") do"
	}
	body, err := l.loopBody(s.Body, prologue)
	if err != nil {
		return "", err
	}
	return l.line(header) + body + l.line("end;"), nil
}

// statementBuffer runs fn in a fresh preceding buffer and returns what it
// pushed as statement text.
func (l *Lowerer) statementBuffer(fn func() error) (string, error) {
	_, stmts, err := l.captured(func() (string, error) { return "", fn() })
	if err != nil {
		return "", err
	}
	return joinStrings(stmts), nil
}

func joinStrings(stmts []string) string {
	return strings.Join(stmts, "")
}
