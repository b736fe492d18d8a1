package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/parser"
)

// returnTarget is the intent target of a value that must be returned.
const returnTarget = "return"

// conditional lowers `c ? a : b`:
//
//	local R;
//	if c then
//		R = a;
//	else
//		R = b;
//	end;
//
// R comes from the caller's intent when there is one. Otherwise a conditional
// nested directly in a branch of another one reuses the outer R, so an
// unbroken chain declares a single result variable.
func (l *Lowerer) conditional(e *parser.TernaryExpression) (string, error) {
	prevContext := l.ctx.ConditionalContext()
	defer l.ctx.setConditionalContext(prevContext)

	var result string
	if intent, ok := l.ctx.ClaimIntent(e); ok {
		result = intent.Target
		if intent.NeedsLocalizing {
			l.ctx.Push(l.line("local " + result + ";"))
		}
	} else if prevContext == "" {
		result = l.ctx.NewID()
		l.ctx.Push(l.line("local " + result + ";"))
	} else {
		result = prevContext
	}

	// The condition is not part of the chain.
	l.ctx.setConditionalContext("")
	cond, err := l.expression(e.Condition)
	if err != nil {
		return "", err
	}
	cond = l.truthy(cond, e.Condition.GetComputedType())

	whenTrue, err := l.conditionalBranch(e.Consequence, result)
	if err != nil {
		return "", err
	}
	whenFalse, err := l.conditionalBranch(e.Alternative, result)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(l.line("if " + cond + " then"))
	sb.WriteString(whenTrue)
	sb.WriteString(l.line("else"))
	sb.WriteString(whenFalse)
	sb.WriteString(l.line("end;"))
	l.ctx.Push(sb.String())
	return result, nil
}

// conditionalBranch lowers one branch one level deeper and writes its value
// to result. A conditional branch continues the chain; anything else starts
// a fresh one.
func (l *Lowerer) conditionalBranch(branch parser.Expression, result string) (string, error) {
	l.ctx.PushIndent()
	defer l.ctx.PopIndent()

	branch = skipAssertions(branch)
	if _, chained := branch.(*parser.TernaryExpression); chained && result != returnTarget {
		l.ctx.setConditionalContext(result)
	} else {
		l.ctx.setConditionalContext("")
	}

	var claimed bool
	value, stmts, err := l.captured(func() (string, error) {
		intent := Intent{IsIdentifier: identPattern.MatchString(result) && result != returnTarget, Target: result}
		v, c, err := l.withIntent(branch, intent)
		claimed = c
		return v, err
	})
	if err != nil {
		return "", err
	}

	out := strings.Join(stmts, "")
	switch {
	case claimed:
	case result == returnTarget:
		out += l.line("return " + value + ";")
	case value != result:
		out += l.line(result + " = " + value + ";")
	}
	return out, nil
}
