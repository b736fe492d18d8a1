package lower

import (
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
)

// unary lowers a prefix operator other than `++` and `--`.
func (l *Lowerer) unary(e *parser.PrefixExpression) (string, error) {
	if e.Operator == "typeof" {
		return "", l.errorf(e, errors.CodeNoTypeOf, "'typeof' is not supported, use typeOf() or typeIs() instead")
	}
	v, err := l.expression(e.Right)
	if err != nil {
		return "", err
	}
	switch e.Operator {
	case "!":
		return "not " + paren(l.truthy(v, e.Right.GetComputedType())), nil
	case "-":
		return "-" + paren(v), nil
	case "+":
		return "tonumber(" + v + ")", nil
	case "~":
		l.ctx.UsesRuntime = true
		return "TS.bnot(" + v + ")", nil
	}
	return "", l.errorf(e, errors.CodeUnsupportedNode, "operator '%s' is not supported", e.Operator)
}

// update lowers `++` and `--`. In statement position only the increment is
// emitted. As a value, prefix forms yield the updated target and postfix
// forms a snapshot taken before the increment.
func (l *Lowerer) update(e *parser.UpdateExpression, statement bool) (string, error) {
	op := "+"
	if e.Operator == "--" {
		op = "-"
	}
	target, err := l.assignable(e.Argument)
	if err != nil {
		return "", err
	}
	if statement {
		return l.line(target + " = " + paren(target) + " " + op + " 1;"), nil
	}
	if e.Prefix {
		l.ctx.Push(l.line(target + " = " + paren(target) + " " + op + " 1;"))
		return target, nil
	}
	old := l.ctx.PushToNewID(target, isPureValue(target))
	l.ctx.Push(l.line(target + " = " + old + " " + op + " 1;"))
	return old, nil
}
