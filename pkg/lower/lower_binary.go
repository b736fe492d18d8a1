package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

var comparisonOperators = map[string]string{
	"===": "==",
	"!==": "~=",
	"<":   "<",
	">":   ">",
	"<=":  "<=",
	">=":  ">=",
}

var arithmeticOperators = map[string]string{
	"-":  "-",
	"*":  "*",
	"/":  "/",
	"**": "^",
}

var bitwiseHelpers = map[string]string{
	"&":   "TS.band",
	"|":   "TS.bor",
	"^":   "TS.bxor",
	"<<":  "TS.blsh",
	">>":  "TS.brsh",
	">>>": "TS.bursh",
}

// binary lowers a non-assignment infix expression. Both operands are
// evaluated left to right even when the right one needs statements.
func (l *Lowerer) binary(e *parser.InfixExpression) (string, error) {
	switch e.Operator {
	case "==":
		return "", l.errorf(e, errors.CodeNoEqualsEquals, "operator '==' is not supported, use '===' instead")
	case "!=":
		return "", l.errorf(e, errors.CodeNoExclamationEquals, "operator '!=' is not supported, use '!==' instead")
	case "&&", "||", "??":
		return l.logical(e)
	}

	values, err := l.orderedList(exprItems(l, []parser.Expression{e.Left, e.Right}))
	if err != nil {
		return "", err
	}
	if e.Operator == "|" {
		if lit, ok := e.Right.(*parser.NumberLiteral); ok && lit.Value == 0 {
			l.ctx.UsesRuntime = true
			return "TS.round(" + values[0] + ")", nil
		}
	}
	return l.operator(e, e.Operator, values[0], values[1], e.Left.GetComputedType(), e.Right.GetComputedType())
}

// operator renders `left op right` for an arithmetic, comparison, bitwise or
// relational operator. Compound assignment shares it.
func (l *Lowerer) operator(node parser.Node, op, left, right string, lt, rt types.Type) (string, error) {
	if op == "+" {
		switch {
		case types.IsString(lt) || types.IsString(rt):
			return concatOperand(left, lt) + " .. " + concatOperand(right, rt), nil
		case types.IsNumber(lt) && types.IsNumber(rt):
			return paren(left) + " + " + paren(right), nil
		}
		return "", l.errorf(node, errors.CodeBadAddition, "cannot add values of type '%s' and '%s'", typeName(lt), typeName(rt))
	}
	if lua, ok := comparisonOperators[op]; ok {
		return paren(left) + " " + lua + " " + paren(right), nil
	}
	switch op {
	case "in":
		return prefix(right) + "[" + left + "] ~= nil", nil
	case "instanceof":
		l.ctx.UsesRuntime = true
		return "TS.instanceof(" + left + ", " + right + ")", nil
	}

	if err := l.checkArithmeticOperand(node, op, lt); err != nil {
		return "", err
	}
	if err := l.checkArithmeticOperand(node, op, rt); err != nil {
		return "", err
	}
	if lua, ok := arithmeticOperators[op]; ok {
		return paren(left) + " " + lua + " " + paren(right), nil
	}
	if op == "%" {
		return "math.fmod(" + left + ", " + right + ")", nil
	}
	if helper, ok := bitwiseHelpers[op]; ok {
		l.ctx.UsesRuntime = true
		return helper + "(" + left + ", " + right + ")", nil
	}
	return "", l.errorf(node, errors.CodeUnsupportedNode, "operator '%s' is not supported", op)
}

func (l *Lowerer) checkArithmeticOperand(node parser.Node, op string, t types.Type) error {
	if types.IsDynamic(t) {
		return nil
	}
	if types.IsString(t) || types.IsBoolean(t) || types.IsArray(t) || types.IsLuaTuple(t) {
		return l.errorf(node, errors.CodeBadBinaryOperand, "operator '%s' cannot be applied to type '%s'", op, typeName(t))
	}
	return nil
}

// concatOperand converts an operand of `..` to a string when Lua would not.
func concatOperand(v string, t types.Type) string {
	if types.IsString(t) || types.IsNumber(t) {
		return paren(v)
	}
	return "tostring(" + v + ")"
}

func typeName(t types.Type) string {
	if t == nil {
		return "any"
	}
	return t.String()
}

// logical lowers `&&`, `||` and `??`. Lua's `and`/`or` are used when they
// agree with the source semantics and the right side needs no statements;
// otherwise the right side runs inside an `if` on a result variable.
func (l *Lowerer) logical(e *parser.InfixExpression) (string, error) {
	lt := e.Left.GetComputedType()
	left, err := l.expression(e.Left)
	if err != nil {
		return "", err
	}
	right, stmts, err := l.captured(func() (string, error) { return l.expression(e.Right) })
	if err != nil {
		return "", err
	}

	if len(stmts) == 0 && directLogical(e.Operator, lt) {
		if e.Operator == "&&" {
			return paren(left) + " and " + paren(right), nil
		}
		return paren(left) + " or " + paren(right), nil
	}

	var result string
	if intent, ok := l.ctx.ClaimIntent(e); ok && intent.IsIdentifier {
		result = intent.Target
		if intent.NeedsLocalizing {
			l.ctx.Push(l.line("local " + result + " = " + left + ";"))
		} else {
			l.ctx.Push(l.line(result + " = " + left + ";"))
		}
	} else {
		if ok {
			// Only bare names are claimed; put the intent back for the caller.
			l.ctx.SetIntent(e, intent)
		}
		result = l.ctx.PushToNewID(left, false)
	}

	var cond string
	switch e.Operator {
	case "&&":
		cond = l.truthy(result, lt)
	case "||":
		cond = l.falsy(result, lt)
	default:
		cond = result + " == nil"
	}

	var sb strings.Builder
	sb.WriteString(l.line("if " + cond + " then"))
	sb.WriteString(indentLines(strings.Join(stmts, "")))
	sb.WriteString(l.ctx.Indent() + "\t" + result + " = " + right + ";\n")
	sb.WriteString(l.line("end;"))
	l.ctx.Push(sb.String())
	return result, nil
}

// directLogical reports whether Lua's `and`/`or` give the source result for
// a left operand of type t.
func directLogical(op string, t types.Type) bool {
	if op == "??" {
		return !types.IsDynamic(t) && !mayBeBoolean(t)
	}
	return types.HasLuaTruthiness(t)
}

func mayBeBoolean(t types.Type) bool {
	if u, ok := t.(*types.UnionType); ok {
		for _, m := range u.Types {
			if mayBeBoolean(m) {
				return true
			}
		}
		return false
	}
	return t == types.Boolean
}
