package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
)

// assignment lowers `target op= value`. In statement position the result is
// the finished statement text (possibly empty when a nested lowering wrote
// the value itself). As a value, the statements are pushed and the result is
// an expression reading the assigned value.
func (l *Lowerer) assignment(e *parser.AssignmentExpression, statement bool) (string, error) {
	left := skipAssertions(e.Left)
	switch left.(type) {
	case *parser.ArrayPattern, *parser.ObjectPattern:
		return l.destructuringAssignment(e, left, statement)
	}
	switch e.Operator {
	case "=":
		return l.plainAssignment(e, left, statement)
	case "&&=", "||=", "??=":
		return l.logicalAssignment(e, left, statement)
	}
	return l.compoundAssignment(e, left, statement)
}

// assignableIdentifier returns the text an assignment to id writes to.
func (l *Lowerer) assignableIdentifier(id *parser.Identifier) (string, error) {
	if err := l.checkName(id); err != nil {
		return "", err
	}
	if sym := l.info.SymbolOf(id); readsThroughTable(sym) {
		return l.exportTableOf(sym) + "." + id.Value, nil
	}
	return id.Value, nil
}

// assignable lowers an assignment target that is read and written. The base
// of a property target is evaluated once, into a temporary unless it is a
// plain name.
func (l *Lowerer) assignable(target parser.Expression) (string, error) {
	switch t := skipAssertions(target).(type) {
	case *parser.Identifier:
		return l.assignableIdentifier(t)

	case *parser.MemberExpression:
		if t.Property.Value == "length" && isArrayType(t.Object) {
			return "", l.errorf(t, errors.CodeBadAssignmentTarget, "cannot assign to the length of an array")
		}
		base, err := l.expression(t.Object)
		if err != nil {
			return "", err
		}
		return fieldAccess(l.stableBase(base), t.Property.Value), nil

	case *parser.IndexExpression:
		if isStringType(t.Left) {
			return "", l.errorf(t, errors.CodeBadAssignmentTarget, "cannot assign to a character of a string")
		}
		values, err := l.orderedList(exprItems(l, []parser.Expression{t.Left, t.Index}))
		if err != nil {
			return "", err
		}
		base, key := l.stableBase(values[0]), l.stable(values[1])
		return l.indexTarget(t, base, key), nil
	}
	return "", l.errorf(target, errors.CodeBadAssignmentTarget, "invalid assignment target")
}

// stableBase captures a property base unless it is a name or temporary.
func (l *Lowerer) stableBase(base string) string {
	if identPattern.MatchString(base) || isStableValue(base) {
		return base
	}
	return l.ctx.PushToNewID(base, isPureValue(base))
}

func (l *Lowerer) indexTarget(t *parser.IndexExpression, base, key string) string {
	if isArrayType(t.Left) {
		return prefix(base) + "[" + offsetIndex(key) + "]"
	}
	if lit, ok := t.Index.(*parser.StringLiteral); ok {
		return fieldAccess(base, lit.Value)
	}
	return prefix(base) + "[" + key + "]"
}

func (l *Lowerer) plainAssignment(e *parser.AssignmentExpression, left parser.Expression, statement bool) (string, error) {
	if id, ok := left.(*parser.Identifier); ok {
		target, err := l.assignableIdentifier(id)
		if err != nil {
			return "", err
		}
		if statement {
			value, claimed, err := l.withIntent(e.Value, Intent{IsIdentifier: identPattern.MatchString(target), Target: target})
			if err != nil || claimed {
				return "", err
			}
			return l.line(target + " = " + value + ";"), nil
		}
		value, err := l.expression(e.Value)
		if err != nil {
			return "", err
		}
		l.ctx.Push(l.line(target + " = " + value + ";"))
		return target, nil
	}

	// Property targets: base, then key, then value.
	var target, value string
	switch t := left.(type) {
	case *parser.MemberExpression:
		if t.Property.Value == "length" && isArrayType(t.Object) {
			return "", l.errorf(t, errors.CodeBadAssignmentTarget, "cannot assign to the length of an array")
		}
		values, err := l.orderedList(exprItems(l, []parser.Expression{t.Object, e.Value}))
		if err != nil {
			return "", err
		}
		target, value = fieldAccess(values[0], t.Property.Value), values[1]
	case *parser.IndexExpression:
		if isStringType(t.Left) {
			return "", l.errorf(t, errors.CodeBadAssignmentTarget, "cannot assign to a character of a string")
		}
		values, err := l.orderedList(exprItems(l, []parser.Expression{t.Left, t.Index, e.Value}))
		if err != nil {
			return "", err
		}
		target, value = l.indexTarget(t, values[0], values[1]), values[2]
	default:
		return "", l.errorf(left, errors.CodeBadAssignmentTarget, "invalid assignment target")
	}

	if statement {
		return l.line(target + " = " + value + ";"), nil
	}
	value = l.stable(value)
	l.ctx.Push(l.line(target + " = " + value + ";"))
	return value, nil
}

// compoundAssignment lowers `target op= value` as `target = target op value`.
// When the value needs statements, the old value is read before they run.
func (l *Lowerer) compoundAssignment(e *parser.AssignmentExpression, left parser.Expression, statement bool) (string, error) {
	op := strings.TrimSuffix(e.Operator, "=")
	target, err := l.assignable(left)
	if err != nil {
		return "", err
	}
	value, stmts, err := l.captured(func() (string, error) { return l.expression(e.Value) })
	if err != nil {
		return "", err
	}
	old := target
	if len(stmts) > 0 {
		old = l.ctx.PushToNewID(target, isPureValue(target))
		l.ctx.Push(stmts...)
	}
	updated, err := l.operator(e, op, old, value, left.GetComputedType(), e.Value.GetComputedType())
	if err != nil {
		return "", err
	}
	stmt := l.line(target + " = " + updated + ";")
	if statement {
		return stmt, nil
	}
	l.ctx.Push(stmt)
	return target, nil
}

// logicalAssignment lowers `&&=`, `||=` and `??=`; the value is only
// evaluated when the assignment happens.
func (l *Lowerer) logicalAssignment(e *parser.AssignmentExpression, left parser.Expression, statement bool) (string, error) {
	target, err := l.assignable(left)
	if err != nil {
		return "", err
	}
	value, stmts, err := l.captured(func() (string, error) { return l.expression(e.Value) })
	if err != nil {
		return "", err
	}

	t := left.GetComputedType()
	var cond string
	switch e.Operator {
	case "&&=":
		cond = l.truthy(target, t)
	case "||=":
		cond = l.falsy(target, t)
	default:
		cond = target + " == nil"
	}

	var sb strings.Builder
	sb.WriteString(l.line("if " + cond + " then"))
	sb.WriteString(indentLines(strings.Join(stmts, "")))
	sb.WriteString(l.ctx.Indent() + "\t" + target + " = " + value + ";\n")
	sb.WriteString(l.line("end;"))
	if statement {
		return sb.String(), nil
	}
	l.ctx.Push(sb.String())
	return target, nil
}
