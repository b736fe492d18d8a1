package lower

import (
	"strconv"
	"strings"

	"github.com/nooga/tslua/pkg/checker"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// destructuringDeclaration lowers `let [a, b] = v` and `let { a, b: c } = v`.
// Every statement is pushed; the declaration itself has no text of its own.
func (l *Lowerer) destructuringDeclaration(pattern, value parser.Expression) (string, error) {
	if err := l.checkPattern(pattern); err != nil {
		return "", err
	}
	if p, ok := pattern.(*parser.ArrayPattern); ok {
		if done, err := l.multipleDeclaration(p, value); done || err != nil {
			return "", err
		}
	}

	v, err := l.expression(value)
	if err != nil {
		return "", err
	}
	root := v
	if !tempPattern.MatchString(v) && !(identPattern.MatchString(v) && !bindsName(pattern, v)) {
		root = l.ctx.PushToNewID(v, false)
	}
	return "", l.destructure(pattern, root, true)
}

// destructuringAssignment lowers `[a, b] = v` and `({ a, b } = v)`. As a
// value it yields the right-hand side.
func (l *Lowerer) destructuringAssignment(e *parser.AssignmentExpression, pattern parser.Expression, statement bool) (string, error) {
	if e.Operator != "=" {
		return "", l.errorf(e, errors.CodeBadAssignmentTarget, "'%s' cannot assign to a pattern", e.Operator)
	}
	if err := l.checkPattern(pattern); err != nil {
		return "", err
	}
	if p, ok := pattern.(*parser.ArrayPattern); ok && statement {
		if done, err := l.multipleAssignment(p, e.Value); done || err != nil {
			return "", err
		}
	}

	v, err := l.expression(e.Value)
	if err != nil {
		return "", err
	}
	root := v
	if !tempPattern.MatchString(v) {
		root = l.ctx.PushToNewID(v, false)
	}
	if err := l.destructure(pattern, root, false); err != nil {
		return "", err
	}
	if statement {
		return "", nil
	}
	return root, nil
}

// checkPattern rejects empty patterns anywhere in a target.
func (l *Lowerer) checkPattern(pattern parser.Expression) error {
	switch p := pattern.(type) {
	case *parser.ArrayPattern:
		if len(p.Elements) == 0 {
			return l.errorf(p, errors.CodeEmptyDestructuringPattern, "empty destructuring pattern")
		}
		for _, el := range p.Elements {
			if el == nil {
				continue
			}
			if err := l.checkPattern(el.Target); err != nil {
				return err
			}
		}
	case *parser.ObjectPattern:
		if len(p.Properties) == 0 {
			return l.errorf(p, errors.CodeEmptyDestructuringPattern, "empty destructuring pattern")
		}
		for _, prop := range p.Properties {
			if err := l.checkPattern(prop.Target); err != nil {
				return err
			}
		}
	}
	return nil
}

func bindsName(pattern parser.Expression, name string) bool {
	for _, id := range checker.BoundNames(pattern) {
		if id.Value == name {
			return true
		}
	}
	return false
}

// flatNames returns the names of a pattern of plain identifiers and holes,
// with trailing holes removed. Holes are nil.
func flatNames(p *parser.ArrayPattern) ([]*parser.Identifier, bool) {
	ids := make([]*parser.Identifier, len(p.Elements))
	for i, el := range p.Elements {
		if el == nil {
			continue
		}
		id, ok := el.Target.(*parser.Identifier)
		if !ok || el.Default != nil || el.Rest {
			return nil, false
		}
		ids[i] = id
	}
	for len(ids) > 0 && ids[len(ids)-1] == nil {
		ids = ids[:len(ids)-1]
	}
	return ids, len(ids) > 0
}

// multipleValues lowers a right-hand side that can feed a Lua multiple
// assignment directly: a LuaTuple call, or an array literal without spreads.
func (l *Lowerer) multipleValues(value parser.Expression) (string, bool, error) {
	switch v := skipAssertions(value).(type) {
	case *parser.CallExpression:
		if !types.IsLuaTuple(v.GetComputedType()) {
			return "", false, nil
		}
		res, err := l.call(v, callOptions{doNotWrap: true})
		return res.text, true, err
	case *parser.ArrayLiteral:
		if hasSpread(v.Elements) || len(v.Elements) == 0 {
			return "", false, nil
		}
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
		return strings.Join(values, ", "), true, err
	}
	return "", false, nil
}

// multipleDeclaration emits `local a, _, b = f();` when every name is a
// plain local.
func (l *Lowerer) multipleDeclaration(p *parser.ArrayPattern, value parser.Expression) (bool, error) {
	ids, ok := flatNames(p)
	if !ok {
		return false, nil
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		if id == nil {
			names[i] = "_"
			continue
		}
		sym := l.info.SymbolOf(id)
		if sym != nil && (sym.Exported || sym.Hoisted) {
			return false, nil
		}
		if err := l.checkName(id); err != nil {
			return false, err
		}
		names[i] = id.Value
	}
	values, ok, err := l.multipleValues(value)
	if !ok || err != nil {
		return false, err
	}
	l.ctx.Push(l.line("local " + strings.Join(names, ", ") + " = " + values + ";"))
	return true, nil
}

// multipleAssignment emits `a, b = f();`. Lua evaluates every value before
// assigning, which makes `[a, b] = [b, a]` a swap.
func (l *Lowerer) multipleAssignment(p *parser.ArrayPattern, value parser.Expression) (bool, error) {
	ids, ok := flatNames(p)
	if !ok {
		return false, nil
	}
	targets := make([]string, len(ids))
	for i, id := range ids {
		if id == nil {
			return false, nil
		}
		t, err := l.assignableIdentifier(id)
		if err != nil {
			return false, err
		}
		targets[i] = t
	}
	values, ok, err := l.multipleValues(value)
	if !ok || err != nil {
		return false, err
	}
	l.ctx.Push(l.line(strings.Join(targets, ", ") + " = " + values + ";"))
	return true, nil
}

// destructure binds every target of pattern from root, left to right.
func (l *Lowerer) destructure(pattern parser.Expression, root string, declare bool) error {
	switch p := pattern.(type) {
	case *parser.ArrayPattern:
		for i, el := range p.Elements {
			if el == nil {
				continue
			}
			var value string
			if el.Rest {
				l.ctx.UsesRuntime = true
				value = "TS.array_slice(" + root + ", " + strconv.Itoa(i) + ")"
			} else {
				value = prefix(root) + "[" + strconv.Itoa(i+1) + "]"
			}
			if err := l.bindElement(el.Target, value, el.Default, declare); err != nil {
				return err
			}
		}
		return nil
	case *parser.ObjectPattern:
		for _, prop := range p.Properties {
			if err := l.bindElement(prop.Target, fieldAccess(root, prop.Key), prop.Default, declare); err != nil {
				return err
			}
		}
		return nil
	}
	return l.errorf(pattern, errors.CodeUnexpectedNode, "unexpected pattern %T", pattern)
}

func (l *Lowerer) bindElement(target parser.Expression, value string, def parser.Expression, declare bool) error {
	switch t := skipAssertions(target).(type) {
	case *parser.ArrayPattern, *parser.ObjectPattern:
		tmp := l.ctx.PushToNewID(value, false)
		if err := l.pushDefault(tmp, def); err != nil {
			return err
		}
		return l.destructure(t, tmp, declare)

	case *parser.Identifier:
		if declare {
			name, _, err := l.bindingName(t)
			if err != nil {
				return err
			}
			stmt, err := l.declareName(t, value)
			if err != nil {
				return err
			}
			l.ctx.Push(stmt)
			return l.pushDefault(name, def)
		}
	}
	if declare {
		return l.errorf(target, errors.CodeBadAssignmentTarget, "invalid declaration target")
	}
	dest, err := l.assignable(target)
	if err != nil {
		return err
	}
	l.ctx.Push(l.line(dest + " = " + value + ";"))
	return l.pushDefault(dest, def)
}

func (l *Lowerer) pushDefault(target string, def parser.Expression) error {
	if def == nil {
		return nil
	}
	d, err := l.defaultValue(target, def)
	if err != nil {
		return err
	}
	l.ctx.Push(d)
	return nil
}
