package lower

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/types"
)

// formatNumber renders a number literal. Integral values print without an
// exponent or fraction.
func formatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "math.huge"
	case math.IsInf(f, -1):
		return "-math.huge"
	case math.IsNaN(f):
		return "(0 / 0)"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// quoteString renders s as a double-quoted Lua string literal. Control
// characters use decimal escapes; other bytes are written as is.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			// Three digits keep a following digit from joining the escape.
			sb.WriteString(`\` + leftPad(strconv.Itoa(int(r)), 3))
		default:
			sb.WriteString(s[i : i+size])
		}
		i += size
	}
	sb.WriteByte('"')
	return sb.String()
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}

// arrayLiteral lowers `[a, b, ...c]` to a table constructor, or to a runtime
// concatenation when spreads are present.
func (l *Lowerer) arrayLiteral(e *parser.ArrayLiteral) (string, error) {
	if len(e.Elements) == 0 {
		return "{}", nil
	}
	items := make([]listItem, len(e.Elements))
	hasSpread := false
	for i, el := range e.Elements {
		el := el
		if el == nil {
			items[i] = listItem{lower: func() (string, error) { return "nil", nil }}
			continue
		}
		if spread, ok := el.(*parser.SpreadElement); ok {
			hasSpread = true
			items[i] = listItem{expr: spread, lower: func() (string, error) { return l.spreadSource(spread) }}
			continue
		}
		items[i] = listItem{expr: el, lower: func() (string, error) { return l.expression(el) }}
	}
	values, err := l.orderedList(items)
	if err != nil {
		return "", err
	}
	if !hasSpread {
		return "{ " + strings.Join(values, ", ") + " }", nil
	}

	// Runs of plain elements become table constructors between the spreads.
	var parts, run []string
	for i, el := range e.Elements {
		if _, ok := el.(*parser.SpreadElement); ok {
			if len(run) > 0 {
				parts = append(parts, "{ "+strings.Join(run, ", ")+" }")
				run = nil
			}
			parts = append(parts, values[i])
			continue
		}
		run = append(run, values[i])
	}
	if len(run) > 0 {
		parts = append(parts, "{ "+strings.Join(run, ", ")+" }")
	}
	l.ctx.UsesRuntime = true
	return "TS.array_concat(" + strings.Join(parts, ", ") + ")", nil
}

// spreadSource lowers the argument of a spread element to an array value.
// Strings spread into their characters.
func (l *Lowerer) spreadSource(spread *parser.SpreadElement) (string, error) {
	v, err := l.expression(spread.Argument)
	if err != nil {
		return "", err
	}
	if types.IsString(spread.Argument.GetComputedType()) {
		l.ctx.UsesRuntime = true
		return "TS.string_split(" + v + `, "")`, nil
	}
	return v, nil
}

// objectLiteral lowers `{ a: 1, m() {} }`. Functions stored in the object
// are methods and take `self`.
func (l *Lowerer) objectLiteral(e *parser.ObjectLiteral) (string, error) {
	if len(e.Properties) == 0 {
		return "{}", nil
	}
	items := make([]listItem, len(e.Properties))
	for i, prop := range e.Properties {
		prop := prop
		if fn, ok := prop.Value.(*parser.FunctionLiteral); ok {
			items[i] = listItem{expr: fn, lower: func() (string, error) { return l.functionExpression(fn, true) }}
			continue
		}
		items[i] = listItem{expr: prop.Value, lower: func() (string, error) { return l.expression(prop.Value) }}
	}
	values, err := l.orderedList(items)
	if err != nil {
		return "", err
	}
	fields := make([]string, len(e.Properties))
	for i, prop := range e.Properties {
		fields[i] = tableKey(prop.Key) + " = " + values[i]
	}
	return "{ " + strings.Join(fields, ", ") + " }", nil
}

// tableKey renders a field name for a table constructor.
func tableKey(key string) string {
	if isLuaName(key) {
		return key
	}
	return "[" + quoteString(key) + "]"
}

// fieldAccess renders reading field name of receiver.
func fieldAccess(receiver, name string) string {
	if isLuaName(name) {
		return prefix(receiver) + "." + name
	}
	return prefix(receiver) + "[" + quoteString(name) + "]"
}

func (l *Lowerer) literal(expr parser.Expression) (string, error) {
	switch e := expr.(type) {
	case *parser.NumberLiteral:
		return formatNumber(e.Value), nil
	case *parser.StringLiteral:
		return quoteString(e.Value), nil
	case *parser.BooleanLiteral:
		if e.Value {
			return "true", nil
		}
		return "false", nil
	case *parser.UndefinedLiteral:
		return "nil", nil
	case *parser.NullLiteral:
		return "", l.errorf(e, errors.CodeNoNull, "'null' is not supported, use 'undefined' instead")
	}
	return "", l.errorf(expr, errors.CodeUnexpectedNode, "unexpected literal %T", expr)
}
