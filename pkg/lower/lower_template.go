package lower

import (
	"strings"

	"github.com/nooga/tslua/pkg/parser"
)

// template lowers an untagged template to a `..` chain. Interpolated values
// that are not strings go through tostring, and empty text is dropped:
//
//	`a${n}b` -> "a" .. tostring(n) .. "b"
func (l *Lowerer) template(e *parser.TemplateLiteral) (string, error) {
	values, err := l.orderedList(exprItems(l, e.Expressions))
	if err != nil {
		return "", err
	}
	var parts []string
	for i, str := range e.Strings {
		if str != "" {
			parts = append(parts, quoteString(str))
		}
		if i >= len(values) {
			continue
		}
		if isStringType(e.Expressions[i]) {
			parts = append(parts, paren(values[i]))
		} else {
			parts = append(parts, "tostring("+values[i]+")")
		}
	}
	if len(parts) == 0 {
		return `""`, nil
	}
	return strings.Join(parts, " .. "), nil
}

// taggedTemplate lowers tag`...` to a call passing the text parts as an
// array followed by the interpolated values: tag({ "a", "b" }, x).
func (l *Lowerer) taggedTemplate(e *parser.TaggedTemplateExpression) (string, error) {
	tag := skipAssertions(e.Tag)
	items := append([]listItem{{expr: tag, lower: func() (string, error) { return l.expression(tag) }}},
		exprItems(l, e.Template.Expressions)...)
	values, err := l.orderedList(items)
	if err != nil {
		return "", err
	}
	quoted := make([]string, len(e.Template.Strings))
	for i, str := range e.Template.Strings {
		quoted[i] = quoteString(str)
	}
	args := append([]string{"{ " + strings.Join(quoted, ", ") + " }"}, values[1:]...)
	return prefix(values[0]) + "(" + strings.Join(args, ", ") + ")", nil
}
