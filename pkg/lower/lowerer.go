package lower

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nooga/tslua/pkg/checker"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/source"
)

const debugLower = false

func debugPrintf(format string, args ...interface{}) {
	if debugLower {
		fmt.Printf(format, args...)
	}
}

// DefaultRuntimeModule is the module name passed to `require` when the
// emitted code calls runtime helpers.
const DefaultRuntimeModule = "RuntimeLib"

// Options controls code generation for one file.
type Options struct {
	RuntimeModule string
	Header        string // emitted as a leading comment when set
}

// functionState describes the function whose body is being lowered.
type functionState struct {
	method       bool // `this` is available as `self`
	selfParam    bool // `self` is the first parameter
	returnsTuple bool // the function returns a LuaTuple
}

// jumpTarget is an enclosing loop or switch, the target of break and continue.
type jumpTarget struct {
	isSwitch     bool
	wrapped      bool   // loop body runs inside `repeat ... until true`
	breakFlag    string // set before leaving the wrapper to break the loop
	continueFlag string // set before leaving a switch to continue the loop
}

// Lowerer turns one checked program into Lua source.
type Lowerer struct {
	ctx    *Context
	info   *checker.Info
	opts   Options
	source *source.SourceFile

	functions []*functionState
	jumps     []*jumpTarget
}

// NewLowerer creates a lowerer with a fresh context.
func NewLowerer(info *checker.Info, opts Options) *Lowerer {
	if opts.RuntimeModule == "" {
		opts.RuntimeModule = DefaultRuntimeModule
	}
	return &Lowerer{ctx: NewContext(), info: info, opts: opts}
}

// Context exposes the compilation context, mainly for tests.
func (l *Lowerer) Context() *Context {
	return l.ctx
}

// Lower is a convenience wrapper around NewLowerer(...).LowerProgram.
func Lower(program *parser.Program, info *checker.Info, opts Options) (string, error) {
	return NewLowerer(info, opts).LowerProgram(program)
}

// LowerProgram emits a complete Lua chunk for program. On error no output is
// returned.
func (l *Lowerer) LowerProgram(program *parser.Program) (string, error) {
	l.source = program.Source
	body, err := l.block(program.Statements)
	if !l.ctx.Balanced() {
		debugPrintf("// [Lower] context unbalanced, pending intents %v\n", l.ctx.pendingIntents())
	}
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if l.opts.Header != "" {
		for _, line := range strings.Split(strings.TrimRight(l.opts.Header, "\n"), "\n") {
			sb.WriteString("-- " + line + "\n")
		}
	}
	if l.ctx.UsesRuntime {
		sb.WriteString("local TS = require(" + quoteString(l.opts.RuntimeModule) + ");\n")
	}
	if l.ctx.IsModule {
		sb.WriteString("local _exports = {};\n")
	}
	sb.WriteString(body)
	if l.ctx.IsModule {
		sb.WriteString("return _exports;\n")
	}
	return sb.String(), nil
}

// --- Errors ---

func (l *Lowerer) errorf(node parser.Node, code errors.Code, format string, args ...interface{}) error {
	tok := node.GetToken()
	pos := errors.Position{
		Line:     tok.Line,
		Column:   tok.Column,
		StartPos: tok.StartPos,
		EndPos:   tok.EndPos,
		Source:   l.source,
	}
	return errors.NewCompileError(pos, code, format, args...)
}

// --- Scope guards ---

// block lowers a statement list as one Lua block at the current indentation.
// Forward declarations go first and export statements last.
func (l *Lowerer) block(stmts []parser.Statement) (result string, err error) {
	l.ctx.PushIDScope()
	l.ctx.PushHoistScope()
	l.ctx.PushExportScope()
	defer func() {
		exports := l.ctx.PopExportScope()
		hoists := l.ctx.PopHoistScope()
		l.ctx.PopIDScope()
		if err == nil {
			result = hoists + result + exports
		}
	}()

	var sb strings.Builder
	for _, stmt := range stmts {
		s, err := l.statement(stmt)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
		if isFinalStatement(stmt) {
			// Lua allows nothing after return or break in a block.
			break
		}
	}
	return sb.String(), nil
}

// indentedBlock lowers stmts one level deeper than the current indentation.
func (l *Lowerer) indentedBlock(stmts []parser.Statement) (string, error) {
	l.ctx.PushIndent()
	defer l.ctx.PopIndent()
	return l.block(stmts)
}

// body lowers the body of a control statement.
func (l *Lowerer) body(stmt parser.Statement) (string, error) {
	if b, ok := stmt.(*parser.BlockStatement); ok {
		return l.indentedBlock(b.Statements)
	}
	return l.indentedBlock([]parser.Statement{stmt})
}

// statement lowers one statement and places the statements its expressions
// needed in front of it.
func (l *Lowerer) statement(stmt parser.Statement) (result string, err error) {
	l.ctx.EnterPreceding()
	defer func() {
		preceding := l.ctx.ExitPrecedingAndJoin()
		if err == nil {
			result = preceding + result
		}
	}()
	return l.lowerStatement(stmt)
}

// captured runs lower in a fresh preceding buffer and returns the statements
// it produced instead of leaving them in the enclosing buffer.
func (l *Lowerer) captured(lower func() (string, error)) (value string, stmts []string, err error) {
	l.ctx.EnterPreceding()
	defer func() {
		s := l.ctx.ExitPreceding()
		if err == nil {
			stmts = s
		}
	}()
	value, err = lower()
	return value, nil, err
}

// indented runs lower one indentation level deeper.
func (l *Lowerer) indented(lower func() (string, error)) (string, error) {
	l.ctx.PushIndent()
	defer l.ctx.PopIndent()
	return lower()
}

// withIntent lowers expr with an intent attached and reports whether the
// lowering claimed it.
func (l *Lowerer) withIntent(expr parser.Expression, intent Intent) (value string, claimed bool, err error) {
	expr = skipAssertions(expr)
	l.ctx.SetIntent(expr, intent)
	defer func() {
		claimed = !l.ctx.ReleaseIntent(expr)
	}()
	value, err = l.expression(expr)
	return value, false, err
}

// line formats one statement at the current indentation.
func (l *Lowerer) line(stmt string) string {
	return l.ctx.Indent() + stmt + "\n"
}

func (l *Lowerer) currentFunction() *functionState {
	if len(l.functions) == 0 {
		return nil
	}
	return l.functions[len(l.functions)-1]
}

// --- Helpers on emitted text ---

var (
	tempPattern       = regexp.MustCompile(`^_\d+$`)
	identPattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	namePathPattern   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
	numberTextPattern = regexp.MustCompile(`^-?[0-9][0-9.e+\-]*$`)
	leadingName       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
)

// isStableValue reports whether a value text cannot change between the point
// it is produced and the point it is used: temporaries, literals and
// function values.
func isStableValue(v string) bool {
	switch {
	case tempPattern.MatchString(v), numberTextPattern.MatchString(v), isQuotedString(v):
		return true
	case v == "nil" || v == "true" || v == "false" || v == "self":
		return true
	case strings.HasPrefix(v, "function("):
		return true
	}
	return false
}

// isQuotedString reports whether v is exactly one Lua string literal.
func isQuotedString(v string) bool {
	if len(v) < 2 || v[0] != '"' {
		return false
	}
	for i := 1; i < len(v); i++ {
		switch v[i] {
		case '\\':
			i++
		case '"':
			return i == len(v)-1
		}
	}
	return false
}

// isPureValue reports whether reading v twice is free of side effects.
func isPureValue(v string) bool {
	return isStableValue(v) || namePathPattern.MatchString(v)
}

// stable returns v, or a temporary holding v when reading v twice could
// run side effects twice. Such a v is never pure, so it is not shared.
func (l *Lowerer) stable(v string) string {
	if isPureValue(v) {
		return v
	}
	return l.ctx.PushToNewID(v, false)
}

var nonPrefixWords = map[string]bool{"nil": true, "true": true, "false": true, "not": true, "function": true}

// isPrefixText reports whether v is a Lua prefix expression (a name, a
// parenthesized expression, or a call, field or index on one), which can be
// called, indexed and used as a method receiver directly.
func isPrefixText(v string) bool {
	if v == "" {
		return false
	}
	if c := v[0]; c != '(' && c != '_' && !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') {
		return false
	}
	if nonPrefixWords[leadingName.FindString(v)] {
		return false
	}
	depth := 0
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case '"':
			for i++; i < len(v) && v[i] != '"'; i++ {
				if v[i] == '\\' {
					i++
				}
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ' ', '\t', '\n':
			if depth == 0 {
				return false
			}
		}
	}
	return true
}

// paren wraps v in parentheses unless it is already safe as an operand.
func paren(v string) string {
	if isPrefixText(v) || isStableValue(v) && !strings.HasPrefix(v, "function(") && !strings.HasPrefix(v, "-") {
		return v
	}
	return "(" + v + ")"
}

// prefix wraps v in parentheses unless it is a prefix expression.
func prefix(v string) string {
	if isPrefixText(v) {
		return v
	}
	return "(" + v + ")"
}

func skipAssertions(expr parser.Expression) parser.Expression {
	for {
		ta, ok := expr.(*parser.TypeAssertionExpression)
		if !ok {
			return expr
		}
		expr = ta.Expression
	}
}

// isFinalStatement reports whether nothing may follow stmt in its block.
func isFinalStatement(stmt parser.Statement) bool {
	switch stmt.(type) {
	case *parser.ReturnStatement, *parser.BreakStatement, *parser.ContinueStatement:
		return true
	}
	return false
}

// indentLines prefixes every line of text with one more tab.
func indentLines(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.SplitAfter(text, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		sb.WriteString("\t" + line)
	}
	return sb.String()
}
