package lower

import (
	"strings"
	"testing"

	"github.com/nooga/tslua/pkg/lexer"
	"github.com/nooga/tslua/pkg/parser"
)

// parseProgram returns the expressions of a program made of expression
// statements.
func parseProgram(t *testing.T, input string) []parser.Expression {
	t.Helper()
	program, errs := parser.NewParser(lexer.NewLexer(input)).ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("parser had %d errors for %q: %v", len(errs), input, errs)
	}
	var exprs []parser.Expression
	for _, stmt := range program.Statements {
		exprs = append(exprs, stmt.(*parser.ExpressionStatement).Expression)
	}
	return exprs
}

func TestNewIDSumsScopes(t *testing.T) {
	c := NewContext()
	c.PushIDScope()
	if id := c.NewID(); id != "_0" {
		t.Fatalf("expected _0, got %s", id)
	}
	c.PushIDScope()
	if id := c.NewID(); id != "_1" {
		t.Errorf("nested scope should continue from the outer count, got %s", id)
	}
	if id := c.NewID(); id != "_2" {
		t.Errorf("expected _2, got %s", id)
	}
	c.PopIDScope()
	c.PushIDScope()
	if id := c.NewID(); id != "_1" {
		t.Errorf("sibling scope should reuse _1, got %s", id)
	}
	c.PopIDScope()
	if id := c.NewID(); id != "_1" {
		t.Errorf("expected _1 after popping, got %s", id)
	}
	c.PopIDScope()
	if !c.Balanced() {
		t.Error("context should be balanced")
	}
}

func TestPushToNewIDReusesPureExpressions(t *testing.T) {
	c := NewContext()
	c.PushIDScope()
	c.EnterPreceding()

	a := c.PushToNewID("x.y", true)
	b := c.PushToNewID("x.y", true)
	if a != b {
		t.Errorf("identical pure expressions should share %s, got %s", a, b)
	}
	if d := c.PushToNewID("f()", false); d == a {
		t.Errorf("impure expression must get a fresh temporary")
	}
	if e := c.PushToNewID("f()", false); e == a {
		t.Errorf("impure expression must never be reused")
	}

	c.EnterPreceding()
	if inner := c.PushToNewID("f()", true); inner == a {
		t.Errorf("reuse must not cross buffers")
	}
	c.ExitPreceding()

	stmts := c.ExitPreceding()
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %v", len(stmts), stmts)
	}
	if stmts[0] != "local _0 = x.y;\n" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
	c.PopIDScope()
}

func TestPushSkipsEmptyStatements(t *testing.T) {
	c := NewContext()
	c.EnterPreceding()
	c.Push("", "a();\n", "")
	if !c.HasPending() {
		t.Fatal("expected a pending statement")
	}
	if got := c.ExitPrecedingAndJoin(); got != "a();\n" {
		t.Errorf("unexpected statements %q", got)
	}
}

func TestHoistScope(t *testing.T) {
	c := NewContext()
	c.PushHoistScope()
	c.Hoist("b")
	c.Hoist("a")
	c.Hoist("b")
	c.HoistDeclaration("n", "local n = N.n;")
	c.Hoist("n")
	c.HoistDeclaration("n", "local n = other;")
	got := c.PopHoistScope()
	expected := "local b, a;\nlocal n = N.n;\n"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestExportScope(t *testing.T) {
	c := NewContext()
	c.PushIndent()
	c.PushExportScope()
	c.Export("_exports", "f", "f")
	c.Export("N", "x", "x")
	c.Export("_exports", "f", "f")
	got := c.PopExportScope()
	c.PopIndent()
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 2 || lines[0] != "\t_exports.f = f;" || lines[1] != "\tN.x = x;" {
		t.Errorf("unexpected exports %q", got)
	}
}

func TestIntents(t *testing.T) {
	c := NewContext()
	program := parseProgram(t, "a; b;")
	a := program[0]
	b := program[1]

	c.SetIntent(a, Intent{IsIdentifier: true, Target: "x", NeedsLocalizing: true})
	c.SetIntent(b, Intent{Target: "y"})
	if c.Balanced() {
		t.Error("pending intents should unbalance the context")
	}
	in, ok := c.ClaimIntent(a)
	if !ok || in.Target != "x" || !in.NeedsLocalizing {
		t.Fatalf("unexpected claim %+v %v", in, ok)
	}
	if _, ok := c.ClaimIntent(a); ok {
		t.Error("an intent can only be claimed once")
	}
	if c.ReleaseIntent(a) {
		t.Error("a claimed intent is not pending")
	}
	if !c.ReleaseIntent(b) {
		t.Error("an unclaimed intent should be released")
	}
	if !c.Balanced() {
		t.Error("context should be balanced")
	}
}

func TestIndent(t *testing.T) {
	c := NewContext()
	c.PushIndent()
	c.PushIndent()
	if c.Indent() != "\t\t" {
		t.Errorf("unexpected indent %q", c.Indent())
	}
	c.PopIndent()
	c.PopIndent()
	if !c.Balanced() {
		t.Error("context should be balanced")
	}
}
