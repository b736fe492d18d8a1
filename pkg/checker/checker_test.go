package checker

import (
	"strings"
	"testing"

	"github.com/nooga/tslua/pkg/lexer"
	"github.com/nooga/tslua/pkg/parser"
)

func checkOrFail(t *testing.T, input string) (*parser.Program, *Info) {
	t.Helper()
	program, parseErrs := parser.NewParser(lexer.NewLexer(input)).ParseProgram()
	if len(parseErrs) != 0 {
		t.Fatalf("parser had %d errors for %q: %v", len(parseErrs), input, parseErrs)
	}
	info, errs := Check(program)
	if len(errs) != 0 {
		t.Fatalf("checker had %d errors for %q: %v", len(errs), input, errs)
	}
	return program, info
}

func lastExpression(t *testing.T, program *parser.Program) parser.Expression {
	t.Helper()
	last := program.Statements[len(program.Statements)-1]
	stmt, ok := last.(*parser.ExpressionStatement)
	if !ok {
		t.Fatalf("last statement is %T, not an expression statement", last)
	}
	return stmt.Expression
}

func TestExpressionTypes(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`1 + 2`, "number"},
		{`let s = "a"; s + 1`, "string"},
		{`let xs = [1, 2]; xs`, "number[]"},
		{`let xs = [1, 2]; xs.length`, "number"},
		{`let xs = [1, 2]; xs[0]`, "number"},
		{`[1, "a"]`, "(number | string)[]"},
		{`[]`, "any[]"},
		{`let n = 1; n > 2 ? "a" : "b"`, "string"},
		{`"abc".toUpperCase()`, "string"},
		{`[1, 2].map((x) => "s")`, "string[]"},
		{`let o = { a: 1, b: "x" }; o.a`, "number"},
		{`!0`, "boolean"},
		{`let i = 0; i++`, "number"},
		{`let t: [number, string] = [1, "a"]; t[1]`, "string"},
		{`function f(): LuaTuple<[number, string]> { return [1, "a"] as any; } f()`, "LuaTuple<[number, string]>"},
		{`let u = 1 as any; u.whatever`, "any"},
		{`tostring(1)`, "string"},
		{"let n = 1; `n=${n}`", "string"},
		{"function tag(s: string[], n: number): number { return n; } tag`a${1}`", "number"},
		{`function g(a: number) { return a * 2; } g(1)`, "number"},
	}

	for _, tt := range tests {
		program, _ := checkOrFail(t, tt.input)
		expr := lastExpression(t, program)
		if got := expr.GetComputedType(); got == nil || got.String() != tt.expected {
			t.Errorf("%q: expected type %s, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestHoisting(t *testing.T) {
	input := `
function a() { return b(); }
function b() { return 1; }
function c() { return later; }
let later = 2;
let early = 3;
print(early);
`
	program, info := checkOrFail(t, input)

	fnSym := func(i int) *Symbol {
		return info.SymbolOf(program.Statements[i].(*parser.FunctionDeclaration).Function.Name)
	}
	varSym := func(i int) *Symbol {
		return info.SymbolOf(program.Statements[i].(*parser.VariableStatement).Declarations[0].Target.(*parser.Identifier))
	}

	tests := []struct {
		name    string
		sym     *Symbol
		hoisted bool
	}{
		{"a", fnSym(0), false},
		{"b", fnSym(1), true},
		{"c", fnSym(2), false},
		{"later", varSym(3), true},
		{"early", varSym(4), false},
	}
	for _, tt := range tests {
		if tt.sym == nil {
			t.Fatalf("no symbol for %s", tt.name)
		}
		if info.Hoisted(tt.sym) != tt.hoisted {
			t.Errorf("%s: expected hoisted=%v", tt.name, tt.hoisted)
		}
	}
}

func TestSelfReferenceIsHoisted(t *testing.T) {
	program, info := checkOrFail(t, `let f = () => f;`)
	sym := info.SymbolOf(program.Statements[0].(*parser.VariableStatement).Declarations[0].Target.(*parser.Identifier))
	if !sym.Hoisted {
		t.Errorf("variable referenced in its own initializer should be hoisted")
	}
}

func TestSymbolKinds(t *testing.T) {
	program, info := checkOrFail(t, `
const k = 1;
function f(p: number) { return p + k; }
print(f(k));
`)
	fn := program.Statements[1].(*parser.FunctionDeclaration).Function
	param := info.SymbolOf(fn.Parameters[0].Name)
	if param == nil || param.Kind != SymbolParam {
		t.Fatalf("expected parameter symbol, got %v", param)
	}

	ret := fn.Body.Statements[0].(*parser.ReturnStatement).ReturnValue.(*parser.InfixExpression)
	if sym := info.SymbolOf(ret.Right.(*parser.Identifier)); sym == nil || sym.Kind != SymbolConst {
		t.Errorf("expected const symbol for k, got %v", sym)
	} else if sym.References != 2 {
		t.Errorf("expected 2 references to k, got %d", sym.References)
	}

	call := lastExpression(t, program).(*parser.CallExpression)
	if sym := info.SymbolOf(call.Function.(*parser.Identifier)); sym == nil || sym.Kind != SymbolGlobal {
		t.Errorf("expected global symbol for print, got %v", sym)
	}
	if sym := info.SymbolOf(fn.Name); sym.Kind != SymbolFunction || sym.Type.String() != "(number) => number" {
		t.Errorf("unexpected function symbol %s: %s", sym.Kind, sym.Type)
	}
}

func TestNamespaceMerging(t *testing.T) {
	program, info := checkOrFail(t, `
namespace N {
	export const a = 1;
	const b = a;
}
namespace N {
	export function f() { return a; }
}
`)
	first := program.Statements[0].(*parser.NamespaceDeclaration)
	second := program.Statements[1].(*parser.NamespaceDeclaration)

	if info.NamespaceOf(first) != info.NamespaceOf(second) {
		t.Fatalf("merged namespaces should share one symbol")
	}
	if !info.NamespaceFirst(first) || info.NamespaceFirst(second) {
		t.Errorf("only the first declaration should be marked first")
	}

	local := first.Body.Statements[1].(*parser.VariableStatement).Declarations[0].Value.(*parser.Identifier)
	if info.QualifiedReference(local) {
		t.Errorf("a reference in the declaring block should not be qualified")
	}

	fn := second.Body.Statements[0].(*parser.ExportDeclaration).Declaration.(*parser.FunctionDeclaration).Function
	ref := fn.Body.Statements[0].(*parser.ReturnStatement).ReturnValue.(*parser.Identifier)
	if !info.QualifiedReference(ref) {
		t.Errorf("a reference from another block of the namespace should be qualified")
	}
	sym := info.SymbolOf(ref)
	if sym == nil || sym.Namespace != info.NamespaceOf(first) || !sym.Exported {
		t.Errorf("unexpected symbol for a: %+v", sym)
	}

	ns := info.NamespaceOf(first)
	if got := ns.Type.String(); got != "{ a: number; f: () => number }" {
		t.Errorf("unexpected namespace type %s", got)
	}
}

func TestTypeAliasesResolveLazily(t *testing.T) {
	program, _ := checkOrFail(t, `
let p: P = { x: 1 };
type P = { x: number; next: Q };
interface Q { y: string }
p
`)
	expr := lastExpression(t, program)
	if got := expr.GetComputedType().String(); got != "{ x: number; next: { y: string } }" {
		t.Errorf("unexpected alias type %s", got)
	}
}

func TestCheckerErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`let x: Foo = 1;`, "cannot find name 'Foo'"},
		{`let n = 1; n();`, "not callable"},
		{`let s = "a"; s();`, "not callable"},
		{`let a: Array<number, string> = [];`, "exactly one type argument"},
		{`let t: LuaTuple<number> = f();`, "tuple type argument"},
	}

	for _, tt := range tests {
		program, parseErrs := parser.NewParser(lexer.NewLexer(tt.input)).ParseProgram()
		if len(parseErrs) != 0 {
			t.Fatalf("%q: unexpected parse errors %v", tt.input, parseErrs)
		}
		_, errs := Check(program)
		if len(errs) == 0 {
			t.Errorf("%q: expected an error containing %q", tt.input, tt.expected)
			continue
		}
		if !strings.Contains(errs[0].Message(), tt.expected) {
			t.Errorf("%q: expected error containing %q, got %q", tt.input, tt.expected, errs[0].Message())
		}
	}
}
