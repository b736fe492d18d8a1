package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/nooga/tslua/pkg/lexer"
)

func parseOrFail(t *testing.T, input string) *Program {
	t.Helper()
	p := NewParser(lexer.NewLexer(input))
	program, errs := p.ParseProgram()
	if len(errs) != 0 {
		t.Fatalf("parser had %d errors for %q: %v", len(errs), input, errs)
	}
	return program
}

func TestOperatorPrecedenceParsing(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"-a * b", "((-a) * b);"},
		{"!x", "(!x);"},
		{"a + b * c", "(a + (b * c));"},
		{"a ** b ** c", "(a ** (b ** c));"},
		{"a && b || c", "((a && b) || c);"},
		{"a ?? b", "(a ?? b);"},
		{"x = y = 1", "(x = (y = 1));"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e));"},
		{"x += a.b[c]", "(x += a.b[c]);"},
		{"f(a, g(b))", "f(a, g(b));"},
		{"i++ + ++j", "(i++ + ++j);"},
		{"a << 1 | b & c", "((a << 1) | (b & c));"},
		{"x as number", "(x as number);"},
		{"a === b", "(a === b);"},
		{"typeof x", "(typeof x);"},
		{"a.b.c(d)[0]", "a.b.c(d)[0];"},
		{"`a${b + c}d`", "`a${(b + c)}d`;"},
		{"x + `y`", "(x + `y`);"},
		{"tag`x${y}`.z", "tag`x${y}`.z;"},
	}

	for _, tt := range tests {
		program := parseOrFail(t, tt.input)
		if len(program.Statements) != 1 {
			t.Errorf("%q: expected 1 statement, got %d", tt.input, len(program.Statements))
			continue
		}
		if got := program.Statements[0].String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestVariableStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"let x: number = 5;", "let x: number = 5;"},
		{"const [a, , b = 1, ...rest] = xs;", "const [a, , b = 1, ...rest] = xs;"},
		{"let { a, b: c = 2 } = o;", "let { a: a, b: c = 2 } = o;"},
		{"let a = 1, b;", "let a = 1, b;"},
		{"const f = (a: number, b = 2): number => a + b;", "const f = (a: number, b = 2): number => (a + b);"},
		{"const g = x => x * 2;", "const g = (x) => (x * 2);"},
		{"const h = (x) + 1;", "const h = (x + 1);"},
		{"let a: Array<Array<number>> = x;", "let a: Array<Array<number>> = x;"},
		{"let t: LuaTuple<[number, string]>;", "let t: LuaTuple<[number, string]>;"},
		{"let u: string | number[];", "let u: string | number[];"},
		{"let fn: (a: number) => void;", "let fn: (a: number) => void;"},
		{"let o: { a: number; m(x: string): boolean };", "let o: { a: number; m: (x: string) => boolean };"},
		{"type P = [number, ...string[]];", "type P = [number, ...string[]];"},
	}

	for _, tt := range tests {
		program := parseOrFail(t, tt.input)
		if len(program.Statements) != 1 {
			t.Errorf("%q: expected 1 statement, got %d", tt.input, len(program.Statements))
			continue
		}
		if got := program.Statements[0].String(); got != tt.expected {
			t.Errorf("%q: expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestStatementKinds(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"for (const x of xs) {}", "*parser.ForOfStatement"},
		{"for (x of xs) {}", "*parser.ForOfStatement"},
		{"for (let i = 0; i < 10; i++) {}", "*parser.ForStatement"},
		{"for (;;) {}", "*parser.ForStatement"},
		{"for (const k in o) {}", "*parser.ForInStatement"},
		{"switch (x) { case 1: break; default: }", "*parser.SwitchStatement"},
		{"namespace N { export const a = 1; }", "*parser.NamespaceDeclaration"},
		{"export default 1;", "*parser.ExportDeclaration"},
		{"export function f() {}", "*parser.ExportDeclaration"},
		{"interface I { a: number }", "*parser.TypeAliasStatement"},
		{"label: for (;;) {}", "*parser.LabeledStatement"},
		{"class A { m() { return 1; } }", "*parser.ClassDeclaration"},
		{"do { x++; } while (x < 3);", "*parser.DoWhileStatement"},
		{"function f() {}", "*parser.FunctionDeclaration"},
		{"throw e;", "*parser.ThrowStatement"},
		{"import('x');", "*parser.ExpressionStatement"},
		{"var v = 1;", "*parser.VariableStatement"},
		{"if (a) b(); else if (c) d(); else e();", "*parser.IfStatement"},
		{"while (a) a--;", "*parser.WhileStatement"},
		{"{ let a = 1; }", "*parser.BlockStatement"},
	}

	for _, tt := range tests {
		program := parseOrFail(t, tt.input)
		if len(program.Statements) != 1 {
			t.Errorf("%q: expected 1 statement, got %d", tt.input, len(program.Statements))
			continue
		}
		if got := fmt.Sprintf("%T", program.Statements[0]); got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestSwitchClauses(t *testing.T) {
	program := parseOrFail(t, `switch (x) {
	case 1:
	case 2:
		f();
		break;
	default:
		g();
}`)
	stmt := program.Statements[0].(*SwitchStatement)
	if len(stmt.Cases) != 3 {
		t.Fatalf("expected 3 clauses, got %d", len(stmt.Cases))
	}
	if len(stmt.Cases[0].Body) != 0 || len(stmt.Cases[1].Body) != 2 || len(stmt.Cases[2].Body) != 1 {
		t.Errorf("unexpected clause bodies: %d %d %d", len(stmt.Cases[0].Body), len(stmt.Cases[1].Body), len(stmt.Cases[2].Body))
	}
	if stmt.Cases[0].IsDefault() || !stmt.Cases[2].IsDefault() {
		t.Errorf("default clause not recognised")
	}
}

func TestDestructuringAssignment(t *testing.T) {
	program := parseOrFail(t, "[a, b] = [b, a];\n({ a, b: c } = o);")

	first := program.Statements[0].(*ExpressionStatement).Expression.(*AssignmentExpression)
	pattern, ok := first.Left.(*ArrayPattern)
	if !ok {
		t.Fatalf("expected ArrayPattern, got %T", first.Left)
	}
	if len(pattern.Elements) != 2 {
		t.Errorf("expected 2 elements, got %d", len(pattern.Elements))
	}

	second := program.Statements[1].(*ExpressionStatement).Expression.(*AssignmentExpression)
	obj, ok := second.Left.(*ObjectPattern)
	if !ok {
		t.Fatalf("expected ObjectPattern, got %T", second.Left)
	}
	if obj.Properties[1].Key != "b" || obj.Properties[1].Target.String() != "c" {
		t.Errorf("unexpected property: %s -> %s", obj.Properties[1].Key, obj.Properties[1].Target)
	}
}

func TestObjectLiteralMembers(t *testing.T) {
	program := parseOrFail(t, "const o = { x: 1, y, 'z-w': 2, m(a) { return this.x + a; } };")
	decl := program.Statements[0].(*VariableStatement).Declarations[0]
	obj, ok := decl.Value.(*ObjectLiteral)
	if !ok {
		t.Fatalf("expected ObjectLiteral, got %T", decl.Value)
	}
	if len(obj.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(obj.Properties))
	}
	if !obj.Properties[1].Shorthand {
		t.Errorf("y should be shorthand")
	}
	if obj.Properties[2].Key != "z-w" {
		t.Errorf("expected string key, got %q", obj.Properties[2].Key)
	}
	method, ok := obj.Properties[3].Value.(*FunctionLiteral)
	if !obj.Properties[3].Method || !ok || !method.IsMethod {
		t.Errorf("m should be a method")
	}
}

func TestNumberLiteralValues(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"42", 42},
		{"0xFF", 255},
		{"0b101", 5},
		{"0o17", 15},
		{"1_000", 1000},
		{".5", 0.5},
		{"1e3", 1000},
	}
	for _, tt := range tests {
		program := parseOrFail(t, tt.input)
		lit, ok := program.Statements[0].(*ExpressionStatement).Expression.(*NumberLiteral)
		if !ok {
			t.Errorf("%q: not a NumberLiteral", tt.input)
			continue
		}
		if lit.Value != tt.expected {
			t.Errorf("%q: expected %v, got %v", tt.input, tt.expected, lit.Value)
		}
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
	}{
		{"let = 5;", "expected binding name"},
		{"`a${1 b}`", "expected next token to be }"},
		{"`open", "unterminated template literal"},
		{"1 +", "no prefix parse function"},
		{"f(a b)", "expected next token to be ,"},
		{"import x from 'y';", "import declarations are not supported"},
		{"let x = (1, 2);", "expected next token to be )"},
		{"function f({ a }) {}", "destructuring parameters are not supported"},
		{"interface A extends B {}", "interface inheritance is not supported"},
		{"{ let a = 1;", "expected '}'"},
	}

	for _, tt := range tests {
		_, errs := NewParser(lexer.NewLexer(tt.input)).ParseProgram()
		if len(errs) == 0 {
			t.Errorf("%q: expected an error", tt.input)
			continue
		}
		if !strings.Contains(errs[0].Message(), tt.message) {
			t.Errorf("%q: expected error containing %q, got %q", tt.input, tt.message, errs[0].Message())
		}
	}
}

func TestErrorPosition(t *testing.T) {
	_, errs := NewParser(lexer.NewLexer("let x = 1;\nlet = 2;")).ParseProgram()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	pos := errs[0].Pos()
	if pos.Line != 2 || pos.Column != 5 {
		t.Errorf("expected error at 2:5, got %d:%d", pos.Line, pos.Column)
	}
}
