package lower

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/nooga/tslua/pkg/checker"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/lexer"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/runtime"
)

func lowerSource(t *testing.T, input string) (string, error) {
	t.Helper()
	program, parseErrs := parser.NewParser(lexer.NewLexer(input)).ParseProgram()
	if len(parseErrs) != 0 {
		t.Fatalf("parser had %d errors for %q: %v", len(parseErrs), input, parseErrs)
	}
	info, errs := checker.Check(program)
	if len(errs) != 0 {
		t.Fatalf("checker had %d errors for %q: %v", len(errs), input, errs)
	}
	return Lower(program, info, Options{})
}

func lowerOrFail(t *testing.T, input string) string {
	t.Helper()
	out, err := lowerSource(t, input)
	if err != nil {
		t.Fatalf("lowering %q: %v", input, err)
	}
	return out
}

// runLua lowers input, executes the result and returns what it printed.
func runLua(t *testing.T, input string) string {
	t.Helper()
	code := lowerOrFail(t, input)
	var out bytes.Buffer
	if _, err := runtime.Run(code, &out, ""); err != nil {
		t.Fatalf("running lowered code: %v\n%s", err, code)
	}
	return strings.TrimRight(out.String(), "\n")
}

func TestExecution(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"increments", `let i = 0; let a = i++; let b = ++i; print(a, b, i);`, "0\t2\t2"},
		{"operand order", `let i = 1; const r = i + i++; print(r, i);`, "2\t2"},
		{"compound assignment value", `let x = 1; const y = (x += 4); print(x, y);`, "5\t5"},
		{"string concat", `const n = 3; print("n=" + n);`, "n=3"},
		{"modulo", `print(7 % 3, -7 % 3);`, "1\t-1"},
		{"bitwise", `print(12 & 10, 12 | 10, 1 << 4, -16 >> 2);`, "8\t14\t16\t-4"},
		{"truncate", `print(7.9 | 0);`, "7"},
		{"ternary", `const x = 5; const s = x > 3 ? "big" : "small"; print(s);`, "big"},
		{"ternary chain", `function grade(n: number) { return n > 90 ? "a" : n > 80 ? "b" : "c"; } print(grade(95), grade(85), grade(10));`, "a\tb\tc"},
		{"zero is falsy", `const z = 0; if (z) { print("yes"); } else { print("no"); }`, "no"},
		{"empty string is falsy", `const s = ""; print(s ? "yes" : "no");`, "no"},
		{"or on numbers", `let calls = 0; function bump() { calls++; return 1; } const x = 0; const r = x || bump(); print(r, calls);`, "1\t1"},
		{"or short circuits", `let calls = 0; function bump() { calls++; return 1; } const x = 2; const r = x || bump(); print(r, calls);`, "2\t0"},
		{"and on strings", `const s = "a"; const r = s && "b"; print(r);`, "b"},
		{"nullish", `const o: any = {}; const v = o.missing ?? 7; print(v);`, "7"},
		{"while", `let i = 0; let s = 0; while (i < 4) { s += i; i++; } print(s);`, "6"},
		{"do while", `let i = 0; do { i++; } while (i < 3); print(i);`, "3"},
		{"for continue break", `let s = 0; for (let i = 0; i < 100; i++) { if (i % 2 === 0) continue; if (i > 7) break; s += i; } print(s);`, "16"},
		{"while continue", `let i = 0; let s = 0; while (i < 5) { i++; if (i === 2) { continue; } s += i; } print(s);`, "13"},
		{"for of array", `const xs = [1, 2, 3]; let s = 0; for (const x of xs) { s += x; } print(s);`, "6"},
		{"for of string", `let out = ""; for (const c of "abc") { out = c + out; } print(out);`, "cba"},
		{"for of pattern", `const ps = [[1, 2], [3, 4]]; let s = 0; for (const [a, b] of ps) { s += a * b; } print(s);`, "14"},
		{"array index", `const xs = [10, 20, 30]; print(xs[0], xs[2], xs.length);`, "10\t30\t3"},
		{"array methods", `const xs = [3, 1, 2]; xs.push(4); print(xs.length, xs.indexOf(2), xs.join("-"));`, "4\t2\t3-1-2-4"},
		{"string methods", `const s = "Hello"; print(s.length, s.toUpperCase(), s.indexOf("l"), s.slice(1, 3));`, "5\tHELLO\t2\tel"},
		{"array destructuring", `const [a, , c] = [1, 2, 3]; print(a, c);`, "1\t3"},
		{"object destructuring", `const o = { x: 1, y: { z: 2 } }; const { x, y: { z } } = o; print(x, z);`, "1\t2"},
		{"destructuring default", `const o: any = {}; const { a = 5 } = o; print(a);`, "5"},
		{"rest element", `const [first, ...rest] = [1, 2, 3]; print(first, rest.length, rest[1]);`, "1\t2\t3"},
		{"swap", `let a = 1; let b = 2; [a, b] = [b, a]; print(a, b);`, "2\t1"},
		{"spread call", `function add(a: number, b: number, c: number) { return a + b + c; } const xs = [1, 2, 3]; print(add(...xs));`, "6"},
		{"spread array", `const xs = [1, 2]; const ys = [0, ...xs, 3]; print(ys.length, ys[3]);`, "4\t3"},
		{"default parameter", `function f(x: number = 4) { return x * 2; } print(f(), f(1));`, "8\t2"},
		{"rest parameter", `function count(...xs: number[]) { return xs.length; } print(count(1, 2, 3));`, "3"},
		{"closures", `function counter() { let n = 0; return () => { n++; return n; }; } const c = counter(); c(); print(c());`, "2"},
		{"recursion", `function fib(n: number): number { return n < 2 ? n : fib(n - 1) + fib(n - 2); } print(fib(10));`, "55"},
		{"forward reference", `function a() { return b(); } function b() { return "ok"; } print(a());`, "ok"},
		{"methods", `const o = { n: 2, twice(x: number) { return this.n * x; } }; print(o.twice(5));`, "10"},
		{"throw", `const ok = pcall(() => { throw "boom"; }); print(ok);`, "false"},
		{"tuple destructuring", `function pair(): LuaTuple<[number, string]> { return [1, "a"]; } const [n, s] = pair(); print(n, s);`, "1\ta"},
		{"tuple as array", `function pair(): LuaTuple<[number, string]> { return [1, "a"]; } const t = pair(); print(t[0], t[1]);`, "1\ta"},
		{"string index order", `let log = ""; function g(): string { log += "g"; return "abc"; } function f(): number { log += "f"; return 1; } const c = g()[f()]; print(log, c);`, "gf\tb"},
		{"shared capture", `const o = { a: 1 }; let z = 0; const xs = [o.a, o.a, (z = 1)]; print(xs[0] + xs[1] + xs[2]);`, "3"},
		{"template", `const s = "x"; const n = 2; print(`+"`a${s}b${n}`"+`);`, "axb2"},
		{"template without text", `const n = 1; const b = true; print(`+"`${n}${b}`"+`);`, "1true"},
		{"empty template", `print(`+"``"+` === "");`, "true"},
		{"template of undefined", `const o: any = {}; print(`+"`v=${o.missing}`"+`);`, "v=nil"},
		{"template with call", `let calls = 0; function f(): number { calls++; return calls; } print(`+"`${f()}-${f()}`"+`);`, "1-2"},
		{"tagged template", `function tag(parts: string[], n: number): string { return parts.join("|") + n; } print(tag`+"`a${1}b`"+`);`, "a|b1"},
		{"while with statements in test", `let i = 0; while (i++ < 3) {} print(i);`, "4"},
		{"do while with statements in test", `let i = 0; let n = 0; do { n++; } while (i++ < 2); print(n, i);`, "3\t3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runLua(t, tt.input); got != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.input, tt.expected, got)
			}
		})
	}
}

func TestSwitchFallThrough(t *testing.T) {
	input := `
function describe(n: number) {
	let out = "";
	switch (n) {
		case 1:
			out += "1";
		case 2:
			out += "2";
			break;
		case 3:
			out += "3";
		default:
			out += "d";
	}
	return out;
}
print(describe(1), describe(2), describe(3), describe(9));
`
	if got := runLua(t, input); got != "12\t2\t3d\td" {
		t.Errorf("unexpected switch result %q", got)
	}
}

func TestSwitchMergedCases(t *testing.T) {
	input := `
function kind(c: string) {
	switch (c) {
		case "a":
		case "e":
			return "vowel";
		default:
			return "other";
	}
}
print(kind("a"), kind("e"), kind("x"));
`
	code := lowerOrFail(t, input)
	if !strings.Contains(code, `c == "a" or c == "e"`) {
		t.Errorf("expected merged case test, got:\n%s", code)
	}
	if strings.Contains(code, "= false;") {
		t.Errorf("no clause falls through, no flag expected:\n%s", code)
	}
	if got := runLua(t, input); got != "vowel\tvowel\tother" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestContinueInsideSwitch(t *testing.T) {
	input := `
let out = "";
for (const x of [1, 2, 3, 4]) {
	switch (x) {
		case 2:
			continue;
		case 4:
			break;
	}
	out += x;
}
print(out);
`
	if got := runLua(t, input); got != "134" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestNestedLoopBreak(t *testing.T) {
	input := `
let n = 0;
for (let i = 0; i < 3; i++) {
	for (let j = 0; j < 3; j++) {
		if (j === 1) continue;
		if (j === 2) break;
		n++;
	}
	if (i === 1) break;
}
print(n);
`
	if got := runLua(t, input); got != "2" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestLoweredText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"local", `let x = 1;`, "local x = 1;\n"},
		{"const string", `const s = "hi";`, "local s = \"hi\";\n"},
		{"type alias", `type N = number; const n: N = 1;`, "local n = 1;\n"},
		{"strict equality", `const a = 1; const b = a === 2;`, "local a = 1;\nlocal b = a == 2;\n"},
		{"length", `const xs = [1]; const n = xs.length;`, "local xs = { 1 };\nlocal n = #xs;\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lowerOrFail(t, tt.input); got != tt.expected {
				t.Errorf("%s:\nexpected:\n%s\ngot:\n%s", tt.input, tt.expected, got)
			}
		})
	}
}

func TestExports(t *testing.T) {
	got := lowerOrFail(t, `
export const version = 2;
export let counter = 0;
export function bump() {
	counter++;
}
`)
	expected := "local _exports = {};\n" +
		"local version = 2;\n" +
		"_exports.counter = 0;\n" +
		"local function bump()\n" +
		"\t_exports.counter = _exports.counter + 1;\n" +
		"end;\n" +
		"_exports.version = version;\n" +
		"_exports.bump = bump;\n" +
		"return _exports;\n"
	if got != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, got)
	}
}

func TestExportDefault(t *testing.T) {
	code := lowerOrFail(t, `export default 42;`)
	if !strings.Contains(code, "_exports.default = 42;") || !strings.HasSuffix(code, "return _exports;\n") {
		t.Errorf("unexpected output:\n%s", code)
	}
}

func TestNamespace(t *testing.T) {
	input := `
namespace Geometry {
	export const unit = 1;
	export function double(x: number) {
		return x * 2;
	}
}
print(Geometry.double(Geometry.unit));
`
	code := lowerOrFail(t, input)
	if !strings.HasPrefix(code, "local Geometry = {};\n") {
		t.Errorf("expected the namespace table first, got:\n%s", code)
	}
	if got := runLua(t, input); got != "2" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestRuntimeRequire(t *testing.T) {
	code := lowerOrFail(t, `const x = 5 & 3;`)
	if !strings.HasPrefix(code, "local TS = require(\"RuntimeLib\");\n") {
		t.Errorf("expected runtime require, got:\n%s", code)
	}
	if code := lowerOrFail(t, `const x = 5 + 3;`); strings.Contains(code, "require") {
		t.Errorf("unexpected runtime require:\n%s", code)
	}
}

func TestHeaderAndRuntimeModule(t *testing.T) {
	program, _ := parser.NewParser(lexer.NewLexer(`const x = 1 << 2;`)).ParseProgram()
	info, _ := checker.Check(program)
	code, err := Lower(program, info, Options{RuntimeModule: "lib.ts", Header: "generated"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(code, "-- generated\nlocal TS = require(\"lib.ts\");\n") {
		t.Errorf("unexpected prologue:\n%s", code)
	}
}

func TestLuaTuple(t *testing.T) {
	code := lowerOrFail(t, `
function pair(): LuaTuple<[number, string]> {
	return [1, "a"];
}
let [a, b] = pair();
const t = pair();
const n = t[0];
pair();
`)
	for _, want := range []string{"\treturn 1, \"a\";\n", "local a, b = pair();\n", "local t = { pair() };\n", "local n = t[1];\n", "local _ = { pair() };\n"} {
		if !strings.Contains(code, want) {
			t.Errorf("expected %q in:\n%s", want, code)
		}
	}
}

func TestSingleTemporaryForTernaryChain(t *testing.T) {
	code := lowerOrFail(t, `function f(n: number) { print(n > 2 ? "a" : n > 1 ? "b" : "c"); }`)
	if got := strings.Count(code, "local _"); got != 1 {
		t.Errorf("expected one temporary, got %d:\n%s", got, code)
	}
}

func TestStringIndexKeyAfterReceiver(t *testing.T) {
	code := lowerOrFail(t, `
function g(): string { return "abc"; }
function f(): number { return 1; }
const c = g()[f()];
`)
	gAt, fAt := strings.Index(code, "= g();"), strings.Index(code, "= f();")
	if gAt < 0 || fAt < 0 || gAt > fAt {
		t.Errorf("expected g() to be captured before f():\n%s", code)
	}
}

func TestSwitchCaseValuesOnlyEvaluatedUntilMatch(t *testing.T) {
	got := runLua(t, `
let log = "";
function t(x: number): number { log += "t" + x; return x; }
function run(n: number): string {
	log = "";
	switch (n) {
		case t(1):
			log += "a";
		case (t(2) > 0 ? 2 : 2):
			log += "b";
			break;
		default:
			log += "d";
	}
	return log;
}
print(run(1), run(2), run(5));
`)
	if want := "t1ab\tt1t2b\tt1t2d"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSwitchMergedCasesWithStatements(t *testing.T) {
	got := runLua(t, `
let log = "";
function t(x: number): number { log += x; return x; }
function run(n: number): string {
	log = "";
	switch (n) {
		case 1:
		case (n > 9 ? t(0) : t(2)):
		case t(3):
			log += "!";
			break;
	}
	return log;
}
print(run(1), run(2), run(3), run(4));
`)
	if want := "!\t2!\t23!\t23"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSharedCaptureReused(t *testing.T) {
	code := lowerOrFail(t, `const o = { a: 1 }; let z = 0; const xs = [o.a, o.a, (z = 1)];`)
	if got := strings.Count(code, "local _"); got != 1 {
		t.Errorf("expected one temporary, got %d:\n%s", got, code)
	}
	if !strings.Contains(code, "{ _0, _0, z }") {
		t.Errorf("expected the temporary to be shared:\n%s", code)
	}
}

func TestSharedBaseEvaluatedOnce(t *testing.T) {
	input := `
let calls = 0;
const box = { x: 1 };
function f() { calls++; return box; }
f().x += 1;
f().x++;
const v = f().x++;
print(calls, box.x, v);
`
	code := lowerOrFail(t, input)
	if got := strings.Count(code, "= f();"); got != 3 {
		t.Errorf("expected f() to be captured three times, got %d:\n%s", got, code)
	}
	if got := runLua(t, input); got != "3\t4\t3" {
		t.Errorf("expected %q, got %q", "3\t4\t3", got)
	}
}

func TestHoistOrdering(t *testing.T) {
	input := `function a() { return b(); } function b() { return 1; } print(a());`
	code := lowerOrFail(t, input)
	decl, use := strings.Index(code, "local b;\n"), strings.Index(code, "local function a")
	if decl < 0 || use < 0 || decl > use {
		t.Errorf("expected b to be declared before a:\n%s", code)
	}
	if !strings.Contains(code, "b = function()") {
		t.Errorf("expected b to be assigned to its forward declaration:\n%s", code)
	}
	if got := runLua(t, input); got != "1" {
		t.Errorf("expected 1, got %q", got)
	}

	code = lowerOrFail(t, `function outer() { const r = inner(); function inner() { return 2; } return r; }`)
	decl, use = strings.Index(code, "\tlocal inner;\n"), strings.Index(code, "\tlocal r = ")
	if decl < 0 || use < 0 || decl > use {
		t.Errorf("expected inner to be declared at the top of outer:\n%s", code)
	}
}

func TestTemplateText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"const s = \"x\"; const n = 2; const t = `a${s}b${n}`;", "local t = \"a\" .. s .. \"b\" .. tostring(n);\n"},
		{"const t = `plain`;", "local t = \"plain\";\n"},
		{"const t = ``;", "local t = \"\";\n"},
		{"const t = `q\\`\"${1}`;", "local t = \"q`\\\"\" .. tostring(1);\n"},
		{"function tag(p: string[], a: number) { return a; } const t = tag`x${1}`;", "local t = tag({ \"x\", \"\" }, 1);\n"},
	}
	for _, tt := range tests {
		if code := lowerOrFail(t, tt.input); !strings.Contains(code, tt.want) {
			t.Errorf("%s: expected %q in:\n%s", tt.input, tt.want, code)
		}
	}
}

func TestWhileConditionFastPath(t *testing.T) {
	code := lowerOrFail(t, `let i = 0; while (i < 3) { i++; }`)
	if !strings.Contains(code, "while i < 3 do\n") {
		t.Errorf("expected the condition in the loop header:\n%s", code)
	}
	code = lowerOrFail(t, `let i = 0; while (i++ < 3) {}`)
	if !strings.Contains(code, "while true do\n") || !strings.Contains(code, "then break; end;") {
		t.Errorf("expected the condition inside the loop:\n%s", code)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input string
		code  errors.Code
	}{
		{`var v = 1;`, errors.CodeNoVarKeyword},
		{`const v = null;`, errors.CodeNoNull},
		{`const x = 1; const t = typeof x;`, errors.CodeNoTypeOf},
		{`const a = 1; const b = a == 1;`, errors.CodeNoEqualsEquals},
		{`const a = 1; const b = a != 1;`, errors.CodeNoExclamationEquals},
		{`const o = {}; for (const k in o) {}`, errors.CodeNoForInStatement},
		{`outer: for (;;) { break; }`, errors.CodeNoLabeledStatement},
		{`class A {}`, errors.CodeNoClasses},
		{`import('x');`, errors.CodeNoDynamicImport},
		{`const end = 1;`, errors.CodeReservedName},
		{`const _exports = 1;`, errors.CodeReservedName},
		{`print(this);`, errors.CodeNoThisOutsideMethod},
		{`const xs = [1]; const b = true; const y = xs + b;`, errors.CodeBadAddition},
		{`const s = "a"; const y = s * 2;`, errors.CodeBadBinaryOperand},
		{`const x = 1; switch (x) { default: break; case 1: break; }`, errors.CodeBadSwitchDefaultPosition},
		{`const o = {}; const {} = o;`, errors.CodeEmptyDestructuringPattern},
		{`function f(): LuaTuple<[number, number]> { return 1; }`, errors.CodeBadLuaTupleUsage},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			out, err := lowerSource(t, tt.input)
			if err == nil {
				t.Fatalf("%s: expected %s, lowered to:\n%s", tt.input, tt.code, out)
			}
			if out != "" {
				t.Errorf("%s: output must be empty on error, got:\n%s", tt.input, out)
			}
			var ce *errors.CompileError
			if !stderrors.As(err, &ce) {
				t.Fatalf("%s: expected a CompileError, got %T: %v", tt.input, err, err)
			}
			if ce.Code != tt.code {
				t.Errorf("%s: expected code %s, got %s (%s)", tt.input, tt.code, ce.Code, ce.Msg)
			}
			if ce.Position.Line == 0 {
				t.Errorf("%s: error has no position", tt.input)
			}
		})
	}
}

func TestContextBalancedAfterLowering(t *testing.T) {
	inputs := []string{
		`let x = 1; x++;`,
		`function f(a: number) { return a > 1 ? a : -a; }`,
		`for (let i = 0; i < 3; i++) { if (i === 1) continue; }`,
		`const [a, b] = [1, 2];`,
		`const x = 1; switch (x) { case 1: break; }`,
	}
	for _, input := range inputs {
		program, _ := parser.NewParser(lexer.NewLexer(input)).ParseProgram()
		info, _ := checker.Check(program)
		l := NewLowerer(info, Options{})
		if _, err := l.LowerProgram(program); err != nil {
			t.Fatalf("%s: %v", input, err)
		}
		if !l.Context().Balanced() {
			t.Errorf("%s: context left unbalanced", input)
		}
	}
}

func TestContextBalancedAfterFailedLowering(t *testing.T) {
	inputs := []string{
		`const x = 1; const y = x > 0 ? typeof x : "n";`,
		`const x = 1; switch (x) { default: break; case 1: break; }`,
		`namespace N { export function f() { const o = {}; const {} = o; } }`,
		`function g(n: number) { while (n > 0) { const s = n > 1 ? null : 1; } }`,
		`let i = 0; while (i++ < (typeof i === "number" ? 3 : 4)) {}`,
	}
	for _, input := range inputs {
		program, _ := parser.NewParser(lexer.NewLexer(input)).ParseProgram()
		info, _ := checker.Check(program)
		l := NewLowerer(info, Options{})
		if _, err := l.LowerProgram(program); err == nil {
			t.Fatalf("%s: expected an error", input)
		}
		if !l.Context().Balanced() {
			t.Errorf("%s: context left unbalanced", input)
		}
	}
}
