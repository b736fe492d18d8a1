package runtime

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestHelpers(t *testing.T) {
	tests := []struct {
		name     string
		chunk    string
		expected string
	}{
		{"band", `return TS.band(12, 10)`, "8"},
		{"bor", `return TS.bor(12, 10)`, "14"},
		{"bxor", `return TS.bxor(12, 10)`, "6"},
		{"bnot", `return TS.bnot(0)`, "-1"},
		{"blsh", `return TS.blsh(1, 4)`, "16"},
		{"brsh negative", `return TS.brsh(-16, 2)`, "-4"},
		{"bursh negative", `return TS.bursh(-1, 28)`, "15"},
		{"round", `return TS.round(-2.7)`, "-2"},
		{"bool zero", `return TS.bool(0)`, "false"},
		{"bool nan", `return TS.bool(0 / 0)`, "false"},
		{"bool empty string", `return TS.bool("")`, "false"},
		{"bool table", `return TS.bool({})`, "true"},
		{"concat", `return table.concat(TS.array_concat({ 1, 2 }, {}, { 3 }), ",")`, "1,2,3"},
		{"slice", `return table.concat(TS.array_slice({ 1, 2, 3, 4 }, 1, -1), ",")`, "2,3"},
		{"slice rest", `return table.concat(TS.array_slice({ 1, 2, 3 }, 1), ",")`, "2,3"},
		{"indexOf", `return TS.array_indexOf({ "a", "b" }, "b")`, "1"},
		{"map", `return table.concat(TS.array_map({ 1, 2 }, function(v, i) return v * 10 + i end), ",")`, "10,21"},
		{"filter", `return #TS.array_filter({ 1, 0, 2 }, function(v) return v end)`, "2"},
		{"reduce", `return TS.array_reduce({ 1, 2, 3 }, function(a, b) return a + b end)`, "6"},
		{"reduce initial", `return TS.array_reduce({}, function(a, b) return a + b end, 5)`, "5"},
		{"join", `return TS.array_join({ 1, true, "x" }, "-")`, "1-true-x"},
		{"split chars", `return table.concat(TS.string_split("abc", ""), " ")`, "a b c"},
		{"split sep", `return table.concat(TS.string_split("a.b..c", "."), "|")`, "a|b||c"},
		{"string indexOf", `return TS.string_indexOf("hello", "l")`, "2"},
		{"string lastIndexOf", `return TS.string_lastIndexOf("hello", "l")`, "3"},
		{"string slice", `return TS.string_slice("hello", 1, -1)`, "ell"},
		{"substring swaps", `return TS.string_substring("hello", 4, 1)`, "ell"},
		{"padStart", `return TS.string_padStart("7", 3, "0")`, "007"},
		{"startsWith", `return TS.string_startsWith("tslua", "ts")`, "true"},
		{"endsWith empty", `return TS.string_endsWith("tslua", "")`, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := `local TS = require("RuntimeLib"); ` + tt.chunk
			results, err := Run(chunk, &bytes.Buffer{}, "")
			if err != nil {
				t.Fatalf("running %q: %v", tt.chunk, err)
			}
			if len(results) != 1 {
				t.Fatalf("expected 1 result, got %d", len(results))
			}
			if got := results[0].String(); got != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.chunk, tt.expected, got)
			}
		})
	}
}

func TestPrintWritesToOutput(t *testing.T) {
	var out bytes.Buffer
	if _, err := Run(`print("a", 1, nil)`, &out, ""); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "a\t1\tnil\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestCustomModuleName(t *testing.T) {
	results, err := Run(`return require("lib.ts").round(3.5)`, &bytes.Buffer{}, "lib.ts")
	if err != nil {
		t.Fatal(err)
	}
	if got := results[0].String(); got != "3" {
		t.Errorf("expected 3, got %s", got)
	}
}

func TestWriteTo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "include")
	path, err := WriteTo(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "RuntimeLib.lua" {
		t.Errorf("unexpected file name %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != Source() {
		t.Error("written library differs from the embedded one")
	}
	if _, err := WriteTo(dir, ""); err != nil {
		t.Fatalf("rewriting an identical library: %v", err)
	}
}
