package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nooga/tslua/pkg/errors"
)

func TestCompileString(t *testing.T) {
	code, errs := CompileString("const x = 1 + 2;", Options{Header: "test"})
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if code != "-- test\nlocal x = 1 + 2;\n" {
		t.Errorf("unexpected output %q", code)
	}
}

func TestCompileStringErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  string
	}{
		{"let = ;", "Syntax"},
		{"const n: Missing = 1;", "Type"},
		{"const v = null;", "Compile"},
	}
	for _, tt := range tests {
		code, errs := CompileString(tt.input, Options{})
		if len(errs) == 0 {
			t.Errorf("%q: expected errors, got output %q", tt.input, code)
			continue
		}
		if code != "" {
			t.Errorf("%q: output must be empty on error", tt.input)
		}
		if errs[0].Kind() != tt.kind {
			t.Errorf("%q: expected %s error, got %s: %v", tt.input, tt.kind, errs[0].Kind(), errs[0])
		}
	}
}

func TestCompileFileReportsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ts")
	if err := os.WriteFile(path, []byte("const a = 1;\nconst b = a == 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, errs := CompileFile(path, Options{})
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	ce, ok := errs[0].(*errors.CompileError)
	if !ok || ce.Code != errors.CodeNoEqualsEquals {
		t.Fatalf("unexpected error %v", errs[0])
	}
	report := errors.Sprint(errs)
	if !strings.Contains(report, "bad.ts:2:") || !strings.Contains(report, "const b = a == 1;") {
		t.Errorf("report should name the file and show the line:\n%s", report)
	}
}

func TestCompileFileMissing(t *testing.T) {
	_, errs := CompileFile(filepath.Join(t.TempDir(), "nope.ts"), Options{})
	if len(errs) != 1 || !strings.Contains(errs[0].Message(), "Failed to read file") {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestWriteLuaFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "main.ts")
	if err := os.WriteFile(in, []byte("print(1 << 3);\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var errOut bytes.Buffer
	if !WriteLuaFile(in, "", Options{}, &errOut) {
		t.Fatalf("WriteLuaFile failed: %s", errOut.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "main.lua"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "TS.blsh(1, 3)") {
		t.Errorf("unexpected output:\n%s", data)
	}
}

func TestOutputPath(t *testing.T) {
	tests := map[string]string{
		"a.ts":       "a.lua",
		"dir/b.ts":   "dir/b.lua",
		"script":     "script.lua",
		"weird.ts.x": "weird.ts.x.lua",
	}
	for in, want := range tests {
		if got := OutputPath(in); got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunString(t *testing.T) {
	var out bytes.Buffer
	if errs := RunString(`let s = 0; for (const x of [1, 2, 3]) { s += x; } print(s);`, Options{}, &out); len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if out.String() != "6\n" {
		t.Errorf("unexpected output %q", out.String())
	}

	errs := RunString(`throw "broken";`, Options{}, &out)
	if len(errs) != 1 || errs[0].Kind() != "Runtime" || !strings.Contains(errs[0].Message(), "broken") {
		t.Errorf("expected a runtime error, got %v", errs)
	}
}

// newProject lays out files under dir/src and loads the project.
func newProject(t *testing.T, config string, files map[string]string) *Project {
	t.Helper()
	dir := t.TempDir()
	if config != "" {
		if err := os.WriteFile(filepath.Join(dir, "tslua.toml"), []byte(config), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		path := filepath.Join(dir, "src", name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p, err := LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProjectBuild(t *testing.T) {
	p := newProject(t, "[build]\nworkers = 2\n", map[string]string{
		"main.ts":         "print(1 & 1);",
		"util/strings.ts": "export const greeting = \"hi\";",
		"broken.ts":       "var x = 1;",
		"types.d.ts":      "type N = number;",
	})

	res, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(res.Compiled, ",") != filepath.Join("main.ts")+","+filepath.Join("util", "strings.ts") {
		t.Errorf("unexpected compiled files %v", res.Compiled)
	}
	if len(res.Failed) != 1 || res.Failed[0].Path != "broken.ts" || res.OK() {
		t.Fatalf("expected broken.ts to fail, got %+v", res.Failed)
	}

	out := p.Config.OutPath()
	if _, err := os.Stat(filepath.Join(out, "util", "strings.lua")); err != nil {
		t.Errorf("nested output missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "broken.lua")); !os.IsNotExist(err) {
		t.Errorf("failed file must not produce output")
	}
	if _, err := os.Stat(filepath.Join(p.Config.IncludePath(), "RuntimeLib.lua")); err != nil {
		t.Errorf("runtime library not copied: %v", err)
	}

	again, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Compiled) != 0 || len(again.Skipped) != 2 || len(again.Failed) != 1 {
		t.Errorf("second build should reuse the cache, got %+v", again)
	}

	p.Force = true
	forced, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(forced.Compiled) != 2 {
		t.Errorf("forced build should recompile, got %+v", forced)
	}
}

func TestProjectRebuildsChangedFiles(t *testing.T) {
	p := newProject(t, "", map[string]string{
		"a.ts": "const a = 1;",
		"b.ts": "const b = 2;",
	})
	if _, err := p.Build(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p.Config.RootPath(), "b.ts"), []byte("const b = 3;"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Compiled) != 1 || res.Compiled[0] != "b.ts" {
		t.Errorf("expected only b.ts to rebuild, got %+v", res)
	}

	// Deleting an output forces its source to rebuild.
	if err := os.Remove(filepath.Join(p.Config.OutPath(), "a.lua")); err != nil {
		t.Fatal(err)
	}
	res, err = p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Compiled) != 1 || res.Compiled[0] != "a.ts" {
		t.Errorf("expected only a.ts to rebuild, got %+v", res)
	}
}

func TestProjectNoIncludeAndCacheOff(t *testing.T) {
	p := newProject(t, "[build]\nnoInclude = true\ncache = false\nruntime = \"lib\"\n", map[string]string{
		"main.ts": "print(2 | 1);",
	})
	res, err := p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Compiled) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(p.Config.IncludePath()); !os.IsNotExist(err) {
		t.Errorf("noInclude must not write the runtime library")
	}
	if _, err := os.Stat(p.Config.CachePath()); !os.IsNotExist(err) {
		t.Errorf("cache = false must not write a cache")
	}
	data, err := os.ReadFile(filepath.Join(p.Config.OutPath(), "main.lua"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), `local TS = require("lib");`) {
		t.Errorf("configured runtime module not used:\n%s", data)
	}

	res, err = p.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Compiled) != 1 {
		t.Errorf("without a cache every build recompiles, got %+v", res)
	}
}

func TestLoadProjectCompilerConstraint(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tslua.toml"), []byte("[project]\ncompiler = \">= 99\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProject(dir); err == nil || !strings.Contains(err.Error(), "does not satisfy") {
		t.Errorf("expected a version mismatch, got %v", err)
	}
}

func TestBuildCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "a.lua")
	if err := os.WriteFile(out, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, ".tslua", "cache.cbor")

	c := newBuildCache()
	hash := sourceHash([]byte("const a = 1;"), Options{})
	c.record("a.ts", hash, out)
	if err := c.save(path); err != nil {
		t.Fatal(err)
	}

	loaded := loadBuildCache(path)
	if !loaded.fresh("a.ts", hash) {
		t.Error("recorded entry should be fresh")
	}
	if loaded.fresh("a.ts", sourceHash([]byte("const a = 1;"), Options{Header: "x"})) {
		t.Error("changed options must invalidate the entry")
	}
	if loaded.fresh("b.ts", hash) {
		t.Error("unknown file cannot be fresh")
	}

	if err := os.WriteFile(path, []byte("not cbor"), 0o644); err != nil {
		t.Fatal(err)
	}
	if len(loadBuildCache(path).Entries) != 0 {
		t.Error("a corrupt cache should load empty")
	}
}

func TestWatchRebuildsOnChange(t *testing.T) {
	p := newProject(t, "", map[string]string{"main.ts": "const a = 1;"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan *BuildResult, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, WatchOptions{
			Debounce: 20 * time.Millisecond,
			Report:   func(r *BuildResult) { results <- r },
		})
	}()

	select {
	case r := <-results:
		if len(r.Compiled) != 1 {
			t.Fatalf("initial build: %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("initial build did not finish")
	}

	if err := os.WriteFile(filepath.Join(p.Config.RootPath(), "main.ts"), []byte("const a = 2;"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-results:
		if len(r.Compiled) != 1 || r.Compiled[0] != "main.ts" {
			t.Errorf("unexpected rebuild %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after a change")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
