package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[project]\nname = \"demo\"\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.Project.Name != "demo" {
		t.Errorf("expected name demo, got %q", c.Project.Name)
	}
	if c.RootPath() != filepath.Join(c.Dir, "src") || c.OutPath() != filepath.Join(c.Dir, "out") {
		t.Errorf("unexpected default paths %s %s", c.RootPath(), c.OutPath())
	}
	if c.Build.Runtime != "RuntimeLib" || !c.CacheEnabled() {
		t.Errorf("unexpected defaults %+v", c.Build)
	}
}

func TestLoadBuildSection(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[build]
rootDir = "ts"
outDir = "/tmp/lua"
workers = 3
cache = false
noInclude = true
header = "generated"
`)
	c, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if c.RootPath() != filepath.Join(c.Dir, "ts") {
		t.Errorf("unexpected root %s", c.RootPath())
	}
	if c.OutPath() != "/tmp/lua" {
		t.Errorf("absolute outDir should be kept, got %s", c.OutPath())
	}
	if c.Build.Workers != 3 || c.CacheEnabled() || !c.Build.NoInclude || c.Build.Header != "generated" {
		t.Errorf("unexpected build section %+v", c.Build)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"[build\n", "parse error"},
		{"[build]\nworkers = -1\n", "must not be negative"},
		{"[build]\nrootdir = \"x\"\n", "unknown key"},
	}
	for _, tt := range tests {
		_, err := Parse(t.TempDir(), []byte(tt.input))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: expected error containing %q, got %v", tt.input, tt.want, err)
		}
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[project]\nname = \"up\"\n")
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Project.Name != "up" {
		t.Fatalf("expected to find the parent configuration, got %+v", c)
	}
	abs, _ := filepath.Abs(root)
	if c.Dir != abs {
		t.Errorf("expected Dir %s, got %s", abs, c.Dir)
	}
}

func TestCheckCompiler(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		ok         bool
	}{
		{"", "0.1.0", true},
		{">= 0.3", "0.3.1", true},
		{"^1.0", "0.9.0", false},
		{"~0.3.0", "0.4.0", false},
		{"not a constraint", "0.1.0", false},
	}
	for _, tt := range tests {
		c := &Config{Project: Project{Compiler: tt.constraint}}
		err := c.CheckCompiler(tt.version)
		if (err == nil) != tt.ok {
			t.Errorf("%q against %s: expected ok=%v, got %v", tt.constraint, tt.version, tt.ok, err)
		}
	}
}
