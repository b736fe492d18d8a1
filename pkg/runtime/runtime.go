// Package runtime holds the Lua library that emitted code loads with
// `require` when it needs helpers the target language lacks, and a gopher-lua
// host that can execute emitted chunks.
package runtime

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

//go:embed RuntimeLib.lua
var source []byte

// ModuleName is the default name emitted code passes to `require`.
const ModuleName = "RuntimeLib"

// Source returns the Lua source of the runtime library.
func Source() string {
	return string(source)
}

// WriteTo writes the library into dir as <module>.lua and returns the path.
// An identical existing file is left untouched so its timestamp survives.
func WriteTo(dir, module string) (string, error) {
	if module == "" {
		module = ModuleName
	}
	path := filepath.Join(dir, module+".lua")
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, source) {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating runtime directory: %w", err)
	}
	if err := os.WriteFile(path, source, 0o644); err != nil {
		return "", fmt.Errorf("writing runtime library: %w", err)
	}
	return path, nil
}

// NewState returns a Lua state where `require(module)` loads the runtime
// library and `print` writes to out. The caller closes the state.
func NewState(out io.Writer, module string) *lua.LState {
	if module == "" {
		module = ModuleName
	}
	L := lua.NewState()
	L.PreloadModule(module, func(L *lua.LState) int {
		fn, err := L.LoadString(Source())
		if err != nil {
			L.RaiseError("loading %s: %v", module, err)
			return 0
		}
		L.Push(fn)
		L.Call(0, 1)
		return 1
	})
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, L.GetTop())
		for i := range parts {
			parts[i] = L.Get(i + 1).String()
		}
		fmt.Fprintln(out, strings.Join(parts, "\t"))
		return 0
	}))
	return L
}

// Run executes a chunk in a fresh state and returns the values it returns.
func Run(chunk string, out io.Writer, module string) ([]lua.LValue, error) {
	L := NewState(out, module)
	defer L.Close()

	fn, err := L.LoadString(chunk)
	if err != nil {
		return nil, err
	}
	base := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, err
	}
	var results []lua.LValue
	for i := base + 1; i <= L.GetTop(); i++ {
		results = append(results, L.Get(i))
	}
	return results, nil
}
