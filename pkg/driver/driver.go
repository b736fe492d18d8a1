package driver

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nooga/tslua/pkg/checker"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/lexer"
	"github.com/nooga/tslua/pkg/lower"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/runtime"
	"github.com/nooga/tslua/pkg/source"
	"github.com/tliron/commonlog"
)

// Version is the compiler version checked against a project's
// `compiler` constraint.
const Version = "0.4.0"

const debugDriver = false

func debugPrintf(format string, args ...interface{}) {
	if debugDriver {
		fmt.Printf(format, args...)
	}
}

var log = commonlog.GetLogger("tslua.driver")

// Options controls the compilation of one file.
type Options struct {
	RuntimeModule string // module name emitted code requires, default RuntimeLib
	Header        string // comment placed at the top of every output
}

func (o Options) lowerOptions() lower.Options {
	return lower.Options{RuntimeModule: o.RuntimeModule, Header: o.Header}
}

// compile runs every stage on one source file. Parse and check errors are
// returned together; lowering stops at its first error.
func compile(src *source.SourceFile, opts Options) (string, []errors.TsluaError) {
	l := lexer.NewLexerWithSource(src)
	p := parser.NewParser(l)
	program, parseErrs := p.ParseProgram()
	if len(parseErrs) > 0 {
		return "", parseErrs
	}

	info, typeErrs := checker.Check(program)
	parser.DumpAST(program, "compile")
	if len(typeErrs) > 0 {
		return "", typeErrs
	}

	code, err := lower.Lower(program, info, opts.lowerOptions())
	if err != nil {
		if te, ok := err.(errors.TsluaError); ok {
			return "", []errors.TsluaError{te}
		}
		return "", []errors.TsluaError{&errors.CompileError{
			Position: errors.Position{Source: src},
			Code:     errors.CodeUnexpectedNode,
			Msg:      err.Error(),
		}}
	}
	debugPrintf("// [Driver] %s lowered to %d bytes\n", src.DisplayPath(), len(code))
	return code, nil
}

// CompileString compiles source text to Lua.
func CompileString(sourceCode string, opts Options) (string, []errors.TsluaError) {
	return compile(source.NewEvalSource(sourceCode), opts)
}

// CompileFile reads a file and compiles its content to Lua.
func CompileFile(filename string, opts Options) (string, []errors.TsluaError) {
	sourceBytes, err := os.ReadFile(filename)
	if err != nil {
		readErr := &errors.CompileError{
			Position: errors.Position{Line: 0, Column: 0},
			Code:     errors.CodeUnexpectedNode,
			Msg:      fmt.Sprintf("Failed to read file '%s': %s", filename, err.Error()),
		}
		return "", []errors.TsluaError{readErr}
	}
	return compile(source.FromFile(filename, string(sourceBytes)), opts)
}

// OutputPath returns the default output name for a source file: the .ts
// extension replaced with .lua.
func OutputPath(inputFilename string) string {
	if strings.HasSuffix(inputFilename, ".ts") {
		return strings.TrimSuffix(inputFilename, ".ts") + ".lua"
	}
	return inputFilename + ".lua"
}

// WriteLuaFile compiles a file and writes the output next to it, or to
// outputFilename when given. Diagnostics are written to errOut.
// Returns true if successful, false otherwise.
func WriteLuaFile(inputFilename, outputFilename string, opts Options, errOut io.Writer) bool {
	if outputFilename == "" {
		outputFilename = OutputPath(inputFilename)
	}

	code, errs := CompileFile(inputFilename, opts)
	if len(errs) > 0 {
		errors.DisplayErrors(errOut, errs)
		return false
	}

	if err := os.WriteFile(outputFilename, []byte(code), 0o644); err != nil {
		fmt.Fprintf(errOut, "Error writing Lua file: %s\n", err)
		return false
	}
	log.Infof("wrote %s", outputFilename)
	return true
}

// RunString compiles source text and executes it with gopher-lua. print
// output goes to out.
func RunString(sourceCode string, opts Options, out io.Writer) []errors.TsluaError {
	code, errs := CompileString(sourceCode, opts)
	if len(errs) > 0 {
		return errs
	}
	return runCode(code, opts, out)
}

// RunFile compiles a file and executes it with gopher-lua.
func RunFile(filename string, opts Options, out io.Writer) []errors.TsluaError {
	code, errs := CompileFile(filename, opts)
	if len(errs) > 0 {
		return errs
	}
	return runCode(code, opts, out)
}

func runCode(code string, opts Options, out io.Writer) []errors.TsluaError {
	if _, err := runtime.Run(code, out, opts.RuntimeModule); err != nil {
		return []errors.TsluaError{&errors.RuntimeError{Msg: err.Error(), Cause: err}}
	}
	return nil
}
