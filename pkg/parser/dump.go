package parser

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// DumpASTEnabled turns on DumpAST output. The CLI sets it from -ast.
var DumpASTEnabled = false

// DumpOutput is where DumpAST writes.
var DumpOutput io.Writer = os.Stderr

// DumpAST prints the program, annotated with computed types when the
// checker has run, if dumping is enabled.
func DumpAST(program *Program, label string) {
	if !DumpASTEnabled || program == nil {
		return
	}
	name := "<input>"
	if program.Source != nil {
		name = program.Source.DisplayPath()
	}
	fmt.Fprintf(DumpOutput, "=== AST (%s: %s) ===\n", label, name)
	for _, stmt := range program.Statements {
		fmt.Fprintf(DumpOutput, "%s\n", strings.TrimRight(stmt.String(), "\n"))
	}
	fmt.Fprintln(DumpOutput, "=== end AST ===")
}
