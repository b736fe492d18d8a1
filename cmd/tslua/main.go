package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/nooga/tslua/pkg/driver"
	"github.com/nooga/tslua/pkg/errors"
	"github.com/nooga/tslua/pkg/parser"
	"github.com/nooga/tslua/pkg/runtime"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	// Define flags
	exprFlag := flag.String("e", "", "Compile the given source and print the Lua output")
	projectFlag := flag.String("p", "", "Build the project in the given directory (reads tslua.toml)")
	watchFlag := flag.Bool("w", false, "Rebuild the project whenever a source file changes")
	outputFlag := flag.String("o", "", "Output file for a single input, or output directory for a project")
	includeFlag := flag.String("i", "", "Directory the runtime library is copied to (overrides build.includeDir)")
	noIncludeFlag := flag.Bool("noInclude", false, "Do not copy the runtime library")
	onSuccessFlag := flag.String("onSuccess", "", "Shell command to run after every successful watch rebuild")
	runFlag := flag.Bool("run", false, "Execute the compiled input instead of writing it")
	forceFlag := flag.Bool("force", false, "Ignore the build cache")
	astDumpFlag := flag.Bool("ast", false, "Show AST dump after type checking")
	verboseFlag := flag.Bool("v", false, "Verbose logging")
	versionFlag := flag.Bool("version", false, "Print the compiler version and exit")

	flag.Parse() // Parses the command-line flags

	verbosity := 0
	if *verboseFlag {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	// Set global AST dump flag
	parser.DumpASTEnabled = *astDumpFlag

	if *versionFlag {
		fmt.Println("tslua", driver.Version)
		return
	}

	if *exprFlag != "" {
		compileExpression(*exprFlag, *runFlag)
		return
	}

	if *projectFlag != "" || *watchFlag {
		dir := *projectFlag
		if dir == "" {
			dir = "."
		}
		buildProject(dir, projectOverrides{
			outDir:     *outputFlag,
			includeDir: *includeFlag,
			noInclude:  *noIncludeFlag,
			force:      *forceFlag,
		}, *watchFlag, *onSuccessFlag)
		return
	}

	if flag.NArg() > 1 {
		usage()
	} else if flag.NArg() == 1 {
		compileFile(flag.Arg(0), *outputFlag, *runFlag, *includeFlag, *noIncludeFlag)
	} else {
		// No file provided, start the REPL
		runRepl()
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: tslua [options] <input.ts> | tslua -p <dir> [-w] | tslua -e \"source\"\n")
	flag.PrintDefaults()
	os.Exit(64) // Exit code 64: command line usage error
}

// compileExpression prints the Lua for source given on the command line,
// or runs it.
func compileExpression(src string, run bool) {
	if run {
		if errs := driver.RunString(src, driver.Options{}, os.Stdout); len(errs) > 0 {
			errors.DisplayErrors(os.Stderr, errs)
			os.Exit(70) // Exit code 70: internal software error
		}
		return
	}
	code, errs := driver.CompileString(src, driver.Options{})
	if len(errs) > 0 {
		errors.DisplayErrors(os.Stderr, errs)
		os.Exit(70)
	}
	fmt.Print(code)
}

// compileFile writes the Lua for one file, next to it unless output is
// given, and copies the runtime library next to the output.
func compileFile(input, output string, run bool, includeDir string, noInclude bool) {
	if run {
		if errs := driver.RunFile(input, driver.Options{}, os.Stdout); len(errs) > 0 {
			errors.DisplayErrors(os.Stderr, errs)
			os.Exit(70)
		}
		return
	}
	if output == "" {
		output = driver.OutputPath(input)
	}
	if !driver.WriteLuaFile(input, output, driver.Options{}, os.Stderr) {
		os.Exit(70)
	}
	if noInclude {
		return
	}
	if includeDir == "" {
		includeDir = filepath.Dir(output)
	}
	if _, err := runtime.WriteTo(includeDir, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(70)
	}
}

type projectOverrides struct {
	outDir     string
	includeDir string
	noInclude  bool
	force      bool
}

func buildProject(dir string, over projectOverrides, watch bool, onSuccess string) {
	p, err := driver.LoadProject(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(70)
	}
	if over.outDir != "" {
		p.Config.Build.OutDir = over.outDir
	}
	if over.includeDir != "" {
		p.Config.Build.IncludeDir = over.includeDir
	}
	if over.noInclude {
		p.Config.Build.NoInclude = true
	}
	p.Force = over.force

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if watch {
		err := driver.Watch(ctx, p, driver.WatchOptions{
			OnSuccess: onSuccess,
			Report:    reportBuild,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(70)
		}
		return
	}

	res, err := p.Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(70)
	}
	reportBuild(res)
	if !res.OK() {
		os.Exit(70)
	}
}

func reportBuild(res *driver.BuildResult) {
	for _, f := range res.Failed {
		errors.DisplayErrors(os.Stderr, f.Errors)
	}
	fmt.Printf("%d compiled, %d up to date, %d failed\n", len(res.Compiled), len(res.Skipped), len(res.Failed))
}

// runRepl starts the Read-Eval-Print Loop. Every line is compiled together
// with the lines accepted before it and run in a fresh Lua state; only the
// output of the new line is shown.
func runRepl() {
	reader := bufio.NewReader(os.Stdin)
	var history []string
	var printed int

	fmt.Printf("tslua %s (Ctrl+D to exit, .lua to show the last output)\n", driver.Version)
	lastCode := ""
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				break // Exit loop on EOF (Ctrl+D)
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".lua" {
			fmt.Print(lastCode)
			continue
		}

		src := strings.Join(append(history, line), "\n")
		code, errs := driver.CompileString(src, driver.Options{})
		if len(errs) > 0 {
			errors.DisplayErrors(os.Stderr, errs)
			continue
		}
		var out strings.Builder
		if _, err := runtime.Run(code, &out, ""); err != nil {
			fmt.Fprintf(os.Stderr, "Runtime Error: %s\n", err)
			continue
		}
		history = append(history, line)
		lastCode = code
		text := out.String()
		if printed <= len(text) {
			fmt.Print(text[printed:])
		}
		printed = len(text)
	}
}
