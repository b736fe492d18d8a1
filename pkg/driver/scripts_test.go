package driver

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

const scriptsDebug = false

// Expectation represents the expected outcome of a script.
type Expectation struct {
	ResultType string   // "output", "runtime_error", "compile_error"
	Lines      []string // expected output lines, or one error substring
}

var expectRegex = regexp.MustCompile(`^//\s*(expect(?:_runtime_error|_compile_error)?):\s?(.*)`)

// parseExpectation extracts the expectation from the script's comments.
// Looks for lines like:
//
//	// expect: printed line
//	// expect_runtime_error: message
//	// expect_compile_error: message
//
// Several `expect:` lines give the printed output line by line.
func parseExpectation(scriptContent string) (*Expectation, error) {
	scanner := bufio.NewScanner(strings.NewReader(scriptContent))
	var exp *Expectation

	for scanner.Scan() {
		matches := expectRegex.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if len(matches) != 3 {
			continue
		}
		resultType := ""
		switch matches[1] {
		case "expect":
			resultType = "output"
		case "expect_runtime_error":
			resultType = "runtime_error"
		case "expect_compile_error":
			resultType = "compile_error"
		}
		if exp == nil {
			exp = &Expectation{ResultType: resultType}
		} else if exp.ResultType != resultType || resultType != "output" {
			return nil, fmt.Errorf("conflicting expectations %s and %s", exp.ResultType, resultType)
		}
		exp.Lines = append(exp.Lines, strings.TrimRight(matches[2], " "))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading script content: %w", err)
	}
	if exp == nil {
		return nil, fmt.Errorf("no expectation comment found (e.g., // expect: value)")
	}
	return exp, nil
}

func TestScripts(t *testing.T) {
	scriptDir := filepath.Join("testdata", "scripts")
	files, err := os.ReadDir(scriptDir)
	if err != nil {
		t.Fatalf("Failed to read script directory %q: %v", scriptDir, err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".ts") || file.IsDir() {
			continue
		}

		scriptPath := filepath.Join(scriptDir, file.Name())
		t.Run(file.Name(), func(t *testing.T) {
			scriptContentBytes, err := os.ReadFile(scriptPath)
			if err != nil {
				t.Fatalf("Failed to read script file %q: %v", scriptPath, err)
			}
			expectation, err := parseExpectation(string(scriptContentBytes))
			if err != nil {
				t.Fatalf("Failed to parse expectation in %q: %v", scriptPath, err)
			}

			code, compileErrs := CompileFile(scriptPath, Options{})
			if len(compileErrs) > 0 {
				var allErrors strings.Builder
				found := false
				for _, cerr := range compileErrs {
					allErrors.WriteString(cerr.Error() + "\n")
					if strings.Contains(cerr.Error(), expectation.Lines[0]) {
						found = true
					}
				}
				switch {
				case expectation.ResultType != "compile_error":
					t.Fatalf("Unexpected compile errors:\n%s", allErrors.String())
				case !found:
					t.Errorf("Expected compile error containing %q, but got errors:\n%s", expectation.Lines[0], allErrors.String())
				}
				return
			}
			if expectation.ResultType == "compile_error" {
				t.Fatalf("Expected compile error containing %q, but compilation succeeded:\n%s", expectation.Lines[0], code)
			}
			if scriptsDebug {
				t.Logf("--- Lua [%s] ---\n%s-------------------------\n", file.Name(), code)
			}

			var out bytes.Buffer
			runtimeErrs := runCode(code, Options{}, &out)

			switch expectation.ResultType {
			case "output":
				if len(runtimeErrs) > 0 {
					t.Fatalf("Expected output, but got runtime error: %v\n%s", runtimeErrs[0], code)
				}
				actual := strings.TrimRight(out.String(), "\n")
				expected := strings.Join(expectation.Lines, "\n")
				if actual != expected {
					t.Errorf("Expected output:\n%s\nbut got:\n%s\nLua:\n%s", expected, actual, code)
				}
			case "runtime_error":
				if len(runtimeErrs) == 0 {
					t.Fatalf("Expected runtime error containing %q, but the script ran to completion", expectation.Lines[0])
				}
				if !strings.Contains(runtimeErrs[0].Error(), expectation.Lines[0]) {
					t.Errorf("Expected runtime error containing %q, got %v", expectation.Lines[0], runtimeErrs[0])
				}
			}
		})
	}
}

func TestParseExpectation(t *testing.T) {
	exp, err := parseExpectation("// expect: a\nprint(1);\n// expect: b c\n")
	if err != nil {
		t.Fatal(err)
	}
	if exp.ResultType != "output" || len(exp.Lines) != 2 || exp.Lines[1] != "b c" {
		t.Errorf("unexpected expectation %+v", exp)
	}
	if _, err := parseExpectation("// expect: a\n// expect_compile_error: b\n"); err == nil {
		t.Error("mixed expectations should be rejected")
	}
	if _, err := parseExpectation("print(1);"); err == nil {
		t.Error("a script without expectations should be rejected")
	}
}
