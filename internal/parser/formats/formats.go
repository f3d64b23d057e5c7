// Package formats holds the built-in report parsers.
package formats

import (
	"strconv"
	"strings"

	"github.com/xkilldash9x/issuetrail/internal/parser"
)

// Tool identifiers of the built-in parsers.
const (
	ToolJava       = "java"
	ToolGcc        = "gcc"
	ToolResharper  = "resharperInspectCode"
	ToolCheckstyle = "checkstyle"
	ToolSarif      = "sarif"
	ToolSemgrep    = "semgrep"
	ToolCpd        = "cpd"
	ToolFindBugs   = "findbugs"
)

// Builtins returns the descriptors of all built-in tools.
func Builtins() []parser.Tool {
	return []parser.Tool{
		{ID: ToolJava, DisplayName: "Java Compiler", Parse: ParseJava},
		{ID: ToolGcc, DisplayName: "GNU C Compiler", Parse: ParseGcc},
		{ID: ToolResharper, DisplayName: "Resharper Inspections", Parse: ParseResharper},
		{ID: ToolCheckstyle, DisplayName: "CheckStyle", Parse: ParseCheckstyle},
		{ID: ToolSarif, DisplayName: "SARIF", Parse: ParseSarif},
		{ID: ToolSemgrep, DisplayName: "Semgrep", Parse: ParseSemgrep},
		{ID: ToolCpd, DisplayName: "CPD", Parse: ParseCpd},
		{ID: ToolFindBugs, DisplayName: "FindBugs", Parse: ParseFindBugs},
	}
}

// DefaultRegistry returns a registry populated with every built-in tool.
func DefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()
	r.MustRegister(Builtins()...)
	return r
}

// atoi parses a non-negative number, treating anything malformed as unknown (0).
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// splitLines splits text reports on any line ending.
func splitLines(content []byte) []string {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.Split(text, "\n")
}
