package compiler

import (
	"fmt"

	"gbbasic/pkg/loc"
)

// Diagnostic is one compiler message anchored at a source location.
type Diagnostic struct {
	Message  string
	Warning  bool
	Location loc.TextLocation
}

func (d Diagnostic) Error() string {
	kind := "error"
	if d.Warning {
		kind = "warning"
	}
	if d.Location.Invalid() {
		return fmt.Sprintf("%s: %s", kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Location, kind, d.Message)
}

// SyntaxError is reported by the lexer and the parser. Snippet is the
// offending source line.
type SyntaxError struct {
	At      loc.TextLocation
	Msg     string
	Snippet string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s\n  |> %s", e.At.Row+1, e.Msg, e.Snippet)
}
