package dsl

import "fmt"

// SyntaxError reports malformed waveform text. Positions are 1-based.
// Parsing is the only producer of SyntaxError; it never escapes from any
// later compilation stage, so callers can always recover by re-prompting
// for input.
type SyntaxError struct {
	Line     int
	Col      int
	Expected string
	Got      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("dsl: syntax error at line %d, column %d: expected %s, got %s",
		e.Line, e.Col, e.Expected, e.Got)
}
