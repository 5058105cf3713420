package errors

// Position represents a location in script input.
// Line and Column are 1-based for humans; StartPos and EndPos are 0-based
// byte offsets of the span, EndPos exclusive.
type Position struct {
	Line     int
	Column   int
	StartPos int
	EndPos   int
	File     string // display name, e.g. "<repl>" or a script path
}

// IsValid reports whether the position points at a real line.
func (p Position) IsValid() bool { return p.Line > 0 }
