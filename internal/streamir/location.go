// Package streamir implements the operation model for the Stream dataflow
// IR: SSA operations, values, blocks, regions, types and the tied-operand /
// size-aware bookkeeping the canonicalizer relies on.
package streamir

import "fmt"

// Location identifies where an operation originated. The canonicalizer never
// parses or prints source syntax; a Location only ever exists to be quoted
// back in a diagnostic.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Fused combines two locations into one, matching how the original dialect
// tags a rewrite-created op with both the op it came from and the op it was
// fused into.
func Fused(a, b Location) Location {
	if a.File == "" {
		return b
	}
	return a
}
