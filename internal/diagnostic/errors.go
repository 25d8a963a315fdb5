package diagnostic

import (
	"fmt"

	"streamcanon/internal/streamir"
)

// FromError renders any error returned by internal/canon or
// internal/streamir as a Diagnostic, so the CLI has one code path from
// "something went wrong" to a printed line regardless of which package
// produced it.
func FromError(err error) Diagnostic {
	return Diagnostic{Severity: Error, Message: fmt.Sprint(err)}
}

// FixedPointError is returned when the canonicalization driver exhausts
// its iteration budget without reaching a state where no fold or pattern
// applies anywhere in the module. A well-behaved pattern set never hits
// this; it exists to catch an oscillating pair of patterns during
// development rather than hang.
type FixedPointError struct {
	Iterations int
}

func (e *FixedPointError) Error() string {
	return fmt.Sprintf("canon: failed to reach a fixed point after %d iterations", e.Iterations)
}

// VerificationError reports a single structural or dominance violation
// found in the module canonicalization produced. RunOnModule returns one
// of these, translated from the streamir package's own verification
// error, if the module fails streamir.Verify once the worklist has
// quiesced.
type VerificationError struct {
	Op      *streamir.Operation
	Message string
}

func (e *VerificationError) Error() string {
	if e.Op == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op.Loc(), e.Message, e.Op.Kind())
}
