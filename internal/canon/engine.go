// Package canon implements the worklist-driven canonicalization pass over
// a Stream IR module: a fixed-point loop that folds operations to existing
// values where possible and otherwise tries each registered rewrite
// pattern for the operation's kind, in the manner of a greedy pattern
// rewrite driver.
package canon

import (
	"context"

	"streamcanon/internal/diagnostic"
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

// FoldFunc computes a pure replacement for op's results using only values
// already present in the IR (no new operations). Returning ok=false means
// the fold doesn't apply to this particular operand shape.
type FoldFunc func(op *streamir.Operation) (replacements []*streamir.Value, ok bool)

// PatternFunc attempts a rewrite of op, using rw to mutate the module. It
// returns true if it matched and applied a change; false leaves op
// untouched so the driver can try the next registered pattern.
type PatternFunc func(op *streamir.Operation, rw *rewrite.Rewriter) bool

// Pattern is PatternFunc's external-facing name: the type a caller outside
// this package implements to extend canonicalization for a Kind it doesn't
// own, via Options.ExternalPatterns.
type Pattern = PatternFunc

var folds = map[streamir.Kind][]FoldFunc{}
var patterns = map[streamir.Kind][]PatternFunc{}

// RegisterFold installs a fold attempted before any pattern for ops of the
// given kind. Multiple folds for the same kind run in registration order
// until one applies.
func RegisterFold(kind streamir.Kind, fn FoldFunc) {
	folds[kind] = append(folds[kind], fn)
}

// RegisterPattern installs a rewrite pattern for ops of the given kind,
// tried after every registered fold has declined to apply.
func RegisterPattern(kind streamir.Kind, fn PatternFunc) {
	patterns[kind] = append(patterns[kind], fn)
}

// defaultIterationCapFactor bounds the driver's total step budget as a
// multiple of the module's initial operation count. 16 was chosen
// generously above the deepest fold/pattern chain any single pattern
// family here produces (the longest is the async.transfer chain collapse,
// which needs at most one step per link) so a real oscillation trips it
// long before a legitimate large module would.
const defaultIterationCapFactor = 16

// Options configures a single RunOnModule invocation. The zero value runs
// with the built-in pattern set only, the default iteration budget, and no
// tracing.
type Options struct {
	// IterationCapFactor overrides defaultIterationCapFactor. Zero means
	// use the default.
	IterationCapFactor int

	// Trace, if non-nil, is called once for every applied DCE, fold, or
	// pattern rewrite, in the manner of Printf: a format string followed
	// by its arguments. Intended for development use; nil is a no-op.
	Trace func(format string, args ...any)

	// ExternalPatterns lets a caller outside this package extend
	// canonicalization for a Kind without registering globally: it is
	// the Go analog of populating a pass's pattern set at construction
	// time rather than at init(). Tried after every built-in pattern for
	// the same kind has declined to apply.
	ExternalPatterns map[streamir.Kind][]Pattern
}

func (o Options) capFactor() int {
	if o.IterationCapFactor > 0 {
		return o.IterationCapFactor
	}
	return defaultIterationCapFactor
}

func (o Options) trace(format string, args ...any) {
	if o.Trace != nil {
		o.Trace(format, args...)
	}
}

// driver tracks the worklist and doubles as the rewrite.Listener that
// re-enqueues operations touched by a fold or pattern.
type driver struct {
	worklist   []*streamir.Operation
	onWorklist map[*streamir.Operation]bool
}

func newDriver() *driver {
	return &driver{onWorklist: map[*streamir.Operation]bool{}}
}

func (d *driver) push(op *streamir.Operation) {
	if op == nil || op.Block() == nil {
		return
	}
	if d.onWorklist[op] {
		return
	}
	d.onWorklist[op] = true
	d.worklist = append(d.worklist, op)
}

func (d *driver) pop() (*streamir.Operation, bool) {
	for len(d.worklist) > 0 {
		n := len(d.worklist) - 1
		op := d.worklist[n]
		d.worklist = d.worklist[:n]
		delete(d.onWorklist, op)
		if op.Block() == nil {
			continue // erased since being enqueued
		}
		return op, true
	}
	return nil, false
}

func (d *driver) OperationInserted(op *streamir.Operation) { d.push(op) }
func (d *driver) OperationModified(op *streamir.Operation) { d.push(op) }
func (d *driver) OperationRemoved(op *streamir.Operation)  { delete(d.onWorklist, op) }

// Run canonicalizes m to a fixed point using the built-in pattern set and
// default options. It is a thin compatibility wrapper around RunOnModule
// for callers that need neither cancellation nor tracing.
func Run(m *streamir.Module) error {
	return RunOnModule(context.Background(), m, Options{})
}

// RunOnModule canonicalizes module to a fixed point: it repeatedly pops an
// operation, tries its registered folds, then its registered patterns
// (built-in first, then opts.ExternalPatterns for the op's kind), and
// continues until nothing in the module can be simplified further. ctx is
// consulted purely as a cancellation signal, checked between worklist
// pops; it carries no values and is never passed to a fold or pattern.
// Once the worklist has quiesced, RunOnModule verifies the result and
// returns a *diagnostic.VerificationError if it fails.
func RunOnModule(ctx context.Context, module *streamir.Module, opts Options) error {
	d := newDriver()
	rw := rewrite.New(d)

	total := 0
	walkModule(module, func(op *streamir.Operation) {
		d.push(op)
		total++
	})

	budget := total*opts.capFactor() + opts.capFactor()
	steps := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		op, ok := d.pop()
		if !ok {
			return verifyQuiescedModule(module)
		}
		steps++
		if steps > budget {
			return &diagnostic.FixedPointError{Iterations: steps}
		}

		if tryDCE(op, rw) {
			opts.trace("canon: erased dead %s", op.Kind())
			continue
		}
		if tryFold(op, rw) {
			opts.trace("canon: folded %s", op.Kind())
			continue
		}
		if tryPattern(op, rw, opts.ExternalPatterns) {
			opts.trace("canon: rewrote %s", op.Kind())
		}
	}
}

// verifyQuiescedModule runs streamir.Verify once the worklist is empty and
// translates any resulting *streamir.VerificationError into the package's
// own diagnostic.VerificationError, so canon's public API surfaces a
// single family of error types regardless of which package actually
// detected the problem.
func verifyQuiescedModule(module *streamir.Module) error {
	err := streamir.Verify(module)
	if err == nil {
		return nil
	}
	verr, ok := err.(*streamir.VerificationError)
	if !ok {
		return err
	}
	return &diagnostic.VerificationError{Op: verr.Op, Message: verr.Message}
}

// tryDCE erases op if it produces at least one result, every result is
// unused, and it has no side effects. Ops with zero results (cmd.* bodies)
// are never considered here: their effect isn't observable through a
// result value at all, so absence of uses says nothing about liveness.
func tryDCE(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	if op.NumResults() == 0 || op.HasSideEffects() {
		return false
	}
	for _, r := range op.Results() {
		if !r.IsUnused() {
			return false
		}
	}
	rw.EraseOp(op)
	return true
}

func tryFold(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	fns := folds[op.Kind()]
	if len(fns) == 0 {
		return false
	}
	for _, fn := range fns {
		replacements, ok := fn(op)
		if !ok {
			continue
		}
		rw.ReplaceOpWithValues(op, replacements)
		return true
	}
	return false
}

func tryPattern(op *streamir.Operation, rw *rewrite.Rewriter, external map[streamir.Kind][]Pattern) bool {
	for _, fn := range patterns[op.Kind()] {
		if op.Block() == nil {
			return true // an earlier pattern in this loop already erased op
		}
		if fn(op, rw) {
			return true
		}
	}
	for _, fn := range external[op.Kind()] {
		if op.Block() == nil {
			return true
		}
		if fn(op, rw) {
			return true
		}
	}
	return false
}

// walkModule visits every operation in the module, including those nested
// in execute/concurrent/serial regions, in postorder (region bodies before
// the op that owns them) so a canonicalization seeded bottom-up sees
// already-simplified regions first.
func walkModule(m *streamir.Module, visit func(*streamir.Operation)) {
	walkRegion(m.Body(), visit)
}

func walkRegion(r *streamir.Region, visit func(*streamir.Operation)) {
	if r == nil {
		return
	}
	for _, b := range r.Blocks() {
		for _, op := range b.Operations() {
			for _, nested := range op.Regions() {
				walkRegion(nested, visit)
			}
			visit(op)
		}
	}
}
