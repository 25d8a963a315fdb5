// Package rewrite provides the transactional operation-mutation API the
// canonicalization engine's patterns are written against: every structural
// change to a module goes through a Rewriter so a Listener can track which
// operations need to be reconsidered, mirroring how a worklist-driven
// pattern engine stays sound without re-scanning the whole module after
// every rewrite.
package rewrite

import "streamcanon/internal/streamir"

// Listener is notified of every structural change a Rewriter makes. The
// canonicalization driver implements this to re-enqueue affected
// operations onto its worklist.
type Listener interface {
	OperationInserted(op *streamir.Operation)
	OperationModified(op *streamir.Operation)
	OperationRemoved(op *streamir.Operation)
}

// NoopListener implements Listener with no-op methods, for callers (such as
// tests) that only need one-shot rewrites outside a worklist.
type NoopListener struct{}

func (NoopListener) OperationInserted(*streamir.Operation) {}
func (NoopListener) OperationModified(*streamir.Operation) {}
func (NoopListener) OperationRemoved(*streamir.Operation)  {}

// rootUpdate snapshots an operation's mutable state so CancelRootUpdate can
// restore it if a pattern discovers partway through that its match doesn't
// actually apply.
type rootUpdate struct {
	op    *streamir.Operation
	data  streamir.OpData
	attrs map[string]streamir.Attribute
}

// Rewriter is the sole sanctioned way for a canonicalization pattern to
// mutate a module. It wraps the raw streamir mutation primitives with
// Listener notifications and a transactional update helper.
type Rewriter struct {
	listener Listener
	builder  *streamir.Builder

	active map[*streamir.Operation]*rootUpdate

	failureReason string
}

// New returns a Rewriter that reports structural changes to listener. Pass
// rewrite.NoopListener{} when no worklist is tracking the rewrite.
func New(listener Listener) *Rewriter {
	if listener == nil {
		listener = NoopListener{}
	}
	return &Rewriter{listener: listener, active: map[*streamir.Operation]*rootUpdate{}}
}

// Builder returns the rewriter's insertion-point builder. Patterns use it
// to construct replacement operations; SetInsertionPoint* below repositions
// it.
func (r *Rewriter) Builder() *streamir.Builder {
	if r.builder == nil {
		panic("rewrite: insertion point not set, call SetInsertionPoint* first")
	}
	return r.builder
}

func (r *Rewriter) SetInsertionPointAfter(op *streamir.Operation) {
	b := streamir.NewBuilder(op.Block())
	b.Before(op)
	// Before() positions immediately *before* op; advance one past it.
	nextIdx := op.Block().IndexOf(op) + 1
	ops := op.Block().Operations()
	if nextIdx < len(ops) {
		b.Before(ops[nextIdx])
	} else {
		b.AtEnd(op.Block())
	}
	r.builder = b
}

func (r *Rewriter) SetInsertionPointBefore(op *streamir.Operation) {
	b := streamir.NewBuilder(op.Block())
	b.Before(op)
	r.builder = b
}

func (r *Rewriter) SetInsertionPointToStart(b *streamir.Block) {
	bld := streamir.NewBuilder(b)
	ops := b.Operations()
	if len(ops) > 0 {
		bld.Before(ops[0])
	}
	r.builder = bld
}

func (r *Rewriter) SetInsertionPointToEnd(b *streamir.Block) {
	bld := streamir.NewBuilder(b)
	bld.AtEnd(b)
	r.builder = bld
}

// ReplaceOpWithValues redirects every use of op's results to replacements
// (positionally) and erases op, notifying the listener of each redirected
// user. len(replacements) must equal op's result count.
func (r *Rewriter) ReplaceOpWithValues(op *streamir.Operation, replacements []*streamir.Value) {
	var users []*streamir.Operation
	for i, res := range op.Results() {
		for _, u := range res.Uses() {
			users = append(users, u.Owner)
		}
		streamir.ReplaceAllUsesWith(res, replacements[i])
	}
	r.EraseOp(op)
	for _, u := range users {
		r.listener.OperationModified(u)
	}
}

// ReplaceOpWithValue is ReplaceOpWithValues for the common single-result
// case.
func (r *Rewriter) ReplaceOpWithValue(op *streamir.Operation, v *streamir.Value) {
	r.ReplaceOpWithValues(op, []*streamir.Value{v})
}

// EraseOp removes op from its block, notifying the listener so its operands
// (now possibly dead) get reconsidered.
func (r *Rewriter) EraseOp(op *streamir.Operation) {
	operands := op.Operands()
	streamir.EraseOp(op)
	r.listener.OperationRemoved(op)
	for _, v := range operands {
		if v != nil && v.DefiningOp() != nil {
			r.listener.OperationModified(v.DefiningOp())
		}
	}
}

// NotifyOpInserted must be called by patterns after using r.Builder() to
// construct a replacement op, so the listener enqueues it for its own
// fold/pattern pass.
func (r *Rewriter) NotifyOpInserted(op *streamir.Operation) {
	r.listener.OperationInserted(op)
}

// StartRootUpdate snapshots op before a pattern begins mutating its
// operands/attributes in place, so the change can be rolled back with
// CancelRootUpdate if the pattern later determines it doesn't apply.
func (r *Rewriter) StartRootUpdate(op *streamir.Operation) {
	attrsCopy := make(map[string]streamir.Attribute, len(op.Attrs()))
	for k, v := range op.Attrs() {
		attrsCopy[k] = v
	}
	upd := &rootUpdate{op: op, data: op.Data().Clone(), attrs: attrsCopy}
	r.active[op] = upd
}

// FinalizeRootUpdate commits the in-place mutation and notifies the
// listener.
func (r *Rewriter) FinalizeRootUpdate(op *streamir.Operation) {
	delete(r.active, op)
	r.listener.OperationModified(op)
}

// CancelRootUpdate restores op's operands to what they were at the matching
// StartRootUpdate call. Attributes changed since then are not restored.
func (r *Rewriter) CancelRootUpdate(op *streamir.Operation) {
	upd, ok := r.active[op]
	if !ok {
		return
	}
	// Restore operand-by-operand through SetOperand rather than swapping the
	// payload wholesale, so use lists stay consistent with the restored
	// state instead of pointing at whatever the pattern changed them to.
	snapshot := upd.data.Operands()
	for i, v := range snapshot {
		op.SetOperand(i, v)
	}
	delete(r.active, op)
}

// UpdateRootInPlace is the common Start/mutate/Finalize sequence expressed
// as a single call: fn is expected to call op.SetOperand or similar.
func (r *Rewriter) UpdateRootInPlace(op *streamir.Operation, fn func()) {
	r.StartRootUpdate(op)
	fn()
	r.FinalizeRootUpdate(op)
}

// NotifyMatchFailure records why a pattern declined to match, readable
// through LastFailureReason. It never affects control flow;
// patterns still just return false from Match.
func (r *Rewriter) NotifyMatchFailure(op *streamir.Operation, reason string) {
	r.failureReason = reason
}

// LastFailureReason returns the most recent NotifyMatchFailure reason, for
// tests asserting a pattern rejected a particular shape for the right
// reason.
func (r *Rewriter) LastFailureReason() string { return r.failureReason }
