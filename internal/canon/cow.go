package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

// cowKinds lists every op kind that ties a result to a resource operand and
// so can force a private clone of that operand.
var cowKinds = []streamir.Kind{
	streamir.KindAsyncFill,
	streamir.KindAsyncUpdate,
	streamir.KindAsyncCopy,
	streamir.KindAsyncStore,
	streamir.KindAsyncDispatch,
	streamir.KindAsyncExecute,
	streamir.KindAsyncConcurrent,
	streamir.KindTimepointAwait,
}

// Copy-on-write materialization: a tied operand may only be mutated in
// place when the pass can prove nothing else observes the buffer's prior
// contents. This registers the rule against every op kind that ties a
// result to a resource operand.
func init() {
	for _, k := range cowKinds {
		RegisterPattern(k, cowMaterialize)
	}
}

func isCowManagedKind(k streamir.Kind) bool {
	for _, managed := range cowKinds {
		if managed == k {
			return true
		}
	}
	return false
}

// needsPrivateClone implements spec §4's exact rule: a Constant-lifetime
// resource is always cloned before a tied write, since it must never
// change; otherwise a clone is required only once the source has more than
// one tied consumer, or has at least one tied consumer alongside at least
// one untied (read-only) consumer that must keep observing the original
// contents.
func needsPrivateClone(source *streamir.Value) bool {
	rt, ok := source.Type().(*streamir.ResourceType)
	if !ok {
		return false
	}
	if rt.Lifetime == streamir.Constant {
		return true
	}
	tied, untied := 0, 0
	for _, u := range source.Uses() {
		if u.Owner.OperandIsTied(u.OperandIndex) {
			tied++
		} else {
			untied++
		}
	}
	return tied > 1 || (tied >= 1 && untied >= 1)
}

// tiedSizeOperand returns the byte-size value paired with the tied operand
// at tiedIdx for op's result resultIndex, needed to construct the
// replacement async.clone.
func tiedSizeOperand(op *streamir.Operation, resultIndex int) *streamir.Value {
	switch d := op.Data().(type) {
	case *streamir.AsyncFillData:
		return d.TargetSize
	case *streamir.AsyncUpdateData:
		return d.TargetSize
	case *streamir.AsyncCopyData:
		return d.TargetSize
	case *streamir.AsyncStoreData:
		return d.TargetSize
	case *streamir.AsyncDispatchData:
		if opIdx, ok := d.Tied[resultIndex]; ok && opIdx < len(d.Sizes) {
			return d.Sizes[opIdx]
		}
	case *streamir.AsyncExecuteData:
		if resultIndex < len(d.CaptureSizes) {
			return d.CaptureSizes[resultIndex]
		}
	case *streamir.AsyncConcurrentData:
		if resultIndex < len(d.CaptureSizes) {
			return d.CaptureSizes[resultIndex]
		}
	case *streamir.TimepointAwaitData:
		if resultIndex < len(d.ResourceSizes) {
			return d.ResourceSizes[resultIndex]
		}
	}
	return nil
}

// tiedResultIndex inverts TiedOperand: it finds which of op's results, if
// any, is tied to operand slot operandIndex.
func tiedResultIndex(op *streamir.Operation, operandIndex int) (int, bool) {
	for ri := range op.Results() {
		if t, ok := op.TiedOperand(ri); ok && t == operandIndex {
			return ri, true
		}
	}
	return 0, false
}

// materializeTiedConsumers clones source once for every one of its tied
// uses, in a single pass over a snapshot of source.Uses(). Cloning one
// consumer at a time and re-reading source.Uses() afterward (as a
// per-invocation count of "tied" and "untied" uses) is unsound: rewriting
// the first consumer's operand away from source changes what the next
// consumer would see, so a second tied consumer visited later can look
// like source's only tied use and wrongly keep aliasing it directly. Taking
// the snapshot up front means every consumer that was tied to source when
// this rule fired gets its own private clone, matching the original
// template's per-source atomicity.
func materializeTiedConsumers(source *streamir.Value, rw *rewrite.Rewriter) bool {
	uses := append([]*streamir.Use(nil), source.Uses()...)
	changed := false
	for _, u := range uses {
		owner := u.Owner
		if !isCowManagedKind(owner.Kind()) || !owner.OperandIsTied(u.OperandIndex) {
			continue
		}
		if owner.Operand(u.OperandIndex) != source {
			continue
		}
		ri, ok := tiedResultIndex(owner, u.OperandIndex)
		if !ok {
			continue
		}
		size := tiedSizeOperand(owner, ri)
		if size == nil {
			continue
		}
		rw.SetInsertionPointBefore(owner)
		clone := rw.Builder().AsyncClone(owner.Loc(), source, size)
		rw.NotifyOpInserted(clone.DefiningOp())
		idx := u.OperandIndex
		rw.UpdateRootInPlace(owner, func() {
			owner.SetOperand(idx, clone)
		})
		changed = true
	}
	return changed
}

func cowMaterialize(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	changed := false
	for ri := range op.Results() {
		tiedIdx, ok := op.TiedOperand(ri)
		if !ok {
			continue
		}
		source := op.Operand(tiedIdx)
		if source == nil || !needsPrivateClone(source) {
			continue
		}
		if materializeTiedConsumers(source, rw) {
			changed = true
		}
	}
	return changed
}
