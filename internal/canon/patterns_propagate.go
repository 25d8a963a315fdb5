package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterPattern(streamir.KindAsyncSplat, sinkSplatToConsumers)

	RegisterFold(streamir.KindAsyncClone, foldAsyncCloneUnneeded)
	RegisterPattern(streamir.KindAsyncClone, propagateCloneOfSlice)
	RegisterPattern(streamir.KindAsyncClone, propagateCloneOfClonableProducer)

	RegisterFold(streamir.KindAsyncSlice, foldSliceIdentity)
	RegisterPattern(streamir.KindAsyncSlice, propagateSliceOfClone)
	RegisterPattern(streamir.KindAsyncSlice, propagateSliceOfSplat)

	RegisterPattern(streamir.KindAsyncFill, fillFullRangeToSplat)

	RegisterFold(streamir.KindAsyncUpdate, foldUpdateFullReplace)
	RegisterPattern(streamir.KindAsyncUpdate, propagateUpdateFromSplat)
	RegisterPattern(streamir.KindAsyncUpdate, propagateUpdateFromSlice)

	RegisterPattern(streamir.KindAsyncCopy, propagateCopyFullSourceToUpdate)
}

// sinkSplatToConsumers moves a splat as close as possible to the point it's
// actually needed (spec's SinkSplatsToConsumers), so a later pass fusing it
// with a consumer doesn't have to look back across unrelated ops. When every
// use lives in the splat's own block, that's simply the earliest use; a
// splat whose uses span several blocks only moves if its own block is the
// nearest common dominator of every use (uses nested inside a captured
// region already observe it via the capture, with nothing to move).
func sinkSplatToConsumers(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	res := op.Result(0)
	if res.IsUnused() {
		return false
	}
	block := op.Block()
	var ncd *streamir.Block
	for _, u := range res.Uses() {
		ub := u.Owner.Block()
		if ncd == nil {
			ncd = ub
			continue
		}
		ncd = streamir.NearestCommonDominatorBlock(ncd, ub)
	}
	if ncd != block {
		return false
	}
	target := earliestUser(block, res.Uses())
	if target == nil {
		return false
	}
	return SinkOp(op, target, rw)
}

// foldAsyncCloneUnneeded is async.clone's counterpart to
// elideUnneededTensorClone: if neither the clone's result nor its source
// ever feeds a tied operand, the clone has nothing to protect.
func foldAsyncCloneUnneeded(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.AsyncCloneData)
	if hasTiedUse(op.Result(0)) || hasTiedUse(data.Source) {
		return nil, false
	}
	return []*streamir.Value{data.Source}, true
}

// propagateCloneOfSlice replaces clone(slice(x)) with a fresh slice(x) at
// the clone's own site: a slice already produces an independent resource,
// so cloning it again only keeps the intermediate slice result alive for no
// reason. This direction only: folding a slice back into a clone would
// undo it (spec §9's anti-oscillation discipline).
func propagateCloneOfSlice(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncCloneData)
	def := data.Source.DefiningOp()
	if def == nil || def.Kind() != streamir.KindAsyncSlice {
		return false
	}
	sliceData := def.Data().(*streamir.AsyncSliceData)
	rw.SetInsertionPointBefore(op)
	replacement := rw.Builder().AsyncSlice(op.Loc(), sliceData.Source, sliceData.SourceSize, sliceData.Offset, sliceData.Length)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}

// propagateCloneOfClonableProducer implements the "clonable producer"
// propagation: when the clone's source is cheap and reproducible (splat,
// constant-like producers reporting PreferCloneToConsumers), it's cheaper
// to reproduce the source op once per consumer of the clone than to keep a
// single upstream clone's result alive as a shared value. Each user gets
// its own fresh copy of the producer; the original clone is then dead.
func propagateCloneOfClonableProducer(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncCloneData)
	def := data.Source.DefiningOp()
	if def == nil || !def.PrefersCloneToConsumers() {
		return false
	}
	res := op.Result(0)
	if res.IsUnused() {
		return false
	}
	uses := append([]*streamir.Use(nil), res.Uses()...)
	for _, u := range uses {
		rw.SetInsertionPointBefore(u.Owner)
		reproduced := streamir.CloneOp(rw.Builder(), def)
		rw.NotifyOpInserted(reproduced)
		owner, idx, result := u.Owner, u.OperandIndex, reproduced.Result(0)
		rw.UpdateRootInPlace(owner, func() {
			owner.SetOperand(idx, result)
		})
	}
	if res.IsUnused() {
		rw.EraseOp(op)
	}
	return true
}

// foldSliceIdentity drops a slice that spans its entire, statically known
// source: slice(x, 0, size(x)) with a matching result size is just x. Spec
// notes this breaks COW (a consumer that ties the slice result now ties x
// directly); cowMaterialize's usual tied/untied analysis handles that once
// this fold exposes the shared value.
func foldSliceIdentity(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.AsyncSliceData)
	offset, ok := streamir.AsConstIndex(data.Offset)
	if !ok || offset != 0 {
		return nil, false
	}
	full := sizeOfValue(data.Source)
	if full == nil || full != data.Length {
		return nil, false
	}
	return []*streamir.Value{data.Source}, true
}

// propagateSliceOfClone replaces slice(clone(x)) with slice(x): the clone's
// only purpose was independence, which the slice already provides on its
// own, so there's no reason to keep the intermediate clone's result live.
func propagateSliceOfClone(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncSliceData)
	def := data.Source.DefiningOp()
	if def == nil || def.Kind() != streamir.KindAsyncClone {
		return false
	}
	cloneData := def.Data().(*streamir.AsyncCloneData)
	rw.SetInsertionPointBefore(op)
	replacement := rw.Builder().AsyncSlice(op.Loc(), cloneData.Source, cloneData.SourceSize, data.Offset, data.Length)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}

// propagateSliceOfSplat replaces slice(splat(v, n), off, len) with a
// smaller splat(v, len) directly: every byte of a splat holds the same
// value, so slicing one is exactly as if a smaller splat had been asked for
// in the first place, regardless of offset.
func propagateSliceOfSplat(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncSliceData)
	def := data.Source.DefiningOp()
	if def == nil || def.Kind() != streamir.KindAsyncSplat {
		return false
	}
	splatData := def.Data().(*streamir.AsyncSplatData)
	lt := op.Result(0).Type().(*streamir.ResourceType).Lifetime
	rw.SetInsertionPointBefore(op)
	replacement := rw.Builder().AsyncSplat(op.Loc(), lt, splatData.Value, data.Length)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}

// fillFullRangeToSplat rewrites a fill covering the entirety of its target
// ([0, target_size)) into an async.splat: the fill's prior contents are
// fully discarded, so it's indistinguishable from freshly splatting the
// target's storage, and a splat is cheaper for the allocator to reason
// about (no dependency on the target's previous producer at all).
func fillFullRangeToSplat(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncFillData)
	offset, ok := streamir.AsConstIndex(data.Offset)
	if !ok || offset != 0 {
		return false
	}
	if data.Length != data.TargetSize {
		return false
	}
	lt := op.Result(0).Type().(*streamir.ResourceType).Lifetime
	rw.SetInsertionPointBefore(op)
	replacement := rw.Builder().AsyncSplat(op.Loc(), lt, data.Value, data.Length)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}

// foldUpdateFullReplace folds an update whose spliced-in range covers the
// entirety of its target into the update value itself: the target's prior
// contents are entirely overwritten, so the op's result is simply Update.
func foldUpdateFullReplace(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.AsyncUpdateData)
	offset, ok := streamir.AsConstIndex(data.Offset)
	if !ok || offset != 0 {
		return nil, false
	}
	if data.UpdateSize != data.TargetSize {
		return nil, false
	}
	return []*streamir.Value{data.Update}, true
}

// propagateUpdateFromSplat rewrites update(target, splat(v, n), off) into
// fill(target, off, n, v): a splat's contents are a uniform scalar, which a
// fill can write directly without materializing the intermediate splat
// resource at all.
func propagateUpdateFromSplat(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncUpdateData)
	def := data.Update.DefiningOp()
	if def == nil || def.Kind() != streamir.KindAsyncSplat {
		return false
	}
	splatData := def.Data().(*streamir.AsyncSplatData)
	rw.SetInsertionPointBefore(op)
	replacement := rw.Builder().AsyncFill(op.Loc(), data.Target, data.TargetSize, data.Offset, data.UpdateSize, splatData.Value)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}

// propagateUpdateFromSlice rewrites update(target, slice(src, srcOff, n),
// off) into copy(src, srcOff, target, off, n), skipping the intermediate
// slice resource entirely. Restricted to a slice and target defined in the
// same block as the update, with the slice produced strictly after the
// target, matching spec's liveness guard: fusing across a block boundary,
// or reaching back before the target exists, would extend the slice
// source's liveness further than the original program asked for.
func propagateUpdateFromSlice(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncUpdateData)
	sliceDef := data.Update.DefiningOp()
	if sliceDef == nil || sliceDef.Kind() != streamir.KindAsyncSlice {
		return false
	}
	targetDef := data.Target.DefiningOp()
	if targetDef == nil {
		return false
	}
	block := op.Block()
	if sliceDef.Block() != block || targetDef.Block() != block {
		return false
	}
	if !streamir.StrictlyDominates(targetDef, sliceDef) {
		return false
	}
	sliceData := sliceDef.Data().(*streamir.AsyncSliceData)
	rw.SetInsertionPointBefore(op)
	replacement := rw.Builder().AsyncCopy(op.Loc(), sliceData.Source, sliceData.SourceSize, sliceData.Offset, data.Target, data.TargetSize, data.Offset, data.UpdateSize)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}

// propagateCopyFullSourceToUpdate rewrites a copy whose source range is the
// entirety of its source into an async.update: this lets the allocator
// place the producer of Source directly into Target's storage, the same
// motivation as propagateUpdateFromSlice in the opposite direction (that
// one narrows an update to a copy when the update's source is itself a
// partial slice; this one widens a whole-source copy back into an update
// once no slicing remains to justify the copy form).
func propagateCopyFullSourceToUpdate(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncCopyData)
	offset, ok := streamir.AsConstIndex(data.SourceOffset)
	if !ok || offset != 0 {
		return false
	}
	full := sizeOfValue(data.Source)
	if full == nil || full != data.Length {
		return false
	}
	rw.SetInsertionPointBefore(op)
	replacement := rw.Builder().AsyncUpdate(op.Loc(), data.Target, data.TargetSize, data.Source, data.Length, data.TargetOffset)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}
