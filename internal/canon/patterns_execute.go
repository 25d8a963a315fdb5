package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterPattern(streamir.KindAsyncExecute, elideImmediateAwaits)
	RegisterPattern(streamir.KindAsyncExecute, dedupAwaits)
	RegisterPattern(streamir.KindAsyncExecute, chainCaptureThroughAwait)
	RegisterPattern(streamir.KindAsyncExecute, emptyExecuteRegionElision)
	RegisterPattern(streamir.KindAsyncExecute, pruneUnusedCapture)
	RegisterPattern(streamir.KindAsyncExecute, captureSubviewCloning)

	RegisterPattern(streamir.KindAsyncConcurrent, emptyConcurrentRegionElision)
	RegisterPattern(streamir.KindAsyncConcurrent, pruneUnusedCapture)
	RegisterPattern(streamir.KindAsyncConcurrent, captureSubviewCloning)
}

// dedupValuesPreserveOrder removes duplicates from vs, keeping the first
// occurrence's position, the shared shape behind await-list dedup and
// timepoint.join's own dedup fold.
func dedupValuesPreserveOrder(vs []*streamir.Value) []*streamir.Value {
	seen := map[*streamir.Value]bool{}
	out := make([]*streamir.Value, 0, len(vs))
	for _, v := range vs {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// elideImmediateAwaits drops every entry of an execute region's await list
// whose defining op is timepoint.immediate: an always-ready timepoint gates
// nothing.
func elideImmediateAwaits(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncExecuteData)
	reduced := make([]*streamir.Value, 0, len(data.AwaitTimepoints))
	changed := false
	for _, tp := range data.AwaitTimepoints {
		if isImmediate(tp) {
			changed = true
			continue
		}
		reduced = append(reduced, tp)
	}
	if !changed {
		return false
	}
	rw.UpdateRootInPlace(op, func() {
		op.SetAwaitTimepoints(reduced)
	})
	return true
}

// dedupAwaits collapses duplicate entries in an execute region's await
// list, order-preserving.
func dedupAwaits(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncExecuteData)
	reduced := dedupValuesPreserveOrder(data.AwaitTimepoints)
	if len(reduced) == len(data.AwaitTimepoints) {
		return false
	}
	rw.UpdateRootInPlace(op, func() {
		op.SetAwaitTimepoints(reduced)
	})
	return true
}

// chainCaptureThroughAwait folds a capture sourced from a timepoint.await's
// result back through the await: instead of capturing the already-awaited
// resource, the region captures the original pre-await resource directly
// and adds the await's own timepoint to its own await list (merging with
// dedup). This migrates the wait itself into the region's scheduling gate
// rather than paying for it as a separate host-side step beforehand.
func chainCaptureThroughAwait(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncExecuteData)
	n := len(data.Captures)
	for i, cap := range data.Captures {
		def := cap.DefiningOp()
		if def == nil || def.Kind() != streamir.KindTimepointAwait {
			continue
		}
		awaitData := def.Data().(*streamir.TimepointAwaitData)
		resIdx := cap.ResultIndex()
		x := awaitData.Resources[resIdx]
		xSize := awaitData.ResourceSizes[resIdx]
		tp := awaitData.Timepoint
		newAwaits := dedupValuesPreserveOrder(append(append([]*streamir.Value(nil), data.AwaitTimepoints...), tp))
		idx := i
		rw.UpdateRootInPlace(op, func() {
			op.SetOperand(idx, x)
			op.SetOperand(n+idx, xSize)
			op.SetAwaitTimepoints(newAwaits)
		})
		// Erase the await once nothing reads it, so it no longer counts as a
		// second tied use of x when copy-on-write next inspects x.
		if allResultsUnused(def) {
			rw.EraseOp(def)
		}
		return true
	}
	return false
}

// allResultsUnused reports whether no result of op has a use.
func allResultsUnused(op *streamir.Operation) bool {
	for _, r := range op.Results() {
		if !r.IsUnused() {
			return false
		}
	}
	return true
}

// regionBodyIsEmpty reports whether a region's single block contains
// nothing but its terminator.
func regionBodyIsEmpty(op *streamir.Operation) bool {
	body := op.Regions()[0].Blocks()[0]
	ops := body.Operations()
	return len(ops) == 0 || (len(ops) == 1 && ops[0].IsTerminator())
}

// emptyExecuteRegionElision replaces an execute region whose body does
// nothing with its own captures (each result is tied 1:1 to a capture, so
// an empty body makes every result identical to its matching capture) and
// an immediate completion timepoint.
func emptyExecuteRegionElision(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	if !regionBodyIsEmpty(op) {
		return false
	}
	data := op.Data().(*streamir.AsyncExecuteData)
	rw.SetInsertionPointBefore(op)
	imm := rw.Builder().TimepointImmediate(op.Loc())
	rw.NotifyOpInserted(imm.DefiningOp())
	replacements := append(append([]*streamir.Value(nil), data.Captures...), imm)
	rw.ReplaceOpWithValues(op, replacements)
	return true
}

// emptyConcurrentRegionElision is emptyExecuteRegionElision's counterpart
// for async.concurrent, which has no completion timepoint result to supply.
func emptyConcurrentRegionElision(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	if !regionBodyIsEmpty(op) {
		return false
	}
	data := op.Data().(*streamir.AsyncConcurrentData)
	rw.ReplaceOpWithValues(op, append([]*streamir.Value(nil), data.Captures...))
	return true
}

// captureCaptures returns the Captures/CaptureSizes pair shared by
// AsyncExecuteData and AsyncConcurrentData, so capture-level patterns don't
// need to duplicate themselves per op kind.
func captureCaptures(op *streamir.Operation) (captures, sizes []*streamir.Value) {
	switch d := op.Data().(type) {
	case *streamir.AsyncExecuteData:
		return d.Captures, d.CaptureSizes
	case *streamir.AsyncConcurrentData:
		return d.Captures, d.CaptureSizes
	default:
		return nil, nil
	}
}

// captureSubviewCloning implements spec's "capture-subview cloning": when a
// capture is sourced from a resource.subview, the region instead captures
// the subview's own underlying resource (with its underlying size) and
// gets a freshly cloned subview inserted at the body's entry, reading off
// the block argument. Interior ops keep seeing the same sliced view, but
// the capture itself is now the unsliced resource — letting subview fusion
// opportunities that only existed outside the region apply to it too, once
// whatever now captures the underlying resource directly can fuse further.
func captureSubviewCloning(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	captures, _ := captureCaptures(op)
	body := op.Regions()[0].Blocks()[0]
	for i, cap := range captures {
		sub, ok := subviewOf(cap)
		if !ok {
			continue
		}
		underlyingSize := sizeOfValue(sub.Source)
		if underlyingSize == nil {
			continue
		}
		blockArg := body.Args()[i]
		n := len(captures)
		idx := i
		rw.UpdateRootInPlace(op, func() {
			op.SetOperand(idx, sub.Source)
			op.SetOperand(n+idx, underlyingSize)
		})
		rw.SetInsertionPointToStart(body)
		newSubview := rw.Builder().ResourceSubview(op.Loc(), blockArg, sub.Offset, sub.Length)
		rw.NotifyOpInserted(newSubview.DefiningOp())
		streamir.ReplaceAllUsesExcept(blockArg, newSubview, map[*streamir.Operation]bool{newSubview.DefiningOp(): true})
		// Same as in chainCaptureThroughAwait: a dead outer subview would
		// still count as a tied use of the underlying resource.
		if outer := cap.DefiningOp(); allResultsUnused(outer) {
			rw.EraseOp(outer)
		}
		return true
	}
	return false
}

// pruneUnusedCapture drops a capture (and its matching tied result) that is
// referenced neither by any op inside the region body nor by any consumer
// of the region's own result: a standard closure-optimization dead-capture
// prune, run one capture at a time so the worklist can revisit the op for
// the next one.
func pruneUnusedCapture(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	captures, sizes := captureCaptures(op)
	body := op.Regions()[0].Blocks()[0]
	for i := range captures {
		blockArg := body.Args()[i]
		result := op.Result(i)
		if !blockArg.IsUnused() || !result.IsUnused() {
			continue
		}
		return rebuildWithoutCapture(op, rw, i, captures, sizes)
	}
	return false
}

// rebuildWithoutCapture erases op and replaces it with a fresh op of the
// same kind omitting capture index drop, since Captures/CaptureSizes/block
// arguments are fixed-shape and have no in-place resize primitive (unlike
// AwaitTimepoints).
func rebuildWithoutCapture(op *streamir.Operation, rw *rewrite.Rewriter, drop int, captures, sizes []*streamir.Value) bool {
	newCaptures := make([]*streamir.Value, 0, len(captures)-1)
	newSizes := make([]*streamir.Value, 0, len(captures)-1)
	for i := range captures {
		if i == drop {
			continue
		}
		newCaptures = append(newCaptures, captures[i])
		newSizes = append(newSizes, sizes[i])
	}
	rw.SetInsertionPointBefore(op)
	var newOp *streamir.Operation
	var newBody *streamir.Block
	switch op.Kind() {
	case streamir.KindAsyncExecute:
		data := op.Data().(*streamir.AsyncExecuteData)
		newOp, newBody = rw.Builder().AsyncExecute(op.Loc(), newCaptures, newSizes, data.AwaitTimepoints, data.Affinity)
	case streamir.KindAsyncConcurrent:
		newOp, newBody = rw.Builder().AsyncConcurrent(op.Loc(), newCaptures, newSizes)
	default:
		return false
	}
	rw.NotifyOpInserted(newOp)

	oldBody := op.Regions()[0].Blocks()[0]
	oldArgs := oldBody.Args()
	j := 0
	for i, arg := range oldArgs {
		if i == drop {
			continue
		}
		streamir.ReplaceAllUsesWith(arg, newBody.Args()[j])
		j++
	}
	streamir.AdoptOperations(newBody, oldBody)

	replacements := make([]*streamir.Value, 0, op.NumResults())
	j = 0
	for i, r := range op.Results() {
		if i == drop {
			replacements = append(replacements, nil)
			continue
		}
		_ = r
		replacements = append(replacements, newOp.Result(j))
		j++
	}
	rw.ReplaceOpWithValues(op, replacements)
	return true
}
