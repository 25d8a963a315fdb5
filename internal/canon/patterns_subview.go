package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterFold(streamir.KindResourceSize, foldResourceSizeOfSizeAwareProducer)
	RegisterFold(streamir.KindResourceSubview, foldIdentitySubview)
	RegisterPattern(streamir.KindResourceSubview, fuseNestedSubview)
	RegisterPattern(streamir.KindResourceLoad, fuseSubviewIntoLoad)
	RegisterPattern(streamir.KindResourceStore, fuseSubviewIntoStore)
	RegisterPattern(streamir.KindCmdFill, fuseSubviewIntoCmdFill)
	RegisterPattern(streamir.KindCmdCopy, fuseSubviewIntoCmdCopy)
	RegisterPattern(streamir.KindCmdFlush, fuseSubviewIntoCmdRange)
	RegisterPattern(streamir.KindCmdInvalidate, fuseSubviewIntoCmdRange)
	RegisterPattern(streamir.KindCmdDiscard, fuseSubviewIntoCmdRange)
	RegisterPattern(streamir.KindCmdDispatch, fuseSubviewIntoCmdDispatch)
}

// foldResourceSizeOfSizeAwareProducer implements the original dialect's
// "size of a resource I already know the size of" fold: resource.size
// applied to the result of any op that knows its own result size resolves
// to that size value directly, with no residual resource.size op.
func foldResourceSizeOfSizeAwareProducer(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.ResourceSizeData)
	size := sizeOfValue(data.Resource)
	if size == nil {
		return nil, false
	}
	return []*streamir.Value{size}, true
}

// foldIdentitySubview drops a subview that spans the entirety of its
// source's known size starting at offset zero: source[0:size] is source.
func foldIdentitySubview(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.ResourceSubviewData)
	offset, ok := streamir.AsConstIndex(data.Offset)
	if !ok || offset != 0 {
		return nil, false
	}
	fullSize := sizeOfValue(data.Source)
	if fullSize == nil || fullSize != data.Length {
		return nil, false
	}
	return []*streamir.Value{data.Source}, true
}

// sizeOfValue discovers the byte size of a resource value, chasing either an
// op result's SizeAware producer or, for a value that is instead a block
// argument captured into an execute/concurrent region body, the matching
// entry in that region owner's CaptureSizes. Block arguments have no
// DefiningOp to type-switch on, so subview fusion inside a region body needs
// this second path to learn the size of a captured resource at all.
func sizeOfValue(v *streamir.Value) *streamir.Value {
	if v == nil {
		return nil
	}
	if def := v.DefiningOp(); def != nil {
		if sa, ok := def.Data().(streamir.SizeAware); ok {
			return sa.SizeOfResult(v.ResultIndex())
		}
		return nil
	}
	if !v.IsBlockArgument() {
		return nil
	}
	parent := v.OwnerBlock().Region().ParentOp()
	if parent == nil {
		return nil
	}
	switch d := parent.Data().(type) {
	case *streamir.AsyncExecuteData:
		if v.ArgIndex() < len(d.CaptureSizes) {
			return d.CaptureSizes[v.ArgIndex()]
		}
	case *streamir.AsyncConcurrentData:
		if v.ArgIndex() < len(d.CaptureSizes) {
			return d.CaptureSizes[v.ArgIndex()]
		}
	}
	return nil
}

// enclosingExecute walks up from op's own region, through any cmd.serial/
// cmd.concurrent nesting, to the async.execute op whose body op sits in.
// Returns nil if op isn't nested in one at all.
func enclosingExecute(op *streamir.Operation) *streamir.Operation {
	region := op.Block().Region()
	for {
		parent := region.ParentOp()
		if parent == nil {
			return nil
		}
		if parent.Kind() == streamir.KindAsyncExecute {
			return parent
		}
		region = parent.Block().Region()
	}
}

// addOffsets materializes a+b, constant-folding when both sides are known
// and shortcutting an identically-zero side, only falling back to an actual
// index.add operation when neither side statically resolves. rw's current
// insertion point is used and left advanced past whatever it inserted.
func addOffsets(rw *rewrite.Rewriter, loc streamir.Location, a, b *streamir.Value) *streamir.Value {
	av, aOK := streamir.AsConstIndex(a)
	bv, bOK := streamir.AsConstIndex(b)
	if aOK && bOK {
		v := rw.Builder().ConstIndex(loc, av+bv)
		rw.NotifyOpInserted(v.DefiningOp())
		return v
	}
	if aOK && av == 0 {
		return b
	}
	if bOK && bv == 0 {
		return a
	}
	v := rw.Builder().IndexAdd(loc, a, b)
	rw.NotifyOpInserted(v.DefiningOp())
	return v
}

// subviewOf reports the ResourceSubviewData producing v, if any.
func subviewOf(v *streamir.Value) (*streamir.ResourceSubviewData, bool) {
	def := v.DefiningOp()
	if def == nil || def.Kind() != streamir.KindResourceSubview {
		return nil, false
	}
	return def.Data().(*streamir.ResourceSubviewData), true
}

// fuseNestedSubview collapses subview(subview(x, o1, _), o2, l2) into
// subview(x, o1+o2, l2) for any o1/o2, not just an outer zero offset: a
// subview through a subview always addresses bytes o1+o2 into the original
// resource, regardless of what the inner view's own offset was.
func fuseNestedSubview(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.ResourceSubviewData)
	inner, ok := subviewOf(data.Source)
	if !ok {
		return false
	}
	rw.SetInsertionPointBefore(op)
	fusedOffset := addOffsets(rw, op.Loc(), inner.Offset, data.Offset)
	replacement := rw.Builder().ResourceSubview(op.Loc(), inner.Source, fusedOffset, data.Length)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}

// fuseSubviewIntoLoad rewrites resource.load(subview(x, o, _), off) into
// resource.load(x, o+off), so a load never needs a materialized view op
// standing between it and the resource it actually reads.
func fuseSubviewIntoLoad(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.ResourceLoadData)
	sub, ok := subviewOf(data.Source)
	if !ok {
		return false
	}
	underlyingSize := sizeOfValue(sub.Source)
	if underlyingSize == nil {
		return false
	}
	rw.SetInsertionPointBefore(op)
	fusedOffset := addOffsets(rw, op.Loc(), sub.Offset, data.Offset)
	rw.UpdateRootInPlace(op, func() {
		op.SetOperand(0, sub.Source)
		op.SetOperand(1, underlyingSize)
		op.SetOperand(2, fusedOffset)
	})
	return true
}

// fuseSubviewIntoStore is fuseSubviewIntoLoad's write-side counterpart.
func fuseSubviewIntoStore(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.ResourceStoreData)
	sub, ok := subviewOf(data.Target)
	if !ok {
		return false
	}
	underlyingSize := sizeOfValue(sub.Source)
	if underlyingSize == nil {
		return false
	}
	rw.SetInsertionPointBefore(op)
	fusedOffset := addOffsets(rw, op.Loc(), sub.Offset, data.Offset)
	rw.UpdateRootInPlace(op, func() {
		op.SetOperand(0, sub.Source)
		op.SetOperand(1, underlyingSize)
		op.SetOperand(2, fusedOffset)
	})
	return true
}

// The cmd.* fusions below all share one constraint: a cmd.* op models a
// device-side command, so the index.add they may need to compute a fused
// offset must never be scheduled as part of the command stream itself. It's
// pure host-side scalar arithmetic, so it's built at the enclosing
// async.execute's own insertion point, outside the region entirely; the
// resulting value is then referenced directly from inside the body, the
// same way a capture size defined before the execute op is already visible
// to ops nested in it (Dominates treats an outer, non-block-argument value
// as dominating everything nested inside a region owned by an op it
// precedes), with no new capture required.

func fuseSubviewIntoCmdFill(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.CmdFillData)
	sub, ok := subviewOf(data.Target)
	if !ok {
		return false
	}
	underlyingSize := sizeOfValue(sub.Source)
	if underlyingSize == nil {
		return false
	}
	exec := enclosingExecute(op)
	if exec == nil {
		return false
	}
	rw.SetInsertionPointBefore(exec)
	fusedOffset := addOffsets(rw, op.Loc(), sub.Offset, data.Offset)
	rw.UpdateRootInPlace(op, func() {
		op.SetOperand(0, sub.Source)
		op.SetOperand(1, underlyingSize)
		op.SetOperand(2, fusedOffset)
	})
	return true
}

func fuseSubviewIntoCmdCopy(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.CmdCopyData)
	exec := enclosingExecute(op)
	if exec == nil {
		return false
	}
	if sub, ok := subviewOf(data.Source); ok {
		if underlyingSize := sizeOfValue(sub.Source); underlyingSize != nil {
			rw.SetInsertionPointBefore(exec)
			fusedOffset := addOffsets(rw, op.Loc(), sub.Offset, data.SourceOffset)
			rw.UpdateRootInPlace(op, func() {
				op.SetOperand(0, sub.Source)
				op.SetOperand(1, underlyingSize)
				op.SetOperand(2, fusedOffset)
			})
			return true
		}
	}
	if sub, ok := subviewOf(data.Target); ok {
		if underlyingSize := sizeOfValue(sub.Source); underlyingSize != nil {
			rw.SetInsertionPointBefore(exec)
			fusedOffset := addOffsets(rw, op.Loc(), sub.Offset, data.TargetOffset)
			rw.UpdateRootInPlace(op, func() {
				op.SetOperand(3, sub.Source)
				op.SetOperand(4, underlyingSize)
				op.SetOperand(5, fusedOffset)
			})
			return true
		}
	}
	return false
}

// fuseSubviewIntoCmdRange handles cmd.flush/cmd.invalidate/cmd.discard,
// whose shared cmdRangeData layout (Target, Offset, Length) needs no
// TargetSize update since none of the three carry one.
func fuseSubviewIntoCmdRange(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	target, offset, _, ok := rangeOf(op)
	if !ok {
		return false
	}
	sub, ok := subviewOf(target)
	if !ok {
		return false
	}
	exec := enclosingExecute(op)
	if exec == nil {
		return false
	}
	rw.SetInsertionPointBefore(exec)
	fusedOffset := addOffsets(rw, op.Loc(), sub.Offset, offset)
	rw.UpdateRootInPlace(op, func() {
		op.SetOperand(0, sub.Source)
		op.SetOperand(1, fusedOffset)
	})
	return true
}

// fuseSubviewIntoCmdDispatch fuses at most one subview-shaped resource
// operand per call, relying on the worklist to revisit op (SetOperand
// notifies the listener) and fuse the rest one at a time.
func fuseSubviewIntoCmdDispatch(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.CmdDispatchData)
	exec := enclosingExecute(op)
	if exec == nil {
		return false
	}
	n := len(data.Resources)
	for i, res := range data.Resources {
		sub, ok := subviewOf(res)
		if !ok {
			continue
		}
		underlyingSize := sizeOfValue(sub.Source)
		if underlyingSize == nil {
			continue
		}
		rw.SetInsertionPointBefore(exec)
		fusedOffset := addOffsets(rw, op.Loc(), sub.Offset, data.Offsets[i])
		idx := i
		rw.UpdateRootInPlace(op, func() {
			op.SetOperand(idx, sub.Source)
			op.SetOperand(n+idx, fusedOffset)
			op.SetOperand(2*n+idx, underlyingSize)
		})
		return true
	}
	return false
}
