package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterPattern(streamir.KindResourcePack, foldTrivialResourcePack)
	RegisterPattern(streamir.KindResourcePack, propagateResourcePackBaseOffset)
}

// foldTrivialResourcePack implements resource.pack's own fold
// (ResourcePackOp::fold, StreamOpFolders.cpp:368-393): packing is only ever
// a genuine decision once there is more than one slice to place relative
// to each other. With zero slices the whole pack is a zero-length slab; with
// exactly one slice there is nothing to pack against, so the slice's own
// size is the pack's total and its offset is whatever base offset was
// supplied (zero if none). Two or more slices are left alone here — that
// case is an actual allocator decision, not a fold — but still has its base
// offset propagated by propagateResourcePackBaseOffset below.
// Supplemented beyond the pattern families the pack op's own file groups
// (the packing algorithm has no subview/tensor/async counterpart), so it
// keeps this file to itself rather than moving in with resource.subview's
// fusion rules.
func foldTrivialResourcePack(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.ResourcePackData)
	rw.SetInsertionPointBefore(op)
	switch len(data.Sizes) {
	case 0:
		zero := rw.Builder().ConstIndex(op.Loc(), 0)
		rw.NotifyOpInserted(zero.DefiningOp())
		rw.ReplaceOpWithValues(op, []*streamir.Value{zero})
		return true
	case 1:
		offset := data.BaseOffset
		if offset == nil {
			offset = rw.Builder().ConstIndex(op.Loc(), 0)
			rw.NotifyOpInserted(offset.DefiningOp())
		}
		rw.ReplaceOpWithValues(op, []*streamir.Value{offset, data.Sizes[0]})
		return true
	default:
		return false
	}
}

// propagateResourcePackBaseOffset strips a pack's optional base offset and
// folds it directly into each of the pack's own offset results instead, so
// later folds over one of those offsets never need to look back through the
// pack op to account for a base that might still change. Mirrors
// PropagateResourcePackBaseOffset (StreamOpFolders.cpp:401-434). Only
// applies once the pack itself has survived foldTrivialResourcePack (two or
// more slices); a trivial pack's base offset is consumed directly by that
// fold instead.
func propagateResourcePackBaseOffset(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.ResourcePackData)
	if data.BaseOffset == nil || len(data.Sizes) < 2 {
		return false
	}
	baseOffset := data.BaseOffset
	n := len(data.Sizes)
	rw.UpdateRootInPlace(op, func() {
		op.SetOperand(n, nil)
	})
	if v, ok := streamir.AsConstIndex(baseOffset); ok && v == 0 {
		return true
	}
	rw.SetInsertionPointAfter(op)
	for i := 0; i < n; i++ {
		offsetResult := op.Result(i)
		sum := rw.Builder().IndexAdd(op.Loc(), baseOffset, offsetResult)
		rw.NotifyOpInserted(sum.DefiningOp())
		streamir.ReplaceAllUsesExcept(offsetResult, sum, map[*streamir.Operation]bool{sum.DefiningOp(): true})
	}
	return true
}
