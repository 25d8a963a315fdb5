package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterPattern(streamir.KindTensorConstant, expandSplatTensorConstant)
	RegisterFold(streamir.KindTensorClone, foldTensorCloneSingleUser)
	RegisterPattern(streamir.KindTensorClone, elideUnneededTensorClone)
}

// hasTiedUse reports whether any use of v ties v's consumer operand to one
// of that consumer's results, the shared test behind both the tensor.clone
// and async.clone "neither side is overwritten in place" elision rule.
func hasTiedUse(v *streamir.Value) bool {
	for _, u := range v.Uses() {
		if u.Owner.OperandIsTied(u.OperandIndex) {
			return true
		}
	}
	return false
}

// expandSplatTensorConstant materializes a single-value tensor.constant as
// a scalar constant feeding a tensor.splat, then an async.transfer into the
// constant's target lifetime, exposing the scalar for later fusion with
// fills the way a literal splat already gets (spec §4.5.4). A non-splat
// constant attribute has no equivalent decomposition in this op set and is
// left as-is.
func expandSplatTensorConstant(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.TensorConstantData)
	if !data.IsSplat {
		return false
	}
	rw.SetInsertionPointBefore(op)
	splat := rw.Builder().TensorSplat(op.Loc(), data.Value, data.Size)
	rw.NotifyOpInserted(splat.DefiningOp())
	transfer := rw.Builder().AsyncTransfer(op.Loc(), splat, data.Size, data.Lifetime, nil, nil)
	rw.NotifyOpInserted(transfer.DefiningOp())
	rw.ReplaceOpWithValue(op, transfer)
	return true
}

// foldTensorCloneSingleUser drops a clone with exactly one remaining user:
// with no second observer, nothing can tell the clone's copy apart from its
// source.
func foldTensorCloneSingleUser(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.TensorCloneData)
	if !op.Result(0).HasOneUse() {
		return nil, false
	}
	return []*streamir.Value{data.Source}, true
}

// elideUnneededTensorClone drops a clone when neither its result nor its
// source is ever consumed by a tied (in-place) operand: with nobody
// planning to overwrite either side, the clone's only purpose — keeping the
// two mutable copies independent — never comes up.
func elideUnneededTensorClone(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.TensorCloneData)
	if hasTiedUse(op.Result(0)) || hasTiedUse(data.Source) {
		return false
	}
	rw.ReplaceOpWithValue(op, data.Source)
	return true
}
