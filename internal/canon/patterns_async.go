package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterFold(streamir.KindAsyncTransfer, foldIdentityTransfer)
	RegisterPattern(streamir.KindAsyncTransfer, foldTransferChain)
}

// foldIdentityTransfer drops a transfer that doesn't actually change
// placement: same target lifetime as the source and (if both are set) the
// same affinity.
func foldIdentityTransfer(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.AsyncTransferData)
	srcType, ok := data.Source.Type().(*streamir.ResourceType)
	if !ok {
		return nil, false
	}
	dstType := op.Result(0).Type().(*streamir.ResourceType)
	if srcType.Lifetime != dstType.Lifetime {
		return nil, false
	}
	if !streamir.AffinitiesCompatible(data.SourceAffinity, data.TargetAffinity) {
		return nil, false
	}
	return []*streamir.Value{data.Source}, true
}

// foldTransferChain collapses transfer(transfer(x)) straight to x, but only
// when the intermediate resource has exactly one use (this transfer) and
// the original source's type and affinity already match the outer
// transfer's own result: otherwise the intermediate placement is actually
// doing something, and collapsing past it would either strand some other
// consumer that still needs it to exist, or silently change where the
// chain's result actually lives. This mirrors the original dialect's
// chained-transfer folder (only applies when
// `sourceTransferOp.source().getType() == result().getType()` and the
// affinities agree).
func foldTransferChain(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.AsyncTransferData)
	innerDef := data.Source.DefiningOp()
	if innerDef == nil || innerDef.Kind() != streamir.KindAsyncTransfer {
		return false
	}
	if !data.Source.HasOneUse() {
		return false
	}
	inner := innerDef.Data().(*streamir.AsyncTransferData)
	innerSrcType, ok := inner.Source.Type().(*streamir.ResourceType)
	if !ok {
		return false
	}
	finalType := op.Result(0).Type().(*streamir.ResourceType)
	if innerSrcType.Lifetime != finalType.Lifetime {
		return false
	}
	if !streamir.AffinitiesCompatible(inner.SourceAffinity, data.TargetAffinity) {
		return false
	}
	rw.ReplaceOpWithValue(op, inner.Source)
	return true
}
