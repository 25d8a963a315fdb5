package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterPattern(streamir.KindResourceMap, ElideUnused)
	RegisterPattern(streamir.KindResourceTryMap, ElideUnused)
}

// ElideUnused erases op once every one of its results has gone dead. Most op
// kinds already get this for free from the driver's own dead-code check
// (internal/canon/engine.go's tryDCE), which never runs for a side-effecting
// kind; ElideUnused is the explicit pattern-level equivalent for the kinds
// that carry side effects yet are still safe to drop once nothing observes
// their results (an opaque kernel launch whose only output the caller
// discarded, an external memory mapping nobody reads).
func ElideUnused(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	if op.NumResults() == 0 {
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

// SinkOp relocates op to sit immediately before target within their shared
// block, the building block behind every "sink toward first consumer" rule
// (async.splat, timepoint.await). It declines outright across block/region
// boundaries: reaching a different region always means crossing into a
// capture, a structurally different rewrite handled separately by
// capture-subview-cloning, not a plain same-block move.
//
// The anti-oscillation guard: if every operation between op and target
// already exists solely to produce one of target's own operands, op is
// already as close to target as it can usefully get, and moving it the rest
// of the way would just be undone the next time something sinks it back
// past its own operands. Only sink when there's a genuine gap to close.
func SinkOp(op, target *streamir.Operation, rw *rewrite.Rewriter) bool {
	if op == target || op.Block() == nil || target.Block() != op.Block() {
		return false
	}
	block := op.Block()
	opIdx, targetIdx := block.IndexOf(op), block.IndexOf(target)
	if opIdx < 0 || targetIdx < 0 || targetIdx <= opIdx {
		return false
	}
	targetOperands := map[*streamir.Value]bool{}
	for _, v := range target.Operands() {
		targetOperands[v] = true
	}
	onlyProducesTargetOperands := true
	for _, mid := range block.Operations()[opIdx+1 : targetIdx] {
		produces := false
		for _, r := range mid.Results() {
			if targetOperands[r] {
				produces = true
				break
			}
		}
		if !produces {
			onlyProducesTargetOperands = false
			break
		}
	}
	if onlyProducesTargetOperands {
		return false
	}
	if !streamir.CanMoveBefore(op, target) {
		return false
	}
	rw.UpdateRootInPlace(op, func() {
		streamir.MoveBefore(op, target)
	})
	return true
}

// earliestUser returns the operation within block that uses one of uses the
// earliest in program order, or nil if none of uses lands in block at all
// (the only shape sinking patterns handle; a user in a different block means
// crossing a region boundary, declined by SinkOp's caller before this is
// ever consulted).
func earliestUser(block *streamir.Block, uses []*streamir.Use) *streamir.Operation {
	var earliest *streamir.Operation
	earliestIdx := -1
	for _, u := range uses {
		if u.Owner.Block() != block {
			continue
		}
		idx := block.IndexOf(u.Owner)
		if earliest == nil || idx < earliestIdx {
			earliest, earliestIdx = u.Owner, idx
		}
	}
	return earliest
}
