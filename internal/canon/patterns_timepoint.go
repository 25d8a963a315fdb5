package canon

import (
	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

func init() {
	RegisterFold(streamir.KindTimepointJoin, foldTrivialJoin)
	RegisterFold(streamir.KindTimepointAwait, foldAwaitOfImmediate)
	RegisterPattern(streamir.KindTimepointJoin, foldJoinDedupAndDropImmediates)

	RegisterPattern(streamir.KindTimepointAwait, dedupAwaitResources)
	RegisterPattern(streamir.KindTimepointAwait, groupAwaitsByTimepoint)
	RegisterPattern(streamir.KindTimepointAwait, sinkSubviewsAcrossAwait)
	RegisterPattern(streamir.KindTimepointAwait, sinkAwaitToFirstConsumer)
}

func isImmediate(v *streamir.Value) bool {
	def := v.DefiningOp()
	return def != nil && def.Kind() == streamir.KindTimepointImmediate
}

// foldTrivialJoin handles the join shapes that resolve to an existing value
// with no new operation needed: a single operand is the join itself, and a
// join where every operand is the same value is that value.
func foldTrivialJoin(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.TimepointJoinData)
	if len(data.Timepoints) == 1 {
		return []*streamir.Value{data.Timepoints[0]}, true
	}
	allSame := true
	for _, t := range data.Timepoints[1:] {
		if t != data.Timepoints[0] {
			allSame = false
			break
		}
	}
	if allSame && len(data.Timepoints) > 0 {
		return []*streamir.Value{data.Timepoints[0]}, true
	}
	nonImmediate := (*streamir.Value)(nil)
	countNonImmediate := 0
	for _, t := range data.Timepoints {
		if !isImmediate(t) {
			countNonImmediate++
			nonImmediate = t
		}
	}
	if countNonImmediate == 1 {
		return []*streamir.Value{nonImmediate}, true
	}
	if countNonImmediate == 0 && len(data.Timepoints) > 0 {
		return []*streamir.Value{data.Timepoints[0]}, true
	}
	return nil, false
}

// foldJoinDedupAndDropImmediates rebuilds a join with duplicate operands
// merged and immediate (always-ready) operands dropped, whenever that
// leaves two or more distinct non-immediate operands (fewer than that is
// already handled by foldTrivialJoin, which runs first every time this
// pattern would otherwise fire).
func foldJoinDedupAndDropImmediates(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.TimepointJoinData)
	seen := map[*streamir.Value]bool{}
	var reduced []*streamir.Value
	for _, t := range data.Timepoints {
		if isImmediate(t) || seen[t] {
			continue
		}
		seen[t] = true
		reduced = append(reduced, t)
	}
	if len(reduced) == len(data.Timepoints) || len(reduced) < 2 {
		return false
	}
	rw.SetInsertionPointBefore(op)
	replacement := rw.Builder().TimepointJoin(op.Loc(), reduced)
	rw.NotifyOpInserted(replacement.DefiningOp())
	rw.ReplaceOpWithValue(op, replacement)
	return true
}

// foldAwaitOfImmediate drops an await whose timepoint is already resolved:
// the awaited resources are simply themselves, since nothing needed to
// wait.
func foldAwaitOfImmediate(op *streamir.Operation) ([]*streamir.Value, bool) {
	data := op.Data().(*streamir.TimepointAwaitData)
	if !isImmediate(data.Timepoint) {
		return nil, false
	}
	return append([]*streamir.Value(nil), data.Resources...), true
}

// dedupAwaitResources collapses duplicate resource operands of an await
// into a single shared result, routing every use of the duplicate's own
// result to the first occurrence's result instead.
func dedupAwaitResources(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.TimepointAwaitData)
	firstIndexOf := map[*streamir.Value]int{}
	var order []int
	dup := false
	for i, r := range data.Resources {
		if _, ok := firstIndexOf[r]; ok {
			dup = true
			continue
		}
		firstIndexOf[r] = i
		order = append(order, i)
	}
	if !dup {
		return false
	}
	newResources := make([]*streamir.Value, len(order))
	newSizes := make([]*streamir.Value, len(order))
	posOf := make(map[int]int, len(order))
	for j, i := range order {
		newResources[j] = data.Resources[i]
		newSizes[j] = data.ResourceSizes[i]
		posOf[i] = j
	}
	rw.SetInsertionPointBefore(op)
	newResults := rw.Builder().TimepointAwait(op.Loc(), data.Timepoint, newResources, newSizes)
	rw.NotifyOpInserted(newResults[0].DefiningOp())
	replacements := make([]*streamir.Value, len(data.Resources))
	for i, r := range data.Resources {
		replacements[i] = newResults[posOf[firstIndexOf[r]]]
	}
	rw.ReplaceOpWithValues(op, replacements)
	return true
}

// groupAwaitsByTimepoint merges any two awaits in the same block gated on
// the same timepoint into one multi-result await, since there's no reason
// to pay for two separate wait points when both release once the same
// event resolves.
func groupAwaitsByTimepoint(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.TimepointAwaitData)
	block := op.Block()
	for _, other := range block.Operations() {
		if other == op || other.Kind() != streamir.KindTimepointAwait {
			continue
		}
		otherData := other.Data().(*streamir.TimepointAwaitData)
		if otherData.Timepoint != data.Timepoint {
			continue
		}
		first, second := op, other
		if block.IndexOf(other) < block.IndexOf(op) {
			first, second = other, op
		}
		return mergeAwaits(first, second, rw)
	}
	return false
}

// mergeAwaits combines first and second (first preceding second in program
// order) into a single await inserted at second's position: every operand
// of second already dominates second by construction, and every operand of
// first dominates first and therefore second too (first precedes second),
// so the merge point is always safe without any further dominance check.
func mergeAwaits(first, second *streamir.Operation, rw *rewrite.Rewriter) bool {
	fd := first.Data().(*streamir.TimepointAwaitData)
	sd := second.Data().(*streamir.TimepointAwaitData)
	merged := append(append([]*streamir.Value(nil), fd.Resources...), sd.Resources...)
	mergedSizes := append(append([]*streamir.Value(nil), fd.ResourceSizes...), sd.ResourceSizes...)
	rw.SetInsertionPointBefore(second)
	newResults := rw.Builder().TimepointAwait(second.Loc(), fd.Timepoint, merged, mergedSizes)
	rw.NotifyOpInserted(newResults[0].DefiningOp())
	for i := range fd.Resources {
		streamir.ReplaceAllUsesWith(first.Result(i), newResults[i])
	}
	n := len(fd.Resources)
	for i := range sd.Resources {
		streamir.ReplaceAllUsesWith(second.Result(i), newResults[n+i])
	}
	rw.EraseOp(first)
	rw.EraseOp(second)
	return true
}

// sinkSubviewsAcrossAwait rewrites an awaited resource that is itself a
// subview to await the underlying resource instead, re-introducing the
// subview as a consumer of the matching await result. This pushes the
// subview fusion opportunity past the await, the same way capture-subview
// cloning pushes it past an execute region boundary.
func sinkSubviewsAcrossAwait(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	data := op.Data().(*streamir.TimepointAwaitData)
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
		idx := i
		rw.UpdateRootInPlace(op, func() {
			op.SetOperand(1+idx, sub.Source)
			op.SetOperand(1+n+idx, underlyingSize)
		})
		rw.SetInsertionPointAfter(op)
		newSubview := rw.Builder().ResourceSubview(op.Loc(), op.Result(idx), sub.Offset, sub.Length)
		rw.NotifyOpInserted(newSubview.DefiningOp())
		streamir.ReplaceAllUsesExcept(op.Result(idx), newSubview, map[*streamir.Operation]bool{newSubview.DefiningOp(): true})
		return true
	}
	return false
}

// sinkAwaitToFirstConsumer moves an await as close as possible to its
// consumers (spec's sink-to-first-consumer rule for timepoint.await),
// mirroring sinkSplatToConsumers but gathering uses across every one of
// the await's results at once.
func sinkAwaitToFirstConsumer(op *streamir.Operation, rw *rewrite.Rewriter) bool {
	var allUses []*streamir.Use
	for _, r := range op.Results() {
		allUses = append(allUses, r.Uses()...)
	}
	if len(allUses) == 0 {
		return false
	}
	block := op.Block()
	var ncd *streamir.Block
	for _, u := range allUses {
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
	target := earliestUser(block, allUses)
	if target == nil {
		return false
	}
	return SinkOp(op, target, rw)
}
