package canon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamcanon/internal/rewrite"
	"streamcanon/internal/streamir"
)

// These four patterns interact with copy-on-write materialization (also
// registered against timepoint.await, and tried first in registration
// order): a literal duplicate tied resource operand is exactly the shape
// cowMaterialize itself exists to split apart. So they're exercised here
// directly against a bare rewrite.Rewriter, the same "one-shot rewrite
// outside a worklist" mode rewrite.NoopListener documents, rather than
// through the full Run fixed point.

func TestDedupAwaitResourcesCollapsesDuplicateOperand(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	r := bld.ResourceAlloc(loc, streamir.Transient, size)
	tp := bld.TimepointImmediate(loc)
	results := bld.TimepointAwait(loc, tp, []*streamir.Value{r, r}, []*streamir.Value{size, size})
	bld.Return(loc, results)

	awaitOp := results[0].DefiningOp()
	rw := rewrite.New(rewrite.NoopListener{})
	require.True(t, dedupAwaitResources(awaitOp, rw))

	retVals := m.EntryBlock().Terminator().Data().(*streamir.ReturnData).Values
	require.Equal(t, retVals[0], retVals[1], "both original uses should now share the single deduped result")
	newAwait := retVals[0].DefiningOp()
	require.Equal(t, streamir.KindTimepointAwait, newAwait.Kind())
	require.Len(t, newAwait.Data().(*streamir.TimepointAwaitData).Resources, 1)
}

func TestGroupAwaitsByTimepointMergesTwoAwaits(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	r1 := bld.ResourceAlloc(loc, streamir.Transient, size)
	r2 := bld.ResourceAlloc(loc, streamir.Transient, size)
	tp := bld.TimepointImmediate(loc)
	res1 := bld.TimepointAwait(loc, tp, []*streamir.Value{r1}, []*streamir.Value{size})
	res2 := bld.TimepointAwait(loc, tp, []*streamir.Value{r2}, []*streamir.Value{size})
	bld.Return(loc, append(append([]*streamir.Value{}, res1...), res2...))

	op1 := res1[0].DefiningOp()
	rw := rewrite.New(rewrite.NoopListener{})
	require.True(t, groupAwaitsByTimepoint(op1, rw))

	retVals := m.EntryBlock().Terminator().Data().(*streamir.ReturnData).Values
	require.Len(t, retVals, 2)
	merged := retVals[0].DefiningOp()
	require.Equal(t, streamir.KindTimepointAwait, merged.Kind())
	require.Equal(t, merged, retVals[1].DefiningOp(), "both results should now come from the single merged await")
	require.Equal(t, []*streamir.Value{r1, r2}, merged.Data().(*streamir.TimepointAwaitData).Resources)
}

func TestSinkSubviewAcrossAwaitReexpressesAsAwaitOfUnderlying(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 32)
	offset := bld.ConstIndex(loc, 4)
	length := bld.ConstIndex(loc, 8)
	target := bld.ResourceAlloc(loc, streamir.Transient, size)
	sub := bld.ResourceSubview(loc, target, offset, length)
	tp := bld.TimepointImmediate(loc)
	results := bld.TimepointAwait(loc, tp, []*streamir.Value{sub}, []*streamir.Value{length})
	bld.Return(loc, results)

	awaitOp := results[0].DefiningOp()
	rw := rewrite.New(rewrite.NoopListener{})
	require.True(t, sinkSubviewsAcrossAwait(awaitOp, rw))

	awaitData := awaitOp.Data().(*streamir.TimepointAwaitData)
	require.Equal(t, target, awaitData.Resources[0], "the await should now gate the underlying resource directly")
	require.Equal(t, size, awaitData.ResourceSizes[0])

	retVals := m.EntryBlock().Terminator().Data().(*streamir.ReturnData).Values
	newSubview := retVals[0].DefiningOp()
	require.Equal(t, streamir.KindResourceSubview, newSubview.Kind(), "consumers should still see the same sliced view")
	subData := newSubview.Data().(*streamir.ResourceSubviewData)
	require.Equal(t, awaitOp.Result(0), subData.Source)
	require.Equal(t, offset, subData.Offset)
	require.Equal(t, length, subData.Length)
}

func TestSinkAwaitToFirstConsumerMovesNextToItsUser(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	r := bld.ResourceAlloc(loc, streamir.Transient, size)
	tp := bld.TimepointImmediate(loc)
	results := bld.TimepointAwait(loc, tp, []*streamir.Value{r}, []*streamir.Value{size})
	unrelated := bld.ConstIndex(loc, 99)
	loaded := bld.AsyncLoad(loc, results[0], size, value, &streamir.IntegerType{Bits: 32})
	bld.Return(loc, []*streamir.Value{loaded, unrelated})

	awaitOp := results[0].DefiningOp()
	rw := rewrite.New(rewrite.NoopListener{})
	require.True(t, sinkAwaitToFirstConsumer(awaitOp, rw))

	block := m.EntryBlock()
	require.Equal(t, block.IndexOf(loaded.DefiningOp())-1, block.IndexOf(awaitOp), "the await should sink to sit immediately before its only consumer")
}
