package canon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamcanon/internal/streamir"
)

func TestExecuteAwaitListElidesImmediatesAndDedups(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	fillTarget := bld.ResourceAlloc(loc, streamir.Transient, size)

	execTp, bodyTp := bld.AsyncExecute(loc, []*streamir.Value{fillTarget}, []*streamir.Value{size}, nil, nil)
	bldTp := streamir.NewBuilder(bodyTp)
	bldTp.CmdFill(loc, bodyTp.Args()[0], size, value, size)
	bldTp.CmdReturn(loc)
	tpReal := execTp.Results()[len(execTp.Results())-1]

	imm := bld.TimepointImmediate(loc)
	target2 := bld.ResourceAlloc(loc, streamir.Transient, size)
	exec, body := bld.AsyncExecute(loc, []*streamir.Value{target2}, []*streamir.Value{size}, []*streamir.Value{imm, tpReal, tpReal}, nil)
	bldExec := streamir.NewBuilder(body)
	bldExec.CmdFill(loc, body.Args()[0], size, value, size)
	bldExec.CmdReturn(loc)

	bld.Return(loc, append(append([]*streamir.Value{}, exec.Results()...), execTp.Results()...))

	require.NoError(t, canonicalizeAndVerify(m))

	data := exec.Data().(*streamir.AsyncExecuteData)
	require.Equal(t, []*streamir.Value{tpReal}, data.AwaitTimepoints, "the immediate should be dropped and the duplicate real timepoint merged to one")
}

func TestChainCaptureThroughAwaitMergesWait(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	fillTarget := bld.ResourceAlloc(loc, streamir.Transient, size)

	execTp, bodyTp := bld.AsyncExecute(loc, []*streamir.Value{fillTarget}, []*streamir.Value{size}, nil, nil)
	bldTp := streamir.NewBuilder(bodyTp)
	bldTp.CmdFill(loc, bodyTp.Args()[0], size, value, size)
	bldTp.CmdReturn(loc)
	tpReal := execTp.Results()[len(execTp.Results())-1]

	resource := bld.ResourceAlloc(loc, streamir.Transient, size)
	awaited := bld.TimepointAwait(loc, tpReal, []*streamir.Value{resource}, []*streamir.Value{size})
	x := awaited[0]

	exec, body := bld.AsyncExecute(loc, []*streamir.Value{x}, []*streamir.Value{size}, nil, nil)
	bldExec := streamir.NewBuilder(body)
	bldExec.CmdFill(loc, body.Args()[0], size, value, size)
	bldExec.CmdReturn(loc)

	bld.Return(loc, append(append([]*streamir.Value{}, exec.Results()...), execTp.Results()...))

	require.NoError(t, canonicalizeAndVerify(m))

	data := exec.Data().(*streamir.AsyncExecuteData)
	require.Equal(t, resource, data.Captures[0], "the capture should fold back through the await to the pre-await resource")
	require.Equal(t, []*streamir.Value{tpReal}, data.AwaitTimepoints, "the await's own timepoint should migrate into the region's own wait list")

	for _, op := range m.EntryBlock().Operations() {
		require.NotEqual(t, streamir.KindTimepointAwait, op.Kind(), "the now-unused await should have been dead-code eliminated")
	}
}

func TestEmptyExecuteRegionElidesToCapturesAndImmediate(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	target := bld.ResourceAlloc(loc, streamir.Transient, size)

	exec, body := bld.AsyncExecute(loc, []*streamir.Value{target}, []*streamir.Value{size}, nil, nil)
	bldExec := streamir.NewBuilder(body)
	bldExec.CmdReturn(loc)
	bld.Return(loc, exec.Results())

	require.NoError(t, canonicalizeAndVerify(m))

	ret := returnOperandsOf(t, m)
	require.Equal(t, target, ret[0], "an empty-body execute region's result is just its capture")
	require.Equal(t, streamir.KindTimepointImmediate, ret[1].DefiningOp().Kind(), "an empty region completes immediately")
}

func TestEmptyConcurrentRegionElidesToCaptures(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	target := bld.ResourceAlloc(loc, streamir.Transient, size)

	conc, body := bld.AsyncConcurrent(loc, []*streamir.Value{target}, []*streamir.Value{size})
	bldConc := streamir.NewBuilder(body)
	bldConc.CmdReturn(loc)
	bld.Return(loc, conc.Results())

	require.NoError(t, canonicalizeAndVerify(m))

	ret := returnOperandsOf(t, m)
	require.Len(t, ret, 1)
	require.Equal(t, target, ret[0], "an empty-body concurrent region's result is just its capture")
}

func TestCaptureSubviewCloningPushesSubviewIntoBody(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 32)
	offset := bld.ConstIndex(loc, 4)
	length := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	target := bld.ResourceAlloc(loc, streamir.Transient, size)
	sub := bld.ResourceSubview(loc, target, offset, length)

	exec, body := bld.AsyncExecute(loc, []*streamir.Value{sub}, []*streamir.Value{length}, nil, nil)
	bldExec := streamir.NewBuilder(body)
	bldExec.CmdFill(loc, body.Args()[0], length, value, length)
	bldExec.CmdReturn(loc)
	bld.Return(loc, exec.Results())

	require.NoError(t, canonicalizeAndVerify(m))

	data := exec.Data().(*streamir.AsyncExecuteData)
	require.Equal(t, target, data.Captures[0], "the region should capture the subview's underlying resource directly")
	require.Equal(t, size, data.CaptureSizes[0], "the capture's size should be the underlying resource's own size")

	// The subview cloned into the body then fuses into the fill, which keeps
	// its sliced view as an offset on the captured resource.
	var fill *streamir.Operation
	for _, op := range body.Operations() {
		if op.Kind() == streamir.KindCmdFill {
			fill = op
		}
	}
	require.NotNil(t, fill)
	fillData := fill.Data().(*streamir.CmdFillData)
	require.Equal(t, body.Args()[0], fillData.Target, "the fill should read the captured resource's block argument directly")
	fusedOffset, ok := streamir.AsConstIndex(fillData.Offset)
	require.True(t, ok)
	require.Equal(t, int64(4), fusedOffset, "the fill should keep seeing the sliced view, at the subview's offset")
}

func TestPruneUnusedCaptureDropsDeadCapture(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	usedTarget := bld.ResourceAlloc(loc, streamir.Transient, size)
	unusedTarget := bld.ResourceAlloc(loc, streamir.Transient, size)

	exec, body := bld.AsyncExecute(loc, []*streamir.Value{usedTarget, unusedTarget}, []*streamir.Value{size, size}, nil, nil)
	bldExec := streamir.NewBuilder(body)
	bldExec.CmdFill(loc, body.Args()[0], size, value, size)
	bldExec.CmdReturn(loc)
	bld.Return(loc, []*streamir.Value{exec.Results()[0], exec.Results()[2]})

	require.NoError(t, canonicalizeAndVerify(m))

	var found *streamir.Operation
	for _, op := range m.EntryBlock().Operations() {
		if op.Kind() == streamir.KindAsyncExecute {
			found = op
		}
	}
	require.NotNil(t, found, "the rebuilt execute op should still be present")
	data := found.Data().(*streamir.AsyncExecuteData)
	require.Len(t, data.Captures, 1, "the dead second capture should have been dropped")
	require.Equal(t, usedTarget, data.Captures[0])
}
