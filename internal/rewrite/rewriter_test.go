package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamcanon/internal/streamir"
)

type recordingListener struct {
	inserted, modified, removed []*streamir.Operation
}

func (l *recordingListener) OperationInserted(op *streamir.Operation) { l.inserted = append(l.inserted, op) }
func (l *recordingListener) OperationModified(op *streamir.Operation) { l.modified = append(l.modified, op) }
func (l *recordingListener) OperationRemoved(op *streamir.Operation)  { l.removed = append(l.removed, op) }

func TestReplaceOpWithValueRewiresUsesAndErases(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	splat := bld.AsyncSplat(loc, streamir.Transient, value, size)
	sub := bld.ResourceSubview(loc, splat, value, size)

	listener := &recordingListener{}
	rw := New(listener)
	rw.ReplaceOpWithValue(sub.DefiningOp(), splat)

	require.True(t, sub.IsUnused(), "old subview result should be unused after replacement")
	require.Len(t, listener.removed, 1)
	require.Equal(t, sub.DefiningOp(), listener.removed[0])
}

func TestStartAndCancelRootUpdateRestoresPayload(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	altSize := bld.ConstIndex(loc, 16)
	value := bld.ConstIndex(loc, 0)
	splat := bld.AsyncSplat(loc, streamir.Transient, value, size)
	op := splat.DefiningOp()

	rw := New(NoopListener{})
	rw.StartRootUpdate(op)
	op.SetOperand(1, altSize)
	require.Equal(t, altSize, op.Operand(1))
	rw.CancelRootUpdate(op)
	require.Equal(t, size, op.Operand(1), "operand should be restored to its pre-transaction value")
}

func TestSetInsertionPointAfterAppendsPastOp(t *testing.T) {
	m := streamir.NewModule("t")
	block := m.EntryBlock()
	bld := streamir.NewBuilder(block)
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)

	rw := New(NoopListener{})
	rw.SetInsertionPointAfter(size.DefiningOp())
	newVal := rw.Builder().ConstIndex(loc, 9)

	require.Equal(t, 1, block.IndexOf(newVal.DefiningOp()), "new op should land immediately after size's definition")
}
