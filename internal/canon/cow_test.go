package canon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"streamcanon/internal/streamir"
)

func TestCOWClonesConstantBeforeEveryTiedWrite(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	constants := bld.ResourceConstants(loc, []*streamir.Value{size})
	c := constants[0]

	fill1 := bld.AsyncFill(loc, c, size, value, size, value)
	fill2 := bld.AsyncFill(loc, c, size, value, size, value)
	bld.Return(loc, []*streamir.Value{fill1, fill2})

	require.NoError(t, canonicalizeAndVerify(m))

	require.NotEqual(t, c, fill1.DefiningOp().Operand(0), "first fill should now target a private clone, not the shared constant")
	require.NotEqual(t, c, fill2.DefiningOp().Operand(0), "second fill should now target its own private clone")
	require.NotEqual(t, fill1.DefiningOp().Operand(0), fill2.DefiningOp().Operand(0), "the two fills must not share a clone")
}

func TestCOWClonesBothTiedWritesOfSharedTransientResource(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	target := bld.ResourceAlloc(loc, streamir.Transient, size)

	fill1 := bld.AsyncFill(loc, target, size, value, size, value)
	fill2 := bld.AsyncFill(loc, target, size, value, size, value)
	bld.Return(loc, []*streamir.Value{fill1, fill2})

	require.NoError(t, canonicalizeAndVerify(m))

	require.NotEqual(t, target, fill1.DefiningOp().Operand(0), "first fill should now target a private clone, not the shared transient allocation")
	require.NotEqual(t, target, fill2.DefiningOp().Operand(0), "second fill should now target its own private clone, not be left aliasing the shared allocation")
	require.NotEqual(t, fill1.DefiningOp().Operand(0), fill2.DefiningOp().Operand(0), "the two fills must not share a clone")
}

func TestCOWLeavesSoleTiedUseOfTransientAlone(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	target := bld.ResourceAlloc(loc, streamir.Transient, size)
	fill := bld.AsyncFill(loc, target, size, value, size, value)
	bld.Return(loc, []*streamir.Value{fill})

	require.NoError(t, canonicalizeAndVerify(m))
	require.Equal(t, target, fill.DefiningOp().Operand(0), "a lone tied writer of a fresh transient allocation needs no clone")
}

func TestCOWClonesWhenTiedAndUntiedUsesMix(t *testing.T) {
	m := streamir.NewModule("t")
	bld := streamir.NewBuilder(m.EntryBlock())
	loc := streamir.Location{}

	size := bld.ConstIndex(loc, 8)
	value := bld.ConstIndex(loc, 0)
	target := bld.ResourceAlloc(loc, streamir.Transient, size)
	loaded := bld.AsyncLoad(loc, target, size, value, &streamir.IntegerType{Bits: 32})
	fill := bld.AsyncFill(loc, target, size, value, size, value)
	bld.Return(loc, []*streamir.Value{loaded, fill})

	require.NoError(t, canonicalizeAndVerify(m))
	require.NotEqual(t, target, fill.DefiningOp().Operand(0), "tied write alongside a surviving read must clone")
}

func canonicalizeAndVerify(m *streamir.Module) error {
	if err := Run(m); err != nil {
		return err
	}
	return streamir.Verify(m)
}
